package sigv4

import (
	"net/url"
	"sort"
	"strings"
)

// EncodePath percent-encodes a URI path for the canonical request.
// Slashes and tildes stay literal; every other reserved character is
// escaped. S3 signs the path exactly once, so the input must be the
// decoded path, not an already-escaped one.
func EncodePath(path string) string {
	if path == "" {
		return "/"
	}

	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// isUnreserved reports whether c is an RFC 3986 unreserved character.
func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// encodeValue percent-encodes a query key or value with no safe
// characters beyond the unreserved set.
func encodeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// CanonicalQueryString renders query parameters as the protocol requires:
// key=value pairs fully percent-encoded, sorted by key with ties broken
// by value, joined with '&'. Verifiers reject any other ordering.
func CanonicalQueryString(params url.Values) string {
	pairs := make([]string, 0, len(params))
	for k, vs := range params {
		ek := encodeValue(k)
		for _, v := range vs {
			pairs = append(pairs, ek+"="+encodeValue(v))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// canonicalHeaders renders the signed header block and the semicolon-joined
// signed header names. Keys are lowercased and sorted; values are trimmed.
// Header values containing CR or LF produce an invalid signature rather
// than an error; callers sanitize before signing.
func canonicalHeaders(headers map[string]string) (block, signedNames string) {
	names := make([]string, 0, len(headers))
	byName := make(map[string]string, len(headers))
	for k, v := range headers {
		name := strings.ToLower(k)
		names = append(names, name)
		byName[name] = strings.TrimSpace(v)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(byName[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

// canonicalRequest joins the six canonical lines: method, encoded path,
// canonical query string, header block, signed header names, payload hash.
func canonicalRequest(method, path, queryString string, headers map[string]string, payloadHash string) (request, signedNames string) {
	block, names := canonicalHeaders(headers)
	request = strings.Join([]string{
		method,
		EncodePath(path),
		queryString,
		block,
		names,
		payloadHash,
	}, "\n")
	return request, names
}
