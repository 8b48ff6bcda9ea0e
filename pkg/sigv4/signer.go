// Package sigv4 implements AWS Signature Version 4 request signing for
// S3-compatible services.
//
// The package is pure: it performs no network or disk I/O and holds no
// shared mutable state, so a Signer is safe for concurrent use. Both
// header signing (Authorization) and query-string signing (presigned
// URLs) are supported, byte-for-byte compatible with the service-side
// verifier.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Algorithm identifies the signing scheme in Authorization headers
	// and presigned URL query parameters.
	Algorithm = "AWS4-HMAC-SHA256"

	// UnsignedPayload is the payload-hash sentinel used for presigned
	// URLs, where the body is not known at signing time.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// DefaultRegion is used when credentials carry no region.
	DefaultRegion = "us-east-1"

	// DefaultService is the service name for S3 credential scopes.
	DefaultService = "s3"

	requestType = "aws4_request"

	timestampFormat = "20060102T150405Z"
	dateStampFormat = "20060102"

	// MaxPresignExpiry is the protocol ceiling for presigned URL
	// lifetimes (7 days).
	MaxPresignExpiry = 7 * 24 * time.Hour
)

// Errors returned by signing operations. These indicate programming
// errors in the inputs, never transient conditions.
var (
	// ErrMissingHost is returned when the URL to sign has no host.
	ErrMissingHost = errors.New("sigv4: url has no host")

	// ErrInvalidExpiry is returned for presign lifetimes outside (0, 7d].
	ErrInvalidExpiry = errors.New("sigv4: expiry must be between 1 second and 7 days")
)

// Credentials carry the signing identity. They are immutable once
// constructed and must never be logged or serialized.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Service         string
}

// Signer computes SigV4 signatures for a fixed set of credentials.
type Signer struct {
	creds Credentials

	// now is sampled exactly once per signing operation so the
	// timestamp and date stamp are mutually consistent. Tests override
	// it to reproduce published signature vectors.
	now func() time.Time
}

// New creates a Signer. Empty Region defaults to us-east-1 and empty
// Service to "s3".
func New(creds Credentials) *Signer {
	if creds.Region == "" {
		creds.Region = DefaultRegion
	}
	if creds.Service == "" {
		creds.Service = DefaultService
	}
	return &Signer{creds: creds, now: time.Now}
}

// SignRequest signs an outbound request and returns the augmented header
// set. The caller's map is never mutated. Host, x-amz-date, and
// x-amz-content-sha256 are injected when absent; the Authorization header
// carries the credential scope, signed header names, and signature.
func (s *Signer) SignRequest(method string, u *url.URL, headers map[string]string, payload []byte, query url.Values) (map[string]string, error) {
	if u == nil || u.Host == "" {
		return nil, ErrMissingHost
	}

	timestamp, dateStamp := s.stamps()

	signed := make(map[string]string, len(headers)+3)
	for k, v := range headers {
		signed[strings.ToLower(k)] = v
	}
	signed["host"] = u.Host
	if _, ok := signed["x-amz-date"]; !ok {
		signed["x-amz-date"] = timestamp
	} else {
		// A caller-supplied timestamp governs the whole signature.
		timestamp = signed["x-amz-date"]
		if len(timestamp) >= len(dateStampFormat) {
			dateStamp = timestamp[:len(dateStampFormat)]
		}
	}
	if _, ok := signed["x-amz-content-sha256"]; !ok {
		signed["x-amz-content-sha256"] = sha256Hex(payload)
	}

	queryString := CanonicalQueryString(query)
	request, signedNames := canonicalRequest(method, u.Path, queryString, signed, signed["x-amz-content-sha256"])

	scope := s.scope(dateStamp)
	stringToSign := stringToSign(timestamp, scope, request)
	key := deriveSigningKey(s.creds.SecretAccessKey, dateStamp, s.creds.Region, s.creds.Service)
	signature := hmacSHA256Hex(key, stringToSign)

	out := make(map[string]string, len(signed)+1)
	for k, v := range signed {
		out[k] = v
	}
	out["Authorization"] = fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		Algorithm, s.creds.AccessKeyID, scope, signedNames, signature)
	return out, nil
}

// PresignURL returns a copy of u whose query carries the full signature
// parameter set, valid for the given lifetime. The payload is unsigned,
// only the host header is covered, and caller-supplied query parameters
// are merged before signing so each appears encoded exactly once.
func (s *Signer) PresignURL(method string, u *url.URL, expires time.Duration, query url.Values) (*url.URL, error) {
	if u == nil || u.Host == "" {
		return nil, ErrMissingHost
	}
	if expires <= 0 || expires > MaxPresignExpiry {
		return nil, ErrInvalidExpiry
	}

	timestamp, dateStamp := s.stamps()
	scope := s.scope(dateStamp)

	merged := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	merged.Set("X-Amz-Algorithm", Algorithm)
	merged.Set("X-Amz-Credential", s.creds.AccessKeyID+"/"+scope)
	merged.Set("X-Amz-Date", timestamp)
	merged.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	merged.Set("X-Amz-SignedHeaders", "host")

	queryString := CanonicalQueryString(merged)
	request, _ := canonicalRequest(method, u.Path, queryString, map[string]string{"host": u.Host}, UnsignedPayload)

	key := deriveSigningKey(s.creds.SecretAccessKey, dateStamp, s.creds.Region, s.creds.Service)
	signature := hmacSHA256Hex(key, stringToSign(timestamp, scope, request))

	merged.Set("X-Amz-Signature", signature)

	signedURL := *u
	signedURL.RawQuery = CanonicalQueryString(merged)
	return &signedURL, nil
}

// stamps samples the clock once and formats both timestamp forms from it.
func (s *Signer) stamps() (timestamp, dateStamp string) {
	now := s.now().UTC()
	return now.Format(timestampFormat), now.Format(dateStampFormat)
}

func (s *Signer) scope(dateStamp string) string {
	return strings.Join([]string{dateStamp, s.creds.Region, s.creds.Service, requestType}, "/")
}

func stringToSign(timestamp, scope, canonicalRequest string) string {
	return strings.Join([]string{
		Algorithm,
		timestamp,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")
}

// deriveSigningKey chains four HMAC-SHA256 operations seeded with
// "AWS4"+secret, keyed successively by date, region, service, and the
// aws4_request literal. The result is valid only for that calendar date
// and region/service pair and must not be cached across days.
func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(requestType))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hmacSHA256Hex(key []byte, data string) string {
	return hex.EncodeToString(hmacSHA256(key, []byte(data)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SortedHeaderNames returns the lowercased, sorted header names that
// would be signed for the given header map. Exposed for callers that
// need to pre-compute the SignedHeaders value.
func SortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)
	return names
}
