// Package endpoint resolves bucket addresses for S3-compatible services.
//
// Given an endpoint URL and a bucket name it decides whether the bucket is
// addressed as a subdomain (virtual-hosted style) or as a path segment
// (path style), and validates that the combination is usable. Resolution
// happens once, at client construction time; every failure here is a
// configuration error, never a runtime one.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Style selects how the bucket appears in request URLs.
type Style string

const (
	// StyleAuto picks virtual-hosted style when the bucket name is a
	// valid DNS subdomain label, path style otherwise.
	StyleAuto Style = "auto"

	// StyleVirtualHosted addresses the bucket as a subdomain
	// (bucket.host); fails for names that are not DNS-valid.
	StyleVirtualHosted Style = "virtual-hosted"

	// StylePath addresses the bucket as a path segment (host/bucket)
	// regardless of name validity.
	StylePath Style = "path-style"
)

// Errors returned by Resolve.
var (
	// ErrNotHTTPS is returned for endpoints using a scheme other than
	// https (unless plain HTTP is explicitly allowed).
	ErrNotHTTPS = errors.New("endpoint: URL must use https")

	// ErrMissingHost is returned for endpoints without a host.
	ErrMissingHost = errors.New("endpoint: URL has no host")

	// ErrAmbiguousBucket is returned when the bucket name appears both
	// as a host label and as a path suffix of the endpoint.
	ErrAmbiguousBucket = errors.New("endpoint: bucket appears in both host and path")

	// ErrInvalidBucketName is returned when virtual-hosted style is
	// forced for a name that fails the DNS validity check.
	ErrInvalidBucketName = errors.New("endpoint: bucket name is not valid for virtual-hosted addressing")

	// ErrUnknownStyle is returned for an unrecognized address style.
	ErrUnknownStyle = errors.New("endpoint: unknown address style")
)

// Address is a resolved bucket base URL. It is computed once per client
// configuration and stable for the life of the client.
type Address struct {
	// URL is the request base URL: scheme, host, and (for path style)
	// the bucket path prefix.
	URL *url.URL

	// Style records which addressing form was chosen.
	Style Style
}

// Options tune resolution for non-production setups.
type Options struct {
	// AllowHTTP permits plain-HTTP endpoints. Intended for local
	// development servers (MinIO, test doubles); production endpoints
	// must be HTTPS.
	AllowHTTP bool
}

// ParseStyle converts a configuration string into a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleAuto, StyleVirtualHosted, StylePath:
		return Style(s), nil
	case "":
		return StyleAuto, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStyle, s)
}

// Resolve computes the bucket base URL for an endpoint.
//
// The endpoint must be an absolute HTTPS URL with a host. A configuration
// where the bucket name is simultaneously a host label and a path suffix
// is rejected as ambiguous.
func Resolve(endpointURL, bucket string, style Style, opts Options) (*Address, error) {
	bucket = strings.Trim(bucket, "/")

	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, fmt.Errorf("endpoint: parse %q: %w", endpointURL, err)
	}
	if u.Scheme != "https" && !(opts.AllowHTTP && u.Scheme == "http") {
		return nil, ErrNotHTTPS
	}
	if u.Host == "" {
		return nil, ErrMissingHost
	}
	if strings.HasPrefix(u.Host, bucket+".") && strings.HasSuffix(strings.Trim(u.Path, "/"), bucket) {
		return nil, fmt.Errorf("%w: bucket %q in %q", ErrAmbiguousBucket, bucket, endpointURL)
	}

	virtualHosted := func() *url.URL {
		v := *u
		if !strings.HasPrefix(v.Host, bucket+".") {
			v.Host = bucket + "." + v.Host
		}
		v.Path = ""
		return &v
	}
	pathStyle := func() *url.URL {
		p := *u
		p.Path = "/" + bucket
		return &p
	}

	switch style {
	case StyleAuto:
		if IsValidBucketSubdomain(bucket) {
			return &Address{URL: virtualHosted(), Style: StyleVirtualHosted}, nil
		}
		return &Address{URL: pathStyle(), Style: StylePath}, nil
	case StyleVirtualHosted:
		if !IsValidBucketSubdomain(bucket) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBucketName, bucket)
		}
		return &Address{URL: virtualHosted(), Style: StyleVirtualHosted}, nil
	case StylePath:
		return &Address{URL: pathStyle(), Style: StylePath}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, string(style))
}

// ObjectURL joins an object key onto the resolved base URL. The key is
// stored decoded; percent-encoding happens at signing and dispatch time.
func (a *Address) ObjectURL(key string) *url.URL {
	u := *a.URL
	base := strings.TrimSuffix(u.Path, "/")
	if key == "" {
		if base == "" {
			u.Path = "/"
		} else {
			u.Path = base
		}
		return &u
	}
	u.Path = base + "/" + strings.TrimPrefix(key, "/")
	return &u
}

var (
	bucketCharset = regexp.MustCompile(`^[a-z0-9.-]+$`)
	dottedQuad    = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)
)

// IsValidBucketSubdomain reports whether a bucket name can be used as a
// DNS subdomain label set. This is stricter than general DNS validity:
// 3-63 characters; lowercase letters, digits, dots, and hyphens only; no
// leading or trailing dot/hyphen; no "..", ".-", or "-." pairs; and the
// name must not look like a dotted-quad IPv4 address.
func IsValidBucketSubdomain(bucket string) bool {
	if len(bucket) < 3 || len(bucket) > 63 {
		return false
	}
	if !bucketCharset.MatchString(bucket) {
		return false
	}
	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return false
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, ".-") || strings.Contains(bucket, "-.") {
		return false
	}
	return !dottedQuad.MatchString(bucket)
}
