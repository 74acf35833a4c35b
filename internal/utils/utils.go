// Package utils normalizes observation targets so the same page always maps
// to the same snapshot history.
package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL          = errors.New("empty url")
	ErrMissingHost       = errors.New("missing host")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	DropTrackingParams bool   // remove utm_*, gclid, fbclid and friends
	StripTrailingSlash bool   // /a and /a/ are the same target; root stays "/"
	DefaultScheme      string // assumed for schemeless input; empty means the scheme is required
}

// TargetOptions is what the trigger surface and scheduler use.
var TargetOptions = CanonicalizeOptions{
	DropTrackingParams: true,
	StripTrailingSlash: true,
	DefaultScheme:      "https",
}

var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
}

// Canonicalize returns a deterministic http(s) URL: lowercase scheme and
// punycode host, default port, credentials and fragment dropped, cleaned
// path and sorted query.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%q: %w %q", raw, ErrUnsupportedScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%q: %w", raw, ErrMissingHost)
	}

	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	switch port := u.Port(); {
	case port == "",
		u.Scheme == "http" && port == "80",
		u.Scheme == "https" && port == "443":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	p := path.Clean("/" + u.Path)
	if !opts.StripTrailingSlash && strings.HasSuffix(u.Path, "/") && p != "/" {
		p += "/"
	}
	u.Path = p
	u.RawPath = ""

	u.RawQuery = sortedQuery(u.Query(), opts.DropTrackingParams)
	return u.String(), nil
}

func sortedQuery(q url.Values, dropTracking bool) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, tracked := trackingParams[strings.ToLower(k)]; dropTracking && tracked {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := url.Values{}
	for _, k := range keys {
		values := append([]string(nil), q[k]...)
		sort.Strings(values)
		out[k] = values
	}
	return out.Encode()
}

// CanonicalizeTargets canonicalizes every entry and drops duplicates,
// keeping first-seen order. The first invalid entry aborts with an error.
func CanonicalizeTargets(raw []string, opts CanonicalizeOptions) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		c, err := Canonicalize(r, opts)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}
