package upstream

import (
	"strings"
)

// AuthMode selects whether the API key header is attached to a request.
type AuthMode int

const (
	// AuthWithKey attaches the configured API key header.
	AuthWithKey AuthMode = iota
	// AuthNoKey sends the request without any API key header.
	AuthNoKey
)

func (m AuthMode) String() string {
	if m == AuthNoKey {
		return "no_key"
	}
	return "with_key"
}

// Variant is one concrete request spelling tried for a logical path.
type Variant struct {
	BaseURL string
	Path    string
	Auth    AuthMode
}

// URL joins the variant base URL and path.
func (v Variant) URL() string {
	return v.BaseURL + v.Path
}

// Routes describes the candidate hosts and route prefixes of the upstream API.
// Order matters: the first entries are tried first.
type Routes struct {
	BaseURLs []string
	Prefixes []string
}

// DefaultPrefixes lists the route prefixes seen across upstream accounts.
var DefaultPrefixes = []string{"/v4", "/api/v4", ""}

// Variants expands a logical path into the ordered request variants:
// host, then route prefix, then auth mode. A path that already carries one of
// the known prefixes keeps that spelling first. When withKey is false every
// variant is sent without the key and duplicates are dropped.
func (r Routes) Variants(path string, withKey bool) []Variant {
	logical, given, hasGiven := r.splitPrefix(path)

	prefixes := make([]string, 0, len(r.Prefixes)+1)
	if hasGiven {
		prefixes = append(prefixes, given)
	}
	prefixes = append(prefixes, r.prefixes()...)

	auths := []AuthMode{AuthWithKey, AuthNoKey}
	if !withKey {
		auths = []AuthMode{AuthNoKey}
	}

	seen := make(map[Variant]struct{})
	out := make([]Variant, 0, len(r.BaseURLs)*len(prefixes)*len(auths))
	for _, base := range r.BaseURLs {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		for _, prefix := range prefixes {
			for _, auth := range auths {
				v := Variant{BaseURL: base, Path: normalizePrefix(prefix) + logical, Auth: auth}
				if _, ok := seen[v]; ok {
					continue
				}
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}

func (r Routes) prefixes() []string {
	if r.Prefixes == nil {
		return DefaultPrefixes
	}
	return r.Prefixes
}

func (r Routes) splitPrefix(path string) (logical, prefix string, ok bool) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	for _, candidate := range r.prefixes() {
		candidate = normalizePrefix(candidate)
		if candidate == "" {
			continue
		}
		if path == candidate || strings.HasPrefix(path, candidate+"/") {
			return strings.TrimPrefix(path, candidate), candidate, true
		}
	}
	return path, "", false
}

// NormalizePrefixes trims and canonicalizes configured prefixes ("v4/" -> "/v4").
func NormalizePrefixes(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, normalizePrefix(value))
	}
	return out
}

func normalizePrefix(value string) string {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if value == "" {
		return ""
	}
	return "/" + value
}
