// Package biolinks implements the bio_links addon (§4.H): extracting
// URLs, bare hostnames, and @handle tokens from a Result's bio text and
// deriving a lowercased eTLD+1 domain list.
package biolinks

import (
	"net/url"
	"regexp"
	"strings"
)

const maxFragmentLen = 256 // §4.H: "ignore fragments longer than 256 chars"

var (
	urlPattern      = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)
	bareHostPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9-]+\.)+[a-z]{2,}(?:/[^\s<>"']*)?\b`)
	handlePattern   = regexp.MustCompile(`@[A-Za-z0-9_]{2,32}`)
)

// Extract derives the lowercased eTLD+1-ish domain list from free-form
// bio text (§4.H). This is a pragmatic public-suffix approximation
// (last two labels) rather than a full PSL lookup, sufficient for
// clustering/reporting purposes rather than exact registrability.
func Extract(bio string) []string {
	if bio == "" {
		return nil
	}

	domains := make(map[string]struct{})

	for _, frag := range fragments(bio) {
		if len(frag) > maxFragmentLen {
			continue
		}
		if host := hostFromURL(frag); host != "" {
			domains[eTLDPlusOne(host)] = struct{}{}
		}
	}

	for _, match := range bareHostPattern.FindAllString(bio, -1) {
		if len(match) > maxFragmentLen {
			continue
		}
		host := match
		if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
			host = host[:idx]
		}
		domains[eTLDPlusOne(strings.ToLower(host))] = struct{}{}
	}

	out := make([]string, 0, len(domains))
	for d := range domains {
		out = append(out, d)
	}
	return out
}

// Handles returns the @handle tokens present in bio text.
func Handles(bio string) []string {
	if bio == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, m := range handlePattern.FindAllString(bio, -1) {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func fragments(bio string) []string {
	return urlPattern.FindAllString(bio, -1)
}

func hostFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// eTLDPlusOne returns the last two dot-separated labels of host, a
// pragmatic approximation of the registrable domain.
func eTLDPlusOne(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
