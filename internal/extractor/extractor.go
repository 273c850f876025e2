// Package extractor pulls a structured profile out of a provider's
// response body: JSON-LD Person fragments, OpenGraph, Twitter-Card, and
// provider-declared JSON endpoints (§4.E). It never raises on malformed
// markup — extraction failures are local, not scan failures (§7).
package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmylchreest/usercheck/internal/models"
)

// Extracted is the extractor's output before it's merged into a
// Result's profile bag, plus a flag the classifier consults for the
// "non-empty OpenGraph title" presence heuristic (§4.D rule 4).
type Extracted struct {
	Profile    models.Profile
	HasOGTitle bool
}

// FromHTML attempts JSON-LD, then OpenGraph, then Twitter-Card, in that
// order, unioning fields without letting a later source overwrite an
// earlier non-empty value (§4.E).
func FromHTML(body []byte) Extracted {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Extracted{}
	}

	var out Extracted
	extractJSONLD(doc, &out.Profile)
	extractOpenGraph(doc, &out.Profile, &out.HasOGTitle)
	extractTwitterCard(doc, &out.Profile)
	return out
}

func extractJSONLD(doc *goquery.Document, p *models.Profile) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true // keep looking at other script blocks
		}
		person, ok := findPersonFragment(raw)
		if !ok {
			return true
		}
		mergeString(&p.DisplayName, person.Name)
		mergeString(&p.Bio, person.Description)
		mergeString(&p.AvatarURL, person.Image)
		return false
	})
}

type jsonLDPerson struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

func findPersonFragment(raw json.RawMessage) (jsonLDPerson, bool) {
	var single jsonLDPerson
	if err := json.Unmarshal(raw, &single); err == nil && strings.EqualFold(single.Type, "Person") {
		return single, true
	}

	var list []jsonLDPerson
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if strings.EqualFold(item.Type, "Person") {
				return item, true
			}
		}
	}

	var graph struct {
		Graph []jsonLDPerson `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &graph); err == nil {
		for _, item := range graph.Graph {
			if strings.EqualFold(item.Type, "Person") {
				return item, true
			}
		}
	}

	return jsonLDPerson{}, false
}

func extractOpenGraph(doc *goquery.Document, p *models.Profile, hasOGTitle *bool) {
	title := metaContent(doc, "og:title")
	if strings.TrimSpace(title) != "" {
		*hasOGTitle = true
	}
	mergeString(&p.DisplayName, title)
	mergeString(&p.Bio, metaContent(doc, "og:description"))
	mergeString(&p.AvatarURL, metaContent(doc, "og:image"))
}

func extractTwitterCard(doc *goquery.Document, p *models.Profile) {
	mergeString(&p.DisplayName, metaContent(doc, "twitter:title"))
	mergeString(&p.Bio, metaContent(doc, "twitter:description"))
	mergeString(&p.AvatarURL, metaContent(doc, "twitter:image"))
}

func metaContent(doc *goquery.Document, property string) string {
	var val string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if p, _ := s.Attr("property"); p == property {
			val, _ = s.Attr("content")
			return false
		}
		if n, _ := s.Attr("name"); n == property {
			val, _ = s.Attr("content")
			return false
		}
		return true
	})
	return val
}

// mergeString sets *dst to val only if *dst is currently empty and val
// is non-empty — the "later sources do not overwrite" union rule (§4.E).
func mergeString(dst *string, val string) {
	if *dst == "" && strings.TrimSpace(val) != "" {
		*dst = val
	}
}

// jsonEndpointProfile is the shape expected from a provider's declared
// json_endpoint sibling URL (§4.E, §6).
type jsonEndpointProfile struct {
	DisplayName string      `json:"display_name"`
	AvatarURL   string      `json:"avatar_url"`
	Bio         string      `json:"bio"`
	Followers   interface{} `json:"followers"`
	Following   interface{} `json:"following"`
	CreatedAt   string      `json:"created_at"`
}

// MergeJSONEndpoint unions fields from a provider's json_endpoint
// response into p, following the same non-overwrite rule as FromHTML.
// It tolerates malformed JSON by returning without modifying p.
func MergeJSONEndpoint(body []byte, p *models.Profile) {
	var j jsonEndpointProfile
	if err := json.Unmarshal(body, &j); err != nil {
		return
	}
	mergeString(&p.DisplayName, j.DisplayName)
	mergeString(&p.AvatarURL, j.AvatarURL)
	mergeString(&p.Bio, j.Bio)
	mergeString(&p.CreatedAt, j.CreatedAt)
	if p.Followers == nil {
		if n, ok := toInt(j.Followers); ok {
			p.Followers = &n
		}
	}
	if p.Following == nil {
		if n, ok := toInt(j.Following); ok {
			p.Following = &n
		}
	}
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
