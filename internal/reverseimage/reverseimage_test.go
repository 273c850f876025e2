package reverseimage

import (
	"strings"
	"testing"
)

func TestLinks_FixedOrderAndCount(t *testing.T) {
	links := Links("https://example.com/avatar.png")
	if len(links) != 5 {
		t.Fatalf("expected 5 engines, got %d", len(links))
	}
	wantOrder := []string{"google_images", "google_lens", "bing_visual_search", "tineye", "yandex_images"}
	for i, name := range wantOrder {
		if links[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, links[i].Name, name)
		}
	}
}

func TestLinks_URLEncodesImageURL(t *testing.T) {
	links := Links("https://example.com/a b.png?x=1&y=2")
	for _, l := range links {
		if strings.Contains(l.URL, " ") {
			t.Errorf("%s: url not encoded: %s", l.Name, l.URL)
		}
	}
}
