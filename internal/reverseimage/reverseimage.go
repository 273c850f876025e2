// Package reverseimage builds the fixed, ordered list of one-click
// reverse-image-search URLs for a given image (§6 ancillary contract).
// It makes no network call — it only URL-encodes imageURL into each
// engine's search-by-image template.
package reverseimage

import "net/url"

// Engine is one reverse-image search provider's generated URL.
type Engine struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Links returns the fixed-order list of reverse-image search links for
// imageURL: Google Images, Google Lens, Bing Visual Search, TinEye,
// Yandex Images (§6).
func Links(imageURL string) []Engine {
	encoded := url.QueryEscape(imageURL)
	return []Engine{
		{Name: "google_images", URL: "https://www.google.com/searchbyimage?image_url=" + encoded},
		{Name: "google_lens", URL: "https://lens.google.com/uploadbyurl?url=" + encoded},
		{Name: "bing_visual_search", URL: "https://www.bing.com/images/search?view=detailv2&iss=sbi&q=imgurl:" + encoded},
		{Name: "tineye", URL: "https://tineye.com/search?url=" + encoded},
		{Name: "yandex_images", URL: "https://yandex.com/images/search?rpt=imageview&url=" + encoded},
	}
}
