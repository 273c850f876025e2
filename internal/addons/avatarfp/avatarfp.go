// Package avatarfp implements the avatar_fingerprint addon (§4.H):
// downloading a Result's avatar image and computing its sha256 and a
// 64-bit difference hash (dHash). Decoded pixel data is dropped
// immediately after hashing (§9 design note: "decode once, hash, then
// drop pixel data; never retain decoded images past hashing").
package avatarfp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math/bits"
	"net/http"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/jmylchreest/usercheck/internal/httpclient"
)

const (
	dhashWidth  = 9 // 9 columns so each row yields 8 pairwise comparisons
	dhashHeight = 8
)

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Fingerprint is the computed avatar fingerprint (§3).
type Fingerprint struct {
	SHA256 string
	DHash  uint64
}

// Fetcher downloads and hashes avatar images via the HTTP client
// factory (component A), refusing .onion hosts per §4.A/§4.H.
type Fetcher struct {
	HTTPFactory *httpclient.Factory
}

// Fetch downloads avatarURL and computes its Fingerprint. It validates
// content-type and size before decoding (§4.H).
func (f Fetcher) Fetch(ctx context.Context, avatarURL string) (Fingerprint, error) {
	body, err := f.FetchBytes(ctx, avatarURL)
	if err != nil {
		return Fingerprint{}, err
	}
	return Compute(body)
}

// FetchBytes downloads avatarURL and returns the validated raw image
// bytes without decoding, for callers (face_match) that need the image
// itself rather than its fingerprint.
func (f Fetcher) FetchBytes(ctx context.Context, avatarURL string) ([]byte, error) {
	host, err := httpclient.HostOf(avatarURL)
	if err != nil {
		return nil, err
	}
	if httpclient.IsOnionHost(host) {
		return nil, fmt.Errorf("avatarfp: refusing to fetch .onion avatar host %s", host)
	}

	client, err := f.HTTPFactory.Client(0)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0])
	if !allowedContentTypes[contentType] {
		return nil, fmt.Errorf("avatarfp: unsupported content-type %q", contentType)
	}

	return httpclient.ReadCapped(resp.Body, httpclient.MaxAvatarBodyBytes)
}

// Compute hashes raw image bytes: sha256 of the bytes plus a dHash of
// the decoded, resized-to-9x8-grayscale pixels (§3, §4.H).
func Compute(body []byte) (Fingerprint, error) {
	sum := sha256.Sum256(body)

	img, err := decode(body)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("avatarfp: decode: %w", err)
	}

	dhash := DHash(img)

	return Fingerprint{
		SHA256: hex.EncodeToString(sum[:]),
		DHash:  dhash,
	}, nil
}

func decode(body []byte) (image.Image, error) {
	r := bytes.NewReader(body)
	if img, err := png.Decode(r); err == nil {
		return img, nil
	}
	r.Seek(0, io.SeekStart)
	if img, err := jpeg.Decode(r); err == nil {
		return img, nil
	}
	r.Seek(0, io.SeekStart)
	if img, err := gif.Decode(r); err == nil {
		return img, nil
	}
	r.Seek(0, io.SeekStart)
	if img, err := webp.Decode(r); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unrecognized image format")
}

// DHash computes the 64-bit difference hash of img: resize to 9x8
// grayscale, then row-wise neighbor compare (§3, §4.H).
func DHash(img image.Image) uint64 {
	small := image.NewGray(image.Rect(0, 0, dhashWidth, dhashHeight))
	xdraw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Over, nil)

	var hash uint64
	bit := uint(0)
	for y := 0; y < dhashHeight; y++ {
		for x := 0; x < dhashWidth-1; x++ {
			left := small.GrayAt(x, y)
			right := small.GrayAt(x+1, y)
			if left.Y > right.Y {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

// HammingDistance returns the number of differing bits between two
// dHash values (§3 cluster equality rule).
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
