package handlers

import (
	"context"

	"github.com/jmylchreest/usercheck/internal/reverseimage"
)

// ReverseImageInput is the §6 reverse-image helper request.
type ReverseImageInput struct {
	ImageURL string `query:"image_url"`
}

// ReverseImageOutput lists the fixed, ordered reverse-image search links.
type ReverseImageOutput struct {
	Body struct {
		Engines []reverseimage.Engine `json:"engines"`
	}
}

// ReverseImage returns the fixed ordered list of one-click reverse-image
// search URLs for image_url. Makes no network call (§6).
func ReverseImage(_ context.Context, in *ReverseImageInput) (*ReverseImageOutput, error) {
	out := &ReverseImageOutput{}
	out.Body.Engines = reverseimage.Links(in.ImageURL)
	return out, nil
}
