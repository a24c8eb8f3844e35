// Package storage fetches listing images for upload injection.
package storage

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// Ensure StubImageSource implements platform.ImageSource
var _ platform.ImageSource = (*StubImageSource)(nil)

// a 1x1 transparent PNG, enough to drive upload flows in development
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// StubImageSource is a placeholder implementation of platform.ImageSource.
// It serves canned bytes without touching any storage backend.
// Use this for development until a real backend (S3, RustFS, etc.) is configured.
type StubImageSource struct {
	// Images maps a reference's storage key or URL to the bytes served
	// for it. References with no entry get a placeholder PNG.
	Images map[string][]byte
}

// NewStubImageSource creates a new StubImageSource
func NewStubImageSource() *StubImageSource {
	return &StubImageSource{Images: make(map[string][]byte)}
}

// Fetch serves the registered bytes for the reference, or a placeholder
func (s *StubImageSource) Fetch(ctx context.Context, ref listing.ImageRef) (*platform.Image, error) {
	if ref.IsZero() {
		return nil, errors.New("image reference is empty")
	}

	key := ref.Key
	if key == "" {
		key = ref.URL
	}

	data := placeholderPNG
	contentType := "image/png"
	if registered, ok := s.Images[key]; ok {
		data = registered
		contentType = ref.ContentType
	}

	return buildImage(ref, data, contentType), nil
}
