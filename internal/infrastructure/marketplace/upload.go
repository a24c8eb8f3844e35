package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// uploadImages fetches up to max listing photos and injects them into the
// page's file input, first image first so the platform treats it as the
// cover. Individual failures do not abort the upload step; each one is
// recorded as a warning and the step moves on. Only a complete shortfall,
// zero images uploaded, is an error.
func uploadImages(
	ctx context.Context,
	page platform.Page,
	images platform.ImageSource,
	item *listing.Normalized,
	selector string,
	max int,
) (uploaded int, warnings []string, err error) {
	refs := item.Images
	if len(refs) > max {
		refs = refs[:max]
	}

	for i, ref := range refs {
		img, err := images.Fetch(ctx, ref)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("image %d: fetch failed: %v", i+1, err))
			continue
		}

		if err := page.UploadFile(ctx, selector, img.Filename, img.ContentType, img.Data); err != nil {
			warnings = append(warnings, fmt.Sprintf("image %d (%s): upload failed: %v", i+1, img.Filename, err))
			continue
		}
		uploaded++

		// Platforms debounce their upload handlers; pushing files back to
		// back gets uploads silently dropped.
		if err := page.Hesitate(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
			return uploaded, warnings, err
		}
	}

	if uploaded == 0 {
		return 0, warnings, platform.NewUploadFailure("no images could be uploaded", nil)
	}
	return uploaded, warnings, nil
}
