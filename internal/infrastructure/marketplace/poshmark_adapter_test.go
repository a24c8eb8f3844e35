package marketplace

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

// fakeImages serves scripted bytes for listing photos. Fetches fail for
// filenames primed in failFetch.
type fakeImages struct {
	failFetch map[string]error
}

func newFakeImages() *fakeImages {
	return &fakeImages{failFetch: map[string]error{}}
}

func (f *fakeImages) Fetch(ctx context.Context, ref listing.ImageRef) (*platform.Image, error) {
	name := ref.Filename
	if err := f.failFetch[name]; err != nil {
		return nil, err
	}
	return &platform.Image{
		Data:        []byte{0xFF, 0xD8, 0xFF, 0xE0},
		Filename:    name,
		ContentType: "image/jpeg",
	}, nil
}

func testItem(imageCount int) *listing.Normalized {
	item := &listing.Normalized{
		Title:        "Vintage denim jacket",
		Description:  "Lightly distressed, 90s wash.",
		Price:        decimal.RequireFromString("24.50"),
		Quantity:     1,
		Condition:    listing.ConditionGood,
		Brand:        "Levi's",
		Size:         "M",
		CategoryPath: []string{"Women", "Jackets & Coats"},
	}
	for i := 0; i < imageCount; i++ {
		item.Images = append(item.Images, listing.ImageRef{
			URL:      fmt.Sprintf("https://cdn.example.com/photo-%d.jpg", i+1),
			Filename: fmt.Sprintf("photo-%d.jpg", i+1),
		})
	}
	return item
}

func testSession(code platform.Code) *platform.Session {
	return &platform.Session{
		UserID:   uuid.New(),
		Platform: code,
		Cookies: []platform.Cookie{
			{Name: "_web_session", Value: "opaque", Domain: ".poshmark.com"},
		},
	}
}

func TestPoshmarkAdapter_CheckLogin(t *testing.T) {
	tests := []struct {
		name     string
		userMenu bool
		loginLnk bool
		want     bool
	}{
		{name: "profile menu without login link means logged in", userMenu: true, loginLnk: false, want: true},
		{name: "login link defeats a stray profile menu", userMenu: true, loginLnk: true, want: false},
		{name: "neither signal means logged out", userMenu: false, loginLnk: false, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewPoshmarkAdapter(newFakeImages(), nil)
			page := newFakePage()
			page.existing[poshmarkUserMenu] = tt.userMenu
			page.existing[poshmarkLoginLink] = tt.loginLnk

			ok, err := adapter.CheckLogin(context.Background(), page, testSession(platform.CodePoshmark))

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, page.navigations, poshmarkFeedURL)
		})
	}

	t.Run("session without auth material is logged out without a page load", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()

		ok, err := adapter.CheckLogin(context.Background(), page, &platform.Session{Platform: platform.CodePoshmark})

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, page.navigations)
	})
}

func TestPoshmarkAdapter_Login(t *testing.T) {
	t.Run("successful login captures cookies and the account id", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.existing[poshmarkUserMenu] = true
		page.cookies = []platform.Cookie{
			{Name: "_web_session", Value: "opaque", Domain: ".poshmark.com"},
			{Name: "ui", Value: base64.StdEncoding.EncodeToString([]byte(`{"uid":"5f3e9a2b1c8d4e0f12345678"}`)), Domain: ".poshmark.com"},
		}

		sess, err := adapter.Login(context.Background(), page, platform.Credentials{Username: "seller@example.com", Password: "hunter2"})

		require.NoError(t, err)
		assert.Equal(t, platform.CodePoshmark, sess.Platform)
		assert.Len(t, sess.Cookies, 2)
		assert.Equal(t, "5f3e9a2b1c8d4e0f12345678", sess.PlatformUserID)
		assert.False(t, sess.CreatedAt.IsZero())
		assert.Equal(t, "seller@example.com", page.typed[poshmarkUsernameField])
	})

	t.Run("empty credentials never touch the page", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()

		_, err := adapter.Login(context.Background(), page, platform.Credentials{})

		assert.Equal(t, platform.FailureAuthentication, platform.KindOf(err))
		assert.Empty(t, page.navigations)
	})

	t.Run("captcha wall surfaces as verification required", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.existing[poshmarkCaptcha] = true

		_, err := adapter.Login(context.Background(), page, platform.Credentials{Username: "u", Password: "p"})

		assert.Equal(t, platform.FailureVerification, platform.KindOf(err))
	})

	t.Run("form error banner carries the rejection message", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.existing[poshmarkLoginError] = true
		page.texts[poshmarkLoginError] = "Invalid username or password"

		_, err := adapter.Login(context.Background(), page, platform.Credentials{Username: "u", Password: "p"})

		require.Error(t, err)
		assert.Equal(t, platform.FailureAuthentication, platform.KindOf(err))
		assert.Contains(t, err.Error(), "Invalid username or password")
	})

	t.Run("login that never settles into an authenticated state fails", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()

		_, err := adapter.Login(context.Background(), page, platform.Credentials{Username: "u", Password: "p"})

		assert.Equal(t, platform.FailureAuthentication, platform.KindOf(err))
	})
}

func TestPoshmarkAdapter_CreateListing(t *testing.T) {
	listingURL := "https://poshmark.com/listing/Vintage-denim-jacket-5f3e9a2b1c8d4e0f12345678"

	t.Run("fills the form and reads the listing id from the final URL", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.urlOnClick[poshmarkSubmitButton] = listingURL
		item := testItem(2)

		result, err := adapter.CreateListing(context.Background(), page, testSession(platform.CodePoshmark), item)

		require.NoError(t, err)
		assert.Equal(t, "5f3e9a2b1c8d4e0f12345678", result.PlatformListingID)
		assert.Equal(t, listingURL, result.PlatformURL)
		assert.Equal(t, 2, result.ImagesUploaded)
		assert.Zero(t, result.ImagesFailed)
		assert.Empty(t, result.Warnings)

		assert.Equal(t, item.Title, page.typed[poshmarkTitleField])
		assert.Equal(t, item.Description, page.typed[poshmarkDescriptionField])
		assert.Equal(t, item.Brand, page.typed[poshmarkBrandField])
		// 24.50 rounds up to a whole-dollar price
		assert.Equal(t, "25", page.values[poshmarkPriceField])
		assert.Len(t, page.uploads, 2)
		assert.Equal(t, 1, page.clickCount(poshmarkCategoryDropdown))
		assert.Equal(t, 1, page.clickCount(fmt.Sprintf(poshmarkCategoryItem, "Women")))
		assert.Equal(t, 1, page.clickCount(fmt.Sprintf(poshmarkCategoryItem, "Jackets & Coats")))
	})

	t.Run("caps uploads at the platform image limit", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.urlOnClick[poshmarkSubmitButton] = listingURL

		result, err := adapter.CreateListing(context.Background(), page, testSession(platform.CodePoshmark), testItem(20))

		require.NoError(t, err)
		assert.Equal(t, 16, result.ImagesUploaded)
		assert.Zero(t, result.ImagesFailed)
		assert.Len(t, page.uploads, 16)
	})

	t.Run("failed uploads become warnings and the listing still publishes", func(t *testing.T) {
		images := newFakeImages()
		images.failFetch["photo-1.jpg"] = errors.New("object missing")
		adapter := NewPoshmarkAdapter(images, nil)
		page := newFakePage()
		page.fail("upload", "photo-2.jpg", errors.New("injection lost"))
		page.urlOnClick[poshmarkSubmitButton] = listingURL

		result, err := adapter.CreateListing(context.Background(), page, testSession(platform.CodePoshmark), testItem(3))

		require.NoError(t, err)
		assert.Equal(t, 1, result.ImagesUploaded)
		assert.Equal(t, 2, result.ImagesFailed)
		assert.Len(t, result.Warnings, 2)
	})

	t.Run("zero uploaded images aborts with an upload failure", func(t *testing.T) {
		images := newFakeImages()
		images.failFetch["photo-1.jpg"] = errors.New("object missing")
		images.failFetch["photo-2.jpg"] = errors.New("object missing")
		adapter := NewPoshmarkAdapter(images, nil)
		page := newFakePage()

		_, err := adapter.CreateListing(context.Background(), page, testSession(platform.CodePoshmark), testItem(2))

		assert.Equal(t, platform.FailureUpload, platform.KindOf(err))
		// Nothing was typed into the form after the upload step failed
		assert.Empty(t, page.typed)
	})

	t.Run("validation banner after submit surfaces as validation rejected", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.existing[poshmarkFormError] = true
		page.texts[poshmarkFormError] = "Price must be at least $3"

		_, err := adapter.CreateListing(context.Background(), page, testSession(platform.CodePoshmark), testItem(1))

		require.Error(t, err)
		assert.Equal(t, platform.FailureValidation, platform.KindOf(err))
		f, ok := platform.AsFailure(err)
		require.True(t, ok)
		assert.Equal(t, "listing_form", f.Subject)
		assert.Contains(t, f.Message, "Price must be at least $3")
	})

	t.Run("missing session material is an authentication failure", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)

		_, err := adapter.CreateListing(context.Background(), newFakePage(), &platform.Session{}, testItem(1))

		assert.Equal(t, platform.FailureAuthentication, platform.KindOf(err))
	})
}

func TestPoshmarkAdapter_SelectCategory(t *testing.T) {
	t.Run("an already-selected path dispatches no clicks", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		segments := []string{"Women", "Jackets & Coats"}

		require.NoError(t, adapter.selectCategory(context.Background(), page, segments))
		firstPass := len(page.clicks)
		assert.Equal(t, 3, firstPass)

		// The form now displays the chosen path; a second pass must not
		// navigate the dropdown again.
		page.texts[poshmarkCategoryValue] = "Women > Jackets & Coats"
		require.NoError(t, adapter.selectCategory(context.Background(), page, segments))
		assert.Equal(t, firstPass, len(page.clicks))
	})

	t.Run("display comparison ignores case and surrounding space", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.texts[poshmarkCategoryValue] = "  women > jackets & coats "

		require.NoError(t, adapter.selectCategory(context.Background(), page, []string{"Women", "Jackets & Coats"}))
		assert.Empty(t, page.clicks)
	})
}

func TestPoshmarkAdapter_DeleteListing(t *testing.T) {
	t.Run("walks the delete confirmation flow", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()

		err := adapter.DeleteListing(context.Background(), page, testSession(platform.CodePoshmark), "5f3e9a2b1c8d4e0f12345678")

		require.NoError(t, err)
		assert.Equal(t, 1, page.clickCount(poshmarkDeleteButton))
		assert.Equal(t, 1, page.clickCount(poshmarkDeleteConfirm))
	})

	t.Run("a listing the platform no longer has counts as deleted", func(t *testing.T) {
		adapter := NewPoshmarkAdapter(newFakeImages(), nil)
		page := newFakePage()
		page.existing[poshmarkListingNotFound] = true

		err := adapter.DeleteListing(context.Background(), page, testSession(platform.CodePoshmark), "5f3e9a2b1c8d4e0f12345678")

		require.NoError(t, err)
		assert.Empty(t, page.clicks)
	})
}
