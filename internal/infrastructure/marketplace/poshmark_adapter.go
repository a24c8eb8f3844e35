package marketplace

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/sessions"
)

const (
	poshmarkBaseURL  = "https://poshmark.com"
	poshmarkFeedURL  = poshmarkBaseURL + "/feed"
	poshmarkLoginURL = poshmarkBaseURL + "/login"
	poshmarkSellURL  = poshmarkBaseURL + "/create-listing"

	poshmarkWaitTimeout  = 15 * time.Second
	poshmarkLoginSettle  = 3 * time.Second
	poshmarkSubmitSettle = 2 * time.Second
	poshmarkResultProbes = 10
)

// Selectors tracking Poshmark's current markup. The site ships no automation
// contract; drift here surfaces as element_not_found and is an expected
// operating condition.
const (
	poshmarkUsernameField = `input[name="login_form[username_email]"]`
	poshmarkPasswordField = `input[name="login_form[password]"]`
	poshmarkLoginSubmit   = `form[data-et-name="login"] button[type="submit"]`
	poshmarkLoginError    = `.form__error-message`
	poshmarkCaptcha       = `#px-captcha`

	// poshmarkUserMenu is the positive logged-in signal, poshmarkLoginLink the
	// negative one. Both are checked: a missing login link alone is not proof
	// of an authenticated state.
	poshmarkUserMenu  = `[data-et-name="user_profile_menu"]`
	poshmarkLoginLink = `a[href="/login"]`

	poshmarkImageInput       = `input[data-et-name="listing_photo_input"][type="file"]`
	poshmarkTitleField       = `input[data-vv-name="title"]`
	poshmarkDescriptionField = `textarea[data-vv-name="description"]`
	poshmarkCategoryDropdown = `[data-et-name="listing_category"] .dropdown__selector`
	poshmarkCategoryValue    = `[data-et-name="listing_category"] .dropdown__selector--selected`
	poshmarkCategoryItem     = `[data-et-name="listing_category"] li[title=%q]`
	poshmarkSizeDropdown     = `[data-et-name="listing_size"] .dropdown__selector`
	poshmarkSizeItem         = `[data-et-name="listing_size"] li[title=%q]`
	poshmarkBrandField       = `input[data-vv-name="brand"]`
	poshmarkNWTToggle        = `[data-et-name="listing_nwt"] input[value="true"]`
	poshmarkPriceField       = `input[data-vv-name="listing_price"]`
	poshmarkSubmitButton     = `button[data-et-name="list_item"]`
	poshmarkFormError        = `.listing-editor__error-banner`

	poshmarkListingNotFound = `[data-et-name="listing_not_found"]`
	poshmarkDeleteButton    = `[data-et-name="delete_listing"]`
	poshmarkDeleteConfirm   = `.modal [data-et-name="delete_listing_confirm"]`
)

// poshmarkListingURL extracts the 24-hex listing id from a post-submission
// URL like /listing/Vintage-denim-jacket-5f3e9a2b1c8d4e0f12345678
var poshmarkListingURL = regexp.MustCompile(`/listing/(?:[^/]+-)?([0-9a-f]{24})/?$`)

// Ensure PoshmarkAdapter implements platform.Adapter
var _ platform.Adapter = (*PoshmarkAdapter)(nil)

// PoshmarkAdapter drives poshmark.com through the browser page. Poshmark has
// no usable seller API, so every operation is a form workflow.
type PoshmarkAdapter struct {
	images      platform.ImageSource
	logger      *zap.Logger
	waitTimeout time.Duration
}

// NewPoshmarkAdapter creates a Poshmark adapter fetching photos from images
func NewPoshmarkAdapter(images platform.ImageSource, logger *zap.Logger) *PoshmarkAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoshmarkAdapter{
		images:      images,
		logger:      logger.Named("poshmark"),
		waitTimeout: poshmarkWaitTimeout,
	}
}

// Code returns the platform this adapter serves
func (a *PoshmarkAdapter) Code() platform.Code {
	return platform.CodePoshmark
}

// Capabilities returns Poshmark's static constraints: 16 photos per listing,
// whole-dollar prices only.
func (a *PoshmarkAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{MaxImages: 16, WholeUnitPrices: true}
}

// CheckLogin probes the feed page for the authenticated state
func (a *PoshmarkAdapter) CheckLogin(ctx context.Context, page platform.Page, sess *platform.Session) (bool, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return false, nil
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return false, fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, poshmarkFeedURL); err != nil {
		return false, err
	}
	if err := page.Settle(ctx, poshmarkLoginSettle); err != nil {
		return false, err
	}

	loggedIn, err := page.Exists(ctx, poshmarkUserMenu)
	if err != nil {
		return false, err
	}
	loggedOut, err := page.Exists(ctx, poshmarkLoginLink)
	if err != nil {
		return false, err
	}
	return loggedIn && !loggedOut, nil
}

// Login performs a credential login and captures the resulting cookie jar
func (a *PoshmarkAdapter) Login(ctx context.Context, page platform.Page, creds platform.Credentials) (*platform.Session, error) {
	if creds.IsZero() {
		return nil, platform.NewAuthenticationFailure("credentials are empty")
	}

	if err := page.Navigate(ctx, poshmarkLoginURL); err != nil {
		return nil, err
	}
	if err := page.WaitForElement(ctx, poshmarkUsernameField, a.waitTimeout); err != nil {
		return nil, err
	}
	if err := a.failOnCaptcha(ctx, page); err != nil {
		return nil, err
	}

	if err := page.TypeText(ctx, poshmarkUsernameField, creds.Username); err != nil {
		return nil, err
	}
	if err := page.Hesitate(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.TypeText(ctx, poshmarkPasswordField, creds.Password); err != nil {
		return nil, err
	}
	if err := page.Hesitate(ctx, 200*time.Millisecond, 700*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, poshmarkLoginSubmit); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, poshmarkLoginSettle); err != nil {
		return nil, err
	}

	// The form either lands on the feed, re-renders with an error, or
	// escalates to a challenge. Probe for all three until one shows up.
	authenticated := false
	for probe := 0; probe < poshmarkResultProbes; probe++ {
		if err := a.failOnCaptcha(ctx, page); err != nil {
			return nil, err
		}
		if present, err := page.Exists(ctx, poshmarkLoginError); err == nil && present {
			msg, _ := page.Text(ctx, poshmarkLoginError)
			if strings.TrimSpace(msg) == "" {
				msg = "the platform rejected the login"
			}
			return nil, platform.NewAuthenticationFailure(strings.TrimSpace(msg))
		}
		if present, err := page.Exists(ctx, poshmarkUserMenu); err == nil && present {
			authenticated = true
			break
		}
		if err := page.Settle(ctx, time.Second); err != nil {
			return nil, err
		}
	}
	if !authenticated {
		return nil, platform.NewAuthenticationFailure("login did not reach an authenticated state")
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture session cookies: %w", err)
	}

	now := time.Now()
	sess := &platform.Session{
		Platform:        platform.CodePoshmark,
		Cookies:         cookies,
		CreatedAt:       now,
		LastValidatedAt: now,
	}

	// Poshmark's "ui" cookie wraps a JSON blob that includes the account id.
	// Best effort only; the payload schema is undocumented.
	if c, ok := sess.Cookie("ui"); ok {
		if payload, err := sessions.DecodeCookiePayload(c.Value); err == nil {
			if uid, ok := payload["uid"].(string); ok {
				sess.PlatformUserID = uid
			}
		}
	}

	a.logger.Debug("login captured",
		zap.Int("cookies", len(sess.Cookies)),
		zap.Bool("platform_user_id", sess.PlatformUserID != ""))
	return sess, nil
}

// CreateListing walks the create-listing form: photos, title, description,
// category, size, brand, price, submit, then reads the listing id out of the
// post-submission URL.
func (a *PoshmarkAdapter) CreateListing(ctx context.Context, page platform.Page, sess *platform.Session, item *listing.Normalized) (*platform.CreateResult, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return nil, platform.NewAuthenticationFailure("no session material for listing creation")
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return nil, fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, poshmarkSellURL); err != nil {
		return nil, err
	}
	if err := page.WaitForElement(ctx, poshmarkImageInput, a.waitTimeout); err != nil {
		return nil, err
	}
	if err := a.failOnCaptcha(ctx, page); err != nil {
		return nil, err
	}

	caps := a.Capabilities()
	uploaded, warnings, err := uploadImages(ctx, page, a.images, item, poshmarkImageInput, caps.MaxImages)
	if err != nil {
		return nil, err
	}

	if err := page.Hesitate(ctx, 400*time.Millisecond, 1200*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.TypeText(ctx, poshmarkTitleField, item.Title); err != nil {
		return nil, err
	}
	if item.Description != "" {
		if err := page.TypeText(ctx, poshmarkDescriptionField, item.Description); err != nil {
			return nil, err
		}
	}

	// Category before size: the size options Poshmark offers depend on the
	// selected category.
	segments := categoryPath(item, "poshmark.category")
	if len(segments) == 0 {
		warnings = append(warnings, "no category provided; the platform may reject the submission")
	} else if err := a.selectCategory(ctx, page, segments); err != nil {
		return nil, err
	}

	if item.Size != "" {
		if err := a.selectSize(ctx, page, item.Size); err != nil {
			a.logger.Debug("size selection skipped", zap.String("size", item.Size), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("size %q could not be selected", item.Size))
		}
	}
	if item.Brand != "" {
		if err := page.TypeText(ctx, poshmarkBrandField, item.Brand); err != nil {
			a.logger.Debug("brand entry skipped", zap.String("brand", item.Brand), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("brand %q could not be entered", item.Brand))
		}
	}
	if item.Condition == listing.ConditionNew {
		if err := page.Click(ctx, poshmarkNWTToggle); err != nil {
			a.logger.Debug("NWT toggle skipped", zap.Error(err))
			warnings = append(warnings, "new-with-tags flag could not be set")
		}
	}

	if err := page.SetValue(ctx, poshmarkPriceField, PlatformPrice(item.Price, caps)); err != nil {
		return nil, err
	}

	if err := page.Hesitate(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, poshmarkSubmitButton); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, poshmarkSubmitSettle); err != nil {
		return nil, err
	}

	listingID, listingURL, err := a.awaitListingURL(ctx, page)
	if err != nil {
		return nil, err
	}

	return &platform.CreateResult{
		PlatformListingID: listingID,
		PlatformURL:       listingURL,
		ImagesUploaded:    uploaded,
		ImagesFailed:      min(len(item.Images), caps.MaxImages) - uploaded,
		Warnings:          warnings,
	}, nil
}

// DeleteListing removes a listing through its edit page. A listing the
// platform no longer has is a success.
func (a *PoshmarkAdapter) DeleteListing(ctx context.Context, page platform.Page, sess *platform.Session, platformListingID string) error {
	if sess == nil || !sess.HasAuthMaterial() {
		return platform.NewAuthenticationFailure("no session material for listing deletion")
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, fmt.Sprintf("%s/edit-listing/%s", poshmarkBaseURL, platformListingID)); err != nil {
		return err
	}
	if err := page.Settle(ctx, poshmarkSubmitSettle); err != nil {
		return err
	}

	if gone, err := page.Exists(ctx, poshmarkListingNotFound); err == nil && gone {
		a.logger.Debug("listing already gone", zap.String("platform_listing_id", platformListingID))
		return nil
	}

	if err := page.WaitForElement(ctx, poshmarkDeleteButton, a.waitTimeout); err != nil {
		return err
	}
	if err := page.Click(ctx, poshmarkDeleteButton); err != nil {
		return err
	}
	if err := page.WaitForElement(ctx, poshmarkDeleteConfirm, a.waitTimeout); err != nil {
		return err
	}
	if err := page.Click(ctx, poshmarkDeleteConfirm); err != nil {
		return err
	}
	return page.Settle(ctx, poshmarkSubmitSettle)
}

// selectCategory walks the category dropdown one segment at a time.
// Selection is idempotent: when the form already shows the requested path no
// clicks are dispatched, so re-running the step cannot double-navigate the
// dropdown.
func (a *PoshmarkAdapter) selectCategory(ctx context.Context, page platform.Page, segments []string) error {
	want := joinCategoryPath(segments)
	if current, err := page.Text(ctx, poshmarkCategoryValue); err == nil &&
		strings.EqualFold(strings.TrimSpace(current), want) {
		return nil
	}

	if err := page.Click(ctx, poshmarkCategoryDropdown); err != nil {
		return err
	}
	for _, segment := range segments {
		sel := fmt.Sprintf(poshmarkCategoryItem, segment)
		if err := page.WaitForElement(ctx, sel, a.waitTimeout); err != nil {
			return err
		}
		if err := page.Click(ctx, sel); err != nil {
			return err
		}
		if err := page.Hesitate(ctx, 200*time.Millisecond, 600*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func (a *PoshmarkAdapter) selectSize(ctx context.Context, page platform.Page, size string) error {
	if err := page.Click(ctx, poshmarkSizeDropdown); err != nil {
		return err
	}
	sel := fmt.Sprintf(poshmarkSizeItem, size)
	if err := page.WaitForElement(ctx, sel, a.waitTimeout); err != nil {
		return err
	}
	return page.Click(ctx, sel)
}

// awaitListingURL polls the page for the post-submission listing URL,
// surfacing a form validation banner as validation_rejected along the way
func (a *PoshmarkAdapter) awaitListingURL(ctx context.Context, page platform.Page) (string, string, error) {
	for probe := 0; probe < poshmarkResultProbes; probe++ {
		current, err := page.CurrentURL(ctx)
		if err != nil {
			return "", "", err
		}
		if m := poshmarkListingURL.FindStringSubmatch(current); m != nil {
			return m[1], current, nil
		}
		if present, err := page.Exists(ctx, poshmarkFormError); err == nil && present {
			msg, _ := page.Text(ctx, poshmarkFormError)
			if strings.TrimSpace(msg) == "" {
				msg = "the platform rejected the listing form"
			}
			return "", "", platform.NewValidationRejected("listing_form", strings.TrimSpace(msg))
		}
		if err := page.Settle(ctx, time.Second); err != nil {
			return "", "", err
		}
	}
	return "", "", platform.NewNetworkError("submission did not reach a listing page", nil)
}

func (a *PoshmarkAdapter) failOnCaptcha(ctx context.Context, page platform.Page) error {
	present, err := page.Exists(ctx, poshmarkCaptcha)
	if err != nil {
		return err
	}
	if present {
		return platform.NewVerificationRequired("the platform presented a captcha challenge")
	}
	return nil
}
