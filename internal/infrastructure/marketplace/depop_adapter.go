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
	depopBaseURL   = "https://www.depop.com"
	depopLoginURL  = depopBaseURL + "/login/"
	depopCreateURL = depopBaseURL + "/products/create/"

	depopWaitTimeout  = 15 * time.Second
	depopSettle       = 2 * time.Second
	depopResultProbes = 10
)

// Depop's frontend tags everything with data-testid, which drifts less than
// class names but is still an external contract.
const (
	depopUsernameField = `input[name="username"]`
	depopPasswordField = `input[name="password"]`
	depopLoginSubmit   = `button[type="submit"]`
	depopLoginError    = `[data-testid="login__error"]`
	depopCaptchaFrame  = `iframe[src*="recaptcha"]`

	depopProfileMenu = `[data-testid="navigation__profile"]`
	depopLoginLink   = `a[href="/login/"]`

	depopImageInput       = `[data-testid="sellForm__photos"] input[type="file"]`
	depopDescriptionField = `[data-testid="sellForm__description"] textarea`
	depopCategoryDropdown = `[data-testid="sellForm__category"]`
	depopCategoryValue    = `[data-testid="sellForm__category"] [data-testid="selected"]`
	depopCategoryItem     = `[data-testid="sellForm__category"] li[title=%q]`
	depopConditionButton  = `[data-testid="sellForm__condition"]`
	depopConditionItem    = `[data-testid="sellForm__condition"] li[title=%q]`
	depopSizeDropdown     = `[data-testid="sellForm__size"]`
	depopSizeItem         = `[data-testid="sellForm__size"] li[title=%q]`
	depopBrandField       = `[data-testid="sellForm__brand"] input`
	depopPriceField       = `[data-testid="sellForm__price"] input`
	depopSubmitButton     = `[data-testid="sellForm__submit"]`
	depopFormError        = `[data-testid="sellForm__error"]`

	depopNotFound      = `[data-testid="notFound"]`
	depopDeleteButton  = `[data-testid="productActions__delete"]`
	depopDeleteConfirm = `[data-testid="deleteModal__confirm"]`
)

// depopConditions maps the neutral condition vocabulary onto Depop's labels
var depopConditions = map[listing.Condition]string{
	listing.ConditionNew:     "Brand new",
	listing.ConditionLikeNew: "Like new",
	listing.ConditionGood:    "Used - Good",
	listing.ConditionFair:    "Used - Fair",
	listing.ConditionPoor:    "Used - Fair",
}

// depopProductURL extracts the product slug from a post-submission URL like
// /products/sellername-vintage-denim-jacket/
var depopProductURL = regexp.MustCompile(`/products/([a-z0-9][a-z0-9-]*)/?$`)

// Ensure DepopAdapter implements platform.Adapter
var _ platform.Adapter = (*DepopAdapter)(nil)

// DepopAdapter drives depop.com through the browser page
type DepopAdapter struct {
	images      platform.ImageSource
	logger      *zap.Logger
	waitTimeout time.Duration
}

// NewDepopAdapter creates a Depop adapter fetching photos from images
func NewDepopAdapter(images platform.ImageSource, logger *zap.Logger) *DepopAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepopAdapter{
		images:      images,
		logger:      logger.Named("depop"),
		waitTimeout: depopWaitTimeout,
	}
}

// Code returns the platform this adapter serves
func (a *DepopAdapter) Code() platform.Code {
	return platform.CodeDepop
}

// Capabilities returns Depop's static constraints: 8 photos, fractional
// prices accepted.
func (a *DepopAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{MaxImages: 8, WholeUnitPrices: false}
}

// CheckLogin probes the home page for the authenticated state
func (a *DepopAdapter) CheckLogin(ctx context.Context, page platform.Page, sess *platform.Session) (bool, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return false, nil
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return false, fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, depopBaseURL); err != nil {
		return false, err
	}
	if err := page.Settle(ctx, depopSettle); err != nil {
		return false, err
	}

	loggedIn, err := page.Exists(ctx, depopProfileMenu)
	if err != nil {
		return false, err
	}
	loggedOut, err := page.Exists(ctx, depopLoginLink)
	if err != nil {
		return false, err
	}
	return loggedIn && !loggedOut, nil
}

// Login performs a credential login, capturing cookies plus the access token
// Depop's own frontend authenticates with
func (a *DepopAdapter) Login(ctx context.Context, page platform.Page, creds platform.Credentials) (*platform.Session, error) {
	if creds.IsZero() {
		return nil, platform.NewAuthenticationFailure("credentials are empty")
	}

	if err := page.Navigate(ctx, depopLoginURL); err != nil {
		return nil, err
	}
	if err := page.WaitForElement(ctx, depopUsernameField, a.waitTimeout); err != nil {
		return nil, err
	}
	if present, err := page.Exists(ctx, depopCaptchaFrame); err == nil && present {
		return nil, platform.NewVerificationRequired("the platform presented a captcha challenge")
	}

	if err := page.TypeText(ctx, depopUsernameField, creds.Username); err != nil {
		return nil, err
	}
	if err := page.Hesitate(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.TypeText(ctx, depopPasswordField, creds.Password); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, depopLoginSubmit); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, depopSettle); err != nil {
		return nil, err
	}

	authenticated := false
	for probe := 0; probe < depopResultProbes; probe++ {
		if present, err := page.Exists(ctx, depopCaptchaFrame); err == nil && present {
			return nil, platform.NewVerificationRequired("the platform presented a captcha challenge")
		}
		if present, err := page.Exists(ctx, depopLoginError); err == nil && present {
			msg, _ := page.Text(ctx, depopLoginError)
			if strings.TrimSpace(msg) == "" {
				msg = "the platform rejected the login"
			}
			return nil, platform.NewAuthenticationFailure(strings.TrimSpace(msg))
		}
		if present, err := page.Exists(ctx, depopProfileMenu); err == nil && present {
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
		Platform:        platform.CodeDepop,
		Cookies:         cookies,
		CreatedAt:       now,
		LastValidatedAt: now,
	}
	if c, ok := sess.Cookie("access_token"); ok {
		sess.BearerToken = c.Value
		if payload, err := sessions.DecodeCookiePayload(c.Value); err == nil {
			if sub, ok := payload["sub"].(string); ok {
				sess.PlatformUserID = sub
			}
		}
	}

	a.logger.Debug("login captured",
		zap.Int("cookies", len(sess.Cookies)),
		zap.Bool("bearer_token", sess.BearerToken != ""))
	return sess, nil
}

// CreateListing fills the sell form. Depop has no separate title field, so
// the title leads the description text.
func (a *DepopAdapter) CreateListing(ctx context.Context, page platform.Page, sess *platform.Session, item *listing.Normalized) (*platform.CreateResult, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return nil, platform.NewAuthenticationFailure("no session material for listing creation")
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return nil, fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, depopCreateURL); err != nil {
		return nil, err
	}
	if err := page.WaitForElement(ctx, depopImageInput, a.waitTimeout); err != nil {
		return nil, err
	}

	caps := a.Capabilities()
	uploaded, warnings, err := uploadImages(ctx, page, a.images, item, depopImageInput, caps.MaxImages)
	if err != nil {
		return nil, err
	}

	description := item.Title
	if item.Description != "" {
		description += "\n\n" + item.Description
	}
	if err := page.TypeText(ctx, depopDescriptionField, description); err != nil {
		return nil, err
	}

	segments := categoryPath(item, "depop.category")
	if len(segments) == 0 {
		warnings = append(warnings, "no category provided; the platform may reject the submission")
	} else if err := a.selectCategory(ctx, page, segments); err != nil {
		return nil, err
	}

	if label, ok := depopConditions[item.Condition]; ok {
		if err := a.pickOption(ctx, page, depopConditionButton, depopConditionItem, label); err != nil {
			return nil, err
		}
	}

	if item.Size != "" {
		if err := a.pickOption(ctx, page, depopSizeDropdown, depopSizeItem, item.Size); err != nil {
			a.logger.Debug("size selection skipped", zap.String("size", item.Size), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("size %q could not be selected", item.Size))
		}
	}
	if item.Brand != "" {
		if err := page.TypeText(ctx, depopBrandField, item.Brand); err != nil {
			a.logger.Debug("brand entry skipped", zap.String("brand", item.Brand), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("brand %q could not be entered", item.Brand))
		}
	}

	if err := page.SetValue(ctx, depopPriceField, PlatformPrice(item.Price, caps)); err != nil {
		return nil, err
	}

	if err := page.Hesitate(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, depopSubmitButton); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, depopSettle); err != nil {
		return nil, err
	}

	slug, productURL, err := a.awaitProductURL(ctx, page)
	if err != nil {
		return nil, err
	}

	return &platform.CreateResult{
		PlatformListingID: slug,
		PlatformURL:       productURL,
		ImagesUploaded:    uploaded,
		ImagesFailed:      min(len(item.Images), caps.MaxImages) - uploaded,
		Warnings:          warnings,
	}, nil
}

// DeleteListing removes a product through its page. Already-gone products
// are a success.
func (a *DepopAdapter) DeleteListing(ctx context.Context, page platform.Page, sess *platform.Session, platformListingID string) error {
	if sess == nil || !sess.HasAuthMaterial() {
		return platform.NewAuthenticationFailure("no session material for listing deletion")
	}
	if err := page.SetCookies(ctx, sess.Cookies); err != nil {
		return fmt.Errorf("failed to install session cookies: %w", err)
	}
	if err := page.Navigate(ctx, fmt.Sprintf("%s/products/%s/", depopBaseURL, platformListingID)); err != nil {
		return err
	}
	if err := page.Settle(ctx, depopSettle); err != nil {
		return err
	}

	if gone, err := page.Exists(ctx, depopNotFound); err == nil && gone {
		a.logger.Debug("product already gone", zap.String("platform_listing_id", platformListingID))
		return nil
	}

	if err := page.WaitForElement(ctx, depopDeleteButton, a.waitTimeout); err != nil {
		return err
	}
	if err := page.Click(ctx, depopDeleteButton); err != nil {
		return err
	}
	if err := page.WaitForElement(ctx, depopDeleteConfirm, a.waitTimeout); err != nil {
		return err
	}
	if err := page.Click(ctx, depopDeleteConfirm); err != nil {
		return err
	}
	return page.Settle(ctx, depopSettle)
}

// selectCategory mirrors the Poshmark walk: idempotent on an already-selected
// path, one click per segment otherwise
func (a *DepopAdapter) selectCategory(ctx context.Context, page platform.Page, segments []string) error {
	want := joinCategoryPath(segments)
	if current, err := page.Text(ctx, depopCategoryValue); err == nil &&
		strings.EqualFold(strings.TrimSpace(current), want) {
		return nil
	}

	if err := page.Click(ctx, depopCategoryDropdown); err != nil {
		return err
	}
	for _, segment := range segments {
		sel := fmt.Sprintf(depopCategoryItem, segment)
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

func (a *DepopAdapter) pickOption(ctx context.Context, page platform.Page, dropdown, itemPattern, label string) error {
	if err := page.Click(ctx, dropdown); err != nil {
		return err
	}
	sel := fmt.Sprintf(itemPattern, label)
	if err := page.WaitForElement(ctx, sel, a.waitTimeout); err != nil {
		return err
	}
	return page.Click(ctx, sel)
}

func (a *DepopAdapter) awaitProductURL(ctx context.Context, page platform.Page) (string, string, error) {
	for probe := 0; probe < depopResultProbes; probe++ {
		current, err := page.CurrentURL(ctx)
		if err != nil {
			return "", "", err
		}
		if !strings.HasSuffix(strings.TrimSuffix(current, "/"), "/products/create") {
			if m := depopProductURL.FindStringSubmatch(current); m != nil {
				return m[1], current, nil
			}
		}
		if present, err := page.Exists(ctx, depopFormError); err == nil && present {
			msg, _ := page.Text(ctx, depopFormError)
			if strings.TrimSpace(msg) == "" {
				msg = "the platform rejected the listing form"
			}
			return "", "", platform.NewValidationRejected("listing_form", strings.TrimSpace(msg))
		}
		if err := page.Settle(ctx, time.Second); err != nil {
			return "", "", err
		}
	}
	return "", "", platform.NewNetworkError("submission did not reach a product page", nil)
}
