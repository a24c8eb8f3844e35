package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
)

const (
	mercariLoginPath   = "/login/"
	mercariProfilePath = "/v1/user/profile"
	mercariPhotosPath  = "/v1/photos"
	mercariItemsPath   = "/v1/items"

	// mercariMaxResponseSize limits API response bodies to 10MB
	mercariMaxResponseSize = 10 * 1024 * 1024

	mercariWaitTimeout = 15 * time.Second
	mercariLoginSettle = 3 * time.Second
	mercariLoginProbes = 10
)

// Selectors for the browser login flow, the only part of Mercari this
// adapter drives through a page. Drift here surfaces as element_not_found
// and is an expected operating condition.
const (
	mercariEmailField    = `input[name="email"]`
	mercariPasswordField = `input[name="password"]`
	mercariLoginSubmit   = `button[type="submit"]`
	mercariLoginError    = `[data-testid="LoginError"]`
	mercariCaptchaFrame  = `iframe[src*="recaptcha"]`
	mercariUserMenu      = `[data-testid="AccountMenu"]`
)

// mercariConditionIDs maps the neutral condition vocabulary onto Mercari's
// numeric condition ids
var mercariConditionIDs = map[listing.Condition]int{
	listing.ConditionNew:     1,
	listing.ConditionLikeNew: 2,
	listing.ConditionGood:    3,
	listing.ConditionFair:    4,
	listing.ConditionPoor:    5,
}

var _ platform.Adapter = (*MercariAdapter)(nil)

// MercariAdapter publishes listings through Mercari's internal JSON API,
// authenticated with tokens harvested from a browser login. Creation and
// deletion never touch a page; only Login drives one.
type MercariAdapter struct {
	config      *MercariConfig
	httpClient  *http.Client
	images      platform.ImageSource
	logger      *zap.Logger
	waitTimeout time.Duration
}

// NewMercariAdapter creates a Mercari adapter
func NewMercariAdapter(config *MercariConfig, images platform.ImageSource, logger *zap.Logger) (*MercariAdapter, error) {
	if config == nil {
		config = NewMercariConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MercariAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		images:      images,
		logger:      logger.Named("mercari"),
		waitTimeout: mercariWaitTimeout,
	}, nil
}

// Code identifies the platform this adapter serves
func (a *MercariAdapter) Code() platform.Code {
	return platform.CodeMercari
}

// Capabilities reports Mercari's listing constraints
func (a *MercariAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{
		MaxImages:       12,
		WholeUnitPrices: true,
	}
}

// CheckLogin probes the profile endpoint with the stored session. A clean
// 401 or 403 means the session is dead, not that the probe failed.
func (a *MercariAdapter) CheckLogin(ctx context.Context, page platform.Page, sess *platform.Session) (bool, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return false, nil
	}
	body, status, err := a.doRequest(ctx, sess, http.MethodGet, mercariProfilePath, nil, "")
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		var resp MercariProfileResponse
		if jsonErr := json.Unmarshal(body, &resp); jsonErr == nil && resp.Data != nil && sess.PlatformUserID == "" {
			sess.PlatformUserID = resp.Data.ID
		}
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, nil
	default:
		return false, platform.NewNetworkError(fmt.Sprintf("profile endpoint returned status %d", status), nil)
	}
}

// Login signs in through the web frontend and harvests the bearer token the
// frontend stores for its own API calls.
func (a *MercariAdapter) Login(ctx context.Context, page platform.Page, creds platform.Credentials) (*platform.Session, error) {
	if creds.IsZero() {
		return nil, platform.NewAuthenticationFailure("credentials are empty")
	}
	if err := page.Navigate(ctx, a.config.WebBaseURL+mercariLoginPath); err != nil {
		return nil, err
	}
	if err := page.WaitForElement(ctx, mercariEmailField, a.waitTimeout); err != nil {
		return nil, err
	}
	if err := a.failOnCaptcha(ctx, page); err != nil {
		return nil, err
	}

	if err := page.TypeText(ctx, mercariEmailField, creds.Username); err != nil {
		return nil, err
	}
	if err := page.Hesitate(ctx, 200*time.Millisecond, 600*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.TypeText(ctx, mercariPasswordField, creds.Password); err != nil {
		return nil, err
	}
	if err := page.Hesitate(ctx, 200*time.Millisecond, 600*time.Millisecond); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, mercariLoginSubmit); err != nil {
		return nil, err
	}
	if err := page.Settle(ctx, mercariLoginSettle); err != nil {
		return nil, err
	}

	authenticated := false
	for i := 0; i < mercariLoginProbes; i++ {
		if err := a.failOnCaptcha(ctx, page); err != nil {
			return nil, err
		}
		if hasError, _ := page.Exists(ctx, mercariLoginError); hasError {
			msg, _ := page.Text(ctx, mercariLoginError)
			if msg == "" {
				msg = "the platform rejected the login"
			}
			return nil, platform.NewAuthenticationFailure(msg)
		}
		if loggedIn, _ := page.Exists(ctx, mercariUserMenu); loggedIn {
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
		Platform:        platform.CodeMercari,
		Cookies:         cookies,
		CreatedAt:       now,
		LastValidatedAt: now,
	}

	// The frontend keeps its API token in local storage; fall back to the
	// cookie of the same name when the key moves.
	var token string
	if err := page.Eval(ctx, `window.localStorage.getItem("accessToken") || ""`, &token); err != nil {
		a.logger.Debug("access token harvest failed", zap.Error(err))
	}
	if token == "" {
		if c, ok := sess.Cookie("accessToken"); ok {
			token = c.Value
		}
	}
	sess.BearerToken = token
	if c, ok := sess.Cookie("_csrf"); ok {
		sess.CSRFToken = c.Value
	}

	// Best effort only; a profile that will not load does not undo a login
	// the page itself confirmed.
	if body, status, probeErr := a.doRequest(ctx, sess, http.MethodGet, mercariProfilePath, nil, ""); probeErr == nil && status == http.StatusOK {
		var resp MercariProfileResponse
		if json.Unmarshal(body, &resp) == nil && resp.Data != nil {
			sess.PlatformUserID = resp.Data.ID
		}
	}

	a.logger.Debug("login captured session",
		zap.Int("cookies", len(sess.Cookies)),
		zap.Bool("bearer_token", sess.BearerToken != ""),
		zap.Bool("platform_user_id", sess.PlatformUserID != ""))
	return sess, nil
}

// CreateListing uploads photos one by one and then submits the item payload
func (a *MercariAdapter) CreateListing(ctx context.Context, page platform.Page, sess *platform.Session, item *listing.Normalized) (*platform.CreateResult, error) {
	if sess == nil || !sess.HasAuthMaterial() {
		return nil, platform.NewAuthenticationFailure("no session material for listing creation")
	}

	photoIDs, warnings, err := a.uploadPhotos(ctx, sess, item)
	if err != nil {
		return nil, err
	}

	payload := mercariCreateItemRequest{
		Name:        item.Title,
		Description: item.Description,
		Price:       item.Price.Ceil().IntPart(),
		ConditionID: mercariConditionIDs[item.Condition],
		Brand:       item.Brand,
		Size:        item.Size,
		Color:       item.Color,
		PhotoIDs:    photoIDs,
		Tags:        item.Tags,
	}
	if id, ok := item.Override("mercari.category_id"); ok && id != "" {
		payload.CategoryID = id
	} else {
		warnings = append(warnings, "no category id provided; the platform may reject the submission")
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item payload: %w", err)
	}
	body, status, err := a.doRequest(ctx, sess, http.MethodPost, mercariItemsPath, bytes.NewReader(reqBody), "application/json")
	if err != nil {
		return nil, err
	}
	if err := a.classifyItemStatus(status, body); err != nil {
		return nil, err
	}

	var resp MercariItemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewNetworkError("item response could not be parsed", err)
	}
	if !resp.IsSuccess() {
		return nil, platform.NewValidationRejected(resp.Error.Field, resp.Error.Message)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, platform.NewNetworkError("item response carried no id", nil)
	}

	a.logger.Info("listing created",
		zap.String("platform_listing_id", resp.Data.ID),
		zap.Int("images_uploaded", len(photoIDs)))
	return &platform.CreateResult{
		PlatformListingID: resp.Data.ID,
		PlatformURL:       fmt.Sprintf("%s/us/item/%s/", a.config.WebBaseURL, resp.Data.ID),
		ImagesUploaded:    len(photoIDs),
		ImagesFailed:      min(len(item.Images), a.Capabilities().MaxImages) - len(photoIDs),
		Warnings:          warnings,
	}, nil
}

// DeleteListing removes a listing. A listing that is already gone counts as
// deleted.
func (a *MercariAdapter) DeleteListing(ctx context.Context, page platform.Page, sess *platform.Session, platformListingID string) error {
	if sess == nil || !sess.HasAuthMaterial() {
		return platform.NewAuthenticationFailure("no session material for listing deletion")
	}
	body, status, err := a.doRequest(ctx, sess, http.MethodDelete, mercariItemsPath+"/"+platformListingID, nil, "")
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		a.logger.Debug("listing already gone", zap.String("platform_listing_id", platformListingID))
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return platform.NewAuthenticationFailure("the platform rejected the session")
	case status >= 500 || status == http.StatusTooManyRequests:
		return platform.NewNetworkError(fmt.Sprintf("item deletion returned status %d", status), nil)
	case status != http.StatusOK && status != http.StatusNoContent:
		return platform.NewNetworkError(fmt.Sprintf("item deletion returned status %d", status), nil)
	}
	if len(body) == 0 {
		return nil
	}
	var resp MercariResponse
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
		return nil
	}
	if !resp.IsSuccess() && resp.Error.Code != "item_not_found" {
		return platform.NewNetworkError(fmt.Sprintf("item deletion rejected: %s", resp.Error.Message), nil)
	}
	return nil
}

// uploadPhotos pushes up to MaxImages photos and returns the server-assigned
// ids. Individual failures become warnings; a dead session aborts the whole
// batch because every remaining upload would fail the same way.
func (a *MercariAdapter) uploadPhotos(ctx context.Context, sess *platform.Session, item *listing.Normalized) ([]string, []string, error) {
	refs := item.Images
	if maxImages := a.Capabilities().MaxImages; len(refs) > maxImages {
		refs = refs[:maxImages]
	}

	var photoIDs []string
	var warnings []string
	for i, ref := range refs {
		img, err := a.images.Fetch(ctx, ref)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("image %d: fetch failed: %v", i+1, err))
			a.logger.Warn("image fetch failed", zap.Int("index", i+1), zap.Error(err))
			continue
		}
		photoID, err := a.uploadPhoto(ctx, sess, img)
		if err != nil {
			if kind := platform.KindOf(err); kind == platform.FailureAuthentication || kind == platform.FailureVerification {
				return nil, warnings, err
			}
			warnings = append(warnings, fmt.Sprintf("image %d (%s): upload failed: %v", i+1, img.Filename, err))
			a.logger.Warn("image upload failed", zap.Int("index", i+1), zap.String("filename", img.Filename), zap.Error(err))
			continue
		}
		photoIDs = append(photoIDs, photoID)
	}
	if len(photoIDs) == 0 {
		return nil, warnings, platform.NewUploadFailure("no images could be uploaded", nil)
	}
	return photoIDs, warnings, nil
}

func (a *MercariAdapter) uploadPhoto(ctx context.Context, sess *platform.Session, img *platform.Image) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("photo", img.Filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	body, status, err := a.doRequest(ctx, sess, http.MethodPost, mercariPhotosPath, &buf, w.FormDataContentType())
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", platform.NewAuthenticationFailure("the platform rejected the session during photo upload")
	case status != http.StatusOK && status != http.StatusCreated:
		return "", fmt.Errorf("photo upload returned status %d", status)
	}

	var resp MercariPhotoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("photo response could not be parsed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("photo upload rejected: %s", resp.Error.Message)
	}
	if resp.Data == nil || resp.Data.PhotoID == "" {
		return "", errors.New("photo response carried no id")
	}
	return resp.Data.PhotoID, nil
}

// classifyItemStatus maps an item-creation HTTP status onto the failure
// taxonomy. A 2xx still needs its envelope inspected by the caller.
func (a *MercariAdapter) classifyItemStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return platform.NewAuthenticationFailure("the platform rejected the session")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		field, msg := mercariErrorDetails(body)
		return platform.NewValidationRejected(field, msg)
	default:
		return platform.NewNetworkError(fmt.Sprintf("item creation returned status %d", status), nil)
	}
}

// mercariErrorDetails pulls field and message out of an error envelope,
// falling back to generic wording when the body is not one
func mercariErrorDetails(body []byte) (string, string) {
	var resp MercariResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != nil {
		field := resp.Error.Field
		if field == "" {
			field = "item"
		}
		msg := resp.Error.Message
		if msg == "" {
			msg = "the platform rejected the listing data"
		}
		return field, msg
	}
	return "item", "the platform rejected the listing data"
}

// doRequest performs one authenticated API call and returns the raw body
// and status. Transport errors come back as network failures; HTTP status
// classification is the caller's job.
func (a *MercariAdapter) doRequest(ctx context.Context, sess *platform.Session, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("mercari: failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if sess.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+sess.BearerToken)
	}
	if sess.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", sess.CSRFToken)
	}
	for _, c := range sess.Cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, platform.NewNetworkError("request to the platform failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, mercariMaxResponseSize))
	if err != nil {
		return nil, 0, platform.NewNetworkError("failed to read the platform response", err)
	}
	return respBody, resp.StatusCode, nil
}

func (a *MercariAdapter) failOnCaptcha(ctx context.Context, page platform.Page) error {
	if present, _ := page.Exists(ctx, mercariCaptchaFrame); present {
		return platform.NewVerificationRequired("the platform presented a captcha challenge")
	}
	return nil
}
