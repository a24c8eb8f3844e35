package platform

import (
	"context"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
)

// ---------------------------------------------------------------------------
// Page
// ---------------------------------------------------------------------------

// Page is the browser surface an adapter drives. One page is created per job
// and released when the job finishes, so adapters never share tabs or
// cookies with each other.
//
// Waits are event-driven: WaitForElement resolves as soon as the element
// exists and fails with a classified element_not_found error on timeout.
// Hesitate is a humanization pause that collapses to near zero when the page
// runs in background mode; Settle is an essential wait honored in full in
// every mode.
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	Text(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string) error
	SetValue(ctx context.Context, selector, value string) error
	UploadFile(ctx context.Context, selector, filename, contentType string, data []byte) error
	Eval(ctx context.Context, expr string, out any) error
	SetCookies(ctx context.Context, cookies []Cookie) error
	Cookies(ctx context.Context) ([]Cookie, error)
	Hesitate(ctx context.Context, min, max time.Duration) error
	Settle(ctx context.Context, d time.Duration) error
}

// ---------------------------------------------------------------------------
// ImageSource
// ---------------------------------------------------------------------------

// Image is a fetched photo ready for upload injection
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ImageSource resolves an ImageRef to its bytes
type ImageSource interface {
	Fetch(ctx context.Context, ref listing.ImageRef) (*Image, error)
}

// ---------------------------------------------------------------------------
// CreateResult
// ---------------------------------------------------------------------------

// CreateResult reports the outcome of a listing creation. A creation with
// some failed uploads still succeeds as long as at least one image made it;
// the shortfall is surfaced through ImagesFailed and Warnings.
type CreateResult struct {
	PlatformListingID string
	PlatformURL       string
	ImagesUploaded    int
	ImagesFailed      int
	Warnings          []string
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter publishes and removes listings on one marketplace. Browser-driven
// adapters do their work through the page; API-driven adapters use the page
// only as the cookie context their requests authenticate from. All errors
// crossing this boundary are classified Failures.
type Adapter interface {
	// Code returns the platform this adapter serves
	Code() Code

	// Capabilities returns the platform's static constraints
	Capabilities() Capabilities

	// CheckLogin probes whether the session is still accepted. It reports
	// false (not an error) for a cleanly logged-out state; errors are
	// reserved for probes that could not complete.
	CheckLogin(ctx context.Context, page Page, sess *Session) (bool, error)

	// Login performs a fresh credential login and returns the captured
	// session. A step-up challenge surfaces as a verification_required
	// Failure.
	Login(ctx context.Context, page Page, creds Credentials) (*Session, error)

	// CreateListing publishes the listing and returns platform identifiers
	CreateListing(ctx context.Context, page Page, sess *Session, item *listing.Normalized) (*CreateResult, error)

	// DeleteListing removes a previously created listing. Deleting a listing
	// the platform no longer has is a success.
	DeleteListing(ctx context.Context, page Page, sess *Session, platformListingID string) error
}
