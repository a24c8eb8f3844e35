package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Listing Errors
// ---------------------------------------------------------------------------

var (
	ErrMissingTitle     = errors.New("listing: title is required")
	ErrNoImages         = errors.New("listing: at least one image is required")
	ErrInvalidPrice     = errors.New("listing: price must be greater than zero")
	ErrInvalidQuantity  = errors.New("listing: quantity must be at least 1")
	ErrInvalidCondition = errors.New("listing: invalid condition")
)

// ---------------------------------------------------------------------------
// Condition
// ---------------------------------------------------------------------------

// Condition represents the wear state of an item in marketplace-neutral terms.
// Adapters translate it into each platform's own vocabulary.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// IsValid checks if the Condition is a valid value
func (c Condition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// String returns the string representation of Condition
func (c Condition) String() string {
	return string(c)
}

// AllConditions returns all valid Condition values
func AllConditions() []Condition {
	return []Condition{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}
}

// ---------------------------------------------------------------------------
// ImageRef
// ---------------------------------------------------------------------------

// ImageRef points at one listing photo. Either URL or Key is set: URL for
// publicly reachable images, Key for objects living in the configured bucket.
type ImageRef struct {
	URL         string `json:"url,omitempty"`
	Key         string `json:"key,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
}

// IsZero returns true if the reference points at nothing
func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.Key == ""
}

// ---------------------------------------------------------------------------
// Normalized
// ---------------------------------------------------------------------------

// Normalized is the marketplace-neutral representation of a seller's listing.
// It is produced by the host application and carried verbatim on each job;
// adapters map it onto platform-specific forms and API payloads.
type Normalized struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Price        decimal.Decimal   `json:"price"`
	Quantity     int               `json:"quantity"`
	Condition    Condition         `json:"condition"`
	Brand        string            `json:"brand,omitempty"`
	Size         string            `json:"size,omitempty"`
	Color        string            `json:"color,omitempty"`
	Images       []ImageRef        `json:"images"`
	CategoryPath []string          `json:"categoryPath,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Overrides    map[string]string `json:"overrides,omitempty"`
}

// Validate checks the invariants every platform requires before any
// submission is attempted
func (n *Normalized) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrMissingTitle
	}
	if len(n.Images) == 0 {
		return ErrNoImages
	}
	for i, img := range n.Images {
		if img.IsZero() {
			return fmt.Errorf("%w: image %d has neither url nor key", ErrNoImages, i)
		}
	}
	if !n.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if n.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if !n.Condition.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCondition, n.Condition)
	}
	return nil
}

// PrimaryImage returns the first image, which platforms treat as the cover
// photo. Ordering is significant and preserved end to end.
func (n *Normalized) PrimaryImage() (ImageRef, bool) {
	if len(n.Images) == 0 {
		return ImageRef{}, false
	}
	return n.Images[0], true
}

// Override returns the platform-specific override for the given key
// (e.g. "poshmark.category") and whether one is present.
func (n *Normalized) Override(key string) (string, bool) {
	if n.Overrides == nil {
		return "", false
	}
	v, ok := n.Overrides[key]
	return v, ok
}
