package platform

import (
	"errors"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	ErrAdapterNotFound    = errors.New("platform: no adapter registered for platform")
	ErrInvalidCode        = errors.New("platform: invalid platform code")
	ErrSessionRequired    = errors.New("platform: operation requires an authenticated session")
	ErrSessionNotFound    = errors.New("platform: no stored session for user and platform")
	ErrCredentialDecrypt  = errors.New("platform: credential blob cannot be decrypted")
	ErrListingLinkMissing = errors.New("platform: listing has no record on this platform")
)

// ---------------------------------------------------------------------------
// Code
// ---------------------------------------------------------------------------

// Code identifies a supported marketplace
type Code string

const (
	// CodePoshmark represents Poshmark
	CodePoshmark Code = "poshmark"
	// CodeMercari represents Mercari
	CodeMercari Code = "mercari"
	// CodeDepop represents Depop
	CodeDepop Code = "depop"
)

// IsValid returns true if the platform code is valid
func (c Code) IsValid() bool {
	switch c {
	case CodePoshmark, CodeMercari, CodeDepop:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c Code) DisplayName() string {
	switch c {
	case CodePoshmark:
		return "Poshmark"
	case CodeMercari:
		return "Mercari"
	case CodeDepop:
		return "Depop"
	default:
		return string(c)
	}
}

// AllCodes returns all valid platform codes
func AllCodes() []Code {
	return []Code{CodePoshmark, CodeMercari, CodeDepop}
}

// ---------------------------------------------------------------------------
// Capabilities
// ---------------------------------------------------------------------------

// Capabilities describes platform constraints the engine accounts for when
// preparing a submission
type Capabilities struct {
	// MaxImages is the most photos one listing may carry on the platform
	MaxImages int
	// WholeUnitPrices is true when the platform only accepts whole-currency
	// prices; fractional prices are rounded up, never down
	WholeUnitPrices bool
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry resolves the adapter responsible for a platform. Callers above
// the registry never branch on Code themselves.
type Registry interface {
	// Get returns the adapter for the given platform code
	Get(code Code) (Adapter, error)
	// List returns all registered adapters
	List() []Adapter
	// Codes returns the codes of all registered adapters
	Codes() []Code
}
