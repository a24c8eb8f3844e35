package marketplace

import (
	"errors"
	"fmt"
	"net/url"
)

// MercariConfig holds the endpoints for Mercari's internal API. These are
// the endpoints Mercari's own web frontend calls; they are undocumented,
// versionless, and overridable here so tests can point at a local server.
type MercariConfig struct {
	// APIBaseURL is the base URL for internal API calls
	APIBaseURL string
	// WebBaseURL is the base URL for the login flow and listing links
	WebBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// MercariProductionAPIURL is the production API endpoint
	MercariProductionAPIURL = "https://api.mercari.com"
	// MercariProductionWebURL is the production web frontend
	MercariProductionWebURL = "https://www.mercari.com"
)

// ErrMercariConfigInvalidURL reports an unusable base URL
var ErrMercariConfigInvalidURL = errors.New("mercari: invalid base URL")

// NewMercariConfig creates a Mercari configuration with production defaults
func NewMercariConfig() *MercariConfig {
	return &MercariConfig{
		APIBaseURL:     MercariProductionAPIURL,
		WebBaseURL:     MercariProductionWebURL,
		TimeoutSeconds: 30,
	}
}

// Validate fills defaults and rejects unparsable base URLs
func (c *MercariConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = MercariProductionAPIURL
	}
	if c.WebBaseURL == "" {
		c.WebBaseURL = MercariProductionWebURL
	}
	for _, raw := range []string{c.APIBaseURL, c.WebBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrMercariConfigInvalidURL, raw)
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
