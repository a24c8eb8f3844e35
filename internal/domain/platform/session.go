package platform

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Cookie
// ---------------------------------------------------------------------------

// Cookie is one browser cookie captured from or installed into a page
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	HTTPOnly bool      `json:"httpOnly"`
	Secure   bool      `json:"secure"`
	SameSite string    `json:"sameSite,omitempty"`
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Session is the reusable authenticated state for one user on one platform.
// Cookies are always present after a browser login; BearerToken and CSRFToken
// are harvested where the platform's own frontend uses token auth.
type Session struct {
	UserID          uuid.UUID `json:"userId"`
	Platform        Code      `json:"platform"`
	Cookies         []Cookie  `json:"cookies"`
	BearerToken     string    `json:"bearerToken,omitempty"`
	CSRFToken       string    `json:"csrfToken,omitempty"`
	PlatformUserID  string    `json:"platformUserId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LastValidatedAt time.Time `json:"lastValidatedAt"`
}

// Cookie returns the named cookie and whether it is present
func (s *Session) Cookie(name string) (Cookie, bool) {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// HasAuthMaterial returns true if the session carries anything that could
// authenticate a request
func (s *Session) HasAuthMaterial() bool {
	return len(s.Cookies) > 0 || s.BearerToken != ""
}

// Touch records a successful validation probe
func (s *Session) Touch() {
	s.LastValidatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is a platform username/password pair. The plaintext exists
// only in worker memory during login; String and MarshalJSON redact both
// fields so the values cannot leak through logs or serialized state.
type Credentials struct {
	Username string
	Password string
}

// String implements fmt.Stringer with all fields redacted
func (c Credentials) String() string {
	return "credentials[redacted]"
}

// GoString implements fmt.GoStringer with all fields redacted
func (c Credentials) GoString() string {
	return c.String()
}

// MarshalJSON always serializes redacted placeholders
func (c Credentials) MarshalJSON() ([]byte, error) {
	return []byte(`{"username":"[redacted]","password":"[redacted]"}`), nil
}

// IsZero returns true when both fields are empty
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// ---------------------------------------------------------------------------
// Vault
// ---------------------------------------------------------------------------

// Vault seals and opens credential blobs. Decrypt fails closed: any
// malformed or tampered blob yields ErrCredentialDecrypt, never partial
// plaintext.
type Vault interface {
	// Encrypt seals the credentials into an opaque blob
	Encrypt(creds Credentials) (string, error)
	// Decrypt opens a blob produced by Encrypt
	Decrypt(blob string) (Credentials, error)
}

// ---------------------------------------------------------------------------
// SessionStore
// ---------------------------------------------------------------------------

// SessionStore persists sessions between jobs so workers can skip the login
// flow. Concurrent refreshes resolve last-write-wins; both writers hold a
// session that was valid when captured.
type SessionStore interface {
	// Get returns the stored session or ErrSessionNotFound
	Get(ctx context.Context, userID uuid.UUID, code Code) (*Session, error)
	// Put stores the session, replacing any previous one
	Put(ctx context.Context, sess *Session) error
	// Invalidate removes the stored session, if any
	Invalidate(ctx context.Context, userID uuid.UUID, code Code) error
}
