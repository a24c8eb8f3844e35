package sessions

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors
var (
	ErrNotAToken        = errors.New("sessions: value is not a JWT")
	ErrNoCookiePayload  = errors.New("sessions: cookie carries no decodable payload")
	ErrPayloadNotObject = errors.New("sessions: cookie payload is not a JSON object")
)

// TokenExpiry reads the exp claim from a platform-issued bearer token.
// The platforms sign with keys we do not hold, so the token is parsed
// without verification; the expiry is a routing hint only, never an
// authentication decision.
func TokenExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrNotAToken
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrNotAToken
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token expires within skew from now.
// Values that do not parse as a JWT report false: without a readable
// expiry the session gets probed against the platform instead.
func TokenExpired(token string, skew time.Duration) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return time.Now().Add(skew).After(exp)
}

// DecodeCookiePayload decodes a base64-wrapped JSON object from a cookie
// value, the format several marketplace frontends use for their session
// state cookies. URL-encoded and padded variants are both accepted.
func DecodeCookiePayload(value string) (map[string]any, error) {
	candidates := []string{value}
	// Some frontends wrap the payload JWT-style: header.payload.signature
	if parts := strings.Split(value, "."); len(parts) == 3 {
		candidates = append([]string{parts[1]}, candidates...)
	}

	for _, candidate := range candidates {
		raw, ok := decodeBase64(candidate)
		if !ok {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			if json.Valid(raw) {
				return nil, ErrPayloadNotObject
			}
			continue
		}
		return payload, nil
	}
	return nil, ErrNoCookiePayload
}

func decodeBase64(s string) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, true
		}
	}
	return nil, false
}
