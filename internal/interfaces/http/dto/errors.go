package dto

import "net/http"

// Error code constants, format ERR_<CATEGORY>_<DESCRIPTION>
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request fields fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used when a resource already exists or an
	// equivalent job is already in flight
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeInvalidState is used when an operation is invalid for the
	// job's current status (e.g. resuming a job that is not parked)
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeUnauthorized is used when the caller's identity is missing
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeRateLimited is used when the caller is rate limited
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code, defaulting
// to 500 for codes without a mapping
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodeMapping translates domain error codes into wire codes
var domainErrorCodeMapping = map[string]string{
	"INVALID_LISTING_ID":  ErrCodeValidation,
	"INVALID_USER_ID":     ErrCodeValidation,
	"INVALID_PLATFORM":    ErrCodeValidation,
	"INVALID_OPERATION":   ErrCodeValidation,
	"INVALID_CREDENTIALS": ErrCodeValidation,
	"INVALID_LISTING":     ErrCodeValidation,
	"INVALID_INPUT":       ErrCodeValidation,
	"INVALID_STATE":       ErrCodeInvalidState,
	"ALREADY_DELETED":     ErrCodeInvalidState,
	"ALREADY_EXISTS":      ErrCodeConflict,
	"NOT_FOUND":           ErrCodeNotFound,
}

// NormalizeErrorCode converts a domain error code to the wire format,
// passing through codes that already are wire codes
func NormalizeErrorCode(code string) string {
	if wireCode, ok := domainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
