package platform

import (
	"errors"
	"fmt"
)

// FailureKind classifies the ways a marketplace operation can go wrong.
// The dispatcher's retry policy is keyed entirely off this classification.
type FailureKind string

const (
	// FailureAuthentication indicates the stored session or credentials were
	// rejected by the platform
	FailureAuthentication FailureKind = "authentication_failure"
	// FailureVerification indicates the platform demanded a step-up challenge
	// (captcha, SMS or email code) that only a human can complete
	FailureVerification FailureKind = "verification_required"
	// FailureElementNotFound indicates an expected page element never
	// appeared, usually because the platform changed its UI
	FailureElementNotFound FailureKind = "element_not_found"
	// FailureUpload indicates image upload problems during listing creation
	FailureUpload FailureKind = "upload_failure"
	// FailureValidation indicates the platform rejected the listing content
	// itself; resubmitting the same data cannot succeed
	FailureValidation FailureKind = "validation_rejected"
	// FailureNetwork indicates a transient transport-level problem
	FailureNetwork FailureKind = "network_error"
)

// IsValid checks if the FailureKind is a valid value
func (k FailureKind) IsValid() bool {
	switch k {
	case FailureAuthentication, FailureVerification, FailureElementNotFound,
		FailureUpload, FailureValidation, FailureNetwork:
		return true
	}
	return false
}

// String returns the string representation of FailureKind
func (k FailureKind) String() string {
	return string(k)
}

// Failure is a classified marketplace operation error. Subject names the
// selector or form field the failure is about, when one applies.
type Failure struct {
	Kind    FailureKind
	Subject string
	Message string
	Err     error
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Subject != "" {
		return fmt.Sprintf("%s (%s): %s", f.Kind, f.Subject, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewAuthenticationFailure reports rejected credentials or an expired session
func NewAuthenticationFailure(message string) *Failure {
	return &Failure{Kind: FailureAuthentication, Message: message}
}

// NewVerificationRequired reports a step-up challenge the engine must not
// attempt to solve
func NewVerificationRequired(message string) *Failure {
	return &Failure{Kind: FailureVerification, Message: message}
}

// NewElementNotFound reports a page element that never appeared
func NewElementNotFound(selector string, err error) *Failure {
	return &Failure{
		Kind:    FailureElementNotFound,
		Subject: selector,
		Message: "element did not appear before timeout",
		Err:     err,
	}
}

// NewUploadFailure reports image upload problems
func NewUploadFailure(message string, err error) *Failure {
	return &Failure{Kind: FailureUpload, Message: message, Err: err}
}

// NewValidationRejected reports listing content the platform refused
func NewValidationRejected(field, message string) *Failure {
	return &Failure{Kind: FailureValidation, Subject: field, Message: message}
}

// NewNetworkError reports a transient transport problem
func NewNetworkError(message string, err error) *Failure {
	return &Failure{Kind: FailureNetwork, Message: message, Err: err}
}

// AsFailure unwraps err to a classified Failure if one is in the chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf returns the classification of err. Errors that carry no
// classification are treated as transient network problems so they stay
// retryable within the job's attempt budget.
func KindOf(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	return FailureNetwork
}
