package domain

import "fmt"

// ErrorKind is the closed taxonomy of classified failures. Every error that
// crosses the dispatcher boundary carries exactly one of these.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindRateLimited      ErrorKind = "rate_limited"
	KindUpstreamInternal ErrorKind = "upstream_internal_error"
	KindTimeout          ErrorKind = "timeout_error"
	KindNetwork          ErrorKind = "network_error"
)

// Stable machine codes, one per kind. Callers key retry/alerting logic off
// these, so they never change once published.
const (
	CodeValidation       = "E4001"
	CodeNotFound         = "E3003"
	CodePermissionDenied = "E1004"
	CodeRateLimited      = "E2429"
	CodeUpstreamInternal = "E2106"
	CodeTimeout          = "E2003"
	CodeNetwork          = "E2002"
)

var kindCodes = map[ErrorKind]string{
	KindValidation:       CodeValidation,
	KindNotFound:         CodeNotFound,
	KindPermissionDenied: CodePermissionDenied,
	KindRateLimited:      CodeRateLimited,
	KindUpstreamInternal: CodeUpstreamInternal,
	KindTimeout:          CodeTimeout,
	KindNetwork:          CodeNetwork,
}

// ErrorDetail is the structured error surfaced to callers. Treated as
// immutable once constructed.
type ErrorDetail struct {
	Kind    ErrorKind      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ErrorDetail) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

// NewError builds an ErrorDetail with the stable code for kind. The optional
// details map is taken as-is; callers must not mutate it afterwards.
func NewError(kind ErrorKind, message string, details map[string]any) *ErrorDetail {
	return &ErrorDetail{
		Kind:    kind,
		Code:    kindCodes[kind],
		Message: message,
		Details: details,
	}
}

// AsErrorDetail unwraps err into an ErrorDetail, or wraps unclassified errors
// as an internal failure so the dispatcher envelope stays uniform.
func AsErrorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	if d, ok := err.(*ErrorDetail); ok {
		return d
	}
	return NewError(KindUpstreamInternal, err.Error(), nil)
}
