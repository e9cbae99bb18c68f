package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
	CodeGatewayFailure     Code = "GATEWAY_FAILURE"
	CodePaymentTimeout     Code = "PAYMENT_TIMEOUT"
	CodeConfiguration      Code = "CONFIGURATION_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func meta(status int, retryable, details bool, public string) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

// Retryable codes are failures the shopper may repeat unchanged, such as a
// gateway that is still loading or a payment that timed out.
var metadataByCode = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, false, true, "validation failed"),
	CodeNotFound:           meta(http.StatusNotFound, false, false, "resource not found"),
	CodeConflict:           meta(http.StatusConflict, false, false, "conflict detected"),
	CodeStateConflict:      meta(http.StatusUnprocessableEntity, false, true, "state transition disallowed"),
	CodeIdempotency:        meta(http.StatusConflict, false, true, "idempotency key reused"),
	CodeGatewayUnavailable: meta(http.StatusServiceUnavailable, true, false, "payment system is loading, please try again in a moment"),
	CodeGatewayFailure:     meta(http.StatusPaymentRequired, true, true, "payment failed"),
	CodePaymentTimeout:     meta(http.StatusGatewayTimeout, true, false, "payment timed out"),
	CodeConfiguration:      meta(http.StatusServiceUnavailable, false, false, "payment system is not configured properly, please contact support"),
	CodeInternal:           meta(http.StatusInternalServerError, true, false, "internal server error"),
	CodeDependency:         meta(http.StatusServiceUnavailable, true, true, "dependency unavailable"),
}

// MetadataFor returns the HTTP mapping for code, falling back to INTERNAL_ERROR.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure. The code decides the HTTP status; the message
// and details are what callers see when the code allows it.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Retryable reports whether the caller may retry the same action unchanged.
func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the typed code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	for err != nil {
		typed := As(err)
		if typed == nil {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}
