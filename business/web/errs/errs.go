// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// FromRejection wraps a validation rejection as a bad request. Any other
// error is returned unchanged.
func FromRejection(err error) error {
	if !validate.IsRejection(err) {
		return err
	}
	return &Trusted{err, http.StatusBadRequest}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (t *Trusted) Error() string {
	return t.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (t *Trusted) Unwrap() error {
	return t.Err
}

// Response builds the response body of the error.
func (t *Trusted) Response() Response {
	resp := Response{
		Error: t.Err.Error(),
	}

	if txErr, ok := validate.AsTxError(t.Err); ok {
		resp.Reason = txErr.Reason.String()
	}

	return resp
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var t *Trusted
	return errors.As(err, &t)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var t *Trusted
	if !errors.As(err, &t) {
		return nil
	}
	return t
}
