package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrFetchFailed         = errors.New("product fetch failed")
	ErrSelectionIncomplete = errors.New("selection incomplete")
	ErrAddToCartFailed     = errors.New("add to cart failed")
	ErrSubmitInProgress    = errors.New("submission in progress")
	ErrUpstreamError       = errors.New("upstream error")
)

// APIError represents a structured error for API responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewFetchError creates the error returned when a product cannot be loaded.
// A 404 from the storefront additionally matches ErrNotFound.
func NewFetchError(handle string, statusCode int, err error) *APIError {
	wrapped := ErrFetchFailed
	if statusCode == 404 {
		wrapped = fmt.Errorf("%w: %w", ErrFetchFailed, ErrNotFound)
	}
	if err != nil {
		wrapped = fmt.Errorf("%w: %v", wrapped, err)
	}

	status := 502
	if statusCode == 404 {
		status = 404
	}
	return &APIError{
		Code:       "FETCH_ERROR",
		Message:    fmt.Sprintf("product %q could not be loaded", handle),
		StatusCode: status,
		Err:        wrapped,
	}
}

// NewSelectionError creates the validation error for a submit without a
// resolved variant. No network call is made when this is returned.
func NewSelectionError() *APIError {
	return &APIError{
		Code:       "SELECTION_INCOMPLETE",
		Message:    "select all options before adding to cart",
		StatusCode: 400,
		Err:        ErrSelectionIncomplete,
	}
}

// NewAddToCartError creates the error for a failed cart mutation.
func NewAddToCartError(variantID string, err error) *APIError {
	return &APIError{
		Code:       "ADD_TO_CART_FAILED",
		Message:    fmt.Sprintf("variant %s could not be added to the cart", variantID),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrAddToCartFailed, err),
	}
}

// NewValidationError creates a 400 error for invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewUpstreamError creates a 502 error for storefront transport failures.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: 502,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError creates a 500 error for unexpected failures.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: 500,
		Err:        err,
	}
}
