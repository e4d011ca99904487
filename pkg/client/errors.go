package permitsearch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors mapped from wire error codes.
// Use errors.Is() to check.
var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrQuotaExceeded  = errors.New("embedding quota exceeded")
	ErrRateLimited    = errors.New("rate limited")
	ErrNotImplemented = errors.New("not implemented")
	ErrUpstream       = errors.New("upstream error")
	ErrInternal       = errors.New("internal error")
)

// APIError is a non-2xx reply decoded from the service error body.
type APIError struct {
	StatusCode int    // HTTP status
	Code       string // machine-readable wire code, e.g. "not_found"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("permitsearch: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Unwrap maps the wire code onto a package sentinel so errors.Is works.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request", "validation_failed":
		return ErrValidation
	case "unauthorized":
		return ErrUnauthorized
	case "not_found":
		return ErrNotFound
	case "quota_exceeded":
		return ErrQuotaExceeded
	case "rate_limited":
		return ErrRateLimited
	case "not_implemented":
		return ErrNotImplemented
	case "upstream_error":
		return ErrUpstream
	case "internal_error":
		return ErrInternal
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil || wire.Code == "" {
		// не-JSON ответ: прокси, балансировщик и т.п.
		apiErr.Message = fmt.Sprintf("unexpected response (http %d)", resp.StatusCode)
		return apiErr
	}
	apiErr.Code = wire.Code
	apiErr.Message = wire.Message
	return apiErr
}
