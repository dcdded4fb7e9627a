package amocrm

import (
	"errors"
	"fmt"
)

var (
	ErrTokenNotFound       = errors.New("amocrm: token not found")
	ErrRefreshUnavailable  = errors.New("amocrm: token refresh is not configured")
	errEmptyCreateResponse = errors.New("amocrm: create response has no entities")
)

// APIError is any non-2xx answer from amoCRM.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("amocrm: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// AuthError means the request was still rejected after one token refresh.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "amocrm: unauthorized after token refresh"
	}
	return "amocrm: unauthorized: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
