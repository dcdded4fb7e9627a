package usecase

import (
	"errors"

	"github.com/oktavaklaster/radario-amocrm/internal/infra/integration/amocrm"
)

const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
	CodeCRMAuth     = "CRM_AUTH"
	CodeCRMAPI      = "CRM_API"
	CodeAuditLog    = "AUDIT_LOG"
	CodeInternal    = "INTERNAL"
)

// DomainError is a problem with the notification itself; the caller gets 400.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// TechnicalError is a failure on our side or the CRM's; the caller gets 500.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var technicalErr *TechnicalError
	return errors.As(err, &technicalErr)
}

// classify wraps a sync failure into a TechnicalError with a code that tells
// dead credentials apart from CRM rejections.
func classify(err error) *TechnicalError {
	var authErr *amocrm.AuthError
	var apiErr *amocrm.APIError
	switch {
	case errors.As(err, &authErr):
		return &TechnicalError{Code: CodeCRMAuth, Message: err.Error(), Err: err}
	case errors.As(err, &apiErr):
		return &TechnicalError{Code: CodeCRMAPI, Message: err.Error(), Err: err}
	default:
		return &TechnicalError{Code: CodeInternal, Message: err.Error(), Err: err}
	}
}
