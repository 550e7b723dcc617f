package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	MissingCredential   ErrorCode = "missing_credential"
	InvalidCredential   ErrorCode = "invalid_credential"
	InvalidCredentials  ErrorCode = "invalid_credentials"
	InvalidInput        ErrorCode = "invalid_input"
	InvalidAmount       ErrorCode = "invalid_amount"
	SameAccountTransfer ErrorCode = "same_account_transfer"
	UserNotFound        ErrorCode = "user_not_found"
	AccountNotFound     ErrorCode = "account_not_found"
	InsufficientFunds   ErrorCode = "insufficient_funds"
	InternalError       ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetails returns a copy so the predefined errors below are never mutated.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches on code, so errors.Is(err, ErrAccountNotFound) holds for any
// account_not_found error regardless of message or details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus maps the error code to the response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case MissingCredential:
		return http.StatusUnauthorized
	case InvalidCredential:
		return http.StatusForbidden
	case InvalidCredentials, InvalidInput, InvalidAmount, SameAccountTransfer, InsufficientFunds:
		return http.StatusBadRequest
	case UserNotFound, AccountNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError unwraps err into an *AppError. Anything that is not already one
// becomes a generic internal error so no infrastructure detail leaks to clients.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}

// Predefined errors for common cases
var (
	ErrMissingCredential   = NewAppError(MissingCredential, "Access denied. No token provided.")
	ErrInvalidCredential   = NewAppError(InvalidCredential, "Invalid token")
	ErrInvalidCredentials  = NewAppError(InvalidCredentials, "Invalid credentials")
	ErrInvalidAmount       = NewAppError(InvalidAmount, "Amount must be greater than zero")
	ErrSameAccountTransfer = NewAppError(SameAccountTransfer, "Cannot transfer to the same account")
	ErrUserNotFound        = NewAppError(UserNotFound, "User not found")
	ErrAccountNotFound     = NewAppError(AccountNotFound, "Account not found")
	ErrInsufficientFunds   = NewAppError(InsufficientFunds, "Insufficient funds")
	ErrInternal            = NewAppError(InternalError, "Server error")
)
