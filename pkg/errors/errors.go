package errors

import (
	"errors"
	"fmt"
)

// AppError is an application-level error with a stable machine-readable code.
// Codes are assigned at the point where an external failure is caught, so
// downstream code discriminates on Code and never re-parses messages.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeBiometricDenied      = "biometric_denied"
	ErrCodeBiometricUnavailable = "biometric_unavailable"
	ErrCodeWalletNotFound       = "wallet_not_found"
	ErrCodeUserCancelled        = "user_cancelled"
	ErrCodeAuthorizationFailed  = "authorization_failed"
	ErrCodeSessionNotFound      = "session_not_found"
	ErrCodeNoSessionAvailable   = "no_session_available"
	ErrCodeNoSignatureReturned  = "no_signature_returned"
	ErrCodeStorageError         = "storage_error"
	ErrCodeExchangeBusy         = "exchange_busy"
	ErrCodeInvalidTransaction   = "invalid_transaction"
	ErrCodeBadRequest           = "bad_request"
)

// Predefined errors. Messages are user-facing copy; the UI layer maps on
// Code when it needs different wording.
var (
	ErrBiometricDenied = &AppError{
		Code:    ErrCodeBiometricDenied,
		Message: "Authentication was denied",
	}

	ErrBiometricUnavailable = &AppError{
		Code:    ErrCodeBiometricUnavailable,
		Message: "Biometric authentication is unavailable. Re-enable it in system settings.",
	}

	ErrWalletNotFound = &AppError{
		Code:    ErrCodeWalletNotFound,
		Message: "No compatible wallet found. Please install a Solana wallet app.",
	}

	ErrUserCancelled = &AppError{
		Code:    ErrCodeUserCancelled,
		Message: "Request was cancelled. Try again when you're ready.",
	}

	ErrNoSessionAvailable = &AppError{
		Code:    ErrCodeNoSessionAvailable,
		Message: "No wallet is connected",
	}

	ErrNoSignatureReturned = &AppError{
		Code:    ErrCodeNoSignatureReturned,
		Message: "The wallet returned no signature",
	}

	ErrExchangeBusy = &AppError{
		Code:    ErrCodeExchangeBusy,
		Message: "Another wallet request is already in progress",
	}
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewWithDetail creates a new AppError with additional detail
func NewWithDetail(code, message, detail string) *AppError {
	return &AppError{Code: code, Message: message, Detail: detail}
}

// SessionNotFound creates a session not found error
func SessionNotFound(idOrAddress string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionNotFound,
		Message: "Wallet session not found",
		Detail:  idOrAddress,
	}
}

// AuthorizationFailed creates a generic external-protocol failure
func AuthorizationFailed(detail string) *AppError {
	return &AppError{
		Code:    ErrCodeAuthorizationFailed,
		Message: "Wallet authorization failed",
		Detail:  detail,
	}
}

// Storage wraps a secure-storage failure. Callers treat it as "no cached
// token" and degrade to a full authorize.
func Storage(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorageError,
		Message: "Secure storage operation failed",
		Detail:  fmt.Sprintf("%s: %v", op, err),
	}
}

// InvalidTransaction creates an invalid transaction payload error
func InvalidTransaction(detail string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidTransaction,
		Message: "Transaction payload could not be decoded",
		Detail:  detail,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the AppError code carried by err, or "" for foreign errors.
func CodeOf(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given AppError code.
func HasCode(err error, code string) bool {
	return CodeOf(err) == code
}
