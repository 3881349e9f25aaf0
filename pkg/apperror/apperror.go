package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Derivation & Chains (CHAIN) ----

func ErrUnsupportedChain(chain string) *AppError {
	return New("CHAIN_001", fmt.Sprintf("Unsupported blockchain: %s", chain), http.StatusBadRequest)
}

func ErrInvalidSeed(err error) *AppError {
	return Wrap("CHAIN_002", "Invalid wallet seed", http.StatusBadRequest, err)
}

// ---- Key Vault (KEY) ----

func ErrDecryptionFailure(err error) *AppError {
	return Wrap("KEY_001", "Key decryption failed", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("KEY_002", "Key encryption failed", http.StatusInternalServerError, err)
}

// ---- Lifecycle State Machine (STATE) ----

func ErrInvalidStateTransition(from, to string) *AppError {
	return New("STATE_001", fmt.Sprintf("Illegal payment transition %s -> %s", from, to), http.StatusConflict)
}

func ErrPaymentNotForwardable(status string) *AppError {
	return New("STATE_002", fmt.Sprintf("Payment is not forwardable in status %s", status), http.StatusConflict)
}

// ---- Chain RPC (RPC) ----

func ErrProviderUnavailable(chain string, err error) *AppError {
	return Wrap("RPC_001", fmt.Sprintf("Chain provider unavailable: %s", chain), http.StatusServiceUnavailable, err)
}

// ---- Webhook Delivery (HOOK) ----

func ErrDeliveryFailure(err error) *AppError {
	return Wrap("HOOK_001", "Webhook delivery failed", http.StatusBadGateway, err)
}

// ---- Payment Validation (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrDuplicatePayment() *AppError {
	return New("PAY_003", "Duplicate payment reference", http.StatusConflict)
}

// Validation returns a PAY_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("PAY_001", message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
