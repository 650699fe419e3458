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

// ---- Validation (VAL) ----

// Validation returns an inline, locally recoverable input error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrMissingFields() *AppError {
	return New("VAL_001", "Please fill in all required fields", http.StatusBadRequest)
}

func ErrWalletNotConnected() *AppError {
	return New("VAL_002", "Please connect your wallet first", http.StatusBadRequest)
}

// ---- Processor (PROC) ----

// ErrProcessor surfaces a failed processor call as a retryable error. The raw
// processor payload travels in the wrapped error for classification.
func ErrProcessor(message string, err error) *AppError {
	if message == "" {
		message = "Payment processor request failed"
	}
	return Wrap("PROC_001", message, http.StatusBadGateway, err)
}

// ErrAddressRejected remaps the processor's shipping-address validation
// failure into an actionable message.
func ErrAddressRejected() *AppError {
	return New("PROC_002", "Please double check your shipping address and try again", http.StatusBadRequest)
}

// ---- Payment Business Logic (PAY) ----

func ErrInsufficientFunds(currency string) *AppError {
	return New("PAY_001",
		fmt.Sprintf("Insufficient %s balance. Please go back to change your wallet, currency, or top up your balance.", currency),
		http.StatusPaymentRequired)
}

func ErrQuoteExpired() *AppError {
	return New("PAY_002", "Quote has expired, please request a new quote", http.StatusConflict)
}

func ErrOrderNotPrepared() *AppError {
	return New("PAY_003", "Unable to process your order. Please try again.", http.StatusConflict)
}

// ---- Wallet & Settlement (WALLET) ----

// ErrUserDeclined marks a wallet rejection. It returns the session to review
// and is never shown as an error.
func ErrUserDeclined() *AppError {
	return New("WALLET_001", "Transaction was declined in the wallet", http.StatusConflict)
}

// ErrSettlementFailure is terminal: the wallet or chain reported a hard
// failure. The reason is shown verbatim.
func ErrSettlementFailure(reason string) *AppError {
	return New("WALLET_002", reason, http.StatusBadGateway)
}

// ---- Session (SES) ----

func ErrSessionNotFound() *AppError {
	return New("SES_001", "Checkout session not found", http.StatusNotFound)
}

func ErrInvalidPhase(action string, phase string) *AppError {
	return New("SES_002", fmt.Sprintf("Cannot %s in phase %q", action, phase), http.StatusConflict)
}

// ErrConfirmationOutstanding refuses teardown between "money sent" and
// "order outcome known".
func ErrConfirmationOutstanding() *AppError {
	return New("SES_003", "Settlement confirmation is still outstanding, please wait", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("SES_004", "Invalid or expired session token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
