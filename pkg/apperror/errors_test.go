package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PAY_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("PROC_001", "processor error", http.StatusBadGateway, fmt.Errorf("connection refused")),
			expected: "[PROC_001] processor error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"MissingFields", ErrMissingFields(), "VAL_001", 400},
		{"WalletNotConnected", ErrWalletNotConnected(), "VAL_002", 400},
		{"Validation", Validation("email required"), "VAL_001", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestProcessorErrors(t *testing.T) {
	raw := fmt.Errorf(`{"message":"SELLER_CONFIG_INVALID"}`)
	procErr := ErrProcessor("order creation failed", raw)
	assert.Equal(t, "PROC_001", procErr.Code)
	assert.Equal(t, 502, procErr.HTTPStatus)
	assert.True(t, errors.Is(procErr, raw), "raw payload must stay reachable for classification")

	// empty message falls back to a generic one
	assert.NotEmpty(t, ErrProcessor("", nil).Message)

	addrErr := ErrAddressRejected()
	assert.Equal(t, "PROC_002", addrErr.Code)
	assert.Contains(t, addrErr.Message, "shipping address")
}

func TestPaymentErrors(t *testing.T) {
	fundsErr := ErrInsufficientFunds("USDC")
	assert.Equal(t, "PAY_001", fundsErr.Code)
	assert.Equal(t, 402, fundsErr.HTTPStatus)
	assert.Contains(t, fundsErr.Message, "USDC")

	assert.Equal(t, "PAY_002", ErrQuoteExpired().Code)
	assert.Equal(t, "PAY_003", ErrOrderNotPrepared().Code)
}

func TestWalletErrors(t *testing.T) {
	assert.Equal(t, "WALLET_001", ErrUserDeclined().Code)

	settleErr := ErrSettlementFailure("execution reverted: insufficient funds")
	assert.Equal(t, "WALLET_002", settleErr.Code)
	assert.Equal(t, "execution reverted: insufficient funds", settleErr.Message, "reason shown verbatim")
}

func TestSessionErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"SessionNotFound", ErrSessionNotFound(), "SES_001", 404},
		{"InvalidPhase", ErrInvalidPhase("finalize", "details"), "SES_002", 409},
		{"ConfirmationOutstanding", ErrConfirmationOutstanding(), "SES_003", 409},
		{"InvalidToken", ErrInvalidToken(), "SES_004", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}

	phaseErr := ErrInvalidPhase("finalize", "details")
	assert.Contains(t, phaseErr.Message, "finalize")
	assert.Contains(t, phaseErr.Message, "details")
}
