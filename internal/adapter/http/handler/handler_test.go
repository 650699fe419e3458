package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stablecoin-checkout/internal/adapter/http/dto"
	"stablecoin-checkout/internal/core/domain"
	"stablecoin-checkout/internal/core/ports"
	"stablecoin-checkout/internal/core/ports/mocks"
	"stablecoin-checkout/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSession(id uuid.UUID, phase domain.Phase) *domain.CheckoutSession {
	now := time.Now().UTC()
	return &domain.CheckoutSession{
		ID:            id,
		Phase:         phase,
		Product:       domain.Product{ASIN: "B0EXAMPLE", Title: "Widget", Price: "12.50"},
		WalletAddress: "0xabc",
		Chain:         "base",
		Currency:      "usdc",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func jsonRequest(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

// --- OpenSession ---

func TestOpenSession_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	tokenSvc := mocks.NewMockSessionTokenService(ctrl)
	h := NewCheckoutHandler(svc, tokenSvc)

	sessionID := uuid.New()
	expiry := time.Now().Add(time.Hour)

	svc.EXPECT().
		OpenSession(gomock.Any(), ports.OpenSessionRequest{
			Product:       domain.Product{ASIN: "B0EXAMPLE", Title: "Widget", Price: "12.50"},
			WalletAddress: "0xabc",
		}).
		Return(testSession(sessionID, domain.PhaseDetails), nil)
	tokenSvc.EXPECT().Generate(sessionID).Return("tok_123", expiry, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/checkout/sessions", dto.OpenSessionRequest{
		Product:       dto.ProductRequest{ASIN: "B0EXAMPLE", Title: "Widget", Price: "12.50"},
		WalletAddress: "0xabc",
	})
	h.OpenSession(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "tok_123", data["token"])
	session := data["session"].(map[string]any)
	assert.Equal(t, sessionID.String(), session["id"])
	assert.Equal(t, "details", session["phase"])
}

func TestOpenSession_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewCheckoutHandler(mocks.NewMockCheckoutService(ctrl), mocks.NewMockSessionTokenService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/checkout/sessions", map[string]any{})
	h.OpenSession(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VAL_001", resp["error_code"])
}

func TestOpenSession_TokenFailureClosesSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	tokenSvc := mocks.NewMockSessionTokenService(ctrl)
	h := NewCheckoutHandler(svc, tokenSvc)

	sessionID := uuid.New()
	svc.EXPECT().OpenSession(gomock.Any(), gomock.Any()).Return(testSession(sessionID, domain.PhaseDetails), nil)
	tokenSvc.EXPECT().Generate(sessionID).Return("", time.Time{}, errors.New("no secret"))
	svc.EXPECT().CloseSession(gomock.Any(), sessionID).Return(nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/checkout/sessions", dto.OpenSessionRequest{
		Product:       dto.ProductRequest{ASIN: "B0EXAMPLE"},
		WalletAddress: "0xabc",
	})
	h.OpenSession(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// --- SubmitDetails / Finalize error mapping ---

func TestSubmitDetails_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"address rejected", apperror.ErrAddressRejected(), http.StatusBadRequest, "PROC_002"},
		{"processor down", apperror.ErrProcessor("upstream failed", errors.New("status 503")), http.StatusBadGateway, "PROC_001"},
		{"wrong phase", apperror.ErrInvalidPhase("submit details", "processing"), http.StatusConflict, "SES_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := mocks.NewMockCheckoutService(ctrl)
			h := NewCheckoutHandler(svc, mocks.NewMockSessionTokenService(ctrl))

			sessionID := uuid.New()
			svc.EXPECT().SubmitDetails(gomock.Any(), sessionID, gomock.Any()).Return(nil, tt.err)

			w, c := jsonRequest(t, http.MethodPost, "/details", dto.DetailsRequest{
				Email: "buyer@example.com",
				ShippingAddress: dto.ShippingAddressRequest{
					Name: "Jane Doe", Address1: "1 Main St", City: "Springfield",
					Province: "IL", PostalCode: "62704", Country: "US",
				},
			})
			c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
			h.SubmitDetails(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp["error_code"])
		})
	}
}

func TestSubmitDetails_IncompleteBodyIsMissingFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewCheckoutHandler(mocks.NewMockCheckoutService(ctrl), mocks.NewMockSessionTokenService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/details", map[string]any{"email": "buyer@example.com"})
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}
	h.SubmitDetails(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VAL_001", resp["error_code"])
	assert.Equal(t, "Please fill in all required fields", resp["message"])
}

func TestFinalize_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	h := NewCheckoutHandler(svc, mocks.NewMockSessionTokenService(ctrl))

	sessionID := uuid.New()
	svc.EXPECT().Finalize(gomock.Any(), sessionID).Return(nil, apperror.ErrInsufficientFunds("usdc"))

	w, c := jsonRequest(t, http.MethodPost, "/finalize", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
	h.Finalize(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PAY_001", resp["error_code"])
	assert.Contains(t, resp["message"], "usdc")
}

func TestFinalize_NeverLeaksSettlementTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	h := NewCheckoutHandler(svc, mocks.NewMockSessionTokenService(ctrl))

	sessionID := uuid.New()
	session := testSession(sessionID, domain.PhaseSigning)
	session.Order = &domain.Order{
		OrderID: "ord_123",
		Payment: domain.OrderPayment{
			Status: "awaiting-payment",
			Preparation: &domain.TxPreparation{
				SerializedTransaction: "0xdeadbeefcafe",
				PayerAddress:          "0xabc",
				Chain:                 "base",
			},
		},
	}
	svc.EXPECT().Finalize(gomock.Any(), sessionID).Return(session, nil)

	w, c := jsonRequest(t, http.MethodPost, "/finalize", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
	h.Finalize(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "0xdeadbeefcafe",
		"the unsigned settlement transaction must stay server-side")
	assert.Contains(t, w.Body.String(), `"prepared":true`)
}

// --- CloseSession ---

func TestCloseSession_RefusedWhileConfirmationPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	h := NewCheckoutHandler(svc, mocks.NewMockSessionTokenService(ctrl))

	sessionID := uuid.New()
	svc.EXPECT().CloseSession(gomock.Any(), sessionID).Return(apperror.ErrConfirmationOutstanding())

	w, c := jsonRequest(t, http.MethodDelete, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
	h.CloseSession(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SES_003", resp["error_code"])
}

func TestGetSession_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewCheckoutHandler(mocks.NewMockCheckoutService(ctrl), mocks.NewMockSessionTokenService(ctrl))

	w, c := jsonRequest(t, http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	h.GetSession(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Router auth wiring ---

func TestRouter_SessionAuthBindsTokenToSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	tokenSvc := mocks.NewMockSessionTokenService(ctrl)

	tokenSessionID := uuid.New()
	otherSessionID := uuid.New()
	tokenSvc.EXPECT().Validate("tok_valid").Return(tokenSessionID, nil).AnyTimes()

	router := SetupRouter(RouterDeps{
		CheckoutSvc: svc,
		TokenSvc:    tokenSvc,
		Logger:      zerolog.Nop(),
	})

	// Token bound to a different session is refused before the service runs.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/"+otherSessionID.String(), nil)
	req.Header.Set("Authorization", "Bearer tok_valid")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Matching session id passes through.
	svc.EXPECT().GetSession(gomock.Any(), tokenSessionID).Return(testSession(tokenSessionID, domain.PhaseDetails), nil)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/"+tokenSessionID.String(), nil)
	req.Header.Set("Authorization", "Bearer tok_valid")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// No token at all.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/checkout/sessions/"+tokenSessionID.String(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	healthy := mocks.NewMockHealthChecker(ctrl)
	healthy.EXPECT().Ping(gomock.Any()).Return(nil)
	healthy.EXPECT().Name().Return("redis")

	w, c := jsonRequest(t, http.MethodGet, "/health", nil)
	HealthCheck(healthy)(c)
	assert.Equal(t, http.StatusOK, w.Code)

	sick := mocks.NewMockHealthChecker(ctrl)
	sick.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	sick.EXPECT().Name().Return("redis")

	w, c = jsonRequest(t, http.MethodGet, "/health", nil)
	HealthCheck(sick)(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

// --- Events stream ---

func TestEventsStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := mocks.NewMockCheckoutService(ctrl)
	sessionID := uuid.New()

	events := make(chan ports.PhaseEvent, 8)
	svc.EXPECT().GetSession(gomock.Any(), sessionID).Return(testSession(sessionID, domain.PhaseDetails), nil)
	svc.EXPECT().Subscribe(sessionID).Return((<-chan ports.PhaseEvent)(events), func() {}, nil)

	r := gin.New()
	eventsHandler := NewEventsHandler(svc, zerolog.Nop())
	r.GET("/sessions/:id/events", eventsHandler.Stream)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sessionID.String() + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is always the current phase.
	var first ports.PhaseEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, domain.PhaseDetails, first.Phase)

	events <- ports.PhaseEvent{SessionID: sessionID, Phase: domain.PhaseReview}
	var second ports.PhaseEvent
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, domain.PhaseReview, second.Phase)

	// Closing the channel ends the stream cleanly.
	close(events)
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
