package handler

import (
	"stablecoin-checkout/internal/adapter/http/dto"
	"stablecoin-checkout/internal/adapter/http/middleware"
	"stablecoin-checkout/internal/core/domain"
	"stablecoin-checkout/internal/core/ports"
	"stablecoin-checkout/pkg/apperror"
	"stablecoin-checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutHandler handles checkout session endpoints.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
	tokenSvc    ports.SessionTokenService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService, tokenSvc ports.SessionTokenService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc, tokenSvc: tokenSvc}
}

// OpenSession handles POST /api/v1/checkout/sessions.
func (h *CheckoutHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	session, err := h.checkoutSvc.OpenSession(c.Request.Context(), ports.OpenSessionRequest{
		Product: domain.Product{
			ASIN:      req.Product.ASIN,
			Title:     req.Product.Title,
			Variant:   req.Product.Variant,
			Price:     req.Product.Price,
			Thumbnail: req.Product.Thumbnail,
		},
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiry, err := h.tokenSvc.Generate(session.ID)
	if err != nil {
		// Session without a token is unreachable; roll it back.
		_ = h.checkoutSvc.CloseSession(c.Request.Context(), session.ID)
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.Created(c, dto.OpenSessionResponse{
		Session:     dto.ToSessionResponse(session),
		Token:       token,
		TokenExpiry: expiry.Unix(),
	})
}

// GetSession handles GET /api/v1/checkout/sessions/:id.
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.GetSession(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToSessionResponse(session))
}

// SubmitDetails handles POST /api/v1/checkout/sessions/:id/details.
func (h *CheckoutHandler) SubmitDetails(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req dto.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrMissingFields())
		return
	}

	session, err := h.checkoutSvc.SubmitDetails(c.Request.Context(), id, ports.DetailsRequest{
		Email: req.Email,
		ShippingAddress: domain.ShippingAddress{
			Name:       req.ShippingAddress.Name,
			Address1:   req.ShippingAddress.Address1,
			Address2:   req.ShippingAddress.Address2,
			City:       req.ShippingAddress.City,
			Province:   req.ShippingAddress.Province,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToSessionResponse(session))
}

// RefreshBalance handles POST /api/v1/checkout/sessions/:id/balance/refresh.
func (h *CheckoutHandler) RefreshBalance(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.RefreshBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToSessionResponse(session))
}

// Finalize handles POST /api/v1/checkout/sessions/:id/finalize.
func (h *CheckoutHandler) Finalize(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.Finalize(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToSessionResponse(session))
}

// Back handles POST /api/v1/checkout/sessions/:id/back.
func (h *CheckoutHandler) Back(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.checkoutSvc.Back(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToSessionResponse(session))
}

// CloseSession handles DELETE /api/v1/checkout/sessions/:id.
func (h *CheckoutHandler) CloseSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.checkoutSvc.CloseSession(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ClosedResponse{Closed: true})
}

// sessionID resolves the authenticated session id, falling back to the route
// parameter when auth middleware is not mounted (tests).
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	if id, ok := middleware.SessionID(c); ok {
		return id, true
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid session id"))
		return uuid.Nil, false
	}
	return id, true
}
