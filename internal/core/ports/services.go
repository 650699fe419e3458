//go:generate mockgen -destination=mocks/service_mocks.go -package=mocks stablecoin-checkout/internal/core/ports CheckoutService,SessionTokenService,HealthChecker

package ports

import (
	"context"
	"time"

	"stablecoin-checkout/internal/core/domain"

	"github.com/google/uuid"
)

// CheckoutService is the phase machine driving one checkout session from
// details through settlement confirmation.
type CheckoutService interface {
	OpenSession(ctx context.Context, req OpenSessionRequest) (*domain.CheckoutSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	// SubmitDetails requests a quote: details -> review on success.
	SubmitDetails(ctx context.Context, id uuid.UUID, req DetailsRequest) (*domain.CheckoutSession, error)
	// RefreshBalance replaces the session's balance snapshot. It never changes
	// the phase.
	RefreshBalance(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	// Finalize hands the prepared transaction to the wallet: review -> signing.
	Finalize(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	// Back returns to details, discarding order and quote but keeping the
	// shipping fields.
	Back(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	// CloseSession tears the session down. It is refused while a submitted
	// transaction has no terminal poll result yet.
	CloseSession(ctx context.Context, id uuid.UUID) error
	// Subscribe streams phase changes until the returned cancel func is called
	// or the session is closed.
	Subscribe(id uuid.UUID) (<-chan PhaseEvent, func(), error)
}

// OpenSessionRequest opens a fresh session for a product and wallet.
type OpenSessionRequest struct {
	Product       domain.Product
	WalletAddress string
}

// DetailsRequest carries the buyer-entered fields of the details phase.
type DetailsRequest struct {
	Email           string
	ShippingAddress domain.ShippingAddress
}

// PhaseEvent is one phase transition of a session.
type PhaseEvent struct {
	SessionID uuid.UUID    `json:"session_id"`
	Phase     domain.Phase `json:"phase"`
	Error     string       `json:"error,omitempty"`
}

// SessionTokenService issues and validates bearer tokens binding a caller to
// one checkout session.
type SessionTokenService interface {
	Generate(sessionID uuid.UUID) (string, time.Time, error)
	Validate(token string) (uuid.UUID, error)
}
