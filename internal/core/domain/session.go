package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the checkout session's position in the state machine.
type Phase string

const (
	PhaseDetails    Phase = "details"
	PhaseReview     Phase = "review"
	PhaseSigning    Phase = "signing"
	PhaseProcessing Phase = "processing"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

// IsTerminal returns true for phases that only close/reset can leave.
func (p Phase) IsTerminal() bool {
	return p == PhaseSuccess || p == PhaseError
}

func (p Phase) String() string {
	return string(p)
}

// CheckoutSession is the aggregate root of one checkout. Only the phase
// machine mutates it; collaborators return results that get folded in.
type CheckoutSession struct {
	ID              uuid.UUID          `json:"id"`
	Phase           Phase              `json:"phase"`
	Product         Product            `json:"product"`
	WalletAddress   string             `json:"wallet_address"`
	Chain           string             `json:"chain"`
	Currency        string             `json:"currency"`
	Email           string             `json:"email"`
	ShippingAddress ShippingAddress    `json:"shipping_address"`
	Order           *Order             `json:"order,omitempty"`
	Quote           *Quote             `json:"quote,omitempty"`
	Balance         *BalanceSnapshot   `json:"balance,omitempty"`
	Receipt         *SettlementReceipt `json:"receipt,omitempty"`
	LastError       string             `json:"last_error,omitempty"`

	// ConfirmationPending is set between "wallet reported submitted" and the
	// first terminal poll result. While set, the session must not be closed:
	// money has been sent but the order outcome is unknown.
	ConfirmationPending bool `json:"confirmation_pending"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to the presentation layer while the
// phase machine keeps mutating the original.
func (s *CheckoutSession) Clone() *CheckoutSession {
	cp := *s
	if s.Order != nil {
		order := *s.Order
		if s.Order.Payment.Preparation != nil {
			prep := *s.Order.Payment.Preparation
			order.Payment.Preparation = &prep
		}
		cp.Order = &order
	}
	if s.Quote != nil {
		quote := *s.Quote
		cp.Quote = &quote
	}
	if s.Balance != nil {
		snap := *s.Balance
		snap.Tokens = make([]TokenBalance, len(s.Balance.Tokens))
		copy(snap.Tokens, s.Balance.Tokens)
		for i := range snap.Tokens {
			balances := make(map[string]string, len(snap.Tokens[i].Balances))
			for k, v := range snap.Tokens[i].Balances {
				balances[k] = v
			}
			snap.Tokens[i].Balances = balances
		}
		cp.Balance = &snap
	}
	if s.Receipt != nil {
		receipt := *s.Receipt
		cp.Receipt = &receipt
	}
	return &cp
}
