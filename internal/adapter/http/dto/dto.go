package dto

import (
	"time"

	"stablecoin-checkout/internal/core/domain"
)

// ProductRequest identifies the product being bought.
type ProductRequest struct {
	ASIN      string `json:"asin" binding:"required,max=20"`
	Title     string `json:"title" binding:"max=500"`
	Variant   string `json:"variant" binding:"max=200"`
	Price     string `json:"price" binding:"max=50"`
	Thumbnail string `json:"thumbnail" binding:"max=2000"`
}

// OpenSessionRequest is the request body for opening a checkout session.
type OpenSessionRequest struct {
	Product       ProductRequest `json:"product" binding:"required"`
	WalletAddress string         `json:"wallet_address" binding:"required,max=100"`
}

// OpenSessionResponse returns the new session plus its bearer token.
type OpenSessionResponse struct {
	Session     SessionResponse `json:"session"`
	Token       string          `json:"token"`
	TokenExpiry int64           `json:"token_expiry"` // Unix timestamp
}

// ShippingAddressRequest is the buyer-entered shipping address.
type ShippingAddressRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	Address1   string `json:"address1" binding:"required,max=200"`
	Address2   string `json:"address2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	Province   string `json:"province" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=2"`
}

// DetailsRequest is the request body for submitting buyer details.
type DetailsRequest struct {
	Email           string                 `json:"email" binding:"required,email,max=254"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
}

// SessionResponse is the client-facing view of a checkout session. The
// serialized settlement transaction never appears here; signing happens
// server-side.
type SessionResponse struct {
	ID                  string                  `json:"id"`
	Phase               string                  `json:"phase"`
	Product             ProductResponse         `json:"product"`
	WalletAddress       string                  `json:"wallet_address"`
	Chain               string                  `json:"chain"`
	Currency            string                  `json:"currency"`
	Email               string                  `json:"email,omitempty"`
	ShippingAddress     *ShippingAddressRequest `json:"shipping_address,omitempty"`
	Order               *OrderResponse          `json:"order,omitempty"`
	Quote               *QuoteResponse          `json:"quote,omitempty"`
	Balance             *BalanceResponse        `json:"balance,omitempty"`
	Receipt             *ReceiptResponse        `json:"receipt,omitempty"`
	LastError           string                  `json:"last_error,omitempty"`
	ConfirmationPending bool                    `json:"confirmation_pending"`
	CreatedAt           string                  `json:"created_at"`
	UpdatedAt           string                  `json:"updated_at"`
}

// ProductResponse echoes the product under checkout.
type ProductResponse struct {
	ASIN      string `json:"asin"`
	Title     string `json:"title,omitempty"`
	Variant   string `json:"variant,omitempty"`
	Price     string `json:"price,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// OrderResponse is the client view of the processor order.
type OrderResponse struct {
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	Prepared      bool   `json:"prepared"`
}

// QuoteResponse is the client view of the active quote.
type QuoteResponse struct {
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	QuotedAt  string `json:"quoted_at"`
	ExpiresAt string `json:"expires_at"`
}

// BalanceResponse is the client view of the wallet's balance snapshot.
type BalanceResponse struct {
	Tokens    []TokenBalanceResponse `json:"tokens"`
	FetchedAt string                 `json:"fetched_at"`
}

// TokenBalanceResponse carries one token's per-chain raw balances.
type TokenBalanceResponse struct {
	Token    string            `json:"token"`
	Decimals int32             `json:"decimals"`
	Balances map[string]string `json:"balances"`
}

// ReceiptResponse is the settlement receipt shown after submission.
type ReceiptResponse struct {
	TransactionHash string `json:"transaction_hash"`
	Chain           string `json:"chain"`
	SubmittedAt     string `json:"submitted_at"`
}

// ClosedResponse acknowledges a session teardown.
type ClosedResponse struct {
	Closed bool `json:"closed"`
}

// ToSessionResponse converts a session into its client-facing view.
func ToSessionResponse(s *domain.CheckoutSession) SessionResponse {
	resp := SessionResponse{
		ID:    s.ID.String(),
		Phase: s.Phase.String(),
		Product: ProductResponse{
			ASIN:      s.Product.ASIN,
			Title:     s.Product.Title,
			Variant:   s.Product.Variant,
			Price:     s.Product.Price,
			Thumbnail: s.Product.Thumbnail,
		},
		WalletAddress:       s.WalletAddress,
		Chain:               s.Chain,
		Currency:            s.Currency,
		Email:               s.Email,
		LastError:           s.LastError,
		ConfirmationPending: s.ConfirmationPending,
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           s.UpdatedAt.Format(time.RFC3339),
	}

	if s.ShippingAddress != (domain.ShippingAddress{}) {
		resp.ShippingAddress = &ShippingAddressRequest{
			Name:       s.ShippingAddress.Name,
			Address1:   s.ShippingAddress.Address1,
			Address2:   s.ShippingAddress.Address2,
			City:       s.ShippingAddress.City,
			Province:   s.ShippingAddress.Province,
			PostalCode: s.ShippingAddress.PostalCode,
			Country:    s.ShippingAddress.Country,
		}
	}
	if s.Order != nil {
		resp.Order = &OrderResponse{
			OrderID:       s.Order.OrderID,
			PaymentStatus: s.Order.Payment.Status,
			Prepared:      s.Order.Prepared(),
		}
	}
	if s.Quote != nil {
		resp.Quote = &QuoteResponse{
			Status:    s.Quote.Status,
			Amount:    s.Quote.TotalPrice.Amount,
			Currency:  s.Quote.TotalPrice.Currency,
			QuotedAt:  s.Quote.QuotedAt.Format(time.RFC3339),
			ExpiresAt: s.Quote.ExpiresAt.Format(time.RFC3339),
		}
	}
	if s.Balance != nil {
		balance := &BalanceResponse{
			Tokens:    make([]TokenBalanceResponse, 0, len(s.Balance.Tokens)),
			FetchedAt: s.Balance.FetchedAt.Format(time.RFC3339),
		}
		for _, tb := range s.Balance.Tokens {
			balance.Tokens = append(balance.Tokens, TokenBalanceResponse{
				Token:    tb.Token,
				Decimals: tb.Decimals,
				Balances: tb.Balances,
			})
		}
		resp.Balance = balance
	}
	if s.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			TransactionHash: s.Receipt.TransactionHash,
			Chain:           s.Receipt.Chain,
			SubmittedAt:     s.Receipt.SubmittedAt.Format(time.RFC3339),
		}
	}
	return resp
}
