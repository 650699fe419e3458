package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stablecoin-checkout/internal/core/domain"
	"stablecoin-checkout/internal/core/ports"

	"github.com/rs/zerolog"
)

const ordersPath = "/api/2022-06-09/orders"

// createOrderPayload is the processor's order-creation wire format.
type createOrderPayload struct {
	Recipient recipientPayload `json:"recipient"`
	Locale    string           `json:"locale"`
	Payment   paymentPayload   `json:"payment"`
	LineItems []lineItemEntry  `json:"lineItems"`
}

type recipientPayload struct {
	Email           string          `json:"email"`
	PhysicalAddress physicalAddress `json:"physicalAddress"`
}

type physicalAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	State      string `json:"state"`
}

type paymentPayload struct {
	ReceiptEmail string `json:"receiptEmail"`
	Method       string `json:"method"`
	Currency     string `json:"currency"`
	PayerAddress string `json:"payerAddress"`
}

type lineItemEntry struct {
	ProductLocator string `json:"productLocator"`
}

type orderEnvelope struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	OrderID string       `json:"orderId"`
	Quote   quotePayload `json:"quote"`
	Payment orderPayment `json:"payment"`
}

type quotePayload struct {
	Status     string    `json:"status"`
	QuotedAt   time.Time `json:"quotedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	TotalPrice struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"totalPrice"`
}

type orderPayment struct {
	Status      string `json:"status"`
	Preparation *struct {
		SerializedTransaction string `json:"serializedTransaction"`
		PayerAddress          string `json:"payerAddress"`
		Chain                 string `json:"chain"`
	} `json:"preparation,omitempty"`
}

// OrderRequestor implements ports.OrderRequestor against the processor's
// order-creation endpoint. It transport-encodes already-validated inputs and
// does not re-check business rules.
type OrderRequestor struct {
	client *Client
	log    zerolog.Logger
}

// NewOrderRequestor creates an order requestor on a shared processor client.
func NewOrderRequestor(client *Client, log zerolog.Logger) *OrderRequestor {
	return &OrderRequestor{client: client, log: log}
}

// CreateOrder submits the order and returns the processor's order and quote.
func (r *OrderRequestor) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, *domain.Quote, error) {
	payload := createOrderPayload{
		Recipient: recipientPayload{
			Email: req.Email,
			PhysicalAddress: physicalAddress{
				Name:       req.Address.Name,
				Line1:      req.Address.Address1,
				Line2:      req.Address.Address2,
				City:       req.Address.City,
				PostalCode: req.Address.PostalCode,
				Country:    req.Address.Country,
				State:      req.Address.Province,
			},
		},
		Locale: "en-US",
		Payment: paymentPayload{
			ReceiptEmail: req.Email,
			Method:       req.Chain,
			Currency:     req.Currency,
			PayerAddress: req.WalletAddress,
		},
		LineItems: []lineItemEntry{{ProductLocator: req.Product.Locator()}},
	}

	var envelope orderEnvelope
	if err := r.client.do(ctx, http.MethodPost, ordersPath, payload, &envelope); err != nil {
		return nil, nil, err
	}

	order, quote := envelope.Order.toDomain()
	r.log.Info().
		Str("order_id", order.OrderID).
		Str("payment_status", order.Payment.Status).
		Bool("prepared", order.Prepared()).
		Msg("processor order created")

	return order, quote, nil
}

func (p orderPayload) toDomain() (*domain.Order, *domain.Quote) {
	order := &domain.Order{
		OrderID: p.OrderID,
		Payment: domain.OrderPayment{Status: p.Payment.Status},
	}
	if p.Payment.Preparation != nil {
		order.Payment.Preparation = &domain.TxPreparation{
			SerializedTransaction: p.Payment.Preparation.SerializedTransaction,
			PayerAddress:          p.Payment.Preparation.PayerAddress,
			Chain:                 p.Payment.Preparation.Chain,
		}
	}
	quote := &domain.Quote{
		Status:    p.Quote.Status,
		QuotedAt:  p.Quote.QuotedAt,
		ExpiresAt: p.Quote.ExpiresAt,
		TotalPrice: domain.TotalPrice{
			Amount:   p.Quote.TotalPrice.Amount,
			Currency: p.Quote.TotalPrice.Currency,
		},
	}
	return order, quote
}

// StatusPoller implements ports.OrderStatusPoller against the processor's
// order-status endpoint.
type StatusPoller struct {
	client *Client
}

// NewStatusPoller creates a status poller on a shared processor client.
func NewStatusPoller(client *Client) *StatusPoller {
	return &StatusPoller{client: client}
}

// PollOrder fetches the order's current settlement phase. Anything the
// processor reports that is not terminal maps to pending.
func (p *StatusPoller) PollOrder(ctx context.Context, orderID string) (domain.SettlementPhase, error) {
	var status struct {
		Phase string `json:"phase"`
	}
	path := fmt.Sprintf("%s/%s", ordersPath, url.PathEscape(orderID))
	if err := p.client.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return "", err
	}

	switch domain.SettlementPhase(status.Phase) {
	case domain.SettlementCompleted:
		return domain.SettlementCompleted, nil
	case domain.SettlementFailed:
		return domain.SettlementFailed, nil
	default:
		return domain.SettlementPending, nil
	}
}
