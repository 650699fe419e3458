package domain

// SettlementPhase is the processor-reported settlement status of an order.
type SettlementPhase string

const (
	SettlementPending   SettlementPhase = "pending"
	SettlementCompleted SettlementPhase = "completed"
	SettlementFailed    SettlementPhase = "failed"
)

// IsTerminal returns true once the processor will not change its answer.
func (p SettlementPhase) IsTerminal() bool {
	return p == SettlementCompleted || p == SettlementFailed
}

// TxPreparation is the unsigned settlement transaction the processor bound to
// an order. Until it is present, finalize is not possible.
type TxPreparation struct {
	SerializedTransaction string `json:"serialized_transaction"`
	PayerAddress          string `json:"payer_address"`
	Chain                 string `json:"chain"`
}

// OrderPayment is the payment leg of a processor order.
type OrderPayment struct {
	Status      string         `json:"status"`
	Preparation *TxPreparation `json:"preparation,omitempty"`
}

// Order is the processor-side record for one checkout. The id is opaque and
// stable for the session.
type Order struct {
	OrderID string       `json:"order_id"`
	Payment OrderPayment `json:"payment"`
}

// Prepared reports whether the processor has bound an unsigned settlement
// transaction to this order.
func (o *Order) Prepared() bool {
	return o != nil && o.Payment.Preparation != nil && o.Payment.Preparation.SerializedTransaction != ""
}
