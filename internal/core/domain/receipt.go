package domain

import "time"

// SettlementReceipt is the opaque record of a broadcast settlement
// transaction. Per-field transaction details (gas used, block number, ...)
// are incidental display data and deliberately not modeled.
type SettlementReceipt struct {
	TransactionHash string    `json:"transaction_hash"`
	Chain           string    `json:"chain"`
	SubmittedAt     time.Time `json:"submitted_at"`
}
