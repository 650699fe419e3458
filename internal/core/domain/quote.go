package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TotalPrice is the processor-quoted price for an order.
type TotalPrice struct {
	Amount   string `json:"amount"` // decimal string, e.g. "12.50"
	Currency string `json:"currency"`
}

// Quote is a time-bounded price commitment issued by the processor. It is
// immutable once received; a new quote supersedes it, it is never mutated.
type Quote struct {
	Status     string     `json:"status"`
	QuotedAt   time.Time  `json:"quoted_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	TotalPrice TotalPrice `json:"total_price"`
}

// Expired reports whether the quote is stale at the given instant. A stale
// quote must never be finalized; the session has to re-quote.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// RawTotal converts the quoted decimal amount into the token's smallest unit
// using the given number of decimals. The conversion always goes decimal→raw;
// raw balances are never converted down to decimals for comparison.
func (q *Quote) RawTotal(decimals int32) (*big.Int, error) {
	amount, err := decimal.NewFromString(q.TotalPrice.Amount)
	if err != nil {
		return nil, fmt.Errorf("parsing quote amount %q: %w", q.TotalPrice.Amount, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative quote amount %q", q.TotalPrice.Amount)
	}
	shifted := amount.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("quote amount %q has more than %d decimal places", q.TotalPrice.Amount, decimals)
	}
	return shifted.BigInt(), nil
}
