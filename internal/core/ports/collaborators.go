//go:generate mockgen -destination=mocks/mocks.go -package=mocks stablecoin-checkout/internal/core/ports OrderRequestor,OrderStatusPoller,BalanceFetcher,BalanceCache,BalanceOracle,TransactionSigner,WalletClient

package ports

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"stablecoin-checkout/internal/core/domain"
)

// OrderRequestor submits buyer, shipping and product details to the payment
// processor and returns a priced order with its quote. Inputs are already
// validated by the phase machine; the requestor only transport-encodes them.
type OrderRequestor interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, *domain.Quote, error)
}

// CreateOrderRequest carries validated, already-normalized order inputs.
type CreateOrderRequest struct {
	Product       domain.Product
	Email         string
	Address       domain.ShippingAddress
	WalletAddress string
	Chain         string
	Currency      string
}

// OrderStatusPoller queries the processor for settlement confirmation.
type OrderStatusPoller interface {
	PollOrder(ctx context.Context, orderID string) (domain.SettlementPhase, error)
}

// BalanceFetcher reads a wallet's stablecoin balances from the processor.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, walletAddress string) ([]domain.TokenBalance, error)
}

// BalanceCache stores whole balance snapshots. Set replaces the snapshot
// atomically; Get returns nil, nil on a miss.
type BalanceCache interface {
	Get(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error)
	Set(ctx context.Context, walletAddress string, snap *domain.BalanceSnapshot, ttl time.Duration) error
}

// BalanceOracle exposes a refreshable, cached view of a wallet's balances.
type BalanceOracle interface {
	// Snapshot returns the cached snapshot, fetching one if none is cached.
	Snapshot(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error)
	// Refresh re-fetches from the processor and replaces the cached snapshot.
	Refresh(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error)
}

// SubmitStatus is the terminal outcome of one settlement submission.
type SubmitStatus string

const (
	SubmitSubmitted SubmitStatus = "submitted"
	SubmitDeclined  SubmitStatus = "user_declined"
	SubmitFailed    SubmitStatus = "failed"
)

// SubmitResult reports exactly one terminal outcome per submission.
type SubmitResult struct {
	Status          SubmitStatus
	TransactionHash string // set when Status == SubmitSubmitted
	Chain           string
	Reason          string // set when Status == SubmitFailed
}

// TransactionSigner hands the processor's unsigned settlement transaction to
// the buyer's wallet for signing and broadcast. The returned error is reserved
// for context cancellation; wallet outcomes, including failures, arrive in the
// SubmitResult.
type TransactionSigner interface {
	Submit(ctx context.Context, serializedTx string) (SubmitResult, error)
}

// WalletTransaction is the decoded call handed to the wallet. Value is always
// zero: the token transfer is encoded in Data, not as native value.
type WalletTransaction struct {
	To      string
	Data    []byte
	Value   *big.Int
	ChainID *big.Int
}

// WalletClient is the raw wallet boundary. SendTransaction returns the
// broadcast transaction hash, or an error carrying the wallet's rejection.
type WalletClient interface {
	SendTransaction(ctx context.Context, tx WalletTransaction) (string, error)
}

// WalletError preserves the wallet's JSON-RPC error code alongside its
// message so rejections can be classified.
type WalletError struct {
	Code    int
	Message string
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet error %d: %s", e.Code, e.Message)
}
