package service

import (
	"context"
	"time"

	"stablecoin-checkout/internal/core/domain"
	"stablecoin-checkout/internal/core/ports"

	"github.com/rs/zerolog"
)

// BalanceOracleImpl implements ports.BalanceOracle: a cached view over the
// processor's balance endpoint. Snapshots are fetched whole and replaced
// whole; a stale-but-complete view is always preferred over a partial one.
type BalanceOracleImpl struct {
	fetcher ports.BalanceFetcher
	cache   ports.BalanceCache
	ttl     time.Duration
	log     zerolog.Logger
}

// NewBalanceOracle creates a new BalanceOracleImpl.
func NewBalanceOracle(fetcher ports.BalanceFetcher, cache ports.BalanceCache, ttl time.Duration, log zerolog.Logger) *BalanceOracleImpl {
	return &BalanceOracleImpl{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		log:     log,
	}
}

// Snapshot returns the cached snapshot, fetching a fresh one on a miss. Cache
// read failures degrade to a fetch, never to an error.
func (o *BalanceOracleImpl) Snapshot(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error) {
	snap, err := o.cache.Get(ctx, walletAddress)
	if err != nil {
		o.log.Warn().Err(err).Str("wallet", walletAddress).Msg("balance cache read failed, fetching")
	}
	if snap != nil {
		return snap, nil
	}
	return o.Refresh(ctx, walletAddress)
}

// Refresh re-fetches the wallet's balances and replaces the cached snapshot.
func (o *BalanceOracleImpl) Refresh(ctx context.Context, walletAddress string) (*domain.BalanceSnapshot, error) {
	tokens, err := o.fetcher.GetBalances(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	snap := &domain.BalanceSnapshot{
		WalletAddress: walletAddress,
		Tokens:        tokens,
		FetchedAt:     time.Now().UTC(),
	}

	if err := o.cache.Set(ctx, walletAddress, snap, o.ttl); err != nil {
		// The fresh snapshot is still good; only the cache write failed.
		o.log.Warn().Err(err).Str("wallet", walletAddress).Msg("balance cache write failed")
	}

	return snap, nil
}
