package domain

import (
	"fmt"
	"math/big"
	"time"
)

// TokenBalance holds the per-chain raw balances of one token for a wallet.
// Decimals always come from the processor response; clients must never
// hardcode them. Raw (smallest-unit integer) values are authoritative —
// display values are derived and never compared.
type TokenBalance struct {
	Token    string            `json:"token"`
	Decimals int32             `json:"decimals"`
	Balances map[string]string `json:"balances"` // chain -> raw amount
}

// RawFor returns the raw integer balance on the given chain. A missing chain
// entry means zero.
func (b TokenBalance) RawFor(chain string) (*big.Int, error) {
	raw, ok := b.Balances[chain]
	if !ok || raw == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid raw balance %q for chain %q", raw, chain)
	}
	return v, nil
}

// BalanceSnapshot is one atomic read of a wallet's balances. Snapshots are
// replaced whole; readers never observe a partially updated one.
type BalanceSnapshot struct {
	WalletAddress string         `json:"wallet_address"`
	Tokens        []TokenBalance `json:"tokens"`
	FetchedAt     time.Time      `json:"fetched_at"`
}

// Token returns the balance entry for the given token symbol, or nil.
func (s *BalanceSnapshot) Token(symbol string) *TokenBalance {
	if s == nil {
		return nil
	}
	for i := range s.Tokens {
		if s.Tokens[i].Token == symbol {
			return &s.Tokens[i]
		}
	}
	return nil
}

// Covers reports whether the snapshot's raw balance for token on chain is at
// least need. Equal is sufficient. The comparison is always integer; there is
// no float path.
func (s *BalanceSnapshot) Covers(token, chain string, need *big.Int) (bool, error) {
	tb := s.Token(token)
	if tb == nil {
		return false, nil
	}
	have, err := tb.RawFor(chain)
	if err != nil {
		return false, err
	}
	return have.Cmp(need) >= 0, nil
}
