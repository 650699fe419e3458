package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"stablecoin-checkout/internal/core/domain"
)

const balancesPathFmt = "/api/v1-alpha2/wallets/%s/balances?tokens=%s"

// BalanceFetcher implements ports.BalanceFetcher against the processor's
// wallet-balances endpoint.
type BalanceFetcher struct {
	client *Client
	tokens string // comma-separated token filter, e.g. "usdc"
}

// NewBalanceFetcher creates a balance fetcher restricted to the given tokens.
func NewBalanceFetcher(client *Client, tokens string) *BalanceFetcher {
	return &BalanceFetcher{client: client, tokens: tokens}
}

// GetBalances reads the wallet's per-chain raw balances. Decimals come from
// the response; they are never assumed.
func (f *BalanceFetcher) GetBalances(ctx context.Context, walletAddress string) ([]domain.TokenBalance, error) {
	var payload []struct {
		Token    string            `json:"token"`
		Decimals int32             `json:"decimals"`
		Balances map[string]string `json:"balances"`
	}

	path := fmt.Sprintf(balancesPathFmt, url.PathEscape(walletAddress), url.QueryEscape(f.tokens))
	if err := f.client.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	balances := make([]domain.TokenBalance, 0, len(payload))
	for _, entry := range payload {
		balances = append(balances, domain.TokenBalance{
			Token:    entry.Token,
			Decimals: entry.Decimals,
			Balances: entry.Balances,
		})
	}
	return balances, nil
}
