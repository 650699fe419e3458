package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stablecoin-checkout/config"
	"stablecoin-checkout/internal/core/ports"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

// RPCWalletClient implements ports.WalletClient against a JSON-RPC wallet
// endpoint (a local signer or a wallet bridge). The endpoint holds the keys;
// this process never sees them.
type RPCWalletClient struct {
	endpoint   string
	from       string // optional sender account; empty lets the wallet choose
	httpClient *http.Client
	log        zerolog.Logger
}

// NewRPCWalletClient creates a wallet client for the configured endpoint.
func NewRPCWalletClient(cfg config.WalletConfig, log zerolog.Logger) *RPCWalletClient {
	return &RPCWalletClient{
		endpoint:   cfg.RPCURL,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type sendTransactionParams struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
	ChainID string `json:"chainId,omitempty"`
}

// SendTransaction submits the call via eth_sendTransaction and returns the
// broadcast transaction hash. Wallet rejections come back as *WalletError so
// the signer can classify them.
func (c *RPCWalletClient) SendTransaction(ctx context.Context, tx ports.WalletTransaction) (string, error) {
	params := sendTransactionParams{
		From:  c.from,
		To:    tx.To,
		Data:  hexutil.Encode(tx.Data),
		Value: hexutil.EncodeBig(tx.Value),
	}
	if tx.ChainID != nil {
		params.ChainID = hexutil.EncodeBig(tx.ChainID)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_sendTransaction",
		Params:  []any{params},
	})
	if err != nil {
		return "", fmt.Errorf("encoding rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("wallet rpc: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("decoding rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return "", &ports.WalletError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	var hash string
	if err := json.Unmarshal(rpcResp.Result, &hash); err != nil {
		return "", fmt.Errorf("decoding transaction hash: %w", err)
	}

	c.log.Debug().
		Str("tx_hash", hash).
		Dur("latency", time.Since(start)).
		Msg("wallet rpc send succeeded")

	return hash, nil
}
