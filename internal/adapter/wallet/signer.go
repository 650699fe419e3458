package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"stablecoin-checkout/internal/core/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rs/zerolog"
)

// JSON-RPC code wallets use for "user rejected the request" (EIP-1193).
const userRejectedCode = 4001

var declineNeedles = []string{"user denied", "user rejected", "rejected", "denied"}

// Signer implements ports.TransactionSigner. It decodes the processor's
// hex-encoded unsigned settlement transaction, extracts destination, calldata
// and chain id, and submits the call through the buyer's wallet with zero
// native value — the token transfer lives entirely in the calldata.
type Signer struct {
	client ports.WalletClient
	log    zerolog.Logger
}

// NewSigner creates a signer adapter over the given wallet client.
func NewSigner(client ports.WalletClient, log zerolog.Logger) *Signer {
	return &Signer{client: client, log: log}
}

// Submit decodes and submits one settlement transaction, returning exactly
// one terminal outcome. The error return is reserved for context
// cancellation; every wallet-side outcome arrives in the result.
func (s *Signer) Submit(ctx context.Context, serializedTx string) (ports.SubmitResult, error) {
	if !strings.HasPrefix(serializedTx, "0x") {
		serializedTx = "0x" + serializedTx
	}

	raw, err := hexutil.Decode(serializedTx)
	if err != nil {
		return failed("invalid settlement transaction encoding: " + err.Error()), nil
	}

	to, data, chainID, err := decodeTransaction(raw)
	if err != nil {
		return failed("cannot decode settlement transaction: " + err.Error()), nil
	}
	if to == nil {
		return failed("settlement transaction has no destination address"), nil
	}

	call := ports.WalletTransaction{
		To:      to.Hex(),
		Data:    data,
		Value:   big.NewInt(0),
		ChainID: chainID,
	}

	hash, err := s.client.SendTransaction(ctx, call)
	if err != nil {
		if ctx.Err() != nil {
			return ports.SubmitResult{}, ctx.Err()
		}
		if isUserDecline(err) {
			s.log.Info().Msg("wallet submission declined by user")
			return ports.SubmitResult{Status: ports.SubmitDeclined}, nil
		}
		s.log.Warn().Err(err).Msg("wallet submission failed")
		return failed(err.Error()), nil
	}

	event := s.log.Info().
		Str("tx_hash", hash).
		Str("to", call.To)
	if call.ChainID != nil {
		event = event.Str("chain_id", call.ChainID.String())
	}
	event.Msg("settlement transaction submitted")

	return ports.SubmitResult{
		Status:          ports.SubmitSubmitted,
		TransactionHash: hash,
	}, nil
}

// The processor serializes the settlement transaction unsigned: the type byte
// followed by the RLP of the signing fields, no v/r/s. These structs mirror
// that layout per transaction type.
type unsignedDynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList
}

type unsignedAccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList types.AccessList
}

type unsignedLegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
}

// decodeTransaction extracts destination, calldata and chain id from a
// serialized transaction. It accepts the signed wire encoding and falls back
// to the unsigned layout, which is what the processor hands out for the
// wallet to sign. An unsigned pre-EIP-155 legacy payload carries no chain id.
func decodeTransaction(raw []byte) (*common.Address, []byte, *big.Int, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err == nil {
		return tx.To(), tx.Data(), tx.ChainId(), nil
	}

	if len(raw) == 0 {
		return nil, nil, nil, errors.New("empty transaction payload")
	}

	switch {
	case raw[0] == types.DynamicFeeTxType:
		var utx unsignedDynamicFeeTx
		if err := rlp.DecodeBytes(raw[1:], &utx); err != nil {
			return nil, nil, nil, err
		}
		return utx.To, utx.Data, utx.ChainID, nil

	case raw[0] == types.AccessListTxType:
		var utx unsignedAccessListTx
		if err := rlp.DecodeBytes(raw[1:], &utx); err != nil {
			return nil, nil, nil, err
		}
		return utx.To, utx.Data, utx.ChainID, nil

	case raw[0] >= 0xc0: // bare RLP list: legacy transaction
		var utx unsignedLegacyTx
		if err := rlp.DecodeBytes(raw, &utx); err != nil {
			return nil, nil, nil, err
		}
		return utx.To, utx.Data, nil, nil
	}

	return nil, nil, nil, fmt.Errorf("unsupported transaction type %#x", raw[0])
}

func failed(reason string) ports.SubmitResult {
	return ports.SubmitResult{Status: ports.SubmitFailed, Reason: reason}
}

// isUserDecline checks the reserved rejection code first, then falls back to
// the message substrings wallets commonly emit.
func isUserDecline(err error) bool {
	var werr *ports.WalletError
	if errors.As(err, &werr) && werr.Code == userRejectedCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range declineNeedles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
