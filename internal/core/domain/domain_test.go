package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingAddress_Complete(t *testing.T) {
	addr := ShippingAddress{
		Name:       "Jane Doe",
		Address1:   "1 Main St",
		City:       "Springfield",
		Province:   "IL",
		PostalCode: "62704",
		Country:    "US",
	}
	assert.True(t, addr.Complete())

	// Address2 is optional
	addr.Address2 = ""
	assert.True(t, addr.Complete())

	addr.PostalCode = ""
	assert.False(t, addr.Complete())
}

func TestShippingAddress_Normalized(t *testing.T) {
	addr := ShippingAddress{
		Name:       "Jane Doe",
		Address1:   "1 main st",
		Address2:   "apt 4b",
		City:       "springfield",
		Province:   "il",
		PostalCode: "62704",
		Country:    "us",
	}

	norm := addr.Normalized()
	assert.Equal(t, "JANE DOE", norm.Name)
	assert.Equal(t, "1 MAIN ST", norm.Address1)
	assert.Equal(t, "APT 4B", norm.Address2)
	assert.Equal(t, "SPRINGFIELD", norm.City)
	assert.Equal(t, "IL", norm.Province)
	assert.Equal(t, "US", norm.Country)

	// original untouched
	assert.Equal(t, "springfield", addr.City)
}

func TestQuote_RawTotal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{"two decimal places, six token decimals", "12.50", 6, "12500000", false},
		{"integer amount", "3", 6, "3000000", false},
		{"full precision", "0.000001", 6, "1", false},
		{"zero", "0", 6, "0", false},
		{"eighteen decimals", "1.5", 18, "1500000000000000000", false},
		{"sub-smallest-unit precision", "0.0000001", 6, "", true},
		{"garbage", "12,50", 6, "", true},
		{"negative", "-1.00", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Quote{TotalPrice: TotalPrice{Amount: tt.amount, Currency: "usdc"}}
			raw, err := q.RawTotal(tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw.String())
		})
	}
}

func TestQuote_Expired(t *testing.T) {
	now := time.Now().UTC()
	q := &Quote{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, q.Expired(now))
	assert.False(t, q.Expired(now.Add(time.Minute))) // boundary: not yet past
	assert.True(t, q.Expired(now.Add(time.Minute+time.Second)))
}

func TestTokenBalance_RawFor(t *testing.T) {
	tb := TokenBalance{
		Token:    "usdc",
		Decimals: 6,
		Balances: map[string]string{"base": "12500000"},
	}

	raw, err := tb.RawFor("base")
	require.NoError(t, err)
	assert.Equal(t, "12500000", raw.String())

	// missing chain means zero
	raw, err = tb.RawFor("polygon")
	require.NoError(t, err)
	assert.Equal(t, "0", raw.String())

	tb.Balances["base"] = "not-a-number"
	_, err = tb.RawFor("base")
	assert.Error(t, err)
}

func TestBalanceSnapshot_Covers(t *testing.T) {
	snap := &BalanceSnapshot{
		WalletAddress: "0xabc",
		Tokens: []TokenBalance{
			{Token: "usdc", Decimals: 6, Balances: map[string]string{"base": "12500000"}},
		},
	}

	need := big.NewInt(12500000)
	ok, err := snap.Covers("usdc", "base", need)
	require.NoError(t, err)
	assert.True(t, ok, "equal raw balance is sufficient")

	ok, err = snap.Covers("usdc", "base", big.NewInt(12500001))
	require.NoError(t, err)
	assert.False(t, ok)

	// unknown token covers nothing
	ok, err = snap.Covers("dai", "base", big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrder_Prepared(t *testing.T) {
	var nilOrder *Order
	assert.False(t, nilOrder.Prepared())

	order := &Order{OrderID: "ord_1", Payment: OrderPayment{Status: "awaiting-payment"}}
	assert.False(t, order.Prepared())

	order.Payment.Preparation = &TxPreparation{}
	assert.False(t, order.Prepared(), "empty serialized transaction is not prepared")

	order.Payment.Preparation.SerializedTransaction = "0x02f86b"
	assert.True(t, order.Prepared())
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.True(t, PhaseSuccess.IsTerminal())
	assert.True(t, PhaseError.IsTerminal())
	assert.False(t, PhaseDetails.IsTerminal())
	assert.False(t, PhaseReview.IsTerminal())
	assert.False(t, PhaseSigning.IsTerminal())
	assert.False(t, PhaseProcessing.IsTerminal())
}

func TestCheckoutSession_Clone(t *testing.T) {
	s := &CheckoutSession{
		Phase: PhaseReview,
		Order: &Order{
			OrderID: "ord_1",
			Payment: OrderPayment{Preparation: &TxPreparation{SerializedTransaction: "0x01"}},
		},
		Quote: &Quote{TotalPrice: TotalPrice{Amount: "12.50"}},
		Balance: &BalanceSnapshot{
			Tokens: []TokenBalance{{Token: "usdc", Balances: map[string]string{"base": "1"}}},
		},
	}

	cp := s.Clone()
	cp.Order.OrderID = "changed"
	cp.Quote.TotalPrice.Amount = "0"
	cp.Balance.Tokens[0].Balances["base"] = "999"

	assert.Equal(t, "ord_1", s.Order.OrderID)
	assert.Equal(t, "12.50", s.Quote.TotalPrice.Amount)
	assert.Equal(t, "1", s.Balance.Tokens[0].Balances["base"])
}
