package wallettx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

type fakeResolver struct {
	tokens map[string]model.Token
}

func (f *fakeResolver) GetMany(ctx context.Context, units []string) (map[string]model.Token, error) {
	out := make(map[string]model.Token, len(units))
	for _, u := range units {
		if t, ok := f.tokens[u]; ok {
			out[u] = t
			continue
		}
		out[u] = model.Token{Unit: u, Category: model.CategoryFungible}
	}
	return out, nil
}

func TestParseIrrelevantTransactionReturnsNil(t *testing.T) {
	raw := &indexer.RawTx{
		Hash:    "tx_irrelevant",
		Inputs:  []indexer.UTXOEntry{{Address: "addr1_someone_else"}},
		Outputs: []indexer.UTXOEntry{{Address: "addr1_also_someone_else"}},
	}
	parsed, err := Parse(context.Background(), raw, wallet, &fakeResolver{})
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestParseReceiveTransaction(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	raw := &indexer.RawTx{
		Hash:        "tx_receive",
		BlockHeight: 1000,
		BlockTime:   now,
		FeesBase:    "170000",
		Outputs: []indexer.UTXOEntry{
			{Address: wallet, Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "2000000"}}},
		},
	}
	parsed, err := Parse(context.Background(), raw, wallet, &fakeResolver{})
	require.NoError(t, err)
	require.NotNil(t, parsed)

	assert.Equal(t, model.ActionReceive, parsed.Transaction.Action)
	assert.Equal(t, wallet, parsed.Transaction.WalletAddress)
	assert.Equal(t, uint64(1000), parsed.Transaction.BlockHeight)
	assert.Equal(t, "2000000", parsed.Transaction.NetAdaChangeBase.String())
	assert.Contains(t, parsed.Transaction.Description, "Received")
	require.Len(t, parsed.Flows, 1)
}

func TestParseSwapTransactionDescription(t *testing.T) {
	unitA := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaunitA"
	unitB := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbunitB"
	raw := &indexer.RawTx{
		Hash: "tx_swap",
		Inputs: []indexer.UTXOEntry{
			{Address: wallet, Amount: []indexer.AssetAmount{
				{Unit: model.LovelaceUnit, Quantity: "5000000"},
				{Unit: unitA, Quantity: "100"},
			}},
		},
		Outputs: []indexer.UTXOEntry{
			{Address: wallet, Amount: []indexer.AssetAmount{
				{Unit: model.LovelaceUnit, Quantity: "4800000"},
				{Unit: unitB, Quantity: "80"},
			}},
		},
	}
	resolver := &fakeResolver{tokens: map[string]model.Token{
		unitA: {Unit: unitA, Ticker: "TKA", Decimals: 0, Category: model.CategoryFungible},
		unitB: {Unit: unitB, Ticker: "TKB", Decimals: 0, Category: model.CategoryFungible},
	}}
	parsed, err := Parse(context.Background(), raw, wallet, resolver)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, model.ActionSwap, parsed.Transaction.Action)
	assert.Contains(t, parsed.Transaction.Description, "Swapped")
	assert.Contains(t, parsed.Transaction.Description, "TKA")
	assert.Contains(t, parsed.Transaction.Description, "TKB")
}
