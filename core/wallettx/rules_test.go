package wallettx

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

func flow(unit string, net int64, category model.TokenCategory) EnrichedFlow {
	n := big.NewInt(net)
	in, out := big.NewInt(0), big.NewInt(0)
	if net >= 0 {
		in = n
	} else {
		out = new(big.Int).Neg(n)
	}
	return EnrichedFlow{
		AssetFlow: model.AssetFlow{TokenUnit: unit, InBase: in, OutBase: out, NetBase: n},
		Token:     model.Token{Unit: unit, Category: category},
	}
}

func TestCategorizePureReceive(t *testing.T) {
	raw := &indexer.RawTx{Hash: "tx1"}
	flows := []EnrichedFlow{flow(model.LovelaceUnit, 500000, model.CategoryNative)}
	action, protocol := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionReceive, action)
	assert.Equal(t, model.ProtocolUnknown, protocol)
}

func TestCategorizePureSend(t *testing.T) {
	raw := &indexer.RawTx{Hash: "tx2"}
	flows := []EnrichedFlow{flow(model.LovelaceUnit, -500000, model.CategoryNative)}
	action, _ := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionSend, action)
}

func TestCategorizeSwap(t *testing.T) {
	raw := &indexer.RawTx{Hash: "tx3"}
	flows := []EnrichedFlow{
		flow(model.LovelaceUnit, -10, model.CategoryNative),
		flow("unitA", -200, model.CategoryFungible),
		flow("unitB", 150, model.CategoryFungible),
	}
	action, _ := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionSwap, action)
}

func TestCategorizeStakeWithdrawal(t *testing.T) {
	raw := &indexer.RawTx{
		Hash:        "tx4",
		Withdrawals: []indexer.Withdrawal{{StakeAddress: wallet, AmountBase: "3000000"}},
	}
	flows := []EnrichedFlow{flow(model.LovelaceUnit, 3000000, model.CategoryNative)}
	action, _ := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionClaimRewards, action)
}

func TestCategorizeProtocolSupply(t *testing.T) {
	raw := &indexer.RawTx{Hash: "tx5"}
	qTokenUnit := "34250edd1e9836f5378702fbf9416b709bc140e04f668cc3552b41ccq546f6b656e"
	flows := []EnrichedFlow{
		flow(model.LovelaceUnit, -50000000, model.CategoryNative),
		flow(qTokenUnit, 1000, model.CategoryQToken),
	}
	action, protocol := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionSupply, action)
	assert.Equal(t, model.ProtocolMinswap, protocol)
}

func TestCategorizeUnknownFallback(t *testing.T) {
	raw := &indexer.RawTx{Hash: "tx6"}
	flows := []EnrichedFlow{
		flow("unitA", 10, model.CategoryNFT),
		flow("unitB", -10, model.CategoryNFT),
		flow("unitC", 5, model.CategoryNFT),
	}
	action, _ := Categorize(raw, flows, wallet)
	assert.Equal(t, model.ActionUnknown, action)
}
