package wallettx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

const wallet = "addr1_wallet"

func TestFilterForWallet(t *testing.T) {
	raw := &indexer.RawTx{
		Hash: "tx1",
		Inputs: []indexer.UTXOEntry{
			{Address: wallet, Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "1000000"}}},
			{Address: "addr1_other", Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "500000"}}},
		},
		Outputs: []indexer.UTXOEntry{
			{Address: "addr1_other", Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "1400000"}}},
			{Address: wallet, Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "90000"}}},
		},
	}

	f := FilterForWallet(raw, wallet)
	require.True(t, f.IsRelevant)
	require.Len(t, f.Inputs, 1)
	require.Len(t, f.Outputs, 1)
	assert.Equal(t, "1000000", f.Inputs[0].Amount[0].Quantity)
}

func TestFilterForWalletIrrelevant(t *testing.T) {
	raw := &indexer.RawTx{
		Hash:    "tx2",
		Inputs:  []indexer.UTXOEntry{{Address: "addr1_other"}},
		Outputs: []indexer.UTXOEntry{{Address: "addr1_other_too"}},
	}
	f := FilterForWallet(raw, wallet)
	assert.False(t, f.IsRelevant)
}

func TestCalculateFlowsSendsADA(t *testing.T) {
	f := Filtered{
		Inputs:  []indexer.UTXOEntry{{Address: wallet, Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "1000000"}}}},
		Outputs: []indexer.UTXOEntry{{Address: wallet, Amount: []indexer.AssetAmount{{Unit: model.LovelaceUnit, Quantity: "400000"}}}},
	}
	flows := CalculateFlows(f)
	require.Len(t, flows, 1)
	assert.Equal(t, model.LovelaceUnit, flows[0].TokenUnit)
	assert.Equal(t, "-600000", flows[0].NetBase.String())
	assert.NoError(t, flows[0].Validate())
}

func TestCalculateFlowsDropsUntouchedUnits(t *testing.T) {
	f := Filtered{}
	flows := CalculateFlows(f)
	assert.Empty(t, flows)
}

func TestCalculateFlowsMultiAsset(t *testing.T) {
	const tokenUnit = "abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234tokenname"
	f := Filtered{
		Inputs: []indexer.UTXOEntry{{Address: wallet, Amount: []indexer.AssetAmount{
			{Unit: model.LovelaceUnit, Quantity: "2000000"},
			{Unit: tokenUnit, Quantity: "50"},
		}}},
		Outputs: []indexer.UTXOEntry{{Address: wallet, Amount: []indexer.AssetAmount{
			{Unit: model.LovelaceUnit, Quantity: "1900000"},
		}}},
	}
	flows := CalculateFlows(f)
	require.Len(t, flows, 2)

	net := NetAdaChange(flows)
	assert.Equal(t, "-100000", net.String())
}
