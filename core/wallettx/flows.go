// Package wallettx composes the wallet filter, flow calculator,
// categorizer, and transaction parser: the pure, non-suspending core that
// turns one raw indexer transaction into a wallet-relevant record.
package wallettx

import (
	"math/big"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// Filtered is the subset of a raw transaction relevant to one wallet.
type Filtered struct {
	IsRelevant  bool
	Inputs      []indexer.UTXOEntry
	Outputs     []indexer.UTXOEntry
	Withdrawals []indexer.Withdrawal
}

// FilterForWallet keeps only the legs of raw that touch wallet w.
func FilterForWallet(raw *indexer.RawTx, w string) Filtered {
	var f Filtered
	for _, in := range raw.Inputs {
		if in.Address == w {
			f.Inputs = append(f.Inputs, in)
		}
	}
	for _, out := range raw.Outputs {
		if out.Address == w {
			f.Outputs = append(f.Outputs, out)
		}
	}
	for _, wd := range raw.Withdrawals {
		if belongsToWallet(wd, w) {
			f.Withdrawals = append(f.Withdrawals, wd)
		}
	}
	f.IsRelevant = len(f.Inputs) > 0 || len(f.Outputs) > 0 || len(f.Withdrawals) > 0
	return f
}

// belongsToWallet reports whether a stake withdrawal belongs to wallet w by
// comparing the withdrawal's address string with w for equality. It does
// not derive a stake address from the payment address, so a withdrawal
// reported in bech32 stake-address form matches only when w is that same
// stake address string.
func belongsToWallet(wd indexer.Withdrawal, w string) bool {
	return wd.StakeAddress == w
}

// CalculateFlows aggregates per-asset in/out/net across the filtered
// inputs and outputs. Units touched on neither side are dropped; order is
// implementation-defined.
func CalculateFlows(f Filtered) []model.AssetFlow {
	out := make(map[string]*big.Int)
	in := make(map[string]*big.Int)

	for _, inp := range f.Inputs {
		for _, amt := range inp.Amount {
			add(out, amt)
		}
	}
	for _, o := range f.Outputs {
		for _, amt := range o.Amount {
			add(in, amt)
		}
	}

	units := make(map[string]struct{})
	for u := range in {
		units[u] = struct{}{}
	}
	for u := range out {
		units[u] = struct{}{}
	}

	flows := make([]model.AssetFlow, 0, len(units))
	for u := range units {
		inAmt := zeroIfNil(in[u])
		outAmt := zeroIfNil(out[u])
		if inAmt.Sign() == 0 && outAmt.Sign() == 0 {
			continue
		}
		net := new(big.Int).Sub(inAmt, outAmt)
		flows = append(flows, model.AssetFlow{
			TokenUnit: u,
			InBase:    inAmt,
			OutBase:   outAmt,
			NetBase:   net,
		})
	}
	return flows
}

func add(m map[string]*big.Int, amt indexer.AssetAmount) {
	v, ok := new(big.Int).SetString(amt.Quantity, 10)
	if !ok {
		return // malformed quantity: treated as zero contribution, not a fatal error
	}
	if cur, exists := m[amt.Unit]; exists {
		cur.Add(cur, v)
	} else {
		m[amt.Unit] = v
	}
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// NetAdaChange returns the lovelace flow's net change, or zero if ADA was
// not touched.
func NetAdaChange(flows []model.AssetFlow) *big.Int {
	for _, f := range flows {
		if f.TokenUnit == model.LovelaceUnit {
			return f.NetBase
		}
	}
	return big.NewInt(0)
}
