package wallettx

import (
	"context"
	"math/big"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// Parsed is one wallet-relevant transaction ready for persistence: the
// Transaction has no ID/OwnerUserID set yet (the store layer stamps those),
// and Flows are keyed to TokenUnit rather than a TransactionID.
type Parsed struct {
	Transaction model.Transaction
	Flows       []model.AssetFlow
}

// Parse turns one raw chain transaction into a Parsed record for wallet w,
// or nil if the transaction never touches w. It composes FilterForWallet,
// CalculateFlows and categorize: the full C2+C3+C4 pipeline for a single
// transaction.
func Parse(ctx context.Context, raw *indexer.RawTx, w string, resolver TokenResolver) (*Parsed, error) {
	filtered := FilterForWallet(raw, w)
	if !filtered.IsRelevant {
		return nil, nil
	}

	flows := CalculateFlows(filtered)
	enriched, action, protocol, err := categorize(ctx, raw, flows, w, resolver)
	if err != nil {
		return nil, err
	}

	fees, ok := parseBigOrZero(raw.FeesBase)
	_ = ok

	tx := model.Transaction{
		WalletAddress:    w,
		TxHash:           raw.Hash,
		BlockHeight:      raw.BlockHeight,
		Timestamp:        raw.BlockTime,
		Action:           action,
		Protocol:         protocol,
		Description:      Describe(action, protocol, enriched),
		NetAdaChangeBase: NetAdaChange(flows),
		FeesBase:         fees,
	}

	return &Parsed{Transaction: tx, Flows: flows}, nil
}

func parseBigOrZero(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0), false
	}
	return v, true
}
