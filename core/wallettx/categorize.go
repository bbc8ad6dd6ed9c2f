package wallettx

import (
	"context"

	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// TokenResolver is the capability categorize needs from the token registry:
// resolve a batch of units to their metadata. core/token.Registry.GetMany
// satisfies this.
type TokenResolver interface {
	GetMany(ctx context.Context, units []string) (map[string]model.Token, error)
}

// enrich resolves each flow's token via resolver and pairs them, preserving
// flow order.
func enrich(ctx context.Context, flows []model.AssetFlow, resolver TokenResolver) ([]EnrichedFlow, error) {
	units := make([]string, len(flows))
	for i, f := range flows {
		units[i] = f.TokenUnit
	}
	tokens, err := resolver.GetMany(ctx, units)
	if err != nil {
		return nil, err
	}
	out := make([]EnrichedFlow, len(flows))
	for i, f := range flows {
		out[i] = EnrichedFlow{AssetFlow: f, Token: tokens[f.TokenUnit]}
	}
	return out, nil
}

// categorize resolves token metadata for flows and runs the rule engine,
// returning the enriched flows alongside the chosen action/protocol so
// callers building a description don't need a second resolve pass.
func categorize(ctx context.Context, raw *indexer.RawTx, flows []model.AssetFlow, w string, resolver TokenResolver) ([]EnrichedFlow, model.Action, model.Protocol, error) {
	enriched, err := enrich(ctx, flows, resolver)
	if err != nil {
		return nil, "", "", err
	}
	action, protocol := Categorize(raw, enriched, w)
	return enriched, action, protocol, nil
}
