// Package token implements the tiered token metadata registry: a
// process-local LRU, an optional shared cache, the Token table, and the
// indexer, probed in that order with the first hit winning. "lovelace"
// resolves without any I/O; an indexer miss produces a synthetic,
// non-persisted record so downstream parsing always has a non-nil token.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/cardano-wallet-sync/core/cache"
	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

// Store is the persistence capability the registry needs from the Token
// table: lookup by unit, and upsert-on-conflict when new metadata is
// resolved from the indexer.
type Store interface {
	GetToken(ctx context.Context, unit string) (*model.Token, error) // nil, nil on miss
	UpsertToken(ctx context.Context, t model.Token) error
}

// nativeADA is the fixed record for lovelace; resolved with no I/O.
var nativeADA = model.Token{
	Unit:     model.LovelaceUnit,
	Name:     "Cardano",
	Ticker:   "ADA",
	Decimals: 6,
	Category: model.CategoryNative,
}

// Registry resolves unit -> token info through the tiered lookup described
// in the package doc.
type Registry struct {
	lru   *lru.Cache[string, model.Token]
	cache *cache.Safe
	store Store
	idx   indexer.Client
	log   *logrus.Entry
}

// New builds a Registry with an LRU of the given capacity. cache may wrap a
// nil inner (disables tier 2); store and idx must be non-nil.
func New(lruCapacity int, c *cache.Safe, store Store, idx indexer.Client, log *logrus.Entry) (*Registry, error) {
	l, err := lru.New[string, model.Token](lruCapacity)
	if err != nil {
		return nil, fmt.Errorf("token: build lru: %w", err)
	}
	return &Registry{lru: l, cache: c, store: store, idx: idx, log: log}, nil
}

// Get resolves one unit, short-circuiting on the first hit.
func (r *Registry) Get(ctx context.Context, unit string) (model.Token, error) {
	if unit == model.LovelaceUnit {
		return nativeADA, nil
	}

	if t, ok := r.lru.Get(unit); ok {
		return t, nil
	}

	cacheKey := cache.TokenKeyPrefix + unit
	if raw, ok := r.cache.Get(ctx, cacheKey); ok {
		var t model.Token
		if err := json.Unmarshal(raw, &t); err == nil {
			r.lru.Add(unit, t)
			return t, nil
		}
	}

	if r.store != nil {
		if t, err := r.store.GetToken(ctx, unit); err == nil && t != nil {
			r.lru.Add(unit, *t)
			r.cacheWrite(ctx, unit, *t)
			return *t, nil
		}
	}

	meta, err := r.idx.FetchTokenMetadata(ctx, unit)
	if err != nil {
		return model.Token{}, err
	}
	if meta == nil {
		t := synthetic(unit)
		r.lru.Add(unit, t) // cache the synthetic record to avoid repeat misses this process
		return t, nil
	}

	t := fromIndexer(*meta)
	if r.store != nil {
		if err := r.store.UpsertToken(ctx, t); err != nil {
			r.log.WithError(err).WithField("unit", unit).Warn("token upsert failed")
		}
	}
	r.lru.Add(unit, t)
	r.cacheWrite(ctx, unit, t)
	return t, nil
}

func (r *Registry) cacheWrite(ctx context.Context, unit string, t model.Token) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	r.cache.Set(ctx, cache.TokenKeyPrefix+unit, raw, cache.TokenTTL)
}

// GetMany resolves a batch of units: dedupe, probe all tiers per-unit, then
// fetch the residual misses from the indexer in one batched call.
func (r *Registry) GetMany(ctx context.Context, units []string) (map[string]model.Token, error) {
	out := make(map[string]model.Token, len(units))
	seen := make(map[string]struct{}, len(units))
	var misses []string

	for _, u := range units {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		if u == model.LovelaceUnit {
			out[u] = nativeADA
			continue
		}
		if t, ok := r.lru.Get(u); ok {
			out[u] = t
			continue
		}
		if raw, ok := r.cache.Get(ctx, cache.TokenKeyPrefix+u); ok {
			var t model.Token
			if err := json.Unmarshal(raw, &t); err == nil {
				r.lru.Add(u, t)
				out[u] = t
				continue
			}
		}
		if r.store != nil {
			if t, err := r.store.GetToken(ctx, u); err == nil && t != nil {
				r.lru.Add(u, *t)
				r.cacheWrite(ctx, u, *t)
				out[u] = *t
				continue
			}
		}
		misses = append(misses, u)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := r.idx.FetchTokenMetadataBatch(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, u := range misses {
		meta := fetched[u]
		if meta == nil {
			t := synthetic(u)
			r.lru.Add(u, t)
			out[u] = t
			continue
		}
		t := fromIndexer(*meta)
		if r.store != nil {
			if err := r.store.UpsertToken(ctx, t); err != nil {
				r.log.WithError(err).WithField("unit", u).Warn("token upsert failed")
			}
		}
		r.lru.Add(u, t)
		r.cacheWrite(ctx, u, t)
		out[u] = t
	}
	return out, nil
}

func fromIndexer(meta indexer.TokenMetadata) model.Token {
	return model.Token{
		Unit:      meta.Unit,
		PolicyID:  meta.PolicyID,
		AssetName: meta.AssetName,
		Name:      meta.Name,
		Ticker:    meta.Ticker,
		Decimals:  meta.Decimals,
		Category:  model.CategoryFungible,
		Logo:      meta.Logo,
		Metadata:  meta.Metadata,
	}
}

// synthetic builds the "no metadata known" placeholder: name/ticker derived
// from the first 8 hex chars of the asset name half of the unit.
func synthetic(unit string) model.Token {
	assetNameHex := unit
	if len(unit) > policyIDHexLen {
		assetNameHex = unit[policyIDHexLen:]
	}
	short := assetNameHex
	if len(short) > 8 {
		short = short[:8]
	}
	return model.Token{
		Unit:      unit,
		AssetName: assetNameHex,
		Name:      fmt.Sprintf("Token %s", short),
		Ticker:    strings.ToUpper(short),
		Decimals:  0,
		Category:  model.CategoryFungible,
		Synthetic: true,
	}
}

// policyIDHexLen is the fixed hex length of a Cardano policy ID (28 bytes).
const policyIDHexLen = 56
