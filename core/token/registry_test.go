package token

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synnergy-labs/cardano-wallet-sync/core/cache"
	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
)

type fakeStore struct {
	tokens map[string]model.Token
	upserts int
}

func (f *fakeStore) GetToken(ctx context.Context, unit string) (*model.Token, error) {
	if t, ok := f.tokens[unit]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeStore) UpsertToken(ctx context.Context, t model.Token) error {
	f.upserts++
	if f.tokens == nil {
		f.tokens = make(map[string]model.Token)
	}
	f.tokens[t.Unit] = t
	return nil
}

type fakeIndexer struct {
	indexer.Client
	meta map[string]*indexer.TokenMetadata
	hits int
}

func (f *fakeIndexer) FetchTokenMetadata(ctx context.Context, unit string) (*indexer.TokenMetadata, error) {
	f.hits++
	return f.meta[unit], nil
}

func (f *fakeIndexer) FetchTokenMetadataBatch(ctx context.Context, units []string) (map[string]*indexer.TokenMetadata, error) {
	out := make(map[string]*indexer.TokenMetadata, len(units))
	for _, u := range units {
		f.hits++
		out[u] = f.meta[u]
	}
	return out, nil
}

func silentLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestGetLovelaceShortCircuits(t *testing.T) {
	reg, err := New(10, cache.NewSafe(nil, silentLog()), &fakeStore{}, &fakeIndexer{}, silentLog())
	require.NoError(t, err)

	tok, err := reg.Get(context.Background(), model.LovelaceUnit)
	require.NoError(t, err)
	assert.Equal(t, "ADA", tok.Ticker)
}

func TestGetFallsThroughToIndexerAndCaches(t *testing.T) {
	unit := "policyid0000000000000000000000000000000000000000000000assetname"
	idx := &fakeIndexer{meta: map[string]*indexer.TokenMetadata{
		unit: {Unit: unit, Name: "Test Token", Ticker: "TST", Decimals: 6},
	}}
	st := &fakeStore{}
	reg, err := New(10, cache.NewSafe(cache.NewMemory(), silentLog()), st, idx, silentLog())
	require.NoError(t, err)

	tok, err := reg.Get(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, "TST", tok.Ticker)
	assert.Equal(t, 1, idx.hits)
	assert.Equal(t, 1, st.upserts)

	// Second lookup hits the in-process LRU, never the indexer again.
	_, err = reg.Get(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.hits)
}

func TestGetUnknownUnitProducesSyntheticRecord(t *testing.T) {
	unit := "policyid0000000000000000000000000000000000000000000000deadbeef"
	idx := &fakeIndexer{meta: map[string]*indexer.TokenMetadata{}}
	reg, err := New(10, cache.NewSafe(nil, silentLog()), &fakeStore{}, idx, silentLog())
	require.NoError(t, err)

	tok, err := reg.Get(context.Background(), unit)
	require.NoError(t, err)
	assert.True(t, tok.Synthetic)
	assert.Contains(t, tok.Name, "Token")
}

func TestGetManyDedupesAndBatchesMisses(t *testing.T) {
	unitA := "policyid0000000000000000000000000000000000000000000000aaaaaaaa"
	unitB := "policyid0000000000000000000000000000000000000000000000bbbbbbbb"
	idx := &fakeIndexer{meta: map[string]*indexer.TokenMetadata{
		unitA: {Unit: unitA, Ticker: "AAA"},
		unitB: {Unit: unitB, Ticker: "BBB"},
	}}
	reg, err := New(10, cache.NewSafe(nil, silentLog()), &fakeStore{}, idx, silentLog())
	require.NoError(t, err)

	out, err := reg.GetMany(context.Background(), []string{unitA, unitA, unitB, model.LovelaceUnit})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, "AAA", out[unitA].Ticker)
	assert.Equal(t, "BBB", out[unitB].Ticker)
	assert.Equal(t, "ADA", out[model.LovelaceUnit].Ticker)
	assert.Equal(t, 2, idx.hits)
}
