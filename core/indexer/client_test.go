package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*HTTPClient, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewHTTPClient(srv.URL, "test-key", 5*time.Second)
	return c, srv.Close
}

func TestFetchAddressBalanceNotFound(t *testing.T) {
	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	balance, known, err := c.FetchAddressBalance(context.Background(), "addr_missing")
	require.NoError(t, err)
	assert.False(t, known)
	assert.Equal(t, "0", balance.String())
}

func TestFetchAddressBalanceFound(t *testing.T) {
	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(addressResponse{Amount: []AssetAmount{{Unit: "lovelace", Quantity: "7500000"}}})
	})
	defer closeFn()

	balance, known, err := c.FetchAddressBalance(context.Background(), "addr_ok")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, "7500000", balance.String())
}

func TestFetchTokenMetadataLovelaceShortCircuits(t *testing.T) {
	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("lovelace metadata lookup should never hit the network")
	})
	defer closeFn()

	meta, err := c.FetchTokenMetadata(context.Background(), "lovelace")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestFetchTokenMetadataMiss(t *testing.T) {
	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	meta, err := c.FetchTokenMetadata(context.Background(), "someunit")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestGetTreatsServerErrorsAsTransient(t *testing.T) {
	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeFn()

	_, err := c.CurrentBlockHeight(context.Background())
	require.Error(t, err)
}

// TestListTxHashesStopsAtFromBlock exercises the documented descending-pagination
// stop condition: the page containing a height at or below fromBlock is
// truncated and ends the sequence.
func TestListTxHashesStopsAtFromBlock(t *testing.T) {
	var calls int
	pagesOfHeights := [][]int{{140, 130, 120}, {115, 110, 105}, {102, 98, 95}}

	c, closeFn := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		page := pagesOfHeights[calls]
		calls++
		var entries []txHashEntry
		for _, h := range page {
			entries = append(entries, txHashEntry{Hash: hashFor(h), BlockHeight: uint64(h)})
		}
		_ = json.NewEncoder(w).Encode(entries)
	})
	defer closeFn()

	it := c.ListTxHashes(context.Background(), "addr_resume", 100)

	var seen []string
	for {
		page, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, page.Hashes...)
	}

	assert.Equal(t, []string{hashFor(140), hashFor(130), hashFor(120), hashFor(115), hashFor(110), hashFor(105), hashFor(102)}, seen)
	assert.Equal(t, 3, calls)
}

func hashFor(h int) string {
	return "hash_" + string(rune('a'+h%26))
}
