// Package indexer is the HTTP client for the upstream chain-indexer API:
// paginated transaction-hash listing, transaction detail, address balance
// and UTXOs, current tip, and token metadata. Transient errors (5xx,
// timeout, network) propagate to the caller; a 404 on a balance/exists
// lookup means "unknown address" and returns a zero/false result, not an
// error.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

const pageSize = 100

// Client is the capability set the rest of the engine depends on. Injected
// at construction so callers never reach for a concrete HTTP type.
type Client interface {
	ListTxHashes(ctx context.Context, address string, fromBlock uint64) PageIterator
	FetchTxDetail(ctx context.Context, hash string) (*RawTx, error)
	FetchAddressUTXOs(ctx context.Context, address string) ([]UTXOEntry, error)
	FetchAddressBalance(ctx context.Context, address string) (balance *big.Int, known bool, err error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	FetchTokenMetadata(ctx context.Context, unit string) (*TokenMetadata, error)
	FetchTokenMetadataBatch(ctx context.Context, units []string) (map[string]*TokenMetadata, error)
}

// PageIterator pulls successive pages of transaction hashes. It is finite
// and not restartable: once exhausted, a fresh call to ListTxHashes is
// required. Cancelling ctx stops pulling further pages.
type PageIterator interface {
	// Next returns the next page. ok is false once the sequence is
	// exhausted (including the stop condition on incremental sync); err is
	// non-nil only on a genuine fetch failure.
	Next(ctx context.Context) (page HashPage, ok bool, err error)
}

// HTTPClient talks to the indexer over HTTP+JSON with an API-key header and
// paces its own requests with a fixed token-bucket limiter (10 requests per
// second, burst 10). Rate-limit hints returned by the server, such as a
// Retry-After header, are not read; a 429 is returned as a transient error.
type HTTPClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a Client against baseURL, authenticating with apiKey
// and bounding each call to timeout.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
		// Conservative default; FetchTokenMetadataBatch additionally throttles
		// between sub-batches per the registry's own contract.
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) (status int, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindFatal, err, "build indexer request")
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, apperrors.Transient(err, "indexer request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, apperrors.Transient(fmt.Errorf("status %d", resp.StatusCode), "indexer returned server error")
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, apperrors.Validation(fmt.Sprintf("indexer rejected request: status %d", resp.StatusCode))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperrors.Wrap(apperrors.KindTransient, err, "decode indexer response")
		}
	}
	return resp.StatusCode, nil
}

// --- ListTxHashes ------------------------------------------------------

type txHashEntry struct {
	Hash        string `json:"tx_hash"`
	BlockHeight uint64 `json:"block_height"`
}

type pageIterator struct {
	c         *HTTPClient
	address   string
	fromBlock uint64
	page      int
	done      bool
}

func (c *HTTPClient) ListTxHashes(ctx context.Context, address string, fromBlock uint64) PageIterator {
	return &pageIterator{c: c, address: address, fromBlock: fromBlock, page: 1}
}

func (it *pageIterator) Next(ctx context.Context) (HashPage, bool, error) {
	if it.done {
		return HashPage{}, false, nil
	}

	order := "asc"
	if it.fromBlock > 0 {
		order = "desc"
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(it.page))
	q.Set("count", strconv.Itoa(pageSize))
	q.Set("order", order)

	var entries []txHashEntry
	if _, err := it.c.get(ctx, "/addresses/"+url.PathEscape(it.address)+"/transactions", q, &entries); err != nil {
		return HashPage{}, false, err
	}
	if len(entries) == 0 {
		it.done = true
		return HashPage{}, false, nil
	}
	it.page++

	page := HashPage{BlockHeights: make(map[string]uint64, len(entries))}
	if it.fromBlock == 0 {
		for _, e := range entries {
			page.Hashes = append(page.Hashes, e.Hash)
			page.BlockHeights[e.Hash] = e.BlockHeight
		}
		return page, true, nil
	}

	// Descending order: stop at (and truncate) the first page containing a
	// block at or below fromBlock, yielding only the strictly-greater hashes.
	stopHere := false
	for _, e := range entries {
		if e.BlockHeight <= it.fromBlock {
			stopHere = true
			continue
		}
		page.Hashes = append(page.Hashes, e.Hash)
		page.BlockHeights[e.Hash] = e.BlockHeight
	}
	if stopHere {
		it.done = true
	}
	if len(page.Hashes) == 0 {
		return HashPage{}, false, nil
	}
	return page, true, nil
}

// --- FetchTxDetail -------------------------------------------------------

type rawUTXO struct {
	Address        string        `json:"address"`
	Amount         []AssetAmount `json:"amount"`
	TxHash         string        `json:"tx_hash"`
	OutputIndex    int           `json:"output_index"`
	Collateral     bool          `json:"collateral"`
	Datum          string        `json:"data_hash"`
	ReferenceScript string       `json:"reference_script_hash"`
}

type txUTXOsResponse struct {
	Hash    string    `json:"hash"`
	Inputs  []rawUTXO `json:"inputs"`
	Outputs []rawUTXO `json:"outputs"`
}

type txDetailResponse struct {
	Hash        string `json:"hash"`
	BlockHash   string `json:"block"`
	BlockHeight uint64 `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
	Slot        uint64 `json:"slot"`
	Fees        string `json:"fees"`
}

type withdrawalResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (c *HTTPClient) FetchTxDetail(ctx context.Context, hash string) (*RawTx, error) {
	var detail txDetailResponse
	if _, err := c.get(ctx, "/txs/"+url.PathEscape(hash), nil, &detail); err != nil {
		return nil, err
	}

	var utxos txUTXOsResponse
	if _, err := c.get(ctx, "/txs/"+url.PathEscape(hash)+"/utxos", nil, &utxos); err != nil {
		return nil, err
	}

	var withdrawals []withdrawalResponse
	if _, err := c.get(ctx, "/txs/"+url.PathEscape(hash)+"/withdrawals", nil, &withdrawals); err != nil {
		return nil, err
	}

	raw := &RawTx{
		Hash:        detail.Hash,
		BlockHash:   detail.BlockHash,
		BlockHeight: detail.BlockHeight,
		BlockTime:   time.Unix(detail.BlockTime, 0).UTC(),
		Slot:        detail.Slot,
		FeesBase:    detail.Fees,
	}
	for _, in := range utxos.Inputs {
		if in.Collateral {
			continue // collateral legs are excluded and may lack an address
		}
		raw.Inputs = append(raw.Inputs, toEntry(in))
	}
	for _, out := range utxos.Outputs {
		if out.Collateral {
			continue
		}
		raw.Outputs = append(raw.Outputs, toEntry(out))
	}
	for _, w := range withdrawals {
		raw.Withdrawals = append(raw.Withdrawals, Withdrawal{StakeAddress: w.Address, AmountBase: w.Amount})
	}
	return raw, nil
}

func toEntry(u rawUTXO) UTXOEntry {
	return UTXOEntry{
		Address:     u.Address,
		Amount:      u.Amount,
		RefTxHash:   u.TxHash,
		OutputIndex: u.OutputIndex,
		Datum:       u.Datum,
		ScriptHash:  u.ReferenceScript,
	}
}

// --- UTXOs / balance / tip ------------------------------------------------

func (c *HTTPClient) FetchAddressUTXOs(ctx context.Context, address string) ([]UTXOEntry, error) {
	var raw []rawUTXO
	if _, err := c.get(ctx, "/addresses/"+url.PathEscape(address)+"/utxos", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]UTXOEntry, 0, len(raw))
	for _, u := range raw {
		out = append(out, toEntry(u))
	}
	return out, nil
}

type addressResponse struct {
	Amount []AssetAmount `json:"amount"`
}

func (c *HTTPClient) FetchAddressBalance(ctx context.Context, address string) (*big.Int, bool, error) {
	var resp addressResponse
	status, err := c.get(ctx, "/addresses/"+url.PathEscape(address), nil, &resp)
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return big.NewInt(0), false, nil
	}
	for _, a := range resp.Amount {
		if a.Unit == "lovelace" {
			v, ok := new(big.Int).SetString(a.Quantity, 10)
			if !ok {
				return nil, false, apperrors.Wrap(apperrors.KindTransient, fmt.Errorf("bad quantity %q", a.Quantity), "parse balance")
			}
			return v, true, nil
		}
	}
	return big.NewInt(0), true, nil
}

type tipResponse struct {
	Height uint64 `json:"height"`
}

func (c *HTTPClient) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	var resp tipResponse
	if _, err := c.get(ctx, "/blocks/latest", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// --- Token metadata --------------------------------------------------------

type assetResponse struct {
	Asset         string            `json:"asset"`
	PolicyID      string            `json:"policy_id"`
	AssetName     string            `json:"asset_name"`
	Metadata      *assetMetaBlock   `json:"metadata"`
	OnchainMeta   map[string]string `json:"onchain_metadata"`
}

type assetMetaBlock struct {
	Name     string `json:"name"`
	Ticker   string `json:"ticker"`
	Decimals int    `json:"decimals"`
	Logo     string `json:"logo"`
}

func (c *HTTPClient) FetchTokenMetadata(ctx context.Context, unit string) (*TokenMetadata, error) {
	if unit == "lovelace" {
		return nil, nil
	}
	var resp assetResponse
	status, err := c.get(ctx, "/assets/"+url.PathEscape(unit), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || resp.Metadata == nil {
		return nil, nil
	}
	return &TokenMetadata{
		Unit:      unit,
		PolicyID:  resp.PolicyID,
		AssetName: resp.AssetName,
		Name:      resp.Metadata.Name,
		Ticker:    resp.Metadata.Ticker,
		Decimals:  resp.Metadata.Decimals,
		Logo:      resp.Metadata.Logo,
		Metadata:  resp.OnchainMeta,
	}, nil
}

// subBatchSize and interBatchDelay implement the upstream rate-limit
// courtesy contract: ~10 units per request burst, ~100ms between bursts.
const (
	subBatchSize    = 10
	interBatchDelay = 100 * time.Millisecond
)

func (c *HTTPClient) FetchTokenMetadataBatch(ctx context.Context, units []string) (map[string]*TokenMetadata, error) {
	out := make(map[string]*TokenMetadata, len(units))
	for i := 0; i < len(units); i += subBatchSize {
		end := i + subBatchSize
		if end > len(units) {
			end = len(units)
		}
		for _, u := range units[i:end] {
			meta, err := c.FetchTokenMetadata(ctx, u)
			if err != nil {
				return nil, err
			}
			out[u] = meta
		}
		if end < len(units) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}
	}
	return out, nil
}
