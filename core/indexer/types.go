package indexer

import "time"

// UTXOEntry is one input or output leg of a raw transaction, or a standalone
// listed UTXO. Collateral-only legs (which can lack a payment Address) are
// filtered out by the client before this struct is populated.
type UTXOEntry struct {
	Address     string
	Amount      []AssetAmount
	RefTxHash   string
	OutputIndex int
	Datum       string
	ScriptHash  string
}

// AssetAmount is one unit's quantity carried by a UTXOEntry, in base units.
type AssetAmount struct {
	Unit     string
	Quantity string // decimal string, arbitrary precision
}

// Withdrawal is a stake-reward withdrawal attached to a transaction.
type Withdrawal struct {
	StakeAddress string
	AmountBase   string
}

// RawTx is the full detail of one transaction as returned by FetchTxDetail.
type RawTx struct {
	Hash        string
	BlockHash   string
	BlockHeight uint64
	BlockTime   time.Time
	Slot        uint64
	FeesBase    string // decimal string
	Inputs      []UTXOEntry
	Outputs     []UTXOEntry
	Withdrawals []Withdrawal
}

// TokenMetadata is the indexer's view of an asset, prior to registry
// enrichment.
type TokenMetadata struct {
	Unit      string
	PolicyID  string
	AssetName string
	Name      string
	Ticker    string
	Decimals  int
	Logo      string
	Metadata  map[string]string
}

// HashPage is one page of transaction hashes, in the order described by
// Client.ListTxHashes: descending when resuming from a known block,
// ascending for a full history pull.
type HashPage struct {
	Hashes       []string
	BlockHeights map[string]uint64 // hash -> block height, for the stop condition
}
