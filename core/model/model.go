// Package model holds the entities shared across the sync engine: Wallet,
// Transaction, AssetFlow, Token and SyncJob, plus their closed enumerations.
// Amounts are arbitrary-precision base-unit integers and must never be
// represented as binary floats.
package model

import (
	"fmt"
	"math/big"
	"time"
)

// Action is the semantic label for what the wallet did in a transaction.
type Action string

const (
	ActionSend         Action = "send"
	ActionReceive      Action = "receive"
	ActionSwap         Action = "swap"
	ActionSupply       Action = "supply"
	ActionWithdraw     Action = "withdraw"
	ActionClaimRewards Action = "claim_rewards"
	ActionUnknown      Action = "unknown"
)

// validActions is the exhaustiveness table backing Action's DB (de)serialization.
var validActions = map[Action]struct{}{
	ActionSend: {}, ActionReceive: {}, ActionSwap: {}, ActionSupply: {},
	ActionWithdraw: {}, ActionClaimRewards: {}, ActionUnknown: {},
}

// ParseAction converts a stored string into an Action, failing closed on any
// value outside the enumeration instead of silently accepting garbage.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := validActions[a]; !ok {
		return "", fmt.Errorf("model: unknown action %q", s)
	}
	return a, nil
}

// Protocol is the DeFi protocol touched by a transaction, if any.
type Protocol string

const (
	ProtocolMinswap Protocol = "minswap"
	ProtocolLiqwid  Protocol = "liqwid"
	ProtocolUnknown Protocol = "unknown"
)

var validProtocols = map[Protocol]struct{}{
	ProtocolMinswap: {}, ProtocolLiqwid: {}, ProtocolUnknown: {},
}

// ParseProtocol converts a stored string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(s)
	if _, ok := validProtocols[p]; !ok {
		return "", fmt.Errorf("model: unknown protocol %q", s)
	}
	return p, nil
}

// TokenCategory classifies a Token for display and categorization rules.
type TokenCategory string

const (
	CategoryNative      TokenCategory = "native"
	CategoryFungible    TokenCategory = "fungible"
	CategoryLPToken     TokenCategory = "lp_token"
	CategoryQToken      TokenCategory = "q_token"
	CategoryGovernance  TokenCategory = "governance"
	CategoryStablecoin  TokenCategory = "stablecoin"
	CategoryNFT         TokenCategory = "nft"
)

var validCategories = map[TokenCategory]struct{}{
	CategoryNative: {}, CategoryFungible: {}, CategoryLPToken: {},
	CategoryQToken: {}, CategoryGovernance: {}, CategoryStablecoin: {}, CategoryNFT: {},
}

// ParseTokenCategory converts a stored string into a TokenCategory.
func ParseTokenCategory(s string) (TokenCategory, error) {
	c := TokenCategory(s)
	if _, ok := validCategories[c]; !ok {
		return "", fmt.Errorf("model: unknown token category %q", s)
	}
	return c, nil
}

// JobStatus is the SyncJob lifecycle state. See queue.Store for the state
// machine transitions.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

var validJobStatuses = map[JobStatus]struct{}{
	JobPending: {}, JobProcessing: {}, JobCompleted: {}, JobFailed: {}, JobCancelled: {},
}

// ParseJobStatus converts a stored string into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	if _, ok := validJobStatuses[st]; !ok {
		return "", fmt.Errorf("model: unknown job status %q", s)
	}
	return st, nil
}

// LovelaceUnit is the reserved unit identifier for native ADA.
const LovelaceUnit = "lovelace"

// Wallet is the synced state for one (address, owner) pair. Created lazily
// on first sync request; syncedBlockHeight only ever moves forward.
type Wallet struct {
	Address           string
	OwnerUserID       string
	SyncedBlockHeight uint64
	LastSyncedAt      *time.Time
	BalanceBase       *big.Int
}

// Transaction is one wallet-relevant chain transaction. Immutable once
// written; (OwnerUserID, TxHash) is unique.
type Transaction struct {
	ID                string
	OwnerUserID       string
	WalletAddress     string
	TxHash            string
	BlockHeight       uint64
	Timestamp         time.Time
	Action            Action
	Protocol          Protocol
	Description       string
	NetAdaChangeBase  *big.Int
	FeesBase          *big.Int
}

// AssetFlow is one token's net movement within a Transaction for the
// wallet. NetBase = InBase - OutBase always holds.
type AssetFlow struct {
	TransactionID string
	TokenUnit     string
	InBase        *big.Int
	OutBase       *big.Int
	NetBase       *big.Int
}

// Validate checks the flow-conservation invariant from the testable
// properties: net = in - out, in >= 0, out >= 0.
func (f AssetFlow) Validate() error {
	if f.InBase.Sign() < 0 || f.OutBase.Sign() < 0 {
		return fmt.Errorf("model: flow for %s has negative leg (in=%s out=%s)", f.TokenUnit, f.InBase, f.OutBase)
	}
	want := new(big.Int).Sub(f.InBase, f.OutBase)
	if f.NetBase.Cmp(want) != 0 {
		return fmt.Errorf("model: flow for %s violates net=in-out (in=%s out=%s net=%s)", f.TokenUnit, f.InBase, f.OutBase, f.NetBase)
	}
	return nil
}

// Token is the registry's record for one asset unit. unit is the primary
// key; for ADA, unit="lovelace", PolicyID="", AssetName="".
type Token struct {
	Unit      string
	PolicyID  string
	AssetName string
	Name      string
	Ticker    string
	Decimals  int
	Category  TokenCategory
	Logo      string
	Metadata  map[string]string

	// Synthetic marks a placeholder record fabricated by the registry when
	// neither the cache, table, nor indexer had metadata for this unit.
	// Synthetic records are never written back to the Token table.
	Synthetic bool
}

// SyncJob is one unit of queued sync work for a wallet. Created by the API
// adapter; claimed and updated exclusively by the worker and the janitor.
type SyncJob struct {
	ID           string
	WalletAddress string
	UserID       string
	JobType      string
	Status       JobStatus
	Priority     int
	RetryCount   int
	MaxRetries   int
	ScheduledAt  time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// JobTypeWalletSync is the only job type the worker currently processes.
const JobTypeWalletSync = "wallet_sync"
