// Package store is the MySQL-backed persistence layer: wallet cursors,
// transactions, asset flows, and the token table, written through
// database/sql against the schema in schema.sql. Batch writes are
// idempotent by (owner_user_id, tx_hash): a duplicate-key conflict on a
// transaction is treated as "already recorded", not a failure.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/synnergy-labs/cardano-wallet-sync/core/model"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
)

// Store is the full persistence surface the worker and API adapter need.
type Store struct {
	db *sql.DB
}

// Open connects to a MySQL DSN. The caller owns the returned *sql.DB's
// lifecycle via Store.Close.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, err, "open database")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying *sql.DB so other packages sharing this
// connection pool (core/queue) can open their own statements against it.
func (s *Store) DB() *sql.DB { return s.db }

// --- Wallet -----------------------------------------------------------

// GetWallet returns nil, nil if no row exists yet for (owner, address).
func (s *Store) GetWallet(ctx context.Context, owner, address string) (*model.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, owner_user_id, synced_block_height, last_synced_at, balance_base
		FROM wallets WHERE owner_user_id = ? AND address = ?`, owner, address)
	var w model.Wallet
	var lastSynced sql.NullTime
	var balance string
	if err := row.Scan(&w.Address, &w.OwnerUserID, &w.SyncedBlockHeight, &lastSynced, &balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindTransient, err, "get wallet")
	}
	if lastSynced.Valid {
		w.LastSyncedAt = &lastSynced.Time
	}
	w.BalanceBase, _ = new(big.Int).SetString(balance, 10)
	return &w, nil
}

// EnsureWallet creates the wallet row if absent, returning the existing or
// newly created record. Callers use this before enqueuing the first sync.
func (s *Store) EnsureWallet(ctx context.Context, owner, address string) (*model.Wallet, error) {
	if w, err := s.GetWallet(ctx, owner, address); err != nil {
		return nil, err
	} else if w != nil {
		return w, nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO wallets (address, owner_user_id, synced_block_height, balance_base)
		VALUES (?, ?, 0, '0')`, address, owner)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, err, "insert wallet")
	}
	return s.GetWallet(ctx, owner, address)
}

// UpdateWalletCursor advances the wallet's synced height and balance.
// newHeight is only ever moved forward: if it is behind the stored cursor
// (a stale worker finishing after a newer run), the stored value wins.
func (s *Store) UpdateWalletCursor(ctx context.Context, owner, address string, newHeight uint64, balance *big.Int, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE wallets
		SET synced_block_height = GREATEST(synced_block_height, ?),
		    balance_base = ?,
		    last_synced_at = ?
		WHERE owner_user_id = ? AND address = ?`,
		newHeight, balance.String(), syncedAt, owner, address)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "update wallet cursor")
	}
	return nil
}

// --- Batch transaction + flow persistence ------------------------------

// BatchResult reports how many of a batch's transactions were newly
// inserted versus already present (idempotent re-delivery).
type BatchResult struct {
	Inserted int
	Skipped  int
}

// SaveBatch persists a page of parsed transactions for one wallet inside a
// single transaction. Each transaction's flows are written alongside it;
// a duplicate (owner, tx_hash) is skipped rather than erroring, since the
// worker may reprocess the tail of a previous run after a crash.
func (s *Store) SaveBatch(ctx context.Context, owner string, txs []model.Transaction, flowsByHash map[string][]model.AssetFlow) (BatchResult, error) {
	var result BatchResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, apperrors.Wrap(apperrors.KindTransient, err, "begin batch")
	}
	defer tx.Rollback()

	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		inserted, err := insertTransaction(ctx, tx, owner, t)
		if err != nil {
			return result, err
		}
		if !inserted {
			result.Skipped++
			continue
		}
		result.Inserted++
		for _, f := range flowsByHash[t.TxHash] {
			if err := insertFlow(ctx, tx, t.ID, f); err != nil {
				return result, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return result, apperrors.Wrap(apperrors.KindTransient, err, "commit batch")
	}
	return result, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, owner string, t model.Transaction) (bool, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, owner_user_id, wallet_address, tx_hash, block_height, ts, action, protocol, description, net_ada_change_base, fees_base)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, owner, t.WalletAddress, t.TxHash, t.BlockHeight, t.Timestamp,
		string(t.Action), string(t.Protocol), t.Description, t.NetAdaChangeBase.String(), t.FeesBase.String())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.KindTransient, err, "insert transaction")
	}
	return true, nil
}

func insertFlow(ctx context.Context, tx *sql.Tx, transactionID string, f model.AssetFlow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO asset_flows (transaction_id, token_unit, in_base, out_base, net_base)
		VALUES (?, ?, ?, ?, ?)`,
		transactionID, f.TokenUnit, f.InBase.String(), f.OutBase.String(), f.NetBase.String())
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, "insert asset flow")
	}
	return nil
}

// --- Transaction reads --------------------------------------------------

// ListTransactions returns the wallet's transactions, most recent first.
func (s *Store) ListTransactions(ctx context.Context, owner, address string, limit, offset int) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_user_id, wallet_address, tx_hash, block_height, ts, action, protocol, description, net_ada_change_base, fees_base
		FROM transactions
		WHERE owner_user_id = ? AND wallet_address = ?
		ORDER BY block_height DESC
		LIMIT ? OFFSET ?`, owner, address, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, err, "list transactions")
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var action, protocol, netAda, fees string
		if err := rows.Scan(&t.ID, &t.OwnerUserID, &t.WalletAddress, &t.TxHash, &t.BlockHeight, &t.Timestamp,
			&action, &protocol, &t.Description, &netAda, &fees); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransient, err, "scan transaction")
		}
		t.Action, err = model.ParseAction(action)
		if err != nil {
			return nil, err
		}
		t.Protocol, err = model.ParseProtocol(protocol)
		if err != nil {
			return nil, err
		}
		t.NetAdaChangeBase, _ = new(big.Int).SetString(netAda, 10)
		t.FeesBase, _ = new(big.Int).SetString(fees, 10)
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Token table --------------------------------------------------------

// GetToken satisfies token.Store; nil, nil on miss.
func (s *Store) GetToken(ctx context.Context, unit string) (*model.Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT unit, policy_id, asset_name, name, ticker, decimals, category, logo, metadata
		FROM tokens WHERE unit = ?`, unit)
	var t model.Token
	var metaRaw sql.NullString
	var category string
	if err := row.Scan(&t.Unit, &t.PolicyID, &t.AssetName, &t.Name, &t.Ticker, &t.Decimals, &category, &t.Logo, &metaRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindTransient, err, "get token")
	}
	cat, err := model.ParseTokenCategory(category)
	if err != nil {
		return nil, err
	}
	t.Category = cat
	if metaRaw.Valid && metaRaw.String != "" {
		_ = json.Unmarshal([]byte(metaRaw.String), &t.Metadata)
	}
	return &t, nil
}

// UpsertToken satisfies token.Store. Synthetic records are never written.
func (s *Store) UpsertToken(ctx context.Context, t model.Token) error {
	if t.Synthetic {
		return nil
	}
	var metaRaw []byte
	if len(t.Metadata) > 0 {
		var err error
		metaRaw, err = json.Marshal(t.Metadata)
		if err != nil {
			return apperrors.Wrap(apperrors.KindFatal, err, "marshal token metadata")
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (unit, policy_id, asset_name, name, ticker, decimals, category, logo, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			policy_id = VALUES(policy_id), asset_name = VALUES(asset_name),
			name = VALUES(name), ticker = VALUES(ticker), decimals = VALUES(decimals),
			category = VALUES(category), logo = VALUES(logo), metadata = VALUES(metadata)`,
		t.Unit, t.PolicyID, t.AssetName, t.Name, t.Ticker, t.Decimals, string(t.Category), t.Logo, metaRaw)
	if err != nil {
		return apperrors.Wrap(apperrors.KindTransient, err, fmt.Sprintf("upsert token %s", t.Unit))
	}
	return nil
}
