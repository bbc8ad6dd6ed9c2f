// Package bootstrap wires the engine's concrete dependencies (indexer
// client, database, cache, token registry, job queue) from a loaded Config,
// so the API server and the worker/janitor CLI share one construction path
// instead of duplicating it.
package bootstrap

import (
	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/cardano-wallet-sync/core/cache"
	"github.com/synnergy-labs/cardano-wallet-sync/core/indexer"
	"github.com/synnergy-labs/cardano-wallet-sync/core/queue"
	"github.com/synnergy-labs/cardano-wallet-sync/core/store"
	"github.com/synnergy-labs/cardano-wallet-sync/core/token"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/apperrors"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/config"
)

// tokenLRUCapacity bounds the process-local tier of the token registry.
const tokenLRUCapacity = 4096

// Deps holds every shared, long-lived dependency the worker and API
// processes need.
type Deps struct {
	Config   *config.Config
	Log      *logrus.Entry
	Indexer  indexer.Client
	Store    *store.Store
	Cache    *cache.Safe
	Registry *token.Registry
	Queue    queue.SyncStore
}

// Build constructs every dependency from cfg. Closing is the caller's
// responsibility via Deps.Store.Close.
func Build(cfg *config.Config, log *logrus.Entry) (*Deps, error) {
	idx := indexer.NewHTTPClient(cfg.Indexer.URL, cfg.Indexer.APIKey, cfg.Indexer.Timeout)

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	var inner cache.Cache
	if cfg.Cache.URL != "" {
		inner = cache.NewRedis(cfg.Cache.URL)
	}
	safeCache := cache.NewSafe(inner, log.WithField("component", "cache"))

	registry, err := token.New(tokenLRUCapacity, safeCache, st, idx, log.WithField("component", "token_registry"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, err, "build token registry")
	}

	return &Deps{
		Config:   cfg,
		Log:      log,
		Indexer:  idx,
		Store:    st,
		Cache:    safeCache,
		Registry: registry,
		Queue:    queue.NewStore(st.DB(), cfg.Worker.MaxRetries),
	}, nil
}
