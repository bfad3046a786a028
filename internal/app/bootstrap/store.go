package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/leadflow/internal/config"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// Store is an opened lead repository together with its release func.
type Store struct {
	Driver string
	Repo   leads.Repository
	close  func(ctx context.Context) error
}

// Close releases the underlying connection. It is safe on a nil Store.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStore connects the backend named by cfg.StoreDriver and verifies it is
// reachable before returning.
func OpenStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	connectCtx := ctx
	if cfg.StoreConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.StoreConnectTimeout)
		defer cancel()
	}

	switch cfg.StoreDriver {
	case appconfig.StoreMongo, "":
		repo, err := leads.OpenMongo(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			_ = repo.Close(context.Background())
			return nil, err
		}
		logger.Info("lead store connected", "driver", appconfig.StoreMongo, "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return &Store{Driver: appconfig.StoreMongo, Repo: repo, close: repo.Close}, nil

	case appconfig.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres store")
		}
		pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
		}
		if err := pool.Ping(connectCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("lead store connected", "driver", appconfig.StorePostgres)
		return &Store{
			Driver: appconfig.StorePostgres,
			Repo:   leads.NewPostgresRepository(pool),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case appconfig.StoreMemory:
		logger.Warn("using in-memory lead store; data is lost on restart")
		return &Store{Driver: appconfig.StoreMemory, Repo: leads.NewInMemoryRepository()}, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
