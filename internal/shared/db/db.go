package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store is the relational store of the API: gorm for the repositories, the
// pgx pool underneath it for health checks.
type Store struct {
	Base *gorm.DB
	Pool *pgxpool.Pool
}

type Options struct {
	DSN        string
	ReplicaDSN string
	Attempts   int
	Log        *zap.Logger
}

// Open connects to Postgres, retrying with backoff while the database comes
// up. Reads go to the replica when one is configured.
func Open(ctx context.Context, opt Options) (*Store, error) {
	if opt.Attempts <= 0 {
		opt.Attempts = 8
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 40
	cfg.MaxConnLifetime = 30 * time.Minute
	// Transaction poolers in front of Postgres do not keep prepared statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sleep := time.Second
	for i := 1; ; i++ {
		err = pingWithTimeout(ctx, pool, 2*time.Second)
		if err == nil {
			break
		}
		if i == opt.Attempts {
			pool.Close()
			return nil, fmt.Errorf("db ping after %d attempts: %w", i, err)
		}
		opt.Log.Warn("db ping failed", zap.Int("attempt", i), zap.Int("attempts", opt.Attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		if sleep < 8*time.Second {
			sleep *= 2
		}
	}

	base, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		PrepareStmt:    false,
		TranslateError: true,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if opt.ReplicaDSN != "" {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(opt.ReplicaDSN)},
			Policy:   dbresolver.RandomPolicy{},
		}).SetMaxOpenConns(20).SetConnMaxLifetime(30 * time.Minute)
		if err := base.Use(resolver); err != nil {
			pool.Close()
			return nil, fmt.Errorf("dbresolver: %w", err)
		}
	}
	if err := base.Use(tracing.NewPlugin()); err != nil {
		opt.Log.Warn("gorm tracing disabled", zap.Error(err))
	}

	return &Store{Base: base, Pool: pool}, nil
}

// Primary forces the next query on the writer, for reads that must see a
// write just made.
func (s *Store) Primary(ctx context.Context) *gorm.DB {
	return s.Base.WithContext(ctx).Clauses(dbresolver.Write)
}

func (s *Store) Ping(ctx context.Context) error {
	return pingWithTimeout(ctx, s.Pool, 2*time.Second)
}

func (s *Store) Close() {
	if sqlDB, err := s.Base.DB(); err == nil {
		_ = sqlDB.Close()
	}
	s.Pool.Close()
}

func pingWithTimeout(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
