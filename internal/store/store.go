// Package store provides durable, transactional persistence of specs
// and their auxiliary tables (sync metadata, conflicts, reviews, workflow
// events), plus a synchronously-updated full-text index.
//
// The underlying *sql.DB is opened with WAL mode and a busy timeout,
// capped to one connection to enforce a single-writer model, with a
// versioned migration pass run on open.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"manifold/internal/manifold"
)

// Store is the backing persistence engine. All public operations are
// safe for concurrent use; each top-level write is serialized under mu
// to enforce the single-writer model. Reads take the same mu and the
// pool holds a single connection, so reads are serialized too and do
// not run concurrently with each other or with writes.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	logger *zap.Logger
	lock   *os.File
}

// Open opens (creating if absent) the store at path, acquiring the
// store-root advisory lock and running schema migrations. A second
// process attempting to open the same store fails fast with
// manifold.ErrStoreLocked.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("create store directory: %w", err))
	}

	lock, err := acquireLock(dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		lock.Close()
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("open database: %w", err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, path: path, logger: logger, lock: lock}
	if err := runMigrations(db); err != nil {
		db.Close()
		lock.Close()
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("run migrations: %w", err))
	}

	logger.Info("store opened", zap.String("path", path))
	return s, nil
}

// acquireLock creates dir/.lock exclusively. An existing lock file means
// another process holds the store; the caller must retry, per the
// "fail fast with StoreLocked" (stale locks are not auto-broken).
func acquireLock(dir string) (*os.File, error) {
	lockPath := filepath.Join(dir, ".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, manifold.Wrap(manifold.KindStoreLocked, fmt.Errorf("store locked: %s", lockPath))
		}
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("create lock file: %w", err))
	}
	return f, nil
}

// Close releases the database handle and the store-root lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Close()
	if s.lock != nil {
		lockPath := s.lock.Name()
		s.lock.Close()
		os.Remove(lockPath)
	}
	return err
}

// withTx runs fn inside a serialized *sql.Tx, committing on success and
// rolling back on error or panic. This is the one place every write
// operation (put_spec, resolve_one, advance, conflict/review mutation)
// funnels through, so "all-or-nothing" is structural rather
// than by convention.
func (s *Store) withTx(fn func(tx *sql.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, beginErr := s.db.Begin()
	if beginErr != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("begin transaction: %w", beginErr))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
