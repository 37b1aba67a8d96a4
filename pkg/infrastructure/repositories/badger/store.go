// Package badger stores the ledger in an embedded BadgerDB. Each Update is
// one badger read-write transaction, so lot reads and writes made during a
// consumption are covered by badger's conflict detection.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

// Config holds configuration for a badger-backed store
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM; used by tests
	InMemory bool

	SyncWrites bool

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64

	Logger logrus.FieldLogger
}

// DefaultConfig returns durable settings for a database at path
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for a throwaway database
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts logrus to badger's Logger interface
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Store implements repositories.Store on BadgerDB
type Store struct {
	db     *dgbadger.DB
	logger logrus.FieldLogger
	stopGC chan struct{}
	gcDone chan struct{}
}

var _ repositories.Store = (*Store)(nil)

// Open opens or creates a database
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts dgbadger.Options
	if cfg.InMemory {
		opts = dgbadger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = dgbadger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := logging.OrDiscard(cfg.Logger).WithField("module", "badger")
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens an empty in-memory database
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, dgbadger.ErrNoRewrite) {
				s.logger.WithError(err).Warn("badger value log GC error")
			}
		}
	}
}

// View runs fn in a read-only badger transaction
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.View(func(txn *dgbadger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

// Update runs fn in a read-write badger transaction. A commit that loses a
// conflict with a concurrent transaction returns ErrConcurrentUpdate and
// writes nothing.
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	err := s.db.Update(func(txn *dgbadger.Txn) error {
		return fn(&tx{txn: txn})
	})
	if errors.Is(err, dgbadger.ErrConflict) {
		return fmt.Errorf("%w: %v", entities.ErrConcurrentUpdate, err)
	}
	return err
}

// Close stops GC and closes the database
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	return s.db.Close()
}

// tx adapts a badger transaction to repositories.Tx
type tx struct {
	txn *dgbadger.Txn
}

var _ repositories.Tx = (*tx)(nil)
