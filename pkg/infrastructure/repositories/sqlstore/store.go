// Package sqlstore keeps the ledger in MySQL through gorm. Consumption
// takes row locks on the lots it reads, so concurrent consumers of one
// ingredient queue behind each other instead of overdrawing a lot.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

// MySQL error numbers that mean "another transaction got there first"
const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
)

var errReadOnly = errors.New("sqlstore: write in read-only transaction")

// Config configures the MySQL connection
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          logrus.FieldLogger
}

// Store implements repositories.Store on a gorm database
type Store struct {
	db *gorm.DB
}

var _ repositories.Store = (*Store)(nil)

// Open connects to MySQL. The DSN must set parseTime=true.
func Open(cfg Config) (*Store, error) {
	logger := logging.OrDiscard(cfg.Logger).WithField("module", "sqlstore")
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			LogLevel:      gormlogger.Error,
			SlowThreshold: time.Second,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		logger.WithError(err).Warn("db connected but failed to install otelgorm plugin")
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing gorm handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// View runs fn in a read-only database transaction
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx})
	}, &sql.TxOptions{ReadOnly: true})
}

// Update runs fn in a read-write database transaction. Deadlocks and lock
// wait timeouts are reported as ErrConcurrentUpdate.
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx, writable: true})
	})
	if isMySQLError(err, errDeadlock, errLockWaitTimeout) {
		return fmt.Errorf("%w: %v", entities.ErrConcurrentUpdate, err)
	}
	return err
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isMySQLError(err error, numbers ...uint16) bool {
	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	for _, n := range numbers {
		if myErr.Number == n {
			return true
		}
	}
	return false
}

// tx adapts a gorm transaction to repositories.Tx
type tx struct {
	db       *gorm.DB
	writable bool
}

var _ repositories.Tx = (*tx)(nil)

func (t *tx) checkWritable() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

// first loads one row by primary key. found is false when there is none.
func (t *tx) first(dest any, conds ...any) (found bool, err error) {
	err = t.db.Take(dest, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Truncate empties every table. Used by tests against a scratch database.
func (s *Store) Truncate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, m := range allModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return err
		}
		if err := db.Exec("DELETE FROM " + stmt.Schema.Table).Error; err != nil {
			return fmt.Errorf("failed to empty %s: %w", stmt.Schema.Table, err)
		}
	}
	return nil
}
