package warehouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds the warehouse connection parameters.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN renders the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// Warehouse wraps the Postgres warehouse connection. Every storage operation
// runs inside its own transaction scope with commit-or-rollback on all exit
// paths; the underlying pool handles connection lifetime.
type Warehouse struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// New opens a warehouse connection.
func New(cfg Config, log *zap.SugaredLogger) (*Warehouse, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return &Warehouse{db: db, log: log}, nil
}

// NewWithDB wraps an already-open gorm handle. Used by tests and by callers
// that manage the connection themselves.
func NewWithDB(db *gorm.DB, log *zap.SugaredLogger) *Warehouse {
	return &Warehouse{db: db, log: log}
}

// DB exposes the underlying handle for read paths that do not need a
// transaction scope.
func (w *Warehouse) DB() *gorm.DB {
	return w.db
}

// InitSchema applies the bronze and silver DDL. Safe to run on every start:
// all statements are create-if-not-exists.
func (w *Warehouse) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := w.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	w.log.Info("warehouse schema initialized")
	return nil
}

// Exec runs one parameterized statement in its own transaction and returns
// the number of affected rows.
func (w *Warehouse) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(sql, args...)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

// Count runs a single-value COUNT-style query.
func (w *Warehouse) Count(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := w.db.WithContext(ctx).Raw(sql, args...).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the underlying connection pool.
func (w *Warehouse) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
