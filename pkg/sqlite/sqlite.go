// Package sqlite is a gorm-backed db.Store for single-node deployments.
// All access goes through one pooled connection, so transactions are
// serialized and shift locks need no extra work.
package sqlite

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// Store implements db.Store with gorm and SQLite
type Store struct {
	gormQueries
}

var (
	_ db.Store = (*Store)(nil)
	_ db.Tx    = (*gormTx)(nil)
)

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&eventRecord{}, &roleRecord{}, &shiftRecord{}, &bookingRecord{}, &userRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &Store{gormQueries: gormQueries{db: gdb}}, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sqlite connection: %w", err)
	}
	return sqlDB.Close()
}

// InTx runs fn in a gorm transaction, rolling back when fn fails
func (s *Store) InTx(ctx context.Context, fn func(tx db.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{gormQueries: gormQueries{db: tx}})
	})
}

// gormTx is a db.Tx bound to one gorm transaction
type gormTx struct {
	gormQueries
}

// LockShift reads the shift. The single connection already excludes other writers.
func (t *gormTx) LockShift(ctx context.Context, id string) (*model.Shift, error) {
	return t.GetShift(ctx, id)
}

// Lock is a no-op for the same reason
func (t *gormTx) Lock(ctx context.Context, key string) error {
	return nil
}
