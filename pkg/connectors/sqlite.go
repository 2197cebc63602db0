// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SqliteConnector hands out gorm handles bound to the caller's context.
// The catalog is small and local, so sqlite is the only backing store.
type SqliteConnector interface {
	DB(ctx context.Context) *gorm.DB
	Close() error
}

type sqliteConnector struct {
	db *gorm.DB
}

// NewSqliteConnector opens (creating if needed) the sqlite database at path.
// Use ":memory:" for an ephemeral database in tests.
func NewSqliteConnector(path string) (SqliteConnector, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	return &sqliteConnector{db: db}, nil
}

func (c *sqliteConnector) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c *sqliteConnector) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
