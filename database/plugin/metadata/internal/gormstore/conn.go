// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gormstore

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	DefaultMaxOpenConns    = 100
	DefaultMaxIdleConns    = 10
	DefaultConnMaxLifetime = time.Hour
)

// Pool bounds the connection pool of a networked SQL store. Zero values
// take the package defaults.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = DefaultMaxOpenConns
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = DefaultMaxIdleConns
	}
	// Idle connections above the open limit would be closed right away
	if p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	return p
}

// GormConfig is the gorm configuration used by every SQL plugin
func GormConfig(prepareStmt bool) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            prepareStmt,
	}
}

// AttachOptions describes how Attach prepares an open gorm handle
type AttachOptions struct {
	Dialect      Dialect
	Pool         Pool
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// StatsName is the db_name label of the connection pool collector
	StatsName string
}

// Attach configures the pool, tracing and pool metrics of an open
// networked database, migrates the schema and returns the store.
func Attach(db *gorm.DB, opts AttachOptions) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	pool := opts.Pool.withDefaults()
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	if opts.PromRegistry != nil && opts.StatsName != "" {
		collector := collectors.NewDBStatsCollector(sqlDB, opts.StatsName)
		if err := opts.PromRegistry.Register(collector); err != nil {
			opts.Logger.Warn(
				"failed to register metadata metrics",
				"component", "database",
				"error", err,
			)
		}
	}
	store := New(db, opts.Dialect)
	if err := store.Migrate(opts.Logger); err != nil {
		return nil, err
	}
	return store, nil
}

// CloseDB closes the connection pool behind a store. A nil store, as left by
// a failed or missing Start, is a no-op.
func CloseDB(s *Store) error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
