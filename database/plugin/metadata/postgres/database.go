// Copyright 2025 Blink Labs Software
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

package postgres

import (
	"cmp"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blinklabs-io/quorum/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultHost     = "localhost"
	defaultPort     = 5432
	defaultUser     = "quorum"
	defaultDatabase = "quorum"
	defaultSSLMode  = "disable"
	defaultTimeZone = "UTC"
)

// MetadataStorePostgres stores metadata in Postgres.
type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	pool         gormstore.Pool

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
}

// NewWithOptions creates a new database with options. The connection is
// opened by Start.
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	db := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(db)
	}
	db.host = cmp.Or(db.host, defaultHost)
	db.user = cmp.Or(db.user, defaultUser)
	db.database = cmp.Or(db.database, defaultDatabase)
	db.sslMode = cmp.Or(db.sslMode, defaultSSLMode)
	db.timeZone = cmp.Or(db.timeZone, defaultTimeZone)
	if db.port == 0 {
		db.port = defaultPort
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// connString returns the configured DSN, or a keyword/value string built
// from the individual connection options
func (d *MetadataStorePostgres) connString() string {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		return dsn
	}
	var sb strings.Builder
	for _, kv := range [][2]string{
		{"host", d.host},
		{"user", d.user},
		{"password", d.password},
		{"dbname", d.database},
		{"port", strconv.FormatUint(uint64(d.port), 10)},
		{"sslmode", d.sslMode},
		{"TimeZone", d.timeZone},
	} {
		if kv[1] == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(kv[0] + "=" + kv[1])
	}
	return sb.String()
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	metadataDb, err := gorm.Open(
		postgres.Open(d.connString()),
		gormstore.GormConfig(true),
	)
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to postgres metadata store",
		"component", "database",
		"host", d.host,
		"port", d.port,
		"database", d.database,
	)
	store, err := gormstore.Attach(
		metadataDb,
		gormstore.AttachOptions{
			Dialect:      gormstore.DialectStandard,
			Pool:         d.pool,
			Logger:       d.logger,
			PromRegistry: d.promRegistry,
			StatsName:    "quorum_metadata_postgres",
		},
	)
	if err != nil {
		if sqlDB, dbErr := metadataDb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return err
	}
	d.Store = store
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}

// Close releases the connection pool
func (d *MetadataStorePostgres) Close() error {
	return gormstore.CloseDB(d.Store)
}
