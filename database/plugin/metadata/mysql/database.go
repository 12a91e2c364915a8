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

package mysql

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/quorum/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	defaultHost     = "localhost"
	defaultPort     = 3306
	defaultUser     = "root"
	defaultDatabase = "quorum"
	defaultTimeZone = "UTC"

	// mysqlErrUnknownDatabase is returned by the server for a missing schema
	mysqlErrUnknownDatabase = 1049
)

// MetadataStoreMysql stores metadata in MySQL. Recursive queries need
// MySQL 8.0 or later.
type MetadataStoreMysql struct {
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
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(db)
	}
	db.host = cmp.Or(db.host, defaultHost)
	db.user = cmp.Or(db.user, defaultUser)
	db.database = cmp.Or(db.database, defaultDatabase)
	db.timeZone = cmp.Or(db.timeZone, defaultTimeZone)
	if db.port == 0 {
		db.port = defaultPort
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// connString returns the configured DSN, or one built from the individual
// connection options
func (d *MetadataStoreMysql) connString() string {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		return dsn
	}
	cfg := mysql.NewConfig()
	cfg.User = d.user
	cfg.Passwd = d.password
	cfg.Net = "tcp"
	cfg.Addr = d.host + ":" + strconv.FormatUint(uint64(d.port), 10)
	cfg.DBName = d.database
	// Approver and user key rows carry timestamps
	cfg.ParseTime = true
	if loc, err := time.LoadLocation(d.timeZone); err == nil {
		cfg.Loc = loc
	}
	cfg.TLSConfig = d.sslMode
	return cfg.FormatDSN()
}

func openGorm(dsn string) (*gorm.DB, error) {
	return gorm.Open(gormmysql.Open(dsn), gormstore.GormConfig(true))
}

// Start implements the plugin.Plugin interface. A missing schema is created
// before the connection is retried once.
func (d *MetadataStoreMysql) Start() error {
	dsn := d.connString()
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid mysql DSN: %w", err)
	}
	metadataDb, err := openGorm(dsn)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrUnknownDatabase {
		d.logger.Info(
			"creating mysql schema",
			"component", "database",
			"database", cfg.DBName,
		)
		if err := ensureDatabaseExists(cfg); err != nil {
			return err
		}
		metadataDb, err = openGorm(dsn)
	}
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	store, err := gormstore.Attach(
		metadataDb,
		gormstore.AttachOptions{
			Dialect:      gormstore.DialectMysql,
			Pool:         d.pool,
			Logger:       d.logger,
			PromRegistry: d.promRegistry,
			StatsName:    "quorum_metadata_mysql",
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

// ensureDatabaseExists connects without a schema and creates the configured one
func ensureDatabaseExists(cfg *mysql.Config) error {
	if cfg.DBName == "" {
		return errors.New("mysql DSN names no database")
	}
	adminCfg := cfg.Clone()
	adminCfg.DBName = ""
	adminDb, err := openGorm(adminCfg.FormatDSN())
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	name := strings.ReplaceAll(cfg.DBName, "`", "``")
	return adminDb.Exec(
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name),
	).Error
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close releases the connection pool
func (d *MetadataStoreMysql) Close() error {
	return gormstore.CloseDB(d.Store)
}
