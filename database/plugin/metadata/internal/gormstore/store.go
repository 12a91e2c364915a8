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

// Package gormstore holds the gorm queries shared by the SQL metadata plugins
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dialect selects statement variants where the SQL engines disagree
type Dialect int

const (
	DialectStandard Dialect = iota
	DialectMysql
)

const commitTimestampRowId = 1

// CommitTimestamp represents the table used to track the current commit timestamp
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// Txn wraps a gorm transaction and implements types.Txn
type Txn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func newTxn(db *gorm.DB) *Txn {
	return &Txn{db: db, beginErr: db.Error}
}

func (t *Txn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *Txn) Rollback() error {
	if t.beginErr != nil || t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// MetadataTxn returns the gorm handle bound to this transaction
func (t *Txn) MetadataTxn() *gorm.DB {
	return t.db
}

// Store implements the metadata store operations on top of a gorm handle
type Store struct {
	db      *gorm.DB
	dialect Dialect
}

func New(db *gorm.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction begins a new metadata transaction
func (s *Store) Transaction() types.Txn {
	return newTxn(s.db.Begin())
}

// Migrate creates or updates the table schemas
func (s *Store) Migrate(logger *slog.Logger) error {
	toMigrate := append([]any{&CommitTimestamp{}}, models.MigrateModels...)
	for _, model := range toMigrate {
		logger.Debug(fmt.Sprintf("creating table: %T", model))
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// resolveDB returns the *gorm.DB for the given transaction, or the base
// handle if txn is nil
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	if stx, ok := txn.(*Txn); ok {
		if stx == nil {
			return s.db, nil
		}
		if stx.beginErr != nil {
			return nil, stx.beginErr
		}
		return stx.db, nil
	}
	if provider, ok := txn.(interface{ MetadataTxn() *gorm.DB }); ok {
		if db := provider.MetadataTxn(); db != nil {
			return db, nil
		}
	}
	return nil, types.ErrTxnWrongType
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmpCommitTimestamp CommitTimestamp
	result := s.db.First(&tmpCommitTimestamp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmpCommitTimestamp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	tmpCommitTimestamp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmpCommitTimestamp)
	return result.Error
}
