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
	"errors"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	"gorm.io/gorm"
)

// GetTransaction returns the metadata row of a transaction. The body is kept
// in the blob store.
func (s *Store) GetTransaction(
	id uint,
	txn types.Txn,
) (*models.Transaction, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Transaction
	result := db.Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// SetTransaction inserts a transaction, or overwrites it when the ID exists
func (s *Store) SetTransaction(tx *models.Transaction, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if tx.ID == 0 {
		return db.Create(tx).Error
	}
	return db.Save(tx).Error
}

// SetTransactionStatus moves a transaction to a new status
func (s *Store) SetTransactionStatus(
	id uint,
	status models.TransactionStatus,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTransactionNotFound
	}
	return nil
}

// IsSigner reports whether the user has signed the transaction with any key
func (s *Store) IsSigner(
	transactionID, userID uint,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.Model(&models.TransactionSigner{}).
		Where("transaction_id = ? AND user_id = ?", transactionID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// AddSigner records a signer of a transaction
func (s *Store) AddSigner(
	signer *models.TransactionSigner,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(signer).Error
}

// IsObserver reports whether the user observes the transaction
func (s *Store) IsObserver(
	transactionID, userID uint,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.Model(&models.TransactionObserver{}).
		Where("transaction_id = ? AND user_id = ?", transactionID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// AddObserver records an observer of a transaction
func (s *Store) AddObserver(
	observer *models.TransactionObserver,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(observer).Error
}

// GetUserKeys returns the live keys registered to a user
func (s *Store) GetUserKeys(
	userID uint,
	txn types.Txn,
) ([]models.UserKey, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.UserKey
	result := db.Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddUserKey registers a public key for a user
func (s *Store) AddUserKey(key *models.UserKey, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(key).Error
}
