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

package database

import (
	"github.com/blinklabs-io/quorum/database/models"
)

// readTxn returns txn, or a new read-only transaction and the func that
// releases it
func (d *Database) readTxn(txn *Txn) (*Txn, func()) {
	if txn != nil {
		return txn, func() {}
	}
	txn = d.Transaction(false)
	return txn, txn.Release
}

// writeTxn returns txn, or a new read-write transaction. The returned done
// func commits an owned transaction when err is nil and releases it otherwise.
func (d *Database) writeTxn(txn *Txn) (*Txn, func(error) error) {
	if txn != nil {
		return txn, func(err error) error { return err }
	}
	txn = d.Transaction(true)
	return txn, func(err error) error {
		if err != nil {
			txn.Release()
			return err
		}
		return txn.Commit()
	}
}

// GetApprover returns a live approver by id
func (d *Database) GetApprover(
	id uint,
	txn *Txn,
) (*models.TransactionApprover, error) {
	txn, release := d.readTxn(txn)
	defer release()
	return d.metadata.GetApprover(id, txn.Metadata())
}

// GetApproversByTransaction returns the flattened live forest of a
// transaction, optionally only the rows owned by userID
func (d *Database) GetApproversByTransaction(
	transactionID uint,
	userID *uint,
	txn *Txn,
) ([]models.TransactionApprover, error) {
	txn, release := d.readTxn(txn)
	defer release()
	return d.metadata.GetApproversByTransaction(
		transactionID,
		userID,
		txn.Metadata(),
	)
}

// GetApproverSubtree returns a live node followed by its live descendants
func (d *Database) GetApproverSubtree(
	id uint,
	txn *Txn,
) ([]models.TransactionApprover, error) {
	txn, release := d.readTxn(txn)
	defer release()
	return d.metadata.GetApproverSubtree(id, txn.Metadata())
}

// GetApproverRoot returns the root that owns a node
func (d *Database) GetApproverRoot(
	id uint,
	txn *Txn,
) (*models.TransactionApprover, error) {
	txn, release := d.readTxn(txn)
	defer release()
	return d.metadata.GetApproverRoot(id, txn.Metadata())
}

// CountApprovers counts live approvers matching criteria
func (d *Database) CountApprovers(
	criteria models.ApproverCriteria,
	txn *Txn,
) (int64, error) {
	txn, release := d.readTxn(txn)
	defer release()
	return d.metadata.CountApprovers(criteria, txn.Metadata())
}

// DeleteApproverSubtree tombstones a node and all of its live descendants
func (d *Database) DeleteApproverSubtree(id uint, txn *Txn) (int64, error) {
	txn, done := d.writeTxn(txn)
	count, err := d.metadata.DeleteApproverSubtree(id, txn.Metadata())
	if err := done(err); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateApprover inserts a new approver
func (d *Database) CreateApprover(
	approver *models.TransactionApprover,
	txn *Txn,
) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.CreateApprover(approver, txn.Metadata()))
}

// UpdateApprover writes every column of an existing approver
func (d *Database) UpdateApprover(
	approver *models.TransactionApprover,
	txn *Txn,
) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.UpdateApprover(approver, txn.Metadata()))
}

// SetApproverSignatures records one decision on every given approver row
func (d *Database) SetApproverSignatures(
	ids []uint,
	userKeyID uint,
	signature []byte,
	approved bool,
	txn *Txn,
) (int64, error) {
	txn, done := d.writeTxn(txn)
	count, err := d.metadata.SetApproverSignatures(
		ids,
		userKeyID,
		signature,
		approved,
		txn.Metadata(),
	)
	if err := done(err); err != nil {
		return 0, err
	}
	return count, nil
}
