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

package database

import (
	"errors"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
)

// GetTransaction returns a transaction record with its canonical body
// loaded from the blob store
func (d *Database) GetTransaction(
	id uint,
	txn *Txn,
) (*models.Transaction, error) {
	txn, release := d.readTxn(txn)
	defer release()
	tx, err := d.metadata.GetTransaction(id, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if body, ok := d.bodies.get(tx.ID); ok {
		tx.Body = body
		return tx, nil
	}
	if txn.Blob() == nil {
		return tx, nil
	}
	body, err := d.blob.Get(txn.Blob(), types.TransactionBodyBlobKey(tx.ID))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return tx, nil
		}
		return nil, err
	}
	tx.Body = body
	// Only committed bodies are cached
	if !txn.ReadWrite() {
		d.bodies.put(tx.ID, body)
	}
	return tx, nil
}

// SetTransaction stores a transaction record and its body in one commit
func (d *Database) SetTransaction(tx *models.Transaction, txn *Txn) error {
	txn, done := d.writeTxn(txn)
	err := d.metadata.SetTransaction(tx, txn.Metadata())
	if err == nil {
		// Readers racing the commit may cache the old body again
		d.bodies.remove(tx.ID)
		id := tx.ID
		txn.OnCommit(func() { d.bodies.remove(id) })
	}
	if err == nil && tx.Body != nil {
		if txn.Blob() == nil {
			err = types.ErrBlobStoreUnavailable
		} else {
			err = d.blob.Set(
				txn.Blob(),
				types.TransactionBodyBlobKey(tx.ID),
				tx.Body,
			)
		}
	}
	return done(err)
}

// SetTransactionStatus moves a transaction to a new status
func (d *Database) SetTransactionStatus(
	id uint,
	status models.TransactionStatus,
	txn *Txn,
) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.SetTransactionStatus(id, status, txn.Metadata()))
}

// IsSigner reports whether a user has already signed the transaction
func (d *Database) IsSigner(transactionID, userID uint) (bool, error) {
	txn, release := d.readTxn(nil)
	defer release()
	return d.metadata.IsSigner(transactionID, userID, txn.Metadata())
}

// AddSigner records a signer of a transaction
func (d *Database) AddSigner(signer *models.TransactionSigner, txn *Txn) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.AddSigner(signer, txn.Metadata()))
}

// IsObserver reports whether a user observes the transaction
func (d *Database) IsObserver(transactionID, userID uint) (bool, error) {
	txn, release := d.readTxn(nil)
	defer release()
	return d.metadata.IsObserver(transactionID, userID, txn.Metadata())
}

// AddObserver records an observer of a transaction
func (d *Database) AddObserver(
	observer *models.TransactionObserver,
	txn *Txn,
) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.AddObserver(observer, txn.Metadata()))
}

// ResolveUserKeys returns the live public keys registered to a user
func (d *Database) ResolveUserKeys(userID uint) ([]models.UserKey, error) {
	txn, release := d.readTxn(nil)
	defer release()
	return d.metadata.GetUserKeys(userID, txn.Metadata())
}

// AddUserKey registers a public key for a user
func (d *Database) AddUserKey(key *models.UserKey, txn *Txn) error {
	txn, done := d.writeTxn(txn)
	return done(d.metadata.AddUserKey(key, txn.Metadata()))
}
