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

package approval

import (
	"github.com/blinklabs-io/quorum/database/models"
)

// VisibleApprovers returns the flattened forest of a transaction if viewerID
// may see it. Finalized transactions are visible to anyone.
func (s *Service) VisibleApprovers(
	transactionID uint,
	viewerID uint,
) ([]models.TransactionApprover, error) {
	_, rows, err := s.visibleApprovers(transactionID, viewerID)
	return rows, err
}

func (s *Service) visibleApprovers(
	transactionID uint,
	viewerID uint,
) (*models.Transaction, []models.TransactionApprover, error) {
	// Read the transaction and its forest from one snapshot
	txn := s.store.Transaction(false)
	tx, err := s.transactions.GetTransaction(transactionID, txn)
	if err != nil {
		txn.Release()
		return nil, nil, storeError(err)
	}
	rows, err := s.store.GetApproversByTransaction(transactionID, nil, txn)
	txn.Release()
	if err != nil {
		return nil, nil, err
	}
	if tx.Status.IsTerminal() || tx.CreatorID == viewerID {
		return tx, rows, nil
	}
	for _, row := range rows {
		if row.UserID != nil && *row.UserID == viewerID {
			return tx, rows, nil
		}
	}
	signer, err := s.transactions.IsSigner(transactionID, viewerID)
	if err != nil {
		return nil, nil, err
	}
	if signer {
		return tx, rows, nil
	}
	observer, err := s.transactions.IsObserver(transactionID, viewerID)
	if err != nil {
		return nil, nil, err
	}
	if observer {
		return tx, rows, nil
	}
	return nil, nil, ErrUnauthorizedView
}
