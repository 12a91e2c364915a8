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
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
)

// TreeStore persists the approval forest. Every method accepts an optional
// transaction; a nil txn runs the call on its own.
type TreeStore interface {
	Transaction(readWrite bool) *database.Txn
	GetApprover(uint, *database.Txn) (*models.TransactionApprover, error)
	GetApproversByTransaction(
		uint, // transactionID
		*uint, // userID
		*database.Txn,
	) ([]models.TransactionApprover, error)
	GetApproverSubtree(uint, *database.Txn) ([]models.TransactionApprover, error)
	GetApproverRoot(uint, *database.Txn) (*models.TransactionApprover, error)
	DeleteApproverSubtree(uint, *database.Txn) (int64, error)
	CountApprovers(models.ApproverCriteria, *database.Txn) (int64, error)
	CreateApprover(*models.TransactionApprover, *database.Txn) error
	UpdateApprover(*models.TransactionApprover, *database.Txn) error
	SetApproverSignatures(
		[]uint, // approver IDs
		uint, // userKeyID
		[]byte, // signature
		bool, // approved
		*database.Txn,
	) (int64, error)
}

// Transactions provides the status, creator and canonical body of a
// transaction and its other participants
type Transactions interface {
	GetTransaction(uint, *database.Txn) (*models.Transaction, error)
	IsSigner(transactionID, userID uint) (bool, error)
	IsObserver(transactionID, userID uint) (bool, error)
}

// KeyRegistry resolves the public keys registered to a user
type KeyRegistry interface {
	ResolveUserKeys(userID uint) ([]models.UserKey, error)
}
