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

package models

import (
	"errors"
	"time"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionStatus is the lifecycle state of a multi-signature transaction
type TransactionStatus string

const (
	TransactionStatusWaitingForSignatures TransactionStatus = "WAITING FOR SIGNATURES"
	TransactionStatusWaitingForExecution  TransactionStatus = "WAITING FOR EXECUTION"
	TransactionStatusExecuted             TransactionStatus = "EXECUTED"
	TransactionStatusExpired              TransactionStatus = "EXPIRED"
	TransactionStatusFailed               TransactionStatus = "FAILED"
	TransactionStatusCanceled             TransactionStatus = "CANCELED"
	TransactionStatusArchived             TransactionStatus = "ARCHIVED"
)

// IsTerminal returns true for statuses after which the transaction can no longer change
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusExecuted,
		TransactionStatusExpired,
		TransactionStatusFailed,
		TransactionStatusCanceled,
		TransactionStatusArchived:
		return true
	default:
		return false
	}
}

// IsApprovable returns true for statuses in which approvers may still sign
func (s TransactionStatus) IsApprovable() bool {
	return s == TransactionStatusWaitingForSignatures ||
		s == TransactionStatusWaitingForExecution
}

// Transaction is the metadata record of a transaction awaiting collection of
// signatures. The canonical body bytes live in the blob store and are attached
// to Body when the record is loaded through the database layer.
type Transaction struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus `gorm:"index;size:32;not null"`
	Body      []byte            `gorm:"-"`
	ID        uint              `gorm:"primaryKey"`
	CreatorID uint              `gorm:"index;not null"`
}

func (Transaction) TableName() string {
	return "transaction"
}

// TransactionSigner records a signature already attached to the transaction
// by one of a user's keys
type TransactionSigner struct {
	CreatedAt     time.Time
	ID            uint `gorm:"primaryKey"`
	TransactionID uint `gorm:"uniqueIndex:idx_signer_unique,priority:1;not null"`
	UserKeyID     uint `gorm:"uniqueIndex:idx_signer_unique,priority:2;not null"`
	UserID        uint `gorm:"index;not null"`
}

func (TransactionSigner) TableName() string {
	return "transaction_signer"
}

// TransactionObserver grants a user read access to a transaction
type TransactionObserver struct {
	CreatedAt     time.Time
	Role          string `gorm:"size:16"`
	ID            uint   `gorm:"primaryKey"`
	TransactionID uint   `gorm:"uniqueIndex:idx_observer_unique,priority:1;not null"`
	UserID        uint   `gorm:"uniqueIndex:idx_observer_unique,priority:2;not null"`
}

func (TransactionObserver) TableName() string {
	return "transaction_observer"
}
