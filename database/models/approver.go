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

package models

import (
	"errors"
	"time"
)

var ErrApproverNotFound = errors.New("approver not found")

// TransactionApprover is one node of a transaction's approval forest. A root
// carries TransactionID, every other node carries ListID (its parent). A
// leaf carries UserID and, once signed, UserKeyID, Signature and Approved. An
// internal node carries Threshold.
type TransactionApprover struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time `gorm:"index"`
	TransactionID *uint      `gorm:"index"`
	ListID        *uint      `gorm:"index"`
	UserID        *uint      `gorm:"index"`
	Threshold     *uint
	UserKeyID     *uint
	Approved      *bool
	Signature     []byte
	ID            uint `gorm:"primaryKey"`
}

func (TransactionApprover) TableName() string {
	return "transaction_approver"
}

// IsRoot returns true if the node is owned directly by a transaction
func (a *TransactionApprover) IsRoot() bool {
	return a.ListID == nil
}

// IsLeaf returns true if the node is assigned to a user
func (a *TransactionApprover) IsLeaf() bool {
	return a.UserID != nil
}

// IsTree returns true if the node is an internal threshold node
func (a *TransactionApprover) IsTree() bool {
	return a.Threshold != nil
}

// IsSigned returns true if the node's user has submitted a signature
func (a *TransactionApprover) IsSigned() bool {
	return len(a.Signature) > 0
}

// ClearSignature drops any recorded decision
func (a *TransactionApprover) ClearSignature() {
	a.UserKeyID = nil
	a.Signature = nil
	a.Approved = nil
}

// ApproverCriteria selects live approver rows by container and content. The
// container is ListID when set, otherwise the root level of TransactionID.
// Nil UserID or Threshold match rows where that column is NULL.
type ApproverCriteria struct {
	TransactionID *uint
	ListID        *uint
	UserID        *uint
	Threshold     *uint
}
