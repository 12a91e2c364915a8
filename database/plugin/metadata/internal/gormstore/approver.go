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
	"time"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	"gorm.io/gorm"
)

// liveApprover is the tombstone predicate applied at every read boundary
const liveApprover = "deleted_at IS NULL"

func live(db *gorm.DB) *gorm.DB {
	return db.Where(liveApprover)
}

// Descent from every root of a transaction. UNION (not UNION ALL) stops the
// recursion should a corrupted parent chain ever loop.
const sqlApproversByTransaction = `
WITH RECURSIVE approver_tree AS (
	SELECT * FROM transaction_approver
	WHERE transaction_id = ? AND list_id IS NULL AND ` + liveApprover + `
	UNION
	SELECT child.* FROM transaction_approver child
	JOIN approver_tree parent ON child.list_id = parent.id
	WHERE child.` + liveApprover + `
)
SELECT * FROM approver_tree`

const sqlApproverSubtree = `
WITH RECURSIVE approver_tree AS (
	SELECT * FROM transaction_approver
	WHERE id = ? AND ` + liveApprover + `
	UNION
	SELECT child.* FROM transaction_approver child
	JOIN approver_tree parent ON child.list_id = parent.id
	WHERE child.` + liveApprover + `
)
SELECT * FROM approver_tree ORDER BY id`

const sqlApproverRoot = `
WITH RECURSIVE approver_path AS (
	SELECT * FROM transaction_approver
	WHERE id = ? AND ` + liveApprover + `
	UNION
	SELECT parent.* FROM transaction_approver parent
	JOIN approver_path child ON parent.id = child.list_id
	WHERE parent.` + liveApprover + `
)
SELECT * FROM approver_path
WHERE list_id IS NULL AND transaction_id IS NOT NULL
LIMIT 1`

const sqlDoomedSubtree = `
WITH RECURSIVE doomed AS (
	SELECT id FROM transaction_approver
	WHERE id = ? AND ` + liveApprover + `
	UNION
	SELECT child.id FROM transaction_approver child
	JOIN doomed parent ON child.list_id = parent.id
	WHERE child.` + liveApprover + `
)`

const sqlDeleteSubtree = sqlDoomedSubtree + `
UPDATE transaction_approver SET deleted_at = ?, updated_at = ?
WHERE id IN (SELECT id FROM doomed) AND ` + liveApprover

// MySQL refuses to update a table that a subquery in the same statement reads
const sqlDeleteSubtreeMysql = sqlDoomedSubtree + `
UPDATE transaction_approver AS a JOIN doomed d ON a.id = d.id
SET a.deleted_at = ?, a.updated_at = ?
WHERE a.` + liveApprover

// GetApprover returns a live approver by id
func (s *Store) GetApprover(
	id uint,
	txn types.Txn,
) (*models.TransactionApprover, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.TransactionApprover
	result := live(db).Where("id = ?", id).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrApproverNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetApproversByTransaction returns the flattened live forest of a
// transaction in one query, optionally filtered to rows owned by userID
func (s *Store) GetApproversByTransaction(
	transactionID uint,
	userID *uint,
	txn types.Txn,
) ([]models.TransactionApprover, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := sqlApproversByTransaction
	args := []any{transactionID}
	if userID != nil {
		query += " WHERE user_id = ?"
		args = append(args, *userID)
	}
	query += " ORDER BY id"
	var ret []models.TransactionApprover
	if result := db.Raw(query, args...).Scan(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetApproverSubtree returns a live node and all of its live descendants
func (s *Store) GetApproverSubtree(
	id uint,
	txn types.Txn,
) ([]models.TransactionApprover, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TransactionApprover
	if result := db.Raw(sqlApproverSubtree, id).Scan(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetApproverRoot walks up from a node to the root that owns it. It returns
// models.ErrApproverNotFound when the node is missing or its chain is broken.
func (s *Store) GetApproverRoot(
	id uint,
	txn types.Txn,
) (*models.TransactionApprover, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TransactionApprover
	if result := db.Raw(sqlApproverRoot, id).Scan(&ret); result.Error != nil {
		return nil, result.Error
	}
	if len(ret) == 0 {
		return nil, models.ErrApproverNotFound
	}
	return &ret[0], nil
}

// DeleteApproverSubtree tombstones a node and every live descendant in one
// statement and returns the number of rows marked
func (s *Store) DeleteApproverSubtree(id uint, txn types.Txn) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := sqlDeleteSubtree
	if s.dialect == DialectMysql {
		query = sqlDeleteSubtreeMysql
	}
	now := time.Now().UTC()
	result := db.Exec(query, id, now, now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountApprovers counts live approvers in one container matching userID and
// threshold, where a nil value matches NULL
func (s *Store) CountApprovers(
	criteria models.ApproverCriteria,
	txn types.Txn,
) (int64, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	query := live(db.Model(&models.TransactionApprover{}))
	switch {
	case criteria.ListID != nil:
		query = query.Where("list_id = ?", *criteria.ListID)
	case criteria.TransactionID != nil:
		query = query.Where(
			"list_id IS NULL AND transaction_id = ?",
			*criteria.TransactionID,
		)
	default:
		return 0, errors.New("approver criteria needs a list or transaction")
	}
	if criteria.UserID != nil {
		query = query.Where("user_id = ?", *criteria.UserID)
	} else {
		query = query.Where("user_id IS NULL")
	}
	if criteria.Threshold != nil {
		query = query.Where("threshold = ?", *criteria.Threshold)
	} else {
		query = query.Where("threshold IS NULL")
	}
	var count int64
	if result := query.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// CreateApprover inserts a new approver and populates its ID
func (s *Store) CreateApprover(
	approver *models.TransactionApprover,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(approver).Error
}

// UpdateApprover writes every column of an existing approver
func (s *Store) UpdateApprover(
	approver *models.TransactionApprover,
	txn types.Txn,
) error {
	if approver.ID == 0 {
		return models.ErrApproverNotFound
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Select("*").Save(approver)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrApproverNotFound
	}
	return nil
}

// SetApproverSignatures records one signature on each of the given live rows
func (s *Store) SetApproverSignatures(
	ids []uint,
	userKeyID uint,
	signature []byte,
	approved bool,
	txn types.Txn,
) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := live(db.Model(&models.TransactionApprover{})).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"user_key_id": userKeyID,
			"signature":   signature,
			"approved":    approved,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
