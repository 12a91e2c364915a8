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
	"fmt"

	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
)

// SubmitApproval records a user's signed decision on every leaf they hold in
// a transaction's forest. A key that is not registered to the user declines
// the submission without an error.
func (s *Service) SubmitApproval(req ApprovalRequest) (ApprovalResult, error) {
	ret, err := s.submitApproval(req)
	switch {
	case err != nil:
		if KindOf(err) == KindInternal {
			s.metrics.submissions.WithLabelValues(resultError).Inc()
		} else {
			s.metrics.submissions.WithLabelValues(resultRejected).Inc()
		}
		s.logger.Info(
			"approval refused",
			"transaction_id", req.TransactionID,
			"user_id", req.UserID,
			"error", err,
		)
		return ApprovalResult{}, err
	case !ret.Recorded:
		s.metrics.submissions.WithLabelValues(resultDeclined).Inc()
		s.logger.Info(
			"approval declined",
			"transaction_id", req.TransactionID,
			"user_id", req.UserID,
			"reason", ret.Reason,
		)
	default:
		s.metrics.submissions.WithLabelValues(resultOk).Inc()
		s.logger.Info(
			"approval recorded",
			"transaction_id", req.TransactionID,
			"user_id", req.UserID,
			"approved", req.Approved,
			"approvers", len(ret.Updated),
			"effect", ret.Effect.Kind.String(),
		)
	}
	return ret, nil
}

func (s *Service) submitApproval(req ApprovalRequest) (ApprovalResult, error) {
	tx, rows, err := s.visibleApprovers(req.TransactionID, req.UserID)
	if err != nil {
		return ApprovalResult{}, err
	}
	mine := userRows(rows, req.UserID)
	if len(mine) == 0 {
		return ApprovalResult{}, ErrNotAnApprover
	}
	if allSigned(mine) {
		return ApprovalResult{}, ErrAlreadyApproved
	}
	keys, err := s.keys.ResolveUserKeys(req.UserID)
	if err != nil {
		return ApprovalResult{}, err
	}
	var key *models.UserKey
	for i := range keys {
		if keys[i].ID == req.UserKeyID {
			key = &keys[i]
			break
		}
	}
	if key == nil {
		return ApprovalResult{Reason: ErrKeyNotFound}, nil
	}
	if err := s.verifier.Verify(key.PublicKey, tx.Body, req.Signature); err != nil {
		return ApprovalResult{}, fmt.Errorf("%w: %w", ErrSignatureMismatch, err)
	}
	if !tx.Status.IsApprovable() {
		return ApprovalResult{}, ErrTransactionNotApprovable
	}
	var ret ApprovalResult
	txn := s.store.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		// The forest may have changed since it was read for the checks above
		current, err := s.transactions.GetTransaction(req.TransactionID, txn)
		if err != nil {
			return storeError(err)
		}
		if !current.Status.IsApprovable() {
			return ErrTransactionNotApprovable
		}
		userID := req.UserID
		mine, err := s.store.GetApproversByTransaction(req.TransactionID, &userID, txn)
		if err != nil {
			return err
		}
		mine = userRows(mine, req.UserID)
		if len(mine) == 0 {
			return ErrNotAnApprover
		}
		if allSigned(mine) {
			return ErrAlreadyApproved
		}
		ids := make([]uint, 0, len(mine))
		for _, row := range mine {
			ids = append(ids, row.ID)
		}
		if _, err := s.store.SetApproverSignatures(
			ids,
			key.ID,
			req.Signature,
			req.Approved,
			txn,
		); err != nil {
			return err
		}
		forest, err := s.loadForest(req.TransactionID, txn)
		if err != nil {
			return err
		}
		ret = ApprovalResult{
			Recorded: true,
			Updated:  ids,
			Effect: approvalEffect(
				req.TransactionID,
				req.Approved,
				userRows(forest.Rows(), req.UserID),
			),
		}
		return nil
	})
	if err != nil {
		return ApprovalResult{}, err
	}
	return ret, nil
}

// approvalEffect reports a status update for a rejection, or once every leaf
// of the submitting user is approved. Anything else is progress.
func approvalEffect(
	transactionID uint,
	approved bool,
	mine []models.TransactionApprover,
) Effect {
	if !approved || allApproved(mine) {
		return statusEffect(transactionID)
	}
	return updateEffect(transactionID)
}

func allApproved(rows []models.TransactionApprover) bool {
	for _, row := range rows {
		if row.Approved == nil || !*row.Approved {
			return false
		}
	}
	return len(rows) > 0
}

func userRows(
	rows []models.TransactionApprover,
	userID uint,
) []models.TransactionApprover {
	var ret []models.TransactionApprover
	for _, row := range rows {
		if row.UserID != nil && *row.UserID == userID {
			ret = append(ret, row)
		}
	}
	return ret
}

func allSigned(rows []models.TransactionApprover) bool {
	for _, row := range rows {
		if !row.IsSigned() {
			return false
		}
	}
	return true
}
