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
	"errors"
	"slices"

	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
)

// CreateApprovers adds one or more approver trees to a transaction. Each spec
// is created under its ListID when set, otherwise as a new root. Either every
// node is created or none is.
func (s *Service) CreateApprovers(
	callerID uint,
	transactionID uint,
	specs []ApproverSpec,
) ([]models.TransactionApprover, Effect, error) {
	var created []models.TransactionApprover
	effect := noEffect()
	err := s.createApprovers(callerID, transactionID, specs, &created, &effect)
	s.recordMutation("create", err)
	if err != nil {
		return nil, noEffect(), err
	}
	s.logger.Debug(
		"created approvers",
		"transaction_id", transactionID,
		"user_id", callerID,
		"count", len(created),
	)
	return created, effect, nil
}

func (s *Service) createApprovers(
	callerID uint,
	transactionID uint,
	specs []ApproverSpec,
	created *[]models.TransactionApprover,
	effect *Effect,
) error {
	if len(specs) == 0 {
		return ErrEmptyApprover
	}
	for _, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return err
		}
	}
	txn := s.store.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		if _, err := s.editableTransaction(transactionID, callerID, txn); err != nil {
			return err
		}
		forest, err := s.loadForest(transactionID, txn)
		if err != nil {
			return err
		}
		wasComplete := forest.Complete()
		for _, spec := range specs {
			if spec.ListID != nil {
				parent, err := s.resolveParent(forest, *spec.ListID, txn)
				if err != nil {
					return err
				}
				if !parent.IsTree() {
					return ErrParentNotTree
				}
			}
			if err := s.createNode(txn, forest, transactionID, spec, spec.ListID, created); err != nil {
				return err
			}
		}
		*effect = mutationEffect(transactionID, wasComplete, forest)
		return nil
	})
}

// validateSpec checks the shape of a spec and its children before anything
// is written
func validateSpec(spec ApproverSpec) error {
	children := len(spec.Approvers)
	if spec.UserID == nil && spec.Threshold == nil && children == 0 {
		return ErrEmptyApprover
	}
	if spec.UserID != nil && children > 0 {
		return ErrUserOrTreeConflict
	}
	if children > 0 && spec.Threshold == nil {
		return ErrThresholdRequired
	}
	if spec.Threshold != nil {
		if children == 0 {
			return ErrChildrenRequired
		}
		if *spec.Threshold < 1 || int(*spec.Threshold) > children {
			return ErrThresholdRange
		}
	}
	for _, child := range spec.Approvers {
		if err := validateSpec(child); err != nil {
			return err
		}
	}
	return nil
}

// createNode inserts spec below parentID, or as a root of transactionID when
// parentID is nil, followed by its children
func (s *Service) createNode(
	txn *database.Txn,
	forest *Forest,
	transactionID uint,
	spec ApproverSpec,
	parentID *uint,
	created *[]models.TransactionApprover,
) error {
	node := models.TransactionApprover{
		UserID:    spec.UserID,
		Threshold: spec.Threshold,
	}
	criteria := models.ApproverCriteria{}
	if parentID != nil {
		id := *parentID
		node.ListID = &id
		criteria.ListID = &id
	} else {
		id := transactionID
		node.TransactionID = &id
		criteria.TransactionID = &id
	}
	// Only user leaves are checked for duplicates
	if node.IsLeaf() {
		criteria.UserID = node.UserID
		count, err := s.store.CountApprovers(criteria, txn)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateApprover
		}
		// A user added again inherits their earlier decision
		for _, leaf := range forest.UserLeaves(*node.UserID) {
			if !leaf.IsSigned() {
				continue
			}
			node.Signature = slices.Clone(leaf.Signature)
			if leaf.UserKeyID != nil {
				keyID := *leaf.UserKeyID
				node.UserKeyID = &keyID
			}
			if leaf.Approved != nil {
				approved := *leaf.Approved
				node.Approved = &approved
			}
			break
		}
	}
	if err := s.store.CreateApprover(&node, txn); err != nil {
		return err
	}
	forest.put(node)
	*created = append(*created, node)
	for _, child := range spec.Approvers {
		if err := s.createNode(txn, forest, transactionID, child, &node.ID, created); err != nil {
			return err
		}
	}
	return nil
}

// resolveParent returns a node that must belong to the forest's transaction
func (s *Service) resolveParent(
	forest *Forest,
	id uint,
	txn *database.Txn,
) (*models.TransactionApprover, error) {
	if node := forest.Node(id); node != nil {
		return node, nil
	}
	root, err := s.store.GetApproverRoot(id, txn)
	if err != nil {
		if errors.Is(err, models.ErrApproverNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	if root.TransactionID == nil || *root.TransactionID != forest.TransactionID() {
		return nil, ErrRootMismatch
	}
	// Reachable from this transaction but not yet indexed
	return nil, ErrParentNotFound
}

// resolveNode returns a node of the forest, telling a missing node apart from
// one owned by another transaction
func (s *Service) resolveNode(
	forest *Forest,
	id uint,
	txn *database.Txn,
) (*models.TransactionApprover, error) {
	if node := forest.Node(id); node != nil {
		return node, nil
	}
	if _, err := s.store.GetApprover(id, txn); err != nil {
		return nil, storeError(err)
	}
	return nil, ErrRootMismatch
}

// UpdateApprover changes exactly one of the parent, threshold or user of a
// node
func (s *Service) UpdateApprover(
	callerID uint,
	transactionID uint,
	nodeID uint,
	update ApproverUpdate,
) (*models.TransactionApprover, Effect, error) {
	var ret *models.TransactionApprover
	effect := noEffect()
	err := s.updateApprover(callerID, transactionID, nodeID, update, &ret, &effect)
	s.recordMutation("update", err)
	if err != nil {
		return nil, noEffect(), err
	}
	s.logger.Debug(
		"updated approver",
		"transaction_id", transactionID,
		"approver_id", nodeID,
		"user_id", callerID,
	)
	return ret, effect, nil
}

func (s *Service) updateApprover(
	callerID uint,
	transactionID uint,
	nodeID uint,
	update ApproverUpdate,
	ret **models.TransactionApprover,
	effect *Effect,
) error {
	if update.fields() != 1 {
		return ErrInvalidUpdate
	}
	txn := s.store.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		if _, err := s.editableTransaction(transactionID, callerID, txn); err != nil {
			return err
		}
		forest, err := s.loadForest(transactionID, txn)
		if err != nil {
			return err
		}
		wasComplete := forest.Complete()
		current, err := s.resolveNode(forest, nodeID, txn)
		if err != nil {
			return err
		}
		node := *current
		switch {
		case update.SetListID && update.ListID == nil:
			err = s.detach(txn, forest, &node)
		case update.SetListID:
			err = s.reparent(txn, forest, &node, *update.ListID)
		case update.Threshold != nil:
			err = s.setThreshold(txn, forest, &node, *update.Threshold)
		default:
			err = s.setUser(txn, forest, &node, *update.UserID)
		}
		if err != nil {
			return err
		}
		*ret = &node
		*effect = mutationEffect(transactionID, wasComplete, forest)
		return nil
	})
}

func (s *Service) detach(
	txn *database.Txn,
	forest *Forest,
	node *models.TransactionApprover,
) error {
	if node.IsRoot() {
		return nil
	}
	oldParent := *node.ListID
	transactionID := forest.TransactionID()
	if node.IsLeaf() {
		if err := s.checkUniqueUser(
			txn,
			models.ApproverCriteria{TransactionID: &transactionID},
			*node.UserID,
			0,
		); err != nil {
			return err
		}
	}
	node.ListID = nil
	node.TransactionID = &transactionID
	if err := s.store.UpdateApprover(node, txn); err != nil {
		return err
	}
	forest.put(*node)
	return s.reconcile(txn, forest, oldParent)
}

func (s *Service) reparent(
	txn *database.Txn,
	forest *Forest,
	node *models.TransactionApprover,
	parentID uint,
) error {
	if node.ListID != nil && *node.ListID == parentID {
		return nil
	}
	if parentID == node.ID {
		return ErrCyclicParent
	}
	parent, err := s.resolveParent(forest, parentID, txn)
	if err != nil {
		return err
	}
	if !parent.IsTree() {
		return ErrParentNotTree
	}
	// Re-read the moving subtree inside the write
	subtree, err := s.store.GetApproverSubtree(node.ID, txn)
	if err != nil {
		return storeError(err)
	}
	for _, row := range subtree {
		if row.ID == parentID {
			return ErrCyclicParent
		}
	}
	if node.IsLeaf() {
		if err := s.checkUniqueUser(
			txn,
			models.ApproverCriteria{ListID: &parentID},
			*node.UserID,
			0,
		); err != nil {
			return err
		}
	}
	oldParent := node.ListID
	node.ListID = &parentID
	node.TransactionID = nil
	if err := s.store.UpdateApprover(node, txn); err != nil {
		return err
	}
	forest.put(*node)
	if oldParent != nil {
		return s.reconcile(txn, forest, *oldParent)
	}
	return nil
}

func (s *Service) setThreshold(
	txn *database.Txn,
	forest *Forest,
	node *models.TransactionApprover,
	threshold uint,
) error {
	if !node.IsTree() {
		return ErrApproverNotTree
	}
	if threshold < 1 || int(threshold) > len(forest.Children(node.ID)) {
		return ErrThresholdRange
	}
	node.Threshold = &threshold
	if err := s.store.UpdateApprover(node, txn); err != nil {
		return err
	}
	forest.put(*node)
	return nil
}

func (s *Service) setUser(
	txn *database.Txn,
	forest *Forest,
	node *models.TransactionApprover,
	userID uint,
) error {
	if node.IsTree() {
		return ErrApproverIsTree
	}
	criteria := models.ApproverCriteria{ListID: node.ListID}
	if node.ListID == nil {
		criteria.TransactionID = node.TransactionID
	}
	// The node itself is counted while it still holds the user
	var self int64
	if node.UserID != nil && *node.UserID == userID {
		self = 1
	}
	if err := s.checkUniqueUser(txn, criteria, userID, self); err != nil {
		return err
	}
	node.UserID = &userID
	node.ClearSignature()
	if err := s.store.UpdateApprover(node, txn); err != nil {
		return err
	}
	forest.put(*node)
	return nil
}

// checkUniqueUser fails when the container in criteria already holds a
// leaf of userID, not counting self matches
func (s *Service) checkUniqueUser(
	txn *database.Txn,
	criteria models.ApproverCriteria,
	userID uint,
	self int64,
) error {
	criteria.UserID = &userID
	count, err := s.store.CountApprovers(criteria, txn)
	if err != nil {
		return err
	}
	if count > self {
		return ErrDuplicateApprover
	}
	return nil
}

// RemoveApprover tombstones a node and its whole subtree
func (s *Service) RemoveApprover(
	callerID uint,
	transactionID uint,
	nodeID uint,
) (Effect, error) {
	effect := noEffect()
	txn := s.store.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if _, err := s.editableTransaction(transactionID, callerID, txn); err != nil {
			return err
		}
		forest, err := s.loadForest(transactionID, txn)
		if err != nil {
			return err
		}
		wasComplete := forest.Complete()
		node, err := s.resolveNode(forest, nodeID, txn)
		if err != nil {
			return err
		}
		parentID := node.ListID
		if _, err := s.store.DeleteApproverSubtree(nodeID, txn); err != nil {
			return err
		}
		forest.remove(forest.Subtree(nodeID)...)
		if parentID != nil {
			if err := s.reconcile(txn, forest, *parentID); err != nil {
				return err
			}
		}
		effect = mutationEffect(transactionID, wasComplete, forest)
		return nil
	})
	s.recordMutation("remove", err)
	if err != nil {
		return noEffect(), err
	}
	s.logger.Debug(
		"removed approver",
		"transaction_id", transactionID,
		"approver_id", nodeID,
		"user_id", callerID,
	)
	return effect, nil
}

// reconcile restores the threshold bounds of a node that lost a child. A node
// left without children is tombstoned and its own parent reconciled in turn.
func (s *Service) reconcile(
	txn *database.Txn,
	forest *Forest,
	parentID uint,
) error {
	for {
		parent := forest.Node(parentID)
		if parent == nil || !parent.IsTree() {
			return nil
		}
		live := uint(len(forest.Children(parentID)))
		if live == 0 {
			if _, err := s.store.DeleteApproverSubtree(parentID, txn); err != nil {
				return err
			}
			forest.remove(parentID)
			if parent.ListID == nil {
				return nil
			}
			parentID = *parent.ListID
			continue
		}
		if *parent.Threshold > live {
			updated := *parent
			updated.Threshold = &live
			if err := s.store.UpdateApprover(&updated, txn); err != nil {
				return err
			}
			forest.put(updated)
		}
		return nil
	}
}

// mutationEffect reports a status update when a mutation changed whether the
// forest is complete
func mutationEffect(transactionID uint, wasComplete bool, forest *Forest) Effect {
	if forest.Complete() != wasComplete {
		return statusEffect(transactionID)
	}
	return updateEffect(transactionID)
}
