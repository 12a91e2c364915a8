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

package approval_test

import (
	"testing"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const creator = uint(100)

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := approval.NewService(approval.Config{})
	require.Error(t, err)
}

func TestCreateApprovers(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created, effect, err := f.svc.CreateApprovers(
		creator,
		txID,
		[]approval.ApproverSpec{
			group(2, leaf(1), leaf(2), group(1, leaf(3), leaf(4))),
			leaf(5),
		},
	)
	require.NoError(t, err)
	require.Len(t, created, 7)
	assert.Equal(t, approval.EffectUpdate, effect.Kind)
	assert.Equal(t, []uint{txID}, effect.EntityIDs)

	root := created[0]
	require.NotNil(t, root.TransactionID)
	assert.Equal(t, txID, *root.TransactionID)
	assert.Nil(t, root.ListID)
	for _, row := range created[1:4] {
		require.NotNil(t, row.ListID)
		assert.Equal(t, root.ID, *row.ListID)
		assert.Nil(t, row.TransactionID)
	}
	assert.Equal(t, created[3].ID, *created[4].ListID)
	assert.Nil(t, created[6].ListID)

	forest := f.forest(txID)
	assert.Equal(t, 7, forest.Len())
	assert.Equal(t, []uint{root.ID, created[6].ID}, forest.Roots())
}

func TestCreateApproverValidation(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	testDefs := []struct {
		name string
		spec approval.ApproverSpec
		err  error
	}{
		{"empty", approval.ApproverSpec{}, approval.ErrEmptyApprover},
		{
			"user and tree",
			approval.ApproverSpec{
				UserID:    uintPtr(1),
				Threshold: uintPtr(1),
				Approvers: []approval.ApproverSpec{leaf(2)},
			},
			approval.ErrUserOrTreeConflict,
		},
		{
			"children without threshold",
			approval.ApproverSpec{Approvers: []approval.ApproverSpec{leaf(2)}},
			approval.ErrThresholdRequired,
		},
		{
			"threshold without children",
			approval.ApproverSpec{Threshold: uintPtr(1)},
			approval.ErrChildrenRequired,
		},
		{"zero threshold", group(0, leaf(1)), approval.ErrThresholdRange},
		{"threshold too high", group(3, leaf(1), leaf(2)), approval.ErrThresholdRange},
		{
			"invalid grandchild",
			group(1, leaf(1), group(1, approval.ApproverSpec{})),
			approval.ErrEmptyApprover,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, effect, err := f.svc.CreateApprovers(
				creator,
				txID,
				[]approval.ApproverSpec{leaf(9), testDef.spec},
			)
			require.ErrorIs(t, err, testDef.err)
			assert.Equal(t, approval.KindStructural, approval.KindOf(err))
			assert.Equal(t, approval.EffectNone, effect.Kind)
			// Nothing from the failed call was written
			assert.Zero(t, f.forest(txID).Len())
		})
	}
}

func TestCreateApproverParent(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	otherTxID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(1, leaf(1)))
	other := f.create(creator, otherTxID, group(1, leaf(1)))

	// Adding under an existing tree
	spec := leaf(2)
	spec.ListID = uintPtr(created[0].ID)
	added := f.create(creator, txID, spec)
	require.Len(t, added, 1)
	assert.Equal(t, created[0].ID, *added[0].ListID)

	testDefs := []struct {
		name   string
		listID uint
		err    error
	}{
		{"missing parent", 9999, approval.ErrParentNotFound},
		{"other transaction", other[0].ID, approval.ErrRootMismatch},
		{"parent is a leaf", created[1].ID, approval.ErrParentNotTree},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			spec := leaf(3)
			spec.ListID = uintPtr(testDef.listID)
			_, _, err := f.svc.CreateApprovers(creator, txID, []approval.ApproverSpec{spec})
			require.ErrorIs(t, err, testDef.err)
		})
	}
	assert.Equal(t, 3, f.forest(txID).Len())
	assert.Equal(t, 2, f.forest(otherTxID).Len())
}

func TestCreateApproverDuplicate(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(1, leaf(1)), leaf(2))

	_, _, err := f.svc.CreateApprovers(creator, txID, []approval.ApproverSpec{leaf(2)})
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)

	spec := leaf(1)
	spec.ListID = uintPtr(created[0].ID)
	_, _, err = f.svc.CreateApprovers(creator, txID, []approval.ApproverSpec{spec})
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)

	// Within one call
	_, _, err = f.svc.CreateApprovers(
		creator,
		txID,
		[]approval.ApproverSpec{group(1, leaf(7), leaf(7))},
	)
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)

	// The same user in another container is allowed
	f.create(creator, txID, group(1, leaf(1)))

	// Identical threshold nodes are never duplicates
	f.create(creator, txID, group(1, leaf(3)), group(1, leaf(4)))
	assert.Equal(t, 9, f.forest(txID).Len())
}

func TestCreateApproverAuthorization(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	_, _, err := f.svc.CreateApprovers(creator+1, txID, []approval.ApproverSpec{leaf(1)})
	require.ErrorIs(t, err, approval.ErrNotCreator)
	assert.Equal(t, approval.KindAuthorization, approval.KindOf(err))

	_, _, err = f.svc.CreateApprovers(creator, txID+50, []approval.ApproverSpec{leaf(1)})
	require.ErrorIs(t, err, approval.ErrTransactionNotFound)
	assert.Equal(t, approval.KindNotFound, approval.KindOf(err))

	doneID := f.transaction(creator, models.TransactionStatusExecuted)
	_, _, err = f.svc.CreateApprovers(creator, doneID, []approval.ApproverSpec{leaf(1)})
	require.ErrorIs(t, err, approval.ErrTransactionFinalized)
}

func TestSignatureCarryForward(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	f.create(creator, txID, group(1, leaf(1), leaf(2)))
	_, err := f.approve(txID, 1, true)
	require.NoError(t, err)

	created := f.create(creator, txID, group(2, leaf(1), leaf(3)))
	carried := created[1]
	require.NotNil(t, carried.Approved)
	assert.True(t, *carried.Approved)
	assert.True(t, carried.IsSigned())
	require.NotNil(t, carried.UserKeyID)
	assert.Equal(t, f.key(1), *carried.UserKeyID)
	// Unsigned users start pending
	assert.Nil(t, created[2].Approved)

	forest := f.forest(txID)
	assert.Equal(t, approval.StateApproved, forest.Resolve(created[1].ID))
}

func TestUpdateApproverFields(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(2, leaf(1), leaf(2), leaf(3)))
	root, leafA := created[0], created[1]

	_, _, err := f.svc.UpdateApprover(creator, txID, leafA.ID, approval.ApproverUpdate{})
	require.ErrorIs(t, err, approval.ErrInvalidUpdate)
	_, _, err = f.svc.UpdateApprover(creator, txID, root.ID, approval.ApproverUpdate{
		Threshold: uintPtr(1),
		UserID:    uintPtr(4),
	})
	require.ErrorIs(t, err, approval.ErrInvalidUpdate)

	updated, _, err := f.svc.UpdateApprover(creator, txID, root.ID, approval.ApproverUpdate{
		Threshold: uintPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), *updated.Threshold)
	_, _, err = f.svc.UpdateApprover(creator, txID, root.ID, approval.ApproverUpdate{
		Threshold: uintPtr(4),
	})
	require.ErrorIs(t, err, approval.ErrThresholdRange)
	_, _, err = f.svc.UpdateApprover(creator, txID, leafA.ID, approval.ApproverUpdate{
		Threshold: uintPtr(1),
	})
	require.ErrorIs(t, err, approval.ErrApproverNotTree)
	_, _, err = f.svc.UpdateApprover(creator, txID, root.ID, approval.ApproverUpdate{
		UserID: uintPtr(4),
	})
	require.ErrorIs(t, err, approval.ErrApproverIsTree)

	// Reassigning a signed leaf drops the signature
	_, err = f.approve(txID, 1, true)
	require.NoError(t, err)
	updated, _, err = f.svc.UpdateApprover(creator, txID, leafA.ID, approval.ApproverUpdate{
		UserID: uintPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(4), *updated.UserID)
	assert.False(t, updated.IsSigned())
	assert.Nil(t, updated.Approved)
	assert.Nil(t, updated.UserKeyID)
	stored := f.forest(txID).Node(leafA.ID)
	assert.False(t, stored.IsSigned())

	_, _, err = f.svc.UpdateApprover(creator+1, txID, leafA.ID, approval.ApproverUpdate{
		UserID: uintPtr(5),
	})
	require.ErrorIs(t, err, approval.ErrNotCreator)
	_, _, err = f.svc.UpdateApprover(creator, txID, 9999, approval.ApproverUpdate{
		UserID: uintPtr(5),
	})
	require.ErrorIs(t, err, approval.ErrApproverNotFound)
}

func TestUpdateApproverDuplicateUser(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(1, leaf(1), leaf(2)), group(1, leaf(3)), leaf(2))
	first, second, other := created[1], created[2], created[5]
	before := f.forest(txID).Rows()

	_, _, err := f.svc.UpdateApprover(creator, txID, second.ID, approval.ApproverUpdate{
		UserID: uintPtr(1),
	})
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)
	// A user already at the root level
	_, _, err = f.svc.UpdateApprover(creator, txID, second.ID, approval.ApproverUpdate{
		SetListID: true,
	})
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)
	_, _, err = f.svc.UpdateApprover(creator, txID, other.ID, approval.ApproverUpdate{
		SetListID: true,
		ListID:    uintPtr(created[0].ID),
	})
	require.ErrorIs(t, err, approval.ErrDuplicateApprover)
	assert.Equal(t, before, f.forest(txID).Rows())

	// Keeping the same user is not a duplicate of itself
	updated, _, err := f.svc.UpdateApprover(creator, txID, first.ID, approval.ApproverUpdate{
		UserID: uintPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), *updated.UserID)
	// Another container may hold the same user
	_, _, err = f.svc.UpdateApprover(creator, txID, created[4].ID, approval.ApproverUpdate{
		UserID: uintPtr(1),
	})
	require.NoError(t, err)
}

func TestDetachReconcilesThreshold(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(3, leaf(1), leaf(2), leaf(3)))
	root := created[0]

	// Detaching a root is a no-op
	_, _, err := f.svc.UpdateApprover(creator, txID, root.ID, approval.ApproverUpdate{
		SetListID: true,
	})
	require.NoError(t, err)

	detached, _, err := f.svc.UpdateApprover(creator, txID, created[3].ID, approval.ApproverUpdate{
		SetListID: true,
	})
	require.NoError(t, err)
	assert.Nil(t, detached.ListID)
	require.NotNil(t, detached.TransactionID)
	assert.Equal(t, txID, *detached.TransactionID)

	forest := f.forest(txID)
	assert.Equal(t, uint(2), *forest.Node(root.ID).Threshold)
	assert.Equal(t, []uint{root.ID, created[3].ID}, forest.Roots())
	assert.Len(t, forest.Children(root.ID), 2)
}

func TestDetachRemovesEmptyParents(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(2, leaf(1), group(1, group(1, leaf(2)))))
	root, outer, inner, lone := created[0], created[2], created[3], created[4]

	_, _, err := f.svc.UpdateApprover(creator, txID, lone.ID, approval.ApproverUpdate{
		SetListID: true,
	})
	require.NoError(t, err)

	forest := f.forest(txID)
	assert.Nil(t, forest.Node(inner.ID))
	assert.Nil(t, forest.Node(outer.ID))
	assert.Equal(t, uint(1), *forest.Node(root.ID).Threshold)
	assert.Equal(t, []uint{created[1].ID}, forest.Children(root.ID))
	assert.Equal(t, []uint{root.ID, lone.ID}, forest.Roots())
}

func TestReparent(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	otherTxID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(
		creator,
		txID,
		group(2, leaf(1), leaf(2), group(1, leaf(3), group(1, leaf(4)))),
		group(1, leaf(5)),
	)
	root, mid, deep, deepLeaf := created[0], created[3], created[5], created[6]
	second := created[7]
	other := f.create(creator, otherTxID, group(1, leaf(1)))
	before := f.forest(txID).Rows()

	testDefs := []struct {
		name   string
		nodeID uint
		listID uint
		err    error
	}{
		{"under itself", mid.ID, mid.ID, approval.ErrCyclicParent},
		{"under child", mid.ID, deep.ID, approval.ErrCyclicParent},
		{"root under descendant", root.ID, deep.ID, approval.ErrCyclicParent},
		{"under leaf", mid.ID, created[1].ID, approval.ErrParentNotTree},
		{"missing parent", mid.ID, 9999, approval.ErrParentNotFound},
		{"other transaction", mid.ID, other[0].ID, approval.ErrRootMismatch},
		{"foreign node", other[1].ID, root.ID, approval.ErrRootMismatch},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, _, err := f.svc.UpdateApprover(
				creator,
				txID,
				testDef.nodeID,
				approval.ApproverUpdate{SetListID: true, ListID: uintPtr(testDef.listID)},
			)
			require.ErrorIs(t, err, testDef.err)
			assert.Equal(t, before, f.forest(txID).Rows())
		})
	}

	// Move the deep leaf under the second root, emptying its old parent
	moved, _, err := f.svc.UpdateApprover(creator, txID, deepLeaf.ID, approval.ApproverUpdate{
		SetListID: true,
		ListID:    uintPtr(second.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, *moved.ListID)
	forest := f.forest(txID)
	assert.Nil(t, forest.Node(deep.ID))
	assert.Equal(t, uint(1), *forest.Node(mid.ID).Threshold)
	assert.Len(t, forest.Children(second.ID), 2)

	// A root can be moved under another tree
	_, _, err = f.svc.UpdateApprover(creator, txID, second.ID, approval.ApproverUpdate{
		SetListID: true,
		ListID:    uintPtr(mid.ID),
	})
	require.NoError(t, err)
	forest = f.forest(txID)
	assert.Equal(t, []uint{root.ID}, forest.Roots())
	assert.True(t, forest.IsDescendant(root.ID, deepLeaf.ID))
}

func TestRemoveApprover(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	otherTxID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(
		creator,
		txID,
		group(2, leaf(1), group(1, leaf(2), leaf(3)), leaf(4)),
	)
	root, sub := created[0], created[2]
	other := f.create(creator, otherTxID, group(1, leaf(2)))

	_, err := f.svc.RemoveApprover(creator, txID, other[0].ID)
	require.ErrorIs(t, err, approval.ErrRootMismatch)
	_, err = f.svc.RemoveApprover(creator, txID, 9999)
	require.ErrorIs(t, err, approval.ErrApproverNotFound)
	_, err = f.svc.RemoveApprover(creator+1, txID, sub.ID)
	require.ErrorIs(t, err, approval.ErrNotCreator)

	effect, err := f.svc.RemoveApprover(creator, txID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectUpdate, effect.Kind)
	forest := f.forest(txID)
	assert.Equal(t, 3, forest.Len())
	for _, row := range created[2:5] {
		assert.Nil(t, forest.Node(row.ID))
	}
	assert.Equal(t, uint(2), *forest.Node(root.ID).Threshold)

	// Removing another child lowers the threshold of the parent
	_, err = f.svc.RemoveApprover(creator, txID, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), *f.forest(txID).Node(root.ID).Threshold)

	// The parallel transaction is untouched
	assert.Equal(t, 2, f.forest(otherTxID).Len())
}

func TestMutationStatusEffect(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, leaf(1), leaf(2))
	_, err := f.approve(txID, 1, true)
	require.NoError(t, err)

	// Removing the only pending root completes the forest
	effect, err := f.svc.RemoveApprover(creator, txID, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectStatusUpdate, effect.Kind)
	assert.True(t, f.forest(txID).Complete())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, approval.KindInternal, approval.KindOf(nil))
	assert.Equal(t, approval.KindInternal, approval.KindOf(assert.AnError))
	assert.Equal(t, approval.KindApproval, approval.KindOf(approval.ErrKeyNotFound))
	assert.Equal(t, "not-found", approval.KindNotFound.String())
}
