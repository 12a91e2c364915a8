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
	"crypto/ed25519"
	"testing"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibleApprovers(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	f.create(creator, txID, group(1, leaf(1), leaf(2)))
	require.NoError(t, f.db.AddSigner(&models.TransactionSigner{
		TransactionID: txID,
		UserID:        20,
		UserKeyID:     f.key(20),
	}, nil))
	require.NoError(t, f.db.AddObserver(&models.TransactionObserver{
		TransactionID: txID,
		UserID:        30,
	}, nil))

	for name, viewer := range map[string]uint{
		"creator":  creator,
		"approver": 2,
		"signer":   20,
		"observer": 30,
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := f.svc.VisibleApprovers(txID, viewer)
			require.NoError(t, err)
			assert.Len(t, rows, 3)
		})
	}

	_, err := f.svc.VisibleApprovers(txID, 40)
	require.ErrorIs(t, err, approval.ErrUnauthorizedView)
	_, err = f.svc.VisibleApprovers(txID+50, creator)
	require.ErrorIs(t, err, approval.ErrTransactionNotFound)

	// Finalized transactions are visible to anyone
	require.NoError(t, f.db.SetTransactionStatus(txID, models.TransactionStatusArchived, nil))
	rows, err := f.svc.VisibleApprovers(txID, 40)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSubmitApproval(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(
		creator,
		txID,
		group(2, leaf(1), group(1, leaf(1), leaf(2)), leaf(3)),
		leaf(1),
	)

	ret, err := f.approve(txID, 1, true)
	require.NoError(t, err)
	require.True(t, ret.Recorded)
	assert.ElementsMatch(t, []uint{created[1].ID, created[3].ID, created[6].ID}, ret.Updated)

	forest := f.forest(txID)
	for _, row := range forest.Rows() {
		if row.UserID == nil {
			continue
		}
		if *row.UserID == 1 {
			assert.True(t, row.IsSigned())
			assert.Equal(t, f.key(1), *row.UserKeyID)
			assert.True(t, *row.Approved)
		} else {
			assert.False(t, row.IsSigned(), "approver %d", row.ID)
			assert.Nil(t, row.Approved)
		}
	}

	_, err = f.approve(txID, 1, true)
	require.ErrorIs(t, err, approval.ErrAlreadyApproved)
	assert.Equal(t, approval.KindApproval, approval.KindOf(err))

	assert.InDelta(t, 1.0, f.submissions("ok"), 0)
	assert.InDelta(t, 1.0, f.submissions("rejected"), 0)
}

func TestSubmitApprovalRefusals(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	f.create(creator, txID, group(1, leaf(1), leaf(2)))
	keyID := f.key(1)
	tx, err := f.db.GetTransaction(txID, nil)
	require.NoError(t, err)
	sig := ed25519.Sign(f.privKeys[keyID], tx.Body)

	// Creator can see the tree but holds no leaf
	_, err = f.approve(txID, creator, true)
	require.ErrorIs(t, err, approval.ErrNotAnApprover)
	_, err = f.approve(txID, 50, true)
	require.ErrorIs(t, err, approval.ErrUnauthorizedView)

	// A key registered to someone else is declined
	ret, err := f.svc.SubmitApproval(approval.ApprovalRequest{
		TransactionID: txID,
		UserID:        2,
		UserKeyID:     keyID,
		Signature:     sig,
		Approved:      true,
	})
	require.NoError(t, err)
	assert.False(t, ret.Recorded)
	require.ErrorIs(t, ret.Reason, approval.ErrKeyNotFound)

	_, err = f.svc.SubmitApproval(approval.ApprovalRequest{
		TransactionID: txID,
		UserID:        1,
		UserKeyID:     keyID,
		Signature:     ed25519.Sign(f.privKeys[keyID], []byte("another body")),
		Approved:      true,
	})
	require.ErrorIs(t, err, approval.ErrSignatureMismatch)

	forest := f.forest(txID)
	for _, row := range forest.Rows() {
		assert.False(t, row.IsSigned())
	}

	require.NoError(t, f.db.SetTransactionStatus(txID, models.TransactionStatusExpired, nil))
	_, err = f.svc.SubmitApproval(approval.ApprovalRequest{
		TransactionID: txID,
		UserID:        1,
		UserKeyID:     keyID,
		Signature:     sig,
		Approved:      true,
	})
	require.ErrorIs(t, err, approval.ErrTransactionNotApprovable)
}

func TestApprovalEffects(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForExecution)
	f.create(creator, txID, group(2, leaf(1), leaf(2), leaf(3)), leaf(4))

	// Approving signs every leaf of the user, so it always affects status
	ret, err := f.approve(txID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectStatusUpdate, ret.Effect.Kind)
	assert.Equal(t, []uint{txID}, ret.Effect.EntityIDs)
	assert.False(t, f.forest(txID).Complete())

	// A rejection always affects status
	ret, err = f.approve(txID, 2, false)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectStatusUpdate, ret.Effect.Kind)

	ret, err = f.approve(txID, 3, true)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectStatusUpdate, ret.Effect.Kind)

	ret, err = f.approve(txID, 4, true)
	require.NoError(t, err)
	assert.Equal(t, approval.EffectStatusUpdate, ret.Effect.Kind)
	assert.True(t, f.forest(txID).Complete())
}

func TestApprovalEffectSingleLeaf(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	f.create(creator, txID, group(2, leaf(1), leaf(2), leaf(3)))

	ret, err := f.approve(txID, 1, true)
	require.NoError(t, err)
	require.True(t, ret.Recorded)
	assert.Equal(t, approval.EffectStatusUpdate, ret.Effect.Kind)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	txID := f.transaction(creator, models.TransactionStatusWaitingForSignatures)
	created := f.create(creator, txID, group(2, leaf(1), leaf(2), leaf(3)))
	root, leafA, leafB, leafC := created[0], created[1], created[2], created[3]

	for _, userID := range []uint{1, 2} {
		ret, err := f.approve(txID, userID, true)
		require.NoError(t, err)
		require.True(t, ret.Recorded)
	}

	rows, err := f.svc.VisibleApprovers(txID, creator)
	require.NoError(t, err)
	forest := approval.NewForest(txID, rows)
	assert.True(t, *forest.Node(leafA.ID).Approved)
	assert.True(t, *forest.Node(leafB.ID).Approved)
	assert.Nil(t, forest.Node(leafC.ID).Approved)
	assert.Equal(t, approval.StateApproved, forest.Resolve(root.ID))

	_, _, err = f.svc.UpdateApprover(creator, txID, leafC.ID, approval.ApproverUpdate{
		SetListID: true,
	})
	require.NoError(t, err)
	forest = f.forest(txID)
	assert.Equal(t, []uint{root.ID, leafC.ID}, forest.Roots())
	assert.Equal(t, uint(2), *forest.Node(root.ID).Threshold)
	assert.Equal(t, []uint{leafA.ID, leafB.ID}, forest.Children(root.ID))

	view := approval.BuildTreeView(rows)
	require.Len(t, view, 1)
	assert.Len(t, view[0].Approvers, 3)
}
