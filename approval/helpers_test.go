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
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

func leaf(userID uint) approval.ApproverSpec {
	return approval.ApproverSpec{UserID: uintPtr(userID)}
}

func group(threshold uint, children ...approval.ApproverSpec) approval.ApproverSpec {
	return approval.ApproverSpec{
		Threshold: uintPtr(threshold),
		Approvers: children,
	}
}

type fixture struct {
	t        *testing.T
	db       *database.Database
	svc      *approval.Service
	registry *prometheus.Registry
	privKeys map[uint]ed25519.PrivateKey
	userKeys map[uint]uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	registry := prometheus.NewRegistry()
	svc, err := approval.NewDatabaseService(db, nil, registry)
	require.NoError(t, err)
	return &fixture{
		t:        t,
		db:       db,
		svc:      svc,
		registry: registry,
		privKeys: make(map[uint]ed25519.PrivateKey),
		userKeys: make(map[uint]uint),
	}
}

// transaction stores a new transaction created by creatorID
func (f *fixture) transaction(
	creatorID uint,
	status models.TransactionStatus,
) uint {
	f.t.Helper()
	tx := &models.Transaction{
		CreatorID: creatorID,
		Status:    status,
		Body:      fmt.Appendf(nil, "body of a transaction by %d", creatorID),
	}
	require.NoError(f.t, f.db.SetTransaction(tx, nil))
	return tx.ID
}

// key registers an ED25519 key for userID and returns its id
func (f *fixture) key(userID uint) uint {
	f.t.Helper()
	if keyID, ok := f.userKeys[userID]; ok {
		return keyID
	}
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(f.t, err)
	key := &models.UserKey{UserID: userID, PublicKey: pub}
	require.NoError(f.t, f.db.AddUserKey(key, nil))
	f.privKeys[key.ID] = priv
	f.userKeys[userID] = key.ID
	return key.ID
}

// approve submits a valid signature by userID over the transaction body
func (f *fixture) approve(
	transactionID uint,
	userID uint,
	approved bool,
) (approval.ApprovalResult, error) {
	f.t.Helper()
	keyID := f.key(userID)
	tx, err := f.db.GetTransaction(transactionID, nil)
	require.NoError(f.t, err)
	return f.svc.SubmitApproval(approval.ApprovalRequest{
		TransactionID: transactionID,
		UserID:        userID,
		UserKeyID:     keyID,
		Signature:     ed25519.Sign(f.privKeys[keyID], tx.Body),
		Approved:      approved,
	})
}

func (f *fixture) create(
	creatorID uint,
	transactionID uint,
	specs ...approval.ApproverSpec,
) []models.TransactionApprover {
	f.t.Helper()
	created, _, err := f.svc.CreateApprovers(creatorID, transactionID, specs)
	require.NoError(f.t, err)
	return created
}

func (f *fixture) forest(transactionID uint) *approval.Forest {
	f.t.Helper()
	forest, err := f.svc.Forest(transactionID)
	require.NoError(f.t, err)
	require.Empty(f.t, forest.Check())
	return forest
}

// submissions reads the approval submission counter for a result
func (f *fixture) submissions(result string) float64 {
	f.t.Helper()
	families, err := f.registry.Gather()
	require.NoError(f.t, err)
	for _, family := range families {
		if family.GetName() != "quorum_approval_submissions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
