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
	"math/rand"
	"testing"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSpec(rng *rand.Rand, depth int) approval.ApproverSpec {
	if depth == 0 || rng.Intn(3) == 0 {
		return leaf(uint(rng.Intn(6) + 1))
	}
	count := rng.Intn(3) + 1
	children := make([]approval.ApproverSpec, 0, count)
	for range count {
		children = append(children, randomSpec(rng, depth-1))
	}
	return group(uint(rng.Intn(count)+1), children...)
}

func randomNode(rng *rand.Rand, forests ...*approval.Forest) uint {
	var ids []uint
	for _, forest := range forests {
		for _, row := range forest.Rows() {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return 9999
	}
	return ids[rng.Intn(len(ids))]
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	f := newFixture(t)
	txIDs := []uint{
		f.transaction(creator, models.TransactionStatusWaitingForSignatures),
		f.transaction(creator, models.TransactionStatusWaitingForSignatures),
	}
	rng := rand.New(rand.NewSource(20260917))
	counts := map[string]int{}
	for step := range 200 {
		txID := txIDs[rng.Intn(len(txIDs))]
		forest := f.forest(txID)
		other := f.forest(txIDs[0] + txIDs[1] - txID)
		before := forest.Rows()
		var op string
		var err error
		switch rng.Intn(7) {
		case 0:
			op = "create"
			spec := randomSpec(rng, 3)
			if rng.Intn(2) == 0 {
				spec.ListID = uintPtr(randomNode(rng, forest))
			}
			_, _, err = f.svc.CreateApprovers(creator, txID, []approval.ApproverSpec{spec})
		case 1:
			op = "threshold"
			_, _, err = f.svc.UpdateApprover(creator, txID, randomNode(rng, forest), approval.ApproverUpdate{
				Threshold: uintPtr(uint(rng.Intn(4))),
			})
		case 2:
			op = "user"
			_, _, err = f.svc.UpdateApprover(creator, txID, randomNode(rng, forest), approval.ApproverUpdate{
				UserID: uintPtr(uint(rng.Intn(6) + 1)),
			})
		case 3:
			op = "detach"
			_, _, err = f.svc.UpdateApprover(creator, txID, randomNode(rng, forest), approval.ApproverUpdate{
				SetListID: true,
			})
		case 4:
			op = "reparent"
			_, _, err = f.svc.UpdateApprover(creator, txID, randomNode(rng, forest), approval.ApproverUpdate{
				SetListID: true,
				ListID:    uintPtr(randomNode(rng, forest, other)),
			})
		case 5:
			op = "remove"
			_, err = f.svc.RemoveApprover(creator, txID, randomNode(rng, forest))
		default:
			op = "approve"
			_, err = f.approve(txID, uint(rng.Intn(6)+1), rng.Intn(4) != 0)
		}
		if err != nil {
			require.NotEqual(
				t,
				approval.KindInternal,
				approval.KindOf(err),
				"step %d %s: %s",
				step,
				op,
				err,
			)
			assert.Equal(t, before, f.forest(txID).Rows(), "step %d %s", step, op)
			counts[op+" failed"]++
		} else {
			counts[op]++
		}
		// Both forests are checked by the helper
		f.forest(txIDs[0])
		f.forest(txIDs[1])
	}
	// The sequence exercised both outcomes of the structural operations
	assert.Positive(t, counts["create"])
	assert.Positive(t, counts["create failed"])
	assert.Positive(t, counts["reparent failed"])
}
