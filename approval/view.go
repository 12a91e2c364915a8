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
	"encoding/hex"

	"github.com/blinklabs-io/quorum/database/models"
)

// TreeNode is the nested presentation of an approver
type TreeNode struct {
	TransactionID *uint       `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`
	ListID        *uint       `json:"listId,omitempty"        yaml:"listId,omitempty"`
	UserID        *uint       `json:"userId,omitempty"        yaml:"userId,omitempty"`
	Threshold     *uint       `json:"threshold,omitempty"     yaml:"threshold,omitempty"`
	UserKeyID     *uint       `json:"userKeyId,omitempty"     yaml:"userKeyId,omitempty"`
	Approved      *bool       `json:"approved"                yaml:"approved"`
	Signature     string      `json:"signature,omitempty"     yaml:"signature,omitempty"`
	State         State       `json:"state"                   yaml:"state"`
	Approvers     []*TreeNode `json:"approvers,omitempty"     yaml:"approvers,omitempty"`
	ID            uint        `json:"id"                      yaml:"id"`
}

// BuildTreeView nests flat approver rows under their parents. Rows whose
// parent is not among rows are returned at the top level.
func BuildTreeView(rows []models.TransactionApprover) []*TreeNode {
	forest := NewForest(0, rows)
	top := forest.Top()
	ret := make([]*TreeNode, 0, len(top))
	seen := make(map[uint]struct{}, forest.Len())
	for _, id := range top {
		ret = append(ret, buildTreeNode(forest, id, seen))
	}
	return ret
}

func buildTreeNode(forest *Forest, id uint, seen map[uint]struct{}) *TreeNode {
	row := forest.Node(id)
	seen[id] = struct{}{}
	node := &TreeNode{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		ListID:        row.ListID,
		UserID:        row.UserID,
		Threshold:     row.Threshold,
		UserKeyID:     row.UserKeyID,
		Approved:      row.Approved,
		State:         forest.Resolve(id),
	}
	if row.IsSigned() {
		node.Signature = hex.EncodeToString(row.Signature)
	}
	for _, child := range forest.Children(id) {
		if _, ok := seen[child]; ok {
			continue
		}
		node.Approvers = append(node.Approvers, buildTreeNode(forest, child, seen))
	}
	return node
}
