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
	"fmt"
	"slices"

	"github.com/blinklabs-io/quorum/database/models"
)

// ErrForestInvariant is wrapped by every violation reported by Forest.Check
var ErrForestInvariant = errors.New("approval forest invariant violated")

// State is the resolution of a node or a forest
type State int

const (
	StatePending State = iota
	StateApproved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// MarshalText renders the state as its name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = StatePending
	case "approved":
		*s = StateApproved
	case "rejected":
		*s = StateRejected
	default:
		return fmt.Errorf("unknown approval state %q", text)
	}
	return nil
}

// Forest is an in-memory view of the live approver rows of one transaction,
// indexed by id and by parent
type Forest struct {
	nodes         map[uint]*models.TransactionApprover
	children      map[uint][]uint
	roots         []uint
	orphans       []uint
	transactionID uint
}

// NewForest indexes rows. Rows whose parent is absent from rows are kept as
// orphans and reported by Check.
func NewForest(
	transactionID uint,
	rows []models.TransactionApprover,
) *Forest {
	f := &Forest{
		transactionID: transactionID,
		nodes:         make(map[uint]*models.TransactionApprover, len(rows)),
	}
	for i := range rows {
		row := rows[i]
		f.nodes[row.ID] = &row
	}
	f.reindex()
	return f
}

func (f *Forest) reindex() {
	f.children = make(map[uint][]uint)
	f.roots = f.roots[:0]
	f.orphans = f.orphans[:0]
	ids := make([]uint, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		node := f.nodes[id]
		switch {
		case node.ListID == nil:
			f.roots = append(f.roots, id)
		case f.nodes[*node.ListID] != nil:
			f.children[*node.ListID] = append(f.children[*node.ListID], id)
		default:
			f.orphans = append(f.orphans, id)
		}
	}
}

// TransactionID returns the transaction the forest belongs to
func (f *Forest) TransactionID() uint {
	return f.transactionID
}

// Len returns the number of live nodes
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Node returns the node with the given id, or nil
func (f *Forest) Node(id uint) *models.TransactionApprover {
	return f.nodes[id]
}

// Children returns the ids of a node's live children in id order
func (f *Forest) Children(id uint) []uint {
	return slices.Clone(f.children[id])
}

// Roots returns the ids of the root nodes in id order
func (f *Forest) Roots() []uint {
	return slices.Clone(f.roots)
}

// Top returns the roots followed by any orphaned nodes
func (f *Forest) Top() []uint {
	return append(f.Roots(), f.orphans...)
}

// Rows returns a copy of every live node in id order
func (f *Forest) Rows() []models.TransactionApprover {
	ids := make([]uint, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ret := make([]models.TransactionApprover, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, *f.nodes[id])
	}
	return ret
}

// RootOf follows parent links from id to its root. It returns nil if the
// chain is broken or loops.
func (f *Forest) RootOf(id uint) *models.TransactionApprover {
	seen := make(map[uint]struct{})
	node := f.nodes[id]
	for node != nil {
		if _, ok := seen[node.ID]; ok {
			return nil
		}
		seen[node.ID] = struct{}{}
		if node.ListID == nil {
			return node
		}
		node = f.nodes[*node.ListID]
	}
	return nil
}

// IsDescendant returns true if id sits strictly below ancestorID
func (f *Forest) IsDescendant(ancestorID, id uint) bool {
	seen := make(map[uint]struct{})
	node := f.nodes[id]
	for node != nil && node.ListID != nil {
		if _, ok := seen[node.ID]; ok {
			return false
		}
		seen[node.ID] = struct{}{}
		if *node.ListID == ancestorID {
			return true
		}
		node = f.nodes[*node.ListID]
	}
	return false
}

// Subtree returns id followed by all of its descendants in depth-first order
func (f *Forest) Subtree(id uint) []uint {
	if f.nodes[id] == nil {
		return nil
	}
	var ret []uint
	seen := make(map[uint]struct{})
	var walk func(uint)
	walk = func(cur uint) {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		ret = append(ret, cur)
		for _, child := range f.children[cur] {
			walk(child)
		}
	}
	walk(id)
	return ret
}

// UserLeaves returns the leaves assigned to userID in id order
func (f *Forest) UserLeaves(userID uint) []*models.TransactionApprover {
	var ret []*models.TransactionApprover
	for _, row := range f.Rows() {
		if row.UserID != nil && *row.UserID == userID {
			ret = append(ret, f.nodes[row.ID])
		}
	}
	return ret
}

// put inserts or replaces a node
func (f *Forest) put(node models.TransactionApprover) {
	f.nodes[node.ID] = &node
	f.reindex()
}

// remove drops the given nodes
func (f *Forest) remove(ids ...uint) {
	for _, id := range ids {
		delete(f.nodes, id)
	}
	f.reindex()
}

// Resolve computes the state of a node. A leaf follows its recorded decision.
// A tree is approved once at least threshold children are approved and
// rejected once too many children are rejected for the threshold to be met.
func (f *Forest) Resolve(id uint) State {
	return f.resolve(id, make(map[uint]struct{}))
}

func (f *Forest) resolve(id uint, seen map[uint]struct{}) State {
	node := f.nodes[id]
	if node == nil {
		return StatePending
	}
	if _, ok := seen[id]; ok {
		return StatePending
	}
	seen[id] = struct{}{}
	defer delete(seen, id)
	if node.IsLeaf() {
		if node.Approved == nil || !node.IsSigned() {
			return StatePending
		}
		if *node.Approved {
			return StateApproved
		}
		return StateRejected
	}
	if !node.IsTree() {
		return StatePending
	}
	children := f.children[id]
	var approved, rejected uint
	for _, child := range children {
		switch f.resolve(child, seen) {
		case StateApproved:
			approved++
		case StateRejected:
			rejected++
		}
	}
	threshold := *node.Threshold
	switch {
	case threshold > 0 && approved >= threshold:
		return StateApproved
	case uint(len(children))-rejected < threshold || len(children) == 0:
		return StateRejected
	default:
		return StatePending
	}
}

// State resolves the whole forest. It is approved when every root is
// approved, rejected when any root is rejected and pending otherwise. An
// empty forest is pending.
func (f *Forest) State() State {
	if len(f.roots) == 0 {
		return StatePending
	}
	ret := StateApproved
	for _, root := range f.roots {
		switch f.Resolve(root) {
		case StateRejected:
			return StateRejected
		case StatePending:
			ret = StatePending
		}
	}
	return ret
}

// Complete returns true when every root is approved
func (f *Forest) Complete() bool {
	return f.State() == StateApproved
}

// Check reports every structural invariant the forest violates
func (f *Forest) Check() []error {
	var errs []error
	violation := func(id uint, format string, args ...any) {
		errs = append(
			errs,
			fmt.Errorf(
				"%w: approver %d: %s",
				ErrForestInvariant,
				id,
				fmt.Sprintf(format, args...),
			),
		)
	}
	for _, row := range f.Rows() {
		if (row.TransactionID == nil) == (row.ListID == nil) {
			violation(row.ID, "must have exactly one of transactionId and listId")
		}
		if row.TransactionID != nil && f.transactionID != 0 &&
			*row.TransactionID != f.transactionID {
			violation(row.ID, "belongs to transaction %d", *row.TransactionID)
		}
		if row.IsLeaf() == row.IsTree() {
			violation(row.ID, "must have exactly one of userId and threshold")
		}
		children := len(f.children[row.ID])
		if row.IsLeaf() && children > 0 {
			violation(row.ID, "leaf has %d children", children)
		}
		if row.IsTree() {
			if children == 0 {
				violation(row.ID, "tree has no children")
			} else if *row.Threshold < 1 || int(*row.Threshold) > children {
				violation(
					row.ID,
					"threshold %d outside 1..%d",
					*row.Threshold,
					children,
				)
			}
		}
		if !row.IsLeaf() && row.IsSigned() {
			violation(row.ID, "signature on a non-leaf")
		}
		if f.RootOf(row.ID) == nil {
			violation(row.ID, "not reachable from a root")
		}
	}
	return errs
}
