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
	"bytes"
	"encoding/json"
	"fmt"
)

// ApproverSpec describes a node to create, along with its children
type ApproverSpec struct {
	ListID    *uint          `json:"listId,omitempty"    yaml:"listId,omitempty"`
	UserID    *uint          `json:"userId,omitempty"    yaml:"userId,omitempty"`
	Threshold *uint          `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Approvers []ApproverSpec `json:"approvers,omitempty" yaml:"approvers,omitempty"`
}

// ApproverUpdate changes one field of an existing node. SetListID
// distinguishes detaching (ListID nil) from leaving the parent alone.
type ApproverUpdate struct {
	ListID    *uint
	Threshold *uint
	UserID    *uint
	SetListID bool
}

// fields returns how many fields the update changes
func (u ApproverUpdate) fields() int {
	ret := 0
	if u.SetListID {
		ret++
	}
	if u.Threshold != nil {
		ret++
	}
	if u.UserID != nil {
		ret++
	}
	return ret
}

// UnmarshalJSON treats an explicit "listId": null as a detach
func (u *ApproverUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = ApproverUpdate{}
	for key, val := range raw {
		switch key {
		case "listId":
			u.SetListID = true
			if !bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
				if err := json.Unmarshal(val, &u.ListID); err != nil {
					return fmt.Errorf("listId: %w", err)
				}
			}
		case "threshold":
			if err := json.Unmarshal(val, &u.Threshold); err != nil {
				return fmt.Errorf("threshold: %w", err)
			}
		case "userId":
			if err := json.Unmarshal(val, &u.UserID); err != nil {
				return fmt.Errorf("userId: %w", err)
			}
		default:
			return fmt.Errorf("unknown field %q", key)
		}
	}
	return nil
}

// ApprovalRequest is one user's decision on a transaction
type ApprovalRequest struct {
	Signature     []byte
	TransactionID uint
	UserID        uint
	UserKeyID     uint
	Approved      bool
}

// ApprovalResult reports the outcome of a submission. Recorded is false when
// nothing was written, in which case Reason says why.
type ApprovalResult struct {
	Reason   error
	Effect   Effect
	Updated  []uint
	Recorded bool
}
