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

	"github.com/blinklabs-io/quorum/database/models"
)

// Structural validation errors
var (
	ErrEmptyApprover      = errors.New("approver has no user, threshold or children")
	ErrUserOrTreeConflict = errors.New("approver cannot have both a user and a tree")
	ErrThresholdRequired  = errors.New("approver tree requires a threshold")
	ErrChildrenRequired   = errors.New("approver threshold requires children")
	ErrThresholdRange     = errors.New("threshold must be between 1 and the number of children")
	ErrDuplicateApprover  = errors.New("approver already exists in this list")
	ErrParentNotFound     = errors.New("parent approver not found")
	ErrRootMismatch       = errors.New("approver does not belong to this transaction")
	ErrCyclicParent       = errors.New("approver cannot be moved under its own descendant")
	ErrParentNotTree      = errors.New("parent approver is not a tree")
	ErrApproverNotTree    = errors.New("approver is not a tree")
	ErrApproverIsTree     = errors.New("approver is a tree and cannot have a user")
	ErrInvalidUpdate      = errors.New("exactly one of listId, threshold or userId must be updated")
)

// Authorization errors
var (
	ErrNotCreator       = errors.New("only the transaction creator can modify approvers")
	ErrNotAnApprover    = errors.New("user is not an approver of this transaction")
	ErrUnauthorizedView = errors.New("user cannot view the approvers of this transaction")
)

// Approval errors
var (
	ErrAlreadyApproved          = errors.New("user has already approved this transaction")
	ErrSignatureMismatch        = errors.New("signature does not match the transaction body")
	ErrTransactionNotApprovable = errors.New("transaction cannot be approved in its current status")
	ErrKeyNotFound              = errors.New("key is not registered to the user")
	ErrTransactionFinalized     = errors.New("transaction is finalized")
)

// Not-found errors
var (
	ErrApproverNotFound    = errors.New("approver not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ErrorKind is the class of an error returned by this package
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindStructural
	KindAuthorization
	KindApproval
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindAuthorization:
		return "authorization"
	case KindApproval:
		return "approval"
	case KindNotFound:
		return "not-found"
	default:
		return "internal"
	}
}

var errorKinds = map[error]ErrorKind{
	ErrEmptyApprover:            KindStructural,
	ErrUserOrTreeConflict:       KindStructural,
	ErrThresholdRequired:        KindStructural,
	ErrChildrenRequired:         KindStructural,
	ErrThresholdRange:           KindStructural,
	ErrDuplicateApprover:        KindStructural,
	ErrParentNotFound:           KindStructural,
	ErrRootMismatch:             KindStructural,
	ErrCyclicParent:             KindStructural,
	ErrParentNotTree:            KindStructural,
	ErrApproverNotTree:          KindStructural,
	ErrApproverIsTree:           KindStructural,
	ErrInvalidUpdate:            KindStructural,
	ErrNotCreator:               KindAuthorization,
	ErrNotAnApprover:            KindAuthorization,
	ErrUnauthorizedView:         KindAuthorization,
	ErrAlreadyApproved:          KindApproval,
	ErrSignatureMismatch:        KindApproval,
	ErrTransactionNotApprovable: KindApproval,
	ErrKeyNotFound:              KindApproval,
	ErrTransactionFinalized:     KindApproval,
	ErrApproverNotFound:         KindNotFound,
	ErrTransactionNotFound:      KindNotFound,
}

// KindOf classifies err, which may be wrapped. Errors not raised by this
// package are KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	for sentinel, kind := range errorKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// storeError maps storage not-found errors to their approval counterparts
func storeError(err error) error {
	switch {
	case errors.Is(err, models.ErrTransactionNotFound):
		return ErrTransactionNotFound
	case errors.Is(err, models.ErrApproverNotFound):
		return ErrApproverNotFound
	default:
		return err
	}
}
