// Copyright 2025 Blink Labs Software
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

package types

import "errors"

// Errors shared by the storage plugins
var (
	// ErrBlobKeyNotFound is returned by blob reads of a missing key
	ErrBlobKeyNotFound = errors.New("blob key not found")
	// ErrTxnWrongType is returned when a store is handed another store's txn
	ErrTxnWrongType = errors.New("invalid transaction type")
	ErrNilTxn       = errors.New("nil transaction")
	// ErrNoStoreAvailable is returned when committing a write txn without stores
	ErrNoStoreAvailable = errors.New("no store available")
	// ErrBlobStoreUnavailable is returned when a body is written without a blob store
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
)

// Txn is the commit/rollback handle of a single store. database.Txn pairs
// one metadata and one blob handle.
type Txn interface {
	Commit() error
	Rollback() error
}
