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

import (
	"encoding/binary"
	"slices"
)

const (
	TransactionBodyBlobKeyPrefix = "tb"
	CommitTimestampBlobKey       = "metadata_commit_timestamp"
)

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// TransactionBodyBlobKey returns the blob key holding the canonical body
// bytes of the given transaction
func TransactionBodyBlobKey(transactionID uint) []byte {
	return slices.Concat(
		[]byte(TransactionBodyBlobKeyPrefix),
		BlobKeyUint64ToBytes(uint64(transactionID)),
	)
}
