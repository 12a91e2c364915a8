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

package event

const (
	// TransactionStatusUpdateEventType signals that the completion state of
	// a transaction's approval forest may have changed
	TransactionStatusUpdateEventType EventType = "transaction.status-update"
	// TransactionUpdateEventType signals informational changes such as a
	// partial approval or an edited tree
	TransactionUpdateEventType EventType = "transaction.update"
)

// TransactionEvent names the transactions an approval change touched
type TransactionEvent struct {
	EntityIDs []uint `json:"entityIds"`
}
