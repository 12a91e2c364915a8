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

package models

import "time"

// UserKey is a public key registered by a user. PublicKey holds either the
// raw key bytes or the DER encoding.
type UserKey struct {
	CreatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
	PublicKey []byte     `gorm:"size:128;not null"`
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"index;not null"`
}

func (UserKey) TableName() string {
	return "user_key"
}
