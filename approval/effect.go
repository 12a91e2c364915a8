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

// EffectKind is the class of notification a mutation calls for
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectUpdate is informational, e.g. partial signing progress
	EffectUpdate
	// EffectStatusUpdate signals the overall completion state of the
	// transaction may have changed
	EffectStatusUpdate
)

func (k EffectKind) String() string {
	switch k {
	case EffectUpdate:
		return "update"
	case EffectStatusUpdate:
		return "status-update"
	default:
		return "none"
	}
}

// Effect is returned by every mutating operation. The caller is responsible
// for dispatching it.
type Effect struct {
	EntityIDs []uint
	Kind      EffectKind
}

func noEffect() Effect {
	return Effect{Kind: EffectNone}
}

func updateEffect(transactionID uint) Effect {
	return Effect{Kind: EffectUpdate, EntityIDs: []uint{transactionID}}
}

func statusEffect(transactionID uint) Effect {
	return Effect{Kind: EffectStatusUpdate, EntityIDs: []uint{transactionID}}
}
