// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package changeset

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// PayloadType tags Payload's union (spec.md §3.4).
type PayloadType uint8

const (
	PayloadNull PayloadType = iota
	PayloadErased
	PayloadDictionary  // sentinel: "container created"
	PayloadObjectValue // sentinel: "embedded object created"
	PayloadInt
	PayloadBool
	PayloadFloat
	PayloadDouble
	PayloadDecimal
	PayloadTimestamp
	PayloadObjectID
	PayloadUUID
	PayloadString
	PayloadBinary
	PayloadLink
)

func (t PayloadType) String() string {
	switch t {
	case PayloadNull:
		return "null"
	case PayloadErased:
		return "erased"
	case PayloadDictionary:
		return "dictionary"
	case PayloadObjectValue:
		return "object-value"
	case PayloadInt:
		return "int"
	case PayloadBool:
		return "bool"
	case PayloadFloat:
		return "float"
	case PayloadDouble:
		return "double"
	case PayloadDecimal:
		return "decimal"
	case PayloadTimestamp:
		return "timestamp"
	case PayloadObjectID:
		return "object-id"
	case PayloadUUID:
		return "uuid"
	case PayloadString:
		return "string"
	case PayloadBinary:
		return "binary"
	case PayloadLink:
		return "link"
	default:
		return "unknown"
	}
}

// Payload is the tagged union of spec.md §3.4. Decimal128/UUID/ObjectID are
// all fixed-width 16/12-byte scalars; rather than hand-roll their
// byte-order-sensitive codecs, coredb canonicalizes them through
// gnark-crypto's `fr.Element` (already a dependency for canonical
// fixed-width field encode/decode), storing the scalar as a field element
// and writing/reading its full 32-byte canonical encoding on the wire; no
// truncation to the payload's native width takes place.
type Payload struct {
	Type PayloadType

	Int       int64
	Bool      bool
	Float     float32
	Double    float64
	Decimal   fr.Element
	Timestamp int64 // milliseconds since epoch
	ObjectID  fr.Element
	UUID      fr.Element
	String    string
	Binary    []byte

	LinkTable string
	LinkPK    int64
}

// Null is the zero-value null payload.
func Null() Payload { return Payload{Type: PayloadNull} }

// IsNull reports whether p is the null payload (Type == PayloadNull). On
// the wire a null payload is written with type byte 0 (PayloadNull's
// value); the encoder does not use a -1 type sentinel for null.
func (p Payload) IsNull() bool { return p.Type == PayloadNull }

// DecimalFromUint64 builds a Decimal128 payload from a plain uint64,
// canonicalized through fr.Element.
func DecimalFromUint64(v uint64) Payload {
	var e fr.Element

	e.SetUint64(v)

	return Payload{Type: PayloadDecimal, Decimal: e}
}
