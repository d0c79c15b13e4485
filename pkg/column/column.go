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

// Package column implements the typed leaf/inner-node columns of spec.md
// §3.2/§4.2, built directly on top of pkg/array. Each concrete column type
// exposes the common Size/Insert/Erase/Set/Get/Add/Clear/Find surface
// spec.md's pseudocode describes; Go's lack of return-type polymorphism
// means each type spells its Get/Set out with its own element type rather
// than sharing one generic interface, matching how the teacher's
// pkg/trace column types (FieldColumn, bytes_column, ...) each implement a
// common Column interface for structural operations while keeping typed
// accessors of their own.
package column

import "github.com/colstore/coredb/pkg/alloc"

// Type identifies a column's stored element kind, shared by pkg/store's Spec.
type Type uint8

// The column type tags. EnumString is not a distinct Type: spec.md §3.2
// requires it to expose itself as TypeString to readers. AutoEnumerate
// builds an EnumStringColumn from a StringColumn, and pkg/store's Table
// swaps it in while its Spec keeps reporting TypeString.
const (
	TypeInt Type = iota
	TypeBool
	TypeString
	TypeBinary
	TypeSubtable
	TypeMixed
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	case TypeSubtable:
		return "subtable"
	case TypeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Column is the structural surface every column type supports, used by
// pkg/store's Table to manage a heterogeneous column list without knowing
// the element type of each one.
type Column interface {
	// Size returns the current row count.
	Size() int
	// Clear empties the column, releasing any owned storage.
	Clear() error
	// Refs returns the allocator ref(s) backing this column, in the order
	// they must be stored in the table's columns-array (IntegerColumn and
	// SubtableColumn return one, StringColumn and BinaryColumn two,
	// EnumStringColumn and MixedColumn three).
	Refs() []alloc.Ref
}
