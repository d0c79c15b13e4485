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

// Package store implements the Table/Spec/Group layer of spec.md §3.3/§4.3,
// built on top of pkg/column.
package store

import (
	"fmt"

	"github.com/colstore/coredb/pkg/column"
)

// ColumnDef is one entry of a Spec: a column's type, name, string bound, and
// — for subtable columns — its child spec.
type ColumnDef struct {
	Name   string
	Type   column.Type
	MaxLen int // string columns only: the bound passed to NewStringColumn
	Child  *Spec
}

// Spec is the recursive column-type/name/child-spec structure of spec.md
// §3.3/§4.3. A real on-disk implementation stores this as nested node
// arrays; coredb keeps it as a plain Go slice, since nothing outside
// pkg/store ever needs to address a Spec by ref (only Table's columns-array
// is durable), and spec.md itself only requires that a Spec be recursive and
// queryable by index/name, not that it be independently persisted.
type Spec struct {
	columns []ColumnDef
}

// NewSpec constructs an empty spec.
func NewSpec() *Spec { return &Spec{} }

// AddColumn appends a column of the given type, returning its index. Use
// AddStringColumn for string columns (which need a length bound) and
// AddSubtableColumn for subtable columns (which need a child spec).
func (s *Spec) AddColumn(name string, typ column.Type) int {
	s.columns = append(s.columns, ColumnDef{Name: name, Type: typ})
	return len(s.columns) - 1
}

// AddStringColumn appends a string column bounded at maxLen bytes.
func (s *Spec) AddStringColumn(name string, maxLen int) int {
	s.columns = append(s.columns, ColumnDef{Name: name, Type: column.TypeString, MaxLen: maxLen})
	return len(s.columns) - 1
}

// AddSubtableColumn appends a subtable column and returns both its index and
// the (initially empty) spec every subtable materialized through it shares.
func (s *Spec) AddSubtableColumn(name string) (int, *Spec) {
	child := NewSpec()
	s.columns = append(s.columns, ColumnDef{Name: name, Type: column.TypeSubtable, Child: child})

	return len(s.columns) - 1, child
}

// ColumnCount returns the number of columns.
func (s *Spec) ColumnCount() int { return len(s.columns) }

// ColumnType returns column i's type (enum-string columns report TypeString:
// spec.md §3.3 "the internal tag is preserved only for the engine").
func (s *Spec) ColumnType(i int) column.Type { return s.columns[i].Type }

// ColumnName returns column i's name.
func (s *Spec) ColumnName(i int) string { return s.columns[i].Name }

// ColumnMaxLen returns column i's declared string length bound.
func (s *Spec) ColumnMaxLen(i int) int { return s.columns[i].MaxLen }

// ChildSpec returns column i's subtable spec, or nil if it is not a
// subtable column.
func (s *Spec) ChildSpec(i int) *Spec { return s.columns[i].Child }

// ColumnIndex returns the index of the column named name.
func (s *Spec) ColumnIndex(name string) (int, bool) {
	for i, c := range s.columns {
		if c.Name == name {
			return i, true
		}
	}

	return 0, false
}

// Equal reports whether s and other declare the same columns in the same
// order (name, type, and — recursively — child spec). Group.GetTable uses
// it to reject a request for an existing table under a different spec.
func (s *Spec) Equal(other *Spec) bool {
	if other == nil || len(s.columns) != len(other.columns) {
		return false
	}

	for i, c := range s.columns {
		o := other.columns[i]
		if c.Name != o.Name || c.Type != o.Type {
			return false
		}

		if c.Type == column.TypeSubtable && !c.Child.Equal(o.Child) {
			return false
		}
	}

	return true
}

var errUnknownColumnType = fmt.Errorf("store: unknown column type")
