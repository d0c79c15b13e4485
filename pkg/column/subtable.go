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
package column

import (
	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/sirupsen/logrus"
)

// SubtableColumn is a has-refs array of 0-or-ref cells, each either empty or
// pointing at the columns-array root of a nested subtable (spec.md §3.2).
// This column deliberately knows nothing about Table/Spec: materializing a
// cell's ref into an accessor is pkg/store's job, which keeps pkg/column
// from importing pkg/store and creating a cycle.
type SubtableColumn struct {
	arr *array.Array
}

// NewSubtableColumn constructs an empty subtable column.
func NewSubtableColumn(a alloc.Allocator, log logrus.FieldLogger) (*SubtableColumn, error) {
	arr, err := array.New(array.HasRefs, a, log)
	if err != nil {
		return nil, err
	}

	return &SubtableColumn{arr: arr}, nil
}

// AttachSubtableColumn attaches to an existing subtable column root.
func AttachSubtableColumn(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*SubtableColumn, error) {
	arr, err := array.Attach(ref, a, log)
	if err != nil {
		return nil, err
	}

	return &SubtableColumn{arr: arr}, nil
}

// Array exposes the underlying node array, e.g. so pkg/store can SetParent it.
func (c *SubtableColumn) Array() *array.Array { return c.arr }

// Size implements Column.
func (c *SubtableColumn) Size() int { return c.arr.Len() }

// Refs implements Column.
func (c *SubtableColumn) Refs() []alloc.Ref { return []alloc.Ref{c.arr.Ref()} }

// Clear implements Column: destroys every owned subtable.
func (c *SubtableColumn) Clear() error { return c.arr.Clear() }

// Add appends an empty cell.
func (c *SubtableColumn) Add() error { return c.arr.Add(0) }

// Insert inserts an empty cell at row i.
func (c *SubtableColumn) Insert(i int) error { return c.arr.Insert(i, 0) }

// Erase removes row i, destroying its subtable if one is present.
func (c *SubtableColumn) Erase(i int) error { return c.arr.Erase(i) }

// GetRef returns the subtable root ref held at row i, or a null ref if the
// cell is empty.
func (c *SubtableColumn) GetRef(i int) alloc.Ref { return alloc.Ref(c.arr.Get(i)) }

// SetRef replaces row i's subtable wholesale, destroying whatever subtable
// previously occupied the cell (spec.md §3.2 "set_table").
func (c *SubtableColumn) SetRef(i int, ref alloc.Ref) error { return c.arr.SetChildRef(i, ref) }

// ClearSubtable empties row i back to the empty state, destroying any
// existing subtable (spec.md §3.2 "clear_subtable").
func (c *SubtableColumn) ClearSubtable(i int) error { return c.arr.SetChildRef(i, alloc.Ref(0)) }

// UpdateRef rewrites row i's ref in place without destroying whatever it
// previously pointed at: used to keep a cached subtable accessor's root ref
// current after its own storage has moved (copy-on-write, reallocation), as
// opposed to SetRef's wholesale cell replacement.
func (c *SubtableColumn) UpdateRef(i int, ref alloc.Ref) error { return c.arr.Set(i, int64(ref)) }
