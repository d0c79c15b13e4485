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

// IntegerColumn is a leaf node array of int64 values (spec.md §3.2).
type IntegerColumn struct {
	arr *array.Array
}

// NewIntegerColumn constructs an empty integer column.
func NewIntegerColumn(a alloc.Allocator, log logrus.FieldLogger) (*IntegerColumn, error) {
	arr, err := array.New(array.Leaf, a, log)
	if err != nil {
		return nil, err
	}

	return &IntegerColumn{arr: arr}, nil
}

// AttachIntegerColumn attaches to an existing integer column root.
func AttachIntegerColumn(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*IntegerColumn, error) {
	arr, err := array.Attach(ref, a, log)
	if err != nil {
		return nil, err
	}

	return &IntegerColumn{arr: arr}, nil
}

// Array exposes the underlying node array, e.g. so pkg/store can SetParent it.
func (c *IntegerColumn) Array() *array.Array { return c.arr }

// Size implements Column.
func (c *IntegerColumn) Size() int { return c.arr.Len() }

// Refs implements Column.
func (c *IntegerColumn) Refs() []alloc.Ref { return []alloc.Ref{c.arr.Ref()} }

// Clear implements Column.
func (c *IntegerColumn) Clear() error { return c.arr.Clear() }

// Get returns the value at row i.
func (c *IntegerColumn) Get(i int) int64 { return c.arr.Get(i) }

// Set overwrites the value at row i.
func (c *IntegerColumn) Set(i int, v int64) error { return c.arr.Set(i, v) }

// Insert inserts v at row i.
func (c *IntegerColumn) Insert(i int, v int64) error { return c.arr.Insert(i, v) }

// Erase removes row i.
func (c *IntegerColumn) Erase(i int) error { return c.arr.Erase(i) }

// Add appends v.
func (c *IntegerColumn) Add(v int64) error { return c.arr.Add(v) }

// Find returns the first row equal to v in [start,end).
func (c *IntegerColumn) Find(v int64, start, end int) (int, bool) {
	return c.arr.FindFirst(array.Eq, v, start, end)
}

// FindAll appends every matching row index into dst.
func (c *IntegerColumn) FindAll(dst *array.Array, v int64, start, end int) error {
	return c.arr.FindAll(dst, v, 0, start, end)
}

// IncrementIf adds delta to every element satisfying threshold (Gt).
func (c *IntegerColumn) IncrementIf(threshold int64, delta int64) error {
	for i := 0; i < c.arr.Len(); i++ {
		if c.arr.Get(i) > threshold {
			if err := c.arr.Set(i, c.arr.Get(i)+delta); err != nil {
				return err
			}
		}
	}

	return nil
}

// Adjust adds delta to every element greater than or equal to from, used to
// keep a foreign-key-like integer column consistent after a row is spliced
// into a referenced table.
func (c *IntegerColumn) Adjust(from int64, delta int64) error {
	for i := 0; i < c.arr.Len(); i++ {
		if v := c.arr.Get(i); v >= from {
			if err := c.arr.Set(i, v+delta); err != nil {
				return err
			}
		}
	}

	return nil
}

// Sum returns the sum of all rows.
func (c *IntegerColumn) Sum() int64 { return c.arr.Sum(0, c.arr.Len()) }

// Min returns the smallest row value.
func (c *IntegerColumn) Min() (int64, bool) { return c.arr.Min(0, c.arr.Len()) }

// Max returns the largest row value.
func (c *IntegerColumn) Max() (int64, bool) { return c.arr.Max(0, c.arr.Len()) }

// Count returns the number of rows equal to v.
func (c *IntegerColumn) Count(v int64) int { return c.arr.Count(v) }

// Index is a simple sorted (value, row) index over an integer column,
// built by build_index and consulted by Table.FindInt once attached via
// SetIndex (spec.md §4.2 "build_index() -> Index").
type Index struct {
	pairs []indexPair
}

type indexPair struct {
	value int64
	row   int
}

// BuildIndex builds a sorted index over the column's current contents.
// Mutations after BuildIndex do not update the index; callers must rebuild.
func (c *IntegerColumn) BuildIndex() *Index {
	pairs := make([]indexPair, c.arr.Len())
	for i := range pairs {
		pairs[i] = indexPair{value: c.arr.Get(i), row: i}
	}

	insertionSortPairs(pairs)

	return &Index{pairs: pairs}
}

func insertionSortPairs(p []indexPair) {
	for i := 1; i < len(p); i++ {
		v := p[i]
		j := i - 1

		for j >= 0 && p[j].value > v.value {
			p[j+1] = p[j]
			j--
		}

		p[j+1] = v
	}
}

// Find returns the first row with the given value via binary search over
// the index, or false if none exists.
func (ix *Index) Find(value int64) (int, bool) {
	lo, hi := 0, len(ix.pairs)

	for lo < hi {
		mid := (lo + hi) / 2
		if ix.pairs[mid].value < value {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo < len(ix.pairs) && ix.pairs[lo].value == value {
		return ix.pairs[lo].row, true
	}

	return 0, false
}
