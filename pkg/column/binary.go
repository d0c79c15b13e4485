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
	"bytes"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/sirupsen/logrus"
)

// BinaryColumn is the "like long-string without NUL semantics" column of
// spec.md §3.2: a [offsets, blob] pair holding arbitrary byte payloads.
type BinaryColumn struct {
	offsets *array.Array
	blob    *array.Bytes
}

// NewBinaryColumn constructs an empty binary column.
func NewBinaryColumn(a alloc.Allocator, log logrus.FieldLogger) (*BinaryColumn, error) {
	offsets, err := array.New(array.Leaf, a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.NewBytes(a, log)
	if err != nil {
		return nil, err
	}

	return &BinaryColumn{offsets: offsets, blob: blob}, nil
}

// AttachBinaryColumn attaches to an existing [offsets,blob] pair.
func AttachBinaryColumn(offsetsRef, blobRef alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*BinaryColumn, error) {
	offsets, err := array.Attach(offsetsRef, a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.AttachBytes(blobRef, a, log)
	if err != nil {
		return nil, err
	}

	return &BinaryColumn{offsets: offsets, blob: blob}, nil
}

// Refs implements Column.
func (c *BinaryColumn) Refs() []alloc.Ref { return []alloc.Ref{c.offsets.Ref(), c.blob.Ref()} }

// Size implements Column.
func (c *BinaryColumn) Size() int { return c.offsets.Len() }

// Clear implements Column.
func (c *BinaryColumn) Clear() error {
	if err := c.offsets.Clear(); err != nil {
		return err
	}

	return c.blob.Clear()
}

func (c *BinaryColumn) all() [][]byte {
	n := c.Size()
	out := make([][]byte, n)

	for i := 0; i < n; i++ {
		out[i] = c.Get(i)
	}

	return out
}

func (c *BinaryColumn) rebuild(rows [][]byte) error {
	if err := c.offsets.Clear(); err != nil {
		return err
	}

	if err := c.blob.Clear(); err != nil {
		return err
	}

	cum := int64(0)

	for _, v := range rows {
		if _, err := c.blob.Append(v); err != nil {
			return err
		}

		cum += int64(len(v))

		if err := c.offsets.Add(cum); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the payload at row i.
func (c *BinaryColumn) Get(i int) []byte {
	start := int64(0)
	if i > 0 {
		start = c.offsets.Get(i - 1)
	}

	end := c.offsets.Get(i)

	return c.blob.Slice(int(start), int(end))
}

// Add appends v.
func (c *BinaryColumn) Add(v []byte) error { return c.Append(v) }

// Append appends v to the end of the blob and records its cumulative offset.
func (c *BinaryColumn) Append(v []byte) error {
	off, err := c.blob.Append(v)
	if err != nil {
		return err
	}

	return c.offsets.Add(int64(off) + int64(len(v)))
}

// Insert inserts v at row i.
func (c *BinaryColumn) Insert(i int, v []byte) error {
	rows := c.all()
	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = v

	return c.rebuild(rows)
}

// Set overwrites row i.
func (c *BinaryColumn) Set(i int, v []byte) error {
	rows := c.all()
	rows[i] = v

	return c.rebuild(rows)
}

// Erase removes row i.
func (c *BinaryColumn) Erase(i int) error {
	rows := c.all()
	rows = append(rows[:i], rows[i+1:]...)

	return c.rebuild(rows)
}

// Find returns the first row equal to v in [start,end).
func (c *BinaryColumn) Find(v []byte, start, end int) (int, bool) {
	if end > c.Size() {
		end = c.Size()
	}

	for i := start; i < end; i++ {
		if bytes.Equal(c.Get(i), v) {
			return i, true
		}
	}

	return 0, false
}
