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
	"fmt"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/sirupsen/logrus"
)

// shortStringCap is the largest max_string_length+1 stride a short-string
// column will use before a column falls back to the long-string
// offsets+blob representation (spec.md §3.2).
const shortStringCap = 64

// EnumerateThreshold is the distinct/total ratio below which AutoEnumerate
// promotes a string column to an enum-compressed one (spec.md §8 "Enum
// compression boundary": the comparison is strict-less-than).
const EnumerateThreshold = 0.5

// StringColumn is a column of strings, represented either as a fixed-stride
// NUL-padded short-string buffer or as a long-string [offsets,blob] pair,
// chosen once at construction time from the caller's expected maximum
// string length (spec.md §3.2). Row-changing operations (Insert/Set/Erase)
// are implemented by re-deriving the full row set and rewriting storage;
// this keeps the blob/offsets invariant (strictly increasing, sum of
// lengths equals blob size) trivially true at the cost of O(n) per mutation,
// which is acceptable since spec.md's adaptive-bitwidth performance budget
// is about the integer node array, not string columns.
type StringColumn struct {
	short *shortString
	long  *longString
}

type shortString struct {
	buf    *array.Bytes
	stride int
	length *array.Array // element count (rows); Bytes only tracks byte length
}

type longString struct {
	offsets *array.Array // cumulative byte length per row
	blob    *array.Bytes
}

// NewStringColumn constructs an empty string column, using the short
// fixed-stride representation when maxLen+1 fits within shortStringCap.
func NewStringColumn(a alloc.Allocator, maxLen int, log logrus.FieldLogger) (*StringColumn, error) {
	if maxLen+1 <= shortStringCap {
		buf, err := array.NewBytes(a, log)
		if err != nil {
			return nil, err
		}

		length, err := array.New(array.Leaf, a, log)
		if err != nil {
			return nil, err
		}

		return &StringColumn{short: &shortString{buf: buf, stride: maxLen + 1, length: length}}, nil
	}

	offsets, err := array.New(array.Leaf, a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.NewBytes(a, log)
	if err != nil {
		return nil, err
	}

	return &StringColumn{long: &longString{offsets: offsets, blob: blob}}, nil
}

// AttachStringColumn attaches to an existing string column, picking the same
// short/long representation NewStringColumn would have picked for maxLen.
func AttachStringColumn(refA, refB alloc.Ref, maxLen int, a alloc.Allocator, log logrus.FieldLogger) (*StringColumn, error) {
	if maxLen+1 <= shortStringCap {
		buf, err := array.AttachBytes(refA, a, log)
		if err != nil {
			return nil, err
		}

		length, err := array.Attach(refB, a, log)
		if err != nil {
			return nil, err
		}

		return &StringColumn{short: &shortString{buf: buf, stride: maxLen + 1, length: length}}, nil
	}

	offsets, err := array.Attach(refA, a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.AttachBytes(refB, a, log)
	if err != nil {
		return nil, err
	}

	return &StringColumn{long: &longString{offsets: offsets, blob: blob}}, nil
}

// Refs implements Column.
func (c *StringColumn) Refs() []alloc.Ref {
	if c.short != nil {
		return []alloc.Ref{c.short.buf.Ref(), c.short.length.Ref()}
	}

	return []alloc.Ref{c.long.offsets.Ref(), c.long.blob.Ref()}
}

// Size implements Column.
func (c *StringColumn) Size() int {
	if c.short != nil {
		return c.short.length.Len()
	}

	return c.long.offsets.Len()
}

// Clear implements Column.
func (c *StringColumn) Clear() error {
	if c.short != nil {
		if err := c.short.buf.Clear(); err != nil {
			return err
		}

		return c.short.length.Clear()
	}

	if err := c.long.offsets.Clear(); err != nil {
		return err
	}

	return c.long.blob.Clear()
}

// Get returns the string at row i.
func (c *StringColumn) Get(i int) string {
	if c.short != nil {
		raw := c.short.buf.Slice(i*c.short.stride, (i+1)*c.short.stride)
		if idx := bytes.IndexByte(raw, 0); idx >= 0 {
			raw = raw[:idx]
		}

		return string(raw)
	}

	start := int64(0)
	if i > 0 {
		start = c.long.offsets.Get(i - 1)
	}

	end := c.long.offsets.Get(i)

	return string(c.long.blob.Slice(int(start), int(end)))
}

// all returns every row's string, in order.
func (c *StringColumn) all() []string {
	n := c.Size()
	out := make([]string, n)

	for i := 0; i < n; i++ {
		out[i] = c.Get(i)
	}

	return out
}

func (c *StringColumn) rebuildShort(rows []string) error {
	s := c.short
	if err := s.buf.Clear(); err != nil {
		return err
	}

	if err := s.length.Clear(); err != nil {
		return err
	}

	for range rows {
		if err := s.length.Add(0); err != nil {
			return err
		}
	}

	padded := make([]byte, s.stride*len(rows))

	for i, v := range rows {
		if len(v)+1 > s.stride {
			return fmt.Errorf("column: string %q exceeds short-string stride %d", v, s.stride)
		}

		copy(padded[i*s.stride:], v)
	}

	_, err := s.buf.Append(padded)

	return err
}

func (c *StringColumn) rebuildLong(rows []string) error {
	l := c.long
	if err := l.offsets.Clear(); err != nil {
		return err
	}

	if err := l.blob.Clear(); err != nil {
		return err
	}

	cum := int64(0)

	for _, v := range rows {
		if _, err := l.blob.Append([]byte(v)); err != nil {
			return err
		}

		cum += int64(len(v))

		if err := l.offsets.Add(cum); err != nil {
			return err
		}
	}

	return nil
}

func (c *StringColumn) rebuild(rows []string) error {
	if c.short != nil {
		return c.rebuildShort(rows)
	}

	return c.rebuildLong(rows)
}

// Add appends v, equivalent to Insert(Size(), v).
func (c *StringColumn) Add(v string) error { return c.Insert(c.Size(), v) }

// Insert inserts v at row i.
func (c *StringColumn) Insert(i int, v string) error {
	rows := c.all()
	rows = append(rows, "")
	copy(rows[i+1:], rows[i:])
	rows[i] = v

	return c.rebuild(rows)
}

// Set overwrites the string at row i.
func (c *StringColumn) Set(i int, v string) error {
	rows := c.all()
	rows[i] = v

	return c.rebuild(rows)
}

// Erase removes row i.
func (c *StringColumn) Erase(i int) error {
	rows := c.all()
	rows = append(rows[:i], rows[i+1:]...)

	return c.rebuild(rows)
}

// Find returns the first row equal to v in [start,end).
func (c *StringColumn) Find(v string, start, end int) (int, bool) {
	if end > c.Size() {
		end = c.Size()
	}

	for i := start; i < end; i++ {
		if c.Get(i) == v {
			return i, true
		}
	}

	return 0, false
}

// DistinctRatio returns (distinct count)/(total count), used by
// AutoEnumerate's threshold check.
func (c *StringColumn) DistinctRatio() float64 {
	n := c.Size()
	if n == 0 {
		return 1
	}

	seen := make(map[string]struct{}, n)

	for _, v := range c.all() {
		seen[v] = struct{}{}
	}

	return float64(len(seen)) / float64(n)
}
