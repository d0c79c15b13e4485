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
	"github.com/sirupsen/logrus"
)

// EnumStringColumn is the "[keys, values]" enum-compressed string
// representation of spec.md §3.2: keys holds each distinct string once, in
// first-seen order, and values holds one index into keys per row. It
// exposes itself to readers as a plain string column (the internal tag is
// an engine-only distinction, per spec.md §4.3 "Spec").
type EnumStringColumn struct {
	keys   *StringColumn
	values *IntegerColumn
}

// AttachEnumStringColumn attaches to an existing [keys, values] pair. maxLen
// is the original column's declared maximum string length, used to pick
// keys' short/long representation exactly as AutoEnumerate did when it was
// created.
func AttachEnumStringColumn(keysRefA, keysRefB, valuesRef alloc.Ref, maxLen int, a alloc.Allocator, log logrus.FieldLogger) (*EnumStringColumn, error) {
	keys, err := AttachStringColumn(keysRefA, keysRefB, maxLen, a, log)
	if err != nil {
		return nil, err
	}

	values, err := AttachIntegerColumn(valuesRef, a, log)
	if err != nil {
		return nil, err
	}

	return &EnumStringColumn{keys: keys, values: values}, nil
}

// Refs implements Column: the keys column's two refs followed by the values
// column's ref. pkg/store packs all three behind one wrapper slot of the
// table's columns-array.
func (c *EnumStringColumn) Refs() []alloc.Ref {
	return append(c.keys.Refs(), c.values.Refs()...)
}

// Size implements Column.
func (c *EnumStringColumn) Size() int { return c.values.Size() }

// Clear implements Column.
func (c *EnumStringColumn) Clear() error {
	if err := c.keys.Clear(); err != nil {
		return err
	}

	return c.values.Clear()
}

// Get returns the string at row i.
func (c *EnumStringColumn) Get(i int) string {
	return c.keys.Get(int(c.values.Get(i)))
}

func (c *EnumStringColumn) keyIndex(v string) (int, error) {
	if idx, ok := c.keys.Find(v, 0, c.keys.Size()); ok {
		return idx, nil
	}

	if err := c.keys.Add(v); err != nil {
		return 0, err
	}

	return c.keys.Size() - 1, nil
}

// Set overwrites row i, adding v to the keys dictionary if not already present.
func (c *EnumStringColumn) Set(i int, v string) error {
	idx, err := c.keyIndex(v)
	if err != nil {
		return err
	}

	return c.values.Set(i, int64(idx))
}

// Insert inserts v at row i.
func (c *EnumStringColumn) Insert(i int, v string) error {
	idx, err := c.keyIndex(v)
	if err != nil {
		return err
	}

	return c.values.Insert(i, int64(idx))
}

// Add appends v.
func (c *EnumStringColumn) Add(v string) error { return c.Insert(c.Size(), v) }

// Erase removes row i. Keys are never pruned: promotion is only reversible
// by rebuilding the column (spec.md §3.2).
func (c *EnumStringColumn) Erase(i int) error { return c.values.Erase(i) }

// Find returns the first row equal to v in [start,end).
func (c *EnumStringColumn) Find(v string, start, end int) (int, bool) {
	idx, ok := c.keys.Find(v, 0, c.keys.Size())
	if !ok {
		return 0, false
	}

	return c.values.Find(int64(idx), start, end)
}

// AutoEnumerate scans src and, if the ratio of distinct to total strings
// falls strictly below EnumerateThreshold, builds and returns the
// replacement [keys,values] pair. It returns (nil, false) when enumeration
// would not be beneficial (spec.md §4.2 "Enum compression"). maxLen must be
// the same bound the column was originally declared with, so that the
// short/long representation AutoEnumerate picks for keys is reproducible
// when the column is later re-attached from disk.
func AutoEnumerate(src *StringColumn, maxLen int, a alloc.Allocator) (*EnumStringColumn, bool, error) {
	if src.Size() == 0 || src.DistinctRatio() >= EnumerateThreshold {
		return nil, false, nil
	}

	rows := src.all()

	keys, err := NewStringColumn(a, maxLen, nil)
	if err != nil {
		return nil, false, err
	}

	values, err := NewIntegerColumn(a, nil)
	if err != nil {
		return nil, false, err
	}

	enum := &EnumStringColumn{keys: keys, values: values}

	for _, v := range rows {
		if err := enum.Add(v); err != nil {
			return nil, false, err
		}
	}

	return enum, true, nil
}
