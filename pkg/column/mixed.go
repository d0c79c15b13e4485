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
	"math"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/sirupsen/logrus"
)

// MixedType tags the dynamic type held in a single row of a MixedColumn
// (spec.md §3.2/§4.2).
type MixedType int

const (
	MixedNull MixedType = iota
	MixedInt
	MixedBool
	MixedFloat
	MixedDouble
	MixedString
	MixedBinary
	MixedSubtable
)

// String describes a MixedType.
func (t MixedType) String() string {
	switch t {
	case MixedNull:
		return "null"
	case MixedInt:
		return "int"
	case MixedBool:
		return "bool"
	case MixedFloat:
		return "float"
	case MixedDouble:
		return "double"
	case MixedString:
		return "string"
	case MixedBinary:
		return "binary"
	case MixedSubtable:
		return "subtable"
	default:
		return "unknown"
	}
}

// mixedData is the lazily-created payload store backing string/binary
// MixedColumn cells: a [starts, ends, blob] triple addressed independently
// per row (rather than the cumulative-offset scheme StringColumn's
// long-string representation uses), so that clearing one row's payload never
// requires rewriting every later row's boundaries (spec.md §3.2 "Deleting a
// non-terminal string/binary payload ... leaves an empty slot").
type mixedData struct {
	container *array.Array
	starts    *array.Array
	ends      *array.Array
	blob      *array.Bytes
}

func newMixedData(a alloc.Allocator, log logrus.FieldLogger) (*mixedData, error) {
	starts, err := array.New(array.Leaf, a, log)
	if err != nil {
		return nil, err
	}

	ends, err := array.New(array.Leaf, a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.NewBytes(a, log)
	if err != nil {
		return nil, err
	}

	container, err := array.New(array.HasRefs, a, log)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 3; i++ {
		if err := container.Add(0); err != nil {
			return nil, err
		}
	}

	if err := container.SetChildRef(0, starts.Ref()); err != nil {
		return nil, err
	}

	if err := container.SetChildRef(1, ends.Ref()); err != nil {
		return nil, err
	}

	if err := container.SetChildRef(2, blob.Ref()); err != nil {
		return nil, err
	}

	starts.SetParent(container, 0)
	ends.SetParent(container, 1)
	blob.SetParent(container, 2)

	return &mixedData{container: container, starts: starts, ends: ends, blob: blob}, nil
}

func attachMixedData(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*mixedData, error) {
	container, err := array.Attach(ref, a, log)
	if err != nil {
		return nil, err
	}

	starts, err := array.Attach(container.GetChildRef(0), a, log)
	if err != nil {
		return nil, err
	}

	ends, err := array.Attach(container.GetChildRef(1), a, log)
	if err != nil {
		return nil, err
	}

	blob, err := array.AttachBytes(container.GetChildRef(2), a, log)
	if err != nil {
		return nil, err
	}

	starts.SetParent(container, 0)
	ends.SetParent(container, 1)
	blob.SetParent(container, 2)

	return &mixedData{container: container, starts: starts, ends: ends, blob: blob}, nil
}

func (d *mixedData) size() int { return d.starts.Len() }

func (d *mixedData) get(row int) []byte {
	return d.blob.Slice(int(d.starts.Get(row)), int(d.ends.Get(row)))
}

func (d *mixedData) append(v []byte) (int, error) {
	off, err := d.blob.Append(v)
	if err != nil {
		return 0, err
	}

	if err := d.starts.Add(int64(off)); err != nil {
		return 0, err
	}

	if err := d.ends.Add(int64(off) + int64(len(v))); err != nil {
		return 0, err
	}

	return d.starts.Len() - 1, nil
}

// clearSlot empties row's payload. When row is the final live slot its bytes
// are reclaimed from the blob outright; otherwise the slot is just zeroed,
// leaving its bytes stranded in the blob rather than triggering a rewrite of
// every later row's boundaries.
func (d *mixedData) clearSlot(row int) error {
	if row == d.size()-1 {
		if err := d.blob.Truncate(int(d.starts.Get(row))); err != nil {
			return err
		}

		if err := d.starts.Erase(row); err != nil {
			return err
		}

		return d.ends.Erase(row)
	}

	if err := d.starts.Set(row, 0); err != nil {
		return err
	}

	return d.ends.Set(row, 0)
}

func (d *mixedData) destroy() error { return d.container.Destroy() }

// MixedColumn is the dynamically-typed column of spec.md §3.2/§4.2: three
// parallel stores — types, refs, and a lazily-created data payload store —
// addressed by row. types tags each row's current MixedType; refs holds the
// type's raw encoded payload (an int64 value, a float/double's bit pattern,
// an owned subtable ref, or an index into data); data only comes into
// existence once the first string or binary value is stored in the column.
type MixedColumn struct {
	types *IntegerColumn
	refs  *IntegerColumn
	data  *mixedData
	alloc alloc.Allocator
	log   logrus.FieldLogger
}

// NewMixedColumn constructs an empty mixed column.
func NewMixedColumn(a alloc.Allocator, log logrus.FieldLogger) (*MixedColumn, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	types, err := NewIntegerColumn(a, log)
	if err != nil {
		return nil, err
	}

	refs, err := NewIntegerColumn(a, log)
	if err != nil {
		return nil, err
	}

	return &MixedColumn{types: types, refs: refs, alloc: a, log: log}, nil
}

// AttachMixedColumn attaches to an existing [types, refs, data] triple.
// dataRef may be the null ref, meaning no string/binary value has ever been
// stored in this column.
func AttachMixedColumn(typesRef, refsRef, dataRef alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*MixedColumn, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	types, err := AttachIntegerColumn(typesRef, a, log)
	if err != nil {
		return nil, err
	}

	refs, err := AttachIntegerColumn(refsRef, a, log)
	if err != nil {
		return nil, err
	}

	c := &MixedColumn{types: types, refs: refs, alloc: a, log: log}

	if !dataRef.IsNull() {
		c.data, err = attachMixedData(dataRef, a, log)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Refs implements Column. The third element is the null ref until the first
// string/binary value forces the data store into existence.
func (c *MixedColumn) Refs() []alloc.Ref {
	dataRef := alloc.Ref(0)
	if c.data != nil {
		dataRef = c.data.container.Ref()
	}

	return append(c.types.Refs(), append(c.refs.Refs(), dataRef)...)
}

// Size implements Column.
func (c *MixedColumn) Size() int { return c.types.Size() }

// Clear implements Column.
func (c *MixedColumn) Clear() error {
	if err := c.types.Clear(); err != nil {
		return err
	}

	if err := c.refs.Clear(); err != nil {
		return err
	}

	if c.data != nil {
		if err := c.data.destroy(); err != nil {
			return err
		}

		c.data = nil
	}

	return nil
}

func (c *MixedColumn) ensureData() (*mixedData, error) {
	if c.data == nil {
		d, err := newMixedData(c.alloc, c.log)
		if err != nil {
			return nil, err
		}

		c.data = d
	}

	return c.data, nil
}

// releaseCell drops whatever resource row i currently owns (a subtable, or a
// data-store slot) ahead of overwriting or erasing it.
func (c *MixedColumn) releaseCell(i int) error {
	switch MixedType(c.types.Get(i)) {
	case MixedSubtable:
		ref := alloc.Ref(c.refs.Get(i))
		if ref.IsNull() {
			return nil
		}

		child, err := array.Attach(ref, c.alloc, c.log)
		if err != nil {
			return err
		}

		return child.Destroy()
	case MixedString, MixedBinary:
		if c.data == nil {
			return nil
		}

		return c.data.clearSlot(int(array.UntagInline(c.refs.Get(i))))
	default:
		return nil
	}
}

// Type returns the dynamic type stored at row i.
func (c *MixedColumn) Type(i int) MixedType { return MixedType(c.types.Get(i)) }

// GetInt returns row i's int64 value; the caller must check Type first.
func (c *MixedColumn) GetInt(i int) int64 { return array.UntagInline(c.refs.Get(i)) }

// GetBool returns row i's bool value.
func (c *MixedColumn) GetBool(i int) bool { return array.UntagInline(c.refs.Get(i)) != 0 }

// GetFloat returns row i's float32 value.
func (c *MixedColumn) GetFloat(i int) float32 {
	return math.Float32frombits(uint32(array.UntagInline(c.refs.Get(i))))
}

// GetDouble returns row i's float64 value. The tagged slot is shifted right
// as unsigned, so the top bit of the stored pattern is not sign-extended.
func (c *MixedColumn) GetDouble(i int) float64 {
	return math.Float64frombits(uint64(c.refs.Get(i)) >> 1)
}

// GetString returns row i's string value.
func (c *MixedColumn) GetString(i int) string {
	return string(c.data.get(int(array.UntagInline(c.refs.Get(i)))))
}

// GetBinary returns row i's binary value.
func (c *MixedColumn) GetBinary(i int) []byte {
	out := c.data.get(int(array.UntagInline(c.refs.Get(i))))
	cp := make([]byte, len(out))
	copy(cp, out)

	return cp
}

// GetSubtableRef returns row i's subtable root ref. Unlike the other
// variants this ref is never tagged: it is a real allocator ref, not an
// inline scalar (spec.md §4.1 "Ref tagging").
func (c *MixedColumn) GetSubtableRef(i int) alloc.Ref { return alloc.Ref(c.refs.Get(i)) }

// setCell stores an inline scalar at row i, tagging raw per the low-bit
// convention (spec.md §4.1) so refs.Get never confuses it with a ref.
func (c *MixedColumn) setCell(i int, typ MixedType, raw int64) error {
	if err := c.types.Set(i, int64(typ)); err != nil {
		return err
	}

	return c.refs.Set(i, array.TagInline(raw))
}

// setCellRef stores an untagged allocator ref at row i (MixedSubtable only).
func (c *MixedColumn) setCellRef(i int, typ MixedType, ref int64) error {
	if err := c.types.Set(i, int64(typ)); err != nil {
		return err
	}

	return c.refs.Set(i, ref)
}

// SetNull overwrites row i with the null value.
func (c *MixedColumn) SetNull(i int) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	return c.setCell(i, MixedNull, 0)
}

// SetInt overwrites row i with an integer value.
func (c *MixedColumn) SetInt(i int, v int64) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	return c.setCell(i, MixedInt, v)
}

// SetBool overwrites row i with a bool value.
func (c *MixedColumn) SetBool(i int, v bool) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	raw := int64(0)
	if v {
		raw = 1
	}

	return c.setCell(i, MixedBool, raw)
}

// SetFloat overwrites row i with a float32 value.
func (c *MixedColumn) SetFloat(i int, v float32) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	return c.setCell(i, MixedFloat, int64(math.Float32bits(v)))
}

// SetDouble overwrites row i with a float64 value.
func (c *MixedColumn) SetDouble(i int, v float64) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	return c.setCell(i, MixedDouble, int64(math.Float64bits(v)))
}

// SetString overwrites row i with a string value.
func (c *MixedColumn) SetString(i int, v string) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	d, err := c.ensureData()
	if err != nil {
		return err
	}

	row, err := d.append([]byte(v))
	if err != nil {
		return err
	}

	return c.setCell(i, MixedString, int64(row))
}

// SetBinary overwrites row i with a binary value.
func (c *MixedColumn) SetBinary(i int, v []byte) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	d, err := c.ensureData()
	if err != nil {
		return err
	}

	row, err := d.append(v)
	if err != nil {
		return err
	}

	return c.setCell(i, MixedBinary, int64(row))
}

// SetSubtableRef overwrites row i with an owned subtable ref.
func (c *MixedColumn) SetSubtableRef(i int, ref alloc.Ref) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	return c.setCellRef(i, MixedSubtable, int64(ref))
}

// insertCell inserts a new row holding an inline scalar, tagged per the
// low-bit convention (spec.md §4.1).
func (c *MixedColumn) insertCell(i int, typ MixedType, raw int64) error {
	if err := c.types.Insert(i, int64(typ)); err != nil {
		return err
	}

	return c.refs.Insert(i, array.TagInline(raw))
}

// Add appends a new null row; callers then overwrite it via the typed Set*
// methods (spec.md §4.2 "insert_done").
func (c *MixedColumn) Add() error { return c.insertCell(c.Size(), MixedNull, 0) }

// Insert inserts a null row at index i, shifting later rows up.
func (c *MixedColumn) Insert(i int) error { return c.insertCell(i, MixedNull, 0) }

// Erase removes row i, releasing whatever resource it owns first.
func (c *MixedColumn) Erase(i int) error {
	if err := c.releaseCell(i); err != nil {
		return err
	}

	if err := c.types.Erase(i); err != nil {
		return err
	}

	return c.refs.Erase(i)
}

// Find returns the first row whose dynamic type and raw payload match typ
// and raw (only meaningful for Int/Bool/Float/Double; string/binary/subtable
// comparisons must be done by the caller via Get*).
func (c *MixedColumn) Find(typ MixedType, raw int64, start, end int) (int, bool) {
	if end > c.Size() {
		end = c.Size()
	}

	for i := start; i < end; i++ {
		if MixedType(c.types.Get(i)) == typ && c.refs.Get(i) == array.TagInline(raw) {
			return i, true
		}
	}

	return 0, false
}
