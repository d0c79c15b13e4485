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
package store

import (
	"fmt"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/colstore/coredb/pkg/column"
	"github.com/sirupsen/logrus"
)

// stringLike is the surface shared by column.StringColumn and
// column.EnumStringColumn, letting Table dispatch string operations without
// caring whether optimize() has promoted the column yet (spec.md §3.3 "the
// enum-string type is exposed to readers as plain string").
type stringLike interface {
	Size() int
	Get(i int) string
	Set(i int, v string) error
	Insert(i int, v string) error
	Erase(i int) error
	Add(v string) error
	Find(v string, start, end int) (int, bool)
}

type subtableKey struct {
	col int
	row int
}

// Table pairs a Spec with a columns-array of per-column root refs (spec.md
// §3.3/§4.3). Subtable accessors obtained via GetTable are cached so that
// repeated calls for the same (col, row) return the same *Table, and are
// invalidated the moment their backing cell is cleared or overwritten.
type Table struct {
	alloc alloc.Allocator
	log   logrus.FieldLogger
	spec  *Spec

	columns []column.Column
	rows    int

	indexes   map[int]*column.Index
	subtables map[subtableKey]*Table
	valid     bool

	inserting    bool
	insertRow    int
	insertedCols map[int]bool
}

// NewTable constructs an empty table over spec.
func NewTable(spec *Spec, a alloc.Allocator, log logrus.FieldLogger) (*Table, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	columns := make([]column.Column, spec.ColumnCount())

	for i := 0; i < spec.ColumnCount(); i++ {
		c, err := newColumn(spec.columns[i], a, log)
		if err != nil {
			return nil, err
		}

		columns[i] = c
	}

	return &Table{
		alloc:     a,
		log:       log,
		spec:      spec,
		columns:   columns,
		indexes:   make(map[int]*column.Index),
		subtables: make(map[subtableKey]*Table),
		valid:     true,
	}, nil
}

// AttachTable attaches to a previously persisted table's columns-array root,
// reconstructing one column accessor per spec entry.
func AttachTable(ref alloc.Ref, spec *Spec, a alloc.Allocator, log logrus.FieldLogger) (*Table, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	root, err := array.Attach(ref, a, log)
	if err != nil {
		return nil, err
	}

	n := spec.ColumnCount()
	if root.Len() != n {
		return nil, fmt.Errorf("store: attach table: columns-array length %d != spec column count %d", root.Len(), n)
	}

	columns := make([]column.Column, n)

	for i := 0; i < n; i++ {
		w, err := attachColumnWrapper(alloc.Ref(root.Get(i)), a, log)
		if err != nil {
			return nil, err
		}

		c, err := attachColumn(spec.columns[i], wrapperRefs(w), a, log)
		if err != nil {
			return nil, err
		}

		columns[i] = c
	}

	rows := 0
	if n > 0 {
		rows = columns[0].Size()
	}

	return &Table{
		alloc:     a,
		log:       log,
		spec:      spec,
		columns:   columns,
		rows:      rows,
		indexes:   make(map[int]*column.Index),
		subtables: make(map[subtableKey]*Table),
		valid:     true,
	}, nil
}

func (t *Table) checkValid() {
	if !t.valid {
		panic(ErrAccessorInvalidated)
	}
}

// RootRef flushes any live subtable accessors and returns a fresh
// columns-array ref capturing the table's current state. Each call
// allocates a new root and per-column wrapper; callers durably persist this
// ref (e.g. into a parent SubtableColumn cell, or a Group's table
// directory) rather than caching it across further mutation.
func (t *Table) RootRef() (alloc.Ref, error) {
	t.checkValid()

	if err := t.Flush(); err != nil {
		return 0, err
	}

	root, err := array.New(array.Leaf, t.alloc, t.log)
	if err != nil {
		return 0, err
	}

	for _, c := range t.columns {
		w, err := newColumnWrapper(c.Refs(), t.alloc, t.log)
		if err != nil {
			return 0, err
		}

		if err := root.Add(int64(w.Ref())); err != nil {
			return 0, err
		}
	}

	return root.Ref(), nil
}

// Flush pushes every live cached subtable's current root ref back into its
// parent cell, recursively. Table.RootRef calls this automatically; Group's
// Commit calls it at the top level before persisting.
func (t *Table) Flush() error {
	for i, def := range t.spec.columns {
		if def.Type != column.TypeSubtable {
			continue
		}

		sc := t.columns[i].(*column.SubtableColumn)

		for row := 0; row < sc.Size(); row++ {
			child, ok := t.subtables[subtableKey{i, row}]
			if !ok || !child.valid {
				continue
			}

			ref, err := child.RootRef()
			if err != nil {
				return err
			}

			if err := sc.UpdateRef(row, ref); err != nil {
				return err
			}
		}
	}

	return nil
}

// Rows returns the current row count.
func (t *Table) Rows() int { return t.rows }

// Spec returns the table's spec.
func (t *Table) Spec() *Spec { return t.spec }

func (t *Table) insertDefaultCell(i int, row int) error {
	switch t.spec.ColumnType(i) {
	case column.TypeInt, column.TypeBool:
		return t.columns[i].(*column.IntegerColumn).Insert(row, 0)
	case column.TypeString:
		return t.columns[i].(stringLike).Insert(row, "")
	case column.TypeBinary:
		return t.columns[i].(*column.BinaryColumn).Insert(row, nil)
	case column.TypeSubtable:
		return t.columns[i].(*column.SubtableColumn).Insert(row)
	case column.TypeMixed:
		return t.columns[i].(*column.MixedColumn).Insert(row)
	default:
		return errUnknownColumnType
	}
}

func (t *Table) eraseCell(i int, row int) error {
	switch c := t.columns[i].(type) {
	case *column.IntegerColumn:
		return c.Erase(row)
	case *column.BinaryColumn:
		return c.Erase(row)
	case *column.SubtableColumn:
		return c.Erase(row)
	case *column.MixedColumn:
		return c.Erase(row)
	case stringLike:
		return c.Erase(row)
	default:
		return errUnknownColumnType
	}
}

// AddRow appends a new, zero-valued row to every column, returning its
// index (spec.md §4.3 "add_row() -> row_index").
func (t *Table) AddRow() (int, error) {
	t.checkValid()

	row := t.rows

	for i := range t.columns {
		if err := t.insertDefaultCell(i, row); err != nil {
			return 0, err
		}
	}

	t.rows++

	return row, nil
}

// DeleteRow removes row, destroying any subtable/mixed payload it owns. The
// cached subtable accessors of row are invalidated; those of later rows stay
// valid and are renumbered, since their indices shift down by one.
func (t *Table) DeleteRow(row int) error {
	t.checkValid()

	if row < 0 || row >= t.rows {
		panic(fmt.Sprintf("store: row %d out of range [0,%d)", row, t.rows))
	}

	for i := range t.columns {
		if err := t.eraseCell(i, row); err != nil {
			return err
		}
	}

	t.invalidateSubtablesAt(row)
	t.shiftSubtableKeys(row+1, -1)
	t.rows--

	return nil
}

// Clear empties every column and invalidates all cached subtable accessors.
func (t *Table) Clear() error {
	t.checkValid()

	for _, c := range t.columns {
		if err := c.Clear(); err != nil {
			return err
		}
	}

	for _, child := range t.subtables {
		child.valid = false
	}

	t.subtables = make(map[subtableKey]*Table)
	t.indexes = make(map[int]*column.Index)
	t.rows = 0

	return nil
}

func (t *Table) invalidateSubtablesAt(row int) {
	for key, child := range t.subtables {
		if key.row == row {
			child.valid = false
			delete(t.subtables, key)
		}
	}
}

// shiftSubtableKeys renumbers cached subtable accessors whose row is >=
// fromRow by delta, matching a preceding row insertion/deletion.
func (t *Table) shiftSubtableKeys(fromRow int, delta int) {
	shifted := make(map[subtableKey]*Table, len(t.subtables))

	for key, child := range t.subtables {
		if key.row >= fromRow {
			key.row += delta
		}

		shifted[key] = child
	}

	t.subtables = shifted
}

// GetInt returns the int64 at (col, row).
func (t *Table) GetInt(col, row int) (int64, error) {
	t.checkValid()

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return 0, errColumnType(col, "int")
	}

	return ic.Get(row), nil
}

// SetInt overwrites (col, row).
func (t *Table) SetInt(col, row int, v int64) error {
	t.checkValid()

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return errColumnType(col, "int")
	}

	return ic.Set(row, v)
}

// GetBool returns the bool at (col, row).
func (t *Table) GetBool(col, row int) (bool, error) {
	v, err := t.GetInt(col, row)
	return v != 0, err
}

// SetBool overwrites (col, row).
func (t *Table) SetBool(col, row int, v bool) error {
	raw := int64(0)
	if v {
		raw = 1
	}

	return t.SetInt(col, row, raw)
}

// GetString returns the string at (col, row).
func (t *Table) GetString(col, row int) (string, error) {
	t.checkValid()

	sc, ok := t.columns[col].(stringLike)
	if !ok {
		return "", errColumnType(col, "string")
	}

	return sc.Get(row), nil
}

// SetString overwrites (col, row).
func (t *Table) SetString(col, row int, v string) error {
	t.checkValid()

	sc, ok := t.columns[col].(stringLike)
	if !ok {
		return errColumnType(col, "string")
	}

	return sc.Set(row, v)
}

// GetBinary returns the payload at (col, row).
func (t *Table) GetBinary(col, row int) ([]byte, error) {
	t.checkValid()

	bc, ok := t.columns[col].(*column.BinaryColumn)
	if !ok {
		return nil, errColumnType(col, "binary")
	}

	return bc.Get(row), nil
}

// SetBinary overwrites (col, row).
func (t *Table) SetBinary(col, row int, v []byte) error {
	t.checkValid()

	bc, ok := t.columns[col].(*column.BinaryColumn)
	if !ok {
		return errColumnType(col, "binary")
	}

	return bc.Set(row, v)
}

// GetMixed returns the dynamic type stored at (col, row).
func (t *Table) GetMixed(col, row int) (*column.MixedColumn, int, error) {
	t.checkValid()

	mc, ok := t.columns[col].(*column.MixedColumn)
	if !ok {
		return nil, 0, errColumnType(col, "mixed")
	}

	return mc, row, nil
}

// GetTable materializes (or returns the already-cached) subtable accessor
// rooted at (col, row). A freshly created subtable is written back into the
// cell immediately, per spec.md §8 "Empty subtable ... materialized on first
// write becomes a 2-slot inner node".
func (t *Table) GetTable(col, row int) (*Table, error) {
	t.checkValid()

	sc, ok := t.columns[col].(*column.SubtableColumn)
	if !ok {
		return nil, errColumnType(col, "subtable")
	}

	key := subtableKey{col, row}
	if cached, ok := t.subtables[key]; ok {
		return cached, nil
	}

	childSpec := t.spec.ChildSpec(col)

	var (
		child *Table
		err   error
	)

	ref := sc.GetRef(row)
	if ref.IsNull() {
		child, err = NewTable(childSpec, t.alloc, t.log)
		if err != nil {
			return nil, err
		}

		rootRef, err := child.RootRef()
		if err != nil {
			return nil, err
		}

		if err := sc.SetRef(row, rootRef); err != nil {
			return nil, err
		}
	} else {
		child, err = AttachTable(ref, childSpec, t.alloc, t.log)
		if err != nil {
			return nil, err
		}
	}

	t.subtables[key] = child

	return child, nil
}

// ClearSubtable destroys (col, row)'s subtree and invalidates any cached
// accessor over it (spec.md §4.2 "clear(i) destroys the subtree and writes
// 0 at slot i").
func (t *Table) ClearSubtable(col, row int) error {
	t.checkValid()

	sc, ok := t.columns[col].(*column.SubtableColumn)
	if !ok {
		return errColumnType(col, "subtable")
	}

	if err := sc.ClearSubtable(row); err != nil {
		return err
	}

	t.invalidateSubtablesAt(row)

	return nil
}

// SetIndex attaches a sorted index to an integer column (spec.md §4.3
// "set_index(col)").
func (t *Table) SetIndex(col int) error {
	t.checkValid()

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return errColumnType(col, "int")
	}

	t.indexes[col] = ic.BuildIndex()

	return nil
}

// Optimize scans string columns and enum-compresses those that cross the
// distinct-ratio threshold (spec.md §4.3 "optimize()").
func (t *Table) Optimize() error {
	t.checkValid()

	for i, def := range t.spec.columns {
		if def.Type != column.TypeString {
			continue
		}

		sc, ok := t.columns[i].(*column.StringColumn)
		if !ok {
			continue // already promoted
		}

		enum, promoted, err := column.AutoEnumerate(sc, def.MaxLen, t.alloc)
		if err != nil {
			return err
		}

		if promoted {
			t.columns[i] = enum
		}
	}

	return nil
}

// FindInt returns the first row in [start,end) equal to v, consulting a
// built index for col when one is attached.
func (t *Table) FindInt(col int, v int64, start, end int) (int, bool, error) {
	t.checkValid()

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return 0, false, errColumnType(col, "int")
	}

	if ix, ok := t.indexes[col]; ok && start == 0 && end >= t.rows {
		row, found := ix.Find(v)
		return row, found, nil
	}

	row, found := ic.Find(v, start, end)

	return row, found, nil
}

// FindAllInt appends every matching row index into dst.
func (t *Table) FindAllInt(dst *array.Array, col int, v int64) error {
	t.checkValid()

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return errColumnType(col, "int")
	}

	return ic.FindAll(dst, v, 0, t.rows)
}

// FindString returns the first row in [start,end) equal to v.
func (t *Table) FindString(col int, v string, start, end int) (int, bool, error) {
	t.checkValid()

	sc, ok := t.columns[col].(stringLike)
	if !ok {
		return 0, false, errColumnType(col, "string")
	}

	row, found := sc.Find(v, start, end)

	return row, found, nil
}

// FindAllString appends every matching row index into dst.
func (t *Table) FindAllString(dst *array.Array, col int, v string) error {
	t.checkValid()

	sc, ok := t.columns[col].(stringLike)
	if !ok {
		return errColumnType(col, "string")
	}

	for i := 0; i < sc.Size(); i++ {
		if sc.Get(i) == v {
			if err := dst.Add(int64(i)); err != nil {
				return err
			}
		}
	}

	return nil
}

// BeginInsert opens an insert_<T>/insert_done bracket at row (spec.md §4.3).
func (t *Table) BeginInsert(row int) error {
	t.checkValid()

	if t.inserting {
		return fmt.Errorf("store: insert already in progress")
	}

	if row < 0 || row > t.rows {
		panic(fmt.Sprintf("store: insert row %d out of range [0,%d]", row, t.rows))
	}

	t.inserting = true
	t.insertRow = row
	t.insertedCols = make(map[int]bool, len(t.columns))

	return nil
}

func (t *Table) markInserted(col int) {
	t.insertedCols[col] = true
}

// InsertInt inserts v into col at the row opened by BeginInsert.
func (t *Table) InsertInt(col int, v int64) error {
	if !t.inserting {
		return ErrNotInserting
	}

	ic, ok := t.columns[col].(*column.IntegerColumn)
	if !ok {
		return errColumnType(col, "int")
	}

	if err := ic.Insert(t.insertRow, v); err != nil {
		return err
	}

	t.markInserted(col)

	return nil
}

// InsertBool inserts v into col at the row opened by BeginInsert.
func (t *Table) InsertBool(col int, v bool) error {
	raw := int64(0)
	if v {
		raw = 1
	}

	return t.InsertInt(col, raw)
}

// InsertString inserts v into col at the row opened by BeginInsert.
func (t *Table) InsertString(col int, v string) error {
	if !t.inserting {
		return ErrNotInserting
	}

	sc, ok := t.columns[col].(stringLike)
	if !ok {
		return errColumnType(col, "string")
	}

	if err := sc.Insert(t.insertRow, v); err != nil {
		return err
	}

	t.markInserted(col)

	return nil
}

// InsertBinary inserts v into col at the row opened by BeginInsert.
func (t *Table) InsertBinary(col int, v []byte) error {
	if !t.inserting {
		return ErrNotInserting
	}

	bc, ok := t.columns[col].(*column.BinaryColumn)
	if !ok {
		return errColumnType(col, "binary")
	}

	if err := bc.Insert(t.insertRow, v); err != nil {
		return err
	}

	t.markInserted(col)

	return nil
}

// InsertSubtable inserts an empty subtable cell into col at the row opened
// by BeginInsert.
func (t *Table) InsertSubtable(col int) error {
	if !t.inserting {
		return ErrNotInserting
	}

	sc, ok := t.columns[col].(*column.SubtableColumn)
	if !ok {
		return errColumnType(col, "subtable")
	}

	if err := sc.Insert(t.insertRow); err != nil {
		return err
	}

	t.markInserted(col)

	return nil
}

// InsertMixed inserts a null mixed cell into col at the row opened by
// BeginInsert; callers overwrite it via the Mixed column's Set* methods once
// InsertDone has run.
func (t *Table) InsertMixed(col int) error {
	if !t.inserting {
		return ErrNotInserting
	}

	mc, ok := t.columns[col].(*column.MixedColumn)
	if !ok {
		return errColumnType(col, "mixed")
	}

	if err := mc.Insert(t.insertRow); err != nil {
		return err
	}

	t.markInserted(col)

	return nil
}

// InsertDone closes the insert bracket opened by BeginInsert, incrementing
// the row count. It fails if any column did not receive exactly one
// Insert* call (spec.md §4.3 "Violating this leaves the table in an invalid
// state").
func (t *Table) InsertDone() error {
	if !t.inserting {
		return ErrNotInserting
	}

	if len(t.insertedCols) != len(t.columns) {
		return ErrInsertIncomplete
	}

	t.rows++
	t.inserting = false
	t.insertedCols = nil

	return nil
}
