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
package store_test

import (
	"testing"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/colstore/coredb/pkg/column"
	"github.com/colstore/coredb/pkg/store"
)

func personSpec() *store.Spec {
	spec := store.NewSpec()
	spec.AddStringColumn("name", 15)
	spec.AddColumn("age", column.TypeInt)

	return spec
}

func TestTableAddDeleteClear(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	tbl, err := store.NewTable(personSpec(), a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	row, err := tbl.AddRow()
	if err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	if err := tbl.SetString(0, row, "alice"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := tbl.SetInt(1, row, 30); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	if _, err := tbl.AddRow(); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	if got, want := tbl.Rows(), 2; got != want {
		t.Fatalf("Rows() = %d, want %d", got, want)
	}

	if err := tbl.DeleteRow(0); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}

	if got, want := tbl.Rows(), 1; got != want {
		t.Fatalf("Rows() after delete = %d, want %d", got, want)
	}

	if err := tbl.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if got, want := tbl.Rows(), 0; got != want {
		t.Fatalf("Rows() after clear = %d, want %d", got, want)
	}
}

func TestTableInsertBracket(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	tbl, err := store.NewTable(personSpec(), a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if err := tbl.BeginInsert(0); err != nil {
		t.Fatalf("BeginInsert: %v", err)
	}

	if err := tbl.InsertString(0, "bob"); err != nil {
		t.Fatalf("InsertString: %v", err)
	}

	if err := tbl.InsertDone(); err == nil {
		t.Fatalf("InsertDone succeeded before every column was inserted")
	}

	if err := tbl.InsertInt(1, 25); err != nil {
		t.Fatalf("InsertInt: %v", err)
	}

	if err := tbl.InsertDone(); err != nil {
		t.Fatalf("InsertDone: %v", err)
	}

	if got := tbl.Rows(); got != 1 {
		t.Fatalf("Rows() = %d, want 1", got)
	}

	name, err := tbl.GetString(0, 0)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}

	if name != "bob" {
		t.Fatalf("GetString(0,0) = %q, want %q", name, "bob")
	}
}

func TestTableSubtableRoundTrip(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	spec := store.NewSpec()
	spec.AddColumn("id", column.TypeInt)
	subCol, childSpec := spec.AddSubtableColumn("children")
	childSpec.AddStringColumn("name", 15)

	tbl, err := store.NewTable(spec, a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	row, err := tbl.AddRow()
	if err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	child, err := tbl.GetTable(subCol, row)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}

	childRow, err := child.AddRow()
	if err != nil {
		t.Fatalf("child.AddRow: %v", err)
	}

	if err := child.SetString(0, childRow, "kid"); err != nil {
		t.Fatalf("child.SetString: %v", err)
	}

	again, err := tbl.GetTable(subCol, row)
	if err != nil {
		t.Fatalf("GetTable (cached): %v", err)
	}

	if again != child {
		t.Fatalf("GetTable did not return the cached accessor")
	}

	if err := tbl.ClearSubtable(subCol, row); err != nil {
		t.Fatalf("ClearSubtable: %v", err)
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("using a cleared subtable accessor did not panic")
			}
		}()

		child.AddRow()
	}()
}

func TestTableOptimizePromotesLowCardinalityStrings(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	spec := store.NewSpec()
	spec.AddStringColumn("status", 8)

	tbl, err := store.NewTable(spec, a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	values := []string{"ok", "err", "ok", "ok", "err", "ok", "ok", "err", "ok", "ok"}
	for _, v := range values {
		row, err := tbl.AddRow()
		if err != nil {
			t.Fatalf("AddRow: %v", err)
		}

		if err := tbl.SetString(0, row, v); err != nil {
			t.Fatalf("SetString: %v", err)
		}
	}

	if err := tbl.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	for i, v := range values {
		got, err := tbl.GetString(0, i)
		if err != nil {
			t.Fatalf("GetString(%d): %v", i, err)
		}

		if got != v {
			t.Fatalf("GetString(%d) = %q, want %q", i, got, v)
		}
	}
}

func TestTableFindWithIndex(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	spec := store.NewSpec()
	spec.AddColumn("score", column.TypeInt)

	tbl, err := store.NewTable(spec, a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	for _, v := range []int64{5, 1, 9, 3} {
		row, err := tbl.AddRow()
		if err != nil {
			t.Fatalf("AddRow: %v", err)
		}

		if err := tbl.SetInt(0, row, v); err != nil {
			t.Fatalf("SetInt: %v", err)
		}
	}

	if err := tbl.SetIndex(0); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	row, found, err := tbl.FindInt(0, 9, 0, tbl.Rows())
	if err != nil {
		t.Fatalf("FindInt: %v", err)
	}

	if !found || row != 2 {
		t.Fatalf("FindInt(9) = (%d, %v), want (2, true)", row, found)
	}

	dst, err := array.New(array.Leaf, a, nil)
	if err != nil {
		t.Fatalf("array.New: %v", err)
	}

	if err := tbl.FindAllInt(dst, 0, 5); err != nil {
		t.Fatalf("FindAllInt: %v", err)
	}

	if dst.Len() != 1 || dst.Get(0) != 0 {
		t.Fatalf("FindAllInt(5) = %v rows, want [0]", dst.Len())
	}
}

func TestTableRootRefAttach(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)
	spec := personSpec()

	tbl, err := store.NewTable(spec, a, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	row, err := tbl.AddRow()
	if err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	if err := tbl.SetString(0, row, "carol"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := tbl.SetInt(1, row, 40); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	ref, err := tbl.RootRef()
	if err != nil {
		t.Fatalf("RootRef: %v", err)
	}

	attached, err := store.AttachTable(ref, spec, a, nil)
	if err != nil {
		t.Fatalf("AttachTable: %v", err)
	}

	if got, want := attached.Rows(), 1; got != want {
		t.Fatalf("Rows() = %d, want %d", got, want)
	}

	name, err := attached.GetString(0, 0)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}

	if name != "carol" {
		t.Fatalf("GetString(0,0) = %q, want %q", name, "carol")
	}

	age, err := attached.GetInt(1, 0)
	if err != nil {
		t.Fatalf("GetInt: %v", err)
	}

	if age != 40 {
		t.Fatalf("GetInt(1,0) = %d, want 40", age)
	}
}

func TestGroupCommitRollback(t *testing.T) {
	g := store.Open("", nil, nil)

	spec := personSpec()

	tbl, err := g.GetTable("people", spec)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}

	row, err := tbl.AddRow()
	if err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	if err := tbl.SetString(0, row, "dave"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := g.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reattached, err := g.GetTable("people", spec)
	if err != nil {
		t.Fatalf("GetTable after commit: %v", err)
	}

	name, err := reattached.GetString(0, 0)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}

	if name != "dave" {
		t.Fatalf("GetString(0,0) = %q, want %q", name, "dave")
	}

	if _, err := reattached.AddRow(); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	if err := g.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	afterRollback, err := g.GetTable("people", spec)
	if err != nil {
		t.Fatalf("GetTable after rollback: %v", err)
	}

	if got, want := afterRollback.Rows(), 1; got != want {
		t.Fatalf("Rows() after rollback = %d, want %d", got, want)
	}
}
