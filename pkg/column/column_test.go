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
package column_test

import (
	"bytes"
	"testing"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/column"
)

func newAlloc() alloc.Allocator { return alloc.NewSlabAllocator(nil) }

func TestIntegerColumnBasic(t *testing.T) {
	c, err := column.NewIntegerColumn(newAlloc(), nil)
	if err != nil {
		t.Fatalf("NewIntegerColumn: %v", err)
	}

	for _, v := range []int64{10, 20, 30} {
		if err := c.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}
	}

	if err := c.Insert(1, 15); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	want := []int64{10, 15, 20, 30}
	for i, w := range want {
		if got := c.Get(i); got != w {
			t.Fatalf("Get(%d) = %d, want %d", i, got, w)
		}
	}

	if err := c.Erase(0); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	if got := c.Get(0); got != 15 {
		t.Fatalf("Get(0) after erase = %d, want 15", got)
	}

	row, found := c.Find(30, 0, c.Size())
	if !found || row != 2 {
		t.Fatalf("Find(30) = (%d, %v), want (2, true)", row, found)
	}
}

func TestIntegerColumnIndex(t *testing.T) {
	c, err := column.NewIntegerColumn(newAlloc(), nil)
	if err != nil {
		t.Fatalf("NewIntegerColumn: %v", err)
	}

	for _, v := range []int64{5, 1, 9, 3} {
		if err := c.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}
	}

	ix := c.BuildIndex()

	row, found := ix.Find(9)
	if !found || row != 2 {
		t.Fatalf("Index.Find(9) = (%d, %v), want (2, true)", row, found)
	}

	if _, found := ix.Find(42); found {
		t.Fatalf("Index.Find(42) found unexpectedly")
	}
}

func TestStringColumnShortLong(t *testing.T) {
	c, err := column.NewStringColumn(newAlloc(), 8, nil)
	if err != nil {
		t.Fatalf("NewStringColumn: %v", err)
	}

	if err := c.Add("short"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := c.Get(0); got != "short" {
		t.Fatalf("Get(0) = %q, want %q", got, "short")
	}

	if err := c.Set(0, "still short"); err != nil {
		t.Fatalf("Set beyond maxLen: %v", err)
	}

	if got := c.Get(0); got != "still short" {
		t.Fatalf("Get(0) after widening = %q, want %q", got, "still short")
	}
}

func TestAutoEnumerate(t *testing.T) {
	c, err := column.NewStringColumn(newAlloc(), 8, nil)
	if err != nil {
		t.Fatalf("NewStringColumn: %v", err)
	}

	values := []string{"a", "b", "a", "a", "b", "a", "a", "b", "a", "a"}
	for _, v := range values {
		if err := c.Add(v); err != nil {
			t.Fatalf("Add(%q): %v", v, err)
		}
	}

	enum, promoted, err := column.AutoEnumerate(c, 8, newAlloc())
	if err != nil {
		t.Fatalf("AutoEnumerate: %v", err)
	}

	if !promoted {
		t.Fatalf("AutoEnumerate did not promote a low-cardinality column")
	}

	for i, v := range values {
		if got := enum.Get(i); got != v {
			t.Fatalf("Get(%d) = %q, want %q", i, got, v)
		}
	}
}

func TestBinaryColumn(t *testing.T) {
	c, err := column.NewBinaryColumn(newAlloc(), nil)
	if err != nil {
		t.Fatalf("NewBinaryColumn: %v", err)
	}

	if err := c.Add([]byte("hello")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := c.Add([]byte("world")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := c.Get(0); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("Get(0) = %q, want %q", got, "hello")
	}

	if err := c.Set(1, []byte("changed")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := c.Get(1); !bytes.Equal(got, []byte("changed")) {
		t.Fatalf("Get(1) after Set = %q, want %q", got, "changed")
	}

	row, found := c.Find([]byte("hello"), 0, c.Size())
	if !found || row != 0 {
		t.Fatalf("Find(hello) = (%d, %v), want (0, true)", row, found)
	}
}

func TestSubtableColumn(t *testing.T) {
	a := newAlloc()

	c, err := column.NewSubtableColumn(a, nil)
	if err != nil {
		t.Fatalf("NewSubtableColumn: %v", err)
	}

	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if ref := c.GetRef(0); !ref.IsNull() {
		t.Fatalf("GetRef(0) = %v, want null", ref)
	}

	leaf, err := column.NewIntegerColumn(a, nil)
	if err != nil {
		t.Fatalf("NewIntegerColumn: %v", err)
	}

	if err := leaf.Add(1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := c.SetRef(0, leaf.Refs()[0]); err != nil {
		t.Fatalf("SetRef: %v", err)
	}

	if ref := c.GetRef(0); ref.IsNull() {
		t.Fatalf("GetRef(0) after SetRef is null")
	}

	if err := c.ClearSubtable(0); err != nil {
		t.Fatalf("ClearSubtable: %v", err)
	}

	if ref := c.GetRef(0); !ref.IsNull() {
		t.Fatalf("GetRef(0) after ClearSubtable = %v, want null", ref)
	}
}

func TestMixedColumn(t *testing.T) {
	c, err := column.NewMixedColumn(newAlloc(), nil)
	if err != nil {
		t.Fatalf("NewMixedColumn: %v", err)
	}

	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if typ := c.Type(0); typ != column.MixedNull {
		t.Fatalf("Type(0) = %v, want MixedNull", typ)
	}

	if err := c.SetInt(0, 42); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	if got := c.GetInt(0); got != 42 {
		t.Fatalf("GetInt(0) = %d, want 42", got)
	}

	if err := c.SetString(0, "hello"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if typ := c.Type(0); typ != column.MixedString {
		t.Fatalf("Type(0) after SetString = %v, want MixedString", typ)
	}

	if got := c.GetString(0); got != "hello" {
		t.Fatalf("GetString(0) = %q, want %q", got, "hello")
	}

	if err := c.SetDouble(0, 3.5); err != nil {
		t.Fatalf("SetDouble: %v", err)
	}

	if got := c.GetDouble(0); got != 3.5 {
		t.Fatalf("GetDouble(0) = %v, want 3.5", got)
	}
}
