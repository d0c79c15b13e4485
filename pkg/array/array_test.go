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
package array_test

import (
	"testing"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
)

func newLeaf(t *testing.T) *array.Array {
	t.Helper()

	a, err := array.New(array.Leaf, alloc.NewSlabAllocator(nil), nil)
	if err != nil {
		t.Fatalf("array.New: %v", err)
	}

	return a
}

// TestWidthExpansion covers spec.md §8 end-to-end scenario 1.
func TestWidthExpansion(t *testing.T) {
	a := newLeaf(t)

	for _, v := range []int64{1, 2, 3, 127} {
		if err := a.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}
	}

	if w := a.Width(); w != 8 {
		t.Fatalf("width after small inserts = %d, want 8", w)
	}

	want := []int64{1, 2, 3, 127}
	for i, w := range want {
		if got := a.Get(i); got != w {
			t.Fatalf("Get(%d) = %d, want %d", i, got, w)
		}
	}

	if err := a.Add(128); err != nil {
		t.Fatalf("Add(128): %v", err)
	}

	if w := a.Width(); w != 16 {
		t.Fatalf("width after 128 = %d, want 16", w)
	}

	want = append(want, 128)
	for i, w := range want {
		if got := a.Get(i); got != w {
			t.Fatalf("Get(%d) = %d, want %d", i, got, w)
		}
	}
}

// TestWidthMinimality checks spec.md §8 invariant 1 for one sequence of
// appends on an initially empty array: the width is the minimal
// power-of-two sufficient to hold every stored value.
func TestWidthMinimality(t *testing.T) {
	a := newLeaf(t)

	values := []int64{0, -1, 5, -129, 70000, -2, 9999999999, 3}

	max := int64(0)

	for _, v := range values {
		if err := a.Add(v); err != nil {
			t.Fatalf("Add(%d): %v", v, err)
		}

		if v > max || -v > max {
			if v < 0 {
				max = -v
			} else {
				max = v
			}
		}
	}

	for i := 0; i < a.Len(); i++ {
		v := a.Get(i)
		w := a.Width()
		lo, hi := widthBounds(w)

		if v < lo || v > hi {
			t.Fatalf("value %d at %d does not fit claimed width %d", v, i, w)
		}

		if w > 1 {
			halfLo, halfHi := widthBounds(w / 2)
			fitsHalf := true

			for j := 0; j < a.Len(); j++ {
				u := a.Get(j)
				if u < halfLo || u > halfHi {
					fitsHalf = false
					break
				}
			}

			if fitsHalf && w != 1 {
				t.Fatalf("width %d is not minimal: all values fit width %d", w, w/2)
			}
		}
	}
}

func widthBounds(w uint) (int64, int64) {
	if w == 0 {
		return 0, 0
	}

	half := int64(1) << (w - 1)

	return -half, half - 1
}

func TestInsertEraseOrder(t *testing.T) {
	a := newLeaf(t)

	for _, v := range []int64{10, 20, 30} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.Insert(1, 15); err != nil {
		t.Fatal(err)
	}

	want := []int64{10, 15, 20, 30}
	for i, w := range want {
		if got := a.Get(i); got != w {
			t.Fatalf("after insert, Get(%d) = %d, want %d", i, got, w)
		}
	}

	if err := a.Erase(0); err != nil {
		t.Fatal(err)
	}

	want = []int64{15, 20, 30}
	for i, w := range want {
		if got := a.Get(i); got != w {
			t.Fatalf("after erase, Get(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestFindSumMinMax(t *testing.T) {
	a := newLeaf(t)

	for _, v := range []int64{5, -3, 10, 10, 2} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	if idx, ok := a.FindFirst(array.Eq, 10, 0, a.Len()); !ok || idx != 2 {
		t.Fatalf("FindFirst(Eq,10) = (%d,%v), want (2,true)", idx, ok)
	}

	if sum := a.Sum(0, a.Len()); sum != 24 {
		t.Fatalf("Sum = %d, want 24", sum)
	}

	if min, ok := a.Min(0, a.Len()); !ok || min != -3 {
		t.Fatalf("Min = (%d,%v), want (-3,true)", min, ok)
	}

	if max, ok := a.Max(0, a.Len()); !ok || max != 10 {
		t.Fatalf("Max = (%d,%v), want (10,true)", max, ok)
	}

	if c := a.Count(10); c != 2 {
		t.Fatalf("Count(10) = %d, want 2", c)
	}
}

func TestSort(t *testing.T) {
	a := newLeaf(t)

	for _, v := range []int64{5, -3, 10, 1} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.Sort(); err != nil {
		t.Fatal(err)
	}

	want := []int64{-3, 1, 5, 10}
	for i, w := range want {
		if got := a.Get(i); got != w {
			t.Fatalf("Get(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestCopyOnWrite(t *testing.T) {
	al := alloc.NewSlabAllocator(nil)

	a, err := array.New(array.Leaf, al, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []int64{1, 2, 3} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	al.Freeze(a.Ref())

	if err := a.Set(0, 42); err != nil {
		t.Fatalf("Set after freeze: %v", err)
	}

	if got := a.Get(0); got != 42 {
		t.Fatalf("Get(0) after COW = %d, want 42", got)
	}
}

func TestRefTagging(t *testing.T) {
	tagged := array.TagInline(7)
	if !array.IsInline(tagged) {
		t.Fatalf("TagInline(7) not recognised as inline")
	}

	if v := array.UntagInline(tagged); v != 7 {
		t.Fatalf("UntagInline(TagInline(7)) = %d, want 7", v)
	}
}
