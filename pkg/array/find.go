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
package array

import "math"

// Condition selects the comparison FindFirst/FindAll scan for, matching
// spec.md §4.1's {Eq, Ne, Lt, Gt} set.
type Condition int

const (
	// Eq matches elements equal to the target value.
	Eq Condition = iota
	// Ne matches elements not equal to the target value.
	Ne
	// Lt matches elements strictly less than the target value.
	Lt
	// Gt matches elements strictly greater than the target value.
	Gt
)

func (c Condition) matches(v, target int64) bool {
	switch c {
	case Eq:
		return v == target
	case Ne:
		return v != target
	case Lt:
		return v < target
	case Gt:
		return v > target
	default:
		panic("array: unknown condition")
	}
}

// FindFirst scans [start,end) for the first element satisfying cond against
// value, returning its index. The hot integer-equality path would, in a
// native build, specialise per (condition, width) and process aligned
// chunks with SIMD; this portable implementation always falls back to the
// scalar loop spec.md describes as the tail case.
func (a *Array) FindFirst(cond Condition, value int64, start, end int) (int, bool) {
	h := a.hdr()
	if end > int(h.length) {
		end = int(h.length)
	}

	data := a.data()

	for i := start; i < end; i++ {
		if cond.matches(getValue(data, h.width, i), value) {
			return i, true
		}
	}

	return 0, false
}

// FindAll appends the indices of every element in [start,end) equal to value
// into dst, offset by baseOffset (used to accumulate matches across
// subtables during query execution).
func (a *Array) FindAll(dst *Array, value int64, baseOffset int64, start, end int) error {
	h := a.hdr()
	if end > int(h.length) {
		end = int(h.length)
	}

	data := a.data()

	for i := start; i < end; i++ {
		if getValue(data, h.width, i) == value {
			if err := dst.Add(baseOffset + int64(i)); err != nil {
				return err
			}
		}
	}

	return nil
}

// Sum returns the sum of elements in [start,end).
func (a *Array) Sum(start, end int) int64 {
	h := a.hdr()
	if end > int(h.length) {
		end = int(h.length)
	}

	data := a.data()
	var total int64

	for i := start; i < end; i++ {
		total += getValue(data, h.width, i)
	}

	return total
}

// Min returns the smallest element in [start,end), or false if empty.
func (a *Array) Min(start, end int) (int64, bool) {
	return a.extreme(start, end, math.MaxInt64, func(a, b int64) bool { return a < b })
}

// Max returns the largest element in [start,end), or false if empty.
func (a *Array) Max(start, end int) (int64, bool) {
	return a.extreme(start, end, math.MinInt64, func(a, b int64) bool { return a > b })
}

func (a *Array) extreme(start, end int, init int64, better func(a, b int64) bool) (int64, bool) {
	h := a.hdr()
	if end > int(h.length) {
		end = int(h.length)
	}

	if start >= end {
		return 0, false
	}

	data := a.data()
	best := init
	found := false

	for i := start; i < end; i++ {
		v := getValue(data, h.width, i)
		if !found || better(v, best) {
			best = v
			found = true
		}
	}

	return best, found
}

// Count returns the number of elements equal to v.
func (a *Array) Count(v int64) int {
	h := a.hdr()
	data := a.data()
	count := 0

	for i := 0; i < int(h.length); i++ {
		if getValue(data, h.width, i) == v {
			count++
		}
	}

	return count
}

// Sort sorts the array's elements in place, ascending.
func (a *Array) Sort() error {
	if err := a.makeWritable(); err != nil {
		return err
	}

	n := a.Len()
	vals := make([]int64, n)

	for i := range vals {
		vals[i] = a.Get(i)
	}

	insertionSort(vals, nil)

	for i, v := range vals {
		if err := a.Set(i, v); err != nil {
			return err
		}
	}

	return nil
}

// ReferenceSort sorts this array's values ascending while applying the same
// permutation to perm, so that perm[i] continues to identify the original
// row that produced value i after the sort (spec.md §4.1).
func (a *Array) ReferenceSort(perm *Array) error {
	if err := a.makeWritable(); err != nil {
		return err
	}

	if err := perm.makeWritable(); err != nil {
		return err
	}

	n := a.Len()
	vals := make([]int64, n)
	idx := make([]int64, n)

	for i := 0; i < n; i++ {
		vals[i] = a.Get(i)
		idx[i] = perm.Get(i)
	}

	insertionSort(vals, idx)

	for i := 0; i < n; i++ {
		if err := a.Set(i, vals[i]); err != nil {
			return err
		}

		if err := perm.Set(i, idx[i]); err != nil {
			return err
		}
	}

	return nil
}

// insertionSort sorts vals ascending, carrying the parallel idx slice along
// (when non-nil). O(n^2) is acceptable here: node arrays are small per-leaf
// chunks, and this keeps the reference implementation obviously correct.
func insertionSort(vals []int64, idx []int64) {
	for i := 1; i < len(vals); i++ {
		v := vals[i]

		var p int64
		if idx != nil {
			p = idx[i]
		}

		j := i - 1
		for j >= 0 && vals[j] > v {
			vals[j+1] = vals[j]

			if idx != nil {
				idx[j+1] = idx[j]
			}

			j--
		}

		vals[j+1] = v

		if idx != nil {
			idx[j+1] = p
		}
	}
}

// Locate performs the binary-search descent through an inner node's offsets
// array described in spec.md §3.2/§4.1: it returns the child index owning
// globalIndex, and the index local to that child.
func Locate(offsets *Array, globalIndex int64) (childIdx int, localIndex int64) {
	lo, hi := 0, offsets.Len()

	for lo < hi {
		mid := (lo + hi) / 2
		if offsets.Get(mid) <= globalIndex {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	prior := int64(0)
	if lo > 0 {
		prior = offsets.Get(lo - 1)
	}

	return lo, globalIndex - prior
}
