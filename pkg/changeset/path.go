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

// Package changeset implements the instruction/payload model of spec.md
// §3.4/§4.4: a closed tagged union of schema/object/path-addressed
// instructions, an interned string pool, and the binary encode/parse/
// reverse operations over that union.
package changeset

// PathElement is one nested step below an object's field: either an array
// index (ArrayInsert/ArrayErase/ArrayMove) or a set member key (SetInsert/
// SetErase), never both.
type PathElement struct {
	HasIndex bool
	Index    uint32
	Key      string
}

// Path addresses a single value inside an object: `(table, object-pk,
// field, [index | key]*)` (spec.md §3.4). Elements is empty for a plain
// field-level mutation (Update, AddInteger, Clear) and carries exactly one
// entry for the list/set element operations.
type Path struct {
	Table    string
	Object   int64
	Field    string
	Elements []PathElement
}

// Equal reports whether p and o address the same location.
func (p Path) Equal(o Path) bool {
	if p.Table != o.Table || p.Object != o.Object || p.Field != o.Field {
		return false
	}

	if len(p.Elements) != len(o.Elements) {
		return false
	}

	for i := range p.Elements {
		if p.Elements[i] != o.Elements[i] {
			return false
		}
	}

	return true
}

// SameContainer reports whether p and o address the same field on the same
// object, ignoring any trailing array-index/set-key element — i.e. whether
// they name the same list/set container (spec.md §4.5 "on the same
// container").
func (p Path) SameContainer(o Path) bool {
	return p.Table == o.Table && p.Object == o.Object && p.Field == o.Field
}

// SamePrefix reports whether p is a strict prefix of o at the element
// level: same table, object and field, p's elements are the leading
// elements of o's, and o has at least one more element (spec.md §4.5
// "nested merge rules ... one instruction's path is a strict prefix of the
// other's").
func (p Path) SamePrefix(o Path) bool {
	if p.Table != o.Table || p.Object != o.Object || p.Field != o.Field {
		return false
	}

	if len(o.Elements) <= len(p.Elements) {
		return false
	}

	for i := range p.Elements {
		if p.Elements[i] != o.Elements[i] {
			return false
		}
	}

	return true
}

// Index returns the array index of the path's single trailing element. It
// panics if Elements is empty or the element is a set key, not an index —
// callers only call this on ArrayInsert/ArrayErase/ArrayMove paths.
func (p Path) Index() uint32 {
	e := p.Elements[len(p.Elements)-1]
	if !e.HasIndex {
		panic("changeset: path element is a set key, not an array index")
	}

	return e.Index
}

// WithIndex returns a copy of p with its trailing array index replaced.
func (p Path) WithIndex(i uint32) Path {
	q := p
	q.Elements = append([]PathElement(nil), p.Elements...)
	q.Elements[len(q.Elements)-1] = PathElement{HasIndex: true, Index: i}

	return q
}
