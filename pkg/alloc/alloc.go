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

// Package alloc provides the allocator abstraction that the column engine
// (pkg/array) is built on top of.  A ref is an opaque, 64-bit-aligned integer
// locator into the allocator's address space (a file offset in a real
// on-disk implementation; a slab index here).  The low bit of every ref is
// reserved by the array engine's inline-tagging convention (see pkg/array),
// so allocators must never hand out an odd ref.
package alloc

import "fmt"

// Ref is an opaque locator into an Allocator's address space.  A zero Ref
// denotes "no array" (e.g. an empty subtable slot).
type Ref uint64

// IsNull reports whether this ref denotes "no array".
func (r Ref) IsNull() bool { return r == 0 }

// ErrOutOfSpace is returned by Allocate/Reallocate when the allocator cannot
// satisfy a request.  Per spec.md §4.1, callers must treat the partially
// mutated ancestor chain as invalid; in practice this aborts the enclosing
// write transaction.
var ErrOutOfSpace = fmt.Errorf("alloc: out of space")

// Allocator is the external collaborator described in spec.md §6.1.  The
// column engine never assumes anything about how a ref maps to storage; it
// only ever allocates, reallocates, frees, translates, and checks
// read-only-ness through this interface.
type Allocator interface {
	// Allocate reserves size bytes and returns a fresh ref plus a buffer of
	// at least size bytes backing it.
	Allocate(size uint32) (Ref, []byte, error)
	// Reallocate grows (or shrinks) the allocation behind ref to newSize
	// bytes, returning a (possibly new) ref and buffer. The old buffer must
	// not be used again after this call returns successfully.
	Reallocate(ref Ref, oldBuf []byte, newSize uint32) (Ref, []byte, error)
	// Free releases the allocation behind ref back to the allocator.
	Free(ref Ref, buf []byte)
	// Translate resolves ref to its current backing buffer. Must be called
	// again after any call that may have remapped the file (Allocate,
	// Reallocate); raw pointers/slices must never be cached across those.
	Translate(ref Ref) []byte
	// IsReadOnly reports whether the region behind ref is an immutable,
	// previously-committed region that a mutator must copy-on-write before
	// touching.
	IsReadOnly(ref Ref) bool
}
