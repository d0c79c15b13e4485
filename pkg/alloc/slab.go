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
package alloc

import (
	"github.com/sirupsen/logrus"
)

// slabAlignment is the alignment (in bytes) every ref must satisfy, matching
// the engine's requirement that refs reserve their low bit for the
// inline-tagging convention (spec.md §6.1).
const slabAlignment = 8

// slot is one allocation tracked by SlabAllocator.
type slot struct {
	buf      []byte
	readOnly bool
}

// SlabAllocator is an in-memory Allocator suitable for tests and for
// exercising the column engine without a real on-disk file format (the file
// format itself is explicitly out of scope per spec.md §1). Allocations are
// never actually reused on Free; this is a test/dev allocator, not a
// production slab allocator.
type SlabAllocator struct {
	slots []slot
	log   logrus.FieldLogger
}

// NewSlabAllocator constructs an empty SlabAllocator. A nil logger defaults
// to logrus's standard logger.
func NewSlabAllocator(log logrus.FieldLogger) *SlabAllocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	// Reserve slot 0 so that ref 0 is never handed out (ref 0 is reserved as
	// the "null ref" sentinel throughout the column engine).
	return &SlabAllocator{slots: make([]slot, 1), log: log}
}

// Allocate implements Allocator.
func (s *SlabAllocator) Allocate(size uint32) (Ref, []byte, error) {
	buf := make([]byte, size)
	ref := Ref(uint64(len(s.slots)) * slabAlignment)
	s.slots = append(s.slots, slot{buf: buf})
	s.log.WithFields(logrus.Fields{"ref": ref, "size": size}).Debug("alloc: allocate")

	return ref, buf, nil
}

// Reallocate implements Allocator.
func (s *SlabAllocator) Reallocate(ref Ref, oldBuf []byte, newSize uint32) (Ref, []byte, error) {
	idx := ref / slabAlignment
	if idx == 0 || int(idx) >= len(s.slots) {
		panic("alloc: reallocate of unknown ref")
	}

	nbuf := make([]byte, newSize)
	copy(nbuf, s.slots[idx].buf)
	s.slots[idx] = slot{buf: nbuf}
	s.log.WithFields(logrus.Fields{"ref": ref, "size": newSize}).Debug("alloc: reallocate")

	return ref, nbuf, nil
}

// Free implements Allocator.
func (s *SlabAllocator) Free(ref Ref, buf []byte) {
	idx := ref / slabAlignment
	if idx == 0 || int(idx) >= len(s.slots) {
		return
	}

	s.slots[idx] = slot{}
	s.log.WithField("ref", ref).Debug("alloc: free")
}

// Translate implements Allocator.
func (s *SlabAllocator) Translate(ref Ref) []byte {
	idx := ref / slabAlignment
	if idx == 0 || int(idx) >= len(s.slots) {
		panic("alloc: translate of unknown ref")
	}

	return s.slots[idx].buf
}

// IsReadOnly implements Allocator.
func (s *SlabAllocator) IsReadOnly(ref Ref) bool {
	idx := ref / slabAlignment
	if idx == 0 || int(idx) >= len(s.slots) {
		panic("alloc: is-read-only of unknown ref")
	}

	return s.slots[idx].readOnly
}

// Freeze marks the region behind ref as read-only, simulating a
// previously-committed, mmap'd file region. Any subsequent mutation through
// pkg/array must copy-on-write before touching it.
func (s *SlabAllocator) Freeze(ref Ref) {
	idx := ref / slabAlignment
	if idx == 0 || int(idx) >= len(s.slots) {
		panic("alloc: freeze of unknown ref")
	}

	s.slots[idx].readOnly = true
}
