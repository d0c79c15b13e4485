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

import (
	"encoding/binary"
	"fmt"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/sirupsen/logrus"
)

// Bytes is the raw byte-buffer sibling of Array: the same
// copy-on-write/parent-callback discipline as spec.md §3.1, but holding an
// unsigned byte payload rather than tagged, width-expanding signed
// integers. This backs the "blob" half of the long-string/binary two-slot
// layout and the NUL-padded fixed-stride storage of short strings (spec.md
// §3.2), neither of which wants width expansion or sign extension.
//
// Layout: a 4-byte length prefix (element count) followed by raw payload
// bytes.
type Bytes struct {
	ref    alloc.Ref
	alloc  alloc.Allocator
	parent Parent
	pindex int
	log    logrus.FieldLogger
}

const bytesHeaderSize = 4

// NewBytes constructs an empty Bytes buffer.
func NewBytes(a alloc.Allocator, log logrus.FieldLogger) (*Bytes, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	ref, buf, err := a.Allocate(bytesHeaderSize + 64)
	if err != nil {
		return nil, fmt.Errorf("array: new bytes: %w", err)
	}

	binary.LittleEndian.PutUint32(buf, 0)

	return &Bytes{ref: ref, alloc: a, pindex: -1, log: log}, nil
}

// AttachBytes attaches to an existing Bytes buffer root.
func AttachBytes(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*Bytes, error) {
	if ref.IsNull() {
		return nil, fmt.Errorf("array: attach bytes: null ref")
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Bytes{ref: ref, alloc: a, pindex: -1, log: log}, nil
}

// SetParent installs the back-reference used for copy-on-write.
func (b *Bytes) SetParent(p Parent, index int) {
	b.parent = p
	b.pindex = index
}

// Ref returns this buffer's current locator.
func (b *Bytes) Ref() alloc.Ref { return b.ref }

func (b *Bytes) buf() []byte { return b.alloc.Translate(b.ref) }

// Len returns the number of bytes currently stored.
func (b *Bytes) Len() int { return int(binary.LittleEndian.Uint32(b.buf())) }

func (b *Bytes) setLen(n int) {
	binary.LittleEndian.PutUint32(b.buf(), uint32(n))
}

// Bytes returns a copy of the stored payload.
func (b *Bytes) Bytes() []byte {
	n := b.Len()
	out := make([]byte, n)
	copy(out, b.buf()[bytesHeaderSize:bytesHeaderSize+n])

	return out
}

// Slice returns a copy of payload[start:end).
func (b *Bytes) Slice(start, end int) []byte {
	out := make([]byte, end-start)
	copy(out, b.buf()[bytesHeaderSize+start:bytesHeaderSize+end])

	return out
}

func (b *Bytes) makeWritable() error {
	if !b.alloc.IsReadOnly(b.ref) {
		return nil
	}

	old := b.buf()
	used := bytesHeaderSize + b.Len()
	newCap := round64(uint32(used)) + 64
	newRef, newBuf, err := b.alloc.Allocate(newCap)

	if err != nil {
		return fmt.Errorf("array: bytes copy-on-write: %w", err)
	}

	copy(newBuf, old[:used])
	b.ref = newRef

	if b.parent != nil {
		b.parent.UpdateChildRef(b.pindex, newRef)
	}

	return nil
}

func (b *Bytes) growToFit(needed int) error {
	if err := b.makeWritable(); err != nil {
		return err
	}

	cap := len(b.buf()) - bytesHeaderSize
	if cap >= needed {
		return nil
	}

	newCap := round64(uint32(bytesHeaderSize+needed)) + 64
	old := b.buf()
	used := bytesHeaderSize + b.Len()
	newRef, newBuf, err := b.alloc.Reallocate(b.ref, old, newCap)

	if err != nil {
		return fmt.Errorf("array: bytes grow: %w", err)
	}

	if newRef != b.ref {
		copy(newBuf, old[:used])
	}

	b.ref = newRef

	if b.parent != nil {
		b.parent.UpdateChildRef(b.pindex, newRef)
	}

	return nil
}

// Append adds data to the end of the buffer, returning the byte offset it
// was written at.
func (b *Bytes) Append(data []byte) (int, error) {
	n := b.Len()
	if err := b.growToFit(n + len(data)); err != nil {
		return 0, err
	}

	copy(b.buf()[bytesHeaderSize+n:], data)
	b.setLen(n + len(data))

	return n, nil
}

// Put overwrites payload[offset:offset+len(data)] in place. offset+len(data)
// must not exceed Len().
func (b *Bytes) Put(offset int, data []byte) error {
	if offset+len(data) > b.Len() {
		panic("array: bytes put beyond length")
	}

	if err := b.makeWritable(); err != nil {
		return err
	}

	copy(b.buf()[bytesHeaderSize+offset:], data)

	return nil
}

// Truncate drops the buffer back to n bytes (n <= Len()), used when a
// mixed-column string/binary payload is deleted as the final element
// (spec.md §3.2 "Deleting a non-terminal string/binary payload... leaves an
// empty slot... except when it is the last element").
func (b *Bytes) Truncate(n int) error {
	if n > b.Len() {
		panic("array: bytes truncate beyond length")
	}

	if err := b.makeWritable(); err != nil {
		return err
	}

	b.setLen(n)

	return nil
}

// Clear empties the buffer.
func (b *Bytes) Clear() error {
	if err := b.makeWritable(); err != nil {
		return err
	}

	b.setLen(0)

	return nil
}

// Destroy returns this buffer's storage to the allocator.
func (b *Bytes) Destroy() error {
	b.alloc.Free(b.ref, b.buf())

	if b.parent != nil {
		b.parent.ChildDestroyed(b.pindex)
	}

	return nil
}

// UpdateChildRef implements Parent, letting a Bytes buffer be used as the
// parent slot source for... nothing structurally owned below it today, but
// kept for symmetry with Array so callers can treat the two uniformly where
// only ref bookkeeping is required.
func (b *Bytes) UpdateChildRef(int, alloc.Ref) { panic("array: Bytes has no children") }

// GetChildRef implements Parent.
func (b *Bytes) GetChildRef(int) alloc.Ref { panic("array: Bytes has no children") }

// ChildDestroyed implements Parent.
func (b *Bytes) ChildDestroyed(int) {}
