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

// Package array implements the node array: the tagged, bit-packed,
// copy-on-write contiguous container described in spec.md §3.1/§4.1. Every
// typed column in pkg/column is built out of one or more Arrays.
package array

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/sirupsen/logrus"
)

// headerSize is the fixed 8-byte header prefixed to every array's
// allocation, per spec.md §3.1.
const headerSize = 8

// widths is the ordered set of bit-widths an Array can hold; widthLog2 in the
// header is an index into this table, not a literal log2 (width 0 has no
// log2), which is why it is 3 bits wide (8 possible values) rather than 6.
var widths = [8]uint{0, 1, 2, 4, 8, 16, 32, 64}

func widthIndex(w uint) uint8 {
	for i, v := range widths {
		if v == w {
			return uint8(i)
		}
	}

	panic(fmt.Sprintf("array: invalid width %d", w))
}

// Kind selects the header flags an empty Array is constructed with.
type Kind int

const (
	// Leaf is a plain value array: is_node=false, has_refs=false.
	Leaf Kind = iota
	// HasRefs is a plain array whose slots may hold refs or inline tagged
	// scalars: is_node=false, has_refs=true.
	HasRefs
	// Node is a two-slot inner node ([offsets, child-refs]):
	// is_node=true, has_refs=true.
	Node
)

// Parent is the back-reference interface every container that owns an Array
// slot implements, per the "Parent back-references" design note in spec.md
// §9. A child never holds an owning pointer to its parent; it only ever asks
// the parent to resolve or rewrite the ref it holds on the child's behalf.
type Parent interface {
	// UpdateChildRef is invoked whenever the child's ref changes (width
	// expansion, copy-on-write, or any other reallocation) so the parent can
	// rewrite the slot that points at it.
	UpdateChildRef(index int, ref alloc.Ref)
	// GetChildRef resolves the ref the parent currently holds for the child
	// at index. Copy-on-write consults this to confirm which ref it is
	// replacing.
	GetChildRef(index int) alloc.Ref
	// ChildDestroyed is invoked once the child's storage has been returned
	// to the allocator, so the parent can drop any cached accessor.
	ChildDestroyed(index int)
}

// Array is the tagged, bit-packed, variable-width container of spec.md §3.1.
type Array struct {
	ref    alloc.Ref
	alloc  alloc.Allocator
	parent Parent
	pindex int
	log    logrus.FieldLogger
}

type header struct {
	isNode    bool
	hasRefs   bool
	indexFlag bool
	widthType uint8
	width     uint
	length    uint32
	capacity  uint32
}

func decodeHeader(buf []byte) header {
	b0 := buf[0]

	return header{
		isNode:    b0&0x80 != 0,
		hasRefs:   b0&0x40 != 0,
		indexFlag: b0&0x20 != 0,
		widthType: (b0 >> 3) & 0x3,
		width:     widths[b0&0x7],
		length:    uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]),
		capacity:  uint32(buf[4])<<16 | uint32(buf[5])<<8 | uint32(buf[6]),
	}
}

func encodeHeader(buf []byte, h header) {
	var b0 byte
	if h.isNode {
		b0 |= 0x80
	}

	if h.hasRefs {
		b0 |= 0x40
	}

	if h.indexFlag {
		b0 |= 0x20
	}

	b0 |= (h.widthType & 0x3) << 3
	b0 |= widthIndex(h.width) & 0x7
	buf[0] = b0
	buf[1] = byte(h.length >> 16)
	buf[2] = byte(h.length >> 8)
	buf[3] = byte(h.length)
	buf[4] = byte(h.capacity >> 16)
	buf[5] = byte(h.capacity >> 8)
	buf[6] = byte(h.capacity)
	// buf[7] is reserved; left untouched.
}

// minWidth returns the smallest power-of-two width able to hold v using
// signed two's-complement interpretation (spec.md §4.1 "Width expansion").
func minWidth(v int64) uint {
	for _, w := range widths {
		lo, hi := bounds(w)
		if v >= lo && v <= hi {
			return w
		}
	}

	return 64
}

func bounds(w uint) (int64, int64) {
	switch w {
	case 0:
		return 0, 0
	case 64:
		return math.MinInt64, math.MaxInt64
	default:
		half := int64(1) << (w - 1)
		return -half, half - 1
	}
}

func signExtend(v int64, width uint) int64 {
	if width == 0 || width >= 64 {
		return v
	}

	shift := uint(64) - width

	return (v << shift) >> shift
}

func ceilBytes(bits uint64) uint32 {
	return uint32((bits + 7) / 8)
}

func bytesForWidth(width uint, length uint32) uint32 {
	if width == 0 {
		return 0
	}

	return ceilBytes(uint64(width) * uint64(length))
}

func round64(n uint32) uint32 {
	return (n + 7) &^ 7
}

func getValue(data []byte, width uint, i int) int64 {
	if width == 0 {
		return 0
	}

	if width < 8 {
		bitpos := i * int(width)
		byteIdx := bitpos / 8
		bitOff := uint(bitpos % 8)
		mask := uint8((1 << width) - 1)
		raw := (data[byteIdx] >> bitOff) & mask

		return signExtend(int64(raw), width)
	}

	byteW := int(width / 8)
	off := i * byteW

	var raw uint64

	switch width {
	case 8:
		raw = uint64(data[off])
	case 16:
		raw = uint64(binary.LittleEndian.Uint16(data[off:]))
	case 32:
		raw = uint64(binary.LittleEndian.Uint32(data[off:]))
	case 64:
		raw = binary.LittleEndian.Uint64(data[off:])
	}

	return signExtend(int64(raw), width)
}

func setValue(data []byte, width uint, i int, v int64) {
	if width == 0 {
		if v != 0 {
			panic("array: value does not fit width 0")
		}

		return
	}

	if width < 8 {
		bitpos := i * int(width)
		byteIdx := bitpos / 8
		bitOff := uint(bitpos % 8)
		mask := uint8((1 << width) - 1)
		data[byteIdx] = (data[byteIdx] &^ (mask << bitOff)) | (uint8(v) & mask << bitOff)

		return
	}

	byteW := int(width / 8)
	off := i * byteW

	switch width {
	case 8:
		data[off] = uint8(v)
	case 16:
		binary.LittleEndian.PutUint16(data[off:], uint16(v))
	case 32:
		binary.LittleEndian.PutUint32(data[off:], uint32(v))
	case 64:
		binary.LittleEndian.PutUint64(data[off:], uint64(v))
	}
}

// New constructs an empty Array of the given kind, backed by a to-be-created
// header of at least 128 bytes capacity (spec.md §3.1 "Lifecycle").
func New(kind Kind, a alloc.Allocator, log logrus.FieldLogger) (*Array, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	ref, buf, err := a.Allocate(headerSize + 128)
	if err != nil {
		return nil, fmt.Errorf("array: new: %w", err)
	}

	h := header{
		isNode:  kind == Node,
		hasRefs: kind == Node || kind == HasRefs,
		width:   0,
		length:  0,
		// capacity tracks bytes usable for element data, i.e. excluding the header.
		capacity: uint32(len(buf)) - headerSize,
	}
	encodeHeader(buf, h)

	return &Array{ref: ref, alloc: a, pindex: -1, log: log}, nil
}

// Attach parses the header at ref and returns an accessor over it.
func Attach(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*Array, error) {
	if ref.IsNull() {
		return nil, fmt.Errorf("array: attach: null ref")
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	buf := a.Translate(ref)
	if len(buf) < headerSize {
		return nil, fmt.Errorf("array: attach: %w: truncated header", ErrCorruption)
	}

	return &Array{ref: ref, alloc: a, pindex: -1, log: log}, nil
}

// ErrCorruption is raised when an array's on-disk invariants are violated on
// attach (spec.md §7).
var ErrCorruption = fmt.Errorf("array: corruption")

// SetParent installs the back-reference used for copy-on-write and width
// expansion (spec.md §9 "Parent back-references").
func (a *Array) SetParent(p Parent, index int) {
	a.parent = p
	a.pindex = index
}

// Ref returns this array's current locator. It may change across any
// mutating call (copy-on-write, reallocation).
func (a *Array) Ref() alloc.Ref { return a.ref }

func (a *Array) buf() []byte { return a.alloc.Translate(a.ref) }

func (a *Array) hdr() header { return decodeHeader(a.buf()) }

func (a *Array) data() []byte { return a.buf()[headerSize:] }

// Len returns the current element count.
func (a *Array) Len() int { return int(a.hdr().length) }

// Width returns the current per-element bit-width.
func (a *Array) Width() uint { return a.hdr().width }

// IsNode reports whether this array's is-node header bit is set.
func (a *Array) IsNode() bool { return a.hdr().isNode }

// HasRefs reports whether this array's has-refs header bit is set.
func (a *Array) HasRefs() bool { return a.hdr().hasRefs }

func (a *Array) setLength(n uint32) {
	buf := a.buf()
	h := decodeHeader(buf)
	h.length = n
	encodeHeader(buf, h)
}

// Get returns the value at index i. Out-of-range access is a programming
// error and panics, per spec.md §4.1 "Failure semantics".
func (a *Array) Get(i int) int64 {
	h := a.hdr()
	if i < 0 || i >= int(h.length) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, h.length))
	}

	return getValue(a.data(), h.width, i)
}

// makeWritable copy-on-writes this array if the allocator reports its
// backing region as read-only (spec.md §4.1 "Copy-on-write").
func (a *Array) makeWritable() error {
	if !a.alloc.IsReadOnly(a.ref) {
		return nil
	}

	h := a.hdr()
	used := headerSize + bytesForWidth(h.width, h.length)
	newCap := round64(used) + 64
	old := a.buf()
	newRef, newBuf, err := a.alloc.Allocate(newCap)

	if err != nil {
		return fmt.Errorf("array: copy-on-write: %w", err)
	}

	copy(newBuf, old[:used])
	h.capacity = newCap - headerSize
	encodeHeader(newBuf, h)
	a.ref = newRef

	if a.parent != nil {
		a.parent.UpdateChildRef(a.pindex, newRef)
	}

	a.log.WithField("ref", newRef).Debug("array: copy-on-write")

	return nil
}

// growToFit ensures this array is writable and has capacity for at least
// dataBytes of element storage, reallocating per spec.md §4.1's sizing rule
// (ceil_to_64bit(needed) + 64) if not.
func (a *Array) growToFit(dataBytes uint32) error {
	if err := a.makeWritable(); err != nil {
		return err
	}

	h := a.hdr()
	if h.capacity >= dataBytes {
		return nil
	}

	newCap := round64(dataBytes) + 64
	old := a.buf()
	used := headerSize + bytesForWidth(h.width, h.length)
	newRef, newBuf, err := a.alloc.Reallocate(a.ref, old, headerSize+newCap)

	if err != nil {
		return fmt.Errorf("array: grow: %w", err)
	}

	if newRef != a.ref {
		copy(newBuf, old[:used])
	}

	h.capacity = newCap
	encodeHeader(newBuf, h)
	a.ref = newRef

	if a.parent != nil {
		a.parent.UpdateChildRef(a.pindex, newRef)
	}

	return nil
}

// expandWidth rewrites every existing element from the current width to
// newWidth, in reverse index order, per spec.md §4.1 "Width expansion".
func (a *Array) expandWidth(newWidth uint) error {
	h := a.hdr()
	if newWidth <= h.width {
		return nil
	}

	if err := a.growToFit(bytesForWidth(newWidth, h.length)); err != nil {
		return err
	}

	data := a.data()
	oldWidth := h.width

	for i := int(h.length) - 1; i >= 0; i-- {
		v := getValue(data, oldWidth, i)
		setValue(data, newWidth, i, v)
	}

	buf := a.buf()
	h = decodeHeader(buf)
	h.width = newWidth
	encodeHeader(buf, h)

	return nil
}

// Set overwrites the value at index i, expanding the width first if v does
// not fit the current width.
func (a *Array) Set(i int, v int64) error {
	h := a.hdr()
	if i < 0 || i >= int(h.length) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, h.length))
	}

	if w := minWidth(v); w > h.width {
		if err := a.expandWidth(w); err != nil {
			return err
		}
	} else if err := a.makeWritable(); err != nil {
		return err
	}

	h = a.hdr()
	setValue(a.data(), h.width, i, v)

	return nil
}

// Insert inserts v at index i, shifting subsequent elements up by one.
func (a *Array) Insert(i int, v int64) error {
	h := a.hdr()
	if i < 0 || i > int(h.length) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d]", i, h.length))
	}

	width := h.width
	if w := minWidth(v); w > width {
		width = w
	}

	newLength := h.length + 1
	if err := a.growToFit(bytesForWidth(width, newLength)); err != nil {
		return err
	}

	if width > h.width {
		if err := a.expandWidth(width); err != nil {
			return err
		}
	}

	h = a.hdr()
	data := a.data()

	for j := int(h.length) - 1; j >= i; j-- {
		setValue(data, h.width, j+1, getValue(data, h.width, j))
	}

	setValue(data, h.width, i, v)
	a.setLength(newLength)

	return nil
}

// Add appends v, equivalent to Insert(Len(), v).
func (a *Array) Add(v int64) error { return a.Insert(a.Len(), v) }

// Erase removes the element at index i, shifting subsequent elements down.
func (a *Array) Erase(i int) error {
	h := a.hdr()
	if i < 0 || i >= int(h.length) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, h.length))
	}

	if a.hasOwnedChild(i) {
		a.destroyChildAt(i)
	}

	if err := a.makeWritable(); err != nil {
		return err
	}

	data := a.data()
	for j := i; j < int(h.length)-1; j++ {
		setValue(data, h.width, j, getValue(data, h.width, j+1))
	}

	a.setLength(h.length - 1)

	return nil
}

// Clear empties the array, destroying any owned children first.
func (a *Array) Clear() error {
	if a.hdr().hasRefs {
		h := a.hdr()
		for i := 0; i < int(h.length); i++ {
			a.destroyChildAt(i)
		}
	}

	if err := a.makeWritable(); err != nil {
		return err
	}

	a.setLength(0)

	return nil
}

// Resize pads the array with zeros (n > Len()) or truncates it from the end
// (n < Len()).
func (a *Array) Resize(n int) error {
	for a.Len() < n {
		if err := a.Add(0); err != nil {
			return err
		}
	}

	for a.Len() > n {
		if err := a.Erase(a.Len() - 1); err != nil {
			return err
		}
	}

	return nil
}

// hasOwnedChild reports whether slot i of a has-refs array holds an owned
// child ref (as opposed to an inline tagged scalar).
func (a *Array) hasOwnedChild(i int) bool {
	h := a.hdr()
	if !h.hasRefs {
		return false
	}

	slot := getValue(a.data(), h.width, i)

	return slot != 0 && !IsInline(slot)
}

func (a *Array) destroyChildAt(i int) {
	h := a.hdr()
	slot := getValue(a.data(), h.width, i)

	if slot == 0 || IsInline(slot) {
		return
	}

	child, err := Attach(alloc.Ref(slot), a.alloc, a.log)
	if err != nil {
		return
	}

	_ = child.Destroy()
}

// Destroy recursively frees owned children (when HasRefs is set) and
// returns this array's storage to the allocator.
func (a *Array) Destroy() error {
	h := a.hdr()

	if h.hasRefs {
		for i := 0; i < int(h.length); i++ {
			a.destroyChildAt(i)
		}
	}

	a.alloc.Free(a.ref, a.buf())

	if a.parent != nil {
		a.parent.ChildDestroyed(a.pindex)
	}

	return nil
}

// SetChildRef overwrites a has-refs slot with a new owned child ref,
// destroying whatever owned child previously occupied that slot first. Used
// by subtable and mixed columns when a cell's subtable/payload is replaced
// wholesale rather than mutated in place (spec.md §3.2 "set_table",
// "clear_subtable").
func (a *Array) SetChildRef(i int, ref alloc.Ref) error {
	h := a.hdr()
	if i < 0 || i >= int(h.length) {
		panic(fmt.Sprintf("array: index %d out of range [0,%d)", i, h.length))
	}

	if a.hasOwnedChild(i) {
		a.destroyChildAt(i)
	}

	return a.Set(i, int64(ref))
}

// UpdateChildRef implements Parent: it lets this array be used as the
// parent of a child Array whose ref lives in one of its own slots (an inner
// node's child-refs slot, a subtable column cell, a mixed column's refs
// slot, ...). Failures panic rather than propagate, since this is always
// invoked from inside another mutating call that has no further error
// channel to report through; spec.md §7 treats this class of failure as a
// process-fatal defect.
func (a *Array) UpdateChildRef(index int, ref alloc.Ref) {
	if err := a.Set(index, int64(ref)); err != nil {
		panic(fmt.Sprintf("array: update child ref: %v", err))
	}
}

// GetChildRef implements Parent.
func (a *Array) GetChildRef(index int) alloc.Ref { return alloc.Ref(a.Get(index)) }

// ChildDestroyed implements Parent. The slot itself is cleared by whichever
// method (Erase/Clear) triggered the destruction, so this is a no-op hook
// for callers that want to react to it (e.g. invalidating a cached
// accessor).
func (a *Array) ChildDestroyed(int) {}

// TagInline encodes v as an inline scalar slot value for a HasRefs array,
// per spec.md §4.1 "Ref tagging".
func TagInline(v int64) int64 { return (v << 1) | 1 }

// UntagInline recovers the inline scalar from a tagged slot value.
func UntagInline(slot int64) int64 { return slot >> 1 }

// IsInline reports whether slot holds an inline scalar rather than a ref.
func IsInline(slot int64) bool { return slot&1 != 0 }
