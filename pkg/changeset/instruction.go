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
package changeset

// Tag is an instruction's wire tag byte (spec.md §6.2). Values are stable
// across format versions. Selection instructions (SelectTable/SelectList)
// are encode/decode-time bookkeeping only: every in-memory Instruction
// already carries a fully-qualified Path, so they never appear in a
// Changeset's Instructions slice, only on the wire (encode.go/parse.go).
type Tag uint8

const (
	TagInsertGroupLevelTable Tag = 1
	TagEraseGroupLevelTable  Tag = 2
	TagRenameGroupLevelTable Tag = 3
	TagSelectTable           Tag = 5
	TagSet                   Tag = 6
	TagSetUnique             Tag = 7
	TagSetDefault            Tag = 8
	TagAddInteger            Tag = 9
	TagClearTable            Tag = 18
	TagEnumerateStringColumn Tag = 19
	TagInsertColumn          Tag = 21
	TagEraseColumn           Tag = 24
	TagRenameColumn          Tag = 26
	TagAddSearchIndex        Tag = 28
	TagRemoveSearchIndex     Tag = 29
	TagSetLinkType           Tag = 30
	TagSelectList            Tag = 31
	TagArrayInsert           Tag = 32
	TagArrayErase            Tag = 33
	TagArrayMove             Tag = 34
	TagClear                 Tag = 35
	TagSetInsert             Tag = 36
	TagSetErase              Tag = 37
	TagCreateObject          Tag = 40
	TagEraseObject           Tag = 41
)

// Instruction is the closed tagged union of spec.md §3.4: every mutation a
// changeset can carry, named by what it does rather than by union-member
// index. Concrete types embed Origin for the (timestamp, file) pair the OT
// engine's tie-breaking rules need (spec.md §4.5, §8 invariant 8).
type Instruction interface {
	Tag() Tag
	origin() *Origin
	// Accept dispatches to the matching Handler method. Handler returning
	// false signals a parse-time rejection (spec.md §4.4 "Handler returns
	// false => parse error").
	Accept(h Handler) bool
	// OriginInfo exposes the (timestamp, file, discarded) triple the OT
	// merge engine needs for tie-breaking (spec.md §8 invariant 8) without
	// giving outside packages a way to implement Instruction themselves.
	OriginInfo() Origin
	// Discard marks the instruction a tombstone in place (spec.md §4.5: "a
	// rule may ... discard either operation, leaving a tombstone in its
	// range").
	Discard()
}

// Origin is the (timestamp, originating-file) pair spec.md §8 invariant 8
// requires OT tie-breaking to depend on, and nothing else.
type Origin struct {
	Timestamp  int64
	FileIdent  uint64
	Discarded  bool // tombstone: set in place by the merge engine, never by a handler
}

func (o *Origin) origin() *Origin        { return o }
func (o *Origin) OriginInfo() Origin     { return *o }
func (o *Origin) Discard()               { o.Discarded = true }

// --- Schema instructions ---

type AddTable struct {
	Origin
	Name string
	PK   string // empty => embedded (no primary key column)
}

func (AddTable) Tag() Tag { return TagInsertGroupLevelTable }
func (i *AddTable) Accept(h Handler) bool { return h.AddTable(i) }

type EraseTable struct {
	Origin
	Name string
}

func (EraseTable) Tag() Tag { return TagEraseGroupLevelTable }
func (i *EraseTable) Accept(h Handler) bool { return h.EraseTable(i) }

type AddColumn struct {
	Origin
	Table          string
	Field          string
	Type           string
	Nullable       bool
	CollectionKind string // "", "list", "set", "dictionary"
}

func (AddColumn) Tag() Tag { return TagInsertColumn }
func (i *AddColumn) Accept(h Handler) bool { return h.AddColumn(i) }

type EraseColumn struct {
	Origin
	Table string
	Field string
}

func (EraseColumn) Tag() Tag { return TagEraseColumn }
func (i *EraseColumn) Accept(h Handler) bool { return h.EraseColumn(i) }

type RenameColumn struct {
	Origin
	Table   string
	Field   string
	NewName string
}

func (RenameColumn) Tag() Tag { return TagRenameColumn }
func (i *RenameColumn) Accept(h Handler) bool { return h.RenameColumn(i) }

type AddSearchIndex struct {
	Origin
	Table string
	Field string
}

func (AddSearchIndex) Tag() Tag { return TagAddSearchIndex }
func (i *AddSearchIndex) Accept(h Handler) bool { return h.AddSearchIndex(i) }

type RemoveSearchIndex struct {
	Origin
	Table string
	Field string
}

func (RemoveSearchIndex) Tag() Tag { return TagRemoveSearchIndex }
func (i *RemoveSearchIndex) Accept(h Handler) bool { return h.RemoveSearchIndex(i) }

type SetLinkType struct {
	Origin
	Table  string
	Field  string
	Target string
}

func (SetLinkType) Tag() Tag { return TagSetLinkType }
func (i *SetLinkType) Accept(h Handler) bool { return h.SetLinkType(i) }

// --- Object instructions ---

type CreateObject struct {
	Origin
	Table string
	PK    int64
}

func (CreateObject) Tag() Tag { return TagCreateObject }
func (i *CreateObject) Accept(h Handler) bool { return h.CreateObject(i) }

type EraseObject struct {
	Origin
	Table string
	PK    int64
}

func (EraseObject) Tag() Tag { return TagEraseObject }
func (i *EraseObject) Accept(h Handler) bool { return h.EraseObject(i) }

// --- Path-addressed mutation ---

// Update is a path-addressed value write. IsDefault and Unique mirror the
// original instruction set's instr_SetDefault/instr_SetUnique variants
// (transact_log.hpp): mutually exclusive properties of one Set-shaped
// instruction rather than separate payload shapes, which is why they stay
// fields on Update instead of becoming their own struct types. Tag()
// reports the wire tag spec.md §6.2 assigns each variant (6/7/8) so the
// encoder never needs to special-case them.
type Update struct {
	Origin
	Path      Path
	Payload   Payload
	IsDefault bool // spec.md §4.5 "SetDefault loses to non-default regardless of time"
	Unique    bool
}

func (u Update) Tag() Tag {
	switch {
	case u.Unique:
		return TagSetUnique
	case u.IsDefault:
		return TagSetDefault
	default:
		return TagSet
	}
}

func (i *Update) Accept(h Handler) bool { return h.Update(i) }

type AddInteger struct {
	Origin
	Path  Path
	Delta int64
}

func (AddInteger) Tag() Tag { return TagAddInteger }
func (i *AddInteger) Accept(h Handler) bool { return h.AddInteger(i) }

type ArrayInsert struct {
	Origin
	Path      Path // trailing element is the insert index
	Payload   Payload
	PriorSize uint32
}

func (ArrayInsert) Tag() Tag { return TagArrayInsert }
func (i *ArrayInsert) Accept(h Handler) bool { return h.ArrayInsert(i) }

type ArrayErase struct {
	Origin
	Path      Path // trailing element is the erase index
	PriorSize uint32
}

func (ArrayErase) Tag() Tag { return TagArrayErase }
func (i *ArrayErase) Accept(h Handler) bool { return h.ArrayErase(i) }

type ArrayMove struct {
	Origin
	Path      Path // trailing element is the source index
	DestIndex uint32
	PriorSize uint32
}

func (ArrayMove) Tag() Tag { return TagArrayMove }
func (i *ArrayMove) Accept(h Handler) bool { return h.ArrayMove(i) }

type Clear struct {
	Origin
	Path Path // container-level path, no trailing index/key
}

func (Clear) Tag() Tag { return TagClear }
func (i *Clear) Accept(h Handler) bool { return h.Clear(i) }

type SetInsert struct {
	Origin
	Path    Path
	Payload Payload
}

func (SetInsert) Tag() Tag { return TagSetInsert }
func (i *SetInsert) Accept(h Handler) bool { return h.SetInsert(i) }

type SetErase struct {
	Origin
	Path    Path
	Payload Payload
}

func (SetErase) Tag() Tag { return TagSetErase }
func (i *SetErase) Accept(h Handler) bool { return h.SetErase(i) }

// Handler receives decoded instructions from a Parser (spec.md §4.4). Every
// method returns false to signal the instruction is malformed or
// disallowed in context, which the Parser surfaces as BadTransactLogError.
type Handler interface {
	AddTable(*AddTable) bool
	EraseTable(*EraseTable) bool
	AddColumn(*AddColumn) bool
	EraseColumn(*EraseColumn) bool
	RenameColumn(*RenameColumn) bool
	AddSearchIndex(*AddSearchIndex) bool
	RemoveSearchIndex(*RemoveSearchIndex) bool
	SetLinkType(*SetLinkType) bool
	CreateObject(*CreateObject) bool
	EraseObject(*EraseObject) bool
	Update(*Update) bool
	AddInteger(*AddInteger) bool
	ArrayInsert(*ArrayInsert) bool
	ArrayErase(*ArrayErase) bool
	ArrayMove(*ArrayMove) bool
	Clear(*Clear) bool
	SetInsert(*SetInsert) bool
	SetErase(*SetErase) bool
}
