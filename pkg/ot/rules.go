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
package ot

import (
	"bytes"
	"fmt"

	"github.com/colstore/coredb/pkg/changeset"
)

// applyRule is the pairwise + nested rule dispatcher of spec.md §4.5. It
// mutates either instruction in place, discards either or both, and
// returns a *SchemaMismatchError only for an unresolvable schema conflict.
// Rules are symmetric by construction: each family checks both type
// orderings of (major, minor) so callers never need to invoke it twice.
//
// coredb implements the rule families spec.md §4.5 names explicitly, plus
// its four concrete §8 scenarios; it does not hand-author the full
// N·(N+1)/2 matrix across all instruction-type pairs (18 types -> 171
// pairs). Pairs outside the named families fall through every family
// check as a no-op, which is the documented behavior for "many rules are
// no-ops when paths differ."
func applyRule(major, minor changeset.Instruction) error {
	ruleUpdateFamily(major, minor)
	ruleObjectFamily(major, minor)
	ruleArrayFamily(major, minor)
	ruleClearFamily(major, minor)
	ruleSetFamily(major, minor)

	return ruleSchemaFamily(major, minor)
}

// --- Update / AddInteger ---

func ruleUpdateFamily(major, minor changeset.Instruction) {
	if a, ok := major.(*changeset.Update); ok {
		if b, ok := minor.(*changeset.Update); ok {
			ruleUpdateUpdate(a, b)
			return
		}

		if b, ok := minor.(*changeset.AddInteger); ok {
			ruleUpdateAddInteger(a, b)
			return
		}
	}

	if a, ok := minor.(*changeset.Update); ok {
		if b, ok := major.(*changeset.AddInteger); ok {
			ruleUpdateAddInteger(a, b)
		}
	}
}

func isContainerSentinel(p changeset.Payload) bool {
	return p.Type == changeset.PayloadObjectValue || p.Type == changeset.PayloadDictionary
}

// ruleUpdateUpdate: later origin timestamp wins (spec.md §4.5 "Two updates
// to the same path"). SetDefault always loses regardless of time.
// Container-creation sentinels always lose to a concrete-value update.
func ruleUpdateUpdate(a, b *changeset.Update) {
	if !a.Path.Equal(b.Path) {
		return
	}

	if a.IsDefault != b.IsDefault {
		if a.IsDefault {
			a.Discard()
		} else {
			b.Discard()
		}

		return
	}

	if isContainerSentinel(a.Payload) != isContainerSentinel(b.Payload) {
		if isContainerSentinel(a.Payload) {
			a.Discard()
		} else {
			b.Discard()
		}

		return
	}

	if a.Timestamp >= b.Timestamp {
		b.Discard()
	} else {
		a.Discard()
	}
}

// ruleUpdateAddInteger: the Add always loses its own identity — it is
// either folded into the Set's payload (when later and the Set holds a
// non-null integer) or simply discarded (spec.md §4.5 "Update vs
// AddInteger").
func ruleUpdateAddInteger(u *changeset.Update, add *changeset.AddInteger) {
	if !u.Path.Equal(add.Path) {
		return
	}

	if add.Timestamp > u.Timestamp && u.Payload.Type == changeset.PayloadInt {
		u.Payload.Int += add.Delta
	}

	add.Discard()
}

// --- CreateObject / EraseObject / nested-on-erased-object ---

func ruleObjectFamily(major, minor changeset.Instruction) {
	if a, ok := major.(*changeset.EraseObject); ok {
		if b, ok := minor.(*changeset.EraseObject); ok {
			ruleEraseEraseObject(a, b)
			return
		}

		if b, ok := minor.(*changeset.CreateObject); ok {
			ruleCreateErase(b, a)
			return
		}

		eraseBeatsNested(a, minor)

		return
	}

	if b, ok := minor.(*changeset.EraseObject); ok {
		if a, ok := major.(*changeset.CreateObject); ok {
			ruleCreateErase(a, b)
			return
		}

		eraseBeatsNested(b, major)

		return
	}

	if a, ok := major.(*changeset.CreateObject); ok {
		if b, ok := minor.(*changeset.CreateObject); ok {
			ruleCreateCreate(a, b)
		}
	}
}

// ruleEraseEraseObject: the later-timestamped erase survives, so that a
// later Create on the same key is never shadowed by an earlier Erase
// (spec.md §4.5 "For two competing erases, the later-timestamped one is
// kept").
func ruleEraseEraseObject(a, b *changeset.EraseObject) {
	if a.Table != b.Table || a.PK != b.PK {
		return
	}

	if a.Timestamp >= b.Timestamp {
		b.Discard()
	} else {
		a.Discard()
	}
}

// ruleCreateErase: erase beats create regardless of timestamp (spec.md
// §4.5 "Erase beats Create regardless of timestamp").
func ruleCreateErase(create *changeset.CreateObject, erase *changeset.EraseObject) {
	if create.Table != erase.Table || create.PK != erase.PK {
		return
	}

	create.Discard()
}

// ruleCreateCreate: CreateObject is idempotent (spec.md §4.5). Keeping the
// major (local) side and discarding the minor (remote) duplicate is an
// arbitrary but stable choice — either survivor leaves the object created
// exactly once.
func ruleCreateCreate(a, b *changeset.CreateObject) {
	if a.Table == b.Table && a.PK == b.PK {
		b.Discard()
	}
}

// eraseBeatsNested discards other if it targets the same object erase
// erases, regardless of nesting depth or timestamp (spec.md §4.5
// "EraseObject vs anything on that object: erase wins").
func eraseBeatsNested(erase *changeset.EraseObject, other changeset.Instruction) {
	table, pk, ok := objectOf(other)
	if ok && table == erase.Table && pk == erase.PK {
		other.Discard()
	}
}

// --- Array list ops ---

func ruleArrayFamily(major, minor changeset.Instruction) {
	if a, ok := major.(*changeset.ArrayInsert); ok {
		if b, ok := minor.(*changeset.ArrayInsert); ok {
			ruleInsertInsert(a, b)
			return
		}

		if b, ok := minor.(*changeset.ArrayErase); ok {
			ruleInsertErase(a, b)
			return
		}
	}

	if a, ok := major.(*changeset.ArrayErase); ok {
		if b, ok := minor.(*changeset.ArrayInsert); ok {
			ruleInsertErase(b, a)
			return
		}

		if b, ok := minor.(*changeset.ArrayErase); ok {
			ruleEraseErase(a, b)
			return
		}

		if b, ok := minor.(*changeset.ArrayMove); ok {
			ruleMoveErase(b, a)
			return
		}
	}

	if a, ok := major.(*changeset.ArrayMove); ok {
		if b, ok := minor.(*changeset.ArrayErase); ok {
			ruleMoveErase(a, b)
		}
	}
}

// ruleInsertInsert: the later-timestamped insert's index is shifted up by
// one so the earlier-timestamped element keeps the lower index (spec.md
// §4.5). Both prior-size counters record the other side's insert.
func ruleInsertInsert(a, b *changeset.ArrayInsert) {
	if !a.Path.SameContainer(b.Path) {
		return
	}

	if a.Timestamp > b.Timestamp {
		a.Path = a.Path.WithIndex(a.Path.Index() + 1)
	} else if b.Timestamp > a.Timestamp {
		b.Path = b.Path.WithIndex(b.Path.Index() + 1)
	}

	a.PriorSize++
	b.PriorSize++
}

// ruleInsertErase covers spec.md §8 scenario 4 exactly: whichever side's
// index is lower is left alone; the higher one is shifted to account for
// the other side's list-length change, and each prior_size is adjusted for
// the element the other side will have added/removed by the time this
// instruction lands.
func ruleInsertErase(ins *changeset.ArrayInsert, er *changeset.ArrayErase) {
	if !ins.Path.SameContainer(er.Path) {
		return
	}

	insIdx, erIdx := ins.Path.Index(), er.Path.Index()

	if erIdx < insIdx {
		ins.Path = ins.Path.WithIndex(insIdx - 1)
	} else {
		er.Path = er.Path.WithIndex(erIdx + 1)
	}

	ins.PriorSize--
	er.PriorSize++
}

// ruleEraseErase: two erases at the same index both discard — the row is
// already gone on both sides (spec.md §4.5).
func ruleEraseErase(a, b *changeset.ArrayErase) {
	if !a.Path.SameContainer(b.Path) {
		return
	}

	if a.Path.Index() == b.Path.Index() {
		a.Discard()
		b.Discard()
	}
}

// ruleMoveErase: an erase targeting the move's source index degenerates
// the move into a no-op and is retargeted at the move's destination
// (spec.md §4.5). Otherwise both sides' indices are shifted to account for
// the other op.
func ruleMoveErase(mv *changeset.ArrayMove, er *changeset.ArrayErase) {
	if !mv.Path.SameContainer(er.Path) {
		return
	}

	srcIdx, erIdx := mv.Path.Index(), er.Path.Index()

	if erIdx == srcIdx {
		mv.Discard()
		er.Path = er.Path.WithIndex(mv.DestIndex)

		return
	}

	if erIdx < srcIdx {
		mv.Path = mv.Path.WithIndex(srcIdx - 1)
	} else {
		er.Path = er.Path.WithIndex(erIdx + 1)
	}

	if er.Path.Index() < mv.DestIndex {
		mv.DestIndex--
	}
}

// --- Clear ---

func ruleClearFamily(major, minor changeset.Instruction) {
	a, aIsClear := major.(*changeset.Clear)
	b, bIsClear := minor.(*changeset.Clear)

	if aIsClear && bIsClear {
		ruleClearClear(a, b)
		return
	}

	if aIsClear {
		if p, ok := pathOf(minor); ok && a.Path.SamePrefix(p) {
			minor.Discard()
		}

		return
	}

	if bIsClear {
		if p, ok := pathOf(major); ok && b.Path.SamePrefix(p) {
			major.Discard()
		}
	}
}

// ruleClearClear: the later-timestamped clear on the same container is
// kept, so post-clear inserts from the winning side survive (spec.md
// §4.5).
func ruleClearClear(a, b *changeset.Clear) {
	if !a.Path.SameContainer(b.Path) {
		return
	}

	if a.Timestamp >= b.Timestamp {
		b.Discard()
	} else {
		a.Discard()
	}
}

// --- Set ops ---

type setOp struct {
	instr   changeset.Instruction
	path    changeset.Path
	payload changeset.Payload
	ts      int64
}

func asSetOp(instr changeset.Instruction) (setOp, bool) {
	switch v := instr.(type) {
	case *changeset.SetInsert:
		return setOp{instr, v.Path, v.Payload, v.Timestamp}, true
	case *changeset.SetErase:
		return setOp{instr, v.Path, v.Payload, v.Timestamp}, true
	default:
		return setOp{}, false
	}
}

// ruleSetFamily: SetInsert/SetErase are idempotent within equal-payload
// groups on the same container — the higher-timestamped instruction
// survives (spec.md §4.5).
func ruleSetFamily(major, minor changeset.Instruction) {
	a, aok := asSetOp(major)
	b, bok := asSetOp(minor)

	if !aok || !bok {
		return
	}

	if !a.path.SameContainer(b.path) || !payloadEqual(a.payload, b.payload) {
		return
	}

	if a.ts >= b.ts {
		b.instr.Discard()
	} else {
		a.instr.Discard()
	}
}

func payloadEqual(a, b changeset.Payload) bool {
	if a.Type != b.Type {
		return false
	}

	switch a.Type {
	case changeset.PayloadInt:
		return a.Int == b.Int
	case changeset.PayloadBool:
		return a.Bool == b.Bool
	case changeset.PayloadFloat:
		return a.Float == b.Float
	case changeset.PayloadDouble:
		return a.Double == b.Double
	case changeset.PayloadString:
		return a.String == b.String
	case changeset.PayloadBinary:
		return bytes.Equal(a.Binary, b.Binary)
	case changeset.PayloadTimestamp:
		return a.Timestamp == b.Timestamp
	case changeset.PayloadLink:
		return a.LinkTable == b.LinkTable && a.LinkPK == b.LinkPK
	case changeset.PayloadDecimal:
		return a.Decimal.Equal(&b.Decimal)
	case changeset.PayloadObjectID:
		return a.ObjectID.Equal(&b.ObjectID)
	case changeset.PayloadUUID:
		return a.UUID.Equal(&b.UUID)
	default:
		return true
	}
}

// --- Schema ---

// ruleSchemaFamily: matching-name schema instructions agree or conflict
// (spec.md §4.5 "Schema instructions with matching names"). Agreement
// discards the duplicate; disagreement raises SchemaMismatchError, which
// aborts the whole merge.
func ruleSchemaFamily(major, minor changeset.Instruction) error {
	switch a := major.(type) {
	case *changeset.AddTable:
		b, ok := minor.(*changeset.AddTable)
		if !ok || a.Name != b.Name {
			return nil
		}

		if a.PK != b.PK {
			return &SchemaMismatchError{Table: a.Name, Reason: fmt.Sprintf("primary key %q vs %q", a.PK, b.PK)}
		}

		b.Discard()
	case *changeset.EraseTable:
		if b, ok := minor.(*changeset.EraseTable); ok && a.Name == b.Name {
			b.Discard()
		}
	case *changeset.AddColumn:
		b, ok := minor.(*changeset.AddColumn)
		if !ok || a.Table != b.Table || a.Field != b.Field {
			return nil
		}

		if a.Type != b.Type || a.Nullable != b.Nullable || a.CollectionKind != b.CollectionKind {
			return &SchemaMismatchError{
				Table: a.Table, Field: a.Field,
				Reason: fmt.Sprintf("(%s,%v,%q) vs (%s,%v,%q)", a.Type, a.Nullable, a.CollectionKind, b.Type, b.Nullable, b.CollectionKind),
			}
		}

		b.Discard()
	case *changeset.EraseColumn:
		if b, ok := minor.(*changeset.EraseColumn); ok && a.Table == b.Table && a.Field == b.Field {
			b.Discard()
		}
	case *changeset.RenameColumn:
		b, ok := minor.(*changeset.RenameColumn)
		if !ok || a.Table != b.Table || a.Field != b.Field {
			return nil
		}

		if a.NewName != b.NewName {
			return &SchemaMismatchError{Table: a.Table, Field: a.Field, Reason: fmt.Sprintf("rename target %q vs %q", a.NewName, b.NewName)}
		}

		b.Discard()
	case *changeset.AddSearchIndex:
		if b, ok := minor.(*changeset.AddSearchIndex); ok && a.Table == b.Table && a.Field == b.Field {
			b.Discard()
		}
	case *changeset.RemoveSearchIndex:
		if b, ok := minor.(*changeset.RemoveSearchIndex); ok && a.Table == b.Table && a.Field == b.Field {
			b.Discard()
		}
	case *changeset.SetLinkType:
		b, ok := minor.(*changeset.SetLinkType)
		if !ok || a.Table != b.Table || a.Field != b.Field {
			return nil
		}

		if a.Target != b.Target {
			return &SchemaMismatchError{Table: a.Table, Field: a.Field, Reason: fmt.Sprintf("link target %q vs %q", a.Target, b.Target)}
		}

		b.Discard()
	}

	return nil
}
