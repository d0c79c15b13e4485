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
	"github.com/bits-and-blooms/bitset"

	"github.com/colstore/coredb/pkg/changeset"
)

// conflictKey identifies the scope two instructions must share to be
// candidates for a merge rule (spec.md §4.5 "conflict group"): either the
// whole schema, or one object identified by (table, primary key).
type conflictKey struct {
	schema bool
	table  string
	pk     int64
}

func schemaKey() conflictKey { return conflictKey{schema: true} }

func objectKey(table string, pk int64) conflictKey { return conflictKey{table: table, pk: pk} }

// objectOf returns the (table, pk) an object- or path-addressed instruction
// touches. Schema instructions have no single object and return ok=false.
func objectOf(instr changeset.Instruction) (table string, pk int64, ok bool) {
	switch v := instr.(type) {
	case *changeset.CreateObject:
		return v.Table, v.PK, true
	case *changeset.EraseObject:
		return v.Table, v.PK, true
	case *changeset.Update:
		return v.Path.Table, v.Path.Object, true
	case *changeset.AddInteger:
		return v.Path.Table, v.Path.Object, true
	case *changeset.ArrayInsert:
		return v.Path.Table, v.Path.Object, true
	case *changeset.ArrayErase:
		return v.Path.Table, v.Path.Object, true
	case *changeset.ArrayMove:
		return v.Path.Table, v.Path.Object, true
	case *changeset.Clear:
		return v.Path.Table, v.Path.Object, true
	case *changeset.SetInsert:
		return v.Path.Table, v.Path.Object, true
	case *changeset.SetErase:
		return v.Path.Table, v.Path.Object, true
	default:
		return "", 0, false
	}
}

// pathOf returns the field-level Path of a path-addressed instruction
// (object instructions and schema instructions have none).
func pathOf(instr changeset.Instruction) (changeset.Path, bool) {
	switch v := instr.(type) {
	case *changeset.Update:
		return v.Path, true
	case *changeset.AddInteger:
		return v.Path, true
	case *changeset.ArrayInsert:
		return v.Path, true
	case *changeset.ArrayErase:
		return v.Path, true
	case *changeset.ArrayMove:
		return v.Path, true
	case *changeset.Clear:
		return v.Path, true
	case *changeset.SetInsert:
		return v.Path, true
	case *changeset.SetErase:
		return v.Path, true
	default:
		return changeset.Path{}, false
	}
}

func keyOf(instr changeset.Instruction) conflictKey {
	if table, pk, ok := objectOf(instr); ok {
		return objectKey(table, pk)
	}

	return schemaKey()
}

// index groups a changeset's instructions by conflict key so the outer
// merge loop can look up, for a given major-side instruction, exactly the
// minor-side instructions it must be checked against (spec.md §4.5 step 1
// "scan_changeset"/"add_changeset"). Because every instruction has exactly
// one conflict key, grouping by key already partitions the instructions —
// there is no need for a separate union-find pass to merge two groups
// together, as no two distinct keys are ever the same conflict group.
type index struct {
	groups map[conflictKey]*bitset.BitSet
}

func buildIndex(instrs []changeset.Instruction) *index {
	idx := &index{groups: make(map[conflictKey]*bitset.BitSet)}

	for i, instr := range instrs {
		k := keyOf(instr)

		bs, ok := idx.groups[k]
		if !ok {
			bs = bitset.New(uint(len(instrs)))
			idx.groups[k] = bs
		}

		bs.Set(uint(i))
	}

	return idx
}

func (idx *index) group(k conflictKey) *bitset.BitSet { return idx.groups[k] }
