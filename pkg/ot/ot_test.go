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
package ot_test

import (
	"testing"

	"github.com/colstore/coredb/pkg/changeset"
	"github.com/colstore/coredb/pkg/ot"
)

func intPayload(v int64) changeset.Payload { return changeset.Payload{Type: changeset.PayloadInt, Int: v} }

func listPath(table, field string, object int64, index uint32) changeset.Path {
	return changeset.Path{
		Table: table, Field: field, Object: object,
		Elements: []changeset.PathElement{{HasIndex: true, Index: index}},
	}
}

// TestUpdateUpdateTimestampTiebreak covers spec.md §8 scenario 3: two
// updates to the same field, the later timestamp wins on both sides.
func TestUpdateUpdateTimestampTiebreak(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.Update{
		Origin:  changeset.Origin{Timestamp: 100},
		Path:    changeset.Path{Table: "T", Field: "a", Object: 5},
		Payload: intPayload(1),
	})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.Update{
		Origin:  changeset.Origin{Timestamp: 200},
		Path:    changeset.Path{Table: "T", Field: "a", Object: 5},
		Payload: intPayload(2),
	})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(localOut.Live()) != 0 {
		t.Fatalf("got %d live local instructions, want 0 (L' discarded)", len(localOut.Live()))
	}

	live := remoteOut.Live()
	if len(live) != 1 {
		t.Fatalf("got %d live remote instructions, want 1", len(live))
	}

	u, ok := live[0].(*changeset.Update)
	if !ok || u.Payload.Int != 2 {
		t.Fatalf("got %+v, want Update{Payload.Int: 2} unchanged", live[0])
	}
}

// TestArrayInsertEraseShift covers spec.md §8 scenario 4 exactly.
func TestArrayInsertEraseShift(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.ArrayInsert{
		Origin:    changeset.Origin{Timestamp: 100},
		Path:      listPath("T", "l", 5, 1),
		Payload:   changeset.Payload{Type: changeset.PayloadString, String: "w"},
		PriorSize: 3,
	})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.ArrayErase{
		Origin:    changeset.Origin{Timestamp: 200},
		Path:      listPath("T", "l", 5, 2),
		PriorSize: 3,
	})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	lLive := localOut.Live()
	if len(lLive) != 1 {
		t.Fatalf("got %d live local instructions, want 1", len(lLive))
	}

	ins, ok := lLive[0].(*changeset.ArrayInsert)
	if !ok {
		t.Fatalf("got %T, want *ArrayInsert", lLive[0])
	}

	if ins.Path.Index() != 1 || ins.PriorSize != 2 {
		t.Fatalf("got L'={index: %d, prior_size: %d}, want {1, 2}", ins.Path.Index(), ins.PriorSize)
	}

	rLive := remoteOut.Live()
	if len(rLive) != 1 {
		t.Fatalf("got %d live remote instructions, want 1", len(rLive))
	}

	er, ok := rLive[0].(*changeset.ArrayErase)
	if !ok {
		t.Fatalf("got %T, want *ArrayErase", rLive[0])
	}

	if er.Path.Index() != 3 || er.PriorSize != 4 {
		t.Fatalf("got R'={index: %d, prior_size: %d}, want {3, 4}", er.Path.Index(), er.PriorSize)
	}
}

// TestEraseObjectBeatsNestedUpdate covers spec.md §8 scenario 5.
func TestEraseObjectBeatsNestedUpdate(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.EraseObject{Origin: changeset.Origin{Timestamp: 100}, Table: "T", PK: 5})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.Update{
		Origin:  changeset.Origin{Timestamp: 200},
		Path:    changeset.Path{Table: "T", Field: "a", Object: 5},
		Payload: intPayload(9),
	})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(remoteOut.Live()) != 0 {
		t.Fatalf("got %d live remote instructions, want 0 (nested update discarded)", len(remoteOut.Live()))
	}

	lLive := localOut.Live()
	if len(lLive) != 1 {
		t.Fatalf("got %d live local instructions, want 1", len(lLive))
	}

	if _, ok := lLive[0].(*changeset.EraseObject); !ok {
		t.Fatalf("got %T, want *EraseObject unchanged", lLive[0])
	}
}

// TestSchemaMismatchAbortsMerge covers spec.md §8 scenario 6.
func TestSchemaMismatchAbortsMerge(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.AddColumn{Table: "T", Field: "x", Type: "int"})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.AddColumn{Table: "T", Field: "x", Type: "string"})

	_, _, err := ot.Merge(local, remote, nil)
	if err == nil {
		t.Fatalf("got nil error, want *SchemaMismatchError")
	}

	if _, ok := err.(*ot.SchemaMismatchError); !ok {
		t.Fatalf("got %T, want *ot.SchemaMismatchError", err)
	}
}

// TestSchemaAddColumnAgreeingDiscardsDuplicate confirms matching, agreeing
// schema instructions are both kept conceptually once (the duplicate is
// discarded) rather than raising a mismatch.
func TestSchemaAddColumnAgreeingDiscardsDuplicate(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.AddColumn{Table: "T", Field: "x", Type: "int", Nullable: true})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.AddColumn{Table: "T", Field: "x", Type: "int", Nullable: true})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(localOut.Live()) != 1 {
		t.Fatalf("got %d live local instructions, want 1", len(localOut.Live()))
	}

	if len(remoteOut.Live()) != 0 {
		t.Fatalf("got %d live remote instructions, want 0 (duplicate discarded)", len(remoteOut.Live()))
	}
}

// TestCreateObjectIdempotent confirms two CreateObject for the same key
// collapse to one live instruction, whichever has the later timestamp.
func TestCreateObjectIdempotent(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.CreateObject{Origin: changeset.Origin{Timestamp: 500}, Table: "T", PK: 5})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.CreateObject{Origin: changeset.Origin{Timestamp: 1}, Table: "T", PK: 5})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(localOut.Live())+len(remoteOut.Live()) != 1 {
		t.Fatalf("got %d total live CreateObject instructions, want 1", len(localOut.Live())+len(remoteOut.Live()))
	}
}

// TestTwoArrayErasesSameIndexBothDiscarded covers spec.md §4.5 "Two
// ArrayErase at the same index: both are discarded."
func TestTwoArrayErasesSameIndexBothDiscarded(t *testing.T) {
	local := changeset.New(1, 1)
	local.Append(&changeset.ArrayErase{Path: listPath("T", "l", 5, 2), PriorSize: 3})

	remote := changeset.New(2, 1)
	remote.Append(&changeset.ArrayErase{Path: listPath("T", "l", 5, 2), PriorSize: 3})

	localOut, remoteOut, err := ot.Merge(local, remote, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(localOut.Live()) != 0 || len(remoteOut.Live()) != 0 {
		t.Fatalf("got local=%d remote=%d live, want 0/0", len(localOut.Live()), len(remoteOut.Live()))
	}
}
