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
package changeset_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/colstore/coredb/pkg/changeset"
)

// fakeSource backs a Reverser in tests with a tiny in-memory table model,
// standing in for a read of the live Table taken before a forward
// instruction is applied.
type fakeSource struct {
	pk       map[string]string
	colType  map[[2]string]string
	colNull  map[[2]string]bool
	colKind  map[[2]string]string
	link     map[[2]string]string
	payload  map[string]changeset.Payload
	elements map[string][]changeset.Payload
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pk:       make(map[string]string),
		colType:  make(map[[2]string]string),
		colNull:  make(map[[2]string]bool),
		colKind:  make(map[[2]string]string),
		link:     make(map[[2]string]string),
		payload:  make(map[string]changeset.Payload),
		elements: make(map[string][]changeset.Payload),
	}
}

func (s *fakeSource) TablePK(table string) string { return s.pk[table] }

func (s *fakeSource) ColumnDef(table, field string) (string, bool, string) {
	k := [2]string{table, field}
	return s.colType[k], s.colNull[k], s.colKind[k]
}

func (s *fakeSource) LinkTarget(table, field string) string { return s.link[[2]string{table, field}] }

func (s *fakeSource) Payload(p changeset.Path) changeset.Payload { return s.payload[pathKey(p)] }

func (s *fakeSource) ArrayElement(p changeset.Path) changeset.Payload {
	return s.payload[pathKey(p)]
}

func (s *fakeSource) ArrayElements(p changeset.Path) []changeset.Payload {
	return s.elements[pathKey(p)]
}

func pathKey(p changeset.Path) string {
	k := p.Table + "/" + p.Field
	for _, e := range p.Elements {
		if e.HasIndex {
			k += "#idx"
		} else {
			k += "#" + e.Key
		}
	}

	return k
}

func strPayload(v string) changeset.Payload { return changeset.Payload{Type: changeset.PayloadString, String: v} }
func intPayload(v int64) changeset.Payload  { return changeset.Payload{Type: changeset.PayloadInt, Int: v} }

// TestVarintRoundTrip covers boundary magnitudes for both the unsigned and
// signed wire encodings (spec.md §6.2).
func TestVarintRoundTrip(t *testing.T) {
	cs := changeset.New(1, 1)
	cs.Append(&changeset.CreateObject{Table: "people", PK: 0})

	for _, pk := range []int64{0, 1, -1, 63, 64, -64, -65, 127, 1 << 20, -(1 << 20)} {
		cs.Append(&changeset.CreateObject{Table: "people", PK: pk})
		cs.Append(&changeset.Update{
			Path:    changeset.Path{Table: "people", Field: "age", Object: pk},
			Payload: intPayload(pk),
		})
	}

	enc := changeset.NewEncoder()
	if err := enc.EncodeAll(cs); err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}

	out, err := changeset.Decode(enc.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := cs.Live()
	if len(out) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(out), len(want))
	}

	for i := range want {
		co, ok := want[i].(*changeset.CreateObject)
		if !ok {
			continue
		}

		go_, ok := out[i].(*changeset.CreateObject)
		if !ok {
			t.Fatalf("instruction %d: got %T, want *CreateObject", i, out[i])
		}

		if go_.PK != co.PK {
			t.Fatalf("instruction %d: got PK=%d, want %d", i, go_.PK, co.PK)
		}
	}
}

// TestEncodeParseRoundTrip covers spec.md §8 invariant 5: parsing the
// encoding of a changeset reproduces the same instruction sequence.
func TestEncodeParseRoundTrip(t *testing.T) {
	cs := changeset.New(7, 1)
	cs.Append(&changeset.AddTable{Name: "people", PK: "id"})
	cs.Append(&changeset.AddColumn{Table: "people", Field: "name", Type: "string", Nullable: true})
	cs.Append(&changeset.CreateObject{Table: "people", PK: 1})
	cs.Append(&changeset.Update{
		Path:    changeset.Path{Table: "people", Field: "name", Object: 1},
		Payload: strPayload("ada"),
	})
	cs.Append(&changeset.AddColumn{Table: "people", Field: "tags", Type: "string", CollectionKind: "list"})
	cs.Append(&changeset.ArrayInsert{
		Path:      changeset.Path{Table: "people", Field: "tags", Object: 1, Elements: []changeset.PathElement{{HasIndex: true, Index: 0}}},
		Payload:   strPayload("engineer"),
		PriorSize: 0,
	})
	cs.Append(&changeset.ArrayInsert{
		Path:      changeset.Path{Table: "people", Field: "tags", Object: 1, Elements: []changeset.PathElement{{HasIndex: true, Index: 1}}},
		Payload:   strPayload("mathematician"),
		PriorSize: 1,
	})
	cs.Append(&changeset.EraseObject{Table: "people", PK: 1})

	enc := changeset.NewEncoder()
	if err := enc.EncodeAll(cs); err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}

	out, err := changeset.Decode(enc.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := cs.Live()
	if len(out) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(out), len(want))
	}

	for i := range want {
		if reflect.TypeOf(out[i]) != reflect.TypeOf(want[i]) {
			t.Fatalf("instruction %d: got %T, want %T", i, out[i], want[i])
		}
	}

	arrIn, ok := out[5].(*changeset.ArrayInsert)
	if !ok {
		t.Fatalf("instruction 5: got %T, want *ArrayInsert", out[5])
	}

	if arrIn.Path.Index() != 0 || arrIn.Payload.String != "engineer" {
		t.Fatalf("instruction 5: got index=%d payload=%q", arrIn.Path.Index(), arrIn.Payload.String)
	}
}

// TestUpdateTagEncodesVariant confirms Update.Tag() and the wire format pick
// the canonical tag (spec.md §6.2: 6 Set, 7 SetUnique, 8 SetDefault) off the
// IsDefault/Unique fields, and that Decode recovers them.
func TestUpdateTagEncodesVariant(t *testing.T) {
	cases := []struct {
		name      string
		isDefault bool
		unique    bool
		wantTag   changeset.Tag
	}{
		{"plain", false, false, changeset.TagSet},
		{"unique", false, true, changeset.TagSetUnique},
		{"default", true, false, changeset.TagSetDefault},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &changeset.Update{
				Path:      changeset.Path{Table: "people", Field: "name", Object: 1},
				Payload:   strPayload("ada"),
				IsDefault: tc.isDefault,
				Unique:    tc.unique,
			}

			if got := u.Tag(); got != tc.wantTag {
				t.Fatalf("Tag() = %d, want %d", got, tc.wantTag)
			}

			cs := changeset.New(1, 1)
			cs.Append(&changeset.AddTable{Name: "people", PK: "id"})
			cs.Append(&changeset.CreateObject{Table: "people", PK: 1})
			cs.Append(u)

			enc := changeset.NewEncoder()
			if err := enc.EncodeAll(cs); err != nil {
				t.Fatalf("EncodeAll: %v", err)
			}

			out, err := changeset.Decode(enc.Bytes())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			got, ok := out[2].(*changeset.Update)
			if !ok {
				t.Fatalf("instruction 2: got %T, want *Update", out[2])
			}

			if got.IsDefault != tc.isDefault || got.Unique != tc.unique {
				t.Fatalf("got IsDefault=%v Unique=%v, want IsDefault=%v Unique=%v",
					got.IsDefault, got.Unique, tc.isDefault, tc.unique)
			}
		})
	}
}

// TestSelectCachingOmitsRedundantSelections confirms the encoder only emits
// SelectTable/SelectList when the selection actually changes, and that the
// decoded instructions are unaffected by that caching (spec.md §4.4).
func TestSelectCachingOmitsRedundantSelections(t *testing.T) {
	cs := changeset.New(1, 1)

	for i := int64(0); i < 5; i++ {
		cs.Append(&changeset.Update{
			Path:    changeset.Path{Table: "people", Field: "age", Object: i},
			Payload: intPayload(i),
		})
	}

	enc := changeset.NewEncoder()
	if err := enc.EncodeAll(cs); err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}

	buf := enc.Bytes()

	// Every other byte of this stream (lengths, "people"/"age", the tags and
	// the values 0..4) differs from the SelectTable tag, so counting that
	// byte counts the selections emitted.
	if n := bytes.Count(buf, []byte{byte(changeset.TagSelectTable)}); n != 1 {
		t.Fatalf("got %d SelectTable instructions, want 1", n)
	}

	out, err := changeset.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(out) != 5 {
		t.Fatalf("got %d instructions, want 5", len(out))
	}

	for i, instr := range out {
		u, ok := instr.(*changeset.Update)
		if !ok {
			t.Fatalf("instruction %d: got %T, want *Update", i, instr)
		}

		if u.Path.Table != "people" || u.Path.Object != int64(i) {
			t.Fatalf("instruction %d: got table=%q object=%d", i, u.Path.Table, u.Path.Object)
		}
	}
}

// TestReverseUpdate covers spec.md §8 invariant 6: reversing an Update
// restores the prior payload.
func TestReverseUpdate(t *testing.T) {
	src := newFakeSource()
	src.payload["people/name"] = strPayload("ada")

	rv := changeset.NewReverser(src)

	fwd := &changeset.Update{
		Path:    changeset.Path{Table: "people", Field: "name", Object: 1},
		Payload: strPayload("grace"),
	}

	inv := rv.Reverse(fwd)
	if len(inv) != 1 {
		t.Fatalf("got %d inverse instructions, want 1", len(inv))
	}

	u, ok := inv[0].(*changeset.Update)
	if !ok {
		t.Fatalf("got %T, want *Update", inv[0])
	}

	if u.Payload.String != "ada" {
		t.Fatalf("got reverted payload %q, want %q", u.Payload.String, "ada")
	}
}

// TestReverseClearReinsertsElements covers Clear's inverse: one ArrayInsert
// per element that was present, in original order.
func TestReverseClearReinsertsElements(t *testing.T) {
	src := newFakeSource()
	path := changeset.Path{Table: "people", Field: "tags", Object: 1}
	src.elements[pathKey(path)] = []changeset.Payload{strPayload("a"), strPayload("b"), strPayload("c")}

	rv := changeset.NewReverser(src)

	inv := rv.Reverse(&changeset.Clear{Path: path})
	if len(inv) != 3 {
		t.Fatalf("got %d inverse instructions, want 3", len(inv))
	}

	for i, want := range []string{"a", "b", "c"} {
		ins, ok := inv[i].(*changeset.ArrayInsert)
		if !ok {
			t.Fatalf("inverse %d: got %T, want *ArrayInsert", i, inv[i])
		}

		if ins.Path.Index() != uint32(i) || ins.Payload.String != want {
			t.Fatalf("inverse %d: got index=%d payload=%q, want index=%d payload=%q",
				i, ins.Path.Index(), ins.Payload.String, i, want)
		}
	}
}

// TestReverseChangesetOrder covers spec.md §4.4 "applied in reverse
// instruction order": reversing [CreateObject, Update] must yield
// [reverse(Update), reverse(CreateObject)] so undo restores state correctly.
func TestReverseChangesetOrder(t *testing.T) {
	src := newFakeSource()
	src.payload["people/name"] = changeset.Null()

	cs := changeset.New(1, 1)
	cs.Append(&changeset.CreateObject{Table: "people", PK: 1})
	cs.Append(&changeset.Update{
		Path:    changeset.Path{Table: "people", Field: "name", Object: 1},
		Payload: strPayload("ada"),
	})

	rv := changeset.NewReverser(src)
	out := rv.ReverseChangeset(cs)

	if len(out.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(out.Instructions))
	}

	if _, ok := out.Instructions[0].(*changeset.Update); !ok {
		t.Fatalf("instruction 0: got %T, want *Update", out.Instructions[0])
	}

	if _, ok := out.Instructions[1].(*changeset.EraseObject); !ok {
		t.Fatalf("instruction 1: got %T, want *EraseObject", out.Instructions[1])
	}
}

// TestChangesetLiveFiltersDiscarded confirms discarded instructions are
// skipped by Live but keep their index position in Instructions.
func TestChangesetLiveFiltersDiscarded(t *testing.T) {
	cs := changeset.New(1, 1)
	cs.Append(&changeset.CreateObject{Table: "people", PK: 1})
	cs.Append(&changeset.CreateObject{Table: "people", PK: 2})
	cs.Instructions[0].(*changeset.CreateObject).Discarded = true

	live := cs.Live()
	if len(live) != 1 {
		t.Fatalf("got %d live instructions, want 1", len(live))
	}

	co, ok := live[0].(*changeset.CreateObject)
	if !ok || co.PK != 2 {
		t.Fatalf("got %+v, want CreateObject{PK: 2}", live[0])
	}

	if len(cs.Instructions) != 2 {
		t.Fatalf("got %d total instructions, want 2 (discard must not shrink slice)", len(cs.Instructions))
	}
}

// TestStringInternerAssignsStableIds covers spec.md §4.4's interning
// contract: same string, same id, within one interner.
func TestStringInternerAssignsStableIds(t *testing.T) {
	in := changeset.NewStringInterner()

	a := in.Intern("people")
	b := in.Intern("accounts")
	c := in.Intern("people")

	if a != c {
		t.Fatalf("got different ids %d and %d for the same string", a, c)
	}

	if a == b {
		t.Fatalf("got the same id %d for two different strings", a)
	}

	if in.String(a) != "people" || in.String(b) != "accounts" {
		t.Fatalf("got mismatched round trip: String(%d)=%q String(%d)=%q", a, in.String(a), b, in.String(b))
	}

	if in.Len() != 2 {
		t.Fatalf("got Len()=%d, want 2", in.Len())
	}
}

// TestPathSamePrefixAndIndex covers the nested-merge-rule prefix detection,
// Index on an array-indexed path, and WithIndex's copy semantics.
func TestPathSamePrefixAndIndex(t *testing.T) {
	base := changeset.Path{Table: "people", Field: "tags", Object: 1}
	nested := base
	nested.Elements = []changeset.PathElement{{HasIndex: true, Index: 2}}

	if !base.SamePrefix(nested) {
		t.Fatalf("expected base to be a strict prefix of nested")
	}

	if nested.SamePrefix(base) {
		t.Fatalf("did not expect nested to be a strict prefix of base")
	}

	if nested.Index() != 2 {
		t.Fatalf("got Index()=%d, want 2", nested.Index())
	}

	moved := nested.WithIndex(5)
	if moved.Index() != 5 || nested.Index() != 2 {
		t.Fatalf("WithIndex must not mutate the receiver: got moved=%d orig=%d", moved.Index(), nested.Index())
	}
}
