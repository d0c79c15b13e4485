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
package store

import (
	"fmt"

	"github.com/colstore/coredb/pkg/alloc"
	"github.com/sirupsen/logrus"
)

// tableEntry is one committed table's directory entry: its spec and the
// root ref last written by Commit.
type tableEntry struct {
	spec *Spec
	ref  alloc.Ref // null ref until the first Commit
}

// Group is the outer container of spec.md §6.4: a named directory of
// tables sharing one allocator, with a single write transaction open at a
// time (Commit/Rollback bracket it). The on-disk file format is out of
// scope (spec.md §1 Non-goals); Group's path/encryptionKey parameters are
// accepted for surface compatibility but Open always starts from an empty
// in-memory store.
type Group struct {
	alloc *alloc.SlabAllocator
	log   logrus.FieldLogger

	entries map[string]*tableEntry
	live    map[string]*Table // tables materialized during the current transaction
}

// Open starts a new Group. path and encryptionKey mirror spec.md §6.4's
// Group::open(path, encryption_key) signature; persistence itself is out of
// scope, so both are accepted and ignored.
func Open(path string, encryptionKey []byte, log logrus.FieldLogger) *Group {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Group{
		alloc:   alloc.NewSlabAllocator(log),
		log:     log,
		entries: make(map[string]*tableEntry),
		live:    make(map[string]*Table),
	}
}

// GetTable returns the table named name, creating it from spec if it does
// not yet exist in the directory. Repeated calls within the same
// transaction return the same live *Table.
func (g *Group) GetTable(name string, spec *Spec) (*Table, error) {
	if t, ok := g.live[name]; ok {
		return t, nil
	}

	entry, known := g.entries[name]

	if !known {
		t, err := NewTable(spec, g.alloc, g.log)
		if err != nil {
			return nil, err
		}

		g.entries[name] = &tableEntry{spec: spec}
		g.live[name] = t

		return t, nil
	}

	if !entry.spec.Equal(spec) {
		return nil, fmt.Errorf("store: table %q schema mismatch", name)
	}

	var (
		t   *Table
		err error
	)

	if entry.ref.IsNull() {
		t, err = NewTable(spec, g.alloc, g.log)
	} else {
		t, err = AttachTable(entry.ref, spec, g.alloc, g.log)
	}

	if err != nil {
		return nil, err
	}

	g.live[name] = t

	return t, nil
}

// Commit flushes every table materialized during the current transaction,
// freezes their new root refs (simulating the copy-on-write boundary a real
// commit establishes against the mmap'd file), and records them as the
// directory's committed state. The write transaction then ends: a
// subsequent GetTable re-attaches from the committed ref.
func (g *Group) Commit() error {
	for name, t := range g.live {
		ref, err := t.RootRef()
		if err != nil {
			return err
		}

		g.alloc.Freeze(ref)
		g.entries[name].ref = ref
	}

	g.live = make(map[string]*Table)

	return nil
}

// Rollback discards every table materialized during the current
// transaction without recording their refs, matching spec.md §4.1
// "Cancellation ... discarding the accumulated in-memory changeset; no
// durable effect occurs until the commit step."
func (g *Group) Rollback() error {
	for _, t := range g.live {
		t.valid = false
	}

	g.live = make(map[string]*Table)

	return nil
}
