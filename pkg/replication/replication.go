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
package replication

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/colstore/coredb/pkg/changeset"
)

// Replication accumulates one write transaction's worth of instructions and
// hands the encoded result to a History, mirroring spec.md §6.4's
// Replication::{initiate_transact, prepare_commit, finalize_commit,
// get_uncommitted_changes}.
//
// From the point of view of this type, a write transaction has the steps
// spec.md's underlying model describes:
//
//  1. InitiateTransact is called and succeeds.
//  2. Mutations are reported via Track, each appended to the in-memory
//     changeset and encoded immediately.
//  3. PrepareCommit writes the accumulated changeset to the History. After
//     this, no further Track calls are permitted.
//  4. The caller performs its own commit of the underlying store.
//  5. FinalizeCommit clears the transient transaction state.
//
// Calling InitiateTransact again without an intervening FinalizeCommit
// discards whatever was accumulated and begins a fresh transaction — a
// transaction is never left half-open across two initiations.
type Replication struct {
	log        logrus.FieldLogger
	hist       History
	originFile uint64

	mux         sync.Mutex
	inTransact  bool
	prepared    bool
	baseVersion VersionType
	pending     *changeset.Changeset
	encoder     *changeset.Encoder
}

// New constructs a Replication backed by hist. originFile identifies this
// replica in encoded changesets' Origin metadata (spec.md §3.4).
func New(originFile uint64, hist History, log logrus.FieldLogger) *Replication {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Replication{log: log, hist: hist, originFile: originFile}
}

// InitiateTransact begins a new write transaction based on currentVersion.
func (r *Replication) InitiateTransact(currentVersion VersionType) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	if r.inTransact {
		r.log.WithField("base_version", r.baseVersion).
			Warn("replication: initiate_transact called without a preceding finalize_commit, discarding pending changeset")
	}

	r.baseVersion = currentVersion
	r.pending = changeset.New(r.originFile, currentVersion+1)
	r.encoder = changeset.NewEncoder()
	r.inTransact = true
	r.prepared = false

	return nil
}

// Track records instr as part of the transaction currently in progress.
// It must not be called before InitiateTransact, after PrepareCommit, or
// outside any transaction.
func (r *Replication) Track(instr changeset.Instruction) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	if !r.inTransact {
		return &StateError{Op: "track", Reason: "no transaction in progress"}
	}

	if r.prepared {
		return &StateError{Op: "track", Reason: "prepare_commit already called, no further mutations accepted"}
	}

	r.pending.Append(instr)

	return r.encoder.Encode(instr)
}

// GetUncommittedChanges returns the encoded instructions accumulated so far
// in the current write transaction. The returned slice is a copy; the
// caller does not share ownership with Replication's internal buffer.
// May only be called during a write transaction, prior to PrepareCommit.
func (r *Replication) GetUncommittedChanges() ([]byte, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	if !r.inTransact {
		return nil, &StateError{Op: "get_uncommitted_changes", Reason: "no transaction in progress"}
	}

	src := r.encoder.Bytes()
	out := make([]byte, len(src))
	copy(out, src)

	return out, nil
}

// PrepareCommit is the first phase of a two-phase commit: it writes the
// transaction's encoded changeset to the History while the write
// transaction is still active, and returns the version of the resulting
// snapshot. After this call, no further mutations may be tracked; if
// PrepareCommit itself fails, the caller must roll the transaction back
// rather than calling FinalizeCommit.
func (r *Replication) PrepareCommit() (VersionType, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	if !r.inTransact {
		return 0, &StateError{Op: "prepare_commit", Reason: "no transaction in progress"}
	}

	if r.prepared {
		return 0, &StateError{Op: "prepare_commit", Reason: "already called for this transaction"}
	}

	newVersion := r.baseVersion + 1

	if err := r.hist.Append(newVersion, r.encoder.Bytes()); err != nil {
		return 0, err
	}

	r.prepared = true

	return newVersion, nil
}

// FinalizeCommit is called once the caller's underlying store commit has
// succeeded. It clears the transient transaction state so a subsequent
// InitiateTransact starts clean.
func (r *Replication) FinalizeCommit() {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.inTransact = false
	r.prepared = false
	r.pending = nil
	r.encoder = nil
}
