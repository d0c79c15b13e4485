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

import "sync"

// ClientEntry is one row of the server-side client file registry of
// spec.md §6.3: "an array of per-client entries {ident_salt,
// client_version, reciprocal_base_version, proxy_file, client_type,
// last_seen_timestamp, locked_server_version}. Used for diagnostics and
// for in-place history compaction."
type ClientEntry struct {
	// IdentSalt uniquely identifies the client across reconnects.
	IdentSalt uint64
	// ClientVersion is the highest local version the client has reported.
	ClientVersion VersionType
	// ReciprocalBaseVersion is the server version the client has last
	// integrated (spec.md §3.4's Changeset.LastIntegratedRemote, mirrored
	// server-side).
	ReciprocalBaseVersion VersionType
	// ProxyFile names the on-disk proxy/staging file this client is
	// assigned, if any.
	ProxyFile string
	// ClientType is a free-form diagnostic string (e.g. "sync-client").
	ClientType string
	// LastSeenTimestamp is a Unix timestamp of the client's last contact.
	LastSeenTimestamp int64
	// LockedServerVersion is the oldest server version this client might
	// still need history for; history below the minimum of all clients'
	// LockedServerVersion is safe to compact away.
	LockedServerVersion VersionType
}

// ClientRegistry tracks one entry per connected sync client, keyed by
// IdentSalt. It is safe for concurrent use.
type ClientRegistry struct {
	mux     sync.RWMutex
	entries map[uint64]*ClientEntry
}

// NewClientRegistry constructs an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{entries: make(map[uint64]*ClientEntry)}
}

// Upsert records entry, replacing any existing entry for the same
// IdentSalt.
func (r *ClientRegistry) Upsert(entry ClientEntry) {
	r.mux.Lock()
	defer r.mux.Unlock()

	cp := entry
	r.entries[entry.IdentSalt] = &cp
}

// Touch updates the liveness fields of an already-registered client
// without disturbing the rest of its entry. It reports false if no entry
// exists for identSalt.
func (r *ClientRegistry) Touch(identSalt uint64, clientVersion, reciprocalBaseVersion VersionType, lastSeen int64) bool {
	r.mux.Lock()
	defer r.mux.Unlock()

	e, ok := r.entries[identSalt]
	if !ok {
		return false
	}

	e.ClientVersion = clientVersion
	e.ReciprocalBaseVersion = reciprocalBaseVersion
	e.LastSeenTimestamp = lastSeen

	return true
}

// Get returns a copy of the entry registered for identSalt.
func (r *ClientRegistry) Get(identSalt uint64) (ClientEntry, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	e, ok := r.entries[identSalt]
	if !ok {
		return ClientEntry{}, false
	}

	return *e, true
}

// Remove drops the entry for identSalt, e.g. once a client is known to
// have disconnected permanently.
func (r *ClientRegistry) Remove(identSalt uint64) {
	r.mux.Lock()
	defer r.mux.Unlock()

	delete(r.entries, identSalt)
}

// All returns a snapshot of every registered entry, in no particular
// order.
func (r *ClientRegistry) All() []ClientEntry {
	r.mux.RLock()
	defer r.mux.RUnlock()

	out := make([]ClientEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}

	return out
}

// LowWaterMark returns the lowest LockedServerVersion across every
// registered client, which is the oldest version history compaction must
// retain. ok is false when the registry is empty, in which case no
// client-imposed floor exists.
func (r *ClientRegistry) LowWaterMark() (version VersionType, ok bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()

	first := true

	for _, e := range r.entries {
		if first || e.LockedServerVersion < version {
			version = e.LockedServerVersion
			first = false
		}
	}

	return version, !first
}
