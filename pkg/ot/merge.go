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
	"github.com/sirupsen/logrus"

	"github.com/colstore/coredb/pkg/changeset"
)

// Merge implements spec.md §4.5's outer loop: for every non-tombstone
// local instruction, walk the remote instructions sharing its conflict
// group and apply the matching rule. It operates on private copies of
// both changesets — local and remote are never mutated — and returns the
// rewritten (local', remote') pair such that applying remote' after local
// and local' after remote converge (spec.md §8 invariant 7).
//
// A *SchemaMismatchError aborts the whole transform: neither rewritten
// changeset is usable, matching spec.md §7's "reciprocal cache is cleared
// before rethrow so partially-merged state cannot leak into the next
// attempt" (coredb has no reciprocal cache to clear here; returning
// (nil, nil, err) gives the caller the same "discard everything" outcome).
func Merge(local, remote *changeset.Changeset, log logrus.FieldLogger) (*changeset.Changeset, *changeset.Changeset, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	localOut := cloneChangeset(local)
	remoteOut := cloneChangeset(remote)

	idx := buildIndex(remoteOut.Instructions)

	for mi, major := range localOut.Instructions {
		if major.OriginInfo().Discarded {
			continue
		}

		group := idx.group(keyOf(major))
		if group == nil {
			continue
		}

		for ri, ok := group.NextSet(0); ok; ri, ok = group.NextSet(ri + 1) {
			minor := remoteOut.Instructions[ri]
			if minor.OriginInfo().Discarded {
				continue
			}

			if err := applyRule(major, minor); err != nil {
				log.WithFields(logrus.Fields{
					"local_index":  mi,
					"remote_index": ri,
				}).WithError(err).Warn("ot: schema mismatch, aborting merge")

				return nil, nil, err
			}

			if major.OriginInfo().Discarded {
				break
			}
		}
	}

	return localOut, remoteOut, nil
}

func cloneChangeset(c *changeset.Changeset) *changeset.Changeset {
	out := changeset.New(c.OriginFile, c.Version)
	out.LastIntegratedRemote = c.LastIntegratedRemote
	out.OriginTimestamp = c.OriginTimestamp
	out.Interner = c.Interner

	for _, instr := range c.Instructions {
		out.Append(cloneInstruction(instr))
	}

	return out
}

// cloneInstruction copies instr so Merge's in-place mutation/discard never
// touches the caller's original changeset.
func cloneInstruction(instr changeset.Instruction) changeset.Instruction {
	switch v := instr.(type) {
	case *changeset.AddTable:
		c := *v
		return &c
	case *changeset.EraseTable:
		c := *v
		return &c
	case *changeset.AddColumn:
		c := *v
		return &c
	case *changeset.EraseColumn:
		c := *v
		return &c
	case *changeset.RenameColumn:
		c := *v
		return &c
	case *changeset.AddSearchIndex:
		c := *v
		return &c
	case *changeset.RemoveSearchIndex:
		c := *v
		return &c
	case *changeset.SetLinkType:
		c := *v
		return &c
	case *changeset.CreateObject:
		c := *v
		return &c
	case *changeset.EraseObject:
		c := *v
		return &c
	case *changeset.Update:
		c := *v
		return &c
	case *changeset.AddInteger:
		c := *v
		return &c
	case *changeset.ArrayInsert:
		c := *v
		return &c
	case *changeset.ArrayErase:
		c := *v
		return &c
	case *changeset.ArrayMove:
		c := *v
		return &c
	case *changeset.Clear:
		c := *v
		return &c
	case *changeset.SetInsert:
		c := *v
		return &c
	case *changeset.SetErase:
		c := *v
		return &c
	default:
		return instr
	}
}
