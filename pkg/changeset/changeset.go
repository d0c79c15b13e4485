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

// Changeset is an ordered sequence of instructions plus the bookkeeping
// spec.md §3.4 requires: an interned string pool, a monotonic version, the
// last remote version this changeset has integrated, an origin file
// identifier, and an origin timestamp. A discarded (tombstoned)
// instruction stays in place — Instructions is never shrunk by the merge
// engine, only marked via Origin.Discarded — so that index positions stay
// stable for any cursor already referencing them.
type Changeset struct {
	Instructions []Instruction
	Interner     *StringInterner

	Version                int64
	LastIntegratedRemote    int64
	OriginFile              uint64
	OriginTimestamp         int64
}

// New constructs an empty changeset.
func New(originFile uint64, version int64) *Changeset {
	return &Changeset{
		Interner:   NewStringInterner(),
		Version:    version,
		OriginFile: originFile,
	}
}

// Append adds instr to the end of the changeset.
func (c *Changeset) Append(instr Instruction) { c.Instructions = append(c.Instructions, instr) }

// Live returns the non-discarded instructions, in order.
func (c *Changeset) Live() []Instruction {
	out := make([]Instruction, 0, len(c.Instructions))

	for _, instr := range c.Instructions {
		if !instr.origin().Discarded {
			out = append(out, instr)
		}
	}

	return out
}
