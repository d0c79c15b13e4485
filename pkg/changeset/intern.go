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

// StringInterner assigns small integer ids to strings within one
// changeset (spec.md §4.4 "Intern strings and paths"). Ids are only
// meaningful within the interner that produced them: comparing ids from
// two different changesets without going through AdoptString is a bug,
// never a coincidentally-correct shortcut.
type StringInterner struct {
	strings []string
	ids     map[string]int
}

// NewStringInterner constructs an empty interner.
func NewStringInterner() *StringInterner {
	return &StringInterner{ids: make(map[string]int)}
}

// Intern returns v's id, assigning a new one on first occurrence.
func (in *StringInterner) Intern(v string) int {
	if id, ok := in.ids[v]; ok {
		return id
	}

	id := len(in.strings)
	in.strings = append(in.strings, v)
	in.ids[v] = id

	return id
}

// String returns the string behind id.
func (in *StringInterner) String(id int) string { return in.strings[id] }

// Len returns the number of distinct interned strings.
func (in *StringInterner) Len() int { return len(in.strings) }

// AdoptString copies v (sourced from a different changeset's interner)
// into in, returning in's id for it (spec.md §4.4 "Equality of interned
// ids within the same changeset implies string equality; cross-changeset
// equality requires an adopt_string step"). It is just Intern: the
// "adoption" is the caller's responsibility to never compare the
// returned id against an id from the source interner.
func (in *StringInterner) AdoptString(v string) int { return in.Intern(v) }
