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

// Package ot implements the operational-transform merge engine of spec.md
// §4.5: given two changesets derived from a common base, it rewrites each
// so that cross-applying the rewritten pair converges to the same state.
package ot

import "fmt"

// SchemaMismatchError is raised when two schema instructions name the same
// table/column but disagree on type, nullability, or link target (spec.md
// §4.5 "the merge raises a schema-mismatch error", §7 SchemaMismatch).
// Merge aborts the whole transform on this error; neither side is applied.
type SchemaMismatchError struct {
	Table  string
	Field  string
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("ot: schema mismatch on table %q: %s", e.Table, e.Reason)
	}

	return fmt.Sprintf("ot: schema mismatch on %s.%s: %s", e.Table, e.Field, e.Reason)
}
