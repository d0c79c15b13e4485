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

import "fmt"

// ErrAccessorInvalidated is panicked by any method on a subtable Table whose
// parent cell was cleared or overwritten after the accessor was handed out
// (spec.md §9 open question: "whether user-held subtable accessors are
// invalidated safely is not asserted" — coredb asserts the conservative
// answer and makes stale use a loud, immediate defect rather than letting it
// silently read replaced data).
var ErrAccessorInvalidated = fmt.Errorf("store: subtable accessor invalidated")

// ErrNotInserting is returned by Insert*/InsertDone calls made outside a
// BeginInsert/InsertDone bracket.
var ErrNotInserting = fmt.Errorf("store: no insert in progress")

// ErrInsertIncomplete is returned by InsertDone when not every column
// received exactly one Insert* call since BeginInsert (spec.md §4.3
// "Violating this leaves the table in an invalid state").
var ErrInsertIncomplete = fmt.Errorf("store: insert_done called before every column was inserted")

func errColumnType(col int, want string) error {
	return fmt.Errorf("store: column %d is not a %s column", col, want)
}
