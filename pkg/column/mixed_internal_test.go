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
package column

import (
	"testing"

	"github.com/colstore/coredb/pkg/alloc"
)

// TestMixedColumnRefTagging pins spec.md §8 scenario 2: after set_int(0, 7),
// refs[0] holds the tagged inline scalar (7<<1)|1, not the raw value 7.
func TestMixedColumnRefTagging(t *testing.T) {
	a := alloc.NewSlabAllocator(nil)

	c, err := NewMixedColumn(a, nil)
	if err != nil {
		t.Fatalf("NewMixedColumn: %v", err)
	}

	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := c.SetInt(0, 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	raw := c.refs.Get(0)
	if raw&1 == 0 {
		t.Fatalf("refs[0] = %d, low bit not set", raw)
	}

	if want := int64(7<<1) | 1; raw != want {
		t.Fatalf("refs[0] = %d, want %d", raw, want)
	}

	if got := c.GetInt(0); got != 7 {
		t.Fatalf("GetInt(0) = %d, want 7", got)
	}

	if err := c.SetString(0, "ab"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if raw := c.refs.Get(0); raw&1 == 0 {
		t.Fatalf("string refs[0] = %d, low bit not set", raw)
	}

	if err := c.SetSubtableRef(0, 42); err != nil {
		t.Fatalf("SetSubtableRef: %v", err)
	}

	if raw := c.refs.Get(0); raw&1 != 0 {
		t.Fatalf("subtable refs[0] = %d, must not be tagged (low bit clear)", raw)
	}

	if got := c.GetSubtableRef(0); got != 42 {
		t.Fatalf("GetSubtableRef(0) = %d, want 42", got)
	}
}
