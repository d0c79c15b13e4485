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
	"github.com/colstore/coredb/pkg/alloc"
	"github.com/colstore/coredb/pkg/array"
	"github.com/colstore/coredb/pkg/column"
	"github.com/sirupsen/logrus"
)

// newColumnWrapper packages a column's one-or-more refs (IntegerColumn: 1,
// StringColumn/BinaryColumn: 2, EnumStringColumn/MixedColumn: 3, ...) behind
// a single owning ref, so that Table's columns-array can hold exactly one
// slot per spec column regardless of how many node arrays back it (spec.md
// §3.3 "enum-string columns occupy two adjacent slots in the columns-array
// but one slot in the spec" generalized to every column kind). The wrapper
// owns its children: destroying it destroys the column's storage.
func newColumnWrapper(refs []alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*array.Array, error) {
	w, err := array.New(array.HasRefs, a, log)
	if err != nil {
		return nil, err
	}

	for range refs {
		if err := w.Add(0); err != nil {
			return nil, err
		}
	}

	for i, ref := range refs {
		if err := w.SetChildRef(i, ref); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func attachColumnWrapper(ref alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (*array.Array, error) {
	return array.Attach(ref, a, log)
}

func wrapperRefs(w *array.Array) []alloc.Ref {
	out := make([]alloc.Ref, w.Len())
	for i := range out {
		out[i] = w.GetChildRef(i)
	}

	return out
}

// newColumn constructs an empty column.Column for def.
func newColumn(def ColumnDef, a alloc.Allocator, log logrus.FieldLogger) (column.Column, error) {
	switch def.Type {
	case column.TypeInt, column.TypeBool:
		return column.NewIntegerColumn(a, log)
	case column.TypeString:
		return column.NewStringColumn(a, def.MaxLen, log)
	case column.TypeBinary:
		return column.NewBinaryColumn(a, log)
	case column.TypeSubtable:
		return column.NewSubtableColumn(a, log)
	case column.TypeMixed:
		return column.NewMixedColumn(a, log)
	default:
		return nil, errUnknownColumnType
	}
}

// attachColumn reconstructs a column.Column from its wrapper's flattened
// refs. A TypeString wrapper of length 3 indicates the column was promoted
// to an EnumStringColumn by AutoEnumerate (spec.md §4.2 "Enum compression");
// length 2 is a plain StringColumn.
func attachColumn(def ColumnDef, refs []alloc.Ref, a alloc.Allocator, log logrus.FieldLogger) (column.Column, error) {
	switch def.Type {
	case column.TypeInt, column.TypeBool:
		return column.AttachIntegerColumn(refs[0], a, log)
	case column.TypeString:
		if len(refs) == 3 {
			return column.AttachEnumStringColumn(refs[0], refs[1], refs[2], def.MaxLen, a, log)
		}

		return column.AttachStringColumn(refs[0], refs[1], def.MaxLen, a, log)
	case column.TypeBinary:
		return column.AttachBinaryColumn(refs[0], refs[1], a, log)
	case column.TypeSubtable:
		return column.AttachSubtableColumn(refs[0], a, log)
	case column.TypeMixed:
		return column.AttachMixedColumn(refs[0], refs[1], refs[2], a, log)
	default:
		return nil, errUnknownColumnType
	}
}
