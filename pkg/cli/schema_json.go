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
package cli

import (
	"fmt"

	"github.com/colstore/coredb/pkg/column"
	"github.com/colstore/coredb/pkg/store"
)

// columnJSON is the wire shape a --schema file is read from and a
// dump-schema report is printed in: a plain, recursive mirror of
// store.Spec that a human (or a script) can author directly, since
// store.Spec itself exposes no exported fields to marshal.
type columnJSON struct {
	Name   string       `json:"name"`
	Type   string       `json:"type"`
	MaxLen int          `json:"max_len,omitempty"`
	Child  []columnJSON `json:"child,omitempty"`
}

// specToJSON walks s's columns in declaration order into their JSON
// mirror.
func specToJSON(s *store.Spec) []columnJSON {
	out := make([]columnJSON, 0, s.ColumnCount())

	for i := 0; i < s.ColumnCount(); i++ {
		col := columnJSON{
			Name:   s.ColumnName(i),
			Type:   s.ColumnType(i).String(),
			MaxLen: s.ColumnMaxLen(i),
		}

		if child := s.ChildSpec(i); child != nil {
			col.Child = specToJSON(child)
		}

		out = append(out, col)
	}

	return out
}

// specFromJSON is the inverse of specToJSON: it builds a store.Spec from
// its JSON mirror, resolving each column's declared type name.
func specFromJSON(cols []columnJSON) (*store.Spec, error) {
	s := store.NewSpec()

	for _, c := range cols {
		switch c.Type {
		case column.TypeString.String():
			s.AddStringColumn(c.Name, c.MaxLen)
		case column.TypeSubtable.String():
			_, child := s.AddSubtableColumn(c.Name)

			built, err := specFromJSON(c.Child)
			if err != nil {
				return nil, err
			}

			*child = *built
		case column.TypeInt.String():
			s.AddColumn(c.Name, column.TypeInt)
		case column.TypeBool.String():
			s.AddColumn(c.Name, column.TypeBool)
		case column.TypeBinary.String():
			s.AddColumn(c.Name, column.TypeBinary)
		case column.TypeMixed.String():
			s.AddColumn(c.Name, column.TypeMixed)
		default:
			return nil, fmt.Errorf("cli: unknown column type %q for column %q", c.Type, c.Name)
		}
	}

	return s, nil
}
