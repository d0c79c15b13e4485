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

// Source supplies the "before" state a Reverser needs but an instruction
// doesn't itself carry (spec.md §4.4 "a reverser exists that writes its
// inverse into a new changeset"). Implementations read from the live Table
// *before* the forward instruction is applied to it.
type Source interface {
	TablePK(table string) string
	ColumnDef(table, field string) (typ string, nullable bool, collectionKind string)
	LinkTarget(table, field string) string
	Payload(path Path) Payload
	ArrayElement(path Path) Payload
	ArrayElements(path Path) []Payload
}

// Reverser writes the inverse of each instruction it is given, reading
// whatever pre-image data it needs from Src.
type Reverser struct {
	Src Source
}

// NewReverser constructs a Reverser backed by src.
func NewReverser(src Source) *Reverser { return &Reverser{Src: src} }

// Reverse returns instr's inverse(s): almost always exactly one
// instruction, except Clear, whose inverse is "re-insert every element
// that was present", one ArrayInsert per element.
func (rv *Reverser) Reverse(instr Instruction) []Instruction {
	switch v := instr.(type) {
	case *AddTable:
		return []Instruction{&EraseTable{Origin: v.Origin, Name: v.Name}}
	case *EraseTable:
		return []Instruction{&AddTable{Origin: v.Origin, Name: v.Name, PK: rv.Src.TablePK(v.Name)}}
	case *AddColumn:
		return []Instruction{&EraseColumn{Origin: v.Origin, Table: v.Table, Field: v.Field}}
	case *EraseColumn:
		typ, nullable, kind := rv.Src.ColumnDef(v.Table, v.Field)
		return []Instruction{&AddColumn{
			Origin: v.Origin, Table: v.Table, Field: v.Field,
			Type: typ, Nullable: nullable, CollectionKind: kind,
		}}
	case *RenameColumn:
		return []Instruction{&RenameColumn{Origin: v.Origin, Table: v.Table, Field: v.NewName, NewName: v.Field}}
	case *AddSearchIndex:
		return []Instruction{&RemoveSearchIndex{Origin: v.Origin, Table: v.Table, Field: v.Field}}
	case *RemoveSearchIndex:
		return []Instruction{&AddSearchIndex{Origin: v.Origin, Table: v.Table, Field: v.Field}}
	case *SetLinkType:
		return []Instruction{&SetLinkType{
			Origin: v.Origin, Table: v.Table, Field: v.Field,
			Target: rv.Src.LinkTarget(v.Table, v.Field),
		}}
	case *CreateObject:
		return []Instruction{&EraseObject{Origin: v.Origin, Table: v.Table, PK: v.PK}}
	case *EraseObject:
		return []Instruction{&CreateObject{Origin: v.Origin, Table: v.Table, PK: v.PK}}
	case *Update:
		prior := rv.Src.Payload(v.Path)
		return []Instruction{&Update{Origin: v.Origin, Path: v.Path, Payload: prior}}
	case *AddInteger:
		return []Instruction{&AddInteger{Origin: v.Origin, Path: v.Path, Delta: -v.Delta}}
	case *ArrayInsert:
		return []Instruction{&ArrayErase{Origin: v.Origin, Path: v.Path, PriorSize: v.PriorSize + 1}}
	case *ArrayErase:
		prior := rv.Src.ArrayElement(v.Path)
		return []Instruction{&ArrayInsert{
			Origin: v.Origin, Path: v.Path, Payload: prior,
			PriorSize: v.PriorSize - 1,
		}}
	case *ArrayMove:
		reversedPath := v.Path.WithIndex(v.DestIndex)
		return []Instruction{&ArrayMove{
			Origin: v.Origin, Path: reversedPath,
			DestIndex: v.Path.Index(), PriorSize: v.PriorSize,
		}}
	case *Clear:
		elems := rv.Src.ArrayElements(v.Path)
		out := make([]Instruction, len(elems))

		for i, e := range elems {
			// Clear's path names the container itself, so the element
			// index is appended rather than substituted.
			p := v.Path
			p.Elements = append(append([]PathElement(nil), v.Path.Elements...), PathElement{HasIndex: true, Index: uint32(i)})
			out[i] = &ArrayInsert{
				Origin:    v.Origin,
				Path:      p,
				Payload:   e,
				PriorSize: uint32(i),
			}
		}

		return out
	case *SetInsert:
		return []Instruction{&SetErase{Origin: v.Origin, Path: v.Path, Payload: v.Payload}}
	case *SetErase:
		return []Instruction{&SetInsert{Origin: v.Origin, Path: v.Path, Payload: v.Payload}}
	default:
		return nil
	}
}

// ReverseChangeset builds a new Changeset containing the inverse of every
// live instruction in c, applied in reverse instruction order (spec.md
// §4.4 "The reversed log is applied in reverse instruction order to
// achieve rollback"). Select* re-emission is handled automatically: the
// returned Changeset is encoded fresh by Encoder, which lazily re-derives
// whatever selection each inverse instruction's path requires.
func (rv *Reverser) ReverseChangeset(c *Changeset) *Changeset {
	out := New(c.OriginFile, c.Version)

	live := c.Live()
	for i := len(live) - 1; i >= 0; i-- {
		for _, inv := range rv.Reverse(live[i]) {
			out.Append(inv)
		}
	}

	return out
}
