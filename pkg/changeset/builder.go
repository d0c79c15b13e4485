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

// Builder is the Handler every caller not driving a custom observer uses:
// it just appends each decoded instruction, unmodified, to Instructions.
// Used by Decode to reconstruct a Changeset from an encoded stream.
type Builder struct {
	Instructions []Instruction
}

func (b *Builder) AddTable(i *AddTable) bool                   { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) EraseTable(i *EraseTable) bool                { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) AddColumn(i *AddColumn) bool                  { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) EraseColumn(i *EraseColumn) bool              { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) RenameColumn(i *RenameColumn) bool            { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) AddSearchIndex(i *AddSearchIndex) bool        { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) RemoveSearchIndex(i *RemoveSearchIndex) bool  { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) SetLinkType(i *SetLinkType) bool              { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) CreateObject(i *CreateObject) bool            { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) EraseObject(i *EraseObject) bool              { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) Update(i *Update) bool                        { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) AddInteger(i *AddInteger) bool                { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) ArrayInsert(i *ArrayInsert) bool              { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) ArrayErase(i *ArrayErase) bool                { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) ArrayMove(i *ArrayMove) bool                  { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) Clear(i *Clear) bool                          { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) SetInsert(i *SetInsert) bool                  { b.Instructions = append(b.Instructions, i); return true }
func (b *Builder) SetErase(i *SetErase) bool                    { b.Instructions = append(b.Instructions, i); return true }

// Decode parses buf and returns the reconstructed instruction slice.
func Decode(buf []byte) ([]Instruction, error) {
	var b Builder

	if err := NewParser(buf).Parse(&b); err != nil {
		return nil, err
	}

	return b.Instructions, nil
}
