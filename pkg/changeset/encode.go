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

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Encoder serializes a Changeset's instructions into the self-delimiting
// wire format of spec.md §6.2, lazily emitting SelectTable/SelectList
// instructions whenever the current selection doesn't already cover the
// next instruction's path (spec.md §4.4 "An encoder maintains the inverse:
// it tracks the last selection emitted and inserts Select* instructions
// lazily").
type Encoder struct {
	buf bytes.Buffer

	selTable string
	selValid bool

	listTable, listField string
	listObject           int64
	listValid             bool
}

// NewEncoder constructs an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the encoded stream so far.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// EncodeAll encodes every live instruction in c, in order.
func (e *Encoder) EncodeAll(c *Changeset) error {
	for _, instr := range c.Live() {
		if err := e.Encode(instr); err != nil {
			return err
		}
	}

	return nil
}

func (e *Encoder) selectTable(table string) {
	if e.selValid && e.selTable == table {
		return
	}

	e.buf.WriteByte(byte(TagSelectTable))
	putString(&e.buf, table)
	e.selTable, e.selValid = table, true
}

func (e *Encoder) selectList(table, field string, object int64) {
	e.selectTable(table)

	if e.listValid && e.listTable == table && e.listField == field && e.listObject == object {
		return
	}

	e.buf.WriteByte(byte(TagSelectList))
	putString(&e.buf, field)
	putVarint(&e.buf, object)
	e.listTable, e.listField, e.listObject, e.listValid = table, field, object, true
}

// Encode appends instr's wire encoding, emitting whatever Select*
// instruction its path requires first.
func (e *Encoder) Encode(instr Instruction) error {
	switch v := instr.(type) {
	case *AddTable:
		e.buf.WriteByte(byte(TagInsertGroupLevelTable))
		putString(&e.buf, v.Name)
		putString(&e.buf, v.PK)
	case *EraseTable:
		e.buf.WriteByte(byte(TagEraseGroupLevelTable))
		putString(&e.buf, v.Name)
	case *AddColumn:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagInsertColumn))
		putString(&e.buf, v.Field)
		putString(&e.buf, v.Type)
		putBool(&e.buf, v.Nullable)
		putString(&e.buf, v.CollectionKind)
	case *EraseColumn:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagEraseColumn))
		putString(&e.buf, v.Field)
	case *RenameColumn:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagRenameColumn))
		putString(&e.buf, v.Field)
		putString(&e.buf, v.NewName)
	case *AddSearchIndex:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagAddSearchIndex))
		putString(&e.buf, v.Field)
	case *RemoveSearchIndex:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagRemoveSearchIndex))
		putString(&e.buf, v.Field)
	case *SetLinkType:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagSetLinkType))
		putString(&e.buf, v.Field)
		putString(&e.buf, v.Target)
	case *CreateObject:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagCreateObject))
		putVarint(&e.buf, v.PK)
	case *EraseObject:
		e.selectTable(v.Table)
		e.buf.WriteByte(byte(TagEraseObject))
		putVarint(&e.buf, v.PK)
	case *Update:
		e.selectTable(v.Path.Table)
		e.buf.WriteByte(byte(v.Tag()))
		putString(&e.buf, v.Path.Field)
		putVarint(&e.buf, v.Path.Object)
		putPayload(&e.buf, v.Payload)
	case *AddInteger:
		e.selectTable(v.Path.Table)
		e.buf.WriteByte(byte(TagAddInteger))
		putString(&e.buf, v.Path.Field)
		putVarint(&e.buf, v.Path.Object)
		putVarint(&e.buf, v.Delta)
	case *ArrayInsert:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagArrayInsert))
		putUvarint(&e.buf, uint64(v.Path.Index()))
		putUvarint(&e.buf, uint64(v.PriorSize))
		putPayload(&e.buf, v.Payload)
	case *ArrayErase:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagArrayErase))
		putUvarint(&e.buf, uint64(v.Path.Index()))
		putUvarint(&e.buf, uint64(v.PriorSize))
	case *ArrayMove:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagArrayMove))
		putUvarint(&e.buf, uint64(v.Path.Index()))
		putUvarint(&e.buf, uint64(v.DestIndex))
		putUvarint(&e.buf, uint64(v.PriorSize))
	case *Clear:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagClear))
	case *SetInsert:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagSetInsert))
		putPayload(&e.buf, v.Payload)
	case *SetErase:
		e.selectList(v.Path.Table, v.Path.Field, v.Path.Object)
		e.buf.WriteByte(byte(TagSetErase))
		putPayload(&e.buf, v.Payload)
	default:
		return fmt.Errorf("changeset: encode: unknown instruction type %T", instr)
	}

	return nil
}

func putBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
		return
	}

	buf.WriteByte(0)
}

func putPayload(buf *bytes.Buffer, p Payload) {
	buf.WriteByte(byte(p.Type))

	switch p.Type {
	case PayloadNull, PayloadErased, PayloadDictionary, PayloadObjectValue:
	case PayloadInt:
		putVarint(buf, p.Int)
	case PayloadBool:
		putBool(buf, p.Bool)
	case PayloadFloat:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(p.Float))
		buf.Write(tmp[:])
	case PayloadDouble:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(p.Double))
		buf.Write(tmp[:])
	case PayloadDecimal:
		putFieldElement(buf, p.Decimal)
	case PayloadObjectID:
		putFieldElement(buf, p.ObjectID)
	case PayloadUUID:
		putFieldElement(buf, p.UUID)
	case PayloadTimestamp:
		putVarint(buf, p.Timestamp)
	case PayloadString:
		putString(buf, p.String)
	case PayloadBinary:
		putBytes(buf, p.Binary)
	case PayloadLink:
		putString(buf, p.LinkTable)
		putVarint(buf, p.LinkPK)
	}
}

func putFieldElement(buf *bytes.Buffer, e fr.Element) {
	raw := e.Bytes()
	buf.Write(raw[:])
}
