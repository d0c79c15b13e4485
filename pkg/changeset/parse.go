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
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// BadTransactLogError is raised when a parse encounters a malformed byte
// stream or a handler rejects an instruction (spec.md §4.4 "On parse error
// the parser raises BadTransactLog").
type BadTransactLogError struct {
	Offset int
	Reason string
}

func (e *BadTransactLogError) Error() string {
	return fmt.Sprintf("changeset: bad transact log at offset %d: %s", e.Offset, e.Reason)
}

// sliceReader implements byteReader over an in-memory buffer. A real
// "chunked input stream" parser would refill from an io.Reader as Next
// calls outrun the buffer; since the merge engine only ever parses
// complete, already-received changesets, coredb reads from one fully
// buffered slice (noted as a simplification, not a literal chunked-refill
// stream).
type sliceReader struct {
	buf []byte
	pos int
}

func (r *sliceReader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}

	b := r.buf[r.pos]
	r.pos++

	return b, nil
}

func (r *sliceReader) Next(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}

	b := r.buf[r.pos : r.pos+n]
	r.pos += n

	return b, nil
}

// Parser drives a Handler over an encoded instruction stream, tracking the
// decoder-side SelectTable/SelectList selection (spec.md §4.4).
type Parser struct {
	r *sliceReader

	selTable string
	selValid bool

	listTable, listField string
	listObject            int64
	listValid              bool
}

// NewParser constructs a Parser over buf.
func NewParser(buf []byte) *Parser {
	return &Parser{r: &sliceReader{buf: buf}}
}

// Parse drives h over the whole stream, returning *BadTransactLogError on
// any malformed input or handler rejection.
func (p *Parser) Parse(h Handler) error {
	for p.r.pos < len(p.r.buf) {
		if err := p.parseOne(h); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) fail(reason string) error {
	return &BadTransactLogError{Offset: p.r.pos, Reason: reason}
}

func (p *Parser) parseOne(h Handler) error {
	tagByte, err := p.r.ReadByte()
	if err != nil {
		return p.fail(err.Error())
	}

	tag := Tag(tagByte)

	switch tag {
	case TagSelectTable:
		table, err := getString(p.r)
		if err != nil {
			return p.fail(err.Error())
		}

		p.selTable, p.selValid = table, true

		return nil
	case TagSelectList:
		field, err := getString(p.r)
		if err != nil {
			return p.fail(err.Error())
		}

		object, err := getVarint(p.r)
		if err != nil {
			return p.fail(err.Error())
		}

		if !p.selValid {
			return p.fail("select_list without a prior select_table")
		}

		p.listTable, p.listField, p.listObject, p.listValid = p.selTable, field, object, true

		return nil
	}

	// Group-level table instructions name their table themselves; the
	// encoder never emits a SelectTable before them.
	if !p.selValid && tag != TagInsertGroupLevelTable && tag != TagEraseGroupLevelTable {
		return p.fail("instruction before any select_table")
	}

	ok, err := p.dispatch(tag, h)
	if err != nil {
		return err
	}

	if !ok {
		return p.fail(fmt.Sprintf("handler rejected instruction tag %d", tag))
	}

	return nil
}

func (p *Parser) dispatch(tag Tag, h Handler) (bool, error) {
	table := p.selTable

	switch tag {
	case TagInsertGroupLevelTable:
		name, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		pk, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.AddTable(&AddTable{Name: name, PK: pk}), nil
	case TagEraseGroupLevelTable:
		name, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.EraseTable(&EraseTable{Name: name}), nil
	case TagInsertColumn:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		typ, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		nullable, err := getBool(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		kind, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.AddColumn(&AddColumn{Table: table, Field: field, Type: typ, Nullable: nullable, CollectionKind: kind}), nil
	case TagEraseColumn:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.EraseColumn(&EraseColumn{Table: table, Field: field}), nil
	case TagRenameColumn:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		newName, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.RenameColumn(&RenameColumn{Table: table, Field: field, NewName: newName}), nil
	case TagAddSearchIndex:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.AddSearchIndex(&AddSearchIndex{Table: table, Field: field}), nil
	case TagRemoveSearchIndex:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.RemoveSearchIndex(&RemoveSearchIndex{Table: table, Field: field}), nil
	case TagSetLinkType:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		target, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.SetLinkType(&SetLinkType{Table: table, Field: field, Target: target}), nil
	case TagCreateObject:
		pk, err := getVarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.CreateObject(&CreateObject{Table: table, PK: pk}), nil
	case TagEraseObject:
		pk, err := getVarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.EraseObject(&EraseObject{Table: table, PK: pk}), nil
	case TagSet, TagSetUnique, TagSetDefault:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		object, err := getVarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		payload, err := getPayload(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.Update(&Update{
			Path:      Path{Table: table, Field: field, Object: object},
			IsDefault: tag == TagSetDefault,
			Unique:    tag == TagSetUnique,
			Payload:   payload,
		}), nil
	case TagAddInteger:
		field, err := getString(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		object, err := getVarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		delta, err := getVarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.AddInteger(&AddInteger{Path: Path{Table: table, Field: field, Object: object}, Delta: delta}), nil
	}

	if !p.listValid || p.listTable != table {
		return false, p.fail("list/set instruction without a matching select_list")
	}

	return p.dispatchList(tag, h)
}

func (p *Parser) dispatchList(tag Tag, h Handler) (bool, error) {
	base := Path{Table: p.listTable, Field: p.listField, Object: p.listObject}

	switch tag {
	case TagArrayInsert:
		index, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		priorSize, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		payload, err := getPayload(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		path := base
		path.Elements = []PathElement{{HasIndex: true, Index: uint32(index)}}

		return h.ArrayInsert(&ArrayInsert{Path: path, PriorSize: uint32(priorSize), Payload: payload}), nil
	case TagArrayErase:
		index, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		priorSize, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		path := base
		path.Elements = []PathElement{{HasIndex: true, Index: uint32(index)}}

		return h.ArrayErase(&ArrayErase{Path: path, PriorSize: uint32(priorSize)}), nil
	case TagArrayMove:
		index, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		dest, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		priorSize, err := getUvarint(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		path := base
		path.Elements = []PathElement{{HasIndex: true, Index: uint32(index)}}

		return h.ArrayMove(&ArrayMove{Path: path, DestIndex: uint32(dest), PriorSize: uint32(priorSize)}), nil
	case TagClear:
		return h.Clear(&Clear{Path: base}), nil
	case TagSetInsert:
		payload, err := getPayload(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.SetInsert(&SetInsert{Path: base, Payload: payload}), nil
	case TagSetErase:
		payload, err := getPayload(p.r)
		if err != nil {
			return false, p.fail(err.Error())
		}

		return h.SetErase(&SetErase{Path: base, Payload: payload}), nil
	default:
		return false, p.fail(fmt.Sprintf("unknown instruction tag %d", tag))
	}
}

func getBool(r byteReader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}

	return b != 0, nil
}

func getPayload(r byteReader) (Payload, error) {
	tb, err := r.ReadByte()
	if err != nil {
		return Payload{}, err
	}

	typ := PayloadType(tb)

	switch typ {
	case PayloadNull, PayloadErased, PayloadDictionary, PayloadObjectValue:
		return Payload{Type: typ}, nil
	case PayloadInt:
		v, err := getVarint(r)
		return Payload{Type: typ, Int: v}, err
	case PayloadBool:
		v, err := getBool(r)
		return Payload{Type: typ, Bool: v}, err
	case PayloadFloat:
		raw, err := r.Next(4)
		if err != nil {
			return Payload{}, err
		}

		return Payload{Type: typ, Float: math.Float32frombits(binary.LittleEndian.Uint32(raw))}, nil
	case PayloadDouble:
		raw, err := r.Next(8)
		if err != nil {
			return Payload{}, err
		}

		return Payload{Type: typ, Double: math.Float64frombits(binary.LittleEndian.Uint64(raw))}, nil
	case PayloadDecimal, PayloadObjectID, PayloadUUID:
		e, err := getFieldElement(r)
		if err != nil {
			return Payload{}, err
		}

		p := Payload{Type: typ}

		switch typ {
		case PayloadDecimal:
			p.Decimal = e
		case PayloadObjectID:
			p.ObjectID = e
		case PayloadUUID:
			p.UUID = e
		}

		return p, nil
	case PayloadTimestamp:
		v, err := getVarint(r)
		return Payload{Type: typ, Timestamp: v}, err
	case PayloadString:
		v, err := getString(r)
		return Payload{Type: typ, String: v}, err
	case PayloadBinary:
		v, err := getBytes(r)
		return Payload{Type: typ, Binary: v}, err
	case PayloadLink:
		table, err := getString(r)
		if err != nil {
			return Payload{}, err
		}

		pk, err := getVarint(r)
		if err != nil {
			return Payload{}, err
		}

		return Payload{Type: typ, LinkTable: table, LinkPK: pk}, nil
	default:
		return Payload{}, fmt.Errorf("changeset: unknown payload type %d", typ)
	}
}

func getFieldElement(r byteReader) (fr.Element, error) {
	raw, err := r.Next(fr.Bytes)
	if err != nil {
		return fr.Element{}, err
	}

	var e fr.Element

	e.SetBytes(raw)

	return e, nil
}
