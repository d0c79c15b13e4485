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

import "bytes"

// putUvarint appends v to buf as a big-endian 7-bits-per-byte varint: every
// byte but the last has its high bit set (spec.md §6.2).
func putUvarint(buf *bytes.Buffer, v uint64) {
	var groups []byte

	for {
		groups = append(groups, byte(v&0x7f))
		v >>= 7

		if v == 0 {
			break
		}
	}

	for i := len(groups) - 1; i > 0; i-- {
		buf.WriteByte(groups[i] | 0x80)
	}

	buf.WriteByte(groups[0])
}

// putVarint appends v as a signed varint: same big-endian 7-bit grouping,
// except the final byte holds 6 data bits plus a sign flag in bit 6
// (spec.md §6.2 "bit 6 of the final byte as the sign bit").
func putVarint(buf *bytes.Buffer, v int64) {
	sign := byte(0)

	mag := uint64(v)
	if v < 0 {
		sign = 1
		mag = uint64(-v)
	}

	low6 := byte(mag & 0x3f)
	rest := mag >> 6
	final := (sign << 6) | low6

	if rest == 0 {
		buf.WriteByte(final)
		return
	}

	var groups []byte

	for {
		groups = append(groups, byte(rest&0x7f))
		rest >>= 7

		if rest == 0 {
			break
		}
	}

	for i := len(groups) - 1; i >= 0; i-- {
		buf.WriteByte(groups[i] | 0x80)
	}

	buf.WriteByte(final)
}

// putString appends a length-prefixed string: `len : uvarint, bytes : len`.
func putString(buf *bytes.Buffer, s string) {
	putUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

// putBytes appends a length-prefixed byte slice.
func putBytes(buf *bytes.Buffer, b []byte) {
	putUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

// byteReader is the minimal pull interface the varint/string readers below
// need over an input stream, matching Parser's "pull driver" framing (spec.md
// §4.4).
type byteReader interface {
	ReadByte() (byte, error)
	Next(n int) ([]byte, error)
}

func getUvarint(r byteReader) (uint64, error) {
	var v uint64

	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		v = v<<7 | uint64(b&0x7f)

		if b&0x80 == 0 {
			return v, nil
		}
	}
}

func getVarint(r byteReader) (int64, error) {
	var acc uint64

	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		if b&0x80 == 0 {
			v := int64(acc<<6 | uint64(b&0x3f))
			if b&0x40 != 0 {
				v = -v
			}

			return v, nil
		}

		acc = acc<<7 | uint64(b&0x7f)
	}
}

func getString(r byteReader) (string, error) {
	n, err := getUvarint(r)
	if err != nil {
		return "", err
	}

	b, err := r.Next(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func getBytes(r byteReader) ([]byte, error) {
	n, err := getUvarint(r)
	if err != nil {
		return nil, err
	}

	return r.Next(int(n))
}
