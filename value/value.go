/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package value implements the typed data model carried inside a GOOSE
// allData sequence or an SMV sample: the IEC 61850 Value sum type, the
// IEC 61850-8-1 coded-enum BitString, and the 8-byte Timestamp/Quality
// pair.
package value

import (
	"fmt"

	"github.com/facebookincubator/iec61850/internal/ber"
)

// Kind discriminates the variant a Value holds.
type Kind uint8

// Value kinds, one per entry of the spec's data model.
const (
	KindBoolean Kind = iota
	KindInt
	KindUInt
	KindFloat32
	KindFloat64
	KindVisibleString
	KindMmsString
	KindBitString
	KindOctetString
	KindTimestamp
	KindArray
	KindStructure
)

// Wire tags for Value elements within a GOOSE allData sequence or any other
// constructed Value context, matching the ASN.1 Data CHOICE context tags
// defined in IEC 61850-8-1 Annex A's GOOSE-PDU module.
const (
	TagBoolean       byte = 0x83
	TagBitString     byte = 0x84
	TagInt           byte = 0x85
	TagUInt          byte = 0x86
	TagFloat         byte = 0x87
	TagOctetString   byte = 0x89
	TagVisibleString byte = 0x8A
	TagMmsString     byte = 0x90
	TagUtcTime       byte = 0x91
	TagArray         byte = 0xA1
	TagStructure     byte = 0xA2
)

// MaxNestingDepth bounds recursion through Array/Structure on decode so that
// adversarial input cannot exhaust the stack.
const MaxNestingDepth = 16

// Value is the tagged sum type for everything a GOOSE allData entry or SMV
// sample may carry.
type Value struct {
	Kind     Kind
	Bool     bool
	Int      int64
	UInt     uint64
	F32      float32
	F64      float64
	Str      string
	Bits     BitString
	Octets   []byte
	Time     Timestamp
	Elements []Value
}

// Boolean constructs a Value holding a boolean.
func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// Int constructs a Value holding a signed integer.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// UInt constructs a Value holding an unsigned integer.
func UInt(v uint64) Value { return Value{Kind: KindUInt, UInt: v} }

// Float32 constructs a Value holding a 32-bit float.
func Float32(v float32) Value { return Value{Kind: KindFloat32, F32: v} }

// Float64 constructs a Value holding a 64-bit float.
func Float64(v float64) Value { return Value{Kind: KindFloat64, F64: v} }

// VisibleString constructs a Value holding a VisibleString.
func VisibleString(s string) Value { return Value{Kind: KindVisibleString, Str: s} }

// MmsString constructs a Value holding an MmsString.
func MmsString(s string) Value { return Value{Kind: KindMmsString, Str: s} }

// OctetString constructs a Value holding an octet string.
func OctetString(b []byte) Value { return Value{Kind: KindOctetString, Octets: b} }

// TimestampValue constructs a Value holding a Timestamp.
func TimestampValue(ts Timestamp) Value { return Value{Kind: KindTimestamp, Time: ts} }

// BitStringValue constructs a Value holding a BitString.
func BitStringValue(bs BitString) Value { return Value{Kind: KindBitString, Bits: bs} }

// Array constructs a Value holding an ordered, possibly heterogeneous list.
func Array(elems ...Value) Value { return Value{Kind: KindArray, Elements: elems} }

// Structure constructs a Value holding an ordered, possibly heterogeneous
// structure.
func Structure(elems ...Value) Value { return Value{Kind: KindStructure, Elements: elems} }

// Size returns the exact number of bytes Encode would write for v, computed
// without encoding so enclosing constructed lengths can be written in a
// single pass.
func Size(v Value) int {
	switch v.Kind {
	case KindBoolean:
		return ber.SizeBoolean()
	case KindInt:
		return ber.SizeSignedInt(v.Int)
	case KindUInt:
		return ber.SizeUnsignedInt(v.UInt)
	case KindFloat32:
		return ber.SizeFloat32()
	case KindFloat64:
		return ber.SizeFloat64()
	case KindVisibleString, KindMmsString:
		return ber.SizeString(v.Str)
	case KindOctetString:
		return ber.SizeOctetString(len(v.Octets))
	case KindTimestamp:
		return ber.SizeOctetString(8)
	case KindBitString:
		return ber.SizeBitString(len(v.Bits.Bits))
	case KindArray, KindStructure:
		content := 0
		for _, e := range v.Elements {
			content += Size(e)
		}
		return sizeConstructed(content)
	default:
		return 0
	}
}

func sizeConstructed(contentLen int) int {
	return ber.SizeOctetString(contentLen)
}

// Encode writes v at pos in buf and returns the position following it.
func Encode(buf []byte, pos int, v Value) (int, error) {
	switch v.Kind {
	case KindBoolean:
		return ber.EncodeBoolean(buf, pos, TagBoolean, v.Bool)
	case KindInt:
		return ber.EncodeSignedInt(buf, pos, TagInt, v.Int)
	case KindUInt:
		return ber.EncodeUnsignedInt(buf, pos, TagUInt, v.UInt)
	case KindFloat32:
		return ber.EncodeFloat32(buf, pos, TagFloat, v.F32)
	case KindFloat64:
		return ber.EncodeFloat64(buf, pos, TagFloat, v.F64)
	case KindVisibleString:
		return ber.EncodeString(buf, pos, TagVisibleString, v.Str)
	case KindMmsString:
		return ber.EncodeString(buf, pos, TagMmsString, v.Str)
	case KindOctetString:
		return ber.EncodeOctetString(buf, pos, TagOctetString, v.Octets)
	case KindTimestamp:
		b := v.Time.Bytes()
		return ber.EncodeOctetString(buf, pos, TagUtcTime, b[:])
	case KindBitString:
		return ber.EncodeBitString(buf, pos, TagBitString, v.Bits.Padding, v.Bits.Bits)
	case KindArray:
		return encodeConstructed(buf, pos, TagArray, v.Elements)
	case KindStructure:
		return encodeConstructed(buf, pos, TagStructure, v.Elements)
	default:
		return 0, fmt.Errorf("value: unknown kind %d", v.Kind)
	}
}

func encodeConstructed(buf []byte, pos int, tag byte, elems []Value) (int, error) {
	content := 0
	for _, e := range elems {
		content += Size(e)
	}
	next, err := ber.WriteTagLength(buf, pos, tag, content)
	if err != nil {
		return 0, err
	}
	for _, e := range elems {
		next, err = Encode(buf, next, e)
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

// Decode reads one Value starting at pos, dispatching on the tag byte.
// Array and Structure recurse into their own length-bounded content and are
// limited to MaxNestingDepth levels to defuse adversarial input.
func Decode(buf []byte, pos int) (Value, int, error) {
	return decode(buf, pos, 0)
}

func decode(buf []byte, pos int, depth int) (Value, int, error) {
	tag, err := ber.PeekTag(buf, pos)
	if err != nil {
		return Value{}, 0, err
	}
	switch tag {
	case TagBoolean:
		b, next, err := ber.DecodeBoolean(buf, pos, TagBoolean)
		return Boolean(b), next, err
	case TagInt:
		i, next, err := ber.DecodeSignedInt(buf, pos, TagInt)
		return Int(i), next, err
	case TagUInt:
		u, next, err := ber.DecodeUnsignedInt(buf, pos, TagUInt)
		return UInt(u), next, err
	case TagFloat:
		f, next, err := ber.DecodeFloat(buf, pos, TagFloat)
		if err != nil {
			return Value{}, 0, err
		}
		if f.Is64 {
			return Float64(f.F64), next, nil
		}
		return Float32(f.F32), next, nil
	case TagVisibleString:
		s, next, err := ber.DecodeString(buf, pos, TagVisibleString)
		return VisibleString(s), next, err
	case TagMmsString:
		s, next, err := ber.DecodeString(buf, pos, TagMmsString)
		return MmsString(s), next, err
	case TagOctetString:
		b, next, err := ber.DecodeOctetString(buf, pos, TagOctetString, -1)
		return OctetString(b), next, err
	case TagUtcTime:
		b, next, err := ber.DecodeOctetString(buf, pos, TagUtcTime, 8)
		if err != nil {
			return Value{}, 0, err
		}
		ts, err := ParseTimestamp(b)
		return TimestampValue(ts), next, err
	case TagBitString:
		padding, data, next, err := ber.DecodeBitString(buf, pos, TagBitString)
		return BitStringValue(BitString{Padding: padding, Bits: data}), next, err
	case TagArray:
		elems, next, err := decodeConstructed(buf, pos, TagArray, depth)
		return Array(elems...), next, err
	case TagStructure:
		elems, next, err := decodeConstructed(buf, pos, TagStructure, depth)
		return Structure(elems...), next, err
	default:
		return Value{}, 0, fmt.Errorf("value: unknown value tag 0x%02X at offset %d", tag, pos)
	}
}

func decodeConstructed(buf []byte, pos int, tag byte, depth int) ([]Value, int, error) {
	if depth >= MaxNestingDepth {
		return nil, 0, fmt.Errorf("value: nesting deeper than %d at offset %d: %w", MaxNestingDepth, pos, ber.ErrNestingTooDeep)
	}
	_, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	end := contentPos + length
	var elems []Value
	cur := contentPos
	for cur < end {
		var v Value
		v, cur, err = decode(buf, cur, depth+1)
		if err != nil {
			return nil, 0, err
		}
		elems = append(elems, v)
	}
	if cur != end {
		return nil, 0, fmt.Errorf("value: constructed content misaligned at offset %d", pos)
	}
	return elems, end, nil
}
