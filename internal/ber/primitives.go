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

package ber

import (
	"math"
	"strings"
)

// EncodeBoolean writes tag, length=1 and a single content byte: 0x00 for
// false, 0xFF for true.
func EncodeBoolean(buf []byte, pos int, tag byte, v bool) (int, error) {
	next, err := WriteTagLength(buf, pos, tag, 1)
	if err != nil {
		return 0, err
	}
	if err := needBytes(buf, next, 1); err != nil {
		return 0, bufferTooSmall(next+1, len(buf))
	}
	if v {
		buf[next] = 0xFF
	} else {
		buf[next] = 0x00
	}
	return next + 1, nil
}

// SizeBoolean is always 3 bytes: tag, length, content.
func SizeBoolean() int { return 3 }

// DecodeBoolean reads a 1-byte boolean: any nonzero content byte is true.
func DecodeBoolean(buf []byte, pos int, wantTag byte) (v bool, next int, err error) {
	tag, length, contentPos, err := ReadTagLength(buf, pos)
	if err != nil {
		return false, 0, err
	}
	if tag != wantTag {
		return false, 0, decodeErr(ErrUnknownTag, pos, "expected tag 0x%02X, got 0x%02X", wantTag, tag)
	}
	if length != 1 {
		return false, 0, decodeErr(ErrLengthMismatch, contentPos, "boolean length must be 1, got %d", length)
	}
	return buf[contentPos] != 0x00, contentPos + 1, nil
}

// EncodeOctetString writes tag, length, and the raw content bytes unchanged.
func EncodeOctetString(buf []byte, pos int, tag byte, content []byte) (int, error) {
	next, err := WriteTagLength(buf, pos, tag, len(content))
	if err != nil {
		return 0, err
	}
	if err := needBytes(buf, next, len(content)); err != nil {
		return 0, bufferTooSmall(next+len(content), len(buf))
	}
	copy(buf[next:], content)
	return next + len(content), nil
}

// SizeOctetString returns the exact encoded size for a given content length.
func SizeOctetString(contentLen int) int {
	return 1 + lengthFieldSize(contentLen) + contentLen
}

// DecodeOctetString reads tag/length/content and returns a copy of the
// content bytes, verifying the tag and, if wantLength >= 0, an exact length.
func DecodeOctetString(buf []byte, pos int, wantTag byte, wantLength int) (content []byte, next int, err error) {
	tag, length, contentPos, err := ReadTagLength(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	if tag != wantTag {
		return nil, 0, decodeErr(ErrUnknownTag, pos, "expected tag 0x%02X, got 0x%02X", wantTag, tag)
	}
	if wantLength >= 0 && length != wantLength {
		return nil, 0, decodeErr(ErrLengthMismatch, contentPos, "expected length %d, got %d", wantLength, length)
	}
	out := make([]byte, length)
	copy(out, buf[contentPos:contentPos+length])
	return out, contentPos + length, nil
}

// EncodeString writes tag, length, and the UTF-8 bytes of s unchanged (the
// wire format for VisibleString and MmsString is identical; the distinction
// is purely at the tag/value-model level).
func EncodeString(buf []byte, pos int, tag byte, s string) (int, error) {
	return EncodeOctetString(buf, pos, tag, []byte(s))
}

// SizeString returns the exact encoded size of s.
func SizeString(s string) int {
	return SizeOctetString(len(s))
}

// DecodeString reads tag/length/content and lossily decodes it as UTF-8,
// replacing any invalid byte sequences rather than failing. No primitive-
// level length limit is imposed beyond the enclosing BER length.
func DecodeString(buf []byte, pos int, wantTag byte) (s string, next int, err error) {
	content, next, err := DecodeOctetString(buf, pos, wantTag, -1)
	if err != nil {
		return "", 0, err
	}
	return strings.ToValidUTF8(string(content), "�"), next, nil
}

// iecFloatDescriptor is the single descriptor byte IEC 61850-7-2 prefixes
// every REAL with: binary base, exponent width 8 bits, format length 1.
const iecFloatDescriptor = 0x08

// EncodeFloat32 writes tag, length=5, the IEC descriptor byte, and the
// big-endian IEEE-754 bytes of v.
func EncodeFloat32(buf []byte, pos int, tag byte, v float32) (int, error) {
	next, err := WriteTagLength(buf, pos, tag, 5)
	if err != nil {
		return 0, err
	}
	if err := needBytes(buf, next, 5); err != nil {
		return 0, bufferTooSmall(next+5, len(buf))
	}
	buf[next] = iecFloatDescriptor
	bits := math.Float32bits(v)
	buf[next+1] = byte(bits >> 24)
	buf[next+2] = byte(bits >> 16)
	buf[next+3] = byte(bits >> 8)
	buf[next+4] = byte(bits)
	return next + 5, nil
}

// SizeFloat32 is always 7 bytes: tag, length, descriptor, 4 content bytes.
func SizeFloat32() int { return 7 }

// EncodeFloat64 writes tag, length=9, the IEC descriptor byte, and the
// big-endian IEEE-754 bytes of v.
func EncodeFloat64(buf []byte, pos int, tag byte, v float64) (int, error) {
	next, err := WriteTagLength(buf, pos, tag, 9)
	if err != nil {
		return 0, err
	}
	if err := needBytes(buf, next, 9); err != nil {
		return 0, bufferTooSmall(next+9, len(buf))
	}
	buf[next] = iecFloatDescriptor
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		buf[next+1+i] = byte(bits >> uint(56-8*i))
	}
	return next + 9, nil
}

// SizeFloat64 is always 11 bytes: tag, length, descriptor, 8 content bytes.
func SizeFloat64() int { return 11 }

// DecodedFloat is either a float32 or a float64 depending on the wire
// content length (5 bytes -> float32, 9 bytes -> float64).
type DecodedFloat struct {
	Is64 bool
	F32  float32
	F64  float64
}

// DecodeFloat reads tag/length/descriptor/content and selects width purely
// by content length, as the spec mandates.
func DecodeFloat(buf []byte, pos int, wantTag byte) (f DecodedFloat, next int, err error) {
	tag, length, contentPos, err := ReadTagLength(buf, pos)
	if err != nil {
		return DecodedFloat{}, 0, err
	}
	if tag != wantTag {
		return DecodedFloat{}, 0, decodeErr(ErrUnknownTag, pos, "expected tag 0x%02X, got 0x%02X", wantTag, tag)
	}
	switch length {
	case 5:
		bits := uint32(buf[contentPos+1])<<24 | uint32(buf[contentPos+2])<<16 | uint32(buf[contentPos+3])<<8 | uint32(buf[contentPos+4])
		return DecodedFloat{F32: math.Float32frombits(bits)}, contentPos + 5, nil
	case 9:
		var bits uint64
		for i := 0; i < 8; i++ {
			bits = bits<<8 | uint64(buf[contentPos+1+i])
		}
		return DecodedFloat{Is64: true, F64: math.Float64frombits(bits)}, contentPos + 9, nil
	default:
		return DecodedFloat{}, 0, decodeErr(ErrUnsupportedFloatWidth, contentPos, "REAL content length %d is neither 5 nor 9", length)
	}
}
