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

import "encoding/binary"

// CompressSigned returns the minimal two's-complement big-endian encoding
// of v: the shortest byte string from which v can be recovered by sign
// extension. It never returns a form with a redundant leading 0x00
// (followed by a byte whose MSB is clear) or 0xFF (followed by a byte whose
// MSB is set).
func CompressSigned(v int64) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(v))
	i := 0
	for i < 7 {
		if full[i] == 0x00 && full[i+1]&0x80 == 0 {
			i++
			continue
		}
		if full[i] == 0xFF && full[i+1]&0x80 == 0x80 {
			i++
			continue
		}
		break
	}
	return full[i:]
}

// DecompressSigned sign-extends a minimal two's-complement byte string back
// into an int64. Width must be 1..8 bytes.
func DecompressSigned(b []byte) (int64, error) {
	if len(b) == 0 || len(b) > 8 {
		return 0, decodeErr(ErrUnsupportedIntWidth, 0, "signed integer width %d out of range", len(b))
	}
	var v int64
	if b[0]&0x80 != 0 {
		v = -1
	}
	for _, by := range b {
		v = v<<8 | int64(by)
	}
	return v, nil
}

// CompressUnsigned returns the minimal unsigned big-endian encoding of v:
// leading 0x00 bytes are stripped, then a single 0x00 is prepended if the
// remaining MSB would otherwise be interpreted as a sign bit by BER.
func CompressUnsigned(v uint64) []byte {
	var full [8]byte
	binary.BigEndian.PutUint64(full[:], v)
	i := 0
	for i < 7 && full[i] == 0x00 {
		i++
	}
	b := full[i:]
	if b[0]&0x80 != 0 {
		return append([]byte{0x00}, b...)
	}
	return b
}

// DecompressUnsigned reconstructs a uint64 from its minimal unsigned BER
// encoding. A 5-byte form is only valid when the leading byte is 0x00.
func DecompressUnsigned(b []byte) (uint64, error) {
	if len(b) == 0 || len(b) > 5 {
		return 0, decodeErr(ErrUnsupportedIntWidth, 0, "unsigned integer width %d out of range", len(b))
	}
	if len(b) == 5 && b[0] != 0x00 {
		return 0, decodeErr(ErrUnsupportedIntWidth, 0, "5-byte unsigned integer must have a leading 0x00")
	}
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v, nil
}

// EncodeSignedInt writes tag, length, and the minimal two's-complement
// encoding of v.
func EncodeSignedInt(buf []byte, pos int, tag byte, v int64) (int, error) {
	content := CompressSigned(v)
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

// SizeSignedInt returns the exact number of bytes EncodeSignedInt would
// write for v.
func SizeSignedInt(v int64) int {
	return 1 + lengthFieldSize(len(CompressSigned(v))) + len(CompressSigned(v))
}

// DecodeSignedInt reads a tag/length/content signed integer at pos,
// verifying the tag matches wantTag.
func DecodeSignedInt(buf []byte, pos int, wantTag byte) (v int64, next int, err error) {
	tag, length, contentPos, err := ReadTagLength(buf, pos)
	if err != nil {
		return 0, 0, err
	}
	if tag != wantTag {
		return 0, 0, decodeErr(ErrUnknownTag, pos, "expected tag 0x%02X, got 0x%02X", wantTag, tag)
	}
	if length < 1 || length > 8 {
		return 0, 0, decodeErr(ErrUnsupportedIntWidth, contentPos, "signed integer length %d out of range", length)
	}
	v, err = DecompressSigned(buf[contentPos : contentPos+length])
	if err != nil {
		return 0, 0, err
	}
	return v, contentPos + length, nil
}

// EncodeUnsignedInt writes tag, length, and the minimal unsigned encoding of v.
func EncodeUnsignedInt(buf []byte, pos int, tag byte, v uint64) (int, error) {
	content := CompressUnsigned(v)
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

// SizeUnsignedInt returns the exact number of bytes EncodeUnsignedInt would
// write for v.
func SizeUnsignedInt(v uint64) int {
	c := CompressUnsigned(v)
	return 1 + lengthFieldSize(len(c)) + len(c)
}

// DecodeUnsignedInt reads a tag/length/content unsigned integer at pos,
// verifying the tag matches wantTag.
func DecodeUnsignedInt(buf []byte, pos int, wantTag byte) (v uint64, next int, err error) {
	tag, length, contentPos, err := ReadTagLength(buf, pos)
	if err != nil {
		return 0, 0, err
	}
	if tag != wantTag {
		return 0, 0, decodeErr(ErrUnknownTag, pos, "expected tag 0x%02X, got 0x%02X", wantTag, tag)
	}
	if length < 1 || length > 4 {
		if !(length == 5 && buf[contentPos] == 0x00) {
			return 0, 0, decodeErr(ErrUnsupportedIntWidth, contentPos, "unsigned integer length %d out of range", length)
		}
	}
	v, err = DecompressUnsigned(buf[contentPos : contentPos+length])
	if err != nil {
		return 0, 0, err
	}
	return v, contentPos + length, nil
}
