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

// MaxLength is the largest length value this codec will ever encode or
// accept, one below 2**24 per the spec's three-byte long-form cap.
const MaxLength = 1<<24 - 1

// PeekTag returns the tag byte at pos without consuming it.
func PeekTag(buf []byte, pos int) (byte, error) {
	if err := needBytes(buf, pos, 1); err != nil {
		return 0, err
	}
	return buf[pos], nil
}

// ReadTagLength reads a tag byte followed by a BER definite-length field and
// returns the tag, the declared content length, and the position of the
// first content byte.
func ReadTagLength(buf []byte, pos int) (tag byte, length int, contentPos int, err error) {
	if err = needBytes(buf, pos, 1); err != nil {
		return 0, 0, 0, err
	}
	tag = buf[pos]
	length, contentPos, err = DecodeLength(buf, pos+1)
	if err != nil {
		return 0, 0, 0, err
	}
	if err = needBytes(buf, contentPos, length); err != nil {
		return 0, 0, 0, err
	}
	return tag, length, contentPos, nil
}

// WriteTagLength writes tag followed by the BER definite-length encoding of
// length into buf starting at pos, and returns the position of the first
// content byte.
func WriteTagLength(buf []byte, pos int, tag byte, length int) (int, error) {
	need := 1 + lengthFieldSize(length)
	if err := needBytes(buf, pos, need); err != nil {
		return 0, bufferTooSmall(pos+need, len(buf))
	}
	buf[pos] = tag
	return EncodeLength(buf, pos+1, length)
}
