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

package value

import "github.com/facebookincubator/iec61850/internal/ber"

// BitString is an IEC 61850-8-1 coded-enum BIT STRING: padding is the
// number of unused trailing bits (0..7) and Bits holds the content bytes in
// the codec's in-memory representation, i.e. already byte- and bit-reversed
// relative to the wire bytes. Some interop partners expect the plain,
// non-reversed ASN.1 BIT STRING interpretation instead; both views are
// available via Reversed and Raw16.
type BitString struct {
	Padding byte
	Bits    []byte
}

// Reversed returns the in-memory coded-enum representation this codec
// decodes to and encodes from, i.e. b.Bits itself.
func (b BitString) Reversed() []byte {
	return b.Bits
}

// Raw16 reconstructs the non-reversed wire bytes and interprets them as a
// plain big-endian unsigned integer, the representation some interop
// partners expect a standard ASN.1 BIT STRING to carry. It is only
// meaningful for bit strings of at most 2 content bytes (e.g. the
// 13-bit Quality encoding); longer bit strings truncate to their low 16
// bits.
func (b BitString) Raw16() uint16 {
	wire := ber.ReverseIECBitString(b.Bits)
	var v uint16
	for _, by := range wire {
		v = v<<8 | uint16(by)
	}
	return v
}
