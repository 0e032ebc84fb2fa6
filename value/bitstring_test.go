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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitStringReversedIsUnderlyingBits(t *testing.T) {
	b := BitString{Padding: 0, Bits: []byte{0x11, 0x55}}
	require.Equal(t, []byte{0x11, 0x55}, b.Reversed())
}

func TestBitStringRaw16ReconstructsWireBytes(t *testing.T) {
	// Wire bytes 0xAA, 0x88 are stored in-memory, byte- and bit-reversed,
	// as 0x11, 0x55.
	b := BitString{Padding: 0, Bits: []byte{0x11, 0x55}}
	require.Equal(t, uint16(0xAA88), b.Raw16())
}

func TestBitStringRaw16SingleByte(t *testing.T) {
	b := BitString{Padding: 4, Bits: []byte{0x0F}}
	require.Equal(t, uint16(0xF0), b.Raw16())
}
