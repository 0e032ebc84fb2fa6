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

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	buf := make([]byte, 4096)
	next, err := Encode(buf, 0, v)
	require.NoError(t, err)
	require.Equal(t, Size(v), next)
	got, after, err := Decode(buf, 0)
	require.NoError(t, err)
	require.Equal(t, next, after)
	return got
}

func TestValueRoundTripScalars(t *testing.T) {
	tests := []Value{
		Boolean(true),
		Boolean(false),
		Int(0),
		Int(-1),
		Int(127),
		Int(-128),
		Int(2147483647),
		Int(2147483648),
		Int(-2147483649),
		UInt(0),
		UInt(127),
		UInt(128),
		UInt(255),
		UInt(256),
		Float32(3.14),
		Float64(2.71828),
		VisibleString("test"),
		MmsString("mms-string"),
		OctetString([]byte{0x01, 0x02, 0x03}),
	}
	for _, v := range tests {
		got := roundTrip(t, v)
		require.Equal(t, v, got)
	}
}

func TestValueRoundTripEmptyArrayAndStructure(t *testing.T) {
	got := roundTrip(t, Array())
	require.Equal(t, KindArray, got.Kind)
	require.Empty(t, got.Elements)

	got = roundTrip(t, Structure())
	require.Equal(t, KindStructure, got.Kind)
	require.Empty(t, got.Elements)
}

func TestValueRoundTripNestedStructure(t *testing.T) {
	v := Structure(
		Boolean(true),
		Int(2147483647),
		Int(-2147483648),
		VisibleString("test"),
		Array(Int(1), Int(2), Int(3)),
	)
	got := roundTrip(t, v)
	require.Equal(t, v, got)
}

func TestValueRoundTripBitString(t *testing.T) {
	v := BitStringValue(BitString{Padding: 2, Bits: []byte{0x11, 0x55}})
	got := roundTrip(t, v)
	require.Equal(t, v, got)
}

func TestValueRoundTripTimestamp(t *testing.T) {
	ts := Timestamp{Seconds: 539035154, Fraction: 667648, Quality: TimeQuality{TimeAccuracy: 24}}
	v := TimestampValue(ts)
	got := roundTrip(t, v)
	require.Equal(t, v, got)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, _, err := Decode([]byte{0xFE, 0x00}, 0)
	require.Error(t, err)
}

func TestDecodeNestingTooDeep(t *testing.T) {
	buf := make([]byte, 256)
	v := Int(1)
	for i := 0; i < MaxNestingDepth+1; i++ {
		v = Array(v)
	}
	_, err := Encode(buf, 0, v)
	require.NoError(t, err)
	_, _, err = Decode(buf, 0)
	require.Error(t, err)
}

func TestSizeMatchesEncodedLength(t *testing.T) {
	values := []Value{
		Boolean(true),
		Int(123456789),
		UInt(4294967295 >> 1),
		Float32(1.5),
		Float64(1.5),
		VisibleString("IED1/LLN0$GO$gcb1"),
		OctetString([]byte{1, 2, 3, 4, 5}),
		Structure(Boolean(true), Int(1), VisibleString("x")),
	}
	for _, v := range values {
		buf := make([]byte, 4096)
		next, err := Encode(buf, 0, v)
		require.NoError(t, err)
		require.Equal(t, Size(v), next)
	}
}
