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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLengthRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 126, 127, 128, 129, 255, 256, 257, 65535, 65536, 65537, MaxLength}
	for _, n := range lengths {
		buf := make([]byte, 8)
		next, err := EncodeLength(buf, 0, n)
		require.NoErrorf(t, err, "length=%d", n)
		got, after, err := DecodeLength(buf, 0)
		require.NoErrorf(t, err, "length=%d", n)
		require.Equal(t, n, got)
		require.Equal(t, next, after)
	}
}

func TestLengthBoundaryForms(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{127, []byte{0x7F}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xFF}},
		{256, []byte{0x82, 0x01, 0x00}},
		{65535, []byte{0x82, 0xFF, 0xFF}},
		{65536, []byte{0x83, 0x01, 0x00, 0x00}},
	}
	for _, tt := range tests {
		buf := make([]byte, 8)
		next, err := EncodeLength(buf, 0, tt.n)
		require.NoError(t, err)
		require.Equal(t, tt.want, buf[:next])
	}
}

func TestEncodeLengthOverflow(t *testing.T) {
	buf := make([]byte, 8)
	_, err := EncodeLength(buf, 0, 1<<24)
	require.Error(t, err)
}

func TestDecodeLengthInvalidForms(t *testing.T) {
	// indefinite-length form 0x80
	_, _, err := DecodeLength([]byte{0x80}, 0)
	require.Error(t, err)
	// four-octet long form (> 3 length octets) is rejected
	_, _, err = DecodeLength([]byte{0x84, 0, 0, 0, 1}, 0)
	require.Error(t, err)
}

func TestDecodeLengthTruncated(t *testing.T) {
	_, _, err := DecodeLength([]byte{0x82, 0x01}, 0)
	require.Error(t, err)
}
