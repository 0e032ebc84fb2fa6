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

// Package goose implements the IEC 61850-8-1 GOOSE APDU codec: the outer
// tag-0x61 sequence of 11 context-tagged scalar fields followed by the
// tag-0xAB allData sequence.
package goose

import (
	"fmt"

	"github.com/facebookincubator/iec61850/internal/ber"
	"github.com/facebookincubator/iec61850/value"
)

// Context tags for the GOOSE APDU body, per the GOOSE-PDU ASN.1 module in
// IEC 61850-8-1 Annex A.
const (
	TagPDU               byte = 0x61
	tagGoCbRef           byte = 0x80
	tagTimeAllowedToLive byte = 0x81
	tagDatSet            byte = 0x82
	tagGoID              byte = 0x83
	tagT                 byte = 0x84
	tagStNum             byte = 0x85
	tagSqNum             byte = 0x86
	tagSimulation        byte = 0x87
	tagConfRev           byte = 0x88
	tagNdsCom            byte = 0x89
	tagNumDatSetEntries  byte = 0x8A
	tagAllData           byte = 0xAB
)

// Pdu is a fully decoded GOOSE application protocol data unit.
type Pdu struct {
	GoCbRef           string
	TimeAllowedToLive uint64
	DatSet            string
	GoID              string
	T                 value.Timestamp
	StNum             uint64
	SqNum             uint64
	Simulation        bool
	ConfRev           uint64
	NdsCom            bool
	NumDatSetEntries  uint64
	AllData           []value.Value
}

// bodySize returns the encoded size of the 11 scalar fields plus the
// allData sequence, not counting the outer tag/length.
func bodySize(p Pdu) int {
	n := ber.SizeString(p.GoCbRef)
	n += ber.SizeUnsignedInt(p.TimeAllowedToLive)
	n += ber.SizeString(p.DatSet)
	n += ber.SizeString(p.GoID)
	n += ber.SizeOctetString(8)
	n += ber.SizeUnsignedInt(p.StNum)
	n += ber.SizeUnsignedInt(p.SqNum)
	n += ber.SizeBoolean()
	n += ber.SizeUnsignedInt(p.ConfRev)
	n += ber.SizeBoolean()
	n += ber.SizeUnsignedInt(p.NumDatSetEntries)
	n += allDataSize(p.AllData)
	return n
}

func allDataSize(elems []value.Value) int {
	content := 0
	for _, e := range elems {
		content += value.Size(e)
	}
	return ber.SizeOctetString(content)
}

// Size returns the exact number of bytes Encode would write for p.
func Size(p Pdu) int {
	body := bodySize(p)
	return ber.SizeOctetString(body)
}

// Encode writes p at buf[pos] (outer tag 0x61 included) and returns the
// position following it. NumDatSetEntries is always (re)derived from
// len(p.AllData), never trusted from the caller.
func Encode(buf []byte, pos int, p Pdu) (int, error) {
	p.NumDatSetEntries = uint64(len(p.AllData))
	body := bodySize(p)
	next, err := ber.WriteTagLength(buf, pos, TagPDU, body)
	if err != nil {
		return 0, err
	}

	next, err = ber.EncodeString(buf, next, tagGoCbRef, p.GoCbRef)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagTimeAllowedToLive, p.TimeAllowedToLive)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeString(buf, next, tagDatSet, p.DatSet)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeString(buf, next, tagGoID, p.GoID)
	if err != nil {
		return 0, err
	}
	tbytes := p.T.Bytes()
	next, err = ber.EncodeOctetString(buf, next, tagT, tbytes[:])
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagStNum, p.StNum)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagSqNum, p.SqNum)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeBoolean(buf, next, tagSimulation, p.Simulation)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagConfRev, p.ConfRev)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeBoolean(buf, next, tagNdsCom, p.NdsCom)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagNumDatSetEntries, p.NumDatSetEntries)
	if err != nil {
		return 0, err
	}
	next, err = encodeAllData(buf, next, p.AllData)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func encodeAllData(buf []byte, pos int, elems []value.Value) (int, error) {
	content := 0
	for _, e := range elems {
		content += value.Size(e)
	}
	next, err := ber.WriteTagLength(buf, pos, tagAllData, content)
	if err != nil {
		return 0, err
	}
	for _, e := range elems {
		next, err = value.Encode(buf, next, e)
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

// Decode reads one GOOSE PDU starting at buf[pos]. Extra trailing bytes
// within the outer length are tolerated (future-extension fields); decoding
// never reads past the outer length.
func Decode(buf []byte, pos int) (Pdu, int, error) {
	tag, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return Pdu{}, 0, err
	}
	if tag != TagPDU {
		return Pdu{}, 0, fmt.Errorf("goose: expected tag 0x%02X, got 0x%02X at offset %d", TagPDU, tag, pos)
	}
	end := contentPos + length

	var p Pdu
	cur := contentPos

	cur, err = expectTag(buf, cur, end, tagGoCbRef)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.GoCbRef, cur, err = ber.DecodeString(buf, cur, tagGoCbRef)
	if err != nil {
		return Pdu{}, 0, err
	}
	if p.GoCbRef == "" {
		return Pdu{}, 0, fmt.Errorf("goose: goCbRef must not be empty at offset %d", contentPos)
	}

	cur, err = expectTag(buf, cur, end, tagTimeAllowedToLive)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.TimeAllowedToLive, cur, err = ber.DecodeUnsignedInt(buf, cur, tagTimeAllowedToLive)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagDatSet)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.DatSet, cur, err = ber.DecodeString(buf, cur, tagDatSet)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagGoID)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.GoID, cur, err = ber.DecodeString(buf, cur, tagGoID)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagT)
	if err != nil {
		return Pdu{}, 0, err
	}
	tb, tnext, err := ber.DecodeOctetString(buf, cur, tagT, 8)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.T, err = value.ParseTimestamp(tb)
	if err != nil {
		return Pdu{}, 0, err
	}
	cur = tnext

	cur, err = expectTag(buf, cur, end, tagStNum)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.StNum, cur, err = ber.DecodeUnsignedInt(buf, cur, tagStNum)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagSqNum)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.SqNum, cur, err = ber.DecodeUnsignedInt(buf, cur, tagSqNum)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagSimulation)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.Simulation, cur, err = ber.DecodeBoolean(buf, cur, tagSimulation)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagConfRev)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.ConfRev, cur, err = ber.DecodeUnsignedInt(buf, cur, tagConfRev)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagNdsCom)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.NdsCom, cur, err = ber.DecodeBoolean(buf, cur, tagNdsCom)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagNumDatSetEntries)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.NumDatSetEntries, cur, err = ber.DecodeUnsignedInt(buf, cur, tagNumDatSetEntries)
	if err != nil {
		return Pdu{}, 0, err
	}

	cur, err = expectTag(buf, cur, end, tagAllData)
	if err != nil {
		return Pdu{}, 0, err
	}
	p.AllData, cur, err = decodeAllData(buf, cur)
	if err != nil {
		return Pdu{}, 0, err
	}

	if cur > end {
		return Pdu{}, 0, fmt.Errorf("goose: allData overran outer length at offset %d", pos)
	}
	return p, end, nil
}

func expectTag(buf []byte, pos, end int, want byte) (int, error) {
	if pos >= end {
		return 0, fmt.Errorf("goose: missing required field 0x%02X, ran off outer length at offset %d", want, pos)
	}
	got, err := ber.PeekTag(buf, pos)
	if err != nil {
		return 0, err
	}
	if got != want {
		return 0, fmt.Errorf("goose: expected field tag 0x%02X, got 0x%02X at offset %d", want, got, pos)
	}
	return pos, nil
}

func decodeAllData(buf []byte, pos int) ([]value.Value, int, error) {
	tag, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	if tag != tagAllData {
		return nil, 0, fmt.Errorf("goose: expected allData tag 0x%02X, got 0x%02X at offset %d", tagAllData, tag, pos)
	}
	end := contentPos + length
	var elems []value.Value
	cur := contentPos
	for cur < end {
		var v value.Value
		v, cur, err = value.Decode(buf, cur)
		if err != nil {
			return nil, 0, err
		}
		elems = append(elems, v)
	}
	if cur != end {
		return nil, 0, fmt.Errorf("goose: allData misaligned at offset %d", pos)
	}
	return elems, end, nil
}
