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

// Package smv implements the IEC 61850-9-2 Sampled Measured Values APDU
// codec: the outer SavPdu (tag 0x60), its ASDU sequence (tag 0xA2), and the
// per-ASDU sample block (tag 0x87) of (integer, 13-bit quality) pairs.
package smv

import (
	"fmt"

	"github.com/facebookincubator/iec61850/internal/ber"
	"github.com/facebookincubator/iec61850/value"
)

// Context tags for the SavPdu body and ASDU body, per the savPdu and ASDU
// ASN.1 modules in IEC 61850-9-2 Annex A.
const (
	TagSavPdu      byte = 0x60
	tagNoASDU      byte = 0x80
	tagSecurity    byte = 0x81
	tagASDUSeq     byte = 0xA2
	TagASDU        byte = 0x30
	tagMsvID       byte = 0x80
	tagDatSet      byte = 0x81
	tagSmpCnt      byte = 0x82
	tagConfRev     byte = 0x83
	tagRefrTm      byte = 0x84
	tagSmpSynch    byte = 0x85
	tagSmpRate     byte = 0x86
	tagSamples     byte = 0x87
	tagSmpMod      byte = 0x88
	tagGmIdentity  byte = 0x89
	tagSampleValue byte = 0x83
	tagSampleQual  byte = 0x84
)

// SmpSynch source values, per IEC 61850-9-2 clause 6 (sample synchronizing
// state of the sampled value control block).
const (
	SmpSynchNone   uint8 = 0
	SmpSynchLocal  uint8 = 1
	SmpSynchGlobal uint8 = 2
)

// Sample is one (value, quality) pair within an ASDU's sample block.
type Sample struct {
	Value   int32
	Quality value.Quality
}

// Asdu is one Application Service Data Unit within an SMV frame.
type Asdu struct {
	MsvID      string
	DatSet     string // optional; present only when HasDatSet is set
	HasDatSet  bool
	SmpCnt     uint16
	ConfRev    uint32
	RefrTm     value.Timestamp
	HasRefrTm  bool
	SmpSynch   uint8
	SmpRate    uint16
	HasSmpRate bool
	Samples    []Sample
	SmpMod     uint16
	HasSmpMod  bool
	GmIdentity [8]byte
	HasGm      bool
}

// Pdu is a fully decoded SMV application protocol data unit.
type Pdu struct {
	Sim         bool // carried by the Ethernet simulation bit, not this PDU
	Security    []byte
	HasSecurity bool
	Asdus       []Asdu
}

func asduSamplesSize(samples []Sample) int {
	content := 0
	for _, s := range samples {
		content += ber.SizeSignedInt(int64(s.Value)) + ber.SizeBitString(2)
	}
	return ber.SizeOctetString(content)
}

func asduBodySize(a Asdu) int {
	n := ber.SizeString(a.MsvID)
	if a.HasDatSet {
		n += ber.SizeString(a.DatSet)
	}
	n += ber.SizeUnsignedInt(uint64(a.SmpCnt))
	n += ber.SizeUnsignedInt(uint64(a.ConfRev))
	if a.HasRefrTm {
		n += ber.SizeOctetString(8)
	}
	n += ber.SizeUnsignedInt(uint64(a.SmpSynch))
	if a.HasSmpRate {
		n += ber.SizeUnsignedInt(uint64(a.SmpRate))
	}
	n += asduSamplesSize(a.Samples)
	if a.HasSmpMod {
		n += ber.SizeUnsignedInt(uint64(a.SmpMod))
	}
	if a.HasGm {
		n += ber.SizeOctetString(8)
	}
	return n
}

// AsduSize returns the exact number of bytes encodeAsdu would write for a,
// tag+length included.
func AsduSize(a Asdu) int {
	return ber.SizeOctetString(asduBodySize(a))
}

func asduSeqSize(asdus []Asdu) int {
	content := 0
	for _, a := range asdus {
		content += AsduSize(a)
	}
	return ber.SizeOctetString(content)
}

func pduBodySize(p Pdu) int {
	n := ber.SizeUnsignedInt(uint64(len(p.Asdus)))
	if p.HasSecurity {
		n += ber.SizeOctetString(len(p.Security))
	}
	n += asduSeqSize(p.Asdus)
	return n
}

// Size returns the exact number of bytes Encode would write for p.
func Size(p Pdu) int {
	return ber.SizeOctetString(pduBodySize(p))
}

// Encode writes p at buf[pos] (outer tag 0x60 included) and returns the
// position following it. NoASDU is always (re)derived from len(p.Asdus).
func Encode(buf []byte, pos int, p Pdu) (int, error) {
	body := pduBodySize(p)
	next, err := ber.WriteTagLength(buf, pos, TagSavPdu, body)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagNoASDU, uint64(len(p.Asdus)))
	if err != nil {
		return 0, err
	}
	if p.HasSecurity {
		next, err = ber.EncodeOctetString(buf, next, tagSecurity, p.Security)
		if err != nil {
			return 0, err
		}
	}
	content := 0
	for _, a := range p.Asdus {
		content += AsduSize(a)
	}
	next, err = ber.WriteTagLength(buf, next, tagASDUSeq, content)
	if err != nil {
		return 0, err
	}
	for _, a := range p.Asdus {
		next, err = encodeAsdu(buf, next, a)
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

func encodeAsdu(buf []byte, pos int, a Asdu) (int, error) {
	body := asduBodySize(a)
	next, err := ber.WriteTagLength(buf, pos, TagASDU, body)
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeString(buf, next, tagMsvID, a.MsvID)
	if err != nil {
		return 0, err
	}
	if a.HasDatSet {
		next, err = ber.EncodeString(buf, next, tagDatSet, a.DatSet)
		if err != nil {
			return 0, err
		}
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagSmpCnt, uint64(a.SmpCnt))
	if err != nil {
		return 0, err
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagConfRev, uint64(a.ConfRev))
	if err != nil {
		return 0, err
	}
	if a.HasRefrTm {
		rb := a.RefrTm.Bytes()
		next, err = ber.EncodeOctetString(buf, next, tagRefrTm, rb[:])
		if err != nil {
			return 0, err
		}
	}
	next, err = ber.EncodeUnsignedInt(buf, next, tagSmpSynch, uint64(a.SmpSynch))
	if err != nil {
		return 0, err
	}
	if a.HasSmpRate {
		next, err = ber.EncodeUnsignedInt(buf, next, tagSmpRate, uint64(a.SmpRate))
		if err != nil {
			return 0, err
		}
	}
	next, err = encodeSamples(buf, next, a.Samples)
	if err != nil {
		return 0, err
	}
	if a.HasSmpMod {
		next, err = ber.EncodeUnsignedInt(buf, next, tagSmpMod, uint64(a.SmpMod))
		if err != nil {
			return 0, err
		}
	}
	if a.HasGm {
		next, err = ber.EncodeOctetString(buf, next, tagGmIdentity, a.GmIdentity[:])
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

func encodeSamples(buf []byte, pos int, samples []Sample) (int, error) {
	content := 0
	for _, s := range samples {
		content += ber.SizeSignedInt(int64(s.Value)) + ber.SizeBitString(2)
	}
	next, err := ber.WriteTagLength(buf, pos, tagSamples, content)
	if err != nil {
		return 0, err
	}
	for _, s := range samples {
		next, err = ber.EncodeSignedInt(buf, next, tagSampleValue, int64(s.Value))
		if err != nil {
			return 0, err
		}
		bs := s.Quality.ToBitString()
		next, err = ber.EncodeBitString(buf, next, tagSampleQual, bs.Padding, bs.Bits)
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

// Decode reads one SMV PDU starting at buf[pos].
func Decode(buf []byte, pos int) (Pdu, int, error) {
	tag, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return Pdu{}, 0, err
	}
	if tag != TagSavPdu {
		return Pdu{}, 0, fmt.Errorf("smv: expected tag 0x%02X, got 0x%02X at offset %d", TagSavPdu, tag, pos)
	}
	end := contentPos + length

	var p Pdu
	cur := contentPos
	if cur >= end {
		return Pdu{}, 0, fmt.Errorf("smv: missing noASDU field at offset %d", cur)
	}
	noASDU, next, err := ber.DecodeUnsignedInt(buf, cur, tagNoASDU)
	if err != nil {
		return Pdu{}, 0, err
	}
	cur = next

	if cur < end {
		t, err := ber.PeekTag(buf, cur)
		if err != nil {
			return Pdu{}, 0, err
		}
		if t == tagSecurity {
			p.Security, cur, err = ber.DecodeOctetString(buf, cur, tagSecurity, -1)
			if err != nil {
				return Pdu{}, 0, err
			}
			p.HasSecurity = true
		}
	}

	if cur >= end {
		return Pdu{}, 0, fmt.Errorf("smv: missing asduSequence field at offset %d", cur)
	}
	seqTag, seqLen, seqContentPos, err := ber.ReadTagLength(buf, cur)
	if err != nil {
		return Pdu{}, 0, err
	}
	if seqTag != tagASDUSeq {
		return Pdu{}, 0, fmt.Errorf("smv: expected asduSequence tag 0x%02X, got 0x%02X at offset %d", tagASDUSeq, seqTag, cur)
	}
	seqEnd := seqContentPos + seqLen
	acur := seqContentPos
	for acur < seqEnd {
		var a Asdu
		a, acur, err = decodeAsdu(buf, acur)
		if err != nil {
			return Pdu{}, 0, err
		}
		p.Asdus = append(p.Asdus, a)
	}
	if acur != seqEnd {
		return Pdu{}, 0, fmt.Errorf("smv: asduSequence misaligned at offset %d", cur)
	}
	cur = seqEnd

	if uint64(len(p.Asdus)) != noASDU {
		return Pdu{}, 0, fmt.Errorf("smv: noASDU=%d but decoded %d ASDUs", noASDU, len(p.Asdus))
	}
	if cur > end {
		return Pdu{}, 0, fmt.Errorf("smv: asduSequence overran outer length at offset %d", pos)
	}
	return p, end, nil
}

func decodeAsdu(buf []byte, pos int) (Asdu, int, error) {
	tag, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return Asdu{}, 0, err
	}
	if tag != TagASDU {
		return Asdu{}, 0, fmt.Errorf("smv: expected ASDU tag 0x%02X, got 0x%02X at offset %d", TagASDU, tag, pos)
	}
	end := contentPos + length
	var a Asdu
	cur := contentPos

	if cur >= end {
		return Asdu{}, 0, fmt.Errorf("smv: missing msvID field at offset %d", cur)
	}
	a.MsvID, cur, err = ber.DecodeString(buf, cur, tagMsvID)
	if err != nil {
		return Asdu{}, 0, err
	}

	cur, err = peekOptional(buf, cur, end, tagDatSet, func(c int) (int, error) {
		a.DatSet, c, err = ber.DecodeString(buf, c, tagDatSet)
		a.HasDatSet = err == nil
		return c, err
	})
	if err != nil {
		return Asdu{}, 0, err
	}

	if cur >= end {
		return Asdu{}, 0, fmt.Errorf("smv: missing smpCnt field at offset %d", cur)
	}
	var smpCnt uint64
	smpCnt, cur, err = ber.DecodeUnsignedInt(buf, cur, tagSmpCnt)
	if err != nil {
		return Asdu{}, 0, err
	}
	a.SmpCnt = uint16(smpCnt)

	if cur >= end {
		return Asdu{}, 0, fmt.Errorf("smv: missing confRev field at offset %d", cur)
	}
	var confRev uint64
	confRev, cur, err = ber.DecodeUnsignedInt(buf, cur, tagConfRev)
	if err != nil {
		return Asdu{}, 0, err
	}
	a.ConfRev = uint32(confRev)

	cur, err = peekOptional(buf, cur, end, tagRefrTm, func(c int) (int, error) {
		rb, next, err := ber.DecodeOctetString(buf, c, tagRefrTm, 8)
		if err != nil {
			return c, err
		}
		a.RefrTm, err = value.ParseTimestamp(rb)
		if err != nil {
			return c, err
		}
		a.HasRefrTm = true
		return next, nil
	})
	if err != nil {
		return Asdu{}, 0, err
	}

	if cur >= end {
		return Asdu{}, 0, fmt.Errorf("smv: missing smpSynch field at offset %d", cur)
	}
	var smpSynch uint64
	smpSynch, cur, err = ber.DecodeUnsignedInt(buf, cur, tagSmpSynch)
	if err != nil {
		return Asdu{}, 0, err
	}
	a.SmpSynch = uint8(smpSynch)

	cur, err = peekOptional(buf, cur, end, tagSmpRate, func(c int) (int, error) {
		var rate uint64
		rate, c, err = ber.DecodeUnsignedInt(buf, c, tagSmpRate)
		a.SmpRate = uint16(rate)
		a.HasSmpRate = err == nil
		return c, err
	})
	if err != nil {
		return Asdu{}, 0, err
	}

	if cur >= end {
		return Asdu{}, 0, fmt.Errorf("smv: missing samples field at offset %d", cur)
	}
	a.Samples, cur, err = decodeSamples(buf, cur)
	if err != nil {
		return Asdu{}, 0, err
	}

	cur, err = peekOptional(buf, cur, end, tagSmpMod, func(c int) (int, error) {
		var mod uint64
		mod, c, err = ber.DecodeUnsignedInt(buf, c, tagSmpMod)
		a.SmpMod = uint16(mod)
		a.HasSmpMod = err == nil
		return c, err
	})
	if err != nil {
		return Asdu{}, 0, err
	}

	cur, err = peekOptional(buf, cur, end, tagGmIdentity, func(c int) (int, error) {
		gb, next, err := ber.DecodeOctetString(buf, c, tagGmIdentity, 8)
		if err != nil {
			return c, err
		}
		copy(a.GmIdentity[:], gb)
		a.HasGm = true
		return next, nil
	})
	if err != nil {
		return Asdu{}, 0, err
	}

	if cur != end {
		return Asdu{}, 0, fmt.Errorf("smv: ASDU content misaligned at offset %d", pos)
	}
	return a, end, nil
}

// peekOptional invokes decode(cur) only if a value remains before end and
// its tag matches want; otherwise it returns cur unchanged.
func peekOptional(buf []byte, cur, end int, want byte, decode func(int) (int, error)) (int, error) {
	if cur >= end {
		return cur, nil
	}
	tag, err := ber.PeekTag(buf, cur)
	if err != nil {
		return 0, err
	}
	if tag != want {
		return cur, nil
	}
	return decode(cur)
}

// decodeSamples parses the 0x87 content block as repeated (0x83 integer,
// 0x84 bit-string-quality) pairs until the block is exhausted. The sample
// count is never assumed; it is however many pairs fit exactly.
func decodeSamples(buf []byte, pos int) ([]Sample, int, error) {
	tag, length, contentPos, err := ber.ReadTagLength(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	if tag != tagSamples {
		return nil, 0, fmt.Errorf("smv: expected samples tag 0x%02X, got 0x%02X at offset %d", tagSamples, tag, pos)
	}
	end := contentPos + length
	var samples []Sample
	cur := contentPos
	for cur < end {
		v, next, err := ber.DecodeSignedInt(buf, cur, tagSampleValue)
		if err != nil {
			return nil, 0, err
		}
		cur = next
		padding, data, next2, err := ber.DecodeBitString(buf, cur, tagSampleQual)
		if err != nil {
			return nil, 0, err
		}
		cur = next2
		q, err := value.QualityFromBitString(value.BitString{Padding: padding, Bits: data})
		if err != nil {
			return nil, 0, err
		}
		samples = append(samples, Sample{Value: int32(v), Quality: q})
	}
	if cur != end {
		return nil, 0, fmt.Errorf("smv: samples block misaligned at offset %d", pos)
	}
	return samples, end, nil
}
