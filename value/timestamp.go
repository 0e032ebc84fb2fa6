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
	"fmt"
	"time"
)

// TimeAccuracyUnspecified is the sentinel TimeAccuracy value meaning the
// accuracy is not known.
const TimeAccuracyUnspecified uint8 = 31

// TimeQuality is the one-byte quality descriptor that trails every
// Timestamp on the wire.
type TimeQuality struct {
	LeapSecondKnown      bool
	ClockFailure         bool
	ClockNotSynchronized bool
	// TimeAccuracy is "bits of accuracy" for 0..25, reserved for 26..30,
	// and TimeAccuracyUnspecified (31) when unknown.
	TimeAccuracy uint8
}

func (q TimeQuality) byte() byte {
	var b byte
	if q.LeapSecondKnown {
		b |= 1 << 7
	}
	if q.ClockFailure {
		b |= 1 << 6
	}
	if q.ClockNotSynchronized {
		b |= 1 << 5
	}
	b |= q.TimeAccuracy & 0x1F
	return b
}

func timeQualityFromByte(b byte) TimeQuality {
	return TimeQuality{
		LeapSecondKnown:      b&(1<<7) != 0,
		ClockFailure:         b&(1<<6) != 0,
		ClockNotSynchronized: b&(1<<5) != 0,
		TimeAccuracy:         b & 0x1F,
	}
}

// Timestamp is the 8-byte IEC 61850 UTC time: seconds since the Unix epoch
// (32 bits), a fraction of a second expressed as n/2^24 (24 bits), and a
// one-byte quality descriptor.
type Timestamp struct {
	Seconds  uint32
	Fraction uint32 // low 24 bits significant
	Quality  TimeQuality
}

// Bytes renders ts as its 8-byte wire encoding.
func (ts Timestamp) Bytes() [8]byte {
	var b [8]byte
	b[0] = byte(ts.Seconds >> 24)
	b[1] = byte(ts.Seconds >> 16)
	b[2] = byte(ts.Seconds >> 8)
	b[3] = byte(ts.Seconds)
	f := ts.Fraction & 0xFFFFFF
	b[4] = byte(f >> 16)
	b[5] = byte(f >> 8)
	b[6] = byte(f)
	b[7] = ts.Quality.byte()
	return b
}

// ParseTimestamp decodes an 8-byte IEC 61850 UTC time.
func ParseTimestamp(b []byte) (Timestamp, error) {
	if len(b) != 8 {
		return Timestamp{}, fmt.Errorf("value: timestamp must be 8 bytes, got %d", len(b))
	}
	seconds := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	fraction := uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
	return Timestamp{
		Seconds:  seconds,
		Fraction: fraction,
		Quality:  timeQualityFromByte(b[7]),
	}, nil
}

// Time converts ts to a standard time.Time, interpreting Fraction as
// Fraction/2^24 of a second.
func (ts Timestamp) Time() time.Time {
	nanos := int64(ts.Fraction) * int64(time.Second) / (1 << 24)
	return time.Unix(int64(ts.Seconds), nanos).UTC()
}

// NewTimestamp builds a Timestamp from a standard time.Time with the given
// quality. The fractional part is truncated to 24 bits of precision.
func NewTimestamp(t time.Time, q TimeQuality) Timestamp {
	t = t.UTC()
	frac := uint32(int64(t.Nanosecond()) * (1 << 24) / int64(time.Second))
	return Timestamp{
		Seconds:  uint32(t.Unix()),
		Fraction: frac & 0xFFFFFF,
		Quality:  q,
	}
}

// Now returns the current time as a Timestamp with the quality byte the
// reference GOOSE publisher uses for a synchronized clock: no leap second
// pending, no clock failure, synchronized, accurate to 24 bits (wire byte
// 0x18).
func Now() Timestamp {
	return NewTimestamp(time.Now(), TimeQuality{TimeAccuracy: 24})
}
