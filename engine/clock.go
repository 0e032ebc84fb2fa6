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

package engine

import (
	"time"

	"github.com/facebookincubator/iec61850/value"
)

// Clock supplies wall-clock time to the engine; the core consumes it and
// nothing else, so tests can substitute a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// timestampNow renders c.Now() as a Timestamp with the quality byte a
// synchronized clock reports: time accuracy of 24 bits, clock failure and
// not-synchronized both clear. If c returns the zero time.Time, it falls
// back to value.Now().
func timestampNow(c Clock) value.Timestamp {
	t := c.Now()
	if t.IsZero() {
		return value.Now()
	}
	return value.NewTimestamp(t, value.TimeQuality{TimeAccuracy: 24})
}
