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

package smv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/iec61850/stats"
	"github.com/facebookincubator/iec61850/value"
)

func TestPublisherRunTicksAndSends(t *testing.T) {
	var mu sync.Mutex
	var sent [][]byte
	var smpCnts []uint16

	p := &Publisher{
		Encode: func(a Asdu) ([]byte, error) {
			buf := make([]byte, AsduSize(a))
			_, err := encodeAsdu(buf, 0, a)
			return buf, err
		},
		Send: func(frame []byte) error {
			mu.Lock()
			defer mu.Unlock()
			cp := make([]byte, len(frame))
			copy(cp, frame)
			sent = append(sent, cp)
			return nil
		},
		Sample: func(smpCnt uint16) []Sample {
			mu.Lock()
			smpCnts = append(smpCnts, smpCnt)
			mu.Unlock()
			return []Sample{{Value: int32(smpCnt), Quality: value.Quality{Validity: value.ValidityGood}}}
		},
		Asdu:     Asdu{MsvID: "IED1/LLN0$MSVCB01", ConfRev: 1, SmpSynch: SmpSynchGlobal},
		Interval: 5 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, sent)
	require.NotEmpty(t, smpCnts)
	for i := 1; i < len(smpCnts); i++ {
		require.Equal(t, smpCnts[i-1]+1, smpCnts[i])
	}
}

func TestPublisherContinuesAfterSendError(t *testing.T) {
	calls := 0
	p := &Publisher{
		Encode: func(a Asdu) ([]byte, error) {
			buf := make([]byte, AsduSize(a))
			_, err := encodeAsdu(buf, 0, a)
			return buf, err
		},
		Send: func(frame []byte) error {
			calls++
			return assertErr
		},
		Sample:   func(smpCnt uint16) []Sample { return nil },
		Asdu:     Asdu{MsvID: "m", SmpSynch: SmpSynchNone},
		Interval: 5 * time.Millisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 22*time.Millisecond)
	defer cancel()
	_ = p.Run(ctx)
	require.GreaterOrEqual(t, calls, 2)
}

var assertErr = errSendFailed{}

type errSendFailed struct{}

func (errSendFailed) Error() string { return "send failed" }

func TestPublisherRunWithStatsDoesNotPanic(t *testing.T) {
	p := &Publisher{
		Encode: func(a Asdu) ([]byte, error) {
			buf := make([]byte, AsduSize(a))
			_, err := encodeAsdu(buf, 0, a)
			return buf, err
		},
		Send:     func(frame []byte) error { return nil },
		Sample:   func(smpCnt uint16) []Sample { return nil },
		Asdu:     Asdu{MsvID: "IED1/LLN0$MSVCB01", SmpSynch: SmpSynchNone},
		Interval: 5 * time.Millisecond,
		Stats:    stats.New(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 17*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
