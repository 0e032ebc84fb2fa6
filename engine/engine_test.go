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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/iec61850/goose"
)

// TestEngineInitEmitsImmediatelyAndAccelerates exercises the command mailbox
// end to end (init over the commands channel, not the internal API) and
// checks the accelerating-then-steady cadence literally named for this
// scenario: min_repetition=10ms, max_repetition=1000ms, intervals should
// approximate 10,20,40,80,160,320,640,1000,1000,... with sqNum 1,2,3,4,...
func TestEngineInitEmitsImmediatelyAndAccelerates(t *testing.T) {
	rs := &recordingSender{}
	commands := make(chan Command, 4)
	e := New([6]byte{9, 9, 9, 9, 9, 9}, rs.send, nil, commands, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	commands <- Command{
		Cmd: CmdInit,
		Config: &InitConfig{
			DstAddr:       "01:0c:cd:01:00:01",
			APPID:         0x1001,
			GoCbRef:       "IED1/LLN0$GO$gcb1",
			DatSet:        "IED1/LLN0$DATASET1",
			GoID:          "GOOSE1",
			ConfRev:       1,
			MinRepetition: 10,
			MaxRepetition: 1000,
		},
	}

	// Let the control block run through several doublings: 10,20,40,80,160ms.
	time.Sleep(320 * time.Millisecond)
	cancel()
	<-runDone

	frames, times := rs.snapshot()
	require.GreaterOrEqual(t, len(frames), 5)

	var sqNums []uint64
	for _, f := range frames {
		pdu, _, err := goose.Decode(f, 22)
		require.NoError(t, err)
		sqNums = append(sqNums, pdu.SqNum)
		require.Equal(t, uint64(1), pdu.StNum)
	}
	for i, want := range []uint64{1, 2, 3, 4, 5} {
		require.Equal(t, want, sqNums[i])
	}

	expectedIntervals := []time.Duration{10, 20, 40, 80}
	for i := 1; i <= len(expectedIntervals); i++ {
		delta := times[i].Sub(times[i-1])
		require.InDelta(t, float64(expectedIntervals[i-1]*time.Millisecond), float64(delta), float64(30*time.Millisecond))
	}

	snap, ok := e.Registry().Snapshot("IED1/LLN0$GO$gcb1")
	require.True(t, ok)
	require.Equal(t, sqNums[len(sqNums)-1], snap.SqNum)
}

// TestEngineUpdateResetsCadenceAndStopEndsTask exercises update and stop
// through the command mailbox, confirming an update always resets sqNum to 1
// and the interval to min_repetition, and stop ends the control block.
func TestEngineUpdateResetsCadenceAndStopEndsTask(t *testing.T) {
	rs := &recordingSender{}
	commands := make(chan Command, 4)
	e := New([6]byte{9, 9, 9, 9, 9, 9}, rs.send, nil, commands, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	const goCbRef = "IED1/LLN0$GO$gcb1"
	commands <- Command{
		Cmd: CmdInit,
		Config: &InitConfig{
			DstAddr:       "01:0c:cd:01:00:01",
			APPID:         0x1001,
			GoCbRef:       goCbRef,
			DatSet:        "IED1/LLN0$DATASET1",
			GoID:          "GOOSE1",
			ConfRev:       1,
			MinRepetition: 10,
			MaxRepetition: 1000,
		},
	}

	time.Sleep(40 * time.Millisecond) // let sqNum climb past 1

	commands <- Command{
		Cmd:     CmdUpdate,
		GoCbRef: goCbRef,
		Data:    []JSONValue{{Kind: "boolean", Bool: ptrBool(true)}},
	}

	time.Sleep(5 * time.Millisecond) // less than min_repetition, so no retransmission yet

	snap, ok := e.Registry().Snapshot(goCbRef)
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, snap.CurrentInterval)

	frames, _ := rs.snapshot()
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	pdu, _, err := goose.Decode(last, 22)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pdu.SqNum)
	require.Equal(t, uint64(2), pdu.StNum)

	commands <- Command{Cmd: CmdStop, GoCbRef: goCbRef}
	time.Sleep(20 * time.Millisecond)
	_, ok = e.Registry().Snapshot(goCbRef)
	require.False(t, ok, "stop must remove the control block from the registry")

	cancel()
	<-runDone
}

func TestEngineDropsUpdateForUnknownGoCbRef(t *testing.T) {
	var mu sync.Mutex
	var sent int
	send := func(frame []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent++
		return nil
	}
	commands := make(chan Command, 2)
	e := New([6]byte{1, 1, 1, 1, 1, 1}, send, nil, commands, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- e.Run(ctx) }()

	commands <- Command{Cmd: CmdUpdate, GoCbRef: "no-such-gcb"}
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	require.Zero(t, sent)
	mu.Unlock()

	cancel()
	<-runDone
}
