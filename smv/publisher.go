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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/facebookincubator/iec61850/stats"
)

// SendFunc transmits one encoded SMV frame's raw bytes. Supplied by the
// embedding program; the publisher never opens or closes a socket.
type SendFunc func(frame []byte) error

// SampleFunc produces the next sample set for one ASDU, called once per
// publish tick. smpCnt is the monotonically increasing, wrapping sample
// counter the publisher maintains on the caller's behalf.
type SampleFunc func(smpCnt uint16) []Sample

// Publisher drives periodic sampling and transmission of one ASDU at a
// fixed rate, a convenience layered over the bare PDU codec: the spec's
// ASDU carries an optional smpRate field but does not itself schedule
// anything.
type Publisher struct {
	Encode   func(Asdu) ([]byte, error)
	Send     SendFunc
	Sample   SampleFunc
	Asdu     Asdu
	Interval time.Duration
	Stats    *stats.Stats // optional, nil runs without metrics
}

// Run ticks at p.Interval, stamping smpCnt (wrapping at 65536) and fresh
// samples into a new ASDU on every tick, until ctx is canceled. Send errors
// are not fatal; the failed frame is dropped and the next tick sends the
// next sample, matching the GOOSE engine's log-and-continue failure
// handling.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	smpCnt := p.Asdu.SmpCnt
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a := p.Asdu
			a.SmpCnt = smpCnt
			a.Samples = p.Sample(smpCnt)
			frame, err := p.Encode(a)
			if err != nil {
				logrus.WithError(err).WithField("smpCnt", smpCnt).Error("smv: failed to encode sample")
				smpCnt++
				continue
			}
			if err := p.Send(frame); err != nil {
				logrus.WithError(err).WithField("smpCnt", smpCnt).Error("smv: failed to send frame")
			} else if p.Stats != nil {
				p.Stats.IncAsdusSent(p.Asdu.MsvID)
			}
			smpCnt++
		}
	}
}
