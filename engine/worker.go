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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/facebookincubator/iec61850/ethernet"
	"github.com/facebookincubator/iec61850/goose"
	"github.com/facebookincubator/iec61850/stats"
)

// buildFrame renders cfg+rt into a complete Ethernet frame: L2 header,
// optional VLAN tag, 8-byte IEC prefix, and the encoded GOOSE PDU. The
// length field and the simulation bit are derived from cfg/rt, never
// passed in independently.
func buildFrame(cfg goose.ControlBlockConfig, rt goose.Runtime, srcMAC [6]byte) ([]byte, error) {
	pdu := goose.BuildPdu(cfg, rt)
	pduLen := goose.Size(pdu)

	hdr := ethernet.Header{
		DstMAC:    cfg.DstMAC,
		SrcMAC:    srcMAC,
		HasVLAN:   cfg.HasVLAN,
		TPID:      cfg.TPID,
		TCI:       cfg.TCI,
		EtherType: ethernet.EtherTypeGOOSE,
		APPID:     cfg.APPID,
		Length:    uint16(pduLen + 8),
	}
	hdr.SetSimulation(cfg.Simulation)

	frame := make([]byte, hdr.HeaderLen()+pduLen)
	next, err := ethernet.EncodeHeader(frame, hdr)
	if err != nil {
		return nil, err
	}
	if _, err := goose.Encode(frame, next, pdu); err != nil {
		return nil, err
	}
	return frame, nil
}

// runControlBlock is the per-control-block task: emit immediately on init,
// then retransmit at an accelerating-then-steady interval until stopCh
// closes or ctx is canceled, honoring update notifications in between.
// It never returns an error; send and encode failures are logged and the
// task keeps running.
func runControlBlock(ctx context.Context, goCbRef string, cfg goose.ControlBlockConfig, rt goose.Runtime, srcMAC [6]byte, sender *SerializedSender, clock Clock, e *entry, st *stats.Stats) error {
	emit := func() {
		frame, err := buildFrame(cfg, rt, srcMAC)
		if err != nil {
			logrus.WithError(err).WithField("goCbRef", goCbRef).Error("goose: failed to encode frame")
			return
		}
		if err := sender.Send(frame); err != nil {
			logrus.WithError(err).WithField("goCbRef", goCbRef).Warn("goose: send failed, next retransmission will retry")
			if st != nil {
				st.IncSendErrors(goCbRef)
			}
			return
		}
		if st != nil {
			st.IncFramesSent(goCbRef)
			st.SetCurrentIntervalMillis(goCbRef, float64(rt.CurrentInterval.Milliseconds()))
		}
	}

	emit()
	e.publish(rt)

	timer := time.NewTimer(rt.CurrentInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.stopCh:
			return nil
		case newData, ok := <-e.updateCh:
			if !ok {
				return nil
			}
			cfg.AllData = newData
			rt.ApplyUpdate(cfg, timestampNow(clock))
			emit()
			e.publish(rt)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(rt.CurrentInterval)
		case <-timer.C:
			rt.ApplyRetransmission(cfg)
			emit()
			e.publish(rt)
			timer.Reset(rt.CurrentInterval)
		}
	}
}
