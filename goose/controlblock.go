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

package goose

import (
	"time"

	"github.com/facebookincubator/iec61850/value"
)

// ControlBlockConfig is the persistent, caller-supplied configuration for
// one GOOSE publisher: everything that does not change between `init` and
// `stop`, except AllData which update() replaces wholesale.
type ControlBlockConfig struct {
	DstMAC [6]byte

	HasVLAN bool
	TPID    uint16
	TCI     uint16

	APPID uint16

	GoCbRef    string
	DatSet     string
	GoID       string
	Simulation bool
	ConfRev    uint64
	NdsCom     bool
	AllData    []value.Value

	MinRepetition time.Duration
	MaxRepetition time.Duration
}

// Runtime is the mutable state the retransmission engine advances on every
// update and every scheduled retransmission.
type Runtime struct {
	StNum           uint64
	SqNum           uint64
	Timestamp       value.Timestamp
	SrcAddr         [6]byte
	CurrentInterval time.Duration
}

// NewRuntime builds the initial Runtime for a freshly init'd control block:
// stNum and sqNum both start at 1, currentInterval at MinRepetition.
func NewRuntime(cfg ControlBlockConfig, srcAddr [6]byte, now value.Timestamp) Runtime {
	return Runtime{
		StNum:           1,
		SqNum:           1,
		Timestamp:       now,
		SrcAddr:         srcAddr,
		CurrentInterval: cfg.MinRepetition,
	}
}

// ApplyUpdate advances rt for an `update` command: stNum increments
// (wrapping), sqNum resets to 1, the timestamp refreshes, and the interval
// resets to the minimum so the engine emits immediately at the fast rate.
func (rt *Runtime) ApplyUpdate(cfg ControlBlockConfig, now value.Timestamp) {
	rt.StNum++
	rt.SqNum = 1
	rt.Timestamp = now
	rt.CurrentInterval = cfg.MinRepetition
}

// ApplyRetransmission advances rt for a scheduled retransmission: sqNum
// increments (wrapping) and the interval doubles, capped at MaxRepetition.
func (rt *Runtime) ApplyRetransmission(cfg ControlBlockConfig) {
	rt.SqNum++
	next := rt.CurrentInterval * 2
	if next > cfg.MaxRepetition || next <= 0 {
		next = cfg.MaxRepetition
	}
	rt.CurrentInterval = next
}

// TimeAllowedToLiveMillis is the staleness budget, in milliseconds, advertised on every emitted
// frame: 2 x the interval the frame is sent at, not 2 x MaxRepetition, so
// the bound tightens during accelerated retransmission.
func (rt Runtime) TimeAllowedToLiveMillis() uint64 {
	return uint64(2 * rt.CurrentInterval / time.Millisecond)
}

// BuildPdu renders the current config+runtime pair into a GOOSE Pdu ready
// for encoding.
func BuildPdu(cfg ControlBlockConfig, rt Runtime) Pdu {
	return Pdu{
		GoCbRef:           cfg.GoCbRef,
		TimeAllowedToLive: rt.TimeAllowedToLiveMillis(),
		DatSet:            cfg.DatSet,
		GoID:              cfg.GoID,
		T:                 rt.Timestamp,
		StNum:             rt.StNum,
		SqNum:             rt.SqNum,
		Simulation:        cfg.Simulation,
		ConfRev:           cfg.ConfRev,
		NdsCom:            cfg.NdsCom,
		NumDatSetEntries:  uint64(len(cfg.AllData)),
		AllData:           cfg.AllData,
	}
}
