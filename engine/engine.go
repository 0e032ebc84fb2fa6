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

// Package engine implements the GOOSE retransmission state machine: one
// cooperative task per active control block, keyed by goCbRef, driven by a
// JSON-shaped init/update/stop command mailbox and a shared, serialized raw
// send path.
package engine

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/facebookincubator/iec61850/goose"
	"github.com/facebookincubator/iec61850/stats"
	"github.com/facebookincubator/iec61850/value"
)

// Engine is the control-block registry, send path, and command ingester
// bound together. Its lifecycle is owned by the caller: construct with New,
// run with Run, and cancel the context passed to Run to shut everything
// down.
type Engine struct {
	registry *Registry
	sender   *SerializedSender
	clock    Clock
	srcMAC   [6]byte
	commands <-chan Command
	stats    *stats.Stats
}

// New builds an Engine. srcMAC is stamped as the source address on every
// emitted frame; send and clock are the core's only external dependencies
// besides the command mailbox. st is optional; pass nil to run without
// metrics.
func New(srcMAC [6]byte, send SendFunc, clock Clock, commands <-chan Command, st *stats.Stats) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		registry: NewRegistry(),
		sender:   NewSerializedSender(send),
		clock:    clock,
		srcMAC:   srcMAC,
		commands: commands,
		stats:    st,
	}
}

// Registry exposes the engine's control-block registry for read-only
// inspection (e.g. by the stats package or a CLI `decode`/`status` command).
func (e *Engine) Registry() *Registry { return e.registry }

// Run ingests commands from e.commands until ctx is canceled or the channel
// closes, spawning and supervising one goroutine per active control block
// with errgroup so a panic in one does not silently vanish and cancellation
// propagates to every live task.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.ingestCommands(gctx, g)
	})
	return g.Wait()
}

func (e *Engine) ingestCommands(ctx context.Context, g *errgroup.Group) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-e.commands:
			if !ok {
				return nil
			}
			e.handleCommand(ctx, g, cmd)
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, g *errgroup.Group, cmd Command) {
	switch cmd.Cmd {
	case CmdInit:
		e.handleInit(ctx, g, cmd)
	case CmdUpdate:
		e.handleUpdate(cmd)
	case CmdStop:
		e.handleStop(cmd)
	default:
		logrus.WithField("cmd", cmd.Cmd).Warn("engine: dropping unknown command")
	}
}

func (e *Engine) handleInit(ctx context.Context, g *errgroup.Group, cmd Command) {
	if cmd.Config == nil {
		logrus.Warn("engine: init command missing config, dropping")
		return
	}
	cfg, err := buildControlBlockConfig(*cmd.Config)
	if err != nil {
		logrus.WithError(err).WithField("goCbRef", cmd.Config.GoCbRef).Warn("engine: malformed init config, dropping")
		return
	}

	ent := &entry{
		updateCh: make(chan []value.Value, 1),
		stopCh:   make(chan struct{}),
	}
	if previous, existed := e.registry.register(cfg.GoCbRef, ent); existed {
		close(previous.stopCh)
	}

	rt := goose.NewRuntime(cfg, e.srcMAC, timestampNow(e.clock))
	g.Go(func() error {
		return runControlBlock(ctx, cfg.GoCbRef, cfg, rt, e.srcMAC, e.sender, e.clock, ent, e.stats)
	})
}

func (e *Engine) handleUpdate(cmd Command) {
	ent, ok := e.registry.lookup(cmd.GoCbRef)
	if !ok {
		logrus.WithField("goCbRef", cmd.GoCbRef).Warn("engine: update for unknown control block, dropping")
		return
	}
	data, err := toValueSlice(cmd.Data)
	if err != nil {
		logrus.WithError(err).WithField("goCbRef", cmd.GoCbRef).Warn("engine: malformed update data, dropping")
		return
	}
	select {
	case ent.updateCh <- data:
	default:
		// A previous update is still pending; drain it so the latest
		// data wins instead of blocking the command ingester.
		select {
		case <-ent.updateCh:
		default:
		}
		ent.updateCh <- data
	}
}

func (e *Engine) handleStop(cmd Command) {
	ent, ok := e.registry.lookup(cmd.GoCbRef)
	if !ok {
		logrus.WithField("goCbRef", cmd.GoCbRef).Warn("engine: stop for unknown control block, dropping")
		return
	}
	e.registry.remove(cmd.GoCbRef)
	close(ent.stopCh)
}

func buildControlBlockConfig(c InitConfig) (goose.ControlBlockConfig, error) {
	if c.GoCbRef == "" {
		return goose.ControlBlockConfig{}, fmt.Errorf("engine: goCbRef must not be empty")
	}
	mac, err := net.ParseMAC(c.DstAddr)
	if err != nil || len(mac) != 6 {
		return goose.ControlBlockConfig{}, fmt.Errorf("engine: invalid dst_addr %q: %w", c.DstAddr, err)
	}
	allData, err := toValueSlice(c.AllData)
	if err != nil {
		return goose.ControlBlockConfig{}, err
	}
	if c.MinRepetition == 0 || c.MaxRepetition < c.MinRepetition {
		return goose.ControlBlockConfig{}, fmt.Errorf("engine: min_repetition/max_repetition out of range (%d/%d)", c.MinRepetition, c.MaxRepetition)
	}

	cfg := goose.ControlBlockConfig{
		APPID:         c.APPID,
		GoCbRef:       c.GoCbRef,
		DatSet:        c.DatSet,
		GoID:          c.GoID,
		Simulation:    c.Simulation,
		ConfRev:       c.ConfRev,
		NdsCom:        c.NdsCom,
		AllData:       allData,
		MinRepetition: time.Duration(c.MinRepetition) * time.Millisecond,
		MaxRepetition: time.Duration(c.MaxRepetition) * time.Millisecond,
	}
	copy(cfg.DstMAC[:], mac)
	if c.TPID != nil && c.TCI != nil {
		cfg.HasVLAN = true
		cfg.TPID = *c.TPID
		cfg.TCI = *c.TCI
	}
	return cfg, nil
}
