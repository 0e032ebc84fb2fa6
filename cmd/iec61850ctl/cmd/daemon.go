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

package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket/pcap"
	log "github.com/sirupsen/logrus"
)

// Capture parameters for the live handles opened by publish/sniff:
// a snapshot length large enough for any GOOSE/SMV frame, no promiscuous
// mode since these destinations are multicast, and a short poll timeout
// so reads don't block shutdown for long.
const (
	snapshotLen = 1024
	promiscuous = false
	recvTimeout = 1 * time.Microsecond
)

// interfaceMAC resolves the hardware address of a local interface, the
// source MAC stamped on every frame this process transmits.
func interfaceMAC(name string) ([6]byte, error) {
	var mac [6]byte
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return mac, fmt.Errorf("resolving hardware address of %s: %w", name, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return mac, fmt.Errorf("%s has no 6-byte hardware address", name)
	}
	copy(mac[:], iface.HardwareAddr)
	return mac, nil
}

// openHandle opens a live capture handle on iface for sending or receiving
// raw frames.
func openHandle(iface string) (*pcap.Handle, error) {
	handle, err := pcap.OpenLive(iface, snapshotLen, promiscuous, recvTimeout)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", iface, err)
	}
	return handle, nil
}

// parseMAC parses a colon-separated MAC address string into a fixed array.
func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	addr, err := net.ParseMAC(s)
	if err != nil || len(addr) != 6 {
		return mac, fmt.Errorf("invalid MAC address %q", s)
	}
	copy(mac[:], addr)
	return mac, nil
}

// durationMillis converts a millisecond count from a config file into a
// time.Duration.
func durationMillis(ms uint64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// withShutdownSignal returns a context canceled on SIGINT/SIGQUIT/SIGTERM,
// the graceful-shutdown pattern ntpresponder/main.go uses.
func withShutdownSignal(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigStop:
			log.Warning("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigStop)
	}()
	return ctx, cancel
}
