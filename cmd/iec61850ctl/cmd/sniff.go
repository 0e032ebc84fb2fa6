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
	"encoding/json"
	"fmt"

	"github.com/google/gopacket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sniffInterfaceFlag string

// bpfFilter matches GOOSE, GOOSE-test and SMV EtherTypes, the three this
// library decodes.
const bpfFilter = "ether proto 0x88b8 or ether proto 0x88b9 or ether proto 0x88ba"

func init() {
	RootCmd.AddCommand(sniffCmd)
	sniffCmd.Flags().StringVarP(&sniffInterfaceFlag, "interface", "i", "eth0", "interface to listen on")
}

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Listen for GOOSE and SMV frames and print each as decoded JSON",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := sniff(sniffInterfaceFlag); err != nil {
			log.Fatalf("sniff: %v", err)
		}
	},
}

func sniff(iface string) error {
	handle, err := openHandle(iface)
	if err != nil {
		return err
	}
	defer handle.Close()
	if err := handle.SetBPFFilter(bpfFilter); err != nil {
		return fmt.Errorf("setting BPF filter: %w", err)
	}

	ctx, cancel := withShutdownSignal(context.Background())
	defer cancel()

	pktSrc := gopacket.NewPacketSource(handle, handle.LinkType())
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-pktSrc.Packets():
			if !ok {
				return nil
			}
			out, err := decodeFrame(pkt.Data())
			if err != nil {
				log.WithError(err).Debug("sniff: dropping undecodable frame")
				continue
			}
			js, err := json.Marshal(out)
			if err != nil {
				log.WithError(err).Warn("sniff: failed to render decoded frame")
				continue
			}
			fmt.Println(string(js))
		}
	}
}
