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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/iec61850/engine"
	"github.com/facebookincubator/iec61850/ethernet"
	"github.com/facebookincubator/iec61850/goose"
	"github.com/facebookincubator/iec61850/smv"
)

var decodeHexFlag string
var decodeFileFlag string

func init() {
	RootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeHexFlag, "hex", "", "frame bytes as a hex string")
	decodeCmd.Flags().StringVarP(&decodeFileFlag, "file", "f", "", "path to a file of raw frame bytes")
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a captured GOOSE or SMV Ethernet frame and print it as JSON",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		buf, err := readFrame()
		if err != nil {
			log.Fatalf("decode: %v", err)
		}
		out, err := decodeFrame(buf)
		if err != nil {
			log.Fatalf("decode: %v", err)
		}
		js, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Fatalf("decode: %v", err)
		}
		fmt.Println(string(js))
	},
}

func readFrame() ([]byte, error) {
	switch {
	case decodeHexFlag != "":
		return hex.DecodeString(strings.TrimSpace(decodeHexFlag))
	case decodeFileFlag != "":
		return os.ReadFile(decodeFileFlag)
	default:
		return nil, fmt.Errorf("one of --hex or --file is required")
	}
}

// decodedFrame is the JSON rendering of a decoded GOOSE or SMV frame.
type decodedFrame struct {
	Header headerView `json:"header"`
	Goose  *gooseView `json:"goose,omitempty"`
	Smv    *smvView   `json:"smv,omitempty"`
}

type headerView struct {
	DstMAC     string `json:"dst_mac"`
	SrcMAC     string `json:"src_mac"`
	HasVLAN    bool   `json:"has_vlan"`
	TCI        uint16 `json:"tci,omitempty"`
	EtherType  uint16 `json:"ether_type"`
	APPID      uint16 `json:"appid"`
	Simulation bool   `json:"simulation"`
}

type gooseView struct {
	GoCbRef           string             `json:"go_cb_ref"`
	DatSet            string             `json:"dat_set"`
	GoID              string             `json:"go_id"`
	StNum             uint64             `json:"st_num"`
	SqNum             uint64             `json:"sq_num"`
	ConfRev           uint64             `json:"conf_rev"`
	TimeAllowedToLive uint64             `json:"time_allowed_to_live"`
	AllData           []engine.JSONValue `json:"all_data"`
}

type smvAsduView struct {
	MsvID    string  `json:"msv_id"`
	SmpCnt   uint16  `json:"smp_cnt"`
	ConfRev  uint32  `json:"conf_rev"`
	SmpSynch uint8   `json:"smp_synch"`
	Values   []int32 `json:"values"`
}

type smvView struct {
	Asdus []smvAsduView `json:"asdus"`
}

func decodeFrame(buf []byte) (*decodedFrame, error) {
	hdr, pos, err := ethernet.DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	out := &decodedFrame{Header: headerView{
		DstMAC:     macString(hdr.DstMAC),
		SrcMAC:     macString(hdr.SrcMAC),
		HasVLAN:    hdr.HasVLAN,
		TCI:        hdr.TCI,
		EtherType:  hdr.EtherType,
		APPID:      hdr.APPID,
		Simulation: hdr.Simulation(),
	}}

	switch hdr.EtherType {
	case ethernet.EtherTypeGOOSE, ethernet.EtherTypeGOOSETest:
		pdu, _, err := goose.Decode(buf, pos)
		if err != nil {
			return nil, fmt.Errorf("decoding GOOSE PDU: %w", err)
		}
		allData := make([]engine.JSONValue, len(pdu.AllData))
		for i, v := range pdu.AllData {
			allData[i] = engine.FromValue(v)
		}
		out.Goose = &gooseView{
			GoCbRef:           pdu.GoCbRef,
			DatSet:            pdu.DatSet,
			GoID:              pdu.GoID,
			StNum:             pdu.StNum,
			SqNum:             pdu.SqNum,
			ConfRev:           pdu.ConfRev,
			TimeAllowedToLive: pdu.TimeAllowedToLive,
			AllData:           allData,
		}
	case ethernet.EtherTypeSMV:
		pdu, _, err := smv.Decode(buf, pos)
		if err != nil {
			return nil, fmt.Errorf("decoding SMV PDU: %w", err)
		}
		asdus := make([]smvAsduView, len(pdu.Asdus))
		for i, a := range pdu.Asdus {
			values := make([]int32, len(a.Samples))
			for j, s := range a.Samples {
				values[j] = s.Value
			}
			asdus[i] = smvAsduView{
				MsvID:    a.MsvID,
				SmpCnt:   a.SmpCnt,
				ConfRev:  a.ConfRev,
				SmpSynch: a.SmpSynch,
				Values:   values,
			}
		}
		out.Smv = &smvView{Asdus: asdus}
	default:
		return nil, fmt.Errorf("unrecognized EtherType 0x%04X", hdr.EtherType)
	}
	return out, nil
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
