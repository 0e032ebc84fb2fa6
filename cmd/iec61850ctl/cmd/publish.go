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
	"errors"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/facebookincubator/iec61850/config"
	"github.com/facebookincubator/iec61850/engine"
	"github.com/facebookincubator/iec61850/ethernet"
	"github.com/facebookincubator/iec61850/smv"
	"github.com/facebookincubator/iec61850/stats"
	"github.com/facebookincubator/iec61850/value"
)

var publishConfigFlag string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish GOOSE control blocks or SMV sample streams from a config file",
}

func init() {
	RootCmd.AddCommand(publishCmd)
	publishCmd.AddCommand(publishGooseCmd)
	publishCmd.AddCommand(publishSmvCmd)
	publishCmd.PersistentFlags().StringVarP(&publishConfigFlag, "config", "c", "", "path to the YAML config file (required)")
}

var publishGooseCmd = &cobra.Command{
	Use:   "goose",
	Short: "Run the GOOSE control blocks named in a config file",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if publishConfigFlag == "" {
			log.Fatal("publish goose: --config is required")
		}
		if err := publishGoose(publishConfigFlag); err != nil {
			log.Fatalf("publish goose: %v", err)
		}
	},
}

var publishSmvCmd = &cobra.Command{
	Use:   "smv",
	Short: "Run the SMV sample-value publishers named in a config file",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if publishConfigFlag == "" {
			log.Fatal("publish smv: --config is required")
		}
		if err := publishSmv(publishConfigFlag); err != nil {
			log.Fatalf("publish smv: %v", err)
		}
	},
}

func publishGoose(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	srcMAC, err := interfaceMAC(cfg.Interface)
	if err != nil {
		return err
	}
	handle, err := openHandle(cfg.Interface)
	if err != nil {
		return err
	}
	defer handle.Close()
	send := func(frame []byte) error { return handle.WritePacketData(frame) }

	st := stats.New()
	go serveMetrics(st, cfg.MetricsAddr)

	ctx, cancel := withShutdownSignal(context.Background())
	defer cancel()

	commands := make(chan engine.Command, len(cfg.Goose)+1)
	eng := engine.New(srcMAC, send, nil, commands, st)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })

	for i := range cfg.Goose {
		gc := cfg.Goose[i]
		ic := gc.ToInitConfig()
		commands <- engine.Command{Cmd: engine.CmdInit, Config: &ic}
		log.Infof("publish goose: started control block %s", gc.GoCbRef)
	}

	return unwrapCanceled(g.Wait())
}

func publishSmv(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	srcMAC, err := interfaceMAC(cfg.Interface)
	if err != nil {
		return err
	}
	handle, err := openHandle(cfg.Interface)
	if err != nil {
		return err
	}
	defer handle.Close()
	send := func(frame []byte) error { return handle.WritePacketData(frame) }

	st := stats.New()
	go serveMetrics(st, cfg.MetricsAddr)

	ctx, cancel := withShutdownSignal(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Smv {
		sp := cfg.Smv[i]
		pub, err := buildSmvPublisher(sp, srcMAC, send, st)
		if err != nil {
			return err
		}
		g.Go(func() error { return pub.Run(gctx) })
		log.Infof("publish smv: started publisher %s", sp.MsvID)
	}

	return unwrapCanceled(g.Wait())
}

func serveMetrics(st *stats.Stats, addr string) {
	if err := st.Start(addr); err != nil {
		log.WithError(err).Error("metrics server exited")
	}
}

func unwrapCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildSmvPublisher wires an smv.Publisher that encodes a single-ASDU SavPdu
// wrapped in an Ethernet frame and hands it to send. Sample produces a
// synthetic 8-channel (Ia, Ib, Ic, In, Va, Vb, Vc, Vn) waveform, a stand-in
// for a real merging unit's sampled input.
func buildSmvPublisher(sp config.SmvPublisher, srcMAC [6]byte, send smv.SendFunc, st *stats.Stats) (*smv.Publisher, error) {
	var dstMAC [6]byte
	if sp.DstAddr != "" {
		mac, err := parseMAC(sp.DstAddr)
		if err != nil {
			return nil, err
		}
		dstMAC = mac
	}

	encode := func(a smv.Asdu) ([]byte, error) {
		pdu := smv.Pdu{Asdus: []smv.Asdu{a}}
		pduLen := smv.Size(pdu)

		hdr := ethernet.Header{
			DstMAC:    dstMAC,
			SrcMAC:    srcMAC,
			EtherType: ethernet.EtherTypeSMV,
			APPID:     sp.APPID,
			Length:    uint16(pduLen + 8),
		}
		frame := make([]byte, hdr.HeaderLen()+pduLen)
		next, err := ethernet.EncodeHeader(frame, hdr)
		if err != nil {
			return nil, err
		}
		if _, err := smv.Encode(frame, next, pdu); err != nil {
			return nil, err
		}
		return frame, nil
	}

	sample := func(smpCnt uint16) []smv.Sample {
		return syntheticWaveform(smpCnt, sp.SmpRate)
	}

	return &smv.Publisher{
		Encode: encode,
		Sample: sample,
		Send:   send,
		Asdu: smv.Asdu{
			MsvID:      sp.MsvID,
			DatSet:     sp.DatSet,
			HasDatSet:  sp.DatSet != "",
			ConfRev:    sp.ConfRev,
			SmpSynch:   sp.SmpSynchValue(),
			SmpRate:    sp.SmpRate,
			HasSmpRate: sp.SmpRate != 0,
		},
		Interval: durationMillis(sp.IntervalMs),
		Stats:    st,
	}, nil
}

const waveformChannels = 8 // Ia, Ib, Ic, In, Va, Vb, Vc, Vn

func syntheticWaveform(smpCnt uint16, smpRate uint16) []smv.Sample {
	rate := float64(smpRate)
	if rate == 0 {
		rate = 80
	}
	theta := 2 * math.Pi * float64(smpCnt) / rate
	amplitudes := [waveformChannels]float64{1000, 1000, 1000, 0, 100000, 100000, 100000, 0}
	phases := [waveformChannels]float64{0, -2 * math.Pi / 3, 2 * math.Pi / 3, 0, 0, -2 * math.Pi / 3, 2 * math.Pi / 3, 0}

	samples := make([]smv.Sample, waveformChannels)
	for i := 0; i < waveformChannels; i++ {
		samples[i] = smv.Sample{
			Value:   int32(amplitudes[i] * math.Sin(theta+phases[i])),
			Quality: value.Quality{Validity: value.ValidityGood},
		}
	}
	return samples
}
