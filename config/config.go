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

// Package config loads the YAML document describing the GOOSE control
// blocks and SMV publishers one process should run.
package config

import (
	"fmt"
	"net"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/facebookincubator/iec61850/engine"
	"github.com/facebookincubator/iec61850/smv"
)

// DataPoint is one scalar entry of a control block's data set, as written in
// YAML. Only the Bool, Int, UInt and Str payloads are carried; a data set
// needing a float, octet string, BitString, Timestamp, or nested
// array/structure must be built as engine.JSONValue or via the Go API
// directly.
type DataPoint struct {
	Kind string  `yaml:"kind"`
	Bool *bool   `yaml:"bool,omitempty"`
	Int  *int64  `yaml:"int,omitempty"`
	UInt *uint64 `yaml:"uint,omitempty"`
	Str  *string `yaml:"str,omitempty"`
}

func (d DataPoint) toJSONValue() engine.JSONValue {
	return engine.JSONValue{Kind: d.Kind, Bool: d.Bool, Int: d.Int, UInt: d.UInt, Str: d.Str}
}

// GooseControlBlock is one publisher's YAML configuration.
type GooseControlBlock struct {
	DstAddr         string      `yaml:"dst_addr"`
	TPID            *uint16     `yaml:"tpid,omitempty"`
	TCI             *uint16     `yaml:"tci,omitempty"`
	APPID           uint16      `yaml:"appid"`
	GoCbRef         string      `yaml:"go_cb_ref"`
	DatSet          string      `yaml:"dat_set"`
	GoID            string      `yaml:"go_id"`
	Simulation      bool        `yaml:"simulation"`
	ConfRev         uint64      `yaml:"conf_rev"`
	NdsCom          bool        `yaml:"nds_com"`
	AllData         []DataPoint `yaml:"all_data"`
	MinRepetitionMs uint64      `yaml:"min_repetition_ms"`
	MaxRepetitionMs uint64      `yaml:"max_repetition_ms"`
}

// Validate checks gc is sane, independent of the engine's own validation of
// the derived InitConfig (which additionally requires a parseable MAC).
func (gc *GooseControlBlock) Validate() error {
	if gc.GoCbRef == "" {
		return fmt.Errorf("go_cb_ref must not be empty")
	}
	if gc.MinRepetitionMs == 0 {
		return fmt.Errorf("%s: min_repetition_ms must be positive", gc.GoCbRef)
	}
	if gc.MaxRepetitionMs < gc.MinRepetitionMs {
		return fmt.Errorf("%s: max_repetition_ms must be >= min_repetition_ms", gc.GoCbRef)
	}
	if (gc.TPID == nil) != (gc.TCI == nil) {
		return fmt.Errorf("%s: tpid and tci must be set together", gc.GoCbRef)
	}
	return nil
}

// ToInitConfig converts gc into the engine's init-command config shape.
func (gc *GooseControlBlock) ToInitConfig() engine.InitConfig {
	allData := make([]engine.JSONValue, len(gc.AllData))
	for i, d := range gc.AllData {
		allData[i] = d.toJSONValue()
	}
	return engine.InitConfig{
		DstAddr:       gc.DstAddr,
		TPID:          gc.TPID,
		TCI:           gc.TCI,
		APPID:         gc.APPID,
		GoCbRef:       gc.GoCbRef,
		DatSet:        gc.DatSet,
		GoID:          gc.GoID,
		Simulation:    gc.Simulation,
		ConfRev:       gc.ConfRev,
		NdsCom:        gc.NdsCom,
		AllData:       allData,
		MinRepetition: gc.MinRepetitionMs,
		MaxRepetition: gc.MaxRepetitionMs,
	}
}

// SmvPublisher is one SMV sample stream's YAML configuration.
type SmvPublisher struct {
	DstAddr    string `yaml:"dst_addr"`
	APPID      uint16 `yaml:"appid"`
	MsvID      string `yaml:"msv_id"`
	DatSet     string `yaml:"dat_set,omitempty"`
	ConfRev    uint32 `yaml:"conf_rev"`
	SmpRate    uint16 `yaml:"smp_rate,omitempty"`
	SmpSynch   string `yaml:"smp_synch"`
	IntervalMs uint64 `yaml:"interval_ms"`
}

// Validate checks sp is sane.
func (sp *SmvPublisher) Validate() error {
	if sp.MsvID == "" {
		return fmt.Errorf("msv_id must not be empty")
	}
	if sp.IntervalMs == 0 {
		return fmt.Errorf("%s: interval_ms must be positive", sp.MsvID)
	}
	if sp.DstAddr != "" {
		if _, err := net.ParseMAC(sp.DstAddr); err != nil {
			return fmt.Errorf("%s: invalid dst_addr %q: %w", sp.MsvID, sp.DstAddr, err)
		}
	}
	switch sp.SmpSynch {
	case "", "none", "local", "global":
	default:
		return fmt.Errorf("%s: smp_synch must be one of none/local/global, got %q", sp.MsvID, sp.SmpSynch)
	}
	return nil
}

// SmpSynchValue translates the YAML smp_synch string into the smv package's
// numeric encoding.
func (sp *SmvPublisher) SmpSynchValue() uint8 {
	switch sp.SmpSynch {
	case "local":
		return smv.SmpSynchLocal
	case "global":
		return smv.SmpSynchGlobal
	default:
		return smv.SmpSynchNone
	}
}

// Config is the top-level YAML document: the interface to publish on, the
// Prometheus exporter address, and the set of GOOSE control blocks and SMV
// publishers this process runs.
type Config struct {
	Interface   string              `yaml:"interface"`
	MetricsAddr string              `yaml:"metrics_addr"`
	Goose       []GooseControlBlock `yaml:"goose"`
	Smv         []SmvPublisher      `yaml:"smv"`
}

// Default returns a Config with sane, overridable defaults rather than
// zero values.
func Default() *Config {
	return &Config{
		Interface:   "eth0",
		MetricsAddr: ":9100",
	}
}

// Validate checks the whole document, including each nested control block
// and publisher, and rejects duplicate goCbRef/msvID entries.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface must be specified")
	}
	seenGoCbRef := make(map[string]bool, len(c.Goose))
	for i := range c.Goose {
		gc := &c.Goose[i]
		if err := gc.Validate(); err != nil {
			return fmt.Errorf("goose[%d]: %w", i, err)
		}
		if seenGoCbRef[gc.GoCbRef] {
			return fmt.Errorf("goose[%d]: duplicate go_cb_ref %q", i, gc.GoCbRef)
		}
		seenGoCbRef[gc.GoCbRef] = true
	}
	seenMsvID := make(map[string]bool, len(c.Smv))
	for i := range c.Smv {
		sp := &c.Smv[i]
		if err := sp.Validate(); err != nil {
			return fmt.Errorf("smv[%d]: %w", i, err)
		}
		if seenMsvID[sp.MsvID] {
			return fmt.Errorf("smv[%d]: duplicate msv_id %q", i, sp.MsvID)
		}
		seenMsvID[sp.MsvID] = true
	}
	return nil
}

// Load reads and validates a Config from path.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: validating %q: %w", path, err)
	}
	return c, nil
}
