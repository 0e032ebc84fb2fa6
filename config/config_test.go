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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/iec61850/smv"
)

const sampleYAML = `
interface: eth1
metrics_addr: ":9200"
goose:
  - dst_addr: "01:0c:cd:01:00:01"
    appid: 4097
    go_cb_ref: "IED1/LLN0$GO$gcb1"
    dat_set: "IED1/LLN0$DATASET1"
    go_id: "GOOSE1"
    conf_rev: 1
    min_repetition_ms: 10
    max_repetition_ms: 1000
    all_data:
      - kind: boolean
        bool: true
      - kind: int
        int: 42
smv:
  - dst_addr: "01:0c:cd:04:00:01"
    appid: 4001
    msv_id: "IED1/LLN0$MSVCB01"
    conf_rev: 1
    smp_rate: 80
    smp_synch: global
    interval_ms: 4
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "eth1", cfg.Interface)
	require.Equal(t, ":9200", cfg.MetricsAddr)
	require.Len(t, cfg.Goose, 1)
	require.Equal(t, "IED1/LLN0$GO$gcb1", cfg.Goose[0].GoCbRef)
	require.Len(t, cfg.Goose[0].AllData, 2)
	require.Len(t, cfg.Smv, 1)
	require.Equal(t, "01:0c:cd:04:00:01", cfg.Smv[0].DstAddr)
	require.Equal(t, uint16(4001), cfg.Smv[0].APPID)
	require.Equal(t, "global", cfg.Smv[0].SmpSynch)
	require.Equal(t, smv.SmpSynchGlobal, cfg.Smv[0].SmpSynchValue())
}

func TestValidateRejectsBadSmvDstAddr(t *testing.T) {
	yamlDoc := `
smv:
  - msv_id: "m"
    dst_addr: "not-a-mac"
    interval_ms: 4
`
	path := writeTempConfig(t, yamlDoc)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/no/such/file.yaml")
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "goose: []\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "eth0", cfg.Interface)
	require.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestValidateRejectsDuplicateGoCbRef(t *testing.T) {
	yamlDoc := `
goose:
  - go_cb_ref: "gcb1"
    min_repetition_ms: 10
    max_repetition_ms: 100
  - go_cb_ref: "gcb1"
    min_repetition_ms: 10
    max_repetition_ms: 100
`
	path := writeTempConfig(t, yamlDoc)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate go_cb_ref")
}

func TestValidateRejectsBadRepetitionRange(t *testing.T) {
	yamlDoc := `
goose:
  - go_cb_ref: "gcb1"
    min_repetition_ms: 100
    max_repetition_ms: 10
`
	path := writeTempConfig(t, yamlDoc)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsMismatchedVlanFields(t *testing.T) {
	tpid := uint16(0x8100)
	gc := GooseControlBlock{
		GoCbRef:         "gcb1",
		MinRepetitionMs: 10,
		MaxRepetitionMs: 100,
		TPID:            &tpid,
	}
	err := gc.Validate()
	require.Error(t, err)
}

func TestGooseControlBlockToInitConfig(t *testing.T) {
	b := true
	gc := GooseControlBlock{
		DstAddr:         "01:0c:cd:01:00:01",
		APPID:           0x1001,
		GoCbRef:         "gcb1",
		MinRepetitionMs: 10,
		MaxRepetitionMs: 1000,
		AllData:         []DataPoint{{Kind: "boolean", Bool: &b}},
	}
	ic := gc.ToInitConfig()
	require.Equal(t, gc.DstAddr, ic.DstAddr)
	require.Equal(t, uint64(10), ic.MinRepetition)
	require.Equal(t, uint64(1000), ic.MaxRepetition)
	require.Len(t, ic.AllData, 1)
	require.Equal(t, "boolean", ic.AllData[0].Kind)
}

func TestSmpSynchValueDefaultsToNone(t *testing.T) {
	sp := SmvPublisher{MsvID: "m", IntervalMs: 1}
	require.Equal(t, smv.SmpSynchNone, sp.SmpSynchValue())
}
