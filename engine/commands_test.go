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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/iec61850/value"
)

func TestParseCommandInit(t *testing.T) {
	raw := []byte(`{
		"cmd": "init",
		"config": {
			"dst_addr": "01:0c:cd:01:00:01",
			"appid": 4097,
			"go_cb_ref": "IED1/LLN0$GO$gcb1",
			"dat_set": "IED1/LLN0$DATASET1",
			"go_id": "GOOSE1",
			"conf_rev": 1,
			"all_data": [{"kind": "boolean", "bool": true}],
			"min_repetition": 10,
			"max_repetition": 1000
		}
	}`)
	cmd, err := ParseCommand(raw)
	require.NoError(t, err)
	require.Equal(t, CmdInit, cmd.Cmd)
	require.NotNil(t, cmd.Config)
	require.Equal(t, "IED1/LLN0$GO$gcb1", cmd.Config.GoCbRef)
	require.Equal(t, uint16(4097), cmd.Config.APPID)
	require.Len(t, cmd.Config.AllData, 1)
	require.Equal(t, "boolean", cmd.Config.AllData[0].Kind)
}

func TestParseCommandMalformed(t *testing.T) {
	_, err := ParseCommand([]byte(`{not json`))
	require.Error(t, err)
}

func TestJSONValueRoundTripScalars(t *testing.T) {
	cases := []value.Value{
		value.Boolean(true),
		value.Int(-5),
		value.UInt(42),
		value.Float32(1.5),
		value.Float64(2.25),
		value.VisibleString("hello"),
		value.MmsString("world"),
		value.OctetString([]byte{1, 2, 3}),
	}
	for _, v := range cases {
		j := FromValue(v)
		got, err := j.ToValue()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestJSONValueRoundTripNested(t *testing.T) {
	v := value.Structure(
		value.Boolean(false),
		value.Array(value.Int(1), value.Int(2)),
	)
	j := FromValue(v)
	got, err := j.ToValue()
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestJSONValueUnsupportedKind(t *testing.T) {
	j := JSONValue{Kind: "timestamp"}
	_, err := j.ToValue()
	require.Error(t, err)
}

func TestToValueSlice(t *testing.T) {
	js := []JSONValue{
		{Kind: "boolean", Bool: ptrBool(true)},
		{Kind: "int", Int: ptrInt64(7)},
	}
	vals, err := toValueSlice(js)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Boolean(true), value.Int(7)}, vals)
}

func ptrBool(b bool) *bool    { return &b }
func ptrInt64(i int64) *int64 { return &i }
