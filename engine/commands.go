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
	"encoding/json"
	"fmt"

	"github.com/facebookincubator/iec61850/value"
)

// Command kinds accepted on the engine's command mailbox.
const (
	CmdInit   = "init"
	CmdUpdate = "update"
	CmdStop   = "stop"
)

// InitConfig is the JSON shape of an "init" command's config object.
type InitConfig struct {
	DstAddr       string      `json:"dst_addr"`
	TPID          *uint16     `json:"tpid,omitempty"`
	TCI           *uint16     `json:"tci,omitempty"`
	APPID         uint16      `json:"appid"`
	GoCbRef       string      `json:"go_cb_ref"`
	DatSet        string      `json:"dat_set"`
	GoID          string      `json:"go_id"`
	Simulation    bool        `json:"simulation"`
	ConfRev       uint64      `json:"conf_rev"`
	NdsCom        bool        `json:"nds_com"`
	AllData       []JSONValue `json:"all_data"`
	MinRepetition uint64      `json:"min_repetition"` // milliseconds
	MaxRepetition uint64      `json:"max_repetition"` // milliseconds
}

// Command is one message on the engine's command mailbox, of one of three
// kinds: init (Config populated), update (Data populated), and stop
// (neither populated).
type Command struct {
	Cmd     string      `json:"cmd"`
	GoCbRef string      `json:"go_cb_ref,omitempty"`
	Config  *InitConfig `json:"config,omitempty"`
	Data    []JSONValue `json:"data,omitempty"`
}

// ParseCommand decodes one JSON command message.
func ParseCommand(raw []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Command{}, fmt.Errorf("engine: malformed command: %w", err)
	}
	return c, nil
}

// JSONValue is the wire-friendly JSON rendering of a value.Value, used only
// at the command-mailbox boundary; the codec itself never touches JSON.
type JSONValue struct {
	Kind     string      `json:"kind"`
	Bool     *bool       `json:"bool,omitempty"`
	Int      *int64      `json:"int,omitempty"`
	UInt     *uint64     `json:"uint,omitempty"`
	F32      *float32    `json:"f32,omitempty"`
	F64      *float64    `json:"f64,omitempty"`
	Str      *string     `json:"str,omitempty"`
	Octets   []byte      `json:"octets,omitempty"`
	Elements []JSONValue `json:"elements,omitempty"`
}

var kindNames = map[value.Kind]string{
	value.KindBoolean:       "boolean",
	value.KindInt:           "int",
	value.KindUInt:          "uint",
	value.KindFloat32:       "float32",
	value.KindFloat64:       "float64",
	value.KindVisibleString: "visiblestring",
	value.KindMmsString:     "mmsstring",
	value.KindOctetString:   "octetstring",
	value.KindArray:         "array",
	value.KindStructure:     "structure",
}

// ToValue converts the wire JSON form into a value.Value. BitString and
// Timestamp are not representable over this JSON boundary: a data set
// carrying either must be set directly via the Go API, not the command
// mailbox.
func (j JSONValue) ToValue() (value.Value, error) {
	switch j.Kind {
	case "boolean":
		return value.Boolean(derefBool(j.Bool)), nil
	case "int":
		return value.Int(derefInt64(j.Int)), nil
	case "uint":
		return value.UInt(derefUint64(j.UInt)), nil
	case "float32":
		return value.Float32(derefFloat32(j.F32)), nil
	case "float64":
		return value.Float64(derefFloat64(j.F64)), nil
	case "visiblestring":
		return value.VisibleString(derefString(j.Str)), nil
	case "mmsstring":
		return value.MmsString(derefString(j.Str)), nil
	case "octetstring":
		return value.OctetString(j.Octets), nil
	case "array", "structure":
		elems := make([]value.Value, 0, len(j.Elements))
		for _, e := range j.Elements {
			v, err := e.ToValue()
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, v)
		}
		if j.Kind == "array" {
			return value.Array(elems...), nil
		}
		return value.Structure(elems...), nil
	default:
		return value.Value{}, fmt.Errorf("engine: unsupported command-protocol value kind %q", j.Kind)
	}
}

// FromValue renders v as its wire JSON form.
func FromValue(v value.Value) JSONValue {
	j := JSONValue{Kind: kindNames[v.Kind]}
	switch v.Kind {
	case value.KindBoolean:
		j.Bool = &v.Bool
	case value.KindInt:
		j.Int = &v.Int
	case value.KindUInt:
		j.UInt = &v.UInt
	case value.KindFloat32:
		j.F32 = &v.F32
	case value.KindFloat64:
		j.F64 = &v.F64
	case value.KindVisibleString, value.KindMmsString:
		j.Str = &v.Str
	case value.KindOctetString:
		j.Octets = v.Octets
	case value.KindArray, value.KindStructure:
		j.Elements = make([]JSONValue, len(v.Elements))
		for i, e := range v.Elements {
			j.Elements[i] = FromValue(e)
		}
	}
	return j
}

func toValueSlice(js []JSONValue) ([]value.Value, error) {
	out := make([]value.Value, 0, len(js))
	for _, j := range js {
		v, err := j.ToValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefUint64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat32(p *float32) float32 {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
