// Copyright KLL Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package jsonemit renders a facade.Facade as the stable JSON object
// described by spec §6: one top-level object with keys {variables,
// capabilities, layers, trigger_macros, result_macros, pixel_mapping,
// pixel_display_mapping, animations, scancode_positions, pixel_positions,
// kll_version, compiler_version}, array orderings matching emission order.
package jsonemit

import (
	"github.com/bytedance/sonic"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/facade"
	"github.com/kll-tools/kll-compiler/pkg/finalize"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
)

// KLLVersion is the KLL language-spec version this emitter's output format
// targets.
const KLLVersion = "0.5"

// CompilerVersion is overridable by the driver via -ldflags, matching the
// teacher's own `pkg/cmd`'s version-stamping convention.
var CompilerVersion = "dev"

type document struct {
	Variables           map[string]any      `json:"variables"`
	Capabilities        []capabilityDoc      `json:"capabilities"`
	Layers              []layerDoc           `json:"layers"`
	TriggerMacros       []sequenceDoc        `json:"trigger_macros"`
	ResultMacros        []sequenceDoc        `json:"result_macros"`
	PixelMapping        []pixelSlotDoc       `json:"pixel_mapping"`
	PixelDisplayMapping [][]uint32           `json:"pixel_display_mapping"`
	Animations          map[string]animation `json:"animations"`
	ScanCodePositions   []positionDoc        `json:"scancode_positions"`
	PixelPositions      []pixelPositionDoc   `json:"pixel_positions"`
	KLLVersion          string               `json:"kll_version"`
	CompilerVersion     string               `json:"compiler_version"`
}

type capabilityDoc struct {
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	ArgTypes []string `json:"arg_types"`
}

type layerDoc struct {
	TriggerToResult map[string]int `json:"trigger_to_result"`
}

type comboDoc []idDoc
type sequenceDoc []comboDoc

type idDoc map[string]any

type pixelSlotDoc struct {
	Blank       bool         `json:"blank"`
	Index       uint32       `json:"index"`
	Channels    []channelDoc `json:"channels,omitempty"`
	AddressMode string       `json:"address_mode,omitempty"`
}

type channelDoc struct {
	Index uint8 `json:"index"`
	Width uint8 `json:"width"`
}

type positionDoc struct {
	ScanCode uint16     `json:"scancode"`
	Axes     [6]float64 `json:"axes"`
}

type pixelPositionDoc struct {
	Index uint32     `json:"index"`
	Axes  [6]float64 `json:"axes"`
}

type animation struct {
	Modifiers  []string         `json:"modifiers"`
	AppendMode bool             `json:"append_mode"`
	Settings   map[string]any   `json:"settings"`
	Frames     map[string][]byte `json:"frames"`
}

// Marshal renders f's full result as the spec §6 JSON document.
func Marshal(f *facade.Facade) ([]byte, error) {
	doc := document{
		Variables:           f.Variables(),
		Capabilities:        capabilities(f.Capabilities()),
		Layers:              layers(f.Layers()),
		TriggerMacros:       sequences(f.TriggerMacros()),
		ResultMacros:        sequences(f.ResultMacros()),
		PixelMapping:        pixelMapping(f.PixelMap()),
		PixelDisplayMapping: f.PixelDisplayMap(),
		Animations:          animations(f.Animations()),
		ScanCodePositions:   scanCodePositions(f.ScanCodePositions()),
		PixelPositions:      pixelPositions(f.PixelPositions()),
		KLLVersion:          KLLVersion,
		CompilerVersion:     CompilerVersion,
	}

	return sonic.Marshal(doc)
}

func capabilities(caps []*ast.Capability) []capabilityDoc {
	out := make([]capabilityDoc, len(caps))
	for i, c := range caps {
		out[i] = capabilityDoc{Name: c.Name, Symbol: c.Symbol, ArgTypes: c.ArgTypes}
	}

	return out
}

func layers(ls []finalize.FinalLayer) []layerDoc {
	out := make([]layerDoc, len(ls))

	for i, l := range ls {
		m := make(map[string]int, len(l.TriggerToResult))
		for trigger, result := range l.TriggerToResult {
			m[itoa(trigger)] = result
		}

		out[i] = layerDoc{TriggerToResult: m}
	}

	return out
}

func sequences(seqs []ast.Sequence) []sequenceDoc {
	out := make([]sequenceDoc, len(seqs))
	for i, seq := range seqs {
		out[i] = sequenceDocOf(seq)
	}

	return out
}

func sequenceDocOf(seq ast.Sequence) sequenceDoc {
	out := make(sequenceDoc, len(seq))
	for i, combo := range seq {
		out[i] = comboDocOf(combo)
	}

	return out
}

func comboDocOf(combo ast.Combo) comboDoc {
	out := make(comboDoc, len(combo))
	for i, idExpr := range combo {
		out[i] = idExprDoc(idExpr)
	}

	return out
}

func idExprDoc(e ast.IdExpr) idDoc {
	d := idJSON(e.Id)

	if e.Schedule.HasValue() {
		params := e.Schedule.Unwrap()
		states := make([]string, len(params))

		for i, p := range params {
			states[i] = p.Canonical()
		}

		d["schedule"] = states
	}

	return d
}

// idJSON renders an ast.Id as a discriminated object (spec §6: "ids are
// objects with discriminator fields `kind` and `code` or `name`").
func idJSON(id ast.Id) idDoc {
	switch v := id.(type) {
	case ast.HidId:
		d := idDoc{"kind": "hid", "hid_page": hidPageName(v.Kind), "code": v.Code}
		if v.HasSymbol {
			d["name"] = v.Symbol
		}

		return d
	case ast.ScanCodeId:
		return idDoc{"kind": "scancode", "code": v.Code}
	case ast.PixelId:
		return idDoc{"kind": "pixel", "code": v.Index}
	case ast.PixelLayerId:
		return idDoc{"kind": "pixellayer", "code": v.Index}
	case ast.AnimationId:
		return idDoc{"kind": "animation", "name": v.Name}
	case ast.CapabilityId:
		return idDoc{"kind": "capability", "name": v.Name}
	case ast.UsbCodeId:
		return idDoc{"kind": "usbcode", "code": v.Code}
	case ast.GenericTriggerId:
		return idDoc{"kind": "generictrigger", "code": v.Code}
	case ast.NoneId:
		return idDoc{"kind": "none"}
	case ast.UnicodeCodePointId:
		return idDoc{"kind": "unicode", "code": uint32(v.CodePoint)}
	case ast.CharacterId:
		return idDoc{"kind": "character", "name": string(v.Char)}
	case ast.StringId:
		return idDoc{"kind": "string", "name": v.Text}
	case ast.LayerId:
		return idDoc{"kind": "layer", "name": v.Kind.String(), "code": v.Index}
	case ast.RangeId:
		return idDoc{"kind": "range", "code": v.Start, "end": v.End}
	default:
		return idDoc{"kind": "unknown", "name": id.Canonical()}
	}
}

func hidPageName(k ast.HidKind) string {
	switch k {
	case ast.HidKeyboard:
		return "keyboard"
	case ast.HidConsumer:
		return "consumer"
	case ast.HidSystem:
		return "system"
	case ast.HidIndicator:
		return "indicator"
	case ast.HidLocale:
		return "locale"
	default:
		return "keyboard"
	}
}

func pixelMapping(slots []finalize.PixelSlot) []pixelSlotDoc {
	out := make([]pixelSlotDoc, len(slots))

	for i, s := range slots {
		d := pixelSlotDoc{Blank: s.Blank, Index: s.Index}

		if !s.Blank {
			d.Channels = make([]channelDoc, len(s.Channels))
			for j, c := range s.Channels {
				d.Channels[j] = channelDoc{Index: c.Index, Width: c.Width}
			}

			if s.AddressMode == ast.RelativeSigned {
				d.AddressMode = "relative"
			} else {
				d.AddressMode = "absolute"
			}
		}

		out[i] = d
	}

	return out
}

func animations(anims map[string]*kllcontext.AnimationEntry) map[string]animation {
	out := make(map[string]animation, len(anims))

	for name, a := range anims {
		mods := make([]string, len(a.Modifiers))
		for i, m := range a.Modifiers {
			if m.HasValue {
				mods[i] = m.Name + ":" + m.Value
			} else {
				mods[i] = m.Name
			}
		}

		settings := make(map[string]any, len(a.Settings))
		for k, v := range a.Settings {
			settings[k] = valueDoc(v)
		}

		frames := make(map[string][]byte, len(a.Frames))
		for idx, frame := range a.Frames {
			frames[itoa(int(idx))] = frame.Pixels
		}

		out[name] = animation{Modifiers: mods, AppendMode: a.AppendMode, Settings: settings, Frames: frames}
	}

	return out
}

func valueDoc(v ast.Value) any {
	switch val := v.(type) {
	case ast.IntValue:
		return int64(val)
	case ast.StringValue:
		return string(val)
	case ast.IdValue:
		return idJSON(val.Id)
	default:
		return val.Canonical()
	}
}

func scanCodePositions(positions []finalize.ScanCodePosition) []positionDoc {
	out := make([]positionDoc, len(positions))
	for i, p := range positions {
		out[i] = positionDoc{ScanCode: p.ScanCode, Axes: p.Axes}
	}

	return out
}

func pixelPositions(positions []finalize.PixelPosition) []pixelPositionDoc {
	out := make([]pixelPositionDoc, len(positions))
	for i, p := range positions {
		out[i] = pixelPositionDoc{Index: p.Index, Axes: p.Axes}
	}

	return out
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	neg := i < 0
	if neg {
		i = -i
	}

	var buf [20]byte

	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if neg {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
