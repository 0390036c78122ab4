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

// Package kllemit prints a merge.MergeContext back out as a canonical .kll
// file (spec §6): one statement per line, ids and schedules in canonical
// form, stable ordering by kind then by key. A parse→merge→emit round trip
// through this package is idempotent up to that canonical form (spec §8.4).
// Unlike every other emitter, this one reads the MergeContext directly
// rather than the facade.Facade, since regeneration needs the pre-range-
// expansion, pre-macro-indexed symbolic mappings that FinalData no longer
// carries (spec §6 "prints the MergeContext as a canonical .kll file").
package kllemit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/util"
)

// Format renders mc as a complete canonical .kll document.
func Format(mc *merge.MergeContext) string {
	var b strings.Builder

	writeVariables(&b, mc.Variables)
	writeCapabilities(&b, mc.Capabilities)
	writeNameAssociations(&b, mc.NameAssociations)
	writePositions(&b, mc.ScanCodePositions, mc.PixelPositions)
	writeAnimations(&b, mc.Animations)
	writeLayers(&b, mc.Layers)

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func writeVariables(b *strings.Builder, vars map[string]*kllcontext.Variable) {
	for _, name := range sortedKeys(vars) {
		v := vars[name]

		if v.HasScalar {
			fmt.Fprintf(b, "%s = %s;\n", name, v.Scalar.Canonical())
			continue
		}

		indices := make([]uint32, 0, len(v.Elements))
		for idx := range v.Elements {
			indices = append(indices, idx)
		}

		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

		for _, idx := range indices {
			fmt.Fprintf(b, "%s[%d] = %s;\n", name, idx, v.Elements[idx].Canonical())
		}
	}
}

func writeCapabilities(b *strings.Builder, caps map[string]*ast.Capability) {
	for _, name := range sortedKeys(caps) {
		c := caps[name]
		fmt.Fprintf(b, "capability %s : %s(%s);\n", c.Name, c.Symbol, strings.Join(c.ArgTypes, ", "))
	}
}

func writeNameAssociations(b *strings.Builder, names map[string]*ast.NameAssociation) {
	for _, name := range sortedKeys(names) {
		n := names[name]
		fmt.Fprintf(b, "%s %s : %q;\n", n.Keyword, n.Name, n.CName)
	}
}

func writePositions(b *strings.Builder, scanCodes, pixels map[uint32]ast.Position) {
	scKeys := sortedUint32Keys(scanCodes)
	for _, code := range scKeys {
		writePosition(b, ast.ScanCodeId{Code: uint16(code)}.Canonical(), scanCodes[code])
	}

	pxKeys := sortedUint32Keys(pixels)
	for _, idx := range pxKeys {
		writePosition(b, ast.PixelId{Index: idx}.Canonical(), pixels[idx])
	}
}

func sortedUint32Keys(m map[uint32]ast.Position) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func writePosition(b *strings.Builder, idText string, pos ast.Position) {
	var axes []string

	appendAxis := func(name string, v util.Option[float64]) {
		if v.HasValue() {
			axes = append(axes, fmt.Sprintf("%s:%s", name, formatAxis(v.Unwrap())))
		}
	}

	appendAxis("x", pos.X)
	appendAxis("y", pos.Y)
	appendAxis("z", pos.Z)
	appendAxis("rx", pos.RX)
	appendAxis("ry", pos.RY)
	appendAxis("rz", pos.RZ)

	if len(axes) == 0 {
		return
	}

	fmt.Fprintf(b, "%s : %s;\n", idText, strings.Join(axes, ", "))
}

func formatAxis(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}

	return fmt.Sprintf("%g", v)
}

func writeAnimations(b *strings.Builder, anims map[string]*kllcontext.AnimationEntry) {
	for _, name := range sortedKeys(anims) {
		a := anims[name]

		plus := ""
		if a.AppendMode {
			plus = "+"
		}

		settingKeys := sortedKeys(a.Settings)
		settingParts := make([]string, len(settingKeys))

		for i, k := range settingKeys {
			settingParts[i] = fmt.Sprintf("%s:%s", k, a.Settings[k].Canonical())
		}

		modParts := make([]string, len(a.Modifiers))

		for i, m := range a.Modifiers {
			if m.HasValue {
				modParts[i] = fmt.Sprintf("%s:%s", m.Name, m.Value)
			} else {
				modParts[i] = m.Name
			}
		}

		if len(modParts) > 0 {
			fmt.Fprintf(b, "animation%s %s[%s] : %s;\n", plus, name, strings.Join(modParts, ","), strings.Join(settingParts, ", "))
		} else {
			fmt.Fprintf(b, "animation%s %s : %s;\n", plus, name, strings.Join(settingParts, ", "))
		}

		frameIndices := make([]uint32, 0, len(a.Frames))
		for idx := range a.Frames {
			frameIndices = append(frameIndices, idx)
		}

		sort.Slice(frameIndices, func(i, j int) bool { return frameIndices[i] < frameIndices[j] })

		for _, idx := range frameIndices {
			frame := a.Frames[idx]
			bytes := make([]string, len(frame.Pixels))

			for i, p := range frame.Pixels {
				bytes[i] = fmt.Sprintf("%d", p)
			}

			fmt.Fprintf(b, "frame %s[%d] : %s;\n", name, idx, strings.Join(bytes, ", "))
		}
	}
}

func writeLayers(b *strings.Builder, layers []merge.Layer) {
	for _, layer := range layers {
		keys := make([]string, 0, len(layer.Mappings))
		for k := range layer.Mappings {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, key := range keys {
			m := layer.Mappings[key]
			fmt.Fprintf(b, "%s %s %s;\n", m.Trigger.Canonical(), mapOpText(m), m.Result.Canonical())
		}
	}
}

func mapOpText(m *kllcontext.MappingEntry) string {
	op := ":"
	if m.Isolated {
		op = "::"
	}

	if m.Indicator {
		return "i" + op
	}

	return op
}
