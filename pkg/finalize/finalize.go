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

// Package finalize projects a merge.MergeContext into FinalData: dense,
// integer-indexed tables ready for emission (spec §4.5). It never mutates
// its input; every run over the same MergeContext produces a separate,
// independent FinalData value.
package finalize

import (
	"sort"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/source"
)

// DefaultPixelPitchMM is the column/row bucket size used to build the pixel
// display map when the caller does not supply one (spec §4.5 "a
// configurable pitch"), approximating a standard mechanical-keyboard key
// pitch.
const DefaultPixelPitchMM = 19.05

// FinalLayer is one layer's finalized view: which trigger macros are active
// and what they resolve to, plus the per-scan-code trigger-list index the
// firmware uses to dispatch an activation (spec §4.5).
type FinalLayer struct {
	// TriggerToResult maps a trigger-macro index to the result-macro index
	// it resolves to in this layer.
	TriggerToResult map[int]int
	// ScanCodeTriggers maps a scan code to the ordered list of trigger-macro
	// indices (in first-appearance order) whose trigger sequence begins
	// with that scan code.
	ScanCodeTriggers map[uint16][]int
}

// PixelSlot is one entry of the dense pixel map; Blank marks an index with
// no channel data (spec §8 invariant: "unused slots carry an explicit Blank
// tag").
type PixelSlot struct {
	Blank       bool
	Index       uint32
	Channels    []ast.PixelChannel
	AddressMode ast.AddressMode
}

// ScanCodePosition is one scan code's resolved six-axis position.
type ScanCodePosition struct {
	ScanCode uint16
	Axes     [6]float64
}

// PixelPosition is one pixel's resolved six-axis position.
type PixelPosition struct {
	Index uint32
	Axes  [6]float64
}

// FinalData is the complete, immutable output of finalization (spec §4.5,
// §4.6). Nothing downstream of Finalize mutates it.
type FinalData struct {
	TriggerMacros []ast.Sequence
	ResultMacros  []ast.Sequence
	Capabilities  []*ast.Capability

	Layers []FinalLayer

	PixelMap        []PixelSlot // dense, index 0 unused, 1..MaxPixel populated
	PixelDisplayMap [][]uint32  // [row][col] -> pixel index, 0 = unmapped

	Animations map[string]*kllcontext.AnimationEntry

	ScanCodePositions []ScanCodePosition
	PixelPositions    []PixelPosition
}

// indexer assigns stable, first-appearance-order integer indices to
// canonically-keyed values (spec §4.5 "Trigger macro table... assigned
// stable integer indices in the order they first appear").
type indexer struct {
	order []string
	index map[string]int
}

func newIndexer() *indexer {
	return &indexer{index: map[string]int{}}
}

func (ix *indexer) intern(key string) int {
	if i, ok := ix.index[key]; ok {
		return i
	}

	i := len(ix.order)
	ix.order = append(ix.order, key)
	ix.index[key] = i

	return i
}

// Finalize projects mc into FinalData, expanding ranges, assigning macro
// indices by deterministic traversal, and building the pixel and position
// tables. pixelPitchMM of 0 selects DefaultPixelPitchMM. The first
// finalization error stops it and is returned with a nil FinalData.
func Finalize(mc *merge.MergeContext, pixelPitchMM float64) (*FinalData, *kllerr.List) {
	diags := &kllerr.List{}

	if pixelPitchMM <= 0 {
		pixelPitchMM = DefaultPixelPitchMM
	}

	expandedLayers := make([]map[string]*finalMapping, len(mc.Layers))

	for i, layer := range mc.Layers {
		fm, layerDiags := expandLayer(layer.Mappings)
		diags.Join(layerDiags)

		if layerDiags.HasErrors() {
			return nil, diags
		}

		expandedLayers[i] = fm
	}

	triggers := newIndexer()
	results := newIndexer()
	triggerSeqs := map[string]ast.Sequence{}
	resultSeqs := map[string]ast.Sequence{}

	finalLayers := make([]FinalLayer, len(expandedLayers))

	for i, fm := range expandedLayers {
		keys := make([]string, 0, len(fm))
		for k := range fm {
			keys = append(keys, k)
		}

		sort.Slice(keys, func(a, b int) bool {
			return lessByTraversalOrder(fm[keys[a]], fm[keys[b]])
		})

		triggerToResult := map[int]int{}
		scanCodeTriggers := map[uint16][]int{}

		for _, key := range keys {
			m := fm[key]

			triggerSeqs[m.Trigger.Canonical()] = m.Trigger
			resultSeqs[m.Result.Canonical()] = m.Result

			ti := triggers.intern(m.Trigger.Canonical())
			ri := results.intern(m.Result.Canonical())
			triggerToResult[ti] = ri

			if sc, ok := firstScanCode(m.Trigger); ok {
				scanCodeTriggers[sc] = append(scanCodeTriggers[sc], ti)
			}
		}

		finalLayers[i] = FinalLayer{TriggerToResult: triggerToResult, ScanCodeTriggers: scanCodeTriggers}
	}

	triggerMacros := make([]ast.Sequence, len(triggers.order))
	for i, key := range triggers.order {
		triggerMacros[i] = triggerSeqs[key]
	}

	resultMacros := make([]ast.Sequence, len(results.order))
	for i, key := range results.order {
		resultMacros[i] = resultSeqs[key]
	}

	capabilities := finalizeCapabilities(mc.Capabilities)
	pixelMap := finalizePixelMap(triggerMacros, resultMacros)
	pixelDisplayMap := finalizePixelDisplayMap(mc.PixelPositions, pixelPitchMM)
	scanCodePositions := finalizeScanCodePositions(mc.ScanCodePositions)
	pixelPositions := finalizePixelPositions(mc.PixelPositions)

	return &FinalData{
		TriggerMacros:     triggerMacros,
		ResultMacros:      resultMacros,
		Capabilities:      capabilities,
		Layers:            finalLayers,
		PixelMap:          pixelMap,
		PixelDisplayMap:   pixelDisplayMap,
		Animations:        mc.Animations,
		ScanCodePositions: scanCodePositions,
		PixelPositions:    pixelPositions,
	}, diags
}

// finalMapping is one concrete (range-free) mapping ready for macro-index
// assignment.
type finalMapping struct {
	Trigger   ast.Sequence
	Result    ast.Sequence
	File      *source.File
	FileOrder int
	Line      int
}

func lessByTraversalOrder(a, b *finalMapping) bool {
	if a.FileOrder != b.FileOrder {
		return a.FileOrder < b.FileOrder
	}

	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Trigger.Canonical() < b.Trigger.Canonical()
}

func firstScanCode(seq ast.Sequence) (uint16, bool) {
	if len(seq) == 0 || len(seq[0]) == 0 {
		return 0, false
	}

	sc, ok := seq[0][0].Id.(ast.ScanCodeId)
	if !ok {
		return 0, false
	}

	return sc.Code, true
}

// expandLayer expands every range-bearing trigger in a layer's mappings into
// its enumerated concrete triggers (spec §4.5 "Range expansion"). An
// expansion that collides with an explicit (range-free) mapping for the
// same concrete trigger loses to the explicit one; two ranges expanding to
// the same trigger is a hard error.
func expandLayer(layer map[string]*kllcontext.MappingEntry) (map[string]*finalMapping, *kllerr.List) {
	diags := &kllerr.List{}

	explicit := map[string]*finalMapping{}
	ranged := map[string]*finalMapping{}
	rangedOrigin := map[string]string{}

	for key, entry := range layer {
		if !sequenceHasRange(entry.Trigger) {
			explicit[entry.Trigger.Canonical()] = &finalMapping{
				Trigger: entry.Trigger, Result: entry.Result, File: entry.File,
				FileOrder: entry.FileOrder, Line: entry.Line,
			}

			continue
		}

		for _, variant := range expandRanges(entry.Trigger) {
			vkey := variant.Canonical()

			if origin, ok := rangedOrigin[vkey]; ok && origin != key {
				diags.Add(kllerr.NewLineError(kllerr.Finalization, entry.File, entry.Line,
					"range %q and range %q both expand to trigger %q", key, origin, vkey))

				return nil, diags
			}

			rangedOrigin[vkey] = key
			ranged[vkey] = &finalMapping{
				Trigger: variant, Result: entry.Result, File: entry.File,
				FileOrder: entry.FileOrder, Line: entry.Line,
			}
		}
	}

	final := make(map[string]*finalMapping, len(explicit)+len(ranged))

	for k, v := range ranged {
		final[k] = v
	}

	for k, v := range explicit {
		final[k] = v
	}

	checkAnalogSchedules(final, diags)

	return final, diags
}

// checkAnalogSchedules resolves spec §9 open question (c): an analog-value
// schedule on a scan code is accepted by some sources regardless of whether
// that switch is actually wired as analog hardware, since nothing in the
// data model records per-scan-code analog capability. Conservatively warn on
// every occurrence rather than silently accepting or hard-erroring.
func checkAnalogSchedules(fm map[string]*finalMapping, diags *kllerr.List) {
	for _, m := range fm {
		for _, combo := range m.Trigger {
			for _, idExpr := range combo {
				sc, ok := idExpr.Id.(ast.ScanCodeId)
				if !ok || idExpr.Schedule.IsEmpty() {
					continue
				}

				for _, param := range idExpr.Schedule.Unwrap() {
					if param.Analog.HasValue() {
						diags.Warn(kllerr.NewLineWarning(m.File, m.Line,
							"analog-value schedule on scan code S0x%X; only meaningful if this switch is wired as analog hardware",
							sc.Code))
					}
				}
			}
		}
	}
}

func sequenceHasRange(seq ast.Sequence) bool {
	for _, combo := range seq {
		for _, idExpr := range combo {
			if _, ok := idExpr.Id.(ast.RangeId); ok {
				return true
			}
		}
	}

	return false
}

// expandRanges returns every concrete Sequence obtained by substituting each
// RangeId occurrence in seq with one member of its expansion, the cartesian
// product across however many ranges a single trigger happens to contain
// (in practice almost always exactly one).
func expandRanges(seq ast.Sequence) []ast.Sequence {
	variants := []ast.Sequence{cloneSequence(seq)}

	for comboIdx, combo := range seq {
		for idExprIdx, idExpr := range combo {
			rng, ok := idExpr.Id.(ast.RangeId)
			if !ok {
				continue
			}

			expandedIds := rng.Expand()
			next := make([]ast.Sequence, 0, len(variants)*len(expandedIds))

			for _, v := range variants {
				for _, id := range expandedIds {
					nv := cloneSequence(v)
					nv[comboIdx][idExprIdx] = ast.IdExpr{Id: id, Schedule: v[comboIdx][idExprIdx].Schedule}
					next = append(next, nv)
				}
			}

			variants = next
		}
	}

	return variants
}

func cloneSequence(seq ast.Sequence) ast.Sequence {
	out := make(ast.Sequence, len(seq))
	for i, combo := range seq {
		out[i] = append(ast.Combo(nil), combo...)
	}

	return out
}

// finalizeCapabilities orders capability declarations by their (role,
// file order, line) traversal position. Macro tables use a different key,
// (file order, line, canonical trigger), with no role rank (spec §4.5).
func finalizeCapabilities(caps map[string]*ast.Capability) []*ast.Capability {
	list := make([]*ast.Capability, 0, len(caps))
	for _, c := range caps {
		list = append(list, c)
	}

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Role() != b.Role() {
			return a.Role() < b.Role()
		}

		if a.FileOrder() != b.FileOrder() {
			return a.FileOrder() < b.FileOrder()
		}

		if a.Line() != b.Line() {
			return a.Line() < b.Line()
		}

		return a.Name < b.Name
	})

	return list
}

// finalizePixelMap derives each addressed pixel's channel layout from the
// first PixelId occurrence seen (in trigger-macro, then result-macro,
// first-appearance order) across every finalized mapping, since spec §3/§4.5
// do not give pixel channel layout its own store; it rides along wherever a
// PixelId is used. Indices are left dense 1..max, with gaps marked Blank
// (spec §8 "Pixel index density").
func finalizePixelMap(triggerMacros, resultMacros []ast.Sequence) []PixelSlot {
	channels := map[uint32]ast.PixelId{}
	var maxIndex uint32

	record := func(seq ast.Sequence) {
		for _, combo := range seq {
			for _, idExpr := range combo {
				p, ok := idExpr.Id.(ast.PixelId)
				if !ok {
					continue
				}

				if _, seen := channels[p.Index]; !seen {
					channels[p.Index] = p
				}

				if p.Index > maxIndex {
					maxIndex = p.Index
				}
			}
		}
	}

	for _, seq := range triggerMacros {
		record(seq)
	}

	for _, seq := range resultMacros {
		record(seq)
	}

	if maxIndex == 0 {
		return nil
	}

	slots := make([]PixelSlot, maxIndex+1)

	for i := uint32(1); i <= maxIndex; i++ {
		p, ok := channels[i]
		if !ok {
			slots[i] = PixelSlot{Blank: true, Index: i}
			continue
		}

		slots[i] = PixelSlot{Index: i, Channels: p.Channels, AddressMode: p.AddressMode}
	}

	return slots
}

// finalizePixelDisplayMap buckets each positioned pixel into a 2-D grid by
// dividing its x/y position by pitchMM (spec §4.5 "PixelDisplayMapping is a
// 2-D grid... bucketing x into columns by a configurable pitch and y into
// rows"). Missing positions become 0 (unmapped).
func finalizePixelDisplayMap(positions map[uint32]ast.Position, pitchMM float64) [][]uint32 {
	if len(positions) == 0 {
		return nil
	}

	maxCol, maxRow := 0, 0
	cells := map[[2]int]uint32{}

	for idx, pos := range positions {
		axes := pos.Resolved()
		col := int(axes[0] / pitchMM)
		row := int(axes[1] / pitchMM)

		if col < 0 {
			col = 0
		}

		if row < 0 {
			row = 0
		}

		cells[[2]int{row, col}] = idx

		if col > maxCol {
			maxCol = col
		}

		if row > maxRow {
			maxRow = row
		}
	}

	grid := make([][]uint32, maxRow+1)
	for r := range grid {
		grid[r] = make([]uint32, maxCol+1)
	}

	for rc, idx := range cells {
		grid[rc[0]][rc[1]] = idx
	}

	return grid
}

func finalizeScanCodePositions(positions map[uint32]ast.Position) []ScanCodePosition {
	codes := make([]uint32, 0, len(positions))
	for code := range positions {
		codes = append(codes, code)
	}

	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	out := make([]ScanCodePosition, len(codes))
	for i, code := range codes {
		out[i] = ScanCodePosition{ScanCode: uint16(code), Axes: positions[code].Resolved()}
	}

	return out
}

func finalizePixelPositions(positions map[uint32]ast.Position) []PixelPosition {
	indices := make([]uint32, 0, len(positions))
	for idx := range positions {
		indices = append(indices, idx)
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	out := make([]PixelPosition, len(indices))
	for i, idx := range indices {
		out[i] = PixelPosition{Index: idx, Axes: positions[idx].Resolved()}
	}

	return out
}
