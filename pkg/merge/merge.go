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

// Package merge folds the per-role contexts built by pkg/kllcontext into a
// single MergeContext, in the fixed precedence order of spec §4.4: Generic
// < Configuration < BaseMap < DefaultMap < PartialMap_N (ascending N) <
// explicit Merge. Layer projection (layer 0 = BaseMap ∪ DefaultMap, layer
// N+1 = PartialMap_N) happens here too, since it is a direct consequence of
// the fold order rather than a finalization concern.
package merge

import (
	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
)

// Layer is one projected layer's mappings: layer 0 is the BaseMap+DefaultMap
// view, layer N (N>=1) is PartialMap_N's own entries only (spec §4.4
// "the compiler must emit the partial layer's own entries only, never
// layer-0 copies" — the fallthrough itself is a firmware-runtime concern,
// not something FinalData needs to materialize).
type Layer struct {
	Mappings map[string]*kllcontext.MappingEntry
}

// MergeContext is the result of folding every context in precedence order.
// Its maps are its own, so adding or removing keys leaves the input contexts
// untouched, but the entries are not copied: variables, capabilities, name
// associations and mapping entries are the same pointers the input contexts
// hold. Animation entries, and mapping entries produced by a cross-context
// `:+`/`:-`, are new values built during the merge.
type MergeContext struct {
	Variables        map[string]*kllcontext.Variable
	Capabilities     map[string]*ast.Capability
	NameAssociations map[string]*ast.NameAssociation
	Animations       map[string]*kllcontext.AnimationEntry

	PixelPositions    map[uint32]ast.Position
	ScanCodePositions map[uint32]ast.Position

	// Layers holds the final merged mapping view per projected layer.
	// Layers[0] is BaseMap ∪ DefaultMap; Layers[i] for i>=1 is the i-th
	// declared PartialMap context's own entries (spec §4.4).
	Layers []Layer
}

// Merge folds generic, config, base, default and the declared partial
// layers (in ascending order) into one MergeContext, then folds an optional
// trailing explicit-Merge context on top of everything (spec §4.4's order:
// "...PartialMaps in declaration order → explicit Merge").
func Merge(generic, config, base, deflt *kllcontext.Context, partials []*kllcontext.Context, explicit *kllcontext.Context) (*MergeContext, *kllerr.List) {
	diags := &kllerr.List{}

	mc := &MergeContext{
		Variables:         map[string]*kllcontext.Variable{},
		Capabilities:      map[string]*ast.Capability{},
		NameAssociations:  map[string]*ast.NameAssociation{},
		Animations:        map[string]*kllcontext.AnimationEntry{},
		PixelPositions:    map[uint32]ast.Position{},
		ScanCodePositions: map[uint32]ast.Position{},
	}

	// layer0 accumulates BaseMap ∪ DefaultMap's mapping view directly, since
	// that fold is exactly the same isolate-aware rule used for every other
	// layer (spec §4.4 "higher-precedence context's mapping replaces the
	// lower, unless the lower was marked isolated").
	layer0 := map[string]*kllcontext.MappingEntry{}

	for _, ctx := range []*kllcontext.Context{generic, config} {
		foldScalarStores(mc, ctx, diags)
	}

	for _, ctx := range []*kllcontext.Context{generic, config, base, deflt} {
		foldMappings(layer0, ctx, diags)
	}

	foldScalarStores(mc, base, diags)
	foldScalarStores(mc, deflt, diags)

	mc.Layers = make([]Layer, 1+len(partials))
	mc.Layers[0] = Layer{Mappings: layer0}

	for i, partial := range partials {
		foldScalarStores(mc, partial, diags)

		layer := map[string]*kllcontext.MappingEntry{}
		for key, entry := range layer0 {
			layer[key] = entry
		}

		foldMappings(layer, partial, diags)

		// Retain only this partial layer's own entries (spec §4.4: never
		// emit layer-0 copies), recomputed from a fresh layer-0 base so
		// isolation interacts correctly, then diffed back out.
		own := map[string]*kllcontext.MappingEntry{}

		for key, entry := range layer {
			if origin, inLayer0 := layer0[key]; !inLayer0 || origin != entry {
				own[key] = entry
			}
		}

		mc.Layers[i+1] = Layer{Mappings: own}
	}

	if explicit != nil {
		foldScalarStores(mc, explicit, diags)

		for i := range mc.Layers {
			foldMappings(mc.Layers[i].Mappings, explicit, diags)
		}
	}

	return mc, diags
}

// foldScalarStores merges every store except mappings (which layer
// projection handles separately): higher-precedence values replace lower
// ones, with capability-signature and name-association-target conflicts
// reported as hard errors (spec §4.4).
func foldScalarStores(mc *MergeContext, ctx *kllcontext.Context, diags *kllerr.List) {
	if ctx == nil {
		return
	}

	for name, v := range ctx.Variables {
		mc.Variables[name] = v
	}

	for name, cap := range ctx.Capabilities {
		if existing, ok := mc.Capabilities[name]; ok && existing.Signature() != cap.Signature() {
			diags.Add(kllerr.NewLineError(kllerr.Merge, cap.File(), cap.Line(),
				"capability %q redeclared across contexts with a different signature (was %q, now %q)",
				name, existing.Signature(), cap.Signature()))

			continue
		}

		mc.Capabilities[name] = cap
	}

	for name, n := range ctx.NameAssociations {
		if existing, ok := mc.NameAssociations[name]; ok && existing.CName != n.CName {
			diags.Add(kllerr.NewLineError(kllerr.Merge, n.File(), n.Line(),
				"%s association %q redeclared across contexts with a different target (was %q, now %q)",
				n.Keyword, name, existing.CName, n.CName))

			continue
		}

		mc.NameAssociations[name] = n
	}

	for idx, pos := range ctx.PixelPositions {
		mc.PixelPositions[idx] = mc.PixelPositions[idx].Overlay(pos)
	}

	for idx, pos := range ctx.ScanCodePositions {
		mc.ScanCodePositions[idx] = mc.ScanCodePositions[idx].Overlay(pos)
	}

	for name, anim := range ctx.Animations {
		mergeAnimation(mc, name, anim)
	}
}

// mergeAnimation merges one context's animation entry on top of whatever the
// MergeContext already has: settings merge by field, frames replace
// wholesale unless the animation is in append mode (spec §4.4).
func mergeAnimation(mc *MergeContext, name string, anim *kllcontext.AnimationEntry) {
	existing, ok := mc.Animations[name]
	if !ok {
		merged := &kllcontext.AnimationEntry{
			Name:       name,
			Modifiers:  anim.Modifiers,
			AppendMode: anim.AppendMode,
			Settings:   map[string]ast.Value{},
			Frames:     map[uint32]*ast.AnimationFrame{},
		}

		for k, v := range anim.Settings {
			merged.Settings[k] = v
		}

		for idx, f := range anim.Frames {
			merged.Frames[idx] = f
		}

		mc.Animations[name] = merged

		return
	}

	existing.Modifiers = anim.Modifiers
	existing.AppendMode = anim.AppendMode

	for k, v := range anim.Settings {
		existing.Settings[k] = v
	}

	if anim.AppendMode {
		for idx, f := range anim.Frames {
			existing.Frames[idx] = f
		}
	} else {
		existing.Frames = make(map[uint32]*ast.AnimationFrame, len(anim.Frames))
		for idx, f := range anim.Frames {
			existing.Frames[idx] = f
		}
	}
}

// foldMappings folds one context's Mappings store into an accumulating
// layer view, honoring isolation (spec §4.4): a lower context's isolated
// entry survives a plain override attempt, which is reported as a warning
// and discarded. Two contexts both isolating the same trigger-key is under-
// specified by spec §9 open question (b); the higher-precedence one wins,
// with a warning, rather than silently picking either.
//
// An incoming entry tagged ast.OpAddTo/ast.OpRemoveFrom (kllcontext.Context
// never had a local base to resolve it against) accumulates onto the lower
// layer's current result instead of replacing it outright (spec §4.4:
// "`:+`/`:-` in a higher context accumulate on top of the lower context's
// current result set") — this is the cross-context counterpart of the
// intra-context accumulation kllcontext.Context.applyMapping already does
// within one context's own file list.
func foldMappings(layer map[string]*kllcontext.MappingEntry, ctx *kllcontext.Context, diags *kllerr.List) {
	if ctx == nil {
		return
	}

	for key, incoming := range ctx.Mappings {
		existing, ok := layer[key]

		if ok && existing.Isolated && incoming.Isolated {
			diags.Warn(kllerr.NewLineWarning(incoming.File, incoming.Line,
				"trigger %q isolated by two contexts; the higher-precedence isolation wins",
				incoming.Trigger.Canonical()))

			layer[key] = incoming

			continue
		}

		if ok && existing.Isolated && !incoming.Isolated {
			diags.Warn(kllerr.NewLineWarning(incoming.File, incoming.Line,
				"mapping for trigger %q rejected: a lower-precedence context isolated this trigger with '::'",
				incoming.Trigger.Canonical()))

			continue
		}

		switch incoming.Op {
		case ast.OpAddTo:
			if ok {
				layer[key] = accumulated(incoming, kllcontext.UnionCombos(existing.Result, incoming.Result))
				continue
			}
		case ast.OpRemoveFrom:
			if !ok {
				diags.Warn(kllerr.NewLineWarning(incoming.File, incoming.Line,
					"remove-from-existing for trigger %q with no existing mapping; nothing to remove",
					incoming.Trigger.Canonical()))

				continue
			}

			remaining := kllcontext.SubtractCombos(existing.Result, incoming.Result)
			if len(remaining) == 0 {
				delete(layer, key)
				diags.Warn(kllerr.NewLineWarning(incoming.File, incoming.Line,
					"mapping for trigger %q deleted: its last result was removed", incoming.Trigger.Canonical()))

				continue
			}

			layer[key] = accumulated(incoming, remaining)

			continue
		}

		layer[key] = incoming
	}
}

// accumulated builds the layer entry produced by unioning/subtracting an
// accumulate-kind (`:+`/`:-`) mapping onto a lower-precedence layer's
// current result, keeping the higher-precedence context's own metadata.
func accumulated(incoming *kllcontext.MappingEntry, result ast.Sequence) *kllcontext.MappingEntry {
	return &kllcontext.MappingEntry{
		Trigger:   incoming.Trigger,
		Result:    result,
		Op:        incoming.Op,
		Indicator: incoming.Indicator,
		File:      incoming.File,
		Line:      incoming.Line,
		FileOrder: incoming.FileOrder,
	}
}
