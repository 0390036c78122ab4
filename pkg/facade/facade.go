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

// Package facade is the read-only view of a compilation's result that
// emitters are handed (spec §4.6): FinalData plus the merged variable
// store, with no access back into the merge or context stores that
// produced them.
package facade

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/finalize"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
)

// Facade wraps a FinalData and its accompanying variable store. It exposes
// only accessor methods; nothing mutates through it (spec §4.4's "Emitter
// isolation" note).
type Facade struct {
	data      *finalize.FinalData
	variables map[string]*kllcontext.Variable
}

// New wraps data and variables into a Facade for an emitter to consume.
func New(data *finalize.FinalData, variables map[string]*kllcontext.Variable) *Facade {
	return &Facade{data: data, variables: variables}
}

// Layers returns the per-layer trigger→result-macro index tables.
func (f *Facade) Layers() []finalize.FinalLayer { return f.data.Layers }

// TriggerMacros returns the trigger macro table in index order.
func (f *Facade) TriggerMacros() []ast.Sequence { return f.data.TriggerMacros }

// ResultMacros returns the result macro table in index order.
func (f *Facade) ResultMacros() []ast.Sequence { return f.data.ResultMacros }

// Capabilities returns the capability declaration table in index order.
func (f *Facade) Capabilities() []*ast.Capability { return f.data.Capabilities }

// PixelMap returns the dense, Blank-padded pixel table.
func (f *Facade) PixelMap() []finalize.PixelSlot { return f.data.PixelMap }

// PixelDisplayMap returns the 2-D [row][col] grid of pixel indices.
func (f *Facade) PixelDisplayMap() [][]uint32 { return f.data.PixelDisplayMap }

// Animations returns every animation by name, each carrying its own frame
// table.
func (f *Facade) Animations() map[string]*kllcontext.AnimationEntry { return f.data.Animations }

// AnimationFrames returns one animation's frame table by frame index, or
// nil if the animation does not exist.
func (f *Facade) AnimationFrames(name string) map[uint32]*ast.AnimationFrame {
	anim, ok := f.data.Animations[name]
	if !ok {
		return nil
	}

	return anim.Frames
}

// ScanCodePositions returns the physical scan code position table in
// ascending scan-code order.
func (f *Facade) ScanCodePositions() []finalize.ScanCodePosition { return f.data.ScanCodePositions }

// PixelPositions returns the physical pixel position table in ascending
// pixel-index order.
func (f *Facade) PixelPositions() []finalize.PixelPosition { return f.data.PixelPositions }

// Variables renders every configuration variable to its native Go value: a
// scalar variable to a single value, an array variable to a dense slice
// indexed by its element index. Used by emitters that need the whole
// variable store (e.g. the JSON emitter's "variables" key), as opposed to
// String/Int/Bool's single-name lookup.
func (f *Facade) Variables() map[string]any {
	out := make(map[string]any, len(f.variables))

	for name, v := range f.variables {
		if v.HasScalar {
			out[name] = nativeValue(v.Scalar)
			continue
		}

		var maxIdx uint32

		for idx := range v.Elements {
			if idx > maxIdx {
				maxIdx = idx
			}
		}

		arr := make([]any, maxIdx+1)
		for idx, val := range v.Elements {
			arr[idx] = nativeValue(val)
		}

		out[name] = arr
	}

	return out
}

// nativeValue reduces an ast.Value to the Go-native form spf13/cast knows
// how to coerce from: an Id value renders to its canonical text, matching
// how an emitter would otherwise have had to stringify it anyway.
func nativeValue(v ast.Value) any {
	switch val := v.(type) {
	case ast.IntValue:
		return int64(val)
	case ast.StringValue:
		return string(val)
	case ast.IdValue:
		return val.Id.Canonical()
	default:
		return val.Canonical()
	}
}

func (f *Facade) lookupScalar(name string) (any, error) {
	v, ok := f.variables[name]
	if !ok {
		return nil, fmt.Errorf("facade: no variable named %q", name)
	}

	if !v.HasScalar {
		return nil, fmt.Errorf("facade: variable %q is an array, not a scalar", name)
	}

	return nativeValue(v.Scalar), nil
}

// String coerces a scalar variable's value to a string (spec §4.6 "type
// coercion helpers: string, integer, boolean").
func (f *Facade) String(name string) (string, error) {
	v, err := f.lookupScalar(name)
	if err != nil {
		return "", err
	}

	return cast.ToStringE(v)
}

// Int coerces a scalar variable's value to an int.
func (f *Facade) Int(name string) (int, error) {
	v, err := f.lookupScalar(name)
	if err != nil {
		return 0, err
	}

	return cast.ToIntE(v)
}

// Bool coerces a scalar variable's value to a bool.
func (f *Facade) Bool(name string) (bool, error) {
	v, err := f.lookupScalar(name)
	if err != nil {
		return false, err
	}

	return cast.ToBoolE(v)
}
