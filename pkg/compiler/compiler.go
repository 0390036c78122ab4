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

// Package compiler wires every pipeline stage (§2, §6) into a single
// Compile call: load → tokenize → parse → organize → merge → finalize →
// emit. It is the one place that sequences the whole compiler; every
// other package only knows about its own stage.
package compiler

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/emit/jsonemit"
	"github.com/kll-tools/kll-compiler/pkg/emit/kllemit"
	"github.com/kll-tools/kll-compiler/pkg/facade"
	"github.com/kll-tools/kll-compiler/pkg/file"
	"github.com/kll-tools/kll-compiler/pkg/finalize"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/util"
)

// CompileRequest describes one compilation job (§6): the per-role file
// lists, the partial-layer groups (one slice per declared layer, in
// ascending layer order), the trailing explicit-Merge file list, and the
// chosen emitter.
type CompileRequest struct {
	GenericFiles  []string
	ConfigFiles   []string
	BaseFiles     []string
	DefaultFiles  []string
	PartialGroups [][]string
	MergeFiles    []string

	// EmitterName selects the output emitter: "json" or "kll".
	EmitterName string

	// OutputPath, when non-empty, is where the emitted document is written
	// (§6's "target_dir or per-output paths, json_output path"); when
	// empty, Compile only returns the bytes and writes nothing.
	OutputPath string

	// PixelPitchMM overrides finalize.DefaultPixelPitchMM when non-zero.
	PixelPitchMM float64
}

// Result is what a successful Compile call produces: the rendered emitter
// output plus every warning accumulated along the way (§7, §8's "Warnings
// channel").
type Result struct {
	Output   []byte
	Warnings []kllerr.Warning
}

// Compile runs the full pipeline for req, checking ctx at each stage
// boundary (§5) and returning kllerr.Cancelled the first time it observes
// a cancelled context. Any accumulated user error is returned as a
// *kllerr.List; an internal/fatal condition (e.g. an unknown emitter name)
// is returned as a plain error.
func Compile(ctx context.Context, req CompileRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, kllerr.Cancelled
	}

	set, err := file.Load(req.GenericFiles, req.ConfigFiles, req.BaseFiles, req.DefaultFiles,
		req.PartialGroups, req.MergeFiles)
	if err != nil {
		return nil, err
	}

	diags := &kllerr.List{}

	generic := buildRole(set.Generic, ast.RoleGeneric, 0, diags)
	config := buildRole(set.Configuration, ast.RoleConfiguration, 0, diags)
	base := buildRole(set.BaseMap, ast.RoleBaseMap, 0, diags)
	deflt := buildRole(set.DefaultMap, ast.RoleDefaultMap, 0, diags)

	partials := make([]*kllcontext.Context, len(set.PartialMaps))
	for i, records := range set.PartialMaps {
		partials[i] = buildRole(records, ast.RolePartialMap, i+1, diags)
	}

	explicit := buildRole(set.Merge, ast.RoleMerge, 0, diags)

	if diags.HasErrors() {
		return nil, diags
	}

	if err := ctx.Err(); err != nil {
		return nil, kllerr.Cancelled
	}

	stats := util.NewPerfStats()

	mc, mdiags := merge.Merge(generic, config, base, deflt, partials, explicit)
	diags.Join(mdiags)

	stats.Log("merge")

	if diags.HasErrors() {
		return nil, diags
	}

	if err := ctx.Err(); err != nil {
		return nil, kllerr.Cancelled
	}

	pitch := req.PixelPitchMM
	if pitch == 0 {
		pitch = finalize.DefaultPixelPitchMM
	}

	finStats := util.NewPerfStats()

	data, fdiags := finalize.Finalize(mc, pitch)
	diags.Join(fdiags)

	finStats.Log("finalize")

	if diags.HasErrors() {
		return nil, diags
	}

	if err := ctx.Err(); err != nil {
		return nil, kllerr.Cancelled
	}

	f := facade.New(data, mc.Variables)

	output, err := emit(req.EmitterName, f, mc)
	if err != nil {
		return nil, err
	}

	if req.OutputPath != "" {
		if err := os.WriteFile(req.OutputPath, output, 0o644); err != nil {
			return nil, fmt.Errorf("compiler: writing output to %q: %w", req.OutputPath, err)
		}
	}

	log.Debugf("compiled %d trigger macros, %d result macros, %d warnings",
		len(data.TriggerMacros), len(data.ResultMacros), len(diags.Warnings))

	return &Result{Output: output, Warnings: diags.Warnings}, nil
}

// buildRole runs kllcontext.Build for one role/group and joins its
// diagnostics into Compile's shared accumulator, so every role's errors and
// warnings are visible together at the single diags.HasErrors() check below.
func buildRole(records []*file.Record, role ast.Role, group int, diags *kllerr.List) *kllcontext.Context {
	c, buildDiags := kllcontext.Build(role, group, records)
	diags.Join(buildDiags)

	return c
}

func emit(name string, f *facade.Facade, mc *merge.MergeContext) ([]byte, error) {
	switch name {
	case "", "json":
		return jsonemit.Marshal(f)
	case "kll":
		return []byte(kllemit.Format(mc)), nil
	default:
		return nil, fmt.Errorf("compiler: unknown emitter %q", name)
	}
}
