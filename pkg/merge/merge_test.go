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

package merge

import (
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

// buildCtx builds a fixture context from source text; this package's tests
// only care about the resulting stores, not the intra-context warnings
// already covered by pkg/kllcontext's own tests, so its diagnostics are
// discarded.
func buildCtx(t *testing.T, role ast.Role, text string) *kllcontext.Context {
	t.Helper()

	f := source.NewFile("test.kll", []byte(text))

	tokens, terr := token.Tokenize(f)
	if terr != nil {
		t.Fatalf("unexpected tokenizer error: %v", terr)
	}

	exprs, perr := parser.Parse(f, tokens, role, 0)
	if perr != nil && perr.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", perr.Errors)
	}

	ctx := kllcontext.New(role, 0)
	diags := &kllerr.List{}

	for _, e := range exprs {
		ctx.Apply(e, diags)
	}

	return ctx
}

func TestAddToAcrossContexts(t *testing.T) {
	// Seed test 2 (spec §8).
	base := buildCtx(t, ast.RoleBaseMap, `U"A" : U"B";`)
	deflt := buildCtx(t, ast.RoleDefaultMap, `U"A" :+ U"C";`)

	mc, diags := Merge(nil, nil, base, deflt, nil, nil)
	assert.True(t, !diags.HasErrors(), "unexpected merge errors")

	entry := mc.Layers[0].Mappings[`U"A"`]
	assert.Equal(t, `U"B",U"C"`, entry.Result.Canonical())
}

func TestRangeAndExplicitCollision(t *testing.T) {
	// Seed test 3 (spec §8): range expansion itself is a finalize-stage
	// concern, but the merge stage must still let the explicit, more
	// specific mapping coexist as its own store entry alongside the range.
	base := buildCtx(t, ast.RoleBaseMap, `S[0x10-0x12] : U"X"; S0x11 : U"Y";`)

	mc, diags := Merge(nil, nil, base, nil, nil, nil)
	assert.True(t, !diags.HasErrors(), "unexpected merge errors")

	assert.Equal(t, 2, len(mc.Layers[0].Mappings))
	assert.Equal(t, `U"Y"`, mc.Layers[0].Mappings["S0x11"].Result.Canonical())
}

func TestIsolationAcrossLayers(t *testing.T) {
	// Seed test 6 (spec §8).
	base := buildCtx(t, ast.RoleBaseMap, `U"A" :: U"Z";`)
	partial1 := buildCtx(t, ast.RolePartialMap, `U"A" : U"Q";`)

	mc, diags := Merge(nil, nil, base, nil, []*kllcontext.Context{partial1}, nil)

	assert.Equal(t, `U"Z"`, mc.Layers[0].Mappings[`U"A"`].Result.Canonical())
	assert.Equal(t, 1, len(diags.Warnings))

	_, present := mc.Layers[1].Mappings[`U"A"`]
	assert.True(t, !present, "expected layer 1 to carry no own entry for the rejected override")
}

func TestPartialLayerOwnEntriesOnly(t *testing.T) {
	base := buildCtx(t, ast.RoleBaseMap, `U"A" : U"1"; U"B" : U"2";`)
	partial1 := buildCtx(t, ast.RolePartialMap, `U"A" : U"Override";`)

	mc, _ := Merge(nil, nil, base, nil, []*kllcontext.Context{partial1}, nil)

	assert.Equal(t, 2, len(mc.Layers[0].Mappings))
	assert.Equal(t, 1, len(mc.Layers[1].Mappings))
	assert.Equal(t, `U"Override"`, mc.Layers[1].Mappings[`U"A"`].Result.Canonical())
}

func TestDoubleIsolationWarnsAndHigherPrecedenceWins(t *testing.T) {
	base := buildCtx(t, ast.RoleBaseMap, `U"A" :: U"Base";`)
	deflt := buildCtx(t, ast.RoleDefaultMap, `U"A" :: U"Default";`)

	mc, diags := Merge(nil, nil, base, deflt, nil, nil)

	assert.Equal(t, `U"Default"`, mc.Layers[0].Mappings[`U"A"`].Result.Canonical())
	assert.Equal(t, 1, len(diags.Warnings))
}

func TestCapabilitySignatureConflictIsMergeError(t *testing.T) {
	cfg := buildCtx(t, ast.RoleConfiguration, `capability myCap : myCFunc(uint8);`)
	base := buildCtx(t, ast.RoleBaseMap, `capability myCap : otherFunc(uint8);`)

	_, diags := Merge(nil, cfg, base, nil, nil, nil)
	assert.True(t, diags.HasErrors(), "expected a merge-stage capability conflict error")
}
