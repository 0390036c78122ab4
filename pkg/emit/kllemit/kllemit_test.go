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

package kllemit

import (
	"strings"
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func buildMC(t *testing.T, text string) *merge.MergeContext {
	t.Helper()

	f := source.NewFile("test.kll", []byte(text))

	tokens, terr := token.Tokenize(f)
	if terr != nil {
		t.Fatalf("unexpected tokenizer error: %v", terr)
	}

	exprs, perr := parser.Parse(f, tokens, ast.RoleBaseMap, 0)
	if perr != nil && perr.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", perr.Errors)
	}

	ctx := kllcontext.New(ast.RoleBaseMap, 0)
	diags := &kllerr.List{}

	for _, e := range exprs {
		ctx.Apply(e, diags)
	}

	assert.True(t, !diags.HasErrors(), "unexpected apply errors")

	mc, mdiags := merge.Merge(nil, nil, ctx, nil, nil, nil)
	assert.True(t, !mdiags.HasErrors(), "unexpected merge errors")

	return mc
}

func TestFormatEmitsOneStatementPerMapping(t *testing.T) {
	mc := buildMC(t, `S0x04 : U"A"; S0x05 : U"B";`)

	out := Format(mc)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	found := 0

	for _, l := range lines {
		if strings.Contains(l, "U\"A\"") || strings.Contains(l, "U\"B\"") {
			found++
		}
	}

	assert.Equal(t, 2, found)
}

func TestFormatSortsCapabilitiesByName(t *testing.T) {
	mc := buildMC(t, `capability zCap : zFunc(uint8);
capability aCap : aFunc(uint8);`)

	out := Format(mc)

	aIdx := strings.Index(out, "aCap")
	zIdx := strings.Index(out, "zCap")

	assert.True(t, aIdx >= 0 && zIdx >= 0 && aIdx < zIdx, "expected capabilities sorted by name")
}

func TestFormatRoundTripIsIdempotent(t *testing.T) {
	mc := buildMC(t, `S0x04 : U"A"; S0x05 : U"B"; myVar = 1;`)

	first := Format(mc)

	reparsed := buildMC(t, first)
	second := Format(reparsed)

	assert.Equal(t, first, second)
}

func TestFormatPositionStatementOmitsUnsetAxes(t *testing.T) {
	mc := buildMC(t, `S0x04 : U"A"; S0x04 : x:10;`)

	out := Format(mc)

	assert.True(t, strings.Contains(out, "x:10"), "expected x axis present")
	assert.True(t, !strings.Contains(out, "y:"), "expected y axis to be omitted when unset")
}
