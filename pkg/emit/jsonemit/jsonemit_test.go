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

package jsonemit

import (
	"encoding/json"
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/facade"
	"github.com/kll-tools/kll-compiler/pkg/finalize"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func buildFacade(t *testing.T, text string) *facade.Facade {
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

	mc, mdiags := merge.Merge(nil, nil, ctx, nil, nil, nil)
	if mdiags.HasErrors() {
		t.Fatalf("unexpected merge errors: %v", mdiags.Errors)
	}

	data, fdiags := finalize.Finalize(mc, 0)
	if fdiags.HasErrors() {
		t.Fatalf("unexpected finalize errors: %v", fdiags.Errors)
	}

	return facade.New(data, mc.Variables)
}

func TestMarshalProducesExpectedTopLevelKeys(t *testing.T) {
	f := buildFacade(t, `U"A" : U"B"; myVar = 1;`)

	out, err := Marshal(f)
	assert.True(t, err == nil, "unexpected marshal error")

	var decoded map[string]any

	assert.True(t, json.Unmarshal(out, &decoded) == nil, "expected valid JSON output")

	for _, key := range []string{
		"variables", "capabilities", "layers", "trigger_macros", "result_macros",
		"pixel_mapping", "pixel_display_mapping", "animations", "scancode_positions",
		"pixel_positions", "kll_version", "compiler_version",
	} {
		_, ok := decoded[key]
		assert.True(t, ok, "expected top-level key "+key)
	}
}

func TestMarshalTriggerMacroRendersIdDiscriminator(t *testing.T) {
	f := buildFacade(t, `S0x04 : U"A";`)

	out, err := Marshal(f)
	assert.True(t, err == nil, "unexpected marshal error")

	var decoded map[string]any
	assert.True(t, json.Unmarshal(out, &decoded) == nil, "expected valid JSON output")

	triggers := decoded["trigger_macros"].([]any)
	assert.Equal(t, 1, len(triggers))

	combo := triggers[0].([]any)[0].([]any)
	idObj := combo[0].(map[string]any)
	assert.Equal(t, "scancode", idObj["kind"])
}
