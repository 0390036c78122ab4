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

package facade

import (
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/finalize"
	"github.com/kll-tools/kll-compiler/pkg/kllcontext"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/merge"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func buildFacade(t *testing.T, text string) *Facade {
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

	return New(data, mc.Variables)
}

func TestStringCoercion(t *testing.T) {
	f := buildFacade(t, `myVar = "hello";`)

	v, err := f.String("myVar")
	assert.True(t, err == nil, "unexpected error")
	assert.Equal(t, "hello", v)
}

func TestIntCoercion(t *testing.T) {
	f := buildFacade(t, `myVar = 42;`)

	v, err := f.Int("myVar")
	assert.True(t, err == nil, "unexpected error")
	assert.Equal(t, 42, v)
}

func TestIntCoercionFromStringValue(t *testing.T) {
	f := buildFacade(t, `myVar = "42";`)

	v, err := f.Int("myVar")
	assert.True(t, err == nil, "unexpected error")
	assert.Equal(t, 42, v)
}

func TestBoolCoercion(t *testing.T) {
	f := buildFacade(t, `myVar = 1;`)

	v, err := f.Bool("myVar")
	assert.True(t, err == nil, "unexpected error")
	assert.True(t, v, "expected true")
}

func TestMissingVariableErrors(t *testing.T) {
	f := buildFacade(t, `myVar = 1;`)

	_, err := f.String("doesNotExist")
	assert.True(t, err != nil, "expected an error for a missing variable")
}

func TestArrayVariableRejectsScalarCoercion(t *testing.T) {
	f := buildFacade(t, `myArray[0] = 1;`)

	_, err := f.Int("myArray")
	assert.True(t, err != nil, "expected an error coercing an array variable as a scalar")
}

func TestTriggerAndResultMacroTablesAreExposed(t *testing.T) {
	f := buildFacade(t, `U"A" : U"B";`)

	assert.Equal(t, 1, len(f.TriggerMacros()))
	assert.Equal(t, 1, len(f.ResultMacros()))
	assert.Equal(t, 1, len(f.Layers()))
}
