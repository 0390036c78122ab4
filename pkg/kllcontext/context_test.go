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

package kllcontext

import (
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func buildContext(t *testing.T, role ast.Role, text string) (*Context, *kllerr.List) {
	t.Helper()

	file := source.NewFile("test.kll", []byte(text))

	tokens, terr := token.Tokenize(file)
	if terr != nil {
		t.Fatalf("unexpected tokenizer error: %v", terr)
	}

	exprs, perr := parser.Parse(file, tokens, role, 0)
	if perr != nil && perr.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", perr.Errors)
	}

	ctx := New(role, 0)
	diags := &kllerr.List{}

	for _, e := range exprs {
		ctx.Apply(e, diags)
	}

	return ctx, diags
}

func TestLastWriterWinsWithinAFile(t *testing.T) {
	// Seed test 1 (spec §8).
	ctx, diags := buildContext(t, ast.RoleBaseMap, `U"A" : U"B"; U"A" : U"C";`)

	assert.Equal(t, 1, len(ctx.Mappings))

	entry := ctx.Mappings[`U"A"`]
	assert.Equal(t, `U"C"`, entry.Result.Canonical())
	assert.Equal(t, 1, len(diags.Warnings))
}

func TestAddToAccumulatesResults(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleBaseMap, `U"A" : U"B"; U"A" :+ U"C";`)

	entry := ctx.Mappings[`U"A"`]
	assert.Equal(t, 2, len(entry.Result))
	assert.Equal(t, `U"B",U"C"`, entry.Result.Canonical())
}

func TestAddToDeduplicatesByValue(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleBaseMap, `U"A" : U"B"; U"A" :+ U"B";`)

	entry := ctx.Mappings[`U"A"`]
	assert.Equal(t, 1, len(entry.Result))
}

func TestRemoveFromDeletesWhenEmpty(t *testing.T) {
	ctx, diags := buildContext(t, ast.RoleBaseMap, `U"A" : U"B"; U"A" :- U"B";`)

	_, ok := ctx.Mappings[`U"A"`]
	assert.True(t, !ok, "expected the mapping to be deleted once its last result was removed")
	assert.True(t, len(diags.Warnings) >= 1, "expected a deletion warning")
}

func TestRemoveFromPartialLeavesRemainder(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleBaseMap, `U"A" : U"B", U"C"; U"A" :- U"B";`)

	entry := ctx.Mappings[`U"A"`]
	assert.Equal(t, `U"C"`, entry.Result.Canonical())
}

func TestIsolateMarksEntry(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleBaseMap, `U"A" :: U"Z";`)

	entry := ctx.Mappings[`U"A"`]
	assert.True(t, entry.Isolated, "expected the isolate operator to mark the entry")
}

func TestIndicatorFamilyIsASeparateKeyspace(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleBaseMap, `U"A" : U"B"; U"A" i: I"NumLock";`)

	assert.Equal(t, 2, len(ctx.Mappings))
}

func TestScalarAndArrayAssignments(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleConfiguration, "myVar = 7;\nmyArr[2] = 9;\nmyArr[0] = 1;")

	v := ctx.Variables["myVar"]
	assert.True(t, v.HasScalar, "expected a scalar variable")
	assert.Equal(t, ast.IntValue(7), v.Scalar)

	arr := ctx.Variables["myArr"]
	assert.False(t, arr.HasScalar)
	assert.Equal(t, ast.IntValue(9), arr.Elements[2])
	assert.Equal(t, ast.IntValue(1), arr.Elements[0])
}

func TestArrayWholeReplacesElements(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleConfiguration, "myArr[2] = 9;\nmyArr[] = 1,2,3;")

	arr := ctx.Variables["myArr"]
	assert.Equal(t, 3, len(arr.Elements))
	assert.Equal(t, ast.IntValue(2), arr.Elements[1])
}

func TestCapabilityRedeclarationSameSignatureIsFine(t *testing.T) {
	_, diags := buildContext(t, ast.RoleConfiguration,
		"capability myCap : myCFunc(uint8);\ncapability myCap : myCFunc(uint8);")

	assert.True(t, !diags.HasErrors(), "identical redeclaration should not error")
}

func TestCapabilityRedeclarationDifferentSignatureErrors(t *testing.T) {
	_, diags := buildContext(t, ast.RoleConfiguration,
		"capability myCap : myCFunc(uint8);\ncapability myCap : otherFunc(uint8);")

	assert.True(t, diags.HasErrors(), "expected a redeclaration error")
}

func TestNameAssociationRedeclarationDifferentTargetErrors(t *testing.T) {
	_, diags := buildContext(t, ast.RoleConfiguration,
		"name myKbd : \"A\";\nname myKbd : \"B\";")

	assert.True(t, diags.HasErrors(), "expected a redeclaration error")
}

func TestPositionOverlayPreservesOtherAxes(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleConfiguration, "S5 : x:1;\nS5 : y:2;")

	pos := ctx.ScanCodePositions[5]
	assert.True(t, pos.X.HasValue())
	assert.Equal(t, float64(1), pos.X.Unwrap())
	assert.True(t, pos.Y.HasValue())
	assert.Equal(t, float64(2), pos.Y.Unwrap())
}

func TestAnimationSettingsMergeByField(t *testing.T) {
	ctx, _ := buildContext(t, ast.RoleConfiguration,
		"animation wave : frames:3;\nanimation wave : loop:1;\nframe wave[0] : 1,2;")

	entry := ctx.Animations["wave"]
	assert.Equal(t, 2, len(entry.Settings))
	assert.Equal(t, 1, len(entry.Frames))
}
