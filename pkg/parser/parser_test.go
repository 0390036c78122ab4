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

package parser

import (
	"testing"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util/assert"
)

func parseString(t *testing.T, text string) []ast.Expression {
	t.Helper()

	file := source.NewFile("test.kll", []byte(text))

	tokens, terr := token.Tokenize(file)
	if terr != nil {
		t.Fatalf("unexpected tokenizer error: %v", terr)
	}

	exprs, perr := Parse(file, tokens, ast.RoleBaseMap, 0)
	if perr != nil {
		t.Fatalf("unexpected parse errors: %v", perr.Errors)
	}

	return exprs
}

func TestParseScalarAssignment(t *testing.T) {
	exprs := parseString(t, `myVar = 7;`)

	assert.Equal(t, 1, len(exprs))

	a, ok := exprs[0].(*ast.Assignment)
	assert.True(t, ok, "expected *ast.Assignment")
	assert.Equal(t, ast.ScalarAssignment, a.Kind)
	assert.Equal(t, "myVar", a.Name)
	assert.Equal(t, 1, len(a.Values))
	assert.Equal(t, ast.IntValue(7), a.Values[0])
}

func TestParseArrayElementAndWholeAssignment(t *testing.T) {
	exprs := parseString(t, "myArr[2] = 9;\nmyArr[] = 1,2,3;")

	assert.Equal(t, 2, len(exprs))

	elem := exprs[0].(*ast.Assignment)
	assert.Equal(t, ast.ArrayElementAssignment, elem.Kind)
	assert.Equal(t, uint32(2), elem.Index)

	whole := exprs[1].(*ast.Assignment)
	assert.Equal(t, ast.ArrayWholeAssignment, whole.Kind)
	assert.Equal(t, 3, len(whole.Values))
}

func TestParseSimpleMapping(t *testing.T) {
	exprs := parseString(t, `S0x43 : U"A";`)

	assert.Equal(t, 1, len(exprs))

	m, ok := exprs[0].(*ast.Mapping)
	assert.True(t, ok, "expected *ast.Mapping")
	assert.Equal(t, ast.OpMapsTo, m.Op)
	assert.Equal(t, "S0x43", m.Trigger.Canonical())
	assert.Equal(t, `U"A"`, m.Result.Canonical())
}

func TestParseMappingOperatorFamily(t *testing.T) {
	cases := []struct {
		text string
		op   ast.MapOp
	}{
		{`S1 :+ U"A";`, ast.OpAddTo},
		{`S1 :- U"A";`, ast.OpRemoveFrom},
		{`S1 :: U"A";`, ast.OpIsolate},
		{`S1 = U"A";`, ast.OpReplace},
		{`S1 i: U"A";`, ast.OpIndicatorMapsTo},
		{`S1 i:+ U"A";`, ast.OpIndicatorAddTo},
	}

	for _, c := range cases {
		exprs := parseString(t, c.text)
		m := exprs[0].(*ast.Mapping)
		assert.Equal(t, c.op, m.Op, c.text)
	}
}

func TestParseComboAndSequence(t *testing.T) {
	exprs := parseString(t, `S1+S2 : U"A", U"B";`)

	m := exprs[0].(*ast.Mapping)
	assert.Equal(t, 1, len(m.Trigger))
	assert.Equal(t, 2, len(m.Trigger[0]))
	assert.Equal(t, 2, len(m.Result))
}

func TestParseScheduleOnTrigger(t *testing.T) {
	exprs := parseString(t, `S0x43(P,UP,UR) : U"A";`)

	m := exprs[0].(*ast.Mapping)
	idExpr := m.Trigger[0][0]
	assert.True(t, idExpr.Schedule.HasValue())
	assert.Equal(t, "(P,UP,UR)", idExpr.Schedule.Unwrap().Canonical())
}

func TestParseScanCodeBracketScheduleEquivalence(t *testing.T) {
	plain := parseString(t, `S0x43(P,UP,UR) : U"A";`)[0].(*ast.Mapping)
	bracketed := parseString(t, `S[0x43(P,UP,UR)] : U"A";`)[0].(*ast.Mapping)

	assert.Equal(t, plain.TriggerKey(), bracketed.TriggerKey())
}

func TestParseScanCodeRange(t *testing.T) {
	exprs := parseString(t, `S[0x41-0x43] : U"A";`)

	m := exprs[0].(*ast.Mapping)
	rng, ok := m.Trigger[0][0].Id.(ast.RangeId)
	assert.True(t, ok, "expected ast.RangeId")
	assert.Equal(t, uint32(0x41), rng.Start)
	assert.Equal(t, uint32(0x43), rng.End)
}

func TestParseEmptySchedule(t *testing.T) {
	exprs := parseString(t, `S0x43() : U"A";`)

	m := exprs[0].(*ast.Mapping)
	idExpr := m.Trigger[0][0]
	assert.True(t, idExpr.Schedule.HasValue())
	assert.Equal(t, 0, len(idExpr.Schedule.Unwrap()))
}

func TestParseCapabilityCallAsResult(t *testing.T) {
	exprs := parseString(t, `S1 : myCapability(1,"x");`)

	m := exprs[0].(*ast.Mapping)
	cap, ok := m.Result[0][0].Id.(ast.CapabilityId)
	assert.True(t, ok, "expected ast.CapabilityId")
	assert.Equal(t, "myCapability", cap.Name)
	assert.Equal(t, 2, len(cap.Args))
}

func TestParseCapabilityDeclaration(t *testing.T) {
	exprs := parseString(t, `capability myCapability : myCFunc(uint8, uint8);`)

	c := exprs[0].(*ast.Capability)
	assert.Equal(t, "myCapability", c.Name)
	assert.Equal(t, "myCFunc", c.Symbol)
	assert.Equal(t, 2, len(c.ArgTypes))
}

func TestParseNameAndDefineAssociation(t *testing.T) {
	exprs := parseString(t, "name myKeyboard : \"MyKeyboard\";\ndefine FLASH : \"0x8000\";")

	n := exprs[0].(*ast.NameAssociation)
	assert.Equal(t, "name", n.Keyword)
	assert.Equal(t, "myKeyboard", n.Name)
	assert.Equal(t, "MyKeyboard", n.CName)

	d := exprs[1].(*ast.NameAssociation)
	assert.Equal(t, "define", d.Keyword)
}

func TestParseDataAssociationScanCode(t *testing.T) {
	exprs := parseString(t, `S0x05 : x:19, y:38;`)

	d := exprs[0].(*ast.DataAssociation)
	assert.Equal(t, ast.ScanCodePositionTarget, d.Target)
	assert.Equal(t, uint32(0x05), d.Index)
	assert.True(t, d.Position.X.HasValue())
	assert.Equal(t, float64(19), d.Position.X.Unwrap())
	assert.True(t, d.Position.Y.HasValue())
}

func TestParseDataAssociationPixel(t *testing.T) {
	exprs := parseString(t, `P[3] : x:10, z:2;`)

	d := exprs[0].(*ast.DataAssociation)
	assert.Equal(t, ast.PixelPositionTarget, d.Target)
	assert.Equal(t, uint32(3), d.Index)
	assert.True(t, d.Position.Z.HasValue())
	assert.True(t, d.Position.Y.IsEmpty())
}

func TestParseAnimationDefinitionAndFrame(t *testing.T) {
	exprs := parseString(t, "animation wave : frames:3;\nframe wave[0] : 1,2,3;")

	def := exprs[0].(*ast.AnimationDefinition)
	assert.Equal(t, "wave", def.Name)
	assert.False(t, def.AppendMode)

	frame := exprs[1].(*ast.AnimationFrame)
	assert.Equal(t, "wave", frame.Name)
	assert.Equal(t, uint32(0), frame.FrameIndex)
	assert.Equal(t, 3, len(frame.Pixels))
}

func TestParseAnimationAppendMode(t *testing.T) {
	exprs := parseString(t, `animation+ wave : frames:5;`)

	def := exprs[0].(*ast.AnimationDefinition)
	assert.True(t, def.AppendMode)
}

func TestParseLayerControlResult(t *testing.T) {
	exprs := parseString(t, `S1 : layerShift(2);`)

	m := exprs[0].(*ast.Mapping)
	layer, ok := m.Result[0][0].Id.(ast.LayerId)
	assert.True(t, ok, "expected ast.LayerId")
	assert.Equal(t, ast.LayerShift, layer.Kind)
	assert.Equal(t, uint32(2), layer.Index)
}

func TestParseNoneResult(t *testing.T) {
	exprs := parseString(t, `S1 : None;`)

	m := exprs[0].(*ast.Mapping)
	_, ok := m.Result[0][0].Id.(ast.NoneId)
	assert.True(t, ok, "expected ast.NoneId")
}

func TestParseTrailingCommaIsError(t *testing.T) {
	file := source.NewFile("test.kll", []byte(`S1 : U"A", ;`))

	tokens, terr := token.Tokenize(file)
	assert.True(t, terr == nil, "unexpected tokenizer error")

	_, perr := Parse(file, tokens, ast.RoleBaseMap, 0)
	assert.True(t, perr != nil, "expected a parse error for a trailing comma")
}

func TestParseAnalogScheduleNotConfusedWithOffPlusTiming(t *testing.T) {
	// U"A"(0) is an analog-value schedule (pulse), not state O with timing
	// (spec §4.2 ambiguity policy).
	exprs := parseString(t, `S1 : U"A"(0);`)

	m := exprs[0].(*ast.Mapping)
	sched := m.Result[0][0].Schedule.Unwrap()
	assert.Equal(t, 1, len(sched))
	assert.False(t, sched[0].HasState)
	assert.True(t, sched[0].Analog.HasValue())
	assert.Equal(t, uint8(0), sched[0].Analog.Unwrap())
}

func TestParseRecoversMultipleErrors(t *testing.T) {
	file := source.NewFile("test.kll", []byte("S1 : ;\nS2 : U\"B\";\nS3 : ;"))

	tokens, terr := token.Tokenize(file)
	assert.True(t, terr == nil, "unexpected tokenizer error")

	_, perr := Parse(file, tokens, ast.RoleBaseMap, 0)
	assert.True(t, perr != nil, "expected parse errors")
	assert.Equal(t, 2, len(perr.Errors))
}
