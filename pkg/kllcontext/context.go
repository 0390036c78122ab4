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

// Package kllcontext classifies the expressions of one context (a role plus
// its ordered file list) into the seven keyed stores of spec §4.3, applying
// the intra-context override rules (last-writer-wins, :+/:-/:: semantics,
// array-whole vs array-element assignment). One Context is built per role
// for Generic/Configuration/BaseMap/DefaultMap and per declared layer for
// PartialMap_N (spec §3 "Contexts").
package kllcontext

import (
	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/file"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/parser"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
)

// Variable is the variables-store entry for one name: either a scalar value
// or a sparse array of elements, never both at once (spec §3, §4.3).
type Variable struct {
	Name      string
	HasScalar bool
	Scalar    ast.Value
	Elements  map[uint32]ast.Value
	Line      int
}

// MappingEntry is the mappings-store entry for one trigger-key.
type MappingEntry struct {
	Trigger ast.Sequence
	Result  ast.Sequence

	// Op is the operator that produced Result: ast.OpMapsTo for a fully
	// resolved value (one this context computed start-to-finish, so a
	// cross-context merge should replace outright), or ast.OpAddTo /
	// ast.OpRemoveFrom when Result is a pure accumulate delta this context
	// never had a local base for, which pkg/merge must union/subtract onto
	// a lower-precedence context's current result instead of replacing it
	// (spec §4.4: "`:+`/`:-` in a higher context accumulate on top of the
	// lower context's current result set").
	Op ast.MapOp

	Isolated  bool // set by the `::` operator; honored during cross-context merge
	Indicator bool // true for the "i:" operator family (spec §3)
	File      *source.File
	Line      int
	FileOrder int
}

// AnimationEntry is the animations-store entry for one animation name.
type AnimationEntry struct {
	Name       string
	Modifiers  []ast.AnimationModifier
	Settings   map[string]ast.Value
	AppendMode bool
	Frames     map[uint32]*ast.AnimationFrame
}

// Context is one role's (or one partial layer's) full set of stores (spec
// §3 "Stores").
type Context struct {
	Role  ast.Role
	Group int // partial-layer index; 0 for every non-partial role

	Variables         map[string]*Variable
	Capabilities      map[string]*ast.Capability
	NameAssociations  map[string]*ast.NameAssociation
	Mappings          map[string]*MappingEntry
	PixelPositions    map[uint32]ast.Position
	ScanCodePositions map[uint32]ast.Position
	Animations        map[string]*AnimationEntry
}

// New returns an empty context for the given role (and, for PartialMap
// roles, layer group).
func New(role ast.Role, group int) *Context {
	return &Context{
		Role:              role,
		Group:             group,
		Variables:         map[string]*Variable{},
		Capabilities:      map[string]*ast.Capability{},
		NameAssociations:  map[string]*ast.NameAssociation{},
		Mappings:          map[string]*MappingEntry{},
		PixelPositions:    map[uint32]ast.Position{},
		ScanCodePositions: map[uint32]ast.Position{},
		Animations:        map[string]*AnimationEntry{},
	}
}

// Build tokenizes, parses and classifies every file of one role/group in
// load order, returning the resulting context plus any accumulated
// diagnostics (spec §2 stages 2-4 applied to a single context's files).
// Files must already be in their intended load order (file.Record.Order).
func Build(role ast.Role, group int, records []*file.Record) (*Context, *kllerr.List) {
	ctx := New(role, group)
	diags := &kllerr.List{}

	for _, rec := range records {
		tokens, terr := token.Tokenize(rec.File)
		if terr != nil {
			diags.Add(terr)
			continue
		}

		exprs, perr := parser.Parse(rec.File, tokens, role, rec.Order)
		diags.Join(perr)

		for _, expr := range exprs {
			ctx.Apply(expr, diags)
		}
	}

	return ctx, diags
}

// Apply classifies one expression into its store, applying the override
// rule appropriate to its kind.
func (c *Context) Apply(expr ast.Expression, diags *kllerr.List) {
	switch e := expr.(type) {
	case *ast.Assignment:
		c.applyAssignment(e, diags)
	case *ast.Mapping:
		c.applyMapping(e, diags)
	case *ast.DataAssociation:
		c.applyDataAssociation(e)
	case *ast.Capability:
		c.applyCapability(e, diags)
	case *ast.AnimationDefinition:
		c.applyAnimationDefinition(e)
	case *ast.AnimationFrame:
		c.applyAnimationFrame(e)
	case *ast.NameAssociation:
		c.applyNameAssociation(e, diags)
	}
}

func (c *Context) applyAssignment(a *ast.Assignment, diags *kllerr.List) {
	v, existed := c.Variables[a.Name]
	if !existed {
		v = &Variable{Name: a.Name, Elements: map[uint32]ast.Value{}}
		c.Variables[a.Name] = v
	}

	switch a.Kind {
	case ast.ScalarAssignment, ast.CharacterDataAssignment:
		if existed && (v.HasScalar || len(v.Elements) > 0) {
			diags.Warn(kllerr.NewLineWarning(a.File(), a.Line(),
				"shadowed assignment: variable %q reassigned", a.Name))
		}

		v.HasScalar = true
		v.Scalar = a.Values[0]
		v.Elements = map[uint32]ast.Value{}
	case ast.ArrayElementAssignment:
		if _, taken := v.Elements[a.Index]; taken {
			diags.Warn(kllerr.NewLineWarning(a.File(), a.Line(),
				"shadowed assignment: %s[%d] reassigned", a.Name, a.Index))
		}

		v.HasScalar = false
		v.Elements[a.Index] = a.Values[0]
	case ast.ArrayWholeAssignment:
		if existed && (v.HasScalar || len(v.Elements) > 0) {
			diags.Warn(kllerr.NewLineWarning(a.File(), a.Line(),
				"shadowed assignment: array %q replaced wholesale", a.Name))
		}

		v.HasScalar = false
		v.Elements = make(map[uint32]ast.Value, len(a.Values))

		for i, val := range a.Values {
			v.Elements[uint32(i)] = val
		}
	}

	v.Line = a.Line()
}

// mappingKey distinguishes the "i:" indicator-map family from the ordinary
// mapping family under the same trigger-key, since spec §3's store table
// lists one "mappings" store but §3 also says the indicator family has "same
// op variants" targeting a distinct output (LED indicators, not key output).
func mappingKey(m *ast.Mapping) string {
	if m.Op.IsIndicator() {
		return "i:" + m.Trigger.Canonical()
	}

	return m.Trigger.Canonical()
}

func (c *Context) applyMapping(m *ast.Mapping, diags *kllerr.List) {
	key := mappingKey(m)
	existing, ok := c.Mappings[key]

	switch m.Op.Base() {
	case ast.OpMapsTo, ast.OpReplace:
		if ok {
			diags.Warn(kllerr.NewLineWarning(m.File(), m.Line(),
				"shadowed assignment: mapping for trigger %q reassigned", m.Trigger.Canonical()))
		}

		c.Mappings[key] = &MappingEntry{
			Trigger: m.Trigger, Result: m.Result, Op: ast.OpMapsTo,
			Indicator: m.Op.IsIndicator(), File: m.File(), Line: m.Line(), FileOrder: m.FileOrder(),
		}
	case ast.OpAddTo:
		if !ok {
			// No local base to accumulate onto: record the added set as a
			// pure delta, tagged OpAddTo, so a cross-context merge can union
			// it onto whatever a lower-precedence context resolved instead
			// of treating it as the whole answer.
			c.Mappings[key] = &MappingEntry{
				Trigger: m.Trigger, Result: m.Result, Op: ast.OpAddTo,
				Indicator: m.Op.IsIndicator(), File: m.File(), Line: m.Line(), FileOrder: m.FileOrder(),
			}

			return
		}

		existing.Result = UnionCombos(existing.Result, m.Result)
		existing.Line = m.Line()

		if existing.Op != ast.OpAddTo {
			existing.Op = ast.OpMapsTo
		}
	case ast.OpRemoveFrom:
		if !ok {
			// Same reasoning as the OpAddTo !ok case: nothing local to
			// remove from yet, but a lower-precedence context may still
			// supply the base this should subtract from at merge time.
			c.Mappings[key] = &MappingEntry{
				Trigger: m.Trigger, Result: m.Result, Op: ast.OpRemoveFrom,
				Indicator: m.Op.IsIndicator(), File: m.File(), Line: m.Line(), FileOrder: m.FileOrder(),
			}

			return
		}

		if existing.Op == ast.OpRemoveFrom {
			existing.Result = UnionCombos(existing.Result, m.Result)
			existing.Line = m.Line()

			return
		}

		remaining := SubtractCombos(existing.Result, m.Result)
		if len(remaining) == 0 {
			delete(c.Mappings, key)
			diags.Warn(kllerr.NewLineWarning(m.File(), m.Line(),
				"mapping for trigger %q deleted: its last result was removed", m.Trigger.Canonical()))

			return
		}

		existing.Result = remaining
		existing.Line = m.Line()
		existing.Op = ast.OpMapsTo
	case ast.OpIsolate:
		c.Mappings[key] = &MappingEntry{
			Trigger: m.Trigger, Result: m.Result, Op: ast.OpIsolate, Isolated: true,
			Indicator: m.Op.IsIndicator(), File: m.File(), Line: m.Line(), FileOrder: m.FileOrder(),
		}
	}
}

// UnionCombos concatenates add onto base, eliding any combo already present
// by canonical-form equality (spec §4.3 ":+ means union... duplicates
// elided by value equality"). Exported so pkg/merge can apply the same rule
// when a higher-precedence context's `:+` accumulates across context
// boundaries instead of just within one context's own file list.
func UnionCombos(base, add ast.Sequence) ast.Sequence {
	seen := make(map[string]bool, len(base))
	result := make(ast.Sequence, 0, len(base)+len(add))

	for _, combo := range base {
		seen[combo.Canonical()] = true
		result = append(result, combo)
	}

	for _, combo := range add {
		key := combo.Canonical()
		if seen[key] {
			continue
		}

		seen[key] = true
		result = append(result, combo)
	}

	return result
}

// SubtractCombos removes every combo of base whose canonical form appears in
// remove (spec §4.3 ":- means remove matching result(s)"). Exported for the
// same cross-context reason as UnionCombos.
func SubtractCombos(base, remove ast.Sequence) ast.Sequence {
	drop := make(map[string]bool, len(remove))
	for _, combo := range remove {
		drop[combo.Canonical()] = true
	}

	result := make(ast.Sequence, 0, len(base))

	for _, combo := range base {
		if drop[combo.Canonical()] {
			continue
		}

		result = append(result, combo)
	}

	return result
}


func (c *Context) applyDataAssociation(d *ast.DataAssociation) {
	switch d.Target {
	case ast.PixelPositionTarget:
		c.PixelPositions[d.Index] = c.PixelPositions[d.Index].Overlay(d.Position)
	case ast.ScanCodePositionTarget:
		c.ScanCodePositions[d.Index] = c.ScanCodePositions[d.Index].Overlay(d.Position)
	}
}

func (c *Context) applyCapability(cap *ast.Capability, diags *kllerr.List) {
	existing, ok := c.Capabilities[cap.Name]
	if ok && existing.Signature() != cap.Signature() {
		diags.Add(kllerr.NewLineError(kllerr.Semantic, cap.File(), cap.Line(),
			"capability %q redeclared with a different signature (was %q, now %q)",
			cap.Name, existing.Signature(), cap.Signature()))

		return
	}

	c.Capabilities[cap.Name] = cap
}

func (c *Context) applyNameAssociation(n *ast.NameAssociation, diags *kllerr.List) {
	existing, ok := c.NameAssociations[n.Name]
	if ok && existing.CName != n.CName {
		diags.Add(kllerr.NewLineError(kllerr.Semantic, n.File(), n.Line(),
			"%s association %q redeclared with a different target (was %q, now %q)",
			n.Keyword, n.Name, existing.CName, n.CName))

		return
	}

	c.NameAssociations[n.Name] = n
}

func (c *Context) applyAnimationDefinition(def *ast.AnimationDefinition) {
	entry := c.animationEntry(def.Name)
	entry.Modifiers = def.Modifiers
	entry.AppendMode = def.AppendMode

	for k, v := range def.Settings {
		entry.Settings[k] = v
	}
}

func (c *Context) applyAnimationFrame(frame *ast.AnimationFrame) {
	entry := c.animationEntry(frame.Name)
	entry.Frames[frame.FrameIndex] = frame
}

func (c *Context) animationEntry(name string) *AnimationEntry {
	entry, ok := c.Animations[name]
	if !ok {
		entry = &AnimationEntry{
			Name:     name,
			Settings: map[string]ast.Value{},
			Frames:   map[uint32]*ast.AnimationFrame{},
		}
		c.Animations[name] = entry
	}

	return entry
}
