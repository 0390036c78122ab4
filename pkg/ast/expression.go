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

// Package ast defines the KLL expression tree: identifier values, schedules,
// physical positions and the tagged union of expression forms the parser
// produces (spec §3). Matching is exhaustive by convention (a type switch
// over the concrete structs below), not by a base-class hierarchy, so that
// adding a new variant forces every consumer to be updated.
package ast

import "github.com/kll-tools/kll-compiler/pkg/source"

// Role tags an expression (or a whole Context) with its position in the
// fixed cross-context merge precedence order (spec §3, §4.4).
type Role int

// The merge precedence order, lowest to highest.
const (
	RoleGeneric Role = iota
	RoleConfiguration
	RoleBaseMap
	RoleDefaultMap
	RolePartialMap
	RoleMerge
)

// String renders a Role using its spec name.
func (r Role) String() string {
	switch r {
	case RoleGeneric:
		return "Generic"
	case RoleConfiguration:
		return "Configuration"
	case RoleBaseMap:
		return "BaseMap"
	case RoleDefaultMap:
		return "DefaultMap"
	case RolePartialMap:
		return "PartialMap"
	case RoleMerge:
		return "Merge"
	default:
		return "Generic"
	}
}

// Expression is the tagged union of everything the parser can produce from
// one KLL statement (spec §3). Every variant carries its source file, line
// and role; consumers switch on the concrete type.
type Expression interface {
	File() *source.File
	Line() int
	Role() Role
	// FileOrder is the 0-based position of this expression's own file
	// within its context's file list, used for deterministic traversal
	// (spec §4.5: "context order, then source line order").
	FileOrder() int
	isExpression()
}

// Base carries the fields common to every Expression variant.
type Base struct {
	SrcFile    *source.File
	SrcLine    int
	SrcRole    Role
	SrcFileOrd int
}

// File returns the source file this expression was parsed from.
func (b Base) File() *source.File { return b.SrcFile }

// Line returns the 1-indexed source line this expression was parsed from.
func (b Base) Line() int { return b.SrcLine }

// Role returns the role of the context this expression belongs to.
func (b Base) Role() Role { return b.SrcRole }

// FileOrder returns this expression's file's position within its context.
func (b Base) FileOrder() int { return b.SrcFileOrd }

// ============================================================================
// Assignment
// ============================================================================

// AssignmentKind distinguishes the four assignment sub-forms of spec §3.
type AssignmentKind int

// The four assignment sub-forms.
const (
	ScalarAssignment AssignmentKind = iota
	ArrayElementAssignment
	ArrayWholeAssignment
	CharacterDataAssignment
)

// Assignment is a variable assignment: scalar, array-element, array-whole,
// or a character-capability data association (spec §3).
type Assignment struct {
	Base
	Kind   AssignmentKind
	Name   string
	Index  uint32 // meaningful only when Kind == ArrayElementAssignment
	Values []Value
}

func (*Assignment) isExpression() {}

// Key returns the variables-store key this assignment classifies under: the
// variable name alone, for every kind. An array element is kept under its
// array's name and told apart by Index inside that entry
// (kllcontext.Variable.Elements).
func (a *Assignment) Key() string {
	if a.Kind == ArrayElementAssignment {
		return a.Name
	}

	return a.Name
}

// ============================================================================
// Mapping
// ============================================================================

// MapOp is the operator of a mapping expression (spec §3, §4.3).
type MapOp int

// The nine mapping operators: five base forms, four of which also have an
// "indicator-map" variant (the "i:" prefix); replace (=) has none.
const (
	OpMapsTo MapOp = iota
	OpAddTo
	OpRemoveFrom
	OpIsolate
	OpReplace
	OpIndicatorMapsTo
	OpIndicatorAddTo
	OpIndicatorRemoveFrom
	OpIndicatorIsolate
)

// IsIndicator reports whether this operator belongs to the "i:" family.
func (op MapOp) IsIndicator() bool {
	return op >= OpIndicatorMapsTo
}

// Base returns the non-indicator operator with the same override semantics,
// so that store logic need only implement one set of rules (spec §4.3).
func (op MapOp) Base() MapOp {
	switch op {
	case OpIndicatorMapsTo:
		return OpMapsTo
	case OpIndicatorAddTo:
		return OpAddTo
	case OpIndicatorRemoveFrom:
		return OpRemoveFrom
	case OpIndicatorIsolate:
		return OpIsolate
	default:
		return op
	}
}

// Mapping is a `trigger OP result;` expression (spec §3).
type Mapping struct {
	Base
	Op      MapOp
	Trigger Sequence
	Result  Sequence
}

func (*Mapping) isExpression() {}

// TriggerKey returns the canonical trigger-key this mapping classifies under
// within its context's mappings store (spec §3).
func (m *Mapping) TriggerKey() string {
	return m.Trigger.Canonical()
}

// ============================================================================
// DataAssociation
// ============================================================================

// PositionTarget distinguishes a pixel position binding from a scan code
// position binding (spec §3).
type PositionTarget int

// The two kinds of thing a DataAssociation can bind physical position data to.
const (
	PixelPositionTarget PositionTarget = iota
	ScanCodePositionTarget
)

// DataAssociation binds a pixel or scan code to partial physical position
// data (spec §3).
type DataAssociation struct {
	Base
	Target   PositionTarget
	Index    uint32
	Position Position
}

func (*DataAssociation) isExpression() {}

// ============================================================================
// Capability
// ============================================================================

// Capability declares a named capability with a typed argument list and a
// C-level symbol (spec §3).
type Capability struct {
	Base
	Name     string
	Symbol   string
	ArgTypes []string
}

func (*Capability) isExpression() {}

// Signature returns the part of a capability declaration that must match
// exactly across re-declarations (spec §4.3, §4.4): its C symbol and
// argument type list.
func (c *Capability) Signature() string {
	sig := c.Symbol

	for _, t := range c.ArgTypes {
		sig += ":" + t
	}

	return sig
}

// ============================================================================
// AnimationDefinition / AnimationFrame
// ============================================================================

// AnimationDefinition declares an animation's settings (spec §3).
type AnimationDefinition struct {
	Base
	Name       string
	Modifiers  []AnimationModifier
	Settings   map[string]Value
	AppendMode bool
}

func (*AnimationDefinition) isExpression() {}

// AnimationFrame provides one pixel-frame byte sequence of a named animation
// (spec §3).
type AnimationFrame struct {
	Base
	Name       string
	FrameIndex uint32
	Pixels     []byte
}

func (*AnimationFrame) isExpression() {}

// ============================================================================
// NameAssociation / Define
// ============================================================================

// NameAssociation binds a symbolic name to a C identifier, via either the
// "name" or "define" keyword family (spec §3; the two keywords share
// semantics so are modeled as one expression variant with provenance kept
// for diagnostics).
type NameAssociation struct {
	Base
	Keyword string // "name" or "define"
	Name    string
	CName   string
}

func (*NameAssociation) isExpression() {}
