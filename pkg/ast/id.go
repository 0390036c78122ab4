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

package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kll-tools/kll-compiler/pkg/util"
)

// Id is the tagged union over the kinds of thing a KLL expression can name
// (spec §3): a HID usage, a scan code, a pixel or pixel-layer reference, an
// animation reference, a capability invocation, or one of the simpler
// singleton kinds. Every concrete Id also knows how to render its own
// canonical textual form, which is what trigger-key canonicalization and the
// `kll` emitter both build on.
type Id interface {
	// Canonical renders this id in the same normalized form regardless of
	// how it was spelled in source (e.g. hex case, range vs enumeration).
	Canonical() string
	isID()
}

// ============================================================================
// HidId
// ============================================================================

// HidKind distinguishes the HID usage pages KLL understands.
type HidKind int

// The HID usage pages a HidId may belong to.
const (
	HidKeyboard HidKind = iota
	HidConsumer
	HidSystem
	HidIndicator
	HidLocale
)

func (k HidKind) prefix() string {
	switch k {
	case HidKeyboard:
		return "U"
	case HidConsumer:
		return "CONS"
	case HidSystem:
		return "SYS"
	case HidIndicator:
		return "I"
	case HidLocale:
		return "LOC"
	default:
		return "U"
	}
}

// HidId names a USB/HID usage, optionally keeping the symbolic name it was
// spelled with in source (e.g. "A", "Eject") alongside its numeric code.
type HidId struct {
	Kind   HidKind
	Code   uint16
	Symbol string
	HasSymbol bool
}

func (HidId) isID() {}

// Canonical renders e.g. U"A", CONS"Eject", or U0x41 when no symbol is known.
func (h HidId) Canonical() string {
	if h.HasSymbol {
		return fmt.Sprintf("%s%q", h.Kind.prefix(), h.Symbol)
	}

	return fmt.Sprintf("%s0x%X", h.Kind.prefix(), h.Code)
}

// ============================================================================
// ScanCodeId
// ============================================================================

// ScanCodeId names a physical key switch by its scan code, optionally
// qualified by a schedule (timing/state qualifiers).
type ScanCodeId struct {
	Code     uint16
	Schedule util.Option[Schedule]
}

func (ScanCodeId) isID() {}

// Canonical renders e.g. S0x43. The schedule, if any, is rendered separately
// by the enclosing IdExpr so that an absent-vs-empty schedule distinction is
// preserved at that level (spec §3, §9).
func (s ScanCodeId) Canonical() string {
	return fmt.Sprintf("S0x%X", s.Code)
}

// ============================================================================
// PixelId
// ============================================================================

// AddressMode distinguishes absolute pixel addressing from relative
// (positive or negative) addressing used by some pixel mapping shorthands.
type AddressMode int

// The two pixel addressing modes KLL supports.
const (
	Absolute AddressMode = iota
	RelativeSigned
)

// PixelChannel is one (index,width) channel tuple of a pixel's mapping, e.g.
// the "1:8" in P[1:8,2:8,3:8].
type PixelChannel struct {
	Index uint8
	Width uint8
}

// PixelId names a single addressable pixel and its channel layout.
type PixelId struct {
	Index       uint32
	Channels    []PixelChannel
	AddressMode AddressMode
}

func (PixelId) isID() {}

// Canonical renders e.g. P[1,2:8,3:8].
func (p PixelId) Canonical() string {
	parts := make([]string, len(p.Channels))
	for i, c := range p.Channels {
		if c.Width == 0 {
			parts[i] = fmt.Sprintf("%d", c.Index)
		} else {
			parts[i] = fmt.Sprintf("%d:%d", c.Index, c.Width)
		}
	}

	sign := ""
	if p.AddressMode == RelativeSigned {
		sign = "+"
	}

	return fmt.Sprintf("P%s[%s]", sign, strings.Join(parts, ","))
}

// ============================================================================
// PixelLayerId
// ============================================================================

// PixelLayerId references a pixel animation layer by index.
type PixelLayerId struct {
	Index uint32
}

func (PixelLayerId) isID() {}

// Canonical renders e.g. PL[2].
func (p PixelLayerId) Canonical() string {
	return fmt.Sprintf("PL[%d]", p.Index)
}

// ============================================================================
// AnimationId
// ============================================================================

// AnimationModifier is a single "name" or "name:value" qualifier attached to
// an animation reference, e.g. the "loop" in A[wave,loop].
type AnimationModifier struct {
	Name  string
	Value string
	HasValue bool
}

// AnimationId references a named pixel animation.
type AnimationId struct {
	Name      string
	Modifiers []AnimationModifier
}

func (AnimationId) isID() {}

// Canonical renders e.g. A[wave] or A[wave,loop:2].
func (a AnimationId) Canonical() string {
	if len(a.Modifiers) == 0 {
		return fmt.Sprintf("A[%s]", a.Name)
	}

	parts := make([]string, len(a.Modifiers))

	for i, m := range a.Modifiers {
		if m.HasValue {
			parts[i] = fmt.Sprintf("%s:%s", m.Name, m.Value)
		} else {
			parts[i] = m.Name
		}
	}

	return fmt.Sprintf("A[%s,%s]", a.Name, strings.Join(parts, ","))
}

// ============================================================================
// CapabilityId
// ============================================================================

// CapabilityId invokes a named capability with a concrete argument list. Each
// argument is an int, a string, or another Id (spec §3).
type CapabilityId struct {
	Name string
	Args []Value
}

func (CapabilityId) isID() {}

// Canonical renders e.g. myCapability(1,"x",U"A").
func (c CapabilityId) Canonical() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.Canonical()
	}

	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(parts, ","))
}

// ============================================================================
// Simple singleton-ish kinds
// ============================================================================

// UsbCodeId names a raw USB usage code without HID-table interpretation.
type UsbCodeId struct{ Code uint16 }

func (UsbCodeId) isID()              {}
func (u UsbCodeId) Canonical() string { return fmt.Sprintf("USB0x%X", u.Code) }

// GenericTriggerId names a generic (non-scancode, non-HID) trigger source.
type GenericTriggerId struct{ Code uint16 }

func (GenericTriggerId) isID()              {}
func (g GenericTriggerId) Canonical() string { return fmt.Sprintf("T0x%X", g.Code) }

// NoneId represents the explicit "no-op" trigger/result id.
type NoneId struct{}

func (NoneId) isID()              {}
func (NoneId) Canonical() string { return "None" }

// UnicodeCodePointId names a Unicode code point, e.g. U+1F600.
type UnicodeCodePointId struct{ CodePoint rune }

func (UnicodeCodePointId) isID() {}
func (u UnicodeCodePointId) Canonical() string {
	return fmt.Sprintf("U+%04X", u.CodePoint)
}

// CharacterId names a single literal character result, e.g. 'a'.
type CharacterId struct{ Char rune }

func (CharacterId) isID()              {}
func (c CharacterId) Canonical() string { return fmt.Sprintf("%q", c.Char) }

// StringId names a literal string result, e.g. u'Hello'.
type StringId struct{ Text string }

func (StringId) isID()              {}
func (s StringId) Canonical() string { return fmt.Sprintf("u%q", s.Text) }

// LayerId references a layer-affecting control (shift/latch/lock/default).
type LayerKind int

// The four ways a LayerId can affect the active layer stack.
const (
	LayerShift LayerKind = iota
	LayerLatch
	LayerLock
	LayerDefault
)

func (k LayerKind) String() string {
	switch k {
	case LayerShift:
		return "Shift"
	case LayerLatch:
		return "Latch"
	case LayerLock:
		return "Lock"
	case LayerDefault:
		return "Default"
	default:
		return "Shift"
	}
}

// LayerId is a layer shift/latch/lock/default-to control.
type LayerId struct {
	Kind  LayerKind
	Index uint32
}

func (LayerId) isID() {}
func (l LayerId) Canonical() string {
	return fmt.Sprintf("Layer%s(%d)", l.Kind, l.Index)
}

// ============================================================================
// RangeId
// ============================================================================

// RangeDomain identifies what kind of ordinal a RangeId's bounds count over.
type RangeDomain int

// The domains a source-level range id can be written over (spec §4.2:
// "S[0x43-0x50], U[\"1\"-\"5\"]... expand at finalization").
const (
	RangeScanCode RangeDomain = iota
	RangeCharacter
	RangeCodePoint
)

// RangeId is a source-level range id expression, kept symbolic (not expanded
// into its member ids) until finalization (spec §4.2, §4.5): the parser only
// ever produces one RangeId per bracketed range, regardless of how many
// concrete ids it will eventually expand to.
type RangeId struct {
	Domain     RangeDomain
	Start, End uint32
}

func (RangeId) isID() {}

// Canonical renders the range using the surface form of its domain, e.g.
// S[0x43-0x50] or U["1"-"5"].
func (r RangeId) Canonical() string {
	switch r.Domain {
	case RangeCharacter:
		return fmt.Sprintf("U[%q-%q]", rune(r.Start), rune(r.End))
	case RangeCodePoint:
		return fmt.Sprintf("U[+%04X-+%04X]", r.Start, r.End)
	default:
		return fmt.Sprintf("S[0x%X-0x%X]", r.Start, r.End)
	}
}

// Expand enumerates the concrete ids this range denotes, in ascending order.
// Called only by finalization (spec §4.5); the parser and stores never call
// this, which is what keeps range collision detection deferred correctly.
func (r RangeId) Expand() []Id {
	ids := make([]Id, 0, r.End-r.Start+1)

	for v := r.Start; v <= r.End; v++ {
		switch r.Domain {
		case RangeCharacter:
			ids = append(ids, CharacterId{Char: rune(v)})
		case RangeCodePoint:
			ids = append(ids, UnicodeCodePointId{CodePoint: rune(v)})
		default:
			ids = append(ids, ScanCodeId{Code: uint16(v)})
		}
	}

	return ids
}

// ============================================================================
// IdExpr: an Id together with its (possibly absent) schedule
// ============================================================================

// IdExpr pairs an Id with its optional schedule. An absent schedule means
// "any activation"; a present-but-empty schedule means "press" implicitly
// (spec §3) — the distinction is preserved via util.Option[Schedule], never
// collapsed to a bare Schedule value.
type IdExpr struct {
	Id       Id
	Schedule util.Option[Schedule]
}

// Canonical renders the id followed by its schedule's canonical form, if
// present (including when present-but-empty, which renders as "()").
func (e IdExpr) Canonical() string {
	if e.Schedule.IsEmpty() {
		return e.Id.Canonical()
	}

	return e.Id.Canonical() + e.Schedule.Unwrap().Canonical()
}

// Combo is a set of ids that must be active simultaneously. Canonicalization
// sorts the member ids' canonical forms so that physically-equivalent combos
// (which are unordered sets) compare equal regardless of declaration order.
type Combo []IdExpr

// Canonical returns the sorted, '+'-joined canonical form of this combo.
func (c Combo) Canonical() string {
	parts := make([]string, len(c))
	for i, e := range c {
		parts[i] = e.Canonical()
	}

	sort.Strings(parts)

	return strings.Join(parts, "+")
}

// Sequence is an ordered list of combos, i.e. the full left- or right-hand
// side of a mapping.
type Sequence []Combo

// Canonical returns the ','-joined canonical form of this sequence, which is
// exactly the trigger-key used to classify mappings within a store (spec
// §3 "Stores").
func (s Sequence) Canonical() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.Canonical()
	}

	return strings.Join(parts, ",")
}
