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
	"strings"

	"github.com/kll-tools/kll-compiler/pkg/util"
)

// State is one of the timing/activation states a ScheduleParam can bind
// (spec §3): press, hold, release, off/on, unique-press, unique-release,
// depress, activate.
type State int

// The eight schedule states KLL recognises.
const (
	Press State = iota
	Hold
	Release
	Off
	UniquePress
	UniqueRelease
	Depress
	Activate
)

// String renders a State using its one/two-letter KLL spelling.
func (s State) String() string {
	switch s {
	case Press:
		return "P"
	case Hold:
		return "H"
	case Release:
		return "R"
	case Off:
		return "O"
	case UniquePress:
		return "UP"
	case UniqueRelease:
		return "UR"
	case Depress:
		return "D"
	case Activate:
		return "A"
	default:
		return "P"
	}
}

// TimeUnit is the unit a Timing amount is measured in.
type TimeUnit int

// The four timing units a Timing value may use.
const (
	Seconds TimeUnit = iota
	Milliseconds
	Microseconds
	Nanoseconds
)

// String renders a TimeUnit using its KLL suffix.
func (u TimeUnit) String() string {
	switch u {
	case Seconds:
		return "s"
	case Milliseconds:
		return "ms"
	case Microseconds:
		return "us"
	case Nanoseconds:
		return "ns"
	default:
		return "ms"
	}
}

// Timing is a numeric duration bound to a schedule state (or to the default
// implicit state when unqualified).
type Timing struct {
	Amount float64
	Unit   TimeUnit
}

// Canonical renders e.g. "300ms".
func (t Timing) Canonical() string {
	if t.Amount == float64(int64(t.Amount)) {
		return fmt.Sprintf("%d%s", int64(t.Amount), t.Unit)
	}

	return fmt.Sprintf("%g%s", t.Amount, t.Unit)
}

// ScheduleParam is one element of a Schedule: a state (with an optional
// timing or analog value bound to it), a bare timing bound to the implicit
// default state, or a bare analog value bound to the implicit default state
// (spec §3).
type ScheduleParam struct {
	State    State
	HasState bool
	Timing   util.Option[Timing]
	Analog   util.Option[uint8]
}

// Canonical renders this parameter in the form the tokenizer would have
// accepted it back as: "P", "H:300ms", or a bare "128" for an implicit-state
// analog value.
func (p ScheduleParam) Canonical() string {
	switch {
	case p.HasState && p.Timing.HasValue():
		return fmt.Sprintf("%s:%s", p.State, p.Timing.Unwrap().Canonical())
	case p.HasState && p.Analog.HasValue():
		return fmt.Sprintf("%s:%d", p.State, p.Analog.Unwrap())
	case p.HasState:
		return p.State.String()
	case p.Timing.HasValue():
		return p.Timing.Unwrap().Canonical()
	case p.Analog.HasValue():
		return fmt.Sprintf("%d", p.Analog.Unwrap())
	default:
		return ""
	}
}

// Schedule is an ordered list of ScheduleParams attached to an Id. An empty
// Schedule is distinct from an absent one (spec §3, §9): that distinction is
// carried by wrapping Schedule in util.Option wherever it is optional (see
// IdExpr), never by a nil/empty check on Schedule itself.
type Schedule []ScheduleParam

// Canonical renders e.g. "(P,H:300ms,R)", preserving declaration order
// (spec's seed test 4 requires S0x43(P,UP,UR) and the range-expanded form of
// the same schedule to produce identical canonical output, which they do as
// long as param order is preserved rather than re-sorted).
func (s Schedule) Canonical() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = p.Canonical()
	}

	return "(" + strings.Join(parts, ",") + ")"
}

// StatesUsed returns the set of states explicitly bound by this schedule,
// used to detect a state bound twice (spec §3 invariant: "A schedule may
// bind each state at most once").
func (s Schedule) StatesUsed() map[State]int {
	counts := make(map[State]int, len(s))

	for _, p := range s {
		if p.HasState {
			counts[p.State]++
		}
	}

	return counts
}
