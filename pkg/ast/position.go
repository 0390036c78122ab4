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

import "github.com/kll-tools/kll-compiler/pkg/util"

// Position is a partial, six-axis physical position (x,y,z,rx,ry,rz in
// mm/deg). Any subset of the six axes may be provided (spec §3); axes left
// unset default to 0 only once finalized (spec §4.5) — up to that point the
// distinction between "unset" and "explicitly zero" is preserved so that a
// later Overlay does not clobber an axis no one actually touched.
type Position struct {
	X, Y, Z    util.Option[float64]
	RX, RY, RZ util.Option[float64]
}

// Overlay merges a newer (higher-precedence) partial position on top of this
// one, axis by axis: an axis present in newer replaces this one's, an axis
// absent in newer leaves this one's value untouched (spec §3 invariant:
// "assigning only x does not erase a previously set y").
func (p Position) Overlay(newer Position) Position {
	return Position{
		X:  overlayAxis(p.X, newer.X),
		Y:  overlayAxis(p.Y, newer.Y),
		Z:  overlayAxis(p.Z, newer.Z),
		RX: overlayAxis(p.RX, newer.RX),
		RY: overlayAxis(p.RY, newer.RY),
		RZ: overlayAxis(p.RZ, newer.RZ),
	}
}

func overlayAxis(base, newer util.Option[float64]) util.Option[float64] {
	if newer.HasValue() {
		return newer
	}

	return base
}

// Resolved returns the six axes in declaration order (x,y,z,rx,ry,rz), with
// any unset axis defaulting to 0, as required at finalization (spec §4.5,
// "Physical key positions... axes never assigned default to 0").
func (p Position) Resolved() [6]float64 {
	return [6]float64{
		axisOrZero(p.X), axisOrZero(p.Y), axisOrZero(p.Z),
		axisOrZero(p.RX), axisOrZero(p.RY), axisOrZero(p.RZ),
	}
}

func axisOrZero(v util.Option[float64]) float64 {
	if v.HasValue() {
		return v.Unwrap()
	}

	return 0
}
