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

import "fmt"

// Value is the tagged union of literal right-hand-side forms that appear in
// assignments and capability argument lists: an integer, a string, or an Id
// (spec §3: "CapabilityId{ ... args: list<int|string|Id> }").
type Value interface {
	Canonical() string
	isValue()
}

// IntValue is an integer literal value.
type IntValue int64

func (IntValue) isValue()              {}
func (v IntValue) Canonical() string { return fmt.Sprintf("%d", int64(v)) }

// StringValue is a double- or single-quoted string literal value.
type StringValue string

func (StringValue) isValue()              {}
func (v StringValue) Canonical() string { return fmt.Sprintf("%q", string(v)) }

// IdValue wraps an Id used as a value, e.g. a capability argument that is
// itself another id expression.
type IdValue struct{ Id Id }

func (IdValue) isValue()              {}
func (v IdValue) Canonical() string { return v.Id.Canonical() }
