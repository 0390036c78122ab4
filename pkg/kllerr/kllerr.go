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

// Package kllerr implements the error and warning taxonomy of the KLL
// compiler (spec §7): TokenizerError, ParseError, SemanticError, MergeError,
// FinalizationError, Cancelled and InternalError, plus an accumulating
// List so a single pass can report more than one problem before the
// driver decides whether to continue to the next stage.
package kllerr

import (
	"errors"
	"fmt"

	"github.com/kll-tools/kll-compiler/pkg/source"
)

// Kind identifies which member of the §7 taxonomy an Error belongs to.
type Kind int

// The seven error kinds of spec §7.
const (
	Tokenizer Kind = iota
	Parse
	Semantic
	Merge
	Finalization
	CancelledKind
	Internal
)

func (k Kind) String() string {
	switch k {
	case Tokenizer:
		return "tokenizer error"
	case Parse:
		return "parse error"
	case Semantic:
		return "semantic error"
	case Merge:
		return "merge error"
	case Finalization:
		return "finalization error"
	case CancelledKind:
		return "cancelled"
	case Internal:
		return "internal error"
	default:
		return "error"
	}
}

// Cancelled is returned by a stage when it observes a cancelled context at
// its top boundary (spec §5); sentinel so callers can errors.Is against it.
var Cancelled = &Error{Kind: CancelledKind, Msg: "compilation cancelled"}

// Error is a structured, positioned error carrying its kind, its source file
// and span (when known), and a human message.  Its Error() string matches
// the §7 user-visible format: "file:line:col: kind: text".
type Error struct {
	Kind Kind
	File *source.File
	Span source.Span
	Msg  string
}

// New constructs a positioned error of the given kind.
func New(kind Kind, file *source.File, span source.Span, msg string, args ...any) *Error {
	return &Error{kind, file, span, fmt.Sprintf(msg, args...)}
}

// NewUnpositioned constructs an error with no known source location (used by
// merge/finalization stages which reason across many files at once).
func NewUnpositioned(kind Kind, msg string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(msg, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.File == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}

	line, col := e.File.LineCol(e.Span.Start())

	return fmt.Sprintf("%s:%d:%d: %s: %s\n%s", e.File.Filename(), line, col, e.Kind, e.Msg, e.excerpt())
}

func (e *Error) excerpt() string {
	l := e.File.FindLine(e.Span.Start())
	return "  " + l.String()
}

// Is allows errors.Is(err, Cancelled) to match any Cancelled-kind error.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind && other == Cancelled
	}

	return false
}

// Warning is a non-fatal diagnostic (shadowed assignment, rejected isolation
// override, analog-on-non-analog schedule, …).  It is accumulated as data
// rather than printed inline, so a driver or test can inspect it directly.
type Warning struct {
	File *source.File
	Span source.Span
	Msg  string
}

// NewWarning constructs a positioned warning.
func NewWarning(file *source.File, span source.Span, msg string, args ...any) Warning {
	return Warning{file, span, fmt.Sprintf(msg, args...)}
}

// String renders the warning in the same "file:line:col: warning: text"
// format §7 mandates.
func (w Warning) String() string {
	if w.File == nil {
		return "warning: " + w.Msg
	}

	line, col := w.File.LineCol(w.Span.Start())

	return fmt.Sprintf("%s:%d:%d: warning: %s", w.File.Filename(), line, col, w.Msg)
}

// NewLineWarning constructs a warning positioned at the start of a given
// 1-indexed source line. Semantic-stage diagnostics (pkg/kllcontext,
// pkg/merge) are raised against an *ast.Expression, which tracks only a line
// number rather than a precise span (spec §3 "Lifecycle"); this bridges that
// to the same "file:line:col: warning: text" rendering the tokenizer and
// parser's span-based warnings use.
func NewLineWarning(file *source.File, line int, msg string, args ...any) Warning {
	return Warning{file, spanForLine(file, line), fmt.Sprintf(msg, args...)}
}

// NewLineError constructs a positioned error the same way NewLineWarning does.
func NewLineError(kind Kind, file *source.File, line int, msg string, args ...any) *Error {
	return &Error{kind, file, spanForLine(file, line), fmt.Sprintf(msg, args...)}
}

func spanForLine(file *source.File, line int) source.Span {
	if file == nil {
		return source.NewSpan(0, 0)
	}

	contents := file.Contents()
	cur := 1
	start := 0

	for i, r := range contents {
		if cur == line {
			end := i
			for end < len(contents) && contents[end] != '\n' {
				end++
			}

			return source.NewSpan(start, end)
		}

		if r == '\n' {
			cur++
			start = i + 1
		}
	}

	return source.NewSpan(start, len(contents))
}

// List accumulates user errors (kinds Tokenizer..Merge) across a pass, plus
// any warnings raised along the way.  FinalizationError and InternalError
// are expected to abort immediately rather than accumulate (spec §7).
type List struct {
	Errors   []*Error
	Warnings []Warning
}

// Add appends an error to the list.
func (l *List) Add(err *Error) {
	l.Errors = append(l.Errors, err)
}

// Warn appends a warning to the list.
func (l *List) Warn(w Warning) {
	l.Warnings = append(l.Warnings, w)
}

// HasErrors reports whether any error has been accumulated.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

// Join merges another list's errors and warnings into this one.
func (l *List) Join(other *List) {
	if other == nil {
		return
	}

	l.Errors = append(l.Errors, other.Errors...)
	l.Warnings = append(l.Warnings, other.Warnings...)
}

// Error implements the error interface so a *List can itself be returned
// wherever a single error is expected (e.g. from a top-level Compile call).
func (l *List) Error() string {
	if len(l.Errors) == 1 {
		return l.Errors[0].Error()
	}

	return fmt.Sprintf("%d errors (first: %s)", len(l.Errors), l.Errors[0].Error())
}
