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

// Package source provides file and span primitives shared by every stage of
// the KLL pipeline, so that tokens, expressions and errors can all point
// back at the exact slice of source text they came from.
package source

import (
	"os"
)

// Span represents a contiguous slice of a source file's runes.  Retaining the
// physical indices (rather than a string slice) lets later stages recover the
// enclosing line for error reporting without re-scanning from the start.
type Span struct {
	start int
	end   int
}

// NewSpan constructs a span, checking that start <= end.
func NewSpan(start, end int) Span {
	if start > end {
		panic("invalid span")
	}

	return Span{start, end}
}

// Start returns the first rune index covered by this span.
func (s Span) Start() int { return s.start }

// End returns one past the last rune index covered by this span.
func (s Span) End() int { return s.end }

// Length returns the number of runes covered by this span.
func (s Span) Length() int { return s.end - s.start }

// File represents a single KLL source file read into memory.
type File struct {
	filename string
	contents []rune
}

// NewFile constructs a source file from its raw bytes.
func NewFile(filename string, bytes []byte) *File {
	return &File{filename, []rune(string(bytes))}
}

// ReadFile reads a KLL source file from disk.
func ReadFile(filename string) (*File, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return NewFile(filename, bytes), nil
}

// Filename returns the path this file was loaded from.
func (f *File) Filename() string { return f.filename }

// Contents returns the full rune sequence of this file.
func (f *File) Contents() []rune { return f.contents }

// Line describes one physical line of a source file, numbered from 1.
type Line struct {
	text   []rune
	span   Span
	number int
}

// String returns the text of this line (excluding its terminator).
func (l Line) String() string { return string(l.text[l.span.start:l.span.end]) }

// Number returns the 1-indexed physical line number.
func (l Line) Number() int { return l.number }

// FindLine determines the physical line (counting from 1) enclosing a given
// rune index.  If the index is beyond the end of the file, the last line is
// returned.
func (f *File) FindLine(index int) Line {
	num := 1
	start := 0

	for i, r := range f.contents {
		if i == index {
			return Line{f.contents, Span{start, endOfLine(index, f.contents)}, num}
		} else if r == '\n' {
			num++
			start = i + 1
		}
	}

	return Line{f.contents, Span{start, len(f.contents)}, num}
}

// LineCol converts a rune index into a 1-indexed (line, column) pair.
func (f *File) LineCol(index int) (line, col int) {
	l := f.FindLine(index)
	return l.number, index - l.span.start + 1
}

func endOfLine(index int, text []rune) int {
	for i := index; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}

	return len(text)
}
