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

// Package token implements the KLL tokenizer (spec §4.1): it turns a source
// file's text into a flat stream of positioned tokens, dropping whitespace
// and comments, and tagging namespaced-id prefixes so the parser never has
// to re-inspect raw source text for them.
package token

import "github.com/kll-tools/kll-compiler/pkg/source"

// Kind identifies the lexical class of a Token.
type Kind int

// The token kinds of spec §4.1.
const (
	NUMBER Kind = iota
	STRING
	CHARSTRING
	USTRING
	CODEPOINT
	NAME
	NAMESPACED
	COLON
	COMMA
	SEMI
	PLUS
	EQUALS
	COLON_PLUS
	COLON_MINUS
	COLON_COLON
	IND_COLON
	IND_COLON_PLUS
	IND_COLON_MINUS
	IND_COLON_COLON
	BRACKET_OPEN
	BRACKET_CLOSE
	PAREN_OPEN
	PAREN_CLOSE
	DASH
	EOF
)

// String names a Kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case CHARSTRING:
		return "charstring"
	case USTRING:
		return "ustring"
	case CODEPOINT:
		return "codepoint"
	case NAME:
		return "name"
	case NAMESPACED:
		return "namespaced prefix"
	case COLON:
		return "':'"
	case COMMA:
		return "','"
	case SEMI:
		return "';'"
	case PLUS:
		return "'+'"
	case EQUALS:
		return "'='"
	case COLON_PLUS:
		return "':+'"
	case COLON_MINUS:
		return "':-'"
	case COLON_COLON:
		return "'::'"
	case IND_COLON:
		return "'i:'"
	case IND_COLON_PLUS:
		return "'i:+'"
	case IND_COLON_MINUS:
		return "'i:-'"
	case IND_COLON_COLON:
		return "'i::'"
	case BRACKET_OPEN:
		return "'['"
	case BRACKET_CLOSE:
		return "']'"
	case PAREN_OPEN:
		return "'('"
	case PAREN_CLOSE:
		return "')'"
	case DASH:
		return "'-'"
	case EOF:
		return "end of file"
	default:
		return "token"
	}
}

// Token is a single lexical unit with its source position. Text holds the
// token's literal content (decoded for strings/chars, verbatim for numbers
// and names); for NAMESPACED tokens, Text is the bare namespace prefix
// (e.g. "U", "CONS", "S", "P", "PL", "A", "I", "T", "CODE", "LED").
type Token struct {
	Kind Kind
	Text string
	Span source.Span
	Line int
	Col  int
}
