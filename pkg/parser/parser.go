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

// Package parser turns a token stream into an ordered list of ast.Expression
// values (spec §4.2). The grammar is a small PEG: most statement forms are
// picked out by a reserved leading keyword or a structural lookahead of one
// or two tokens, so the parser rarely needs to backtrack — where it would
// otherwise be ambiguous (assignment vs. mapping, data association vs.
// mapping) the disambiguating lookahead is spelled out at the call site
// rather than hidden in a generic combinator layer.
package parser

import (
	"strconv"
	"strings"

	"github.com/kll-tools/kll-compiler/pkg/ast"
	"github.com/kll-tools/kll-compiler/pkg/kllerr"
	"github.com/kll-tools/kll-compiler/pkg/source"
	"github.com/kll-tools/kll-compiler/pkg/token"
	"github.com/kll-tools/kll-compiler/pkg/util"
)

// axisNames are the six position-binding keywords accepted by a
// DataAssociation's right-hand side.
var axisNames = map[string]bool{"x": true, "y": true, "z": true, "rx": true, "ry": true, "rz": true}

// stateNames maps the schedule state keywords to their ast.State.
var stateNames = map[string]ast.State{
	"P": ast.Press, "H": ast.Hold, "R": ast.Release, "O": ast.Off,
	"UP": ast.UniquePress, "UR": ast.UniqueRelease, "D": ast.Depress, "A": ast.Activate,
}

// layerKeywords maps the built-in layer-control keywords to their ast.LayerKind.
var layerKeywords = map[string]ast.LayerKind{
	"layerShift": ast.LayerShift, "layerLatch": ast.LayerLatch,
	"layerLock": ast.LayerLock, "layerDefault": ast.LayerDefault,
}

// Parse turns file's already-tokenized contents into its ordered list of
// expressions, tagging each with role and fileOrder. It accumulates as many
// ParseErrors as it can rather than stopping at the first (spec §7 allows a
// single pass to report more than one problem).
func Parse(file *source.File, tokens []token.Token, role ast.Role, fileOrder int) ([]ast.Expression, *kllerr.List) {
	p := &parser{file: file, tokens: tokens, role: role, fileOrder: fileOrder}

	var exprs []ast.Expression

	errs := &kllerr.List{}

	for p.cur().Kind != token.EOF {
		expr, err := p.parseStatement()
		if err != nil {
			errs.Add(err)
			p.recover()
			continue
		}

		exprs = append(exprs, expr)
	}

	if errs.HasErrors() {
		return nil, errs
	}

	return exprs, nil
}

type parser struct {
	file      *source.File
	tokens    []token.Token
	pos       int
	role      ast.Role
	fileOrder int
}

func (p *parser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *parser) at(offset int) token.Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}

	return p.tokens[p.pos+offset]
}

func (p *parser) advance() token.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}

	return tok
}

func (p *parser) errorf(tok token.Token, format string, args ...any) *kllerr.Error {
	return kllerr.New(kllerr.Parse, p.file, tok.Span, format, args...)
}

func (p *parser) expect(kind token.Kind) (token.Token, *kllerr.Error) {
	if p.cur().Kind != kind {
		return token.Token{}, p.errorf(p.cur(), "expected %s, got %s", kind, p.cur().Kind)
	}

	return p.advance(), nil
}

// recover skips to just past the next SEMI (or EOF), so one bad statement
// doesn't cascade into spurious errors for everything after it.
func (p *parser) recover() {
	for p.cur().Kind != token.EOF && p.cur().Kind != token.SEMI {
		p.advance()
	}

	if p.cur().Kind == token.SEMI {
		p.advance()
	}
}

func (p *parser) base(startLine int) ast.Base {
	return ast.Base{SrcFile: p.file, SrcLine: startLine, SrcRole: p.role, SrcFileOrd: p.fileOrder}
}

// ============================================================================
// Statement dispatch
// ============================================================================

func (p *parser) parseStatement() (ast.Expression, *kllerr.Error) {
	lead := p.cur()

	switch {
	case lead.Kind == token.NAME && lead.Text == "capability":
		return p.parseCapability()
	case lead.Kind == token.NAME && (lead.Text == "name" || lead.Text == "define"):
		return p.parseNameAssociation()
	case lead.Kind == token.NAME && lead.Text == "animation":
		return p.parseAnimationDefinition()
	case lead.Kind == token.NAME && lead.Text == "frame":
		return p.parseAnimationFrame()
	case p.looksLikeDataAssociation():
		return p.parseDataAssociation()
	case p.looksLikeAssignment():
		return p.parseAssignment()
	case p.looksLikeCharacterAssignment():
		return p.parseCharacterAssignment()
	default:
		return p.parseMapping()
	}
}

// looksLikeAssignment recognizes `NAME ('[' NUMBER? ']')? '='`, a shape that
// never arises at the start of a mapping's trigger sequence (a bare NAME
// there is only ever the start of a capability call, which requires a
// following '(', not '=').
func (p *parser) looksLikeAssignment() bool {
	if p.cur().Kind != token.NAME {
		return false
	}

	i := 1
	if p.at(i).Kind == token.BRACKET_OPEN {
		i++
		if p.at(i).Kind == token.NUMBER {
			i++
		}

		if p.at(i).Kind != token.BRACKET_CLOSE {
			return false
		}

		i++
	}

	return p.at(i).Kind == token.EQUALS
}

// looksLikeCharacterAssignment recognizes a bare character/string/codepoint
// literal immediately followed by '=', the character-data-association
// sub-form of Assignment (spec §3).
func (p *parser) looksLikeCharacterAssignment() bool {
	switch p.cur().Kind {
	case token.STRING, token.CHARSTRING, token.USTRING, token.CODEPOINT:
		return p.at(1).Kind == token.EQUALS
	default:
		return false
	}
}

// looksLikeDataAssociation recognizes `(P|PL|S)<id> ':' axisName`, which
// cannot otherwise arise: a mapping's result sequence never starts with a
// bare axis keyword (axis names aren't valid ns-ids).
func (p *parser) looksLikeDataAssociation() bool {
	if p.cur().Kind != token.NAMESPACED {
		return false
	}

	switch p.cur().Text {
	case "P", "PL", "S":
	default:
		return false
	}

	i := p.indexPastSingleIdExpr()
	if i < 0 {
		return false
	}

	return p.at(i).Kind == token.COLON && p.at(i+1).Kind == token.NAME && axisNames[p.at(i+1).Text]
}

// indexPastSingleIdExpr returns the token offset just past one namespaced id
// expression (prefix + its bracket/number body, with no trailing schedule),
// or -1 if the current tokens don't form one. It never mutates parser state.
func (p *parser) indexPastSingleIdExpr() int {
	if p.cur().Kind != token.NAMESPACED {
		return -1
	}

	i := 1

	switch p.cur().Text {
	case "S":
		if p.at(i).Kind == token.NUMBER {
			return i + 1
		}

		if p.at(i).Kind == token.BRACKET_OPEN {
			depth := 1
			i++

			for depth > 0 && p.at(i).Kind != token.EOF {
				switch p.at(i).Kind {
				case token.BRACKET_OPEN:
					depth++
				case token.BRACKET_CLOSE:
					depth--
				}

				i++
			}

			return i
		}

		return -1
	case "P", "PL":
		if p.at(i).Kind == token.PLUS {
			i++
		}

		if p.at(i).Kind != token.BRACKET_OPEN {
			return -1
		}

		depth := 1
		i++

		for depth > 0 && p.at(i).Kind != token.EOF {
			switch p.at(i).Kind {
			case token.BRACKET_OPEN:
				depth++
			case token.BRACKET_CLOSE:
				depth--
			}

			i++
		}

		return i
	default:
		return -1
	}
}

// ============================================================================
// Assignment
// ============================================================================

func (p *parser) parseAssignment() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	name := p.advance().Text

	kind := ast.ScalarAssignment

	var index uint32

	if p.cur().Kind == token.BRACKET_OPEN {
		p.advance()

		if p.cur().Kind == token.NUMBER {
			n, err := parseUintLiteral(p, p.advance())
			if err != nil {
				return nil, err
			}

			index = uint32(n)
			kind = ast.ArrayElementAssignment
		} else {
			kind = ast.ArrayWholeAssignment
		}

		if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.EQUALS); err != nil {
		return nil, err
	}

	values, err := p.parseValueList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.Assignment{Base: p.base(line), Kind: kind, Name: name, Index: index, Values: values}, nil
}

func (p *parser) parseCharacterAssignment() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	name := p.advance().Text

	if _, err := p.expect(token.EQUALS); err != nil {
		return nil, err
	}

	values, err := p.parseValueList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.Assignment{Base: p.base(line), Kind: ast.CharacterDataAssignment, Name: name, Values: values}, nil
}

func (p *parser) parseValueList() ([]ast.Value, *kllerr.Error) {
	var values []ast.Value

	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		values = append(values, v)

		if p.cur().Kind != token.COMMA {
			return values, nil
		}

		p.advance()

		if p.cur().Kind == token.SEMI {
			return nil, p.errorf(p.cur(), "trailing comma before ';'")
		}
	}
}

func (p *parser) parseValue() (ast.Value, *kllerr.Error) {
	switch p.cur().Kind {
	case token.NUMBER:
		n, err := parseIntLiteral(p, p.advance())
		if err != nil {
			return nil, err
		}

		return ast.IntValue(n), nil
	case token.STRING, token.CHARSTRING, token.USTRING:
		return ast.StringValue(p.advance().Text), nil
	case token.CODEPOINT, token.NAMESPACED:
		id, err := p.parseId()
		if err != nil {
			return nil, err
		}

		return ast.IdValue{Id: id}, nil
	case token.NAME:
		id, err := p.parseId()
		if err != nil {
			return nil, err
		}

		return ast.IdValue{Id: id}, nil
	default:
		return nil, p.errorf(p.cur(), "expected a value, got %s", p.cur().Kind)
	}
}

// ============================================================================
// Mapping
// ============================================================================

var mapOps = map[token.Kind]ast.MapOp{
	token.COLON:           ast.OpMapsTo,
	token.COLON_PLUS:      ast.OpAddTo,
	token.COLON_MINUS:     ast.OpRemoveFrom,
	token.COLON_COLON:     ast.OpIsolate,
	token.EQUALS:          ast.OpReplace,
	token.IND_COLON:       ast.OpIndicatorMapsTo,
	token.IND_COLON_PLUS:  ast.OpIndicatorAddTo,
	token.IND_COLON_MINUS: ast.OpIndicatorRemoveFrom,
	token.IND_COLON_COLON: ast.OpIndicatorIsolate,
}

func (p *parser) parseMapping() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line

	trigger, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	op, ok := mapOps[p.cur().Kind]
	if !ok {
		return nil, p.errorf(p.cur(), "expected a mapping operator, got %s", p.cur().Kind)
	}

	p.advance()

	result, err := p.parseSequence()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.Mapping{Base: p.base(line), Op: op, Trigger: trigger, Result: result}, nil
}

// parseSequence parses combo (',' combo)*, stopping at a mapping operator or
// ';'. A trailing ',' is a hard error (spec §4.2 ambiguity policy).
func (p *parser) parseSequence() (ast.Sequence, *kllerr.Error) {
	var seq ast.Sequence

	for {
		combo, err := p.parseCombo()
		if err != nil {
			return nil, err
		}

		seq = append(seq, combo)

		if p.cur().Kind != token.COMMA {
			return seq, nil
		}

		p.advance()

		if _, ok := mapOps[p.cur().Kind]; ok || p.cur().Kind == token.SEMI {
			return nil, p.errorf(p.cur(), "trailing comma in sequence")
		}
	}
}

// parseCombo parses idExpr ('+' idExpr)*.
func (p *parser) parseCombo() (ast.Combo, *kllerr.Error) {
	var combo ast.Combo

	for {
		e, err := p.parseIdExpr()
		if err != nil {
			return nil, err
		}

		combo = append(combo, e)

		if p.cur().Kind != token.PLUS {
			return combo, nil
		}

		p.advance()
	}
}

func (p *parser) parseIdExpr() (ast.IdExpr, *kllerr.Error) {
	id, err := p.parseId()
	if err != nil {
		return ast.IdExpr{}, err
	}

	var sched util.Option[ast.Schedule]

	// A ScanCodeId may already carry an inline schedule from S[n(...)]
	// bracket syntax; a trailing '(' attaches a schedule to any other id.
	if sc, ok := id.(ast.ScanCodeId); ok && sc.Schedule.HasValue() {
		return ast.IdExpr{Id: id, Schedule: sc.Schedule}, nil
	}

	if p.cur().Kind == token.PAREN_OPEN {
		s, err := p.parseSchedule()
		if err != nil {
			return ast.IdExpr{}, err
		}

		sched = util.Some(s)
	}

	return ast.IdExpr{Id: id, Schedule: sched}, nil
}

// ============================================================================
// Id
// ============================================================================

func (p *parser) parseId() (ast.Id, *kllerr.Error) {
	tok := p.cur()

	switch tok.Kind {
	case token.NAMESPACED:
		return p.parseNamespacedId()
	case token.CODEPOINT:
		p.advance()

		cp, err := parseHexLiteral(p, tok)
		if err != nil {
			return nil, err
		}

		return ast.UnicodeCodePointId{CodePoint: rune(cp)}, nil
	case token.CHARSTRING:
		p.advance()

		r := []rune(tok.Text)
		if len(r) != 1 {
			return nil, p.errorf(tok, "a character literal must be exactly one character")
		}

		return ast.CharacterId{Char: r[0]}, nil
	case token.USTRING:
		p.advance()
		return ast.StringId{Text: tok.Text}, nil
	case token.NAME:
		return p.parseNameLeadId()
	default:
		return nil, p.errorf(tok, "expected an id expression, got %s", tok.Kind)
	}
}

func (p *parser) parseNameLeadId() (ast.Id, *kllerr.Error) {
	tok := p.advance()

	if tok.Text == "None" {
		return ast.NoneId{}, nil
	}

	if kind, ok := layerKeywords[tok.Text]; ok {
		if _, err := p.expect(token.PAREN_OPEN); err != nil {
			return nil, err
		}

		n, err := p.expect(token.NUMBER)
		if err != nil {
			return nil, err
		}

		idx, err2 := parseUintLiteral(p, n)
		if err2 != nil {
			return nil, err2
		}

		if _, err := p.expect(token.PAREN_CLOSE); err != nil {
			return nil, err
		}

		return ast.LayerId{Kind: kind, Index: uint32(idx)}, nil
	}

	// Otherwise this must be a capability call: name(args...).
	if _, err := p.expect(token.PAREN_OPEN); err != nil {
		return nil, err
	}

	var args []ast.Value

	if p.cur().Kind != token.PAREN_CLOSE {
		vs, err := p.parseValueList()
		if err != nil {
			return nil, err
		}

		args = vs
	}

	if _, err := p.expect(token.PAREN_CLOSE); err != nil {
		return nil, err
	}

	return ast.CapabilityId{Name: tok.Text, Args: args}, nil
}

func (p *parser) parseNamespacedId() (ast.Id, *kllerr.Error) {
	prefix := p.advance().Text

	switch prefix {
	case "U":
		return p.parseHidOrUnicodeRange(ast.HidKeyboard)
	case "CONS":
		return p.parseHidQuoted(ast.HidConsumer)
	case "SYS":
		return p.parseHidQuoted(ast.HidSystem)
	case "I", "LED":
		return p.parseHidQuoted(ast.HidIndicator)
	case "T":
		return p.parseNumericId(func(code uint16) ast.Id { return ast.GenericTriggerId{Code: code} })
	case "CODE":
		return p.parseNumericId(func(code uint16) ast.Id { return ast.UsbCodeId{Code: code} })
	case "S":
		return p.parseScanCodeId()
	case "A":
		return p.parseAnimationId()
	case "P":
		return p.parsePixelId()
	case "PL":
		return p.parsePixelLayerId()
	default:
		return nil, p.errorf(p.cur(), "unknown namespace prefix %q", prefix)
	}
}

func (p *parser) parseHidQuoted(kind ast.HidKind) (ast.Id, *kllerr.Error) {
	tok, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}

	return ast.HidId{Kind: kind, Symbol: tok.Text, HasSymbol: true}, nil
}

// parseHidOrUnicodeRange handles the "U" prefix: U"A" (HID by name) or
// U["1"-"5"] (a character range, spec §4.2).
func (p *parser) parseHidOrUnicodeRange(kind ast.HidKind) (ast.Id, *kllerr.Error) {
	if p.cur().Kind == token.STRING {
		return p.parseHidQuoted(kind)
	}

	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	lo, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.DASH); err != nil {
		return nil, err
	}

	hi, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	loR, hiR := []rune(lo.Text), []rune(hi.Text)
	if len(loR) != 1 || len(hiR) != 1 {
		return nil, p.errorf(lo, "a character range bound must be a single character")
	}

	return ast.RangeId{Domain: ast.RangeCharacter, Start: uint32(loR[0]), End: uint32(hiR[0])}, nil
}

func (p *parser) parseNumericId(build func(uint16) ast.Id) (ast.Id, *kllerr.Error) {
	tok, err := p.expect(token.NUMBER)
	if err != nil {
		return nil, err
	}

	n, err2 := parseUintLiteral(p, tok)
	if err2 != nil {
		return nil, err2
	}

	return build(uint16(n)), nil
}

// parseScanCodeId handles S0x43, S[0x43-0x50] and S[0x43(P,UP,UR)].
func (p *parser) parseScanCodeId() (ast.Id, *kllerr.Error) {
	if p.cur().Kind == token.NUMBER {
		tok := p.advance()

		n, err := parseUintLiteral(p, tok)
		if err != nil {
			return nil, err
		}

		return ast.ScanCodeId{Code: uint16(n)}, nil
	}

	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	first, err := p.expect(token.NUMBER)
	if err != nil {
		return nil, err
	}

	lo, err2 := parseUintLiteral(p, first)
	if err2 != nil {
		return nil, err2
	}

	var result ast.Id

	switch p.cur().Kind {
	case token.DASH:
		p.advance()

		hiTok, err := p.expect(token.NUMBER)
		if err != nil {
			return nil, err
		}

		hi, err2 := parseUintLiteral(p, hiTok)
		if err2 != nil {
			return nil, err2
		}

		result = ast.RangeId{Domain: ast.RangeScanCode, Start: uint32(lo), End: uint32(hi)}
	case token.PAREN_OPEN:
		sched, err := p.parseSchedule()
		if err != nil {
			return nil, err
		}

		result = ast.ScanCodeId{Code: uint16(lo), Schedule: util.Some(sched)}
	default:
		result = ast.ScanCodeId{Code: uint16(lo)}
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *parser) parseAnimationId() (ast.Id, *kllerr.Error) {
	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	name, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	var mods []ast.AnimationModifier

	for p.cur().Kind == token.COMMA {
		p.advance()

		m, err := p.expect(token.NAME)
		if err != nil {
			return nil, err
		}

		mod := ast.AnimationModifier{Name: m.Text}

		if p.cur().Kind == token.COLON {
			p.advance()

			v, err := p.expect(token.NUMBER)
			if err != nil {
				return nil, err
			}

			mod.Value, mod.HasValue = v.Text, true
		}

		mods = append(mods, mod)
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	return ast.AnimationId{Name: name.Text, Modifiers: mods}, nil
}

func (p *parser) parsePixelId() (ast.Id, *kllerr.Error) {
	mode := ast.Absolute

	if p.cur().Kind == token.PLUS {
		p.advance()

		mode = ast.RelativeSigned
	}

	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	var channels []ast.PixelChannel

	for {
		idxTok, err := p.expect(token.NUMBER)
		if err != nil {
			return nil, err
		}

		idx, err2 := parseUintLiteral(p, idxTok)
		if err2 != nil {
			return nil, err2
		}

		ch := ast.PixelChannel{Index: uint8(idx)}

		if p.cur().Kind == token.COLON {
			p.advance()

			wTok, err := p.expect(token.NUMBER)
			if err != nil {
				return nil, err
			}

			w, err2 := parseUintLiteral(p, wTok)
			if err2 != nil {
				return nil, err2
			}

			ch.Width = uint8(w)
		}

		channels = append(channels, ch)

		if p.cur().Kind != token.COMMA {
			break
		}

		p.advance()
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	return ast.PixelId{Index: uint32(channels[0].Index), Channels: channels, AddressMode: mode}, nil
}

func (p *parser) parsePixelLayerId() (ast.Id, *kllerr.Error) {
	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	idxTok, err := p.expect(token.NUMBER)
	if err != nil {
		return nil, err
	}

	idx, err2 := parseUintLiteral(p, idxTok)
	if err2 != nil {
		return nil, err2
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	return ast.PixelLayerId{Index: uint32(idx)}, nil
}

// ============================================================================
// Schedule
// ============================================================================

func (p *parser) parseSchedule() (ast.Schedule, *kllerr.Error) {
	if _, err := p.expect(token.PAREN_OPEN); err != nil {
		return nil, err
	}

	if p.cur().Kind == token.PAREN_CLOSE {
		p.advance()
		return ast.Schedule{}, nil // present but empty: implicit press
	}

	var sched ast.Schedule

	for {
		param, err := p.parseScheduleParam()
		if err != nil {
			return nil, err
		}

		sched = append(sched, param)

		if p.cur().Kind != token.COMMA {
			break
		}

		p.advance()
	}

	if _, err := p.expect(token.PAREN_CLOSE); err != nil {
		return nil, err
	}

	return sched, nil
}

func (p *parser) parseScheduleParam() (ast.ScheduleParam, *kllerr.Error) {
	tok := p.cur()

	if tok.Kind == token.NAME {
		if state, ok := stateNames[tok.Text]; ok {
			p.advance()

			param := ast.ScheduleParam{State: state, HasState: true}

			if p.cur().Kind == token.COLON {
				p.advance()

				n, err := p.expect(token.NUMBER)
				if err != nil {
					return ast.ScheduleParam{}, err
				}

				if timing, isTiming := parseTimingLiteral(n.Text); isTiming {
					param.Timing = util.Some(timing)
				} else {
					v, err := parseUintLiteral(p, n)
					if err != nil {
						return ast.ScheduleParam{}, err
					}

					param.Analog = util.Some(uint8(v))
				}
			}

			return param, nil
		}

		return ast.ScheduleParam{}, p.errorf(tok, "unknown schedule state %q", tok.Text)
	}

	if tok.Kind == token.NUMBER {
		p.advance()

		if timing, isTiming := parseTimingLiteral(tok.Text); isTiming {
			return ast.ScheduleParam{Timing: util.Some(timing)}, nil
		}

		v, err := parseUintLiteral(p, tok)
		if err != nil {
			return ast.ScheduleParam{}, err
		}

		return ast.ScheduleParam{Analog: util.Some(uint8(v))}, nil
	}

	return ast.ScheduleParam{}, p.errorf(tok, "expected a schedule state or value, got %s", tok.Kind)
}

// ============================================================================
// DataAssociation
// ============================================================================

func (p *parser) parseDataAssociation() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line

	target := ast.ScanCodePositionTarget
	if p.cur().Text == "P" || p.cur().Text == "PL" {
		target = ast.PixelPositionTarget
	}

	id, err := p.parseId()
	if err != nil {
		return nil, err
	}

	index := idOrdinal(id)

	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	pos, err := p.parseAxisList()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.DataAssociation{Base: p.base(line), Target: target, Index: index, Position: pos}, nil
}

func idOrdinal(id ast.Id) uint32 {
	switch v := id.(type) {
	case ast.ScanCodeId:
		return uint32(v.Code)
	case ast.PixelId:
		return v.Index
	case ast.PixelLayerId:
		return v.Index
	default:
		return 0
	}
}

func (p *parser) parseAxisList() (ast.Position, *kllerr.Error) {
	var pos ast.Position

	for {
		nameTok, err := p.expect(token.NAME)
		if err != nil {
			return pos, err
		}

		if _, err := p.expect(token.COLON); err != nil {
			return pos, err
		}

		numTok, err := p.expect(token.NUMBER)
		if err != nil {
			return pos, err
		}

		v, convErr := strconv.ParseFloat(numTok.Text, 64)
		if convErr != nil {
			return pos, p.errorf(numTok, "invalid position value %q", numTok.Text)
		}

		axis := util.Some(v)

		switch nameTok.Text {
		case "x":
			pos.X = axis
		case "y":
			pos.Y = axis
		case "z":
			pos.Z = axis
		case "rx":
			pos.RX = axis
		case "ry":
			pos.RY = axis
		case "rz":
			pos.RZ = axis
		default:
			return pos, p.errorf(nameTok, "unknown position axis %q", nameTok.Text)
		}

		if p.cur().Kind != token.COMMA {
			return pos, nil
		}

		p.advance()
	}
}

// ============================================================================
// Capability / NameAssociation / Define
// ============================================================================

func (p *parser) parseCapability() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	p.advance() // "capability"

	name, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	symbol, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.PAREN_OPEN); err != nil {
		return nil, err
	}

	var argTypes []string

	if p.cur().Kind != token.PAREN_CLOSE {
		for {
			t, err := p.expect(token.NAME)
			if err != nil {
				return nil, err
			}

			argTypes = append(argTypes, t.Text)

			if p.cur().Kind != token.COMMA {
				break
			}

			p.advance()
		}
	}

	if _, err := p.expect(token.PAREN_CLOSE); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.Capability{Base: p.base(line), Name: name.Text, Symbol: symbol.Text, ArgTypes: argTypes}, nil
}

func (p *parser) parseNameAssociation() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	keyword := p.advance().Text

	name, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	cname, err := p.expect(token.STRING)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.NameAssociation{Base: p.base(line), Keyword: keyword, Name: name.Text, CName: cname.Text}, nil
}

// ============================================================================
// AnimationDefinition / AnimationFrame
// ============================================================================

func (p *parser) parseAnimationDefinition() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	p.advance() // "animation"

	appendMode := false
	if p.cur().Kind == token.PLUS {
		p.advance()

		appendMode = true
	}

	name, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	var mods []ast.AnimationModifier

	if p.cur().Kind == token.BRACKET_OPEN {
		p.advance()

		for {
			m, err := p.expect(token.NAME)
			if err != nil {
				return nil, err
			}

			mod := ast.AnimationModifier{Name: m.Text}

			if p.cur().Kind == token.COLON {
				p.advance()

				v, err := p.expect(token.NUMBER)
				if err != nil {
					return nil, err
				}

				mod.Value, mod.HasValue = v.Text, true
			}

			mods = append(mods, mod)

			if p.cur().Kind != token.COMMA {
				break
			}

			p.advance()
		}

		if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	settings := make(map[string]ast.Value)

	for {
		key, err := p.expect(token.NAME)
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}

		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		settings[key.Text] = v

		if p.cur().Kind != token.COMMA {
			break
		}

		p.advance()
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.AnimationDefinition{
		Base: p.base(line), Name: name.Text, Modifiers: mods, Settings: settings, AppendMode: appendMode,
	}, nil
}

func (p *parser) parseAnimationFrame() (ast.Expression, *kllerr.Error) {
	line := p.cur().Line
	p.advance() // "frame"

	name, err := p.expect(token.NAME)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.BRACKET_OPEN); err != nil {
		return nil, err
	}

	idxTok, err := p.expect(token.NUMBER)
	if err != nil {
		return nil, err
	}

	idx, err2 := parseUintLiteral(p, idxTok)
	if err2 != nil {
		return nil, err2
	}

	if _, err := p.expect(token.BRACKET_CLOSE); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}

	var pixels []byte

	for {
		n, err := p.expect(token.NUMBER)
		if err != nil {
			return nil, err
		}

		v, err2 := parseUintLiteral(p, n)
		if err2 != nil {
			return nil, err2
		}

		if v > 255 {
			return nil, p.errorf(n, "pixel byte value %d out of range 0..255", v)
		}

		pixels = append(pixels, byte(v))

		if p.cur().Kind != token.COMMA {
			break
		}

		p.advance()
	}

	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	return &ast.AnimationFrame{Base: p.base(line), Name: name.Text, FrameIndex: uint32(idx), Pixels: pixels}, nil
}

// ============================================================================
// Numeric literal helpers
// ============================================================================

// parseTimingLiteral splits a NUMBER token's text into an amount and a unit
// suffix, returning ok=false when the text carries no recognized unit (and
// so should be read as a bare integer instead).
func parseTimingLiteral(text string) (ast.Timing, bool) {
	for suffix, unit := range map[string]ast.TimeUnit{
		"ms": ast.Milliseconds, "us": ast.Microseconds, "ns": ast.Nanoseconds, "s": ast.Seconds,
	} {
		if strings.HasSuffix(text, suffix) {
			numPart := strings.TrimSuffix(text, suffix)

			amount, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				continue
			}

			return ast.Timing{Amount: amount, Unit: unit}, true
		}
	}

	return ast.Timing{}, false
}

func parseIntLiteral(p *parser, tok token.Token) (int64, *kllerr.Error) {
	text := tok.Text

	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		n, err := strconv.ParseInt(text[2:], 16, 64)
		if err != nil {
			return 0, p.errorf(tok, "invalid hex literal %q", text)
		}

		return n, nil
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		n, err := strconv.ParseInt(text[2:], 2, 64)
		if err != nil {
			return 0, p.errorf(tok, "invalid binary literal %q", text)
		}

		return n, nil
	default:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, p.errorf(tok, "invalid integer literal %q", text)
		}

		return n, nil
	}
}

func parseUintLiteral(p *parser, tok token.Token) (uint64, *kllerr.Error) {
	n, err := parseIntLiteral(p, tok)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, p.errorf(tok, "expected a non-negative integer, got %d", n)
	}

	return uint64(n), nil
}

func parseHexLiteral(p *parser, tok token.Token) (int64, *kllerr.Error) {
	n, err := strconv.ParseInt(tok.Text, 16, 64)
	if err != nil {
		return 0, p.errorf(tok, "invalid hex literal %q", tok.Text)
	}

	return n, nil
}
