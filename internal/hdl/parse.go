// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hdl parses the signal lists used in design files, like
// "data_in[8], arst, pulse_in".
//
package hdl

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Type is the type of a lexical token.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	BracketOpen
	BracketClose
	Comma
	Int
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case BracketOpen:
		return "'['"
	case BracketClose:
		return "']'"
	case Comma:
		return "','"
	case Int:
		return "integer"
	}
	return "invalid character"
}

// Item is a token. Value is a string for Ident and Raw tokens, an int for
// Int tokens.
//
type Item struct {
	Type  Type
	Pos   int
	Value interface{}
}

// Lexer splits a signal list into tokens.
//
type Lexer struct {
	input string
	start int
	pos   int
	width int
	items []Item
	state stateFn
}

type stateFn func(l *Lexer) stateFn

const eof = -1

// NewLexer returns a new lexer for the given input.
//
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, state: lexInit}
}

// Lex returns the next token. Once the end of input has been reached, it
// keeps returning EOF.
//
func (l *Lexer) Lex() Item {
	for len(l.items) == 0 {
		l.state = l.state(l)
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, n := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += n
	l.width = n
	return r
}

func (l *Lexer) backup() { l.pos -= l.width }

func (l *Lexer) ignore() { l.start = l.pos }

func (l *Lexer) emit(t Type, v interface{}) {
	l.items = append(l.items, Item{t, l.start, v})
	l.start = l.pos
}

func isIdent(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func lexInit(l *Lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		return lexEOF
	case unicode.IsSpace(r):
		l.ignore()
	case r == '_' || unicode.IsLetter(r):
		return lexIdent
	case isDigit(r):
		return lexNumber
	case r == '[':
		l.emit(BracketOpen, "[")
	case r == ']':
		l.emit(BracketClose, "]")
	case r == ',':
		l.emit(Comma, ",")
	default:
		l.emit(Raw, string(r))
	}
	return lexInit
}

func lexNumber(l *Lexer) stateFn {
	for isDigit(l.next()) {
	}
	l.backup()
	lit := l.input[l.start:l.pos]
	if v, err := strconv.Atoi(lit); err == nil {
		l.emit(Int, v)
	} else {
		l.emit(Raw, lit)
	}
	return lexInit
}

func lexIdent(l *Lexer) stateFn {
	for isIdent(l.next()) {
	}
	l.backup()
	l.emit(Ident, l.input[l.start:l.pos])
	return lexInit
}

// lexEOF only emits EOF.
//
func lexEOF(l *Lexer) stateFn {
	l.emit(EOF, nil)
	return lexEOF
}

// Decl is a signal declaration. Width is 0 if the declaration has no bus
// size.
//
type Decl struct {
	Name  string
	Width int
}

// ParseSignals parses a comma separated list of signal declarations with
// optional bus sizes. For example:
//
//	ParseSignals("in[2], sel") // returns []Decl{{"in", 2}, {"sel", 0}}
//
// Duplicate names are rejected.
//
func ParseSignals(names string) ([]Decl, error) {
	var out []Decl
	seen := make(map[string]bool)

	l := NewLexer(names)
	i := l.Lex()
	if i.Type == EOF {
		return nil, nil
	}
	for {
		if i.Type != Ident {
			return nil, parseError(names, i, "expected signal name")
		}
		d := Decl{Name: i.Value.(string)}
		if seen[d.Name] {
			return nil, parseError(names, i, "duplicate signal "+d.Name)
		}
		seen[d.Name] = true

		// after ident, expect comma, [ or EOF
		i = l.Lex()
		if i.Type == BracketOpen {
			i = l.Lex()
			if i.Type != Int {
				return nil, parseError(names, i, "missing bus size")
			}
			d.Width = i.Value.(int)
			if d.Width < 1 {
				return nil, parseError(names, i, "bus size must be at least 1")
			}
			if i = l.Lex(); i.Type != BracketClose {
				return nil, parseError(names, i, "missing close bracket")
			}
			i = l.Lex()
		}
		out = append(out, d)
		switch i.Type {
		case EOF:
			return out, nil
		case Comma:
			i = l.Lex()
		default:
			return nil, parseError(names, i, "expected comma or end of input")
		}
	}
}

// ParseNames parses a comma separated list of signal names, without bus
// sizes.
//
func ParseNames(names string) ([]string, error) {
	ds, err := ParseSignals(names)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ds))
	for k, d := range ds {
		if d.Width != 0 {
			return nil, errors.Errorf("in %q: unexpected bus size for %s", names, d.Name)
		}
		out[k] = d.Name
	}
	return out, nil
}

func parseError(in string, i Item, msg string) error {
	return errors.Errorf("in %q at pos %d: %s, got %v", in, i.Pos+1, msg, i.Type)
}
