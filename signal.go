// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

import (
	"sort"
	"strconv"
)

// MaxWidth is the maximum width of a signal in bits.
//
const MaxWidth = 64

// An Expr is a value that can be assigned to a signal: a *Signal, a Const or
// an *Operator.
//
type Expr interface {
	// Width returns the width in bits of the expression.
	Width() int
	// Signals appends the signals read by the expression to dst.
	Signals(dst []*Signal) []*Signal
}

// A Signal is a named bit vector in a design. Its identity is its pointer:
// two signals with the same name are still distinct wires.
//
// The reset value and reset-less flag only matter for signals that end up
// driven by a synchronous assignment (registers).
//
type Signal struct {
	Name      string
	width     int
	reset     uint64
	resetLess bool
	attrs     map[string]string
}

// A SignalOption configures a new Signal.
//
type SignalOption func(*Signal)

// Reset sets the reset (and power-on) value of a signal.
//
func Reset(v uint64) SignalOption {
	return func(s *Signal) { s.reset = v }
}

// ResetLess marks a signal as unaffected by its domain's reset. A reset-less
// register still starts at its reset value.
//
func ResetLess(resetLess bool) SignalOption {
	return func(s *Signal) { s.resetLess = resetLess }
}

// Attr sets a back end attribute on a signal (e.g. ASYNC_REG).
//
func Attr(key, value string) SignalOption {
	return func(s *Signal) {
		if s.attrs == nil {
			s.attrs = make(map[string]string)
		}
		s.attrs[key] = value
	}
}

// NewSignal returns a new signal of the given width.
// This function panics if width is not in the range [1, MaxWidth].
//
func NewSignal(name string, width int, opts ...SignalOption) *Signal {
	if width < 1 || width > MaxWidth {
		panic("invalid width " + strconv.Itoa(width) + " for signal " + name)
	}
	s := &Signal{Name: name, width: width}
	for _, o := range opts {
		o(s)
	}
	s.reset &= mask(width)
	return s
}

// Width returns the signal width in bits.
//
func (s *Signal) Width() int { return s.width }

// Signals implements Expr.
//
func (s *Signal) Signals(dst []*Signal) []*Signal { return append(dst, s) }

// ResetValue returns the reset value of s.
//
func (s *Signal) ResetValue() uint64 { return s.reset }

// IsResetLess returns true if s ignores its domain's reset.
//
func (s *Signal) IsResetLess() bool { return s.resetLess }

// Attr returns the value of attribute key.
//
func (s *Signal) Attr(key string) (string, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// Attrs returns the attribute keys of s in sorted order.
//
func (s *Signal) Attrs() []string {
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Signal) String() string {
	if s.width == 1 {
		return s.Name
	}
	return s.Name + "[" + strconv.Itoa(s.width) + "]"
}

// Const is a constant value.
//
type Const struct {
	Value uint64
	Bits  int
}

// C returns a constant of the given width.
//
func C(v uint64, width int) Const {
	return Const{Value: v & mask(width), Bits: width}
}

// Width implements Expr.
//
func (c Const) Width() int { return c.Bits }

// Signals implements Expr.
//
func (c Const) Signals(dst []*Signal) []*Signal { return dst }

// Op is an operator kind.
//
type Op int

// Operators.
//
const (
	OpNot Op = iota
	OpAnd
	OpOr
	OpXor
)

var opNames = [...]string{
	OpNot: "~",
	OpAnd: "&",
	OpOr:  "|",
	OpXor: "^",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// An Operator is a bitwise operation on expressions of identical width.
//
type Operator struct {
	Op       Op
	Operands []Expr
}

// Not returns the bitwise negation of x.
//
func Not(x Expr) *Operator { return &Operator{OpNot, []Expr{x}} }

// And returns a & b.
//
func And(a, b Expr) *Operator { return &Operator{OpAnd, []Expr{a, b}} }

// Or returns a | b.
//
func Or(a, b Expr) *Operator { return &Operator{OpOr, []Expr{a, b}} }

// Xor returns a ^ b.
//
func Xor(a, b Expr) *Operator { return &Operator{OpXor, []Expr{a, b}} }

// Width implements Expr. The width of an operator is the width of its first
// operand; Elaborate checks that all operands agree.
//
func (o *Operator) Width() int {
	return o.Operands[0].Width()
}

// Signals implements Expr.
//
func (o *Operator) Signals(dst []*Signal) []*Signal {
	for _, x := range o.Operands {
		dst = x.Signals(dst)
	}
	return dst
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
