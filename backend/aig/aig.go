// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package aig maps elaborated designs to sequential and-inverter graphs for
// formal checking with the gini SAT solver, and exports them in AIGER format.
//
// Time is abstracted as a sequence of steps. Each clock source of the design
// becomes a free "tick" input telling whether its clock rises during a step,
// so that a model covers every possible interleaving of clock edges, including
// simultaneous ones. Registers become latches that load their next value on a
// tick of their domain's clock. Asynchronous resets act combinationally on the
// register outputs, as in the simulator.
//
package aig

import (
	"bytes"
	"io"
	"strconv"

	"github.com/db47h/hwcdc"
	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/logic/aiger"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// ErrClockSource is returned by Build when a domain's clock cannot be traced
// back to a design input.
//
var ErrClockSource = errors.New("clock is not driven by a design input")

type latch struct {
	s *hwcdc.Signal
	l []z.Lit
}

// Model is the sequential AIG of a design.
//
type Model struct {
	// S is the sequential circuit. Callers may add monitor logic to it
	// before calling Reachable.
	S *logic.S

	d           *hwcdc.Design
	bits        map[*hwcdc.Signal][]z.Lit
	ticks       map[*hwcdc.Signal]z.Lit
	latches     []latch
	names       map[z.Lit]string
	constraints []z.Lit
}

func bitName(name string, width, i int) string {
	if width == 1 {
		return name
	}
	return name + "[" + strconv.Itoa(i) + "]"
}

// clockRoot follows combinational copies of a clock signal up to the design
// input driving it.
func clockRoot(d *hwcdc.Design, clk *hwcdc.Signal) (*hwcdc.Signal, error) {
	seen := make(map[*hwcdc.Signal]bool)
	for s := clk; ; {
		if seen[s] {
			return nil, errors.Wrapf(ErrClockSource, "clock %s", d.NameOf(clk))
		}
		seen[s] = true
		kind, a := d.Driver(s)
		switch kind {
		case hwcdc.Undriven:
			return s, nil
		case hwcdc.DrivenComb:
			if src, ok := a.RHS.(*hwcdc.Signal); ok {
				s = src
				continue
			}
		}
		return nil, errors.Wrapf(ErrClockSource, "clock %s", d.NameOf(clk))
	}
}

// Build returns the AIG model of design d. Designs with black box instances
// cannot be modeled.
//
func Build(d *hwcdc.Design) (*Model, error) {
	if len(d.Instances()) > 0 {
		return nil, errors.Wrapf(hwcdc.ErrUnsupportedInstance, "instance of %s", d.Instances()[0].Type)
	}
	m := &Model{
		S:     logic.NewS(),
		d:     d,
		bits:  make(map[*hwcdc.Signal][]z.Lit, len(d.Signals())),
		ticks: make(map[*hwcdc.Signal]z.Lit),
		names: make(map[z.Lit]string),
	}

	// clock roots get a single tick input
	clocks := make(map[*hwcdc.Signal]bool)
	for _, dom := range d.Domains() {
		root, err := clockRoot(d, dom.Clk)
		if err != nil {
			return nil, errors.WithMessage(err, "domain "+dom.Name)
		}
		if _, ok := m.ticks[root]; !ok {
			t := m.S.Lit()
			m.ticks[root] = t
			m.names[t] = "tick_" + d.NameOf(root)
		}
		clocks[root] = true
	}

	// inputs
	for _, s := range d.Inputs() {
		if clocks[s] {
			m.bits[s] = []z.Lit{m.ticks[s]}
			continue
		}
		ls := make([]z.Lit, s.Width())
		for i := range ls {
			ls[i] = m.S.Lit()
			m.names[ls[i]] = bitName(d.NameOf(s), s.Width(), i)
		}
		m.bits[s] = ls
	}

	// latches
	for _, r := range d.Registers() {
		ls := make([]z.Lit, r.Width())
		for i := range ls {
			init := m.S.F
			if r.ResetValue()&(1<<uint(i)) != 0 {
				init = m.S.T
			}
			ls[i] = m.S.Latch(init)
			m.names[ls[i]] = bitName(d.NameOf(r), r.Width(), i)
		}
		m.latches = append(m.latches, latch{r, ls})
	}

	// current values
	for _, s := range d.EvalOrder() {
		kind, a := d.Driver(s)
		switch kind {
		case hwcdc.DrivenComb:
			m.bits[s] = m.expr(a.RHS)
		case hwcdc.DrivenSync:
			ls := m.latchBits(s)
			if !a.Domain.AsyncReset || s.IsResetLess() {
				m.bits[s] = ls
				break
			}
			rst := m.bits[a.Domain.Rst][0]
			cur := make([]z.Lit, len(ls))
			for i, l := range ls {
				cur[i] = m.S.Choice(rst, m.resetBit(s, i), l)
			}
			m.bits[s] = cur
		}
	}

	// next state
	for _, a := range d.Sync() {
		r := a.LHS
		tick, err := m.tick(a.Domain)
		if err != nil {
			return nil, err
		}
		rst := m.bits[a.Domain.Rst][0]
		dv := m.expr(a.RHS)
		for i, l := range m.latchBits(r) {
			var next z.Lit
			switch {
			case r.IsResetLess():
				next = m.S.Choice(tick, dv[i], l)
			case a.Domain.AsyncReset:
				next = m.S.Choice(rst, m.resetBit(r, i), m.S.Choice(tick, dv[i], l))
			default:
				next = m.S.Choice(tick, m.S.Choice(rst, m.resetBit(r, i), dv[i]), l)
			}
			m.S.SetNext(l, next)
		}
	}
	return m, nil
}

func (m *Model) latchBits(s *hwcdc.Signal) []z.Lit {
	for _, l := range m.latches {
		if l.s == s {
			return l.l
		}
	}
	return nil
}

func (m *Model) resetBit(s *hwcdc.Signal, i int) z.Lit {
	if s.ResetValue()&(1<<uint(i)) != 0 {
		return m.S.T
	}
	return m.S.F
}

func (m *Model) expr(x hwcdc.Expr) []z.Lit {
	switch x := x.(type) {
	case *hwcdc.Signal:
		return m.bits[x]
	case hwcdc.Const:
		ls := make([]z.Lit, x.Bits)
		for i := range ls {
			ls[i] = m.S.F
			if x.Value&(1<<uint(i)) != 0 {
				ls[i] = m.S.T
			}
		}
		return ls
	case *hwcdc.Operator:
		a := m.expr(x.Operands[0])
		r := make([]z.Lit, len(a))
		if x.Op == hwcdc.OpNot {
			for i := range a {
				r[i] = a[i].Not()
			}
			return r
		}
		b := m.expr(x.Operands[1])
		for i := range a {
			switch x.Op {
			case hwcdc.OpAnd:
				r[i] = m.S.And(a[i], b[i])
			case hwcdc.OpOr:
				r[i] = m.S.Or(a[i], b[i])
			case hwcdc.OpXor:
				r[i] = m.S.Xor(a[i], b[i])
			}
		}
		return r
	}
	panic(errors.Errorf("unsupported expression %T", x))
}

func (m *Model) tick(dom *hwcdc.Domain) (z.Lit, error) {
	root, err := clockRoot(m.d, dom.Clk)
	if err != nil {
		return z.LitNull, err
	}
	t, ok := m.ticks[root]
	if !ok {
		t = m.S.Lit()
		m.ticks[root] = t
		m.names[t] = "tick_" + m.d.NameOf(root)
	}
	return t, nil
}

// Design returns the modeled design.
//
func (m *Model) Design() *hwcdc.Design { return m.d }

// Bits returns the literals holding the current value of each bit of s,
// least significant first. It returns nil if s is not part of the design.
//
func (m *Model) Bits(s *hwcdc.Signal) []z.Lit { return m.bits[s] }

// Tick returns the input literal that is true during steps where the clock
// of domain dom rises. If no register of the design is clocked by dom, the
// literal is a fresh free input.
//
func (m *Model) Tick(dom *hwcdc.Domain) (z.Lit, error) {
	if _, ok := m.bits[dom.Clk]; ok {
		return m.tick(dom)
	}
	// no register of the design uses this clock: its edges are still free.
	t, ok := m.ticks[dom.Clk]
	if !ok {
		t = m.S.Lit()
		m.ticks[dom.Clk] = t
		m.names[t] = "tick_" + dom.Clk.Name
	}
	return t, nil
}

// Constrain restricts Reachable to traces where c holds at every step.
//
func (m *Model) Constrain(c z.Lit) {
	m.constraints = append(m.constraints, c)
}

// Reachable reports whether there is a trace of at most depth steps from the
// initial state, satisfying all constraints, at the end of which bad holds.
// If so, it returns the length of the shortest such trace.
//
func (m *Model) Reachable(bad z.Lit, depth int) (int, bool) {
	u := logic.NewRoll(m.S)
	sat := gini.New()
	sat.Add(u.C.T)
	sat.Add(z.LitNull)
	var mark []int8
	for k := 0; k <= depth; k++ {
		for _, c := range m.constraints {
			ck := u.At(c, k)
			mark, _ = u.C.CnfSince(sat, mark, ck)
			sat.Add(ck)
			sat.Add(z.LitNull)
		}
		p := u.At(bad, k)
		mark, _ = u.C.CnfSince(sat, mark, p)
		sat.Assume(p)
		if sat.Solve() == 1 {
			return k, true
		}
	}
	return -1, false
}

// WriteAiger writes the model in AIGER 1.9 format, ascii or binary, with the
// given signals as outputs. Inputs, latches and outputs are named after the
// design signals.
//
func (m *Model) WriteAiger(w io.Writer, binary bool, outputs ...*hwcdc.Signal) error {
	var outs []z.Lit
	var names []string
	for _, o := range outputs {
		bits, ok := m.bits[o]
		if !ok {
			return errors.Errorf("output %s is not part of design %s", o.Name, m.d.Name)
		}
		for i, b := range bits {
			outs = append(outs, b)
			names = append(names, bitName(m.d.NameOf(o), o.Width(), i))
		}
	}
	a := aiger.MakeFor(m.S, outs...)
	for i, in := range a.Inputs {
		if n, ok := m.names[in]; ok {
			if err := a.NameInput(i, n); err != nil {
				return errors.Wrap(err, "aiger input name")
			}
		}
	}
	for i, l := range a.Latches {
		if n, ok := m.names[l]; ok {
			if err := a.NameLatch(i, n); err != nil {
				return errors.Wrap(err, "aiger latch name")
			}
		}
	}
	for i, n := range names {
		if err := a.NameOutput(i, n); err != nil {
			return errors.Wrap(err, "aiger output name")
		}
	}
	if binary {
		return errors.Wrap(a.WriteBinary(w), "write aiger")
	}
	// Choice nodes are stored negated and the ascii writer emits them as is.
	// Reading back the binary form yields a normalized graph.
	var buf bytes.Buffer
	if err := a.WriteBinary(&buf); err != nil {
		return errors.Wrap(err, "write aiger")
	}
	n, err := aiger.ReadBinary(&buf)
	if err != nil {
		return errors.Wrap(err, "normalize aiger")
	}
	return errors.Wrap(n.WriteAscii(w), "write aiger")
}
