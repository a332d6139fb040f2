// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnsupportedInstance is returned by NewCircuit for designs containing
// black box instances.
//
var ErrUnsupportedInstance = errors.New("black box instances cannot be simulated")

// A Component is an updatable element of a circuit simulation.
//
type Component func(c *Circuit)

type clock struct {
	pin    int
	period uint64
	phase  uint64
}

func (k *clock) value(t uint64) uint64 {
	if (t%k.period+k.period-k.phase)%k.period < k.period/2 {
		return 1
	}
	return 0
}

// Circuit is a runnable simulation of an elaborated Design.
//
// Time advances in steps. Clock sources added with AddClock toggle their
// signal according to their period and phase; every step, combinational logic
// and asynchronous resets are settled, then every domain whose clock rose
// during the step updates its registers. Registers of all domains sampling on
// the same step see the values from before the step's edges, like flip-flops
// sharing a clock edge.
//
// Callers must make sure to call Dispose() once the circuit is no longer
// needed in order to release allocated resources.
//
type Circuit struct {
	d   *Design
	idx map[*Signal]int

	s0   []uint64 // current state
	s1   []uint64 // next register state
	comb []Component
	regs []Component
	rdom []int // domain index of each register
	rpin []int // pin of each register

	domains []*Domain
	dom     map[*Domain]int
	clk     []int
	prevClk []bool
	edge    []bool
	edges   []uint64

	clocks []clock
	inputs map[int]bool
	tick   uint64

	wc []chan struct{}
	wg sync.WaitGroup
}

// NewCircuit builds a new simulation of design d.
//
// workers is the number of goroutines used to update registers on a clock
// edge. If less or equal to 0, the value of GOMAXPROCS will be used.
//
func NewCircuit(d *Design, workers int) (*Circuit, error) {
	if d == nil {
		return nil, errors.New("nil design")
	}
	if len(d.instances) > 0 {
		return nil, errors.Wrapf(ErrUnsupportedInstance, "instance of %s", d.instances[0].Type)
	}

	c := &Circuit{
		d:      d,
		idx:    make(map[*Signal]int, len(d.signals)),
		dom:    make(map[*Domain]int, len(d.domains)),
		inputs: make(map[int]bool),
	}
	for i, s := range d.signals {
		c.idx[s] = i
	}
	c.s0 = make([]uint64, len(d.signals))
	c.s1 = make([]uint64, len(d.signals))

	for i, dm := range d.domains {
		c.dom[dm] = i
		c.domains = append(c.domains, dm)
		c.clk = append(c.clk, c.idx[dm.Clk])
	}
	c.prevClk = make([]bool, len(c.domains))
	c.edge = make([]bool, len(c.domains))
	c.edges = make([]uint64, len(c.domains))

	for _, s := range d.Inputs() {
		c.inputs[c.idx[s]] = true
	}

	for _, a := range d.sync {
		pin := c.idx[a.LHS]
		c.s0[pin] = a.LHS.reset
		c.s1[pin] = a.LHS.reset
		c.regs = append(c.regs, c.register(a))
		c.rdom = append(c.rdom, c.dom[a.Domain])
		c.rpin = append(c.rpin, pin)
	}

	for _, s := range d.order {
		kind, a := d.Driver(s)
		switch {
		case kind == DrivenComb:
			c.comb = append(c.comb, c.combinational(a))
		case kind == DrivenSync && a.Domain.AsyncReset && !s.resetLess:
			c.comb = append(c.comb, c.asyncReset(a))
		}
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	if workers <= 0 {
		workers = 1
	}
	regs := c.regs
	for len(regs) > 0 {
		size := len(regs) / workers
		if size*workers < len(regs) {
			size++
		}
		wc := make(chan struct{}, 1)
		c.wc = append(c.wc, wc)
		go worker(c, regs[:size], wc)
		regs = regs[size:]
	}

	c.settle()
	c.syncClocks()
	return c, nil
}

func (c *Circuit) combinational(a *Assign) Component {
	pin := c.idx[a.LHS]
	f := c.compile(a.RHS)
	return func(c *Circuit) { c.s0[pin] = f(c.s0) }
}

func (c *Circuit) asyncReset(a *Assign) Component {
	pin, rst, v := c.idx[a.LHS], c.idx[a.Domain.Rst], a.LHS.reset
	return func(c *Circuit) {
		if c.s0[rst]&1 != 0 {
			c.s0[pin] = v
		}
	}
}

func (c *Circuit) register(a *Assign) Component {
	pin, dom, rst := c.idx[a.LHS], c.dom[a.Domain], c.idx[a.Domain.Rst]
	resettable, v := !a.LHS.resetLess, a.LHS.reset
	f := c.compile(a.RHS)
	return func(c *Circuit) {
		if !c.edge[dom] {
			return
		}
		if resettable && c.s0[rst]&1 != 0 {
			c.s1[pin] = v
			return
		}
		c.s1[pin] = f(c.s0)
	}
}

func (c *Circuit) compile(x Expr) func(s []uint64) uint64 {
	switch x := x.(type) {
	case *Signal:
		pin := c.idx[x]
		return func(s []uint64) uint64 { return s[pin] }
	case Const:
		v := x.Value & mask(x.Bits)
		return func([]uint64) uint64 { return v }
	case *Operator:
		a := c.compile(x.Operands[0])
		if x.Op == OpNot {
			m := mask(x.Width())
			return func(s []uint64) uint64 { return ^a(s) & m }
		}
		b := c.compile(x.Operands[1])
		switch x.Op {
		case OpAnd:
			return func(s []uint64) uint64 { return a(s) & b(s) }
		case OpOr:
			return func(s []uint64) uint64 { return a(s) | b(s) }
		case OpXor:
			return func(s []uint64) uint64 { return a(s) ^ b(s) }
		}
	}
	panic(errors.Errorf("unsupported expression %T", x))
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for {
		_, ok := <-wc
		if !ok {
			c.wg.Done()
			return
		}
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
	c.wc = nil
}

func (c *Circuit) pin(s *Signal) int {
	n, ok := c.idx[s]
	if !ok {
		panic("signal " + s.Name + " is not part of the design")
	}
	return n
}

// AddClock drives signal s with a clock of the given period in steps. The
// clock rises at every step t > 0 where t%period == phase%period and stays
// high for period/2 steps.
//
// s must be an undriven signal of the design, typically a domain's Clk.
//
func (c *Circuit) AddClock(s *Signal, period, phase uint) error {
	if period < 2 {
		return errors.Errorf("clock period of %s must be at least 2, got %d", s.Name, period)
	}
	pin, ok := c.idx[s]
	if !ok {
		return errors.Errorf("signal %s is not part of the design", s.Name)
	}
	if !c.inputs[pin] {
		return errors.Errorf("signal %s is already driven", c.d.NameOf(s))
	}
	delete(c.inputs, pin)
	k := clock{pin: pin, period: uint64(period), phase: uint64(phase) % uint64(period)}
	c.clocks = append(c.clocks, k)
	c.s0[pin] = k.value(c.tick)
	c.settle()
	c.syncClocks()
	return nil
}

// Set sets the value of an input signal. The new value propagates through
// combinational logic on the next call to Settle or Step.
//
// This function panics if s is not an input of the design.
//
func (c *Circuit) Set(s *Signal, v uint64) {
	pin := c.pin(s)
	if !c.inputs[pin] {
		panic("signal " + c.d.NameOf(s) + " is not an input")
	}
	c.s0[pin] = v & mask(s.width)
}

// SetBool is like Set for single bit signals.
//
func (c *Circuit) SetBool(s *Signal, v bool) {
	if v {
		c.Set(s, 1)
	} else {
		c.Set(s, 0)
	}
}

// Get returns the current value of signal s.
//
func (c *Circuit) Get(s *Signal) uint64 {
	return c.s0[c.pin(s)]
}

// Bool returns true if bit 0 of s is set.
//
func (c *Circuit) Bool(s *Signal) bool {
	return c.Get(s)&1 != 0
}

// Settle propagates input changes through combinational logic and
// asynchronous resets without advancing time.
//
func (c *Circuit) Settle() {
	c.settle()
}

func (c *Circuit) settle() {
	for _, f := range c.comb {
		f(c)
	}
}

func (c *Circuit) syncClocks() {
	for i, pin := range c.clk {
		c.prevClk[i] = c.s0[pin]&1 != 0
	}
}

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	c.tick++
	for i := range c.clocks {
		k := &c.clocks[i]
		c.s0[k.pin] = k.value(c.tick)
	}
	c.settle()

	fire := false
	for i, pin := range c.clk {
		v := c.s0[pin]&1 != 0
		c.edge[i] = v && !c.prevClk[i]
		c.prevClk[i] = v
		if c.edge[i] {
			c.edges[i]++
			fire = true
		}
	}
	if !fire {
		return
	}

	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		wc <- struct{}{}
	}
	c.wg.Wait()

	for i, pin := range c.rpin {
		if c.edge[c.rdom[i]] {
			c.s0[pin] = c.s1[pin]
		}
	}
	c.settle()
}

// Run runs the simulation for n steps.
//
func (c *Circuit) Run(n int) {
	for ; n > 0; n-- {
		c.Step()
	}
}

// Tick runs the simulation until the next rising edge of d's clock has been
// processed. d need not be part of the design as long as its clock signal is.
//
// This function panics if no clock source can make d's clock rise.
//
func (c *Circuit) Tick(d *Domain) {
	pin := c.pin(d.Clk)
	var limit uint64
	for _, k := range c.clocks {
		if 2*k.period > limit {
			limit = 2 * k.period
		}
	}
	if limit == 0 {
		panic("no clock sources in circuit")
	}
	for s := uint64(0); ; s++ {
		if s > limit {
			panic("domain " + d.Name + " clock does not toggle")
		}
		prev := c.s0[pin] & 1
		c.Step()
		if prev == 0 && c.s0[pin]&1 != 0 {
			return
		}
	}
}

// Edges returns the number of rising clock edges seen by domain d.
//
func (c *Circuit) Edges(d *Domain) uint64 {
	i, ok := c.dom[d]
	if !ok {
		return 0
	}
	return c.edges[i]
}

// Steps returns the value of the step counter.
//
func (c *Circuit) Steps() uint64 {
	return c.tick
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.comb) + len(c.regs) }

// Design returns the simulated design.
//
func (c *Circuit) Design() *Design { return c.d }
