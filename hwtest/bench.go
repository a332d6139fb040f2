// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"testing"

	"github.com/db47h/hwcdc"
	"github.com/go-logr/logr/testr"
)

// Clock describes a clock source driving a domain's clock signal in a test
// bench. Period and Phase are in simulation steps.
//
type Clock struct {
	Domain *hwcdc.Domain
	Period uint
	Phase  uint
}

// Bench is a simulation of an elaborated test design. It embeds the
// simulated circuit and reports failures to the test it was created for.
//
type Bench struct {
	*hwcdc.Circuit
	tb testing.TB
}

// NewBench elaborates top for platform p (hwcdc.SimPlatform if nil), builds a
// circuit for it and starts the given clocks. Elaboration is logged to the
// test log. The circuit is disposed of when the test completes.
//
func NewBench(tb testing.TB, top hwcdc.Elaboratable, p hwcdc.Platform, clocks ...Clock) *Bench {
	tb.Helper()
	if p == nil {
		p = hwcdc.SimPlatform
	}
	d, err := hwcdc.Elaborate(top, p, hwcdc.WithLogger(testr.NewWithInterface(tb, testr.Options{Verbosity: 1})))
	if err != nil {
		tb.Fatalf("elaborate: %+v", err)
	}
	return NewDesignBench(tb, d, clocks...)
}

// NewDesignBench is like NewBench for an already elaborated design.
//
func NewDesignBench(tb testing.TB, d *hwcdc.Design, clocks ...Clock) *Bench {
	tb.Helper()
	c, err := hwcdc.NewCircuit(d, 0)
	if err != nil {
		tb.Fatalf("new circuit: %+v", err)
	}
	tb.Cleanup(c.Dispose)
	for _, k := range clocks {
		if err = c.AddClock(k.Domain.Clk, k.Period, k.Phase); err != nil {
			tb.Fatalf("clock %s: %v", k.Domain.Name, err)
		}
	}
	return &Bench{Circuit: c, tb: tb}
}

// Signal returns the design signal with the given unique name. It fails the
// test if there is no such signal.
//
func (b *Bench) Signal(name string) *hwcdc.Signal {
	b.tb.Helper()
	s, ok := b.Design().Lookup(name)
	if !ok {
		b.tb.Fatalf("no signal named %q in design %s", name, b.Design().Name)
	}
	return s
}

// TickN processes n rising edges of domain d's clock.
//
func (b *Bench) TickN(d *hwcdc.Domain, n int) {
	for ; n > 0; n-- {
		b.Tick(d)
	}
}

// Pulse drives input s high for one clock cycle of domain d.
//
func (b *Bench) Pulse(s *hwcdc.Signal, d *hwcdc.Domain) {
	b.Set(s, 1)
	b.Tick(d)
	b.Set(s, 0)
}

// Expect checks the current value of s.
//
func (b *Bench) Expect(s *hwcdc.Signal, want uint64) bool {
	b.tb.Helper()
	if got := b.Get(s); got != want {
		b.tb.Errorf("step %d: %s = %#x, expected %#x", b.Steps(), b.Design().NameOf(s), got, want)
		return false
	}
	return true
}
