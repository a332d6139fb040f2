// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc

import (
	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/hwlib"
)

// AsyncFFSynchronizer synchronizes the deassertion of an asynchronous signal.
//
// The output is asserted asynchronously (without waiting for a destination
// clock edge) when the input becomes active, as selected by AsyncEdge. It is
// deasserted synchronously: it goes low once the input has been inactive for
// Stages() consecutive destination clock edges.
//
// The stages are clocked in a private "async_ff" domain whose clock is the
// destination clock and whose reset is the active level of the input. They
// reset, and power on, to 1.
//
// Input and output must both be 1 bit wide. The output may be a domain reset
// signal, see ResetSynchronizer.
//
// Accepted options: Stages, AsyncEdge and MaxInputDelay.
//
// Platforms implementing AsyncFFSyncOverrider may replace the default
// implementation.
//
type AsyncFFSynchronizer struct {
	i, o *hwcdc.Signal
	dst  *hwcdc.Domain
	cfg  config
}

// NewAsyncFFSynchronizer returns a new AsyncFFSynchronizer from i to o in
// destination domain dst.
//
func NewAsyncFFSynchronizer(i, o *hwcdc.Signal, dst *hwcdc.Domain, opts ...Option) (*AsyncFFSynchronizer, error) {
	const gen = "AsyncFFSynchronizer"
	cfg, err := newConfig(gen, optStages|optEdge|optMaxDelay, opts)
	if err != nil {
		return nil, err
	}
	if err = checkSignal(gen, "input", i, 1); err != nil {
		return nil, err
	}
	if err = checkSignal(gen, "output", o, 1); err != nil {
		return nil, err
	}
	if err = checkDomain(gen, "destination", dst); err != nil {
		return nil, err
	}
	return &AsyncFFSynchronizer{i: i, o: o, dst: dst, cfg: cfg}, nil
}

// Input returns the input signal.
//
func (s *AsyncFFSynchronizer) Input() *hwcdc.Signal { return s.i }

// Output returns the output signal.
//
func (s *AsyncFFSynchronizer) Output() *hwcdc.Signal { return s.o }

// Domain returns the destination domain.
//
func (s *AsyncFFSynchronizer) Domain() *hwcdc.Domain { return s.dst }

// Stages returns the number of synchronization stages.
//
func (s *AsyncFFSynchronizer) Stages() int { return s.cfg.stages }

// Edge returns the active edge of the input.
//
func (s *AsyncFFSynchronizer) Edge() Edge { return s.cfg.edge }

// MaxInputDelay returns the requested maximum input delay in seconds, if any.
//
func (s *AsyncFFSynchronizer) MaxInputDelay() (float64, bool) {
	return s.cfg.maxDelay, s.cfg.hasMaxDelay()
}

// Elaborate implements hwcdc.Elaboratable.
//
func (s *AsyncFFSynchronizer) Elaborate(p hwcdc.Platform) (*hwcdc.Module, error) {
	if o, ok := p.(AsyncFFSyncOverrider); ok {
		if m, err := o.AsyncFFSync(s); overridden(m, err) {
			return m, err
		}
	}
	if err := checkInputDelay(p, "AsyncFFSynchronizer", &s.cfg); err != nil {
		return nil, err
	}
	return s.Build(), nil
}

// Build returns the default implementation of s without consulting any
// platform. Additional signal options are applied to every stage.
//
func (s *AsyncFFSynchronizer) Build(opts ...hwcdc.SignalOption) *hwcdc.Module {
	m := hwcdc.NewModule()
	af := hwcdc.NewDomain("async_ff", hwcdc.AsyncReset(true), hwcdc.Local(true))
	m.AddDomain(af)

	sopts := append([]hwcdc.SignalOption{hwcdc.Reset(1)}, opts...)
	stages := hwlib.Chain(m, af, hwcdc.C(0, 1), s.cfg.stages, "stage", sopts...)

	if s.cfg.edge == Pos {
		m.Comb(af.Rst, s.i)
	} else {
		m.Comb(af.Rst, hwcdc.Not(s.i))
	}
	m.Comb(af.Clk, s.dst.Clk)
	m.Comb(s.o, stages[len(stages)-1])
	if s.cfg.hasMaxDelay() {
		m.Constrain(hwcdc.Constraint{Kind: hwcdc.MaxDelay, From: s.i, To: stages[0], Seconds: s.cfg.maxDelay})
	}
	return m
}
