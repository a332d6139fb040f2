// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc

import (
	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/hwlib"
)

// FFSynchronizer resynchronizes a signal to a different clock domain.
//
// It consists of a chain of flip-flops named stage0 to stageN-1, all clocked
// in the destination domain. Its output lags its input by exactly Stages()
// destination clock edges, provided the input is stable.
//
// Note that a multi-bit FFSynchronizer does not give any consistency
// guarantees between bits: each bit settles independently, so a multi-bit
// value may be observed in a mixed old/new state. Use it only for Gray coded
// values or values that are stable for long enough.
//
// Accepted options: Stages, ResetValue, ResetLess and MaxInputDelay.
//
// FFSynchronizer is reset-less by default. Platforms implementing
// FFSyncOverrider may replace the default implementation.
//
type FFSynchronizer struct {
	i, o *hwcdc.Signal
	dst  *hwcdc.Domain
	cfg  config
}

// NewFFSynchronizer returns a new FFSynchronizer from i to o in the
// destination domain dst. i and o must have the same width.
//
func NewFFSynchronizer(i, o *hwcdc.Signal, dst *hwcdc.Domain, opts ...Option) (*FFSynchronizer, error) {
	const gen = "FFSynchronizer"
	cfg, err := newConfig(gen, optStages|optReset|optResetLess|optMaxDelay, opts)
	if err != nil {
		return nil, err
	}
	if err = checkSignal(gen, "input", i, 0); err != nil {
		return nil, err
	}
	if err = checkSignal(gen, "output", o, i.Width()); err != nil {
		return nil, err
	}
	if err = checkDomain(gen, "destination", dst); err != nil {
		return nil, err
	}
	return &FFSynchronizer{i: i, o: o, dst: dst, cfg: cfg}, nil
}

// Input returns the input signal.
//
func (s *FFSynchronizer) Input() *hwcdc.Signal { return s.i }

// Output returns the output signal.
//
func (s *FFSynchronizer) Output() *hwcdc.Signal { return s.o }

// Domain returns the destination domain.
//
func (s *FFSynchronizer) Domain() *hwcdc.Domain { return s.dst }

// Stages returns the number of synchronization stages.
//
func (s *FFSynchronizer) Stages() int { return s.cfg.stages }

// ResetValue returns the reset value of the stages, truncated to the width of
// the input.
//
func (s *FFSynchronizer) ResetValue() uint64 {
	if w := s.i.Width(); w < 64 {
		return s.cfg.reset & (1<<uint(w) - 1)
	}
	return s.cfg.reset
}

// IsResetLess returns true if the stages ignore the domain reset.
//
func (s *FFSynchronizer) IsResetLess() bool { return s.cfg.resetLess }

// MaxInputDelay returns the requested maximum input delay in seconds, if any.
//
func (s *FFSynchronizer) MaxInputDelay() (float64, bool) {
	return s.cfg.maxDelay, s.cfg.hasMaxDelay()
}

// Elaborate implements hwcdc.Elaboratable.
//
func (s *FFSynchronizer) Elaborate(p hwcdc.Platform) (*hwcdc.Module, error) {
	if o, ok := p.(FFSyncOverrider); ok {
		if m, err := o.FFSync(s); overridden(m, err) {
			return m, err
		}
	}
	if err := checkInputDelay(p, "FFSynchronizer", &s.cfg); err != nil {
		return nil, err
	}
	return s.Build(), nil
}

// Build returns the default implementation of s without consulting any
// platform. Additional signal options, like vendor attributes, are applied to
// every stage. Platform overrides use it to decorate the default structure.
//
func (s *FFSynchronizer) Build(opts ...hwcdc.SignalOption) *hwcdc.Module {
	m := hwcdc.NewModule()
	sopts := append([]hwcdc.SignalOption{hwcdc.Reset(s.ResetValue()), hwcdc.ResetLess(s.cfg.resetLess)}, opts...)
	stages := hwlib.Chain(m, s.dst, s.i, s.cfg.stages, "stage", sopts...)
	m.Comb(s.o, stages[len(stages)-1])
	if s.cfg.hasMaxDelay() {
		m.Constrain(hwcdc.Constraint{Kind: hwcdc.MaxDelay, From: s.i, To: stages[0], Seconds: s.cfg.maxDelay})
	}
	return m
}
