// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc

import (
	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/hwlib"
)

// PulseSynchronizer transfers single cycle pulses between clock domains.
//
// Every input pulse toggles a register in the source domain. The toggle is
// resynchronized with an FFSynchronizer and edge detected in the destination
// domain, producing a one cycle output pulse.
//
// The input must not pulse more often than the toggle can be resynchronized,
// that is about once every Stages()+1 destination cycles, or pulses are lost.
// Pulses are never created: two input pulses that cannot be told apart in the
// destination domain cancel out.
//
// The toggle registers follow their domains' resets. Resetting only one side
// may produce a spurious output pulse.
//
// Accepted options: Stages.
//
type PulseSynchronizer struct {
	i, o     *hwcdc.Signal
	src, dst *hwcdc.Domain
	stages   int
}

// NewPulseSynchronizer returns a new PulseSynchronizer from domain src to
// domain dst. Its 1 bit input and output signals are created with it, see I
// and O.
//
func NewPulseSynchronizer(src, dst *hwcdc.Domain, opts ...Option) (*PulseSynchronizer, error) {
	const gen = "PulseSynchronizer"
	cfg, err := newConfig(gen, optStages, opts)
	if err != nil {
		return nil, err
	}
	if err = checkDomain(gen, "source", src); err != nil {
		return nil, err
	}
	if err = checkDomain(gen, "destination", dst); err != nil {
		return nil, err
	}
	return &PulseSynchronizer{
		i:      hwcdc.NewSignal("i", 1),
		o:      hwcdc.NewSignal("o", 1),
		src:    src,
		dst:    dst,
		stages: cfg.stages,
	}, nil
}

// I returns the input pulse signal, sampled in the source domain.
//
func (s *PulseSynchronizer) I() *hwcdc.Signal { return s.i }

// O returns the output pulse signal, valid in the destination domain.
//
func (s *PulseSynchronizer) O() *hwcdc.Signal { return s.o }

// Source returns the source domain.
//
func (s *PulseSynchronizer) Source() *hwcdc.Domain { return s.src }

// Destination returns the destination domain.
//
func (s *PulseSynchronizer) Destination() *hwcdc.Domain { return s.dst }

// Stages returns the number of synchronization stages of the toggle.
//
func (s *PulseSynchronizer) Stages() int { return s.stages }

// Elaborate implements hwcdc.Elaboratable.
//
func (s *PulseSynchronizer) Elaborate(p hwcdc.Platform) (*hwcdc.Module, error) {
	m := hwcdc.NewModule()

	itoggle := hwcdc.NewSignal("itoggle", 1)
	otoggle := hwcdc.NewSignal("otoggle", 1)
	prev := hwcdc.NewSignal("otoggle_prev", 1)

	ff, err := NewFFSynchronizer(itoggle, otoggle, s.dst, Stages(s.stages))
	if err != nil {
		return nil, err
	}
	m.Submodule("ff_sync", ff)

	hwlib.Toggle(m, s.src, itoggle, s.i)
	hwlib.Changed(m, s.dst, otoggle, prev, s.o)
	return m, nil
}
