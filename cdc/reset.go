// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc

import (
	"github.com/db47h/hwcdc"
)

// ResetSynchronizer synchronizes the deassertion of an asynchronous reset
// to a clock domain.
//
// The domain reset is asserted as soon as arst is high and released Stages()
// clock edges after arst goes low. It is an AsyncFFSynchronizer whose output
// drives the domain's Rst signal, so the domain reset must not be driven
// elsewhere.
//
// Accepted options: Stages and MaxInputDelay.
//
// Platforms implementing ResetSyncOverrider may replace the default
// implementation. Otherwise the AsyncFFSynchronizer hook applies.
//
type ResetSynchronizer struct {
	arst *hwcdc.Signal
	dst  *hwcdc.Domain
	cfg  config
}

// NewResetSynchronizer returns a new ResetSynchronizer driving the reset of
// domain dst from the asynchronous reset arst.
//
func NewResetSynchronizer(arst *hwcdc.Signal, dst *hwcdc.Domain, opts ...Option) (*ResetSynchronizer, error) {
	const gen = "ResetSynchronizer"
	cfg, err := newConfig(gen, optStages|optMaxDelay, opts)
	if err != nil {
		return nil, err
	}
	if err = checkSignal(gen, "async reset", arst, 1); err != nil {
		return nil, err
	}
	if err = checkDomain(gen, "destination", dst); err != nil {
		return nil, err
	}
	return &ResetSynchronizer{arst: arst, dst: dst, cfg: cfg}, nil
}

// AsyncReset returns the asynchronous reset input.
//
func (s *ResetSynchronizer) AsyncReset() *hwcdc.Signal { return s.arst }

// Domain returns the domain whose reset is driven.
//
func (s *ResetSynchronizer) Domain() *hwcdc.Domain { return s.dst }

// Stages returns the number of synchronization stages.
//
func (s *ResetSynchronizer) Stages() int { return s.cfg.stages }

// MaxInputDelay returns the requested maximum input delay in seconds, if any.
//
func (s *ResetSynchronizer) MaxInputDelay() (float64, bool) {
	return s.cfg.maxDelay, s.cfg.hasMaxDelay()
}

// Elaborate implements hwcdc.Elaboratable.
//
func (s *ResetSynchronizer) Elaborate(p hwcdc.Platform) (*hwcdc.Module, error) {
	if o, ok := p.(ResetSyncOverrider); ok {
		if m, err := o.ResetSync(s); overridden(m, err) {
			return m, err
		}
	}
	a, err := s.AsyncFF()
	if err != nil {
		return nil, err
	}
	return a.Elaborate(p)
}

// AsyncFF returns the AsyncFFSynchronizer implementing s.
//
func (s *ResetSynchronizer) AsyncFF() (*AsyncFFSynchronizer, error) {
	return NewAsyncFFSynchronizer(s.arst, s.dst.Rst, s.dst, s.cfg.options(optStages|optMaxDelay)...)
}
