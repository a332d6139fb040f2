// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package verify formally checks the behavior of synchronizers by bounded
// model checking of their elaborated structure.
//
// Every check elaborates the synchronizer alone for the given platform, maps
// it to an AIG with package aig, adds monitor logic tracking the relevant
// history of the input and searches for traces violating the property, up to
// the given depth in simulation steps. Clock edges are free inputs: the
// checks hold for any clock frequency and phase.
//
package verify

import (
	"fmt"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/backend/aig"
	"github.com/db47h/hwcdc/cdc"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ErrViolation is returned when a check finds a counterexample.
//
var ErrViolation = errors.New("property violated")

// Report summarizes a successful check.
//
type Report struct {
	Check  string
	Stages int
	// Depth is the number of steps explored.
	Depth int
	// Latency is the least number of steps after which the output can
	// reflect a change of the input.
	Latency int
}

func (r *Report) String() string {
	return fmt.Sprintf("%s: %d stages, no violation within %d steps, latency %d", r.Check, r.Stages, r.Depth, r.Latency)
}

// Checker runs formal checks.
//
type Checker struct {
	// Platform is the platform synchronizers are elaborated for. Defaults to
	// hwcdc.SimPlatform. Platforms replacing synchronizers with black box
	// instances cannot be checked.
	Platform hwcdc.Platform
	// Depth is the search depth in steps. If less than or equal to 0, it
	// defaults to 2*stages+4.
	Depth int
	// Log receives progress messages.
	Log logr.Logger
}

func (c *Checker) model(name string, e hwcdc.Elaboratable) (*aig.Model, error) {
	p := c.Platform
	if p == nil {
		p = hwcdc.SimPlatform
	}
	d, err := hwcdc.Elaborate(e, p, hwcdc.WithName(name), hwcdc.WithLogger(c.logger()))
	if err != nil {
		return nil, err
	}
	return aig.Build(d)
}

func (c *Checker) logger() logr.Logger {
	if c.Log.GetSink() == nil {
		return logr.Discard()
	}
	return c.Log
}

func (c *Checker) depth(stages int) int {
	if c.Depth > 0 {
		return c.Depth
	}
	return 2*stages + 4
}

// thermometer adds to s a saturating counter of n bits t[0..n-1] where t[j]
// means "at least j+1 counted events since the last clear". t is initialized
// to init.
func thermometer(s *logic.S, n int, init bool, count, clear z.Lit) []z.Lit {
	v := s.F
	if init {
		v = s.T
	}
	t := make([]z.Lit, n)
	for j := range t {
		t[j] = s.Latch(v)
	}
	for j := range t {
		prev := s.T
		if j > 0 {
			prev = t[j-1]
		}
		s.SetNext(t[j], s.Choice(clear, s.F, s.Choice(count, prev, t[j])))
	}
	return t
}

// AsyncFF checks that the output of an AsyncFFSynchronizer:
//
//   - is never low unless the input has been inactive for at least Stages()
//     destination clock edges,
//   - is always low once the input has been inactive for Stages() edges,
//   - can first go low after exactly Stages() steps.
//
func (c *Checker) AsyncFF(s *cdc.AsyncFFSynchronizer) (*Report, error) {
	return c.asyncDeassert("async_ff", s, s.Input(), s.Output(), s.Domain(), s.Edge(), s.Stages())
}

// Reset is like AsyncFF for the reset signal driven by a ResetSynchronizer.
//
func (c *Checker) Reset(s *cdc.ResetSynchronizer) (*Report, error) {
	return c.asyncDeassert("reset", s, s.AsyncReset(), s.Domain().Rst, s.Domain(), cdc.Pos, s.Stages())
}

func (c *Checker) asyncDeassert(name string, e hwcdc.Elaboratable, in, out *hwcdc.Signal, dom *hwcdc.Domain, edge cdc.Edge, stages int) (*Report, error) {
	m, err := c.model(name, e)
	if err != nil {
		return nil, err
	}
	tick, err := m.Tick(dom)
	if err != nil {
		return nil, err
	}
	s := m.S
	active := m.Bits(in)[0]
	if edge == cdc.Neg {
		active = active.Not()
	}
	o := m.Bits(out)[0]
	t := thermometer(s, stages, false, tick, active)
	settled := t[stages-1]
	depth := c.depth(stages)
	log := c.logger().WithValues("check", name, "stages", stages, "depth", depth)

	if k, ok := m.Reachable(s.And(o.Not(), settled.Not()), depth); ok {
		return nil, errors.Wrapf(ErrViolation, "%s: output deasserted after less than %d edges at step %d", name, stages, k)
	}
	log.V(1).Info("no early deassertion")
	if k, ok := m.Reachable(s.And(settled, s.And(active.Not(), o)), depth); ok {
		return nil, errors.Wrapf(ErrViolation, "%s: output still asserted after %d edges at step %d", name, stages, k)
	}
	log.V(1).Info("deassertion after settling")
	k, ok := m.Reachable(o.Not(), depth)
	if !ok {
		return nil, errors.Wrapf(ErrViolation, "%s: output never deasserted within %d steps", name, depth)
	}
	if k != stages {
		return nil, errors.Wrapf(ErrViolation, "%s: output first deasserted after %d steps, expected %d", name, k, stages)
	}
	log.Info("check passed", "latency", k)
	return &Report{Check: name, Stages: stages, Depth: depth, Latency: k}, nil
}

// FF checks that the output of an FFSynchronizer equals its input once the
// input has been sampled with the same value on Stages() consecutive
// destination clock edges, and that a new input value can first reach the
// output after exactly Stages() steps. The destination domain reset is
// assumed inactive.
//
func (c *Checker) FF(ff *cdc.FFSynchronizer) (*Report, error) {
	const name = "ff"
	stages := ff.Stages()
	m, err := c.model(name, ff)
	if err != nil {
		return nil, err
	}
	dom := ff.Domain()
	tick, err := m.Tick(dom)
	if err != nil {
		return nil, err
	}
	if rst := m.Bits(dom.Rst); rst != nil && !ff.IsResetLess() {
		m.Constrain(rst[0].Not())
	}

	s := m.S
	in, out := m.Bits(ff.Input()), m.Bits(ff.Output())
	// pv holds the last sampled input, the stages power on as if the reset
	// value had been sampled on every edge.
	pv := make([]z.Lit, len(in))
	eq, diff := s.T, s.F
	for i := range in {
		init := s.F
		if ff.ResetValue()&(1<<uint(i)) != 0 {
			init = s.T
		}
		pv[i] = s.Latch(init)
		s.SetNext(pv[i], s.Choice(tick, in[i], pv[i]))
		eq = s.And(eq, s.Xor(in[i], pv[i]).Not())
		diff = s.Or(diff, s.Xor(out[i], pv[i]))
	}
	// t[j]: the last j+1 samples are equal
	t := make([]z.Lit, stages)
	for j := range t {
		t[j] = s.Latch(s.T)
	}
	for j := range t {
		next := s.T
		if j > 0 {
			next = s.And(eq, t[j-1])
		}
		s.SetNext(t[j], s.Choice(tick, next, t[j]))
	}
	depth := c.depth(stages)

	if k, ok := m.Reachable(s.And(t[stages-1], diff), depth); ok {
		return nil, errors.Wrapf(ErrViolation, "%s: output differs from a stable input at step %d", name, k)
	}

	// first step where the output differs from its power-on value
	var changed z.Lit = s.F
	for i := range out {
		if ff.ResetValue()&(1<<uint(i)) != 0 {
			changed = s.Or(changed, out[i].Not())
		} else {
			changed = s.Or(changed, out[i])
		}
	}
	k, ok := m.Reachable(changed, depth)
	if !ok {
		return nil, errors.Wrapf(ErrViolation, "%s: output never changes within %d steps", name, depth)
	}
	if k != stages {
		return nil, errors.Wrapf(ErrViolation, "%s: output first changes after %d steps, expected %d", name, k, stages)
	}
	c.logger().Info("check passed", "check", name, "stages", stages, "depth", depth, "latency", k)
	return &Report{Check: name, Stages: stages, Depth: depth, Latency: k}, nil
}
