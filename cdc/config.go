// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package cdc provides clock domain crossing generators: flip-flop
// synchronizers, asynchronous-assert / synchronous-deassert synchronizers for
// reset-like signals, reset synchronizers and pulse synchronizers.
//
// All generators validate their configuration at construction and are
// immutable afterwards. They produce their hardware when elaborated with
// hwcdc.Elaborate.
//
package cdc

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Configuration errors.
//
var (
	// ErrInvalidType is returned for values of the wrong kind, like a
	// non-positive stage count, a nil signal, or an option a generator does
	// not accept.
	ErrInvalidType = errors.New("invalid type")
	// ErrUnsafeValue is returned for well formed values outside of the safe
	// range, like a stage count less than 2.
	ErrUnsafeValue = errors.New("unsafe value")
	// ErrUnsupportedConstraint is returned at elaboration when a maximum input
	// delay is requested and the platform cannot honor it.
	ErrUnsupportedConstraint = errors.New("unsupported constraint")
)

// Edge selects the edge of an asynchronous input that sets the output of an
// AsyncFFSynchronizer.
//
type Edge string

// Edges.
//
const (
	Pos Edge = "pos"
	Neg Edge = "neg"
)

// CheckStages validates a synchronization stage count.
//
// Stage counts below 1 are not positive integers and fail with
// ErrInvalidType. A single stage cannot bound the probability of a metastable
// output, so counts below 2 fail with ErrUnsafeValue.
//
func CheckStages(stages int) error {
	if stages < 1 {
		return errors.Wrapf(ErrInvalidType, "synchronization stage count must be a positive integer, not %d", stages)
	}
	if stages < 2 {
		return errors.Wrap(ErrUnsafeValue, "synchronization stage count may not safely be less than 2")
	}
	return nil
}

// CheckEdge validates an asynchronous edge.
//
func CheckEdge(e Edge) error {
	if e != Pos && e != Neg {
		return errors.Wrapf(ErrUnsafeValue, "async edge must be one of %q or %q, not %q", Pos, Neg, e)
	}
	return nil
}

type optKind uint

const (
	optStages optKind = 1 << iota
	optReset
	optResetLess
	optEdge
	optMaxDelay
)

var optNames = [...]string{"Stages", "ResetValue", "ResetLess", "AsyncEdge", "MaxInputDelay"}

func (k optKind) String() string {
	var names []string
	for i, n := range optNames {
		if k&(1<<uint(i)) != 0 {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

type config struct {
	stages    int
	reset     uint64
	resetLess bool
	edge      Edge
	maxDelay  float64
	set       optKind
}

// An Option configures a generator. Each generator documents the options it
// accepts; passing any other option fails with ErrInvalidType.
//
type Option func(*config)

// Stages sets the number of synchronization stages. The default is 2.
//
func Stages(n int) Option {
	return func(c *config) {
		c.stages = n
		c.set |= optStages
	}
}

// ResetValue sets the reset value of an FFSynchronizer's stages. The default
// is 0.
//
func ResetValue(v uint64) Option {
	return func(c *config) {
		c.reset = v
		c.set |= optReset
	}
}

// ResetLess sets whether an FFSynchronizer ignores its domain's reset. The
// default is true: the stages are only initialized at power-on.
//
func ResetLess(resetLess bool) Option {
	return func(c *config) {
		c.resetLess = resetLess
		c.set |= optResetLess
	}
}

// AsyncEdge sets the edge of the input that asserts an AsyncFFSynchronizer's
// output. The default is Pos.
//
func AsyncEdge(e Edge) Option {
	return func(c *config) {
		c.edge = e
		c.set |= optEdge
	}
}

// MaxInputDelay requests that the delay from the input signal to the first
// synchronization stage be constrained to the given number of seconds.
// Elaboration fails with ErrUnsupportedConstraint if the platform cannot
// honor it.
//
func MaxInputDelay(seconds float64) Option {
	return func(c *config) {
		c.maxDelay = seconds
		c.set |= optMaxDelay
	}
}

func newConfig(gen string, allowed optKind, opts []Option) (config, error) {
	c := config{stages: 2, resetLess: true, edge: Pos}
	for _, o := range opts {
		if o == nil {
			return c, errors.Wrapf(ErrInvalidType, "%s: nil option", gen)
		}
		o(&c)
	}
	if extra := c.set &^ allowed; extra != 0 {
		return c, errors.Wrapf(ErrInvalidType, "%s does not accept option(s) %s", gen, extra)
	}
	if err := CheckStages(c.stages); err != nil {
		return c, errors.WithMessage(err, gen)
	}
	if err := CheckEdge(c.edge); err != nil {
		return c, errors.WithMessage(err, gen)
	}
	if c.hasMaxDelay() && (math.IsNaN(c.maxDelay) || math.IsInf(c.maxDelay, 0) || c.maxDelay <= 0) {
		return c, errors.Wrapf(ErrUnsafeValue, "%s: max input delay must be a positive number of seconds, not %s",
			gen, strconv.FormatFloat(c.maxDelay, 'g', -1, 64))
	}
	return c, nil
}

func (c *config) hasMaxDelay() bool { return c.set&optMaxDelay != 0 }

// options returns the options reproducing the given parts of c.
func (c *config) options(which optKind) []Option {
	var opts []Option
	which &= c.set | optStages
	if which&optStages != 0 {
		opts = append(opts, Stages(c.stages))
	}
	if which&optMaxDelay != 0 {
		opts = append(opts, MaxInputDelay(c.maxDelay))
	}
	return opts
}
