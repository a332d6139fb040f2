// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides register building blocks shared by the synchronizer
// generators.
//
package hwlib

import (
	"strconv"

	"github.com/db47h/hwcdc"
)

// Chain adds to m a chain of n registers clocked by d, named prefix0 to
// prefixN-1, where register 0 samples in and every other register samples the
// previous one. All registers have the width of in and the given options.
// It returns the registers in chain order.
//
//	Function: chain[0](t) = in(t-1), chain[k](t) = chain[k-1](t-1)
//
func Chain(m *hwcdc.Module, d *hwcdc.Domain, in hwcdc.Expr, n int, prefix string, opts ...hwcdc.SignalOption) []*hwcdc.Signal {
	regs := make([]*hwcdc.Signal, n)
	for k := range regs {
		regs[k] = hwcdc.NewSignal(prefix+strconv.Itoa(k), in.Width(), opts...)
		m.Sync(d, regs[k], in)
		in = regs[k]
	}
	return regs
}

// Toggle adds to m a single bit register q clocked by d that flips on every
// clock edge where en is high.
//
//	Function: q(t) = q(t-1) ^ en(t-1)
//
func Toggle(m *hwcdc.Module, d *hwcdc.Domain, q *hwcdc.Signal, en hwcdc.Expr) {
	m.Sync(d, q, hwcdc.Xor(q, en))
}

// Changed drives out high during the clock cycle of d following a change of
// in. The previous value of in is held in register prev.
//
//	Function: out(t) = in(t) ^ in(t-1)
//
func Changed(m *hwcdc.Module, d *hwcdc.Domain, in, prev, out *hwcdc.Signal) {
	m.Sync(d, prev, in)
	m.Comb(out, hwcdc.Xor(in, prev))
}
