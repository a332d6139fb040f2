// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc_test

import (
	"testing"

	hw "github.com/db47h/hwcdc"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCircuit(t *testing.T, top hw.Elaboratable, workers int) *hw.Circuit {
	t.Helper()
	d, err := hw.Elaborate(top, hw.SimPlatform)
	require.NoError(t, err)
	c, err := hw.NewCircuit(d, workers)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

// shift register with taps in two domains clocked from the same source.
func TestCircuit_simultaneousEdges(t *testing.T) {
	clk := hw.NewSignal("clk", 1)
	d1, d2 := hw.NewDomain("d1"), hw.NewDomain("d2")
	in := hw.NewSignal("in", 1)
	q1, q2, q3 := hw.NewSignal("q1", 1), hw.NewSignal("q2", 1), hw.NewSignal("q3", 1)

	m := hw.NewModule()
	m.Comb(d1.Clk, clk)
	m.Comb(d2.Clk, clk)
	m.Sync(d1, q1, in)
	m.Sync(d2, q2, q1)
	m.Sync(d1, q3, q2)

	c := newCircuit(t, m, 0)
	require.NoError(t, c.AddClock(clk, 2, 0))
	c.Set(in, 1)
	c.Tick(d1)
	assert.Equal(t, []uint64{1, 0, 0}, []uint64{c.Get(q1), c.Get(q2), c.Get(q3)})
	c.Set(in, 0)
	c.Tick(d2)
	assert.Equal(t, []uint64{0, 1, 0}, []uint64{c.Get(q1), c.Get(q2), c.Get(q3)})
	c.Tick(d1)
	assert.Equal(t, []uint64{0, 0, 1}, []uint64{c.Get(q1), c.Get(q2), c.Get(q3)})
	assert.Equal(t, uint64(3), c.Edges(d1))
	assert.Equal(t, uint64(3), c.Edges(d2))
	assert.Equal(t, uint64(6), c.Steps())
}

func TestCircuit_clocks(t *testing.T) {
	fast, slow := hw.NewDomain("fast"), hw.NewDomain("slow")
	fq, sq := hw.NewSignal("fq", 1), hw.NewSignal("sq", 1)
	m := hw.NewModule()
	m.Sync(fast, fq, hw.Not(fq))
	m.Sync(slow, sq, hw.Not(sq))

	c := newCircuit(t, m, 2)
	require.NoError(t, c.AddClock(fast.Clk, 2, 0))
	require.NoError(t, c.AddClock(slow.Clk, 8, 3))
	c.Run(32)
	assert.Equal(t, uint64(16), c.Edges(fast))
	// edges at 3, 11, 19, 27
	assert.Equal(t, uint64(4), c.Edges(slow))
	assert.Equal(t, uint64(0), c.Get(fq))
	assert.Equal(t, uint64(0), c.Get(sq))

	assert.Error(t, c.AddClock(fast.Clk, 4, 0), "clock already driven")
	assert.Error(t, c.AddClock(fast.Rst, 1, 0), "short period")
	assert.Error(t, c.AddClock(hw.NewSignal("foreign", 1), 4, 0))
}

func TestCircuit_resets(t *testing.T) {
	sd := hw.NewDomain("sync")
	ad := hw.NewDomain("async", hw.AsyncReset(true))
	sq, aq, lq := hw.NewSignal("sq", 4, hw.Reset(5)), hw.NewSignal("aq", 4, hw.Reset(5)), hw.NewSignal("lq", 4, hw.Reset(5), hw.ResetLess(true))
	in := hw.NewSignal("in", 4)
	m := hw.NewModule()
	m.Comb(ad.Clk, sd.Clk)
	m.Comb(ad.Rst, sd.Rst)
	m.Sync(sd, sq, in)
	m.Sync(ad, aq, in)
	m.Sync(ad, lq, in)

	c := newCircuit(t, m, 1)
	require.NoError(t, c.AddClock(sd.Clk, 4, 0))
	all := func() []uint64 { return []uint64{c.Get(sq), c.Get(aq), c.Get(lq)} }

	assert.Equal(t, []uint64{5, 5, 5}, all())
	c.Set(in, 0xa)
	c.Tick(sd)
	assert.Equal(t, []uint64{0xa, 0xa, 0xa}, all())

	c.SetBool(sd.Rst, true)
	c.Settle()
	assert.Equal(t, []uint64{0xa, 5, 0xa}, all())
	c.Set(in, 3)
	c.Tick(sd)
	assert.Equal(t, []uint64{5, 5, 3}, all())
	c.SetBool(sd.Rst, false)
	c.Tick(sd)
	assert.Equal(t, []uint64{3, 3, 3}, all())
}

func TestCircuit_workers(t *testing.T) {
	run := func(workers int) []uint64 {
		d := hw.NewDomain("sys")
		in := hw.NewSignal("in", 1)
		m := hw.NewModule()
		var regs []*hw.Signal
		var prev hw.Expr = in
		for i := 0; i < 37; i++ {
			r := hw.NewSignal("r", 1, hw.Reset(uint64(i&1)))
			m.Sync(d, r, hw.Xor(prev, r))
			regs = append(regs, r)
			prev = r
		}
		c := newCircuit(t, m, workers)
		require.NoError(t, c.AddClock(d.Clk, 2, 1))
		for i := 0; i < 50; i++ {
			c.SetBool(in, i%3 == 0)
			c.Tick(d)
		}
		out := make([]uint64, len(regs))
		for i, r := range regs {
			out[i] = c.Get(r)
		}
		return out
	}
	ref := run(1)
	for _, w := range []int{2, 3, 8, 64} {
		if diff := cmp.Diff(ref, run(w)); diff != "" {
			t.Errorf("%d workers (-1 worker +%d workers):\n%s", w, w, diff)
		}
	}
}

func TestCircuit_misuse(t *testing.T) {
	d := hw.NewDomain("sys")
	in, q, o := hw.NewSignal("in", 1), hw.NewSignal("q", 1), hw.NewSignal("o", 1)
	m := hw.NewModule()
	m.Sync(d, q, in)
	m.Comb(o, q)

	c := newCircuit(t, m, 0)
	assert.Panics(t, func() { c.Set(o, 1) })
	assert.Panics(t, func() { c.Set(q, 1) })
	assert.Panics(t, func() { c.Get(hw.NewSignal("foreign", 1)) })
	assert.Panics(t, func() { c.Tick(d) }, "no clocks")
	assert.Equal(t, 2, c.Size())
	assert.NotNil(t, c.Design())

	im := hw.NewModule()
	im.Instantiate(&hw.Instance{Type: "CELL", Inputs: map[string]hw.Expr{"A": in}, Outputs: map[string]*hw.Signal{"Y": o}})
	des, err := hw.Elaborate(im, hw.SimPlatform)
	require.NoError(t, err)
	_, err = hw.NewCircuit(des, 0)
	assert.Equal(t, hw.ErrUnsupportedInstance, errors.Cause(err))
}
