// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package verify_test

import (
	"testing"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/backend/verilog"
	"github.com/db47h/hwcdc/cdc"
	"github.com/db47h/hwcdc/verify"
	"github.com/go-logr/logr/testr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncFF(t *testing.T) {
	for _, edge := range []cdc.Edge{cdc.Pos, cdc.Neg} {
		for stages := 2; stages <= 4; stages++ {
			b := hwcdc.NewDomain("b")
			af, err := cdc.NewAsyncFFSynchronizer(hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1), b,
				cdc.Stages(stages), cdc.AsyncEdge(edge))
			require.NoError(t, err)

			c := verify.Checker{Log: testr.New(t)}
			r, err := c.AsyncFF(af)
			require.NoError(t, err, "%s edge, %d stages", edge, stages)
			assert.Equal(t, stages, r.Latency)
			assert.Equal(t, 2*stages+4, r.Depth)
		}
	}
}

func TestReset(t *testing.T) {
	for stages := 2; stages <= 4; stages++ {
		b := hwcdc.NewDomain("b")
		rs, err := cdc.NewResetSynchronizer(hwcdc.NewSignal("arst", 1), b, cdc.Stages(stages))
		require.NoError(t, err)

		c := verify.Checker{Depth: 3 * stages}
		r, err := c.Reset(rs)
		require.NoError(t, err)
		assert.Equal(t, stages, r.Latency)
		assert.Equal(t, 3*stages, r.Depth)
		assert.Contains(t, r.String(), "no violation within")
	}
}

func TestFF(t *testing.T) {
	data := []struct {
		stages    int
		width     int
		reset     uint64
		resetLess bool
	}{
		{2, 1, 0, true},
		{3, 1, 1, false},
		{2, 3, 5, false},
		{4, 2, 2, true},
	}
	for _, d := range data {
		b := hwcdc.NewDomain("b")
		ff, err := cdc.NewFFSynchronizer(hwcdc.NewSignal("i", d.width), hwcdc.NewSignal("o", d.width), b,
			cdc.Stages(d.stages), cdc.ResetValue(d.reset), cdc.ResetLess(d.resetLess))
		require.NoError(t, err)

		var c verify.Checker
		r, err := c.FF(ff)
		require.NoError(t, err, "%+v", d)
		assert.Equal(t, d.stages, r.Latency, "%+v", d)
	}
}

func TestAsyncReg(t *testing.T) {
	b := hwcdc.NewDomain("b")
	af, err := cdc.NewAsyncFFSynchronizer(hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1), b, cdc.Stages(3))
	require.NoError(t, err)
	c := verify.Checker{Platform: verilog.New(verilog.AsyncReg(true))}
	r, err := c.AsyncFF(af)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Latency)
}

// passThrough replaces synchronizers with wires.
type passThrough struct{}

func (passThrough) Name() string { return "broken" }

func (passThrough) AsyncFFSync(s *cdc.AsyncFFSynchronizer) (*hwcdc.Module, error) {
	m := hwcdc.NewModule()
	m.Comb(s.Output(), s.Input())
	return m, nil
}

func (passThrough) FFSync(s *cdc.FFSynchronizer) (*hwcdc.Module, error) {
	m := hwcdc.NewModule()
	// a single stage
	q := hwcdc.NewSignal("q", s.Input().Width(), hwcdc.Reset(s.ResetValue()), hwcdc.ResetLess(true))
	m.Sync(s.Domain(), q, s.Input())
	m.Comb(s.Output(), q)
	return m, nil
}

func TestViolations(t *testing.T) {
	b := hwcdc.NewDomain("b")
	af, err := cdc.NewAsyncFFSynchronizer(hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1), b)
	require.NoError(t, err)
	c := verify.Checker{Platform: passThrough{}}
	_, err = c.AsyncFF(af)
	assert.Equal(t, verify.ErrViolation, errors.Cause(err))

	ff, err := cdc.NewFFSynchronizer(hwcdc.NewSignal("x", 2), hwcdc.NewSignal("y", 2), b)
	require.NoError(t, err)
	_, err = c.FF(ff)
	assert.Equal(t, verify.ErrViolation, errors.Cause(err))

	// black boxes cannot be checked
	c.Platform = verilog.New(verilog.SyncCell("SYNC"))
	_, err = c.FF(ff)
	assert.Equal(t, hwcdc.ErrUnsupportedInstance, errors.Cause(err))
}

func TestViolations_clockDropped(t *testing.T) {
	// the wire override leaves no register in the destination domain.
	b := hwcdc.NewDomain("b")
	rs, err := cdc.NewAsyncFFSynchronizer(hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1), b, cdc.Stages(3))
	require.NoError(t, err)
	c := verify.Checker{Platform: passThrough{}}
	_, err = c.AsyncFF(rs)
	require.Error(t, err)
	assert.Equal(t, verify.ErrViolation, errors.Cause(err))
	assert.Contains(t, err.Error(), "deasserted after less than 3 edges at step 0")
}
