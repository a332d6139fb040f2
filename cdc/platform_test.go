// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc_test

import (
	"testing"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/cdc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vendor is a test platform with optional override hooks.
type vendor struct {
	ff          func(s *cdc.FFSynchronizer) (*hwcdc.Module, error)
	asyncFF     func(s *cdc.AsyncFFSynchronizer) (*hwcdc.Module, error)
	reset       func(s *cdc.ResetSynchronizer) (*hwcdc.Module, error)
	constraints bool
	calls       map[string]int
}

func (v *vendor) Name() string { return "vendor" }

func (v *vendor) SupportsConstraint(k hwcdc.ConstraintKind) bool {
	return v.constraints && k == hwcdc.MaxDelay
}

func (v *vendor) FFSync(s *cdc.FFSynchronizer) (*hwcdc.Module, error) {
	v.calls["ff"]++
	if v.ff == nil {
		return nil, cdc.ErrUseDefault
	}
	return v.ff(s)
}

func (v *vendor) AsyncFFSync(s *cdc.AsyncFFSynchronizer) (*hwcdc.Module, error) {
	v.calls["async_ff"]++
	if v.asyncFF == nil {
		return nil, cdc.ErrUseDefault
	}
	return v.asyncFF(s)
}

func (v *vendor) ResetSync(s *cdc.ResetSynchronizer) (*hwcdc.Module, error) {
	v.calls["reset"]++
	if v.reset == nil {
		return nil, errors.Wrap(cdc.ErrUseDefault, "no vendor reset cell")
	}
	return v.reset(s)
}

func newVendor() *vendor { return &vendor{calls: make(map[string]int)} }

func TestFFSync_override(t *testing.T) {
	b := hwcdc.NewDomain("b")
	i, o := hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1)
	ff, err := cdc.NewFFSynchronizer(i, o, b, cdc.Stages(3))
	require.NoError(t, err)

	v := newVendor()
	v.ff = func(s *cdc.FFSynchronizer) (*hwcdc.Module, error) {
		m := hwcdc.NewModule()
		m.Instantiate(&hwcdc.Instance{
			Type:    "SYNC_CELL",
			Params:  map[string]string{"STAGES": "3"},
			Inputs:  map[string]hwcdc.Expr{"D": s.Input(), "CLK": s.Domain().Clk},
			Outputs: map[string]*hwcdc.Signal{"Q": s.Output()},
		})
		return m, nil
	}
	d, err := hwcdc.Elaborate(ff, v)
	require.NoError(t, err)
	assert.Equal(t, 1, v.calls["ff"])
	assert.Empty(t, d.Registers())
	require.Len(t, d.Instances(), 1)
	assert.Equal(t, hwcdc.DrivenInstance, func() hwcdc.DriverKind { k, _ := d.Driver(o); return k }())

	// default
	v.ff = nil
	d, err = hwcdc.Elaborate(ff, v)
	require.NoError(t, err)
	assert.Equal(t, 2, v.calls["ff"])
	assert.Len(t, d.Registers(), 3)

	// hook failure
	boom := errors.New("boom")
	v.ff = func(*cdc.FFSynchronizer) (*hwcdc.Module, error) { return nil, boom }
	_, err = hwcdc.Elaborate(ff, v)
	assert.Equal(t, boom, errors.Cause(err))
}

func TestPulseSync_usesFFOverride(t *testing.T) {
	a, b := hwcdc.NewDomain("a"), hwcdc.NewDomain("b")
	ps, err := cdc.NewPulseSynchronizer(a, b, cdc.Stages(4))
	require.NoError(t, err)

	v := newVendor()
	var stages int
	v.ff = func(s *cdc.FFSynchronizer) (*hwcdc.Module, error) {
		stages = s.Stages()
		return s.Build(hwcdc.Attr("ASYNC_REG", "TRUE")), nil
	}
	d, err := hwcdc.Elaborate(ps, v)
	require.NoError(t, err)
	assert.Equal(t, 4, stages)
	// itoggle, 4 stages, otoggle_prev
	regs := d.Registers()
	require.Len(t, regs, 6)
	var tagged int
	for _, r := range regs {
		if v, ok := r.Attr("ASYNC_REG"); ok && v == "TRUE" {
			tagged++
		}
	}
	assert.Equal(t, 4, tagged)
}

func TestResetSync_override(t *testing.T) {
	b := hwcdc.NewDomain("b")
	arst := hwcdc.NewSignal("arst", 1)
	rs, err := cdc.NewResetSynchronizer(arst, b, cdc.Stages(3))
	require.NoError(t, err)

	// ResetSync falls back to the default, which consults the AsyncFF hook.
	v := newVendor()
	d, err := hwcdc.Elaborate(rs, v)
	require.NoError(t, err)
	assert.Equal(t, 1, v.calls["reset"])
	assert.Equal(t, 1, v.calls["async_ff"])
	assert.Len(t, d.Registers(), 3)
	kind, _ := d.Driver(b.Rst)
	assert.Equal(t, hwcdc.DrivenComb, kind)

	v = newVendor()
	v.reset = func(s *cdc.ResetSynchronizer) (*hwcdc.Module, error) {
		m := hwcdc.NewModule()
		m.Instantiate(&hwcdc.Instance{
			Type:    "RESET_SYNC",
			Inputs:  map[string]hwcdc.Expr{"ARST": s.AsyncReset(), "CLK": s.Domain().Clk},
			Outputs: map[string]*hwcdc.Signal{"RST": s.Domain().Rst},
		})
		return m, nil
	}
	d, err = hwcdc.Elaborate(rs, v)
	require.NoError(t, err)
	assert.Equal(t, 0, v.calls["async_ff"])
	assert.Empty(t, d.Registers())
	require.Len(t, d.Instances(), 1)
	assert.Equal(t, "RESET_SYNC", d.Instances()[0].Type)
}

func TestMaxInputDelay(t *testing.T) {
	b := hwcdc.NewDomain("b")
	i, o := hwcdc.NewSignal("i", 1), hwcdc.NewSignal("o", 1)

	ff, err := cdc.NewFFSynchronizer(i, o, b, cdc.MaxInputDelay(2e-9))
	require.NoError(t, err)
	af, err := cdc.NewAsyncFFSynchronizer(i, o, b, cdc.MaxInputDelay(2e-9))
	require.NoError(t, err)
	rs, err := cdc.NewResetSynchronizer(i, b, cdc.MaxInputDelay(2e-9))
	require.NoError(t, err)

	data := []struct {
		name string
		e    hwcdc.Elaboratable
	}{
		{"FFSynchronizer", ff},
		{"AsyncFFSynchronizer", af},
		{"AsyncFFSynchronizer", rs},
	}

	for _, td := range data {
		_, err = hwcdc.Elaborate(td.e, hwcdc.SimPlatform)
		require.Equal(t, cdc.ErrUnsupportedConstraint, errors.Cause(err), td.name)
		assert.Contains(t, err.Error(), `platform "sim" does not support constraining input delay for `+td.name)

		v := newVendor()
		_, err = hwcdc.Elaborate(td.e, v)
		require.Equal(t, cdc.ErrUnsupportedConstraint, errors.Cause(err), td.name)

		v.constraints = true
		d, err := hwcdc.Elaborate(td.e, v)
		require.NoError(t, err, td.name)
		cs := d.Constraints()
		require.Len(t, cs, 1, td.name)
		assert.Equal(t, hwcdc.MaxDelay, cs[0].Kind)
		assert.Same(t, i, cs[0].From)
		assert.Same(t, d.Registers()[0], cs[0].To)
		assert.Equal(t, 2e-9, cs[0].Seconds)
	}
}
