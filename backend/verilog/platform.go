// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package verilog implements a Verilog netlist back end with SDC timing
// constraints.
//
// The Platform honors maximum delay constraints and can optionally override
// the synchronizers of package cdc, either by tagging their stages with the
// ASYNC_REG attribute understood by most FPGA tools, or by replacing
// FFSynchronizers with a vendor synchronizer cell.
//
package verilog

import (
	"strconv"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/cdc"
)

// Platform is a Verilog back end. The zero value is a usable platform without
// overrides.
//
type Platform struct {
	asyncReg bool
	syncCell string
}

// An Option configures a Platform.
//
type Option func(*Platform)

// AsyncReg sets whether synchronizer stages are tagged with ASYNC_REG="TRUE".
//
func AsyncReg(on bool) Option {
	return func(p *Platform) { p.asyncReg = on }
}

// SyncCell sets the type of a black box synchronizer cell replacing
// FFSynchronizers. The cell has D, CLK and optional RST inputs, a Q output and
// STAGES, WIDTH and INIT parameters. An empty type disables the override.
//
func SyncCell(cellType string) Option {
	return func(p *Platform) { p.syncCell = cellType }
}

// New returns a new Platform.
//
func New(opts ...Option) *Platform {
	p := new(Platform)
	for _, o := range opts {
		o(p)
	}
	return p
}

// Name implements hwcdc.Platform.
//
func (p *Platform) Name() string {
	return "verilog"
}

// SupportsConstraint implements hwcdc.ConstraintSupporter.
//
func (p *Platform) SupportsConstraint(k hwcdc.ConstraintKind) bool {
	return k == hwcdc.MaxDelay
}

func asyncRegAttr() hwcdc.SignalOption {
	return hwcdc.Attr("ASYNC_REG", "TRUE")
}

// FFSync implements cdc.FFSyncOverrider.
//
func (p *Platform) FFSync(s *cdc.FFSynchronizer) (*hwcdc.Module, error) {
	if p.syncCell == "" {
		if p.asyncReg {
			return s.Build(asyncRegAttr()), nil
		}
		return nil, cdc.ErrUseDefault
	}

	m := hwcdc.NewModule()
	inst := &hwcdc.Instance{
		Type: p.syncCell,
		Params: map[string]string{
			"STAGES": strconv.Itoa(s.Stages()),
			"WIDTH":  strconv.Itoa(s.Input().Width()),
			"INIT":   strconv.FormatUint(s.ResetValue(), 10),
		},
		Inputs: map[string]hwcdc.Expr{
			"D":   s.Input(),
			"CLK": s.Domain().Clk,
		},
		Outputs: map[string]*hwcdc.Signal{"Q": s.Output()},
	}
	if !s.IsResetLess() {
		inst.Inputs["RST"] = s.Domain().Rst
	}
	m.Instantiate(inst)
	if delay, ok := s.MaxInputDelay(); ok {
		m.Constrain(hwcdc.Constraint{Kind: hwcdc.MaxDelay, From: s.Input(), To: s.Output(), Seconds: delay})
	}
	return m, nil
}

// AsyncFFSync implements cdc.AsyncFFSyncOverrider.
//
func (p *Platform) AsyncFFSync(s *cdc.AsyncFFSynchronizer) (*hwcdc.Module, error) {
	if !p.asyncReg {
		return nil, cdc.ErrUseDefault
	}
	return s.Build(asyncRegAttr()), nil
}
