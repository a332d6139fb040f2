// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-air/gini/logic/aiger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "testdata/design.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestEmit_verilog(t *testing.T) {
	out, err := run(t, "emit", "--design", sample)
	require.NoError(t, err)
	for _, want := range []string{
		"// Generated by cdcgen for platform verilog.",
		"module top (",
		"input wire [7:0] data_in,",
		"input wire fast_clk,",
		"output wire [7:0] data_out",
		"output wire pulse_out",
		"always @(posedge sync_clk) begin",
		"endmodule",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "ASYNC_REG")
}

func TestEmit_asyncRegFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top.v")
	out, err := run(t, "emit", "--design", sample, "--async-reg", "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `(* ASYNC_REG = "TRUE" *)`)
}

func TestEmit_sdcFromEnv(t *testing.T) {
	t.Setenv("CDCGEN_FORMAT", "sdc")
	out, err := run(t, "emit", "--design", sample)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Generated by cdcgen for design top.\n"), out)
	assert.Contains(t, out, "set_max_delay -datapath_only -from [get_ports {data_in}] -to [get_cells {")
	assert.Contains(t, out, "] 2.000\n")
}

func TestEmit_aigerFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "cdcgen.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format: aiger\ndesign: "+sample+"\n"), 0o644))
	out, err := run(t, "emit", "--config", cfg)
	require.NoError(t, err)
	a, err := aiger.ReadAscii(strings.NewReader(out))
	require.NoError(t, err)
	// data_out and pulse_out
	assert.Len(t, a.Outputs, 9)
}

func TestEmit_errors(t *testing.T) {
	_, err := run(t, "emit")
	assert.Error(t, err)
	_, err = run(t, "emit", "--design", sample, "--format", "vhdl")
	assert.Error(t, err)
	_, err = run(t, "emit", "--design", sample, "--format", "aiger", "--sync-cell", "SYNC")
	assert.Error(t, err)
	_, err = run(t, "emit", "--design", "testdata/missing.yaml")
	assert.Error(t, err)
	_, err = run(t, "emit", "--design", sample, "--config", "testdata/missing.yaml")
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	out, err := run(t, "check", "--design", sample)
	require.NoError(t, err)
	for _, want := range []string{
		"data_sync: ff: 3 stages, no violation within 10 steps, latency 3\n",
		"fast_rst: reset: 2 stages, no violation within 8 steps, latency 2\n",
		"flag_sync: async_ff: 2 stages, no violation within 8 steps, latency 2\n",
		"strobe: skipped, no check for pulse synchronizers\n",
	} {
		assert.Contains(t, out, want)
	}

	out, err = run(t, "check", "--design", sample, "--depth", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "data_sync: ff: 3 stages, no violation within 12 steps, latency 3\n")
}
