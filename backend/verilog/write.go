// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package verilog

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/db47h/hwcdc"
	"github.com/pkg/errors"
)

type writer struct {
	d   *hwcdc.Design
	b   bytes.Buffer
	out map[*hwcdc.Signal]bool
}

func (w *writer) printf(format string, args ...interface{}) {
	fmt.Fprintf(&w.b, format, args...)
}

// ident returns the Verilog identifier for s, escaped if necessary.
func (w *writer) ident(s *hwcdc.Signal) string {
	return Ident(w.d.NameOf(s))
}

// Ident returns name as a Verilog identifier, using an escaped identifier if
// name contains characters not allowed in simple identifiers.
//
func Ident(name string) string {
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '$'):
		default:
			return "\\" + name + " "
		}
	}
	if name == "" {
		return "\\ "
	}
	return name
}

func rng(width int) string {
	if width == 1 {
		return ""
	}
	return "[" + strconv.Itoa(width-1) + ":0] "
}

func literal(v uint64, width int) string {
	return strconv.Itoa(width) + "'h" + strconv.FormatUint(v, 16)
}

func (w *writer) expr(x hwcdc.Expr) string {
	switch x := x.(type) {
	case *hwcdc.Signal:
		return w.ident(x)
	case hwcdc.Const:
		return literal(x.Value, x.Bits)
	case *hwcdc.Operator:
		if x.Op == hwcdc.OpNot {
			return "~" + w.expr(x.Operands[0])
		}
		return "(" + w.expr(x.Operands[0]) + " " + x.Op.String() + " " + w.expr(x.Operands[1]) + ")"
	}
	panic(errors.Errorf("unsupported expression %T", x))
}

func (w *writer) attrs(indent string, s *hwcdc.Signal) {
	for _, k := range s.Attrs() {
		v, _ := s.Attr(k)
		w.printf("%s(* %s = %q *)\n", indent, k, v)
	}
}

// Write writes design d as a single Verilog module. Undriven signals become
// input ports; the given outputs become output ports.
//
func Write(w io.Writer, d *hwcdc.Design, outputs ...*hwcdc.Signal) error {
	vw := &writer{d: d, out: make(map[*hwcdc.Signal]bool, len(outputs))}
	for _, o := range outputs {
		if d.NameOf(o) == "" {
			return errors.Errorf("output %s is not part of design %s", o.Name, d.Name)
		}
		if kind, _ := d.Driver(o); kind == hwcdc.Undriven {
			return errors.Errorf("output %s is not driven", d.NameOf(o))
		}
		vw.out[o] = true
	}
	vw.module(outputs)
	if _, err := w.Write(vw.b.Bytes()); err != nil {
		return errors.Wrap(err, "write verilog")
	}
	return nil
}

func (w *writer) module(outputs []*hwcdc.Signal) {
	d := w.d
	inputs := d.Inputs()

	w.printf("// Generated by cdcgen for platform %s.\n\n", d.Platform)
	w.printf("module %s (", Ident(d.Name))
	var ports []string
	for _, s := range inputs {
		ports = append(ports, "input wire "+rng(s.Width())+w.ident(s))
	}
	for _, s := range outputs {
		kind := "wire"
		if k, _ := d.Driver(s); k == hwcdc.DrivenSync {
			kind = "reg"
		}
		ports = append(ports, "output "+kind+" "+rng(s.Width())+w.ident(s))
	}
	for i, p := range ports {
		if i > 0 {
			w.printf(",")
		}
		w.printf("\n    %s", p)
	}
	w.printf("\n);\n")

	// declarations
	for _, s := range d.Signals() {
		kind, _ := d.Driver(s)
		switch {
		case kind == hwcdc.Undriven:
			continue
		case kind == hwcdc.DrivenSync:
			if w.out[s] {
				w.printf("  initial %s = %s;\n", w.ident(s), literal(s.ResetValue(), s.Width()))
				continue
			}
			w.attrs("  ", s)
			w.printf("  reg %s%s = %s;\n", rng(s.Width()), w.ident(s), literal(s.ResetValue(), s.Width()))
		case !w.out[s]:
			w.attrs("  ", s)
			w.printf("  wire %s%s;\n", rng(s.Width()), w.ident(s))
		}
	}

	// combinational logic in evaluation order
	w.printf("\n")
	for _, s := range d.EvalOrder() {
		if kind, a := d.Driver(s); kind == hwcdc.DrivenComb {
			w.printf("  assign %s = %s;\n", w.ident(s), w.expr(a.RHS))
		}
	}

	w.instances()
	w.processes()
	w.printf("\nendmodule\n")
}

func (w *writer) instances() {
	for n, inst := range w.d.Instances() {
		w.printf("\n  %s", Ident(inst.Type))
		if len(inst.Params) > 0 {
			w.printf(" #(")
			for i, k := range slices.Sorted(maps.Keys(inst.Params)) {
				if i > 0 {
					w.printf(",")
				}
				w.printf("\n    .%s(%s)", Ident(k), inst.Params[k])
			}
			w.printf("\n  )")
		}
		w.printf(" u%d (", n)
		conns := make(map[string]string, len(inst.Inputs)+len(inst.Outputs))
		for k, x := range inst.Inputs {
			conns[k] = w.expr(x)
		}
		for k, s := range inst.Outputs {
			conns[k] = w.ident(s)
		}
		for i, k := range slices.Sorted(maps.Keys(conns)) {
			if i > 0 {
				w.printf(",")
			}
			w.printf("\n    .%s(%s)", Ident(k), conns[k])
		}
		w.printf("\n  );\n")
	}
}

// processes writes one always block per domain and reset kind. Reset-less
// registers of asynchronously reset domains get their own block.
func (w *writer) processes() {
	type block struct {
		dom   *hwcdc.Domain
		async bool
		regs  []*hwcdc.Assign
	}
	var blocks []*block
	idx := make(map[*hwcdc.Domain][2]*block)
	for _, a := range w.d.Sync() {
		async := a.Domain.AsyncReset && !a.LHS.IsResetLess()
		bs := idx[a.Domain]
		i := 0
		if async {
			i = 1
		}
		if bs[i] == nil {
			bs[i] = &block{dom: a.Domain, async: async}
			blocks = append(blocks, bs[i])
			idx[a.Domain] = bs
		}
		bs[i].regs = append(bs[i].regs, a)
	}

	for _, b := range blocks {
		clk, rst := w.ident(b.dom.Clk), w.ident(b.dom.Rst)
		if b.async {
			w.printf("\n  always @(posedge %s or posedge %s) begin\n", clk, rst)
		} else {
			w.printf("\n  always @(posedge %s) begin\n", clk)
		}
		var resettable []*hwcdc.Assign
		for _, a := range b.regs {
			if a.LHS.IsResetLess() {
				w.printf("    %s <= %s;\n", w.ident(a.LHS), w.expr(a.RHS))
			} else {
				resettable = append(resettable, a)
			}
		}
		if len(resettable) > 0 {
			w.printf("    if (%s) begin\n", rst)
			for _, a := range resettable {
				w.printf("      %s <= %s;\n", w.ident(a.LHS), literal(a.LHS.ResetValue(), a.LHS.Width()))
			}
			w.printf("    end else begin\n")
			for _, a := range resettable {
				w.printf("      %s <= %s;\n", w.ident(a.LHS), w.expr(a.RHS))
			}
			w.printf("    end\n")
		}
		w.printf("  end\n")
	}
}

// WriteSDC writes the timing constraints of design d in SDC format. Delays
// are expressed in nanoseconds.
//
func WriteSDC(w io.Writer, d *hwcdc.Design) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Generated by cdcgen for design %s.\n", d.Name)
	for _, c := range d.Constraints() {
		switch c.Kind {
		case hwcdc.MaxDelay:
			fmt.Fprintf(&b, "set_max_delay -datapath_only -from %s -to %s %.3f\n",
				sdcObject(d, c.From), sdcObject(d, c.To), c.Seconds*1e9)
		default:
			return errors.Errorf("unsupported constraint kind %s", c.Kind)
		}
	}
	if _, err := w.Write(b.Bytes()); err != nil {
		return errors.Wrap(err, "write sdc")
	}
	return nil
}

func sdcObject(d *hwcdc.Design, s *hwcdc.Signal) string {
	name := d.NameOf(s)
	switch kind, _ := d.Driver(s); kind {
	case hwcdc.Undriven:
		return "[get_ports {" + name + "}]"
	case hwcdc.DrivenSync:
		return "[get_cells {" + name + "_reg*}]"
	}
	return "[get_nets {" + name + "}]"
}
