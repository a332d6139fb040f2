// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/db47h/hwcdc"
)

func inputSet(d *hwcdc.Design, clocks []Clock) []*hwcdc.Signal {
	clk := make(map[*hwcdc.Signal]bool, len(clocks))
	for _, k := range clocks {
		clk[k.Domain.Clk] = true
	}
	var in []*hwcdc.Signal
	for _, s := range d.Inputs() {
		if !clk[s] {
			in = append(in, s)
		}
	}
	return in
}

// Compare takes two designs built from the same generators, typically
// elaborated for different platforms, and compares their outputs given the
// same random inputs for the given number of steps. Both designs must have
// the same inputs.
//
func Compare(t testing.TB, d1, d2 *hwcdc.Design, steps int, clocks []Clock, outputs ...*hwcdc.Signal) {
	t.Helper()

	seed := time.Now().UnixNano()
	rnd := rand.New(rand.NewSource(seed))

	in1, in2 := inputSet(d1, clocks), inputSet(d2, clocks)
	if len(in1) != len(in2) {
		t.Fatalf("len(d1.Inputs) = %d != len(d2.Inputs) = %d", len(in1), len(in2))
	}
	for i := range in1 {
		if in1[i] != in2[i] {
			t.Fatalf("d1 input %s != d2 input %s", d1.NameOf(in1[i]), d2.NameOf(in2[i]))
		}
	}
	for _, o := range outputs {
		if d1.NameOf(o) == "" || d2.NameOf(o) == "" {
			t.Fatalf("output %s is not part of both designs", o.Name)
		}
	}

	b1, b2 := NewDesignBench(t, d1, clocks...), NewDesignBench(t, d2, clocks...)

	errString := func(o *hwcdc.Signal, ex, got uint64) string {
		var b strings.Builder
		for _, s := range in1 {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%#x", d1.NameOf(s), b1.Get(s))
		}
		return fmt.Sprintf("\nstep %d (seed %d): expected %s => %s=%#x\nGot %#x", b1.Steps(), seed, b.String(), d1.NameOf(o), ex, got)
	}

	start := time.Now()
	for i := 0; i < steps; i++ {
		for _, s := range in1 {
			v := rnd.Uint64()
			b1.Set(s, v)
			b2.Set(s, v)
		}
		b1.Step()
		b2.Step()
		for _, o := range outputs {
			if v1, v2 := b1.Get(o), b2.Get(o); v1 != v2 {
				t.Fatal(errString(o, v1, v2))
			}
		}
	}

	elapsed := time.Since(start)
	t.Logf("%d/%d components. %d steps in %v", b1.Size(), b2.Size(), steps, elapsed)
}
