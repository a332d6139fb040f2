// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl_test

import (
	"strings"
	"testing"

	"github.com/db47h/hwcdc/internal/hdl"
	"github.com/google/go-cmp/cmp"
)

func TestParseSignals(t *testing.T) {
	data := []struct {
		in  string
		out []hdl.Decl
		err string
	}{
		{"", nil, ""},
		{"  ", nil, ""},
		{"a", []hdl.Decl{{"a", 0}}, ""},
		{"data_in[8], arst,pulse_in", []hdl.Decl{{"data_in", 8}, {"arst", 0}, {"pulse_in", 0}}, ""},
		{"_x$1 [ 12 ]", []hdl.Decl{{"_x$1", 12}}, ""},
		{"a[2] b", nil, "at pos 6: expected comma or end of input"},
		{"a,", nil, "at pos 3: expected signal name, got end of input"},
		{"a, a", nil, "duplicate signal a"},
		{"a[x]", nil, "missing bus size"},
		{"a[0]", nil, "bus size must be at least 1"},
		{"a[2", nil, "missing close bracket"},
		{"1a", nil, "at pos 1: expected signal name, got integer"},
		{"a-b", nil, "expected comma or end of input, got invalid character"},
	}
	for _, d := range data {
		got, err := hdl.ParseSignals(d.in)
		if d.err != "" {
			if err == nil || !strings.Contains(err.Error(), d.err) {
				t.Errorf("ParseSignals(%q): got error %v, expected %q", d.in, err, d.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSignals(%q): %v", d.in, err)
			continue
		}
		if diff := cmp.Diff(d.out, got); diff != "" {
			t.Errorf("ParseSignals(%q) mismatch (-want +got):\n%s", d.in, diff)
		}
	}
}

func TestParseNames(t *testing.T) {
	got, err := hdl.ParseNames("data_out, pulse_out")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"data_out", "pulse_out"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if _, err = hdl.ParseNames("data_out[8]"); err == nil {
		t.Error("bus size accepted in name list")
	}
}

func TestLexer(t *testing.T) {
	l := hdl.NewLexer("x[3]")
	var types []hdl.Type
	for i := l.Lex(); i.Type != hdl.EOF; i = l.Lex() {
		types = append(types, i.Type)
	}
	want := []hdl.Type{hdl.Ident, hdl.BracketOpen, hdl.Int, hdl.BracketClose}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if i := l.Lex(); i.Type != hdl.EOF || i.Pos != 4 {
		t.Errorf("got %v at %d after end of input", i.Type, i.Pos)
	}
}

func TestLexer_items(t *testing.T) {
	l := hdl.NewLexer(" a_1$ ,\t42 # b ")
	var items []hdl.Item
	for i := l.Lex(); i.Type != hdl.EOF; i = l.Lex() {
		items = append(items, i)
	}
	want := []hdl.Item{
		{Type: hdl.Ident, Pos: 1, Value: "a_1$"},
		{Type: hdl.Comma, Pos: 6, Value: ","},
		{Type: hdl.Int, Pos: 8, Value: 42},
		{Type: hdl.Raw, Pos: 11, Value: "#"},
		{Type: hdl.Ident, Pos: 13, Value: "b"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	for k := 0; k < 2; k++ {
		if i := l.Lex(); i.Type != hdl.EOF || i.Pos != 15 {
			t.Errorf("got %v at %d after end of input", i.Type, i.Pos)
		}
	}
}
