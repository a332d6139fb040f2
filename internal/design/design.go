// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package design loads YAML design files: global clock domains, top level
// signals and the synchronizers connecting them.
//
package design

import (
	"bytes"
	"io"
	"math"
	"os"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/cdc"
	"github.com/db47h/hwcdc/internal/hdl"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Synchronizer kinds.
//
const (
	KindFF      = "ff"
	KindAsyncFF = "async_ff"
	KindReset   = "reset"
	KindPulse   = "pulse"
)

// File is the YAML representation of a design.
//
type File struct {
	Name          string       `yaml:"name"`
	Domains       []DomainSpec `yaml:"domains"`
	Signals       string       `yaml:"signals"`
	Outputs       string       `yaml:"outputs"`
	Synchronizers []SyncSpec   `yaml:"synchronizers"`
}

// DomainSpec declares a global clock domain.
//
type DomainSpec struct {
	Name       string `yaml:"name"`
	AsyncReset bool   `yaml:"async_reset"`
}

// SyncSpec declares a synchronizer. Stages is left untyped so that values of
// the wrong type can be reported as such.
//
type SyncSpec struct {
	Kind          string      `yaml:"kind"`
	Name          string      `yaml:"name"`
	Input         string      `yaml:"input"`
	Output        string      `yaml:"output"`
	Domain        string      `yaml:"domain"`
	From          string      `yaml:"from"`
	Stages        interface{} `yaml:"stages"`
	Reset         *uint64     `yaml:"reset"`
	ResetLess     *bool       `yaml:"reset_less"`
	Edge          string      `yaml:"edge"`
	MaxInputDelay *float64    `yaml:"max_input_delay"`
}

// Sync is a named synchronizer of a design. Value is the submodule added to
// the top module: a *cdc.FFSynchronizer, *cdc.AsyncFFSynchronizer or
// *cdc.ResetSynchronizer. Pulse synchronizers own their ports and are wrapped
// in a module connecting them to the design signals, see Pulse.
//
type Sync struct {
	Name  string
	Kind  string
	Value hwcdc.Elaboratable
}

// Design is a loaded design file.
//
type Design struct {
	Name    string
	Domains *hwcdc.Domains
	// Top is the top module, with every synchronizer as a submodule.
	Top           *hwcdc.Module
	Signals       []*hwcdc.Signal
	Outputs       []*hwcdc.Signal
	Synchronizers []Sync

	byName map[string]*hwcdc.Signal
}

// Signal returns the top level signal with the given name, or nil.
//
func (d *Design) Signal(name string) *hwcdc.Signal { return d.byName[name] }

// Load reads a design file.
//
func Load(path string) (*Design, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load design")
	}
	d, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return d, nil
}

// Decode reads a YAML design from r and builds it. Unknown fields are
// rejected. Configuration errors are accumulated: the returned error lists
// all of them, see multierr.Errors.
//
func Decode(r io.Reader) (*Design, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode design")
	}
	return f.Build()
}

// Build builds the design described by f.
//
func (f *File) Build() (*Design, error) {
	var errs error
	d := &Design{
		Name:    f.Name,
		Domains: hwcdc.NewDomains(),
		Top:     hwcdc.NewModule(),
		byName:  make(map[string]*hwcdc.Signal),
	}
	if d.Name == "" {
		d.Name = "top"
	}

	for _, ds := range f.Domains {
		dom, err := d.Domains.Add(ds.Name, hwcdc.AsyncReset(ds.AsyncReset))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		d.Top.AddDomain(dom)
	}

	decls, err := hdl.ParseSignals(f.Signals)
	if err != nil {
		errs = multierr.Append(errs, errors.WithMessage(err, "signals"))
	}
	for _, dcl := range decls {
		w := dcl.Width
		if w == 0 {
			w = 1
		}
		if w > hwcdc.MaxWidth {
			errs = multierr.Append(errs, errors.Errorf("signal %s: width %d exceeds %d", dcl.Name, w, hwcdc.MaxWidth))
			continue
		}
		d.addSignal(hwcdc.NewSignal(dcl.Name, w))
	}

	names := make(map[string]bool)
	for k := range f.Synchronizers {
		ss := &f.Synchronizers[k]
		if ss.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("synchronizer #%d: missing name", k))
			continue
		}
		if names[ss.Name] {
			errs = multierr.Append(errs, errors.Errorf("synchronizer %s: duplicate name", ss.Name))
			continue
		}
		names[ss.Name] = true
		s, err := d.build(ss)
		if err != nil {
			errs = multierr.Append(errs, errors.WithMessage(err, "synchronizer "+ss.Name))
			continue
		}
		d.Synchronizers = append(d.Synchronizers, Sync{Name: ss.Name, Kind: ss.Kind, Value: s})
		d.Top.Submodule(ss.Name, s)
	}

	outs, err := hdl.ParseNames(f.Outputs)
	if err != nil {
		errs = multierr.Append(errs, errors.WithMessage(err, "outputs"))
	}
	for _, n := range outs {
		s := d.byName[n]
		if s == nil {
			errs = multierr.Append(errs, errors.Errorf("output %s: undeclared signal", n))
			continue
		}
		d.Outputs = append(d.Outputs, s)
	}

	if errs != nil {
		return nil, errs
	}
	return d, nil
}

func (d *Design) addSignal(s *hwcdc.Signal) {
	d.Signals = append(d.Signals, s)
	d.byName[s.Name] = s
}

func (d *Design) input(name string) (*hwcdc.Signal, error) {
	if name == "" {
		return nil, errors.New("missing input")
	}
	s := d.byName[name]
	if s == nil {
		return nil, errors.Errorf("input %s: undeclared signal", name)
	}
	return s, nil
}

// output returns the named signal, declaring it with the given width if
// needed.
func (d *Design) output(name string, width int) (*hwcdc.Signal, error) {
	if name == "" {
		return nil, errors.New("missing output")
	}
	if s := d.byName[name]; s != nil {
		return s, nil
	}
	s := hwcdc.NewSignal(name, width)
	d.addSignal(s)
	return s, nil
}

func (d *Design) domain(name string) (*hwcdc.Domain, error) {
	if name == "" {
		return nil, errors.New("missing domain")
	}
	return d.Domains.Lookup(name)
}

func stages(v interface{}) (cdc.Option, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case int:
		return cdc.Stages(v), nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<31 {
			return cdc.Stages(int(v)), nil
		}
	}
	return nil, errors.Wrapf(cdc.ErrInvalidType, "stages must be an integer, not %v", v)
}

// options converts the optional fields of s to generator options. Fields
// that the generator does not accept are passed along anyway so that the
// generator rejects them.
func options(s *SyncSpec) ([]cdc.Option, error) {
	var opts []cdc.Option
	o, err := stages(s.Stages)
	if err != nil {
		return nil, err
	}
	if o != nil {
		opts = append(opts, o)
	}
	if s.Reset != nil {
		opts = append(opts, cdc.ResetValue(*s.Reset))
	}
	if s.ResetLess != nil {
		opts = append(opts, cdc.ResetLess(*s.ResetLess))
	}
	if s.Edge != "" {
		opts = append(opts, cdc.AsyncEdge(cdc.Edge(s.Edge)))
	}
	if s.MaxInputDelay != nil {
		opts = append(opts, cdc.MaxInputDelay(*s.MaxInputDelay))
	}
	return opts, nil
}

func (d *Design) build(s *SyncSpec) (hwcdc.Elaboratable, error) {
	opts, err := options(s)
	if err != nil {
		return nil, err
	}
	dst, err := d.domain(s.Domain)
	if err != nil {
		return nil, err
	}
	in, err := d.input(s.Input)
	if err != nil {
		return nil, err
	}
	if s.Kind != KindPulse && s.From != "" {
		return nil, errors.Errorf("from: unexpected for %s synchronizer", s.Kind)
	}

	switch s.Kind {
	case KindFF:
		out, err := d.output(s.Output, in.Width())
		if err != nil {
			return nil, err
		}
		return cdc.NewFFSynchronizer(in, out, dst, opts...)
	case KindAsyncFF:
		out, err := d.output(s.Output, 1)
		if err != nil {
			return nil, err
		}
		return cdc.NewAsyncFFSynchronizer(in, out, dst, opts...)
	case KindReset:
		if s.Output != "" {
			return nil, errors.New("output: a reset synchronizer drives its domain reset")
		}
		return cdc.NewResetSynchronizer(in, dst, opts...)
	case KindPulse:
		src, err := d.domain(s.From)
		if err != nil {
			return nil, errors.WithMessage(err, "from")
		}
		out, err := d.output(s.Output, 1)
		if err != nil {
			return nil, err
		}
		ps, err := cdc.NewPulseSynchronizer(src, dst, opts...)
		if err != nil {
			return nil, err
		}
		if in.Width() != 1 || out.Width() != 1 {
			return nil, errors.Wrap(cdc.ErrInvalidType, "pulse signals must be 1 bit wide")
		}
		return &pulse{ps, in, out}, nil
	}
	return nil, errors.Errorf("unknown kind %q", s.Kind)
}

// pulse connects a PulseSynchronizer to design signals.
type pulse struct {
	*cdc.PulseSynchronizer
	in, out *hwcdc.Signal
}

func (p *pulse) Elaborate(hwcdc.Platform) (*hwcdc.Module, error) {
	m := hwcdc.NewModule()
	m.Submodule("sync", p.PulseSynchronizer)
	m.Comb(p.I(), p.in)
	m.Comb(p.out, p.O())
	return m, nil
}

// Pulse returns the PulseSynchronizer of a pulse Sync, or nil.
//
func (s *Sync) Pulse() *cdc.PulseSynchronizer {
	if p, ok := s.Value.(*pulse); ok {
		return p.PulseSynchronizer
	}
	return nil
}
