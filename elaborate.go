// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Elaboration errors.
//
var (
	ErrMultipleDrivers = errors.New("signal has more than one driver")
	ErrWidth           = errors.New("width mismatch")
	ErrCombLoop        = errors.New("combinational loop")
	ErrDomainScope     = errors.New("local domain used out of scope")
)

// DriverKind tells what drives a signal in a Design.
//
type DriverKind int

// Driver kinds.
//
const (
	Undriven DriverKind = iota
	DrivenComb
	DrivenSync
	DrivenInstance
)

type driver struct {
	kind DriverKind
	a    *Assign
	inst *Instance
}

// A Design is the flattened result of elaborating a hierarchy of modules.
// It is read-only once returned by Elaborate.
//
type Design struct {
	Name     string
	Platform string

	signals     []*Signal
	first       map[*Signal]string // path of the first module referencing a signal
	names       map[*Signal]string
	domains     []*Domain
	comb        []*Assign
	sync        []*Assign
	instances   []*Instance
	constraints []Constraint
	drivers     map[*Signal]driver
	order       []*Signal
}

// ElaborateOption configures Elaborate.
//
type ElaborateOption func(*elaborator)

// WithLogger sets the logger used during elaboration. Modules are logged at
// verbosity 1.
//
func WithLogger(l logr.Logger) ElaborateOption {
	return func(e *elaborator) { e.log = l }
}

// WithName sets the name of the top module. The default is "top".
//
func WithName(name string) ElaborateOption {
	return func(e *elaborator) { e.d.Name = name }
}

type elaborator struct {
	p       Platform
	log     logr.Logger
	d       *Design
	domains map[*Domain]bool
	seen    map[*Signal]bool
}

// Elaborate elaborates top for platform p and inlines all submodules into a
// single Design.
//
// Elaborate checks that every signal has at most one driver, that assignment
// widths match, that local domains are only used by the module declaring them
// or its submodules and that there are no combinational loops.
//
func Elaborate(top Elaboratable, p Platform, opts ...ElaborateOption) (*Design, error) {
	if p == nil {
		return nil, errors.New("nil platform")
	}
	if top == nil {
		return nil, errors.New("nil top module")
	}
	e := &elaborator{
		p:   p,
		log: logr.Discard(),
		d: &Design{
			Name:     "top",
			Platform: p.Name(),
			first:    make(map[*Signal]string),
			drivers:  make(map[*Signal]driver),
		},
		domains: make(map[*Domain]bool),
		seen:    make(map[*Signal]bool),
	}
	for _, o := range opts {
		o(e)
	}
	if err := e.visit(top, nil, nil); err != nil {
		return nil, err
	}
	e.d.assignNames()
	order, err := e.d.evalOrder()
	if err != nil {
		return nil, err
	}
	e.d.order = order
	e.log.Info("design elaborated", "design", e.d.Name, "platform", e.d.Platform,
		"signals", len(e.d.signals), "registers", len(e.d.sync), "domains", len(e.d.domains))
	return e.d, nil
}

func pathName(path []string) string {
	if len(path) == 0 {
		return "<top>"
	}
	return strings.Join(path, ".")
}

func (e *elaborator) ref(path []string, ss ...*Signal) {
	for _, s := range ss {
		if e.seen[s] {
			continue
		}
		e.seen[s] = true
		e.d.signals = append(e.d.signals, s)
		e.d.first[s] = strings.Join(path, "_")
	}
}

func (e *elaborator) addDomain(path []string, d *Domain) {
	if e.domains[d] {
		return
	}
	e.domains[d] = true
	e.d.domains = append(e.d.domains, d)
	e.ref(path, d.Clk, d.Rst)
}

func (e *elaborator) visit(el Elaboratable, path []string, visible map[*Domain]bool) error {
	m, err := el.Elaborate(e.p)
	if err != nil {
		if len(path) == 0 {
			return err
		}
		return errors.Wrap(err, pathName(path))
	}
	if m == nil {
		return errors.Errorf("%s: elaborated to a nil module", pathName(path))
	}

	vis := make(map[*Domain]bool, len(visible)+len(m.domains))
	for d := range visible {
		vis[d] = true
	}
	for _, d := range m.domains {
		vis[d] = true
		e.addDomain(path, d)
	}

	for i := range m.stmts {
		a := &m.stmts[i]
		if err := e.addAssign(path, vis, a); err != nil {
			return errors.Wrap(err, pathName(path))
		}
	}
	for _, inst := range m.instances {
		if err := e.addInstance(path, inst); err != nil {
			return errors.Wrap(err, pathName(path))
		}
	}
	for _, c := range m.constraints {
		if c.From == nil || c.To == nil {
			return errors.Errorf("%s: incomplete %s constraint", pathName(path), c.Kind)
		}
		e.ref(path, c.From, c.To)
		e.d.constraints = append(e.d.constraints, c)
	}

	e.log.V(1).Info("module elaborated", "path", pathName(path), "statements", len(m.stmts),
		"domains", len(m.domains), "instances", len(m.instances), "submodules", len(m.subs))

	for _, sub := range m.subs {
		p := make([]string, len(path), len(path)+1)
		copy(p, path)
		if err := e.visit(sub.e, append(p, sub.name), vis); err != nil {
			return err
		}
	}
	return nil
}

func (e *elaborator) addAssign(path []string, vis map[*Domain]bool, a *Assign) error {
	if a.LHS == nil || a.RHS == nil {
		return errors.New("incomplete assignment")
	}
	if d := a.Domain; d != nil {
		if d.Local && !vis[d] {
			return errors.Wrapf(ErrDomainScope, "domain %q, signal %s", d.Name, a.LHS.Name)
		}
		e.addDomain(path, d)
	}
	if err := checkExpr(a.RHS); err != nil {
		return errors.Wrapf(err, "assignment to %s", a.LHS.Name)
	}
	if w := a.RHS.Width(); w != a.LHS.width {
		return errors.Wrapf(ErrWidth, "assignment of %d bits to %s", w, a.LHS)
	}
	e.ref(path, a.LHS)
	e.ref(path, a.RHS.Signals(nil)...)
	kind := DrivenComb
	if a.Domain != nil {
		kind = DrivenSync
	}
	if err := e.drive(a.LHS, driver{kind: kind, a: a}); err != nil {
		return err
	}
	if kind == DrivenComb {
		e.d.comb = append(e.d.comb, a)
	} else {
		e.d.sync = append(e.d.sync, a)
	}
	return nil
}

func (e *elaborator) addInstance(path []string, inst *Instance) error {
	for _, k := range slices.Sorted(maps.Keys(inst.Inputs)) {
		x := inst.Inputs[k]
		if err := checkExpr(x); err != nil {
			return errors.Wrapf(err, "%s port %s", inst.Type, k)
		}
		e.ref(path, x.Signals(nil)...)
	}
	for _, k := range slices.Sorted(maps.Keys(inst.Outputs)) {
		s := inst.Outputs[k]
		e.ref(path, s)
		if err := e.drive(s, driver{kind: DrivenInstance, inst: inst}); err != nil {
			return errors.Wrapf(err, "%s port %s", inst.Type, k)
		}
	}
	e.d.instances = append(e.d.instances, inst)
	return nil
}

func (e *elaborator) drive(s *Signal, dr driver) error {
	if _, ok := e.d.drivers[s]; ok {
		return errors.Wrapf(ErrMultipleDrivers, "signal %s", s.Name)
	}
	e.d.drivers[s] = dr
	return nil
}

func checkExpr(x Expr) error {
	switch x := x.(type) {
	case *Signal:
		if x == nil {
			return errors.New("nil signal")
		}
	case Const:
		if x.Bits < 1 || x.Bits > MaxWidth {
			return errors.Wrapf(ErrWidth, "constant width %d", x.Bits)
		}
	case *Operator:
		if len(x.Operands) == 0 {
			return errors.Errorf("operator %s without operands", x.Op)
		}
		if x.Op == OpNot && len(x.Operands) != 1 || x.Op != OpNot && len(x.Operands) != 2 {
			return errors.Errorf("operator %s with %d operands", x.Op, len(x.Operands))
		}
		for _, o := range x.Operands {
			if err := checkExpr(o); err != nil {
				return err
			}
		}
		w := x.Operands[0].Width()
		for _, o := range x.Operands[1:] {
			if o.Width() != w {
				return errors.Wrapf(ErrWidth, "operands of %s: %d and %d bits", x.Op, w, o.Width())
			}
		}
	default:
		return errors.Errorf("unsupported expression type %T", x)
	}
	return nil
}

// assignNames gives every signal a unique name: its own name when unique in
// the design, otherwise prefixed with the path of the first module that
// referenced it. Remaining collisions get a numeric suffix.
//
func (d *Design) assignNames() {
	count := make(map[string]int, len(d.signals))
	for _, s := range d.signals {
		count[baseName(s)]++
	}
	used := make(map[string]bool, len(d.signals))
	d.names = make(map[*Signal]string, len(d.signals))
	for _, s := range d.signals {
		n := baseName(s)
		if count[n] > 1 && d.first[s] != "" {
			n = d.first[s] + "_" + n
		}
		if used[n] {
			i := 1
			for used[n+"_"+strconv.Itoa(i)] {
				i++
			}
			n = n + "_" + strconv.Itoa(i)
		}
		used[n] = true
		d.names[s] = n
	}
}

func baseName(s *Signal) string {
	if s.Name == "" {
		return "sig"
	}
	return s.Name
}

// evalOrder returns the design signals in an order where every signal comes
// after the signals its current value depends on: the right hand side of a
// combinational assignment, or the reset of an asynchronously reset register.
//
func (d *Design) evalOrder() ([]*Signal, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Signal]int, len(d.signals))
	order := make([]*Signal, 0, len(d.signals))
	var stack []*Signal

	var visit func(s *Signal) error
	visit = func(s *Signal) error {
		switch color[s] {
		case black:
			return nil
		case grey:
			var b strings.Builder
			for i := len(stack) - 1; i >= 0; i-- {
				b.WriteString(d.names[stack[i]])
				b.WriteString(" <- ")
				if stack[i] == s {
					break
				}
			}
			b.WriteString(d.names[s])
			return errors.Wrap(ErrCombLoop, b.String())
		}
		color[s] = grey
		stack = append(stack, s)
		for _, dep := range d.deps(s) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[s] = black
		order = append(order, s)
		return nil
	}

	for _, s := range d.signals {
		if err := visit(s); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (d *Design) deps(s *Signal) []*Signal {
	dr := d.drivers[s]
	switch dr.kind {
	case DrivenComb:
		return dr.a.RHS.Signals(nil)
	case DrivenSync:
		if dr.a.Domain.AsyncReset && !s.resetLess {
			return []*Signal{dr.a.Domain.Rst}
		}
	}
	return nil
}

// Signals returns all signals of the design in elaboration order.
//
func (d *Design) Signals() []*Signal { return d.signals }

// NameOf returns the unique name of s in the design, or an empty string if s
// is not part of the design.
//
func (d *Design) NameOf(s *Signal) string { return d.names[s] }

// Lookup returns the signal with the given unique name.
//
func (d *Design) Lookup(name string) (*Signal, bool) {
	for _, s := range d.signals {
		if d.names[s] == name {
			return s, true
		}
	}
	return nil, false
}

// Domains returns the domains used by the design.
//
func (d *Design) Domains() []*Domain { return d.domains }

// Comb returns the combinational assignments.
//
func (d *Design) Comb() []*Assign { return d.comb }

// Sync returns the synchronous assignments.
//
func (d *Design) Sync() []*Assign { return d.sync }

// Instances returns the black box instances.
//
func (d *Design) Instances() []*Instance { return d.instances }

// Constraints returns the timing constraints.
//
func (d *Design) Constraints() []Constraint { return d.constraints }

// EvalOrder returns all signals sorted so that every signal comes after the
// signals its value depends on within a clock cycle.
//
func (d *Design) EvalOrder() []*Signal { return d.order }

// Driver returns the driver kind of s and, for assignments, the driving
// assignment.
//
func (d *Design) Driver(s *Signal) (DriverKind, *Assign) {
	dr := d.drivers[s]
	return dr.kind, dr.a
}

// DrivingInstance returns the instance driving s, if any.
//
func (d *Design) DrivingInstance(s *Signal) *Instance {
	return d.drivers[s].inst
}

// Inputs returns the signals that have no driver in the design.
//
func (d *Design) Inputs() []*Signal {
	var in []*Signal
	for _, s := range d.signals {
		if _, ok := d.drivers[s]; !ok {
			in = append(in, s)
		}
	}
	return in
}

// Registers returns the signals driven by synchronous assignments.
//
func (d *Design) Registers() []*Signal {
	rs := make([]*Signal, len(d.sync))
	for i, a := range d.sync {
		rs[i] = a.LHS
	}
	return rs
}
