// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

// A Platform is the back end a design is elaborated for. Generators receive
// it explicitly and may query it for optional capabilities with type
// assertions (see ConstraintSupporter).
//
type Platform interface {
	Name() string
}

// ConstraintKind identifies a kind of timing constraint.
//
type ConstraintKind int

// Constraint kinds.
//
const (
	// MaxDelay bounds the delay from a source signal to a destination
	// register, in seconds.
	MaxDelay ConstraintKind = iota
)

func (k ConstraintKind) String() string {
	switch k {
	case MaxDelay:
		return "max_delay"
	}
	return "unknown"
}

// ConstraintSupporter is implemented by platforms able to honor timing
// constraints.
//
type ConstraintSupporter interface {
	SupportsConstraint(k ConstraintKind) bool
}

// PlatformName returns p.Name(), or "<nil>" for a nil platform.
//
func PlatformName(p Platform) string {
	if p == nil {
		return "<nil>"
	}
	return p.Name()
}

// A Constraint is a timing constraint to be passed on to the back end.
//
type Constraint struct {
	Kind    ConstraintKind
	From    *Signal
	To      *Signal
	Seconds float64
}

// An Elaboratable is anything that can produce a Module for a given platform.
//
type Elaboratable interface {
	Elaborate(p Platform) (*Module, error)
}

// ElaboratableFunc adapts a function to the Elaboratable interface.
//
type ElaboratableFunc func(p Platform) (*Module, error)

// Elaborate implements Elaboratable.
//
func (f ElaboratableFunc) Elaborate(p Platform) (*Module, error) { return f(p) }

// An Assign is an assignment statement. A nil Domain denotes a combinational
// assignment, otherwise LHS is a register clocked in Domain.
//
type Assign struct {
	Domain *Domain
	LHS    *Signal
	RHS    Expr
}

// IsComb returns true for combinational assignments.
//
func (a *Assign) IsComb() bool { return a.Domain == nil }

// An Instance is a black box cell provided by the back end (e.g. a vendor
// synchronizer primitive).
//
type Instance struct {
	Type    string
	Params  map[string]string
	Inputs  map[string]Expr
	Outputs map[string]*Signal
}

type submodule struct {
	name string
	e    Elaboratable
}

// A Module is a hardware fragment: local domain declarations, combinational
// and synchronous assignments, black box instances, timing constraints and
// submodules. It is produced by an Elaboratable and inlined by Elaborate.
//
// A Module is itself an Elaboratable that returns itself.
//
type Module struct {
	domains     []*Domain
	stmts       []Assign
	subs        []submodule
	instances   []*Instance
	constraints []Constraint
}

// NewModule returns an empty module.
//
func NewModule() *Module {
	return new(Module)
}

// Elaborate implements Elaboratable.
//
func (m *Module) Elaborate(Platform) (*Module, error) { return m, nil }

// AddDomain declares a domain in the module. Local domains are only visible
// to this module and its submodules.
//
func (m *Module) AddDomain(d *Domain) {
	m.domains = append(m.domains, d)
}

// Comb adds the combinational assignment lhs = rhs.
//
func (m *Module) Comb(lhs *Signal, rhs Expr) {
	m.stmts = append(m.stmts, Assign{LHS: lhs, RHS: rhs})
}

// Sync adds the synchronous assignment lhs <= rhs in domain d.
//
func (m *Module) Sync(d *Domain, lhs *Signal, rhs Expr) {
	m.stmts = append(m.stmts, Assign{Domain: d, LHS: lhs, RHS: rhs})
}

// Submodule adds a named submodule.
//
func (m *Module) Submodule(name string, e Elaboratable) {
	m.subs = append(m.subs, submodule{name, e})
}

// Instantiate adds a black box instance.
//
func (m *Module) Instantiate(inst *Instance) {
	m.instances = append(m.instances, inst)
}

// Constrain adds a timing constraint.
//
func (m *Module) Constrain(c Constraint) {
	m.constraints = append(m.constraints, c)
}

// Domains returns the domains declared by m.
//
func (m *Module) Domains() []*Domain { return m.domains }

// Statements returns the assignments of m, in insertion order.
//
func (m *Module) Statements() []Assign { return m.stmts }

// Constraints returns the timing constraints of m.
//
func (m *Module) Constraints() []Constraint { return m.constraints }

// Instances returns the black box instances of m.
//
func (m *Module) Instances() []*Instance { return m.instances }

// SubmoduleNames returns the names of the submodules of m.
//
func (m *Module) SubmoduleNames() []string {
	names := make([]string, len(m.subs))
	for i, s := range m.subs {
		names[i] = s.name
	}
	return names
}
