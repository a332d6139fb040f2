// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

import (
	"github.com/pkg/errors"
)

// ErrUnknownDomain is returned when looking up a domain that has not been
// registered.
//
var ErrUnknownDomain = errors.New("unknown clock domain")

// A Domain is a clock domain: every register driven by a synchronous
// assignment in a domain is clocked by the rising edge of Clk and reset by
// Rst.
//
// A domain with AsyncReset set resets its registers as soon as Rst is
// asserted, independently of Clk. Otherwise the reset is sampled on the clock
// edge.
//
// Local domains are only visible to the module that declares them and its
// submodules.
//
type Domain struct {
	Name       string
	Clk        *Signal
	Rst        *Signal
	AsyncReset bool
	Local      bool
}

// A DomainOption configures a new Domain.
//
type DomainOption func(*Domain)

// AsyncReset sets the reset kind of a domain.
//
func AsyncReset(async bool) DomainOption {
	return func(d *Domain) { d.AsyncReset = async }
}

// Local sets the locality of a domain.
//
func Local(local bool) DomainOption {
	return func(d *Domain) { d.Local = local }
}

// NewDomain creates a new clock domain together with its clock and reset
// signals, named name_clk and name_rst.
//
func NewDomain(name string, opts ...DomainOption) *Domain {
	d := &Domain{
		Name: name,
		Clk:  NewSignal(name+"_clk", 1),
		Rst:  NewSignal(name+"_rst", 1),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Domain) String() string { return d.Name }

// Domains is a registry of global clock domains. Generators take *Domain
// handles, so resolving names through the registry moves missing-domain
// errors to the point where the handle is obtained.
//
type Domains struct {
	m     map[string]*Domain
	order []*Domain
}

// NewDomains returns a new registry holding the given domains.
// It panics if two domains have the same name.
//
func NewDomains(ds ...*Domain) *Domains {
	r := &Domains{m: make(map[string]*Domain)}
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Add creates and registers a new global domain.
//
func (r *Domains) Add(name string, opts ...DomainOption) (*Domain, error) {
	d := NewDomain(name, opts...)
	if err := r.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Register adds an existing domain to the registry.
//
func (r *Domains) Register(d *Domain) error {
	if d.Name == "" {
		return errors.New("empty domain name")
	}
	if d.Local {
		return errors.Errorf("domain %q is local and cannot be registered", d.Name)
	}
	if _, ok := r.m[d.Name]; ok {
		return errors.Errorf("domain %q already registered", d.Name)
	}
	r.m[d.Name] = d
	r.order = append(r.order, d)
	return nil
}

// Lookup returns the domain with the given name.
//
func (r *Domains) Lookup(name string) (*Domain, error) {
	d, ok := r.m[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDomain, "domain %q", name)
	}
	return d, nil
}

// MustLookup is like Lookup but panics if the domain does not exist.
//
func (r *Domains) MustLookup(name string) *Domain {
	d, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return d
}

// All returns the registered domains in registration order.
//
func (r *Domains) All() []*Domain {
	return append([]*Domain(nil), r.order...)
}
