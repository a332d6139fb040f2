// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package cdc

import (
	"github.com/db47h/hwcdc"
	"github.com/pkg/errors"
)

// ErrUseDefault is returned by platform override hooks to request the default
// implementation of a generator.
//
var ErrUseDefault = errors.New("use default implementation")

// FFSyncOverrider is implemented by platforms that provide their own
// FFSynchronizer implementation, e.g. to instantiate library cells directly.
//
type FFSyncOverrider interface {
	FFSync(s *FFSynchronizer) (*hwcdc.Module, error)
}

// AsyncFFSyncOverrider is implemented by platforms that provide their own
// AsyncFFSynchronizer implementation.
//
type AsyncFFSyncOverrider interface {
	AsyncFFSync(s *AsyncFFSynchronizer) (*hwcdc.Module, error)
}

// ResetSyncOverrider is implemented by platforms that provide their own
// ResetSynchronizer implementation.
//
type ResetSyncOverrider interface {
	ResetSync(s *ResetSynchronizer) (*hwcdc.Module, error)
}

// overridden returns done == true if the hook produced a result, be it a
// module or an error.
func overridden(m *hwcdc.Module, err error) (done bool) {
	if err != nil {
		return errors.Cause(err) != ErrUseDefault
	}
	return m != nil
}

func checkInputDelay(p hwcdc.Platform, gen string, c *config) error {
	if !c.hasMaxDelay() {
		return nil
	}
	if cs, ok := p.(hwcdc.ConstraintSupporter); ok && cs.SupportsConstraint(hwcdc.MaxDelay) {
		return nil
	}
	return errors.Wrapf(ErrUnsupportedConstraint, "platform %q does not support constraining input delay for %s",
		hwcdc.PlatformName(p), gen)
}

func checkSignal(gen, role string, s *hwcdc.Signal, width int) error {
	if s == nil {
		return errors.Wrapf(ErrInvalidType, "%s: nil %s signal", gen, role)
	}
	if width > 0 && s.Width() != width {
		return errors.Wrapf(ErrInvalidType, "%s: %s signal %s must be %d bit wide, not %d", gen, role, s.Name, width, s.Width())
	}
	return nil
}

func checkDomain(gen, role string, d *hwcdc.Domain) error {
	if d == nil {
		return errors.Wrapf(ErrInvalidType, "%s: nil %s domain", gen, role)
	}
	return nil
}
