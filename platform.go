// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwcdc

type simPlatform struct{}

func (simPlatform) Name() string { return "sim" }

// SimPlatform is the platform to elaborate designs for simulation with a
// Circuit. It offers no override hooks and supports no timing constraints.
//
var SimPlatform Platform = simPlatform{}
