/*
Package hwcdc provides the hardware construction substrate used by the
clock-domain-crossing generators of package cdc: signals, clock domains,
modules, elaboration into a flat Design, and a multi-clock cycle simulator.

A design is described by Elaboratable values that return Modules for a given
Platform. Elaborate inlines the module hierarchy into a Design, which can be
simulated with a Circuit or handed to a back end (see the backend
directory).

	rx := hwcdc.NewDomain("rx")
	in, out := hwcdc.NewSignal("in", 1), hwcdc.NewSignal("out", 1)
	m := hwcdc.NewModule()
	m.Sync(rx, out, in)

	d, err := hwcdc.Elaborate(m, hwcdc.SimPlatform)
	if err != nil {
		// ...
	}
	c, err := hwcdc.NewCircuit(d, 0)
	if err != nil {
		// ...
	}
	defer c.Dispose()
	c.AddClock(rx.Clk, 4, 0)
	c.Set(in, 1)
	c.Tick(rx)

*/
package hwcdc
