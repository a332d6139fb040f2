// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command cdcgen elaborates the synchronizers of a YAML design file. It emits
// them as Verilog, SDC timing constraints or an AIGER model, and formally
// checks their behavior.
//
// Usage:
//
//	cdcgen emit --design top.yaml --format verilog [--async-reg] [--output top.v]
//	cdcgen emit --design top.yaml --format sdc
//	cdcgen emit --design top.yaml --format aiger [--binary]
//	cdcgen check --design top.yaml [--depth N]
//
// Every flag can also be set in a .cdcgen.yaml file in the current directory
// or with a CDCGEN_ prefixed environment variable, like CDCGEN_ASYNC_REG=true.
//
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
