// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/db47h/hwcdc"
	"github.com/db47h/hwcdc/backend/aig"
	"github.com/db47h/hwcdc/backend/verilog"
	"github.com/db47h/hwcdc/cdc"
	"github.com/db47h/hwcdc/internal/design"
	"github.com/db47h/hwcdc/verify"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "CDCGEN"

type app struct {
	v   *viper.Viper
	zl  *zap.Logger
	log logr.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logr.Discard()}
	root := &cobra.Command{
		Use:               "cdcgen",
		Short:             "Clock domain crossing synchronizer generator",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.zl != nil {
				_ = a.zl.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .cdcgen.yaml in the current directory)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("design", "", "design file (YAML)")
	platformFlags(pf)

	root.AddCommand(a.emitCmd(), a.checkCmd())
	return root
}

func platformFlags(fs *pflag.FlagSet) {
	fs.Bool("async-reg", false, "tag synchronizer stages with ASYNC_REG attributes")
	fs.String("sync-cell", "", "replace FF synchronizers with instances of the given vendor cell")
}

// setup binds flags, environment and config file, then builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v := a.v
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := v.GetString("config")
	if cfg != "" {
		v.SetConfigFile(cfg)
	} else {
		v.SetConfigName(".cdcgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if cfg != "" || !errors.As(err, &nf) {
			return errors.Wrap(err, "read config")
		}
	}

	lvl, err := zapcore.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	if a.zl, err = zc.Build(); err != nil {
		return errors.Wrap(err, "logger")
	}
	a.log = zapr.NewLogger(a.zl)
	if f := v.ConfigFileUsed(); f != "" {
		a.log.V(1).Info("config loaded", "file", f)
	}
	return nil
}

func (a *app) platform() *verilog.Platform {
	opts := []verilog.Option{verilog.AsyncReg(a.v.GetBool("async-reg"))}
	if cell := a.v.GetString("sync-cell"); cell != "" {
		opts = append(opts, verilog.SyncCell(cell))
	}
	return verilog.New(opts...)
}

func (a *app) load() (*design.Design, error) {
	path := a.v.GetString("design")
	if path == "" {
		return nil, errors.New("no design file, use --design")
	}
	d, err := design.Load(path)
	if err != nil {
		return nil, err
	}
	a.log.V(1).Info("design loaded", "file", path, "name", d.Name,
		"signals", len(d.Signals), "synchronizers", len(d.Synchronizers))
	return d, nil
}

func (a *app) emitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Elaborate a design and write it as Verilog, SDC or AIGER",
		Args:  cobra.NoArgs,
		RunE:  a.emit,
	}
	fs := cmd.Flags()
	fs.StringP("format", "f", "verilog", "output format: verilog, sdc or aiger")
	fs.Bool("binary", false, "binary AIGER output")
	fs.StringP("output", "o", "", "output file (default standard output)")
	return cmd
}

func (a *app) emit(cmd *cobra.Command, _ []string) (err error) {
	format := a.v.GetString("format")
	switch format {
	case "verilog", "sdc", "aiger":
	default:
		return errors.Errorf("unknown format %q", format)
	}
	d, err := a.load()
	if err != nil {
		return err
	}
	p := a.platform()
	des, err := hwcdc.Elaborate(d.Top, p, hwcdc.WithName(d.Name), hwcdc.WithLogger(a.log))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if path := a.v.GetString("output"); path != "" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return errors.Wrap(ferr, "create output")
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		w = f
	}

	switch format {
	case "verilog":
		err = verilog.Write(w, des, d.Outputs...)
	case "sdc":
		err = verilog.WriteSDC(w, des)
	case "aiger":
		var m *aig.Model
		if m, err = aig.Build(des); err == nil {
			err = m.WriteAiger(w, a.v.GetBool("binary"), d.Outputs...)
		}
	}
	if err == nil {
		a.log.Info("design emitted", "design", d.Name, "format", format, "platform", p.Name(),
			"signals", len(des.Signals()), "registers", len(des.Registers()))
	}
	return err
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Formally check the synchronizers of a design",
		Args:  cobra.NoArgs,
		RunE:  a.check,
	}
	cmd.Flags().Int("depth", 0, "search depth in simulation steps (default 2*stages+4)")
	return cmd
}

func (a *app) check(cmd *cobra.Command, _ []string) error {
	d, err := a.load()
	if err != nil {
		return err
	}
	c := verify.Checker{Platform: a.platform(), Depth: a.v.GetInt("depth"), Log: a.log}
	out := cmd.OutOrStdout()
	var errs error
	for _, s := range d.Synchronizers {
		var r *verify.Report
		switch v := s.Value.(type) {
		case *cdc.FFSynchronizer:
			r, err = c.FF(v)
		case *cdc.AsyncFFSynchronizer:
			r, err = c.AsyncFF(v)
		case *cdc.ResetSynchronizer:
			r, err = c.Reset(v)
		default:
			fmt.Fprintf(out, "%s: skipped, no check for %s synchronizers\n", s.Name, s.Kind)
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "%s: FAIL: %v\n", s.Name, err)
			errs = multierr.Append(errs, errors.WithMessage(err, s.Name))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", s.Name, r)
	}
	return errs
}
