package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// layoutOptions override the core layout of the configuration
type layoutOptions struct {
	Cores int
	Dual  bool
}

func (o *layoutOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Cores, "cores", 0, "Number of worker cores (overrides run.cores)")
	cmd.Flags().BoolVar(&o.Dual, "dual-interface", false, "Place odd cores on the second interface (overrides tupleGen.dualInterface)")
}

// apply copies the flags that were set on cmd into a.cfg.
func (o *layoutOptions) apply(cmd *cobra.Command, a *app) error {
	if cmd.Flags().Changed("cores") {
		if o.Cores < 1 {
			return fmt.Errorf("invalid --cores: %d (must be >= 1)", o.Cores)
		}
		a.cfg.Run.Cores = o.Cores
	}
	if cmd.Flags().Changed("dual-interface") {
		a.cfg.TupleGen.DualInterface = o.Dual
	}
	return nil
}

// normalized returns the configured ranges normalized for the core layout.
func normalized(a *app) (tuplegen.YamlInfo, error) {
	info, err := a.cfg.YamlInfo()
	if err != nil {
		return info, err
	}
	if _, err := info.Normalize(a.cfg.Run.Cores, a.cfg.TupleGen.DualInterface); err != nil {
		return info, err
	}
	return info, nil
}

func newValidateCommand(a *app, setup func(*cobra.Command, []string) error) *cobra.Command {
	layout := &layoutOptions{}
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Normalize the configured ranges and report the adjusted server range",
		Args:    cobra.NoArgs,
		PreRunE: setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := layout.apply(cmd, a); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			info, err := normalized(a)
			if err != nil {
				return err
			}
			info.Dump(out)

			configured, err := util.ParseIPv4(a.cfg.TupleGen.ServerEnd)
			if err != nil {
				return err
			}
			if configured != info.ServerEnd {
				fmt.Fprintf(out, "server end adjusted: %s -> %s\n",
					a.cfg.TupleGen.ServerEnd, util.FormatIPv4(info.ServerEnd))
			}

			if err := printMacTable(out, a); err != nil {
				return err
			}

			a.log.Info("Configuration is valid",
				"cores", a.cfg.Run.Cores,
				"dualInterface", a.cfg.TupleGen.DualInterface,
				"stream", a.cfg.Run.Stream.String())
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	layout.register(cmd)
	return cmd
}

// printMacTable prints the MAC table clients that fall in the client range.
func printMacTable(out io.Writer, a *app) error {
	clients, err := a.cfg.Clients()
	if err != nil || clients == nil {
		return err
	}
	table, err := a.cfg.MacTable()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "mac table: %d clients in range\n", len(clients))
	for _, ip := range clients {
		mac, _ := table.Lookup(ip)
		fmt.Fprintf(out, "  %s %s\n", util.FormatIPv4(ip), mac)
	}
	return nil
}
