package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

func newSplitCommand(a *app, setup func(*cobra.Command, []string) error) *cobra.Command {
	layout := &layoutOptions{}
	cmd := &cobra.Command{
		Use:     "split",
		Short:   "Print the client and server portion served by every core",
		Args:    cobra.NoArgs,
		PreRunE: setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := layout.apply(cmd, a); err != nil {
				return err
			}

			info, err := normalized(a)
			if err != nil {
				return err
			}
			dual := a.cfg.TupleGen.DualInterface
			portions, err := tuplegen.SplitAll(a.cfg.Run.Cores, dual, info)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CORE\tSOCKET\tCLIENTS\tSERVERS\tCLIENT RANGE\tSERVER RANGE")
			for core, p := range portions {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s - %s\t%s - %s\n",
					core, tuplegen.SocketOf(core, dual),
					humanize.Comma(int64(p.Clients())), humanize.Comma(int64(p.Servers())),
					util.FormatIPv4(p.ClientStart), util.FormatIPv4(p.ClientEnd),
					util.FormatIPv4(p.ServerStart), util.FormatIPv4(p.ServerEnd))
			}
			return tw.Flush()
		},
	}
	layout.register(cmd)
	return cmd
}
