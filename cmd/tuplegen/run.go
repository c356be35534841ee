package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jiayi-1994/tuplegen/pkg/logging"
	"github.com/jiayi-1994/tuplegen/pkg/metrics"
	"github.com/jiayi-1994/tuplegen/pkg/stateless"
	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
)

// runOptions contains the flags of the run command
type runOptions struct {
	layoutOptions

	PPS            float64
	ReleasePorts   bool
	Print          bool
	Metrics        bool
	MetricsAddress string
}

func newRunCommand(a *app, setup func(*cobra.Command, []string) error) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate tuples on every core and print a summary",
		Long: `Run configures one generator per core, drives them according to the
configured stream mode and prints per-core counters when every core is done.
Interrupting a continuous run stops it normally.`,
		Args:    cobra.NoArgs,
		PreRunE: setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.apply(cmd, a); err != nil {
				return err
			}
			return runTuples(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}
	opts.layoutOptions.register(cmd)
	cmd.Flags().Float64Var(&opts.PPS, "pps", 0, "Tuples per second across all cores, 0 for unpaced (overrides run.stream.pps)")
	cmd.Flags().BoolVar(&opts.ReleasePorts, "release-ports", false, "Free every tuple's ports once emitted (overrides run.releasePorts)")
	cmd.Flags().BoolVar(&opts.Print, "print", false, "Print every generated tuple")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "Serve Prometheus metrics during the run (overrides metrics.enabled)")
	cmd.Flags().StringVar(&opts.MetricsAddress, "metrics-address", "", "Metrics listen address (overrides metrics.address)")
	return cmd
}

func (o *runOptions) apply(cmd *cobra.Command, a *app) error {
	if err := o.layoutOptions.apply(cmd, a); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("pps") {
		a.cfg.Run.Stream.PPS = o.PPS
		if err := a.cfg.Run.Stream.Validate(); err != nil {
			return err
		}
	}
	if flags.Changed("release-ports") {
		a.cfg.Run.ReleasePorts = o.ReleasePorts
	}
	if flags.Changed("metrics") {
		a.cfg.Metrics.Enabled = o.Metrics
	}
	if flags.Changed("metrics-address") {
		a.cfg.Metrics.Address = o.MetricsAddress
	}
	return nil
}

// printSink writes one line per tuple.
func printSink(w io.Writer) stateless.Sink {
	var mu sync.Mutex
	return stateless.SinkFunc(func(core int, t tuplegen.Tuple) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(w, "%d\t%s\n", core, t.String())
		return err
	})
}

func runTuples(ctx context.Context, a *app, opts *runOptions, out io.Writer) error {
	log := logging.FromContext(ctx)
	defer func() { _ = log.Sync() }()

	var sink stateless.Sink
	if opts.Print {
		sink = printSink(out)
	}
	sc := stateless.New(a.cfg, sink, stateless.WithLogger(log))
	if err := sc.Configure(); err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	defer func() {
		if err := sc.Destroy(); err != nil {
			log.Error(err, "Failed to destroy context")
		}
	}()

	if !a.cfg.Metrics.Enabled {
		if err := sc.Run(ctx); err != nil {
			return err
		}
		return printSummary(out, sc.Stats())
	}

	metrics.Register()
	g, gctx := errgroup.WithContext(ctx)
	mctx, stopMetrics := context.WithCancel(gctx)
	defer stopMetrics()

	g.Go(func() error {
		err := metrics.ListenAndServe(mctx, a.cfg.Metrics.Address, log)
		if mctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer stopMetrics()
		return sc.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return printSummary(out, sc.Stats())
}

func printSummary(w io.Writer, stats stateless.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CORE\tSOCKET\tCLIENTS\tGENERATED\tERRORS\tFREED\tBURSTS\tPORTS IN USE\tRATE")
	row := func(name string, c stateless.CoreStats) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			name, socketLabel(c.Socket),
			humanize.Comma(int64(c.Clients)),
			humanize.Comma(int64(c.Generated)),
			humanize.Comma(int64(c.Errors)),
			humanize.Comma(int64(c.Freed)),
			humanize.Comma(int64(c.Bursts)),
			humanize.Comma(int64(c.PortsInUse)),
			rate(c.Generated, c.Duration))
	}
	for _, c := range stats.Cores {
		row(fmt.Sprint(c.Core), c)
	}
	row("total", stats.Totals())
	return tw.Flush()
}

func socketLabel(socket int) string {
	if socket < 0 {
		return "-"
	}
	return fmt.Sprint(socket)
}

func rate(n uint64, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return humanize.SIWithDigits(float64(n)/d.Seconds(), 2, "/s")
}
