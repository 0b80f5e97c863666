// Command uhubpwm toggles power on one port of a USB smart hub until
// interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/Thiagojm/uhubctl/hubctl"
	"github.com/Thiagojm/uhubctl/internal/cli"
	"github.com/Thiagojm/uhubctl/libusb"
)

type options struct {
	loc         string
	vendor      string
	port        int
	on          float64
	off         float64
	exact       bool
	logLevel    string
	libusbDebug int
}

func main() {
	var opts options
	if err := newRootCmd(&opts).Execute(); err != nil {
		cli.Exit(os.Stderr, err)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	def := hubctl.DefaultPWMRequest()
	cmd := &cobra.Command{
		Use:           "uhubpwm",
		Short:         "toggle USB port power on a smart hub until interrupted",
		Version:       cli.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.SetupLogging(os.Stderr, opts.logLevel, cmd.Flags().Changed("log-level")); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), *opts)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&opts.loc, "loc", "l", "", "limit hub by location [all smart hubs]")
	f.StringVarP(&opts.vendor, "vendor", "n", "", "limit hub by vendor id, partial ok [any]")
	f.IntVarP(&opts.port, "port", "p", 0, "port to toggle")
	f.Float64VarP(&opts.on, "delay", "d", def.On.Seconds(), "time power stays on in each cycle, in seconds")
	f.Float64Var(&opts.off, "off", def.Off.Seconds(), "time power stays off in each cycle, in seconds")
	f.BoolVarP(&opts.exact, "exact", "e", false, "exact location (no USB3 duality handling)")
	cli.AddLogFlags(f, &opts.logLevel, &opts.libusbDebug)
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

func (o options) request() hubctl.PWMRequest {
	return hubctl.PWMRequest{On: cli.Seconds(o.on), Off: cli.Seconds(o.off)}
}

func run(ctx context.Context, stdout, stderr io.Writer, opts options) error {
	lopts := libusb.DefaultOptions()
	lopts.Debug = opts.libusbDebug
	t, err := libusb.Open(lopts)
	if err != nil {
		fmt.Fprintln(stderr, "Error initializing USB!")
		log.WithError(err).Debug("libusb init failed")
		return cli.ErrReported
	}
	s := hubctl.NewSession(t, hubctl.DefaultConfig())
	defer s.Close()

	n, err := s.Discover(hubctl.Filter{Location: opts.loc, Vendor: opts.vendor, Exact: opts.exact})
	if err := cli.ReportDiscover(stderr, opts.loc, n, err); err != nil {
		return err
	}

	hub := s.Actionable()[0]
	fmt.Fprintf(stdout, "Toggling power on hub %s [%s] port %d, press Ctrl+C to stop...\n",
		hub.Location, hub.Description, opts.port)
	cycles, err := s.PWM(ctx, opts.port, opts.request())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Stopped after %d cycles, port %d left powered\n", cycles, opts.port)
	return nil
}
