// Command uhubctl shows and controls per-port power of USB smart hubs.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/Thiagojm/uhubctl/hubctl"
	"github.com/Thiagojm/uhubctl/internal/cli"
	"github.com/Thiagojm/uhubctl/libusb"
	"github.com/Thiagojm/uhubctl/report"
)

type options struct {
	loc         string
	vendor      string
	ports       string
	action      string
	delay       float64
	repeat      int
	wait        int
	exact       bool
	reset       bool
	tty         bool
	export      string
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
	def := hubctl.DefaultRequest()
	cmd := &cobra.Command{
		Use:   "uhubctl",
		Short: "utility to control USB port power for smart hubs",
		Long: "uhubctl controls USB port power for smart hubs.\n" +
			"Without options, show status for all smart hubs.",
		Version:       cli.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.SetupLogging(os.Stderr, opts.logLevel, cmd.Flags().Changed("log-level")); err != nil {
				return err
			}
			return run(cmd.OutOrStdout(), cmd.ErrOrStderr(), *opts)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&opts.action, "action", "a", "", "action to off/on/cycle (0/1/2) for affected ports")
	f.StringVarP(&opts.ports, "ports", "p", "all", "ports to operate on, e.g. 124 or 1,2,10")
	f.StringVarP(&opts.loc, "loc", "l", "", "limit hub by location [all smart hubs]")
	f.StringVarP(&opts.vendor, "vendor", "n", "", "limit hub by vendor id, partial ok [any]")
	f.Float64VarP(&opts.delay, "delay", "d", def.Delay.Seconds(), "delay for cycle action in seconds")
	f.IntVarP(&opts.repeat, "repeat", "r", def.Repeat, "repeat power off count (some devices need it to turn off)")
	f.IntVarP(&opts.wait, "wait", "w", int(def.Wait.Milliseconds()), "wait before repeat power off in ms")
	f.BoolVarP(&opts.exact, "exact", "e", false, "exact location (no USB3 duality handling)")
	f.BoolVarP(&opts.reset, "reset", "R", false, "reset hub after each power-on action, causing all devices to reassociate")
	f.BoolVar(&opts.tty, "tty", false, "show serial ports of attached devices")
	f.StringVar(&opts.export, "export", "", "write an xlsx inventory of all hubs to `file`")
	cli.AddLogFlags(f, &opts.logLevel, &opts.libusbDebug)
	return cmd
}

func (o options) request() (hubctl.Request, error) {
	req := hubctl.DefaultRequest()
	var err error
	if req.Ports, err = hubctl.ParsePorts(o.ports); err != nil {
		return req, err
	}
	if req.Action, err = hubctl.ParseAction(o.action); err != nil {
		return req, err
	}
	req.Delay = cli.Seconds(o.delay)
	req.Repeat = o.repeat
	req.Wait = time.Duration(o.wait) * time.Millisecond
	req.Reset = o.reset
	return req, nil
}

func run(stdout, stderr io.Writer, opts options) error {
	req, err := opts.request()
	if err != nil {
		return err
	}

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

	var tty report.TTYIndex
	if opts.tty {
		if tty, err = report.LoadTTYIndex(); err != nil {
			log.WithError(err).Warn("cannot list serial ports")
		}
	}

	p := printer{w: stdout, errw: stderr, s: s, ports: req.Ports, tty: tty}
	if req.Action == hubctl.ActionKeep {
		for _, hub := range s.Actionable() {
			p.hub("Current", hub)
		}
	} else {
		_, err := s.Run(req, hubctl.Hooks{
			BeforePass:  func(hub *hubctl.Hub, _ hubctl.Pass) { p.hub("Current", hub) },
			AfterPass:   p.afterPass,
			BeforeReset: p.beforeReset,
			AfterReset:  p.afterReset,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v.\nUse -l to limit operation to one hub!\n", err)
			return cli.ErrReported
		}
	}

	if opts.export != "" {
		return export(opts.export, s, tty)
	}
	return nil
}

type printer struct {
	w     io.Writer
	errw  io.Writer
	s     *hubctl.Session
	ports hubctl.PortMask
	tty   report.TTYIndex
}

func (p printer) hub(which string, hub *hubctl.Hub) {
	fmt.Fprintf(p.w, "%s status for hub %s [%s]\n", which, hub.Location, hub.Description)
	if err := report.Status(p.w, p.s, hub, p.ports, p.tty); err != nil {
		log.WithField("location", hub.Location).WithError(err).Warn("cannot read port status")
	}
}

func (p printer) afterPass(res hubctl.PassResult) {
	if res.Err != nil {
		return
	}
	fmt.Fprintf(p.w, "Sent power %s request\n", res.Pass)
	p.hub("New", res.Hub)
}

func (p printer) beforeReset(*hubctl.Hub) {
	fmt.Fprintln(p.w, "Resetting hub...")
}

func (p printer) afterReset(_ *hubctl.Hub, err error) {
	if err != nil {
		fmt.Fprintf(p.errw, "Reset failed: %v\n", err)
		return
	}
	fmt.Fprintln(p.w, "Reset successful!")
}

func export(path string, s *hubctl.Session, tty report.TTYIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	if err := report.Export(f, report.Collect(s, tty, log.Log), libusb.VendorName); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export: %w", err)
	}
	log.WithField("file", path).Info("inventory written")
	return nil
}
