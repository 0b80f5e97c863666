// Package cli holds the pieces shared by the uhubctl and uhubpwm commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/Thiagojm/uhubctl/hubctl"
)

// LogLevelEnv overrides the default log level when --log-level is not given.
const LogLevelEnv = "UHUBCTL_LOG_LEVEL"

// ErrReported is returned by commands that already told the user what
// went wrong.
var ErrReported = errors.New("reported")

// Version is set at link time.
var Version = "dev"

// AddLogFlags registers --log-level and --libusb-debug.
func AddLogFlags(f *pflag.FlagSet, level *string, libusbDebug *int) {
	f.StringVar(level, "log-level", "warn", "log level: debug, info, warn, error or fatal (env "+LogLevelEnv+")")
	f.IntVar(libusbDebug, "libusb-debug", 0, "libusb debug level 0 to 4")
}

// SetupLogging points the apex/log default logger at w. The cli handler is
// used on terminals, the text handler otherwise.
func SetupLogging(w *os.File, level string, flagSet bool) error {
	if env := os.Getenv(LogLevelEnv); env != "" && !flagSet {
		level = env
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	if isatty.IsTerminal(w.Fd()) {
		log.SetHandler(clihandler.New(w))
	} else {
		log.SetHandler(text.New(w))
	}
	log.SetLevel(lvl)
	return nil
}

// Seconds converts a flag value in seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

const permissionHint = `There were permission problems while accessing USB.
To fix this, run this tool as root using 'sudo uhubctl',
or add one or more udev rules like below
to file '/etc/udev/rules.d/52-usb.rules':
SUBSYSTEM=="usb", ATTR{idVendor}=="2001", MODE="0666"
then run 'sudo udevadm trigger --attr-match=subsystem=usb'
`

// ReportDiscover explains a Discover result that left nothing to act on
// and returns ErrReported. It returns nil when n is positive and err nil.
func ReportDiscover(w io.Writer, loc string, n int, err error) error {
	switch {
	case err == nil && n > 0:
		return nil
	case err != nil && !errors.Is(err, hubctl.ErrAccess):
		fmt.Fprintln(w, "Cannot enumerate USB devices!")
		log.WithError(err).Debug("discover failed")
		return ErrReported
	}
	at := ""
	if loc != "" {
		at = " at location " + loc
	}
	fmt.Fprintf(w, "No compatible smart hubs detected%s!\nRun with -h to get usage info.\n", at)
	if errors.Is(err, hubctl.ErrAccess) && runtime.GOOS == "linux" {
		fmt.Fprint(w, permissionHint)
	}
	return ErrReported
}

// Exit prints err unless it was already reported and exits non-zero.
func Exit(w io.Writer, err error) {
	if !errors.Is(err, ErrReported) {
		fmt.Fprintf(w, "Error: %v\nRun with -h to get usage info.\n", err)
	}
	os.Exit(1)
}
