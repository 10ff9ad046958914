// Package cmd implements the lxicapture command line using the cobra framework.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arloliu/go-lxi/capture"
	"github.com/arloliu/go-lxi/config"
	"github.com/arloliu/go-lxi/imaging"
	"github.com/spf13/cobra"
)

// flagKeys binds command-line flags to config keys.
var flagKeys = map[string]string{
	"port":           "port",
	"log-file":       "log.file",
	"log-level":      "log.level",
	"ready-deadline": "ready_deadline",
}

// rootFlags holds flag values that are not bound to a config key directly.
type rootFlags struct {
	configFile string
	noPing     bool
}

// Execute builds the root command and runs it.
// This is called by main.main().
// The capture is cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the lxicapture command. opts are passed to every capture,
// which lets tests replace the dialer or clock.
func newRootCmd(opts ...capture.Option) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "lxicapture [format] [host] [savePath]",
		Short: "Save a screen capture of a Rigol DS2202E oscilloscope over LAN",
		Long: `lxicapture connects to the SCPI socket of a Rigol DS2202E oscilloscope,
verifies the instrument identity and saves the current screen as an image.

Arguments, all optional and positional:
  format     image format of the saved file: ` + strings.Join(formatNames(), ", ") + `
  host       instrument IP address or host name
  savePath   directory the image is saved in, created if missing

The saved file is named MODEL_SERIAL_YYYY-MM-DD_HH.MM.SS.<format>.

Examples:
  lxicapture
  lxicapture png 192.168.44.174 captures/
  lxicapture bmp scope.lab.local /tmp/shots --ready-deadline 30s`,
		Args:          cobra.RangeArgs(0, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, "Warning - No command line parameters, using defaults")
			}

			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}

			return runCapture(cmd.Context(), cfg, out, opts...)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "YAML config file path")
	pf.IntP("port", "p", config.DefaultPort, "instrument SCPI port")
	pf.String("log-file", config.DefaultLogFile, "diagnostic log file; empty logs to stderr")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.Duration("ready-deadline", 0, "give up waiting for the instrument after this long; 0 waits forever")
	pf.BoolVar(&flags.noPing, "no-ping", false, "skip the ICMP reachability probe")

	rootCmd.AddCommand(newConfigCmd(flags))

	return rootCmd
}

// loadConfig layers the config file, environment, flags and positional
// arguments into a validated Config.
func loadConfig(cmd *cobra.Command, flags *rootFlags, args []string) (config.Config, error) {
	overrides := map[string]any{}

	if len(args) > 0 {
		f, err := imaging.ParseFormat(args[0])
		if err != nil {
			printUnsupportedFormat(cmd.ErrOrStderr(), cmd, args[0])
			return config.Config{}, err
		}
		overrides["format"] = string(f)
	}
	if len(args) > 1 {
		overrides["host"] = args[1]
	}
	if len(args) > 2 {
		overrides["save_path"] = args[2]
	}
	if flags.noPing {
		overrides["ping"] = false
	}

	return config.Load(config.Source{
		File:      flags.configFile,
		Flags:     cmd.Root().PersistentFlags(),
		FlagKeys:  flagKeys,
		Overrides: overrides,
	})
}

func printUnsupportedFormat(w io.Writer, cmd *cobra.Command, format string) {
	fmt.Fprint(w, cmd.UsageString())
	fmt.Fprintf(w, "This file type is not supported: %s\n", format)
}

func formatNames() []string {
	names := make([]string, 0, len(imaging.Formats))
	for _, f := range imaging.Formats {
		names = append(names, f.String())
	}

	return names
}
