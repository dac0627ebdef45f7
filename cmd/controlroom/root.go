package main

import (
	"github.com/couchcryptid/control-room/internal/config"
	"github.com/spf13/cobra"
)

type mode int

const (
	modeConsole mode = iota
	modeDashboard
)

// newRootCmd builds the CLI. Flags default to the values already loaded from
// the environment, so a flag only overrides when given.
func newRootCmd(cfg *config.Config) *cobra.Command {
	var showStatus bool

	root := &cobra.Command{
		Use:   "controlroom",
		Short: "Serial sensor monitor for the Villa Astrid control room",
		Long: `controlroom reads sensor frames of the form <source;tag;field;value>
from a serial line, keeps the latest temperature and humidity per sensor and
shows them either as console lines or as a full-screen dashboard.

Run without a subcommand for console output.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, modeConsole, runOptions{showStatus: showStatus})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.SerialPort, "port", "p", cfg.SerialPort, "serial device (SERIAL_PORT)")
	flags.IntVarP(&cfg.SerialBaud, "baud", "b", cfg.SerialBaud, "baud rate (SERIAL_BAUD)")
	flags.DurationVarP(&cfg.SerialReadTimeout, "timeout", "t", cfg.SerialReadTimeout, "serial read timeout (SERIAL_READ_TIMEOUT)")
	flags.BoolVar(&cfg.SerialHex, "hex", cfg.SerialHex, "log every received line as hex (SERIAL_HEX)")
	flags.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "sensor catalog TOML file, built-in set when empty (SENSOR_CATALOG)")
	flags.DurationVar(&cfg.StaleAfter, "stale-after", cfg.StaleAfter, "age after which a reading is outdated (STALE_AFTER)")
	flags.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "status refresh interval (REFRESH_INTERVAL)")
	flags.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "generate random frames instead of reading the port (SIMULATE)")
	flags.StringVar(&cfg.SnapshotPath, "snapshot", cfg.SnapshotPath, "JSON snapshot file, disabled when empty (SNAPSHOT_PATH)")

	root.Flags().BoolVar(&showStatus, "show-status", false, "append the status name to each console row")

	console := &cobra.Command{
		Use:   "console",
		Short: "Print the sensor table after every accepted frame",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, modeConsole, runOptions{showStatus: showStatus})
		},
	}
	console.Flags().BoolVar(&showStatus, "show-status", false, "append the status name to each row")

	dash := &cobra.Command{
		Use:   "dash",
		Short: "Show the full-screen dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, modeDashboard, runOptions{})
		},
	}
	dash.Flags().StringVar(&cfg.DisplayTitle, "title", cfg.DisplayTitle, "window title (DISPLAY_TITLE)")

	root.AddCommand(console, dash)
	return root
}
