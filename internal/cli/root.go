// Package cli wires the sizer command line.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "config/config.yaml"

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:           "sizer",
		Short:         "Size an ammonia-based CO2 capture flowsheet",
		Long:          "sizer drives a process simulator through the absorber and stripper sizing stages and records every evaluation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "Configuration file")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Override log format (json, text)")

	root.AddCommand(
		newRunCommand(opts),
		newHistoryCommand(opts),
		newPlotCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// load reads the configuration and installs the default logger.
func (o *Options) load(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	logger.SetDefault(logger.NewFormat(cfg.LogFormat, cfg.LogLevel, stderr))
	return cfg, nil
}
