package main

import (
	"encoding/json"
	"io"

	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "glsfit",
		Short: "Whitening-based linear regression",
		Long: `glsfit estimates OLS, WLS, GLS and AR(p)-error regressions from a YAML job
and estimates AR parameters of a series with the Yule-Walker equations.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log_level in the job")

	cmd.AddCommand(newFitCmd(opts))
	cmd.AddCommand(newYuleWalkerCmd(opts))
	return cmd
}

// setupLogging configures the global logger. The flag wins over the job file.
func setupLogging(cmd *cobra.Command, opts *rootOptions, jobLevel string) error {
	level := opts.logLevel
	if level == "" {
		level = jobLevel
	}
	if level == "" {
		level = "warn"
	}
	return log.SetupLoggerTo(cmd.ErrOrStderr(), level)
}

func writeDocument(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.NewValidationError("format", "must be json or yaml", format)
	}
}
