package main

import (
	"github.com/YuminosukeSato/glsfit/ar"
	"github.com/YuminosukeSato/glsfit/config"
	"github.com/YuminosukeSato/glsfit/diagnostics"
	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"github.com/spf13/cobra"
)

type fitOptions struct {
	configPath string
	format     string
	plotPath   string
	rhoPlot    string
}

type arReport struct {
	Iterations int         `json:"iterations" yaml:"iterations"`
	Params     ar.Params   `json:"params" yaml:"params"`
	History    []ar.Params `json:"history" yaml:"history"`
}

type fitReport struct {
	linear.Summary `yaml:",inline"`
	AR             *arReport `json:"ar,omitempty" yaml:"ar,omitempty"`
}

func newFitCmd(root *rootOptions) *cobra.Command {
	opts := &fitOptions{}

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the model described by a job file",
		Long: `Fit the model described by a job file and print a summary.

Examples:
  glsfit fit --config job.yaml
  glsfit fit --config ar.yaml --format yaml --plot resid.png --rho-plot rho.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFit(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML job")
	flags.StringVarP(&opts.format, "format", "f", formatJSON, "output format (json or yaml)")
	flags.StringVar(&opts.plotPath, "plot", "", "write a residual plot to this file")
	flags.StringVar(&opts.rhoPlot, "rho-plot", "", "write the AR coefficient trace to this file (ar only)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runFit(cmd *cobra.Command, root *rootOptions, opts *fitOptions) error {
	job, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := setupLogging(cmd, root, job.LogLevel); err != nil {
		return err
	}
	logger := log.GetLogger().With(log.ComponentKey, "cli")

	var (
		res    *linear.Results
		report fitReport
	)

	if job.Model == config.ModelAR {
		f, err := job.Fitter(ar.WithLogger(logger))
		if err != nil {
			return err
		}
		out, err := f.FitFrom(job.DesignMatrix(), job.ResponseVector(), job.InitialParams())
		if err != nil {
			return err
		}
		res = out.Results
		report.AR = &arReport{
			Iterations: out.Iterations,
			Params:     out.Params,
			History:    out.History,
		}
		if opts.rhoPlot != "" && len(out.Params.Rho) > 0 {
			p, err := diagnostics.RhoTracePlot(out.History)
			if err != nil {
				return err
			}
			if err := diagnostics.Save(p, opts.rhoPlot); err != nil {
				return err
			}
		}
	} else {
		m, err := job.BuildModel(linear.WithLogger(logger))
		if err != nil {
			return err
		}
		res, err = m.Fit(job.ResponseVector())
		if err != nil {
			return err
		}
	}
	report.Summary = res.Summary()

	if opts.plotPath != "" {
		p, err := diagnostics.ResidualPlot(res)
		if err != nil {
			return err
		}
		if err := diagnostics.Save(p, opts.plotPath); err != nil {
			return err
		}
	}

	return writeDocument(cmd.OutOrStdout(), opts.format, report)
}
