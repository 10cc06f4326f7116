package main

import (
	"github.com/YuminosukeSato/glsfit/config"
	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"github.com/YuminosukeSato/glsfit/stats"
	"github.com/spf13/cobra"
)

type yuleWalkerOptions struct {
	configPath string
	format     string
	order      int
	method     string
	df         int
	inverse    bool
}

type yuleWalkerReport struct {
	Order   int              `json:"order" yaml:"order"`
	Method  string           `json:"method" yaml:"method"`
	Rho     []float64        `json:"rho" yaml:"rho"`
	Sigma   linear.Statistic `json:"sigma" yaml:"sigma"`
	Autocov []float64        `json:"autocov" yaml:"autocov"`
	Inverse [][]float64      `json:"inverse,omitempty" yaml:"inverse,omitempty"`
}

func newYuleWalkerCmd(root *rootOptions) *cobra.Command {
	opts := &yuleWalkerOptions{}

	cmd := &cobra.Command{
		Use:     "yule-walker",
		Aliases: []string{"yw"},
		Short:   "Estimate AR(p) parameters of a series",
		Long: `Estimate AR(p) parameters of the job's series (or response) with the
Yule-Walker equations.

Examples:
  glsfit yule-walker --config series.yaml --order 2
  glsfit yw --config series.yaml --order 2 --method mle --df 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runYuleWalker(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML job")
	flags.StringVarP(&opts.format, "format", "f", formatJSON, "output format (json or yaml)")
	flags.IntVarP(&opts.order, "order", "p", 1, "AR order")
	flags.StringVarP(&opts.method, "method", "m", string(stats.MethodUnbiased), "autocovariance method (unbiased or mle)")
	flags.IntVar(&opts.df, "df", 0, "effective sample size; 0 uses the series length")
	flags.BoolVar(&opts.inverse, "inverse", false, "also print the inverse Toeplitz matrix")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runYuleWalker(cmd *cobra.Command, root *rootOptions, opts *yuleWalkerOptions) error {
	job, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := setupLogging(cmd, root, job.LogLevel); err != nil {
		return err
	}

	ywOpts := []stats.YuleWalkerOption{
		stats.WithMethod(stats.Method(opts.method)),
		stats.WithDF(opts.df),
		stats.WithLogger(log.GetLogger().With(log.ComponentKey, "cli")),
	}
	if opts.inverse {
		ywOpts = append(ywOpts, stats.WithInverse())
	}

	res, err := stats.YuleWalker(job.SeriesData(), opts.order, ywOpts...)
	if err != nil {
		return err
	}

	report := yuleWalkerReport{
		Order:   opts.order,
		Method:  string(res.Method),
		Rho:     res.Rho,
		Sigma:   linear.Statistic(res.Sigma),
		Autocov: res.Autocov,
	}
	if res.Inverse != nil {
		r, _ := res.Inverse.Dims()
		for i := 0; i < r; i++ {
			report.Inverse = append(report.Inverse, res.Inverse.RawRowView(i))
		}
	}
	return writeDocument(cmd.OutOrStdout(), opts.format, report)
}
