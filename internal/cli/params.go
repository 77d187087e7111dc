package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tessellate-ml/augment/internal/config"
	"github.com/tessellate-ml/augment/internal/report"
)

type paramsOpts struct {
	output  string
	samples int
	batch   int
	height  int
	width   int
}

func newParamsCmd() *cobra.Command {
	var opts paramsOpts

	cmd := &cobra.Command{
		Use:   "params <pipeline.toml>",
		Short: "Sample parameter draws and render them as an HTML report",
		Long:  `params draws fresh parameter ledgers against a synthetic batch shape, without touching any tensors, and renders apply rates and per-parameter histograms as a self-contained HTML page.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "params.html", "output HTML path")
	cmd.Flags().IntVarP(&opts.samples, "samples", "n", 200, "number of ledgers to sample")
	cmd.Flags().IntVar(&opts.batch, "batch", 8, "synthetic batch size")
	cmd.Flags().IntVar(&opts.height, "height", 64, "synthetic image height")
	cmd.Flags().IntVar(&opts.width, "width", 64, "synthetic image width")

	return cmd
}

func runParams(ctx context.Context, path string, opts *paramsOpts) error {
	logger := loggerFromContext(ctx)

	spec, err := config.Load(path)
	if err != nil {
		return err
	}
	p, err := spec.Build()
	if err != nil {
		return err
	}

	shape := canonicalShape(opts.batch, opts.height, opts.width, p.Video())
	logger.Debugf("sampling %d ledgers against shape %v", opts.samples, shape)

	charts := report.NewCharts()
	for i := 0; i < opts.samples; i++ {
		led, err := p.ForwardParameters(shape)
		if err != nil {
			return err
		}
		charts.Add(led)
	}

	if err := charts.SaveHTML(opts.output); err != nil {
		return err
	}
	logger.Infof("Wrote %s (%d ledgers)", opts.output, charts.Len())
	return nil
}
