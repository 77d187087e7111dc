package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessellate-ml/augment/internal/augment"
	"github.com/tessellate-ml/augment/internal/augment/container"
	"github.com/tessellate-ml/augment/internal/config"
	"github.com/tessellate-ml/augment/internal/geometry"
	"github.com/tessellate-ml/augment/internal/report"
	"github.com/tessellate-ml/augment/internal/tensor"
)

type previewOpts struct {
	output string
	batch  int
	height int
	width  int
}

func newPreviewCmd() *cobra.Command {
	var opts previewOpts

	cmd := &cobra.Command{
		Use:   "preview <pipeline.toml>",
		Short: "Run a synthetic batch through the pipeline and plot the geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "preview.png", "output PNG path")
	cmd.Flags().IntVar(&opts.batch, "batch", 2, "synthetic batch size")
	cmd.Flags().IntVar(&opts.height, "height", 256, "synthetic image height")
	cmd.Flags().IntVar(&opts.width, "width", 256, "synthetic image width")

	return cmd
}

func runPreview(ctx context.Context, path string, opts *previewOpts) error {
	logger := loggerFromContext(ctx)

	spec, err := config.Load(path)
	if err != nil {
		return err
	}
	p, err := spec.Build()
	if err != nil {
		return err
	}
	if p.Video() {
		return fmt.Errorf("preview renders still batches; video pipelines are not supported")
	}

	boxKey, hasBoxes := firstBoxKey(p.Keys())
	hasPoints := hasKey(p.Keys(), augment.KeyKeypoints)
	if !hasBoxes && !hasPoints {
		return fmt.Errorf("pipeline keys carry no geometry to preview; add bbox or keypoints")
	}

	shape := canonicalShape(opts.batch, opts.height, opts.width, false)
	ins, err := syntheticInputs(p.Keys(), shape)
	if err != nil {
		return err
	}
	logger.Debugf("forwarding synthetic batch %v through %d keys", shape, len(ins))

	res, err := p.Forward(ins)
	if err != nil {
		return err
	}

	data := report.PreviewData{Height: opts.height, Width: opts.width}
	if hasBoxes {
		before, _ := inputByKey(ins, boxKey)
		after, _ := res.Get(boxKey)
		if data.BoxesBefore, err = vertexBoxes(before, boxKey); err != nil {
			return err
		}
		if data.BoxesAfter, err = vertexBoxes(after, boxKey); err != nil {
			return err
		}
	}
	if hasPoints {
		data.PointsBefore, _ = inputByKey(ins, augment.KeyKeypoints)
		data.PointsAfter, _ = res.Get(augment.KeyKeypoints)
	}

	if err := report.SavePreview(opts.output, data); err != nil {
		return err
	}
	logger.Infof("Wrote %s", opts.output)
	return nil
}

func firstBoxKey(keys []augment.DataKey) (augment.DataKey, bool) {
	for _, k := range keys {
		if k.IsBox() {
			return k, true
		}
	}
	return 0, false
}

func hasKey(keys []augment.DataKey, want augment.DataKey) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func inputByKey(ins []container.Input, want augment.DataKey) (*tensor.Dense, bool) {
	for _, in := range ins {
		if in.Key == want {
			return in.T, true
		}
	}
	return nil, false
}

// vertexBoxes converts any box encoding to corner vertices for drawing.
func vertexBoxes(t *tensor.Dense, key augment.DataKey) (*tensor.Dense, error) {
	mode, ok := key.BoxMode()
	if !ok {
		return nil, fmt.Errorf("%s is not a box key", key)
	}
	bx, err := geometry.BoxesFromTensor(t, mode, 1)
	if err != nil {
		return nil, err
	}
	return bx.Data(), nil
}
