package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessellate-ml/augment/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pipeline.toml>",
		Short: "Check a pipeline definition and print what it resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
}

func runValidate(ctx context.Context, path string, out io.Writer) error {
	logger := loggerFromContext(ctx)

	spec, err := config.Load(path)
	if err != nil {
		return err
	}
	p, err := spec.Build()
	if err != nil {
		return err
	}

	keys := make([]string, len(p.Keys()))
	for i, k := range p.Keys() {
		keys[i] = k.String()
	}

	if spec.Pipeline.Name != "" {
		fmt.Fprintf(out, "pipeline: %s\n", spec.Pipeline.Name)
	}
	fmt.Fprintf(out, "keys:     %s\n", strings.Join(keys, ", "))
	fmt.Fprintf(out, "seed:     %d\n", spec.Pipeline.GetSeed())
	if p.Video() {
		fmt.Fprintln(out, "video:    clips run frame by frame under shared draws")
	}
	if g := spec.Pipeline.PatchGrid; len(g) == 2 {
		fmt.Fprintf(out, "patch:    %dx%d grid\n", g[0], g[1])
	}
	if n := spec.Pipeline.GetRandomApply(); n > 0 {
		fmt.Fprintf(out, "random:   apply %d of %d stages per pass\n", n, len(spec.Transforms))
	}
	if spec.Pipeline.GetRandomOrder() {
		fmt.Fprintln(out, "random:   shuffled stage order per pass")
	}
	if p.MixesLabels() {
		fmt.Fprintln(out, "labels:   mixed (pass labels to Forward)")
	}

	fmt.Fprintln(out, "stages:")
	for i, ts := range spec.Transforms {
		fmt.Fprintf(out, "  %2d. %-16s %s\n", i+1, ts.Type, transformSummary(&ts))
	}

	logger.Infof("%s is valid (%d stages)", path, len(spec.Transforms))
	return nil
}

// transformSummary lists the fields a stage sets explicitly; everything
// else runs on the transform's defaults.
func transformSummary(ts *config.TransformSpec) string {
	var parts []string
	addF := func(name string, v *float64) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%g", name, *v))
		}
	}
	addPair := func(name string, v []float64) {
		if len(v) == 2 {
			parts = append(parts, fmt.Sprintf("%s=[%g, %g]", name, v[0], v[1]))
		}
	}

	addF("brightness", ts.Brightness)
	addF("contrast", ts.Contrast)
	addF("saturation", ts.Saturation)
	addF("degrees", ts.Degrees)
	addPair("translate", ts.Translate)
	addPair("scale", ts.Scale)
	addPair("ratio", ts.Ratio)
	addPair("lambda", ts.Lambda)
	addF("mean", ts.Mean)
	addF("std", ts.Std)
	addF("value", ts.Value)
	addF("p", ts.P)
	if ts.SameOnBatch != nil && *ts.SameOnBatch {
		parts = append(parts, "same_on_batch")
	}
	if ts.Interp != nil {
		parts = append(parts, "interp="+*ts.Interp)
	}

	if len(parts) == 0 {
		return "(defaults)"
	}
	return strings.Join(parts, " ")
}
