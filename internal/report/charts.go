// Package report renders parameter reports and geometry previews for
// augmentation pipelines: an HTML page of per-transform histograms and
// apply rates built from sampled ledgers, and a PNG overlay of box and
// keypoint positions before and after a pass.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/tessellate-ml/augment/internal/augment"
)

const histogramBins = 30

// maxParamValues caps the values kept per parameter. Noise fields carry
// one value per pixel, so a run of passes can reach millions.
const maxParamValues = 50000

// Charts accumulates sampled ledgers and renders them as an HTML report:
// one bar chart of apply rates across all transforms, then a histogram
// per recorded parameter, grouped by the transform's position in the
// pipeline (e.g. "Sequential_0/ColorJitter_0").
type Charts struct {
	passes int
	order  []string
	groups map[string]*groupStats
}

type groupStats struct {
	applied int
	total   int
	params  map[string][]float64
}

// NewCharts returns an empty collector.
func NewCharts() *Charts {
	return &Charts{groups: make(map[string]*groupStats)}
}

// Len returns the number of ledgers added.
func (c *Charts) Len() int { return c.passes }

// Add folds one ledger into the collected statistics.
func (c *Charts) Add(led augment.Ledger) {
	c.passes++
	c.walk("", led.Items)
}

func (c *Charts) walk(prefix string, items []augment.ParamItem) {
	for _, item := range items {
		path := item.Name
		if prefix != "" {
			path = prefix + "/" + item.Name
		}
		if len(item.Items) > 0 {
			c.walk(path, item.Items)
		}
		if item.Data == nil {
			continue
		}

		g := c.groups[path]
		if g == nil {
			g = &groupStats{params: make(map[string][]float64)}
			c.groups[path] = g
			c.order = append(c.order, path)
		}
		for name, values := range item.Data {
			if name == "batch_prob" {
				g.total += len(values)
				for _, v := range values {
					if v != 0 {
						g.applied++
					}
				}
				continue
			}
			if room := maxParamValues - len(g.params[name]); room > 0 {
				if len(values) > room {
					values = values[:room]
				}
				g.params[name] = append(g.params[name], values...)
			}
		}
	}
}

// SaveHTML renders the report into a file.
func (c *Charts) SaveHTML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := c.WriteHTML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteHTML renders the report to w.
func (c *Charts) WriteHTML(w io.Writer) error {
	if c.passes == 0 {
		return fmt.Errorf("no ledgers collected")
	}

	page := components.NewPage()
	page.AddCharts(c.applyRateBar())

	for _, path := range c.order {
		g := c.groups[path]

		var names []string
		for name := range g.params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := g.params[name]
			if len(values) == 0 {
				continue
			}
			page.AddCharts(histogramChart(path, name, values))
		}
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// applyRateBar charts the fraction of batch elements each transform
// actually touched, in pipeline order.
func (c *Charts) applyRateBar() *charts.Bar {
	x := make([]string, 0, len(c.order))
	y := make([]opts.BarData, 0, len(c.order))
	for _, path := range c.order {
		g := c.groups[path]
		if g.total == 0 {
			continue
		}
		rate := float64(g.applied) / float64(g.total) * 100
		x = append(x, path)
		y = append(y, opts.BarData{Value: math.Round(rate*10) / 10})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Augmentation Parameters", Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Apply Rate (%)", Subtitle: fmt.Sprintf("passes=%d", c.passes)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("applied", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// histogramChart bins one parameter's observed values into a bar chart.
func histogramChart(path, param string, values []float64) *charts.Bar {
	labels, counts := histogram(values, histogramBins)

	y := make([]opts.BarData, len(counts))
	for i, n := range counts {
		y[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: path, Subtitle: fmt.Sprintf("%s (%d values)", param, len(values))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(param, y)
	return bar
}

// histogram bins values into at most bins buckets and returns the bucket
// center labels with the counts. All values equal collapses to one bucket.
func histogram(values []float64, bins int) ([]string, []int) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return []string{fmt.Sprintf("%.4g", lo)}, []int{len(values)}
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.4g", lo+width*(float64(i)+0.5))
	}
	return labels, counts
}
