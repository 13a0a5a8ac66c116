// Package plot renders PNG distribution charts for a cleaned dataset.
package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/stats"
)

const (
	chartWidth  = 900
	chartHeight = 450
)

// Distributions renders one chart per numeric column into plotsDir: a value
// count bar chart for discrete columns, a histogram otherwise. missing maps
// column names to their pre-imputation missing counts for the dataset-level
// missing values chart. Returns the chart file names relative to plotsDir.
func Distributions(ds *dataset.Dataset, missing map[string]int, pipe config.PipelineConfig, plotsDir string) ([]string, error) {
	if err := os.MkdirAll(plotsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating plots directory: %w", err)
	}

	var written []string
	for _, col := range ds.NumericColumns() {
		vals := col.ValidFloats()
		if len(vals) == 0 {
			continue
		}

		name := fmt.Sprintf("%s_distribution.png", sanitizeName(col.Name))
		path := filepath.Join(plotsDir, name)

		var err error
		if stats.UniqueCount(col) <= pipe.DiscreteCutoff {
			err = renderCountPlot(col, path)
		} else {
			err = renderHistogram(col, vals, pipe.HistogramMaxBins, path)
		}
		if err != nil {
			// One bad chart should not sink the analysis; skip and continue.
			continue
		}
		written = append(written, name)
	}

	// Dataset-level missing values chart, only when something was missing.
	if name, err := renderMissingChart(ds, missing, plotsDir); err == nil && name != "" {
		written = append(written, name)
	}

	return written, nil
}

// renderHistogram renders a binned histogram with mean and median noted in
// the title.
func renderHistogram(col *dataset.Column, vals []float64, maxBins int, path string) error {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	bins := maxBins
	if u := stats.UniqueCount(col); u < bins {
		bins = u
	}
	if bins < 1 {
		bins = 1
	}

	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}

	counts := make([]int, bins)
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	bars := make([]chart.Value, bins)
	for i, n := range counts {
		bars[i] = chart.Value{
			Value: float64(n),
			Label: dataset.FormatFloat(lo + (float64(i)+0.5)*width),
		}
	}

	mean := meanOf(vals)
	median := stats.MedianOf(vals)
	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s distribution (mean %s, median %s)", col.Name, dataset.FormatFloat(mean), dataset.FormatFloat(median)),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth(bins),
		Bars:     bars,
	}

	return renderPNG(&graph, path)
}

// renderCountPlot renders a bar per distinct value for discrete columns.
func renderCountPlot(col *dataset.Column, path string) error {
	counts := make(map[string]int)
	for i := range col.Raw {
		if col.Missing[i] {
			continue
		}
		counts[dataset.FormatFloat(col.Floats[i])]++
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	bars := make([]chart.Value, 0, len(labels))
	for _, l := range labels {
		bars = append(bars, chart.Value{Value: float64(counts[l]), Label: l})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s value counts", col.Name),
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth(len(bars)),
		Bars:     bars,
	}

	return renderPNG(&graph, path)
}

// renderMissingChart renders a bar per column showing missing cell counts
// before imputation. Returns "" when nothing was missing.
func renderMissingChart(ds *dataset.Dataset, missing map[string]int, plotsDir string) (string, error) {
	var bars []chart.Value
	for _, col := range ds.Columns {
		if n := missing[col.Name]; n > 0 {
			bars = append(bars, chart.Value{Value: float64(n), Label: col.Name})
		}
	}
	if len(bars) == 0 {
		return "", nil
	}

	graph := chart.BarChart{
		Title:    "Missing values by column",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth(len(bars)),
		Bars:     bars,
	}

	name := "missing_values.png"
	if err := renderPNG(&graph, filepath.Join(plotsDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

func renderPNG(graph *chart.BarChart, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		os.Remove(path)
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

func barWidth(bars int) int {
	if bars <= 0 {
		bars = 1
	}
	w := (chartWidth - 100) / bars
	if w < 4 {
		w = 4
	}
	if w > 60 {
		w = 60
	}
	return w
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
