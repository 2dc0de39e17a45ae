package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// viridis palette for visual maps, low support to high support.
var visualMapColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// RenderFrameChart writes an HTML scatter of consensus box centroids,
// colored by the number of supporting raw rows. Empty-frame rows have no
// centroid and are reported in the subtitle instead.
func RenderFrameChart(w io.Writer, res *agg.FrameResult) error {
	data := make([]opts.ScatterData, 0, len(res.Rows))
	maxAbs := 0.0
	maxSupport := float64(0)
	empty := 0
	for _, r := range res.Rows {
		if r.Box == nil {
			empty++
			continue
		}
		x := r.Box.X + r.Box.W/2
		y := r.Box.Y + r.Box.H/2
		if x > maxAbs {
			maxAbs = x
		}
		if y > maxAbs {
			maxAbs = y
		}

		support := float64(len(r.Rows))
		if support > maxSupport {
			maxSupport = support
		}

		data = append(data, opts.ScatterData{Value: []interface{}{x, y, support}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	if maxSupport == 0 {
		maxSupport = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Consensus Boxes", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Consensus Box Centroids", Subtitle: fmt.Sprintf("run=%s boxes=%d empty=%d", res.Summary.RunID, len(data), empty)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: pad, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: pad, Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSupport),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: visualMapColors},
		}),
	)

	scatter.AddSeries("consensus", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	return scatter.Render(w)
}

// RenderClipChart writes an HTML bar chart of consensus rows per species
// label.
func RenderClipChart(w io.Writer, res *agg.ClipResult) error {
	counts := make(map[string]int)
	for _, r := range res.Rows {
		counts[r.Label]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	y := make([]opts.BarData, 0, len(labels))
	for _, label := range labels {
		y = append(y, opts.BarData{Value: counts[label]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Species Consensus", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Consensus Rows per Species", Subtitle: fmt.Sprintf("run=%s rows=%d", res.Summary.RunID, len(res.Rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("clips", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// RenderSummaryChart writes an HTML bar chart of the run counters.
func RenderSummaryChart(w io.Writer, s agg.Summary) error {
	x := []string{"Classifications", "Malformed", "Missing subjects", "Type mismatched", "Subjects seen", "Rows flattened", "Rows retained", "Rows out"}
	y := []opts.BarData{
		{Value: s.Classifications},
		{Value: s.Malformed},
		{Value: s.MissingSubjects},
		{Value: s.TypeMismatched},
		{Value: s.SubjectsSeen},
		{Value: s.RowsFlattened},
		{Value: s.RowsRetained},
		{Value: s.RowsOut},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Run Summary", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Aggregation Run", Subtitle: fmt.Sprintf("run=%s type=%s", s.RunID, s.SubjectType)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("summary", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}
