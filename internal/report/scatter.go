package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// SaveCentroidPlot writes a PNG scatter of consensus box centroids, one
// series per label. Empty-frame rows have no centroid and are skipped.
func SaveCentroidPlot(path string, res *agg.FrameResult) error {
	p := plot.New()
	p.Title.Text = "Consensus Box Centroids"
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"

	byLabel := make(map[string]plotter.XYs)
	for _, r := range res.Rows {
		if r.Box == nil {
			continue
		}
		cx := r.Box.X + r.Box.W/2
		cy := r.Box.Y + r.Box.H/2
		byLabel[r.Label] = append(byLabel[r.Label], plotter.XY{X: cx, Y: cy})
	}

	// Sort labels for a stable legend
	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	args := make([]interface{}, 0, 2*len(labels))
	for _, label := range labels {
		args = append(args, label, byLabel[label])
	}
	if len(args) > 0 {
		if err := plotutil.AddScatters(p, args...); err != nil {
			return fmt.Errorf("failed to add scatter series: %w", err)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save centroid plot: %w", err)
	}
	return nil
}
