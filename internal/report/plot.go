package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// ErrNoData is returned when a chart would have no points.
var ErrNoData = errors.New("no data to plot")

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var (
	seriesColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Series is one named line of a chart.
type Series struct {
	Name string
	X, Y []float64
}

// Chart is a line chart with an optional target band drawn as two
// horizontal lines.
type Chart struct {
	// Name is the file stem used by SaveStageCharts.
	Name   string
	Title  string
	XLabel string
	YLabel string
	Series []Series
	Band   *models.TargetBand
}

// SweepChart plots metric against the swept variable over the converged
// records of a sweep.
func SweepChart(stage string, records []models.Record, variable, metric string, band models.TargetBand) Chart {
	s := Series{Name: metric}
	for _, r := range records {
		if !r.Converged() {
			continue
		}
		x, okx := r.Input(variable)
		y, oky := r.Metric(metric)
		if okx && oky {
			s.X = append(s.X, x)
			s.Y = append(s.Y, y)
		}
	}
	return Chart{
		Name:   stage + "_" + metric,
		Title:  fmt.Sprintf("%s: %s vs %s", stage, metric, variable),
		XLabel: variable,
		YLabel: metric,
		Series: []Series{s},
		Band:   &band,
	}
}

// TrajectoryChart plots an input or metric against the iteration number.
// band may be nil.
func TrajectoryChart(stage string, records []models.Record, name string, band *models.TargetBand) Chart {
	s := Series{Name: name}
	for _, r := range records {
		v, ok := r.Input(name)
		if !ok {
			v, ok = r.Metric(name)
		}
		if ok {
			s.X = append(s.X, float64(r.Iteration))
			s.Y = append(s.Y, v)
		}
	}
	return Chart{
		Name:   stage + "_" + name,
		Title:  fmt.Sprintf("%s: %s", stage, name),
		XLabel: "iteration",
		YLabel: name,
		Series: []Series{s},
		Band:   band,
	}
}

// PlotSweep renders a SweepChart as PNG.
func PlotSweep(w io.Writer, stage string, records []models.Record, variable, metric string, band models.TargetBand) error {
	return SweepChart(stage, records, variable, metric, band).WritePNG(w)
}

// PlotTrajectory renders a TrajectoryChart as PNG.
func PlotTrajectory(w io.Writer, stage string, records []models.Record, name string, band *models.TargetBand) error {
	return TrajectoryChart(stage, records, name, band).WritePNG(w)
}

// WritePNG draws the chart.
func (c Chart) WritePNG(w io.Writer) error {
	p, err := c.build()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render %q: %w", c.Title, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the chart to path, creating the directory if needed.
func (c Chart) SavePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c Chart) build() (*plot.Plot, error) {
	points := 0
	for _, s := range c.Series {
		points += len(s.X)
	}
	if points == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, c.Title)
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	for _, s := range c.Series {
		xys := make(plotter.XYs, len(s.X))
		for i := range s.X {
			xys[i].X, xys[i].Y = s.X[i], s.Y[i]
		}
		line, pts, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = seriesColor
		pts.Color = seriesColor
		p.Add(line, pts)
		p.Legend.Add(s.Name, line, pts)
	}

	if c.Band != nil {
		var first *plotter.Function
		for _, y := range []float64{c.Band.Low, c.Band.High} {
			f := plotter.NewFunction(func(float64) float64 { return y })
			f.Color = bandColor
			f.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
			p.Add(f)
			if first == nil {
				first = f
			}
		}
		p.Legend.Add("target "+c.Band.String(), first)
		p.Y.Min = math.Min(p.Y.Min, c.Band.Low)
		p.Y.Max = math.Max(p.Y.Max, c.Band.High)
	}
	return p, nil
}

// StageCharts returns the charts drawn for one stage history: the swept
// metric for sweeps, and every steered variable and metric against the
// iteration for solver stages.
func StageCharts(stage string, records []models.Record, plan sizing.Plan) []Chart {
	switch stage {
	case sizing.StageSolventSweep:
		p := plan.SolventSweep
		return []Chart{SweepChart(stage, records, p.Variable.Name, sizing.MetricCaptureRatio, p.Band)}
	case sizing.StageHeightSweep:
		if plan.HeightSweep == nil {
			return nil
		}
		p := *plan.HeightSweep
		return []Chart{SweepChart(stage, records, p.Variable.Name, sizing.MetricCaptureRatio, p.Band)}
	case sizing.StageDual:
		return []Chart{
			TrajectoryChart(stage, records, plan.Dual.Diameter.Variable.Name, nil),
			TrajectoryChart(stage, records, plan.Dual.Solvent.Variable.Name, nil),
			TrajectoryChart(stage, records, sizing.MetricFlooding, &plan.Dual.FloodingBand),
			TrajectoryChart(stage, records, sizing.MetricCaptureRatio, &plan.Dual.CaptureBand),
		}
	case sizing.StageHeight:
		return []Chart{
			TrajectoryChart(stage, records, plan.Height.Height.Variable.Name, nil),
			TrajectoryChart(stage, records, sizing.MetricCaptureRatio, &plan.Height.CaptureBand),
		}
	case sizing.StageRecycle:
		sp := plan.Recycle.Setpoint
		band := models.TargetBand{Low: sp.Value - sp.Tolerance, High: sp.Value + sp.Tolerance}
		return []Chart{
			TrajectoryChart(stage, records, plan.Recycle.Boilup.Variable.Name, nil),
			TrajectoryChart(stage, records, sizing.MetricLeanLoading, &band),
		}
	}
	return nil
}

// SaveStageCharts writes the charts of one stage to dir as <name>.png and
// returns the files written. Charts without data are skipped.
func SaveStageCharts(dir, stage string, records []models.Record, plan sizing.Plan) ([]string, error) {
	var files []string
	for _, c := range StageCharts(stage, records, plan) {
		path := filepath.Join(dir, c.Name+".png")
		if err := c.SavePNG(path); err != nil {
			if errors.Is(err, ErrNoData) {
				continue
			}
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

type stageHistory struct {
	stage string
	h     *models.History
}

// SaveReportCharts writes the charts of every stage in rep.
func SaveReportCharts(dir string, rep *sizing.DesignReport, plan sizing.Plan) ([]string, error) {
	var histories []stageHistory
	if rep.SolventSweep != nil {
		histories = append(histories, stageHistory{sizing.StageSolventSweep, rep.SolventSweep.Converged})
	}
	if rep.HeightSweep != nil {
		histories = append(histories, stageHistory{sizing.StageHeightSweep, rep.HeightSweep.Converged})
	}
	for _, r := range []*sizing.SolveResult{rep.Dual, rep.Height, rep.Recycle} {
		if r != nil {
			histories = append(histories, stageHistory{r.Stage, r.History})
		}
	}

	var files []string
	for _, sh := range histories {
		out, err := SaveStageCharts(dir, sh.stage, sh.h.Records(), plan)
		files = append(files, out...)
		if err != nil {
			return files, err
		}
	}
	return files, nil
}
