package admin

import (
	"bytes"
	"fmt"
	"time"

	"github.com/robalyx/retract/internal/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart dimensions and styling constants control the visual appearance
// of the deletion chart.
const (
	minBuckets = 2
	maxBuckets = 168
	maxTicks   = 24

	titleFontSize   = 12.0
	xAxisFontSize   = 10.0
	yAxisFontSize   = 12.0
	xAxisRotation   = 45.0
	gridLineWidth   = 1.0
	seriesLineWidth = 3.0
	seriesDotWidth  = 4.0
	paddingTop      = 30
	paddingBottom   = 30
	paddingLeft     = 20
	paddingRight    = 20
)

// ChartBuilder renders deletions per hour over a timeframe.
type ChartBuilder struct {
	records []types.DeletionRecord
	now     time.Time
	buckets int
	title   string
}

// NewChartBuilder creates a chart builder for records in the timeframe ending at now.
func NewChartBuilder(records []types.DeletionRecord, now time.Time, timeframe time.Duration, title string) *ChartBuilder {
	buckets := int((timeframe + time.Hour - 1) / time.Hour)

	return &ChartBuilder{
		records: records,
		now:     now,
		buckets: min(max(buckets, minBuckets), maxBuckets),
		title:   title,
	}
}

// Build renders the chart as PNG.
func (b *ChartBuilder) Build() (*bytes.Buffer, error) {
	xValues, totalSeries, rapidSeries, peak := b.prepareDataSeries()

	graph := &chart.Chart{
		Title:      b.title,
		TitleStyle: chart.Style{FontSize: titleFontSize},
		Background: chart.Style{
			Padding: chart.Box{Top: paddingTop, Left: paddingLeft, Right: paddingRight, Bottom: paddingBottom},
		},
		XAxis: b.getXAxis(b.prepareGridLinesAndTicks()),
		YAxis: b.getYAxis(peak),
		Series: []chart.Series{
			b.createSeries("Deletions", xValues, totalSeries, chart.ColorBlue),
			b.createSeries("Rapid", xValues, rapidSeries, chart.ColorRed),
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(graph),
	}

	buf := new(bytes.Buffer)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// prepareDataSeries counts records per hour, oldest bucket first.
func (b *ChartBuilder) prepareDataSeries() ([]float64, []float64, []float64, float64) {
	xValues := make([]float64, b.buckets)
	totalSeries := make([]float64, b.buckets)
	rapidSeries := make([]float64, b.buckets)

	for i := range b.buckets {
		xValues[i] = float64(i)
	}

	end := b.now.Truncate(time.Hour).Add(time.Hour)

	for _, record := range b.records {
		hoursAgo := int(end.Sub(record.Timestamp) / time.Hour)
		if record.Timestamp.After(end) || hoursAgo >= b.buckets {
			continue
		}

		idx := b.buckets - 1 - hoursAgo
		totalSeries[idx]++

		if record.Rapid {
			rapidSeries[idx]++
		}
	}

	peak := 0.0
	for _, v := range totalSeries {
		peak = max(peak, v)
	}

	return xValues, totalSeries, rapidSeries, peak
}

// prepareGridLinesAndTicks creates grid lines and at most maxTicks x-axis labels.
func (b *ChartBuilder) prepareGridLinesAndTicks() ([]chart.GridLine, []chart.Tick) {
	step := max((b.buckets+maxTicks-1)/maxTicks, 1)

	var gridLines []chart.GridLine
	var ticks []chart.Tick

	for i := 0; i < b.buckets; i += step {
		gridLines = append(gridLines, chart.GridLine{Value: float64(i)})
		ticks = append(ticks, chart.Tick{
			Value: float64(i),
			Label: fmt.Sprintf("%dh ago", b.buckets-i),
		})
	}

	return gridLines, ticks
}

func (b *ChartBuilder) getXAxis(gridLines []chart.GridLine, ticks []chart.Tick) chart.XAxis {
	return chart.XAxis{
		Style: chart.Style{
			FontSize:            xAxisFontSize,
			TextRotationDegrees: xAxisRotation,
		},
		GridMajorStyle: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: gridLineWidth,
		},
		GridLines:    gridLines,
		Ticks:        ticks,
		TickPosition: chart.TickPositionUnderTick,
	}
}

// getYAxis fixes the range so an empty timeframe still renders.
func (b *ChartBuilder) getYAxis(peak float64) chart.YAxis {
	return chart.YAxis{
		Style: chart.Style{
			FontSize: yAxisFontSize,
		},
		GridMajorStyle: chart.Style{
			StrokeColor: chart.ColorAlternateGray,
			StrokeWidth: gridLineWidth,
		},
		Range: &chart.ContinuousRange{Min: 0, Max: max(peak, 1)},
		ValueFormatter: func(v any) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
}

func (b *ChartBuilder) createSeries(name string, xValues, yValues []float64, color drawing.Color) chart.Series {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: color,
			StrokeWidth: seriesLineWidth,
			DotColor:    color,
			DotWidth:    seriesDotWidth,
		},
	}
}
