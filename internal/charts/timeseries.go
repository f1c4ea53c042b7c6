package charts

import (
	"image/color"
	"io"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"marketshare-dashboard/internal/models"
)

var (
	ownColor    = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	marketColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// TimeSeriesPNG renders own sales and total market per day as a PNG line
// chart. An empty series renders an empty, titled chart.
func TimeSeriesPNG(w io.Writer, title string, series []models.DailyAggregate) error {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Units"
	p.Add(plotter.NewGrid())

	if len(series) > 0 {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
		own := make(plotter.XYs, len(series))
		market := make(plotter.XYs, len(series))
		for i, d := range series {
			x := float64(d.Date.Unix())
			own[i] = plotter.XY{X: x, Y: d.Own}
			market[i] = plotter.XY{X: x, Y: d.Market}
		}

		ownLine, err := plotter.NewLine(own)
		if err != nil {
			return eris.Wrap(err, "charts: own line")
		}
		ownLine.Color = ownColor
		ownLine.Width = vg.Points(2)

		marketLine, err := plotter.NewLine(market)
		if err != nil {
			return eris.Wrap(err, "charts: market line")
		}
		marketLine.Color = marketColor
		marketLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		p.Add(ownLine, marketLine)
		p.Legend.Add("own", ownLine)
		p.Legend.Add("market", marketLine)
		p.Legend.Top = true
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return eris.Wrap(err, "charts: png writer")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return eris.Wrap(err, "charts: write png")
	}
	return nil
}
