package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"marketshare-dashboard/internal/models"
)

const (
	CitySheet       = "Cities"
	RegionSheet     = "Regions"
	TimeSeriesSheet = "Time Series"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Tables are the three aggregates written to the workbook.
type Tables struct {
	Cities     []models.CityAggregate
	Regions    []models.RegionAggregate
	TimeSeries []models.DailyAggregate
}

// Workbook builds the export with one sheet per table. The caller closes
// the returned file.
func Workbook(t Tables) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), CitySheet); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "export: rename first sheet")
	}
	for _, name := range []string{RegionSheet, TimeSeriesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, eris.Wrapf(err, "export: add sheet %q", name)
		}
	}

	cityRows := make([][]any, 0, len(t.Cities))
	for _, c := range t.Cities {
		cityRows = append(cityRows, []any{c.City, c.Key, c.Region, c.Manager, c.Own, c.Competitor, c.Market, c.Share})
	}
	regionRows := make([][]any, 0, len(t.Regions))
	for _, r := range t.Regions {
		regionRows = append(regionRows, []any{r.Region, r.Cities, r.Own, r.Market, r.Share})
	}
	seriesRows := make([][]any, 0, len(t.TimeSeries))
	for _, d := range t.TimeSeries {
		seriesRows = append(seriesRows, []any{d.Date.Format("2006-01-02"), d.Own, d.Competitor, d.Market, d.Share})
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{CitySheet, []any{"City", "Key", "Region", "Manager", "Own", "Competitor", "Market", "Share %"}, cityRows},
		{RegionSheet, []any{"Region", "Cities", "Own", "Market", "Share %"}, regionRows},
		{TimeSeriesSheet, []any{"Date", "Own", "Competitor", "Market", "Share %"}, seriesRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrapf(err, "export: header of %q", sheet)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return eris.Wrap(err, "export: cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return eris.Wrapf(err, "export: row %d of %q", i+2, sheet)
		}
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return eris.Wrap(err, "export: column name")
	}
	return f.SetColWidth(sheet, "A", last, 16)
}

// Write streams the workbook to w.
func Write(w io.Writer, t Tables) error {
	f, err := Workbook(t)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
