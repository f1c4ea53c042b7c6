package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/models"
)

const ctxCheckEvery = 1000

var (
	dateHeaders    = []string{"DATE", "TARIH", "AY"}
	cityHeaders    = []string{"CITY", "IL", "SEHIR"}
	regionHeaders  = []string{"REGION", "BOLGE"}
	managerHeaders = []string{"MANAGER", "MUDUR", "BOLGE MUDURU"}

	dateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"02.01.2006",
		"02/01/2006",
		"2.1.2006",
		"2006-01",
		"01.2006",
	}
)

// SalesTable is a parsed sales export. Rows counts data rows read;
// BadDates counts rows kept without a date, BadValues counts quantity cells
// that could not be read as numbers and were treated as zero.
type SalesTable struct {
	Name      string
	Hash      string
	Records   []models.SalesRecord
	Rows      int
	BadDates  int
	BadValues int
	Columns   []string
}

// ParseSales reads a CSV or XLSX sales export. The format is chosen from the
// file extension; anything that is not .xlsx is read as CSV with a comma or
// semicolon delimiter.
func ParseSales(ctx context.Context, name string, data []byte) (*SalesTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	default:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("loader: %s is empty", name)
	}

	layout, err := newSalesLayout(rows[0])
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", name)
	}

	table := &SalesTable{
		Name:    name,
		Records: make([]models.SalesRecord, 0, len(rows)-1),
		Columns: layout.quantityColumns(),
	}
	for i, row := range rows[1:] {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blankRow(row) {
			continue
		}
		table.Rows++
		rec, badValues := layout.record(row)
		if rec.Date.IsZero() {
			table.BadDates++
		}
		table.BadValues += badValues
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "loader: read csv")
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, eris.New("loader: xlsx has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read sheet %q", sheet)
	}
	return rows, nil
}

// HeaderKey canonicalizes a column header: Turkish upper case, diacritics
// folded, inner whitespace collapsed.
func HeaderKey(h string) string {
	h = market.FoldDiacritics(cases.Upper(language.Turkish).String(h))
	return strings.Join(strings.Fields(h), " ")
}

type salesLayout struct {
	date, city, region, manager int
	headers                     []string
}

func newSalesLayout(header []string) (salesLayout, error) {
	l := salesLayout{date: -1, city: -1, region: -1, manager: -1}
	l.headers = make([]string, len(header))
	for i, h := range header {
		l.headers[i] = HeaderKey(h)
	}
	l.date = l.find(dateHeaders)
	l.city = l.find(cityHeaders)
	l.region = l.find(regionHeaders)
	l.manager = l.find(managerHeaders)

	if l.date < 0 {
		return l, eris.New("no date column")
	}
	if l.city < 0 {
		return l, eris.New("no city column")
	}
	return l, nil
}

func (l salesLayout) find(aliases []string) int {
	for _, alias := range aliases {
		for i, h := range l.headers {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

func (l salesLayout) isRole(i int) bool {
	return i == l.date || i == l.city || i == l.region || i == l.manager
}

func (l salesLayout) quantityColumns() []string {
	cols := make([]string, 0, len(l.headers))
	for i, h := range l.headers {
		if !l.isRole(i) && h != "" {
			cols = append(cols, h)
		}
	}
	return cols
}

func (l salesLayout) record(row []string) (models.SalesRecord, int) {
	rec := models.SalesRecord{
		Date:       parseDate(cell(row, l.date)),
		City:       cell(row, l.city),
		Region:     cell(row, l.region),
		Manager:    cell(row, l.manager),
		Quantities: make(map[string]float64),
	}
	bad := 0
	for i, h := range l.headers {
		if l.isRole(i) || h == "" {
			continue
		}
		raw := cell(row, i)
		if raw == "" {
			continue
		}
		v, ok := parseQuantity(raw)
		if !ok {
			bad++
			continue
		}
		rec.Quantities[h] += v
	}
	return rec, bad
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseDate returns the zero time when s is not a recognizable date. Plain
// numbers are read as Excel serial dates.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return market.Day(t)
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return market.Day(t)
		}
	}
	return time.Time{}
}

// parseQuantity accepts plain numbers and decimal commas ("12,5").
func parseQuantity(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		v, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
