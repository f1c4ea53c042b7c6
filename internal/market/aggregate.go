package market

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"marketshare-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Filter selects the rows that feed one dashboard refresh. Start and End are
// inclusive calendar days; a zero value leaves that side of the range open.
// Manager and Region are optional and compared case-insensitively.
type Filter struct {
	Product Product
	Start   time.Time
	End     time.Time
	Manager string
	Region  string
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Share returns own as a percentage of market rounded to two decimals.
// A market of zero yields zero.
func Share(own, market float64) float64 {
	if market <= 0 {
		return 0
	}
	pct, _ := decimal.NewFromFloat(own).
		Div(decimal.NewFromFloat(market)).
		Mul(hundred).
		Round(2).
		Float64()
	return min(max(pct, 0), 100)
}

type rowFilter struct {
	cols       ColumnPair
	start, end time.Time
	manager    string
	region     string
	empty      bool
}

func newRowFilter(f Filter) (rowFilter, error) {
	cols, err := f.Product.Columns()
	if err != nil {
		return rowFilter{}, err
	}
	rf := rowFilter{
		cols:    cols,
		manager: strings.TrimSpace(f.Manager),
		region:  strings.TrimSpace(f.Region),
	}
	if !f.Start.IsZero() {
		rf.start = Day(f.Start)
	}
	if !f.End.IsZero() {
		rf.end = Day(f.End)
	}
	rf.empty = !rf.start.IsZero() && !rf.end.IsZero() && rf.start.After(rf.end)
	return rf, nil
}

// keep reports whether rec passes the filter. Rows without a parsed date are
// always dropped.
func (rf rowFilter) keep(rec models.SalesRecord) bool {
	if rf.empty || rec.Date.IsZero() {
		return false
	}
	day := Day(rec.Date)
	if !rf.start.IsZero() && day.Before(rf.start) {
		return false
	}
	if !rf.end.IsZero() && day.After(rf.end) {
		return false
	}
	if rf.manager != "" && !strings.EqualFold(strings.TrimSpace(rec.Manager), rf.manager) {
		return false
	}
	if rf.region != "" && !strings.EqualFold(strings.TrimSpace(rec.Region), rf.region) {
		return false
	}
	return true
}

func (rf rowFilter) volumes(rec models.SalesRecord) (own, competitor float64) {
	return rec.Quantities[rf.cols.Own], rec.Quantities[rf.cols.Competitor]
}

type cityGroup struct {
	key, region, manager string
}

// AggregateCities sums the selected product per (city, region, manager).
// Rows are ordered by own sales descending. An invalid product is rejected
// before any row is read.
func AggregateCities(records []models.SalesRecord, f Filter) (models.CitySummary, error) {
	rf, err := newRowFilter(f)
	if err != nil {
		return models.CitySummary{}, err
	}

	groups := make(map[cityGroup]*models.CityAggregate)
	order := make([]cityGroup, 0)
	for _, rec := range records {
		if !rf.keep(rec) {
			continue
		}
		g := cityGroup{
			key:     NormalizeCity(rec.City),
			region:  strings.TrimSpace(rec.Region),
			manager: strings.TrimSpace(rec.Manager),
		}
		agg, ok := groups[g]
		if !ok {
			agg = &models.CityAggregate{
				Key:     g.key,
				City:    strings.TrimSpace(rec.City),
				Region:  g.region,
				Manager: g.manager,
			}
			groups[g] = agg
			order = append(order, g)
		}
		own, competitor := rf.volumes(rec)
		agg.Own += own
		agg.Competitor += competitor
	}

	cities := make([]models.CityAggregate, 0, len(order))
	for _, g := range order {
		agg := groups[g]
		agg.Market = agg.Own + agg.Competitor
		agg.Share = Share(agg.Own, agg.Market)
		cities = append(cities, *agg)
	}
	slices.SortStableFunc(cities, func(a, b models.CityAggregate) int {
		if c := cmp.Compare(b.Own, a.Own); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	return models.CitySummary{Cities: cities, Totals: cityTotals(cities)}, nil
}

func cityTotals(cities []models.CityAggregate) models.Totals {
	t := models.Totals{
		Own:        lo.SumBy(cities, func(c models.CityAggregate) float64 { return c.Own }),
		Competitor: lo.SumBy(cities, func(c models.CityAggregate) float64 { return c.Competitor }),
	}
	t.Market = t.Own + t.Competitor
	t.Share = Share(t.Own, t.Market)
	return t
}

// AggregateDaily sums the selected product per calendar day, oldest first.
func AggregateDaily(records []models.SalesRecord, f Filter) ([]models.DailyAggregate, error) {
	rf, err := newRowFilter(f)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*models.DailyAggregate)
	for _, rec := range records {
		if !rf.keep(rec) {
			continue
		}
		day := Day(rec.Date)
		agg, ok := byDay[day]
		if !ok {
			agg = &models.DailyAggregate{Date: day}
			byDay[day] = agg
		}
		own, competitor := rf.volumes(rec)
		agg.Own += own
		agg.Competitor += competitor
	}

	series := make([]models.DailyAggregate, 0, len(byDay))
	for _, agg := range byDay {
		agg.Market = agg.Own + agg.Competitor
		agg.Share = Share(agg.Own, agg.Market)
		series = append(series, *agg)
	}
	slices.SortFunc(series, func(a, b models.DailyAggregate) int {
		return a.Date.Compare(b.Date)
	})
	return series, nil
}
