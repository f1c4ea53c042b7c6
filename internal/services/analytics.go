package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"marketshare-dashboard/internal/loader"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/models"
	"marketshare-dashboard/internal/observability"
)

// ErrNoData is returned until a sales file has been loaded.
var ErrNoData = errors.New("no sales data loaded")

// Dashboard is everything one filter change renders.
type Dashboard struct {
	Filter     market.Filter            `json:"-"`
	Cities     models.CitySummary       `json:"cities"`
	Regions    []models.RegionAggregate `json:"regions"`
	Joined     []models.JoinedRecord    `json:"joined"`
	TimeSeries []models.DailyAggregate  `json:"time_series"`
	Unmatched  []string                 `json:"unmatched"`
}

// Options lists the values the filter widgets offer.
type Options struct {
	Products []string  `json:"products"`
	Regions  []string  `json:"regions"`
	Managers []string  `json:"managers"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type session struct {
	sales     []models.SalesRecord
	regions   []models.GeoRegion
	salesName string
	geoName   string
	loadedAt  time.Time
}

// Analytics holds the analyst's uploaded tables and runs the pipeline on
// them. The tables are replaced wholesale on upload and never mutated.
type Analytics struct {
	mu      sync.RWMutex
	current session
	store   *loader.Store
	runs    atomic.Int64
	logger  *slog.Logger
}

func NewAnalytics(store *loader.Store) *Analytics {
	return &Analytics{
		store:  store,
		logger: slog.Default(),
	}
}

func (a *Analytics) SetData(sales []models.SalesRecord, regions []models.GeoRegion) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = session{
		sales:     sales,
		regions:   regions,
		salesName: "in-memory",
		geoName:   "in-memory",
		loadedAt:  time.Now(),
	}
}

// LoadFromFiles parses the configured source files. Either path may be
// empty, in which case that table waits for an upload.
func (a *Analytics) LoadFromFiles(ctx context.Context, salesPath, geoPath string) error {
	start := time.Now()
	sales, geo, err := a.store.LoadFiles(ctx, salesPath, geoPath)
	if err != nil {
		return fmt.Errorf("load source files: %w", err)
	}

	a.mu.Lock()
	if sales != nil {
		a.current.sales = sales.Records
		a.current.salesName = sales.Name
	}
	if geo != nil {
		a.current.regions = geo.Regions
		a.current.geoName = geo.Name
	}
	a.current.loadedAt = time.Now()
	a.mu.Unlock()

	a.logger.Info("source files loaded",
		"sales_file", salesPath,
		"geo_file", geoPath,
		"duration", time.Since(start),
	)
	return nil
}

// UploadSales replaces the session's sales table.
func (a *Analytics) UploadSales(ctx context.Context, name string, data []byte) (*loader.SalesTable, error) {
	table, err := a.store.Sales(ctx, name, data)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.current.sales = table.Records
	a.current.salesName = name
	a.current.loadedAt = time.Now()
	a.mu.Unlock()
	return table, nil
}

// UploadGeo replaces the session's boundary table.
func (a *Analytics) UploadGeo(ctx context.Context, name string, data []byte) (*loader.GeoTable, error) {
	table, err := a.store.Geo(ctx, name, data)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.current.regions = table.Regions
	a.current.geoName = name
	a.current.loadedAt = time.Now()
	a.mu.Unlock()
	return table, nil
}

func (a *Analytics) snapshot() session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Dashboard runs the full pipeline for f: city table, geometry join,
// region rollups and the daily series. Boundaries are optional; without
// them the join and rollups are empty.
func (a *Analytics) Dashboard(ctx context.Context, f market.Filter) (*Dashboard, error) {
	_, span := observability.StartSpan(ctx, "analytics.dashboard")
	defer span.End(a.logger)
	span.SetTag("product", f.Product.String())

	s := a.snapshot()
	if s.sales == nil {
		span.SetError(ErrNoData)
		return nil, ErrNoData
	}

	cities, err := market.AggregateCities(s.sales, f)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	series, err := market.AggregateDaily(s.sales, f)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	joined := market.JoinGeometry(s.regions, cities.Cities)

	d := &Dashboard{
		Filter:     f,
		Cities:     cities,
		Regions:    market.RegionRollups(joined),
		Joined:     joined,
		TimeSeries: series,
	}
	if len(s.regions) > 0 {
		d.Unmatched = market.UnmatchedCities(joined, cities.Cities)
	}

	a.runs.Add(1)
	a.logger.Debug("pipeline run",
		"product", f.Product.String(),
		"cities", len(cities.Cities),
		"boundaries", len(joined),
		"days", len(series),
		"unmatched", len(d.Unmatched),
	)
	return d, nil
}

func (a *Analytics) Cities(f market.Filter) (models.CitySummary, error) {
	s := a.snapshot()
	if s.sales == nil {
		return models.CitySummary{}, ErrNoData
	}
	return market.AggregateCities(s.sales, f)
}

func (a *Analytics) TimeSeries(f market.Filter) ([]models.DailyAggregate, error) {
	s := a.snapshot()
	if s.sales == nil {
		return nil, ErrNoData
	}
	return market.AggregateDaily(s.sales, f)
}

// Options reports the distinct regions and managers and the dated span of
// the loaded sales.
func (a *Analytics) Options() Options {
	s := a.snapshot()

	opts := Options{
		Products: lo.Map(market.Products(), func(p market.Product, _ int) string { return p.String() }),
		Regions:  distinct(s.sales, func(r models.SalesRecord) string { return r.Region }),
		Managers: distinct(s.sales, func(r models.SalesRecord) string { return r.Manager }),
	}
	for _, rec := range s.sales {
		if rec.Date.IsZero() {
			continue
		}
		if opts.Start.IsZero() || rec.Date.Before(opts.Start) {
			opts.Start = rec.Date
		}
		if rec.Date.After(opts.End) {
			opts.End = rec.Date
		}
	}
	return opts
}

func distinct(records []models.SalesRecord, field func(models.SalesRecord) string) []string {
	values := lo.Uniq(lo.FilterMap(records, func(r models.SalesRecord, _ int) (string, bool) {
		v := strings.TrimSpace(field(r))
		return v, v != ""
	}))
	slices.Sort(values)
	return values
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	s := a.snapshot()

	return map[string]any{
		"sales_file":    s.salesName,
		"geo_file":      s.geoName,
		"sales_records": len(s.sales),
		"boundaries":    len(s.regions),
		"loaded_at":     s.loadedAt,
		"pipeline_runs": a.runs.Load(),
	}
}
