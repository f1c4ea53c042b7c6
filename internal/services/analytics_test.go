package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/twpayne/go-geom"

	"marketshare-dashboard/internal/loader"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/models"
)

func newTestStore(t *testing.T) *loader.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := loader.NewStore(8, "name", logger)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func polygon() *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	})
}

func testSales() []models.SalesRecord {
	return []models.SalesRecord{
		{
			Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), City: "ISTANBUL", Region: "MARMARA", Manager: "AYSE",
			Quantities: map[string]float64{"TROCMETAM": 100, "DIGER TROCMETAM": 50},
		},
		{
			Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), City: "Ankara", Region: "IC ANADOLU", Manager: "MEHMET",
			Quantities: map[string]float64{"TROCMETAM": 10, "DIGER TROCMETAM": 30},
		},
		{
			Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), City: "Atlantis", Region: "DENIZ", Manager: "NEMO",
			Quantities: map[string]float64{"TROCMETAM": 1},
		},
	}
}

func testRegions() []models.GeoRegion {
	return []models.GeoRegion{
		{Name: "Istanbul", Key: "ISTANBUL", Geometry: polygon()},
		{Name: "Ankara", Key: "ANKARA", Geometry: polygon()},
		{Name: "Nowhereistan", Key: "NOWHEREISTAN", Geometry: polygon()},
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_NoData(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	if _, err := a.Dashboard(context.Background(), market.Filter{Product: market.Trocmetam}); !errors.Is(err, ErrNoData) {
		t.Errorf("Dashboard() error = %v, want ErrNoData", err)
	}
	if _, err := a.Cities(market.Filter{Product: market.Trocmetam}); !errors.Is(err, ErrNoData) {
		t.Errorf("Cities() error = %v, want ErrNoData", err)
	}
	if _, err := a.TimeSeries(market.Filter{Product: market.Trocmetam}); !errors.Is(err, ErrNoData) {
		t.Errorf("TimeSeries() error = %v, want ErrNoData", err)
	}
}

func TestAnalytics_Dashboard(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	a.SetData(testSales(), testRegions())

	d, err := a.Dashboard(context.Background(), market.Filter{Product: market.Trocmetam})
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}

	if len(d.Joined) != 3 {
		t.Fatalf("expected one joined record per boundary, got %d", len(d.Joined))
	}
	istanbul := d.Joined[0]
	if istanbul.Own != 100 || istanbul.Market != 150 || istanbul.Share != 66.67 {
		t.Errorf("Istanbul = %+v", istanbul)
	}
	nowhere := d.Joined[2]
	if nowhere.Region != market.OtherRegion || nowhere.Market != 0 {
		t.Errorf("Nowhereistan = %+v", nowhere)
	}

	if diff := cmp.Diff([]string{"Atlantis"}, d.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
	if len(d.TimeSeries) != 3 {
		t.Errorf("expected 3 days, got %d", len(d.TimeSeries))
	}
	if d.Regions[0].Region != "MARMARA" {
		t.Errorf("regions should be sorted by own sales, got %+v", d.Regions)
	}
	if a.Stats()["pipeline_runs"] != int64(1) {
		t.Errorf("pipeline_runs = %v", a.Stats()["pipeline_runs"])
	}
}

func TestAnalytics_DashboardInvalidProduct(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	a.SetData(testSales(), testRegions())
	if _, err := a.Dashboard(context.Background(), market.Filter{}); !errors.Is(err, market.ErrInvalidProduct) {
		t.Errorf("Dashboard() error = %v, want ErrInvalidProduct", err)
	}
}

func TestAnalytics_DashboardWithoutBoundaries(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	a.SetData(testSales(), nil)
	d, err := a.Dashboard(context.Background(), market.Filter{Product: market.Trocmetam})
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}
	if len(d.Joined) != 0 || len(d.Regions) != 0 || d.Unmatched != nil {
		t.Errorf("expected empty join, got %d joined %d regions %v unmatched", len(d.Joined), len(d.Regions), d.Unmatched)
	}
	if len(d.Cities.Cities) != 3 {
		t.Errorf("city table should not depend on boundaries, got %d rows", len(d.Cities.Cities))
	}
}

func TestAnalytics_Options(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	a.SetData(testSales(), nil)
	opts := a.Options()

	if diff := cmp.Diff([]string{"TROCMETAM", "CORTIPOL", "DEKSAMETAZON", "ISOTONIC"}, opts.Products); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"DENIZ", "IC ANADOLU", "MARMARA"}, opts.Regions); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
	if !opts.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) || !opts.End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("span = %v..%v", opts.Start, opts.End)
	}
}

func TestAnalytics_LoadFromFilesAndUpload(t *testing.T) {
	dir := t.TempDir()
	salesPath := filepath.Join(dir, "sales.csv")
	csv := "DATE,CITY,REGION,MANAGER,CORTIPOL,DIGER CORTIPOL\n2024-01-01,Van,DOGU,ALI,3,1\n"
	if err := os.WriteFile(salesPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	a := NewAnalytics(newTestStore(t))
	if err := a.LoadFromFiles(context.Background(), salesPath, ""); err != nil {
		t.Fatalf("LoadFromFiles() error: %v", err)
	}
	summary, err := a.Cities(market.Filter{Product: market.Cortipol})
	if err != nil {
		t.Fatalf("Cities() error: %v", err)
	}
	if summary.Totals.Own != 3 || summary.Totals.Share != 75 {
		t.Errorf("totals = %+v", summary.Totals)
	}

	geo := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Van"},
		"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`
	table, err := a.UploadGeo(context.Background(), "van.geojson", []byte(geo))
	if err != nil {
		t.Fatalf("UploadGeo() error: %v", err)
	}
	if len(table.Regions) != 1 {
		t.Errorf("regions = %d", len(table.Regions))
	}

	d, err := a.Dashboard(context.Background(), market.Filter{Product: market.Cortipol})
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}
	if !d.Joined[0].Matched || d.Joined[0].Own != 3 {
		t.Errorf("joined = %+v", d.Joined[0])
	}

	if _, err := a.UploadSales(context.Background(), "bad.csv", []byte("nothing useful\n")); err == nil {
		t.Error("UploadSales() should reject a file without date and city columns")
	}
	if a.Stats()["sales_file"] != "sales.csv" {
		t.Errorf("failed upload should keep the previous table, stats = %v", a.Stats())
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics(newTestStore(t))
	a.SetData(testSales(), testRegions())

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()
			_, _ = a.Dashboard(context.Background(), market.Filter{Product: market.Trocmetam})
			_ = a.Options()
			_ = a.Stats()
		}()
	}
	a.SetData(testSales(), nil)

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkAnalytics_Dashboard(b *testing.B) {
	a := NewAnalytics(nil)
	records := make([]models.SalesRecord, 0, 2000)
	for i := 0; i < 2000; i++ {
		records = append(records, models.SalesRecord{
			Date:       time.Date(2023, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC),
			City:       "City" + string(rune('A'+i%26)),
			Region:     "R",
			Manager:    "M",
			Quantities: map[string]float64{"TROCMETAM": float64(i), "DIGER TROCMETAM": 1},
		})
	}
	a.SetData(records, testRegions())

	b.ResetTimer()
	for b.Loop() {
		_, _ = a.Dashboard(context.Background(), market.Filter{Product: market.Trocmetam})
	}
}
