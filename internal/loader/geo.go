package loader

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/models"
)

var fallbackNameProperties = []string{"name", "NAME_1", "NAME"}

// GeoTable is a parsed boundary file. Skipped counts features dropped for
// having no polygonal geometry.
type GeoTable struct {
	Name    string
	Hash    string
	Regions []models.GeoRegion
	Skipped int
}

// ParseGeo decodes a GeoJSON FeatureCollection of city boundaries. The
// display name is read from nameProperty, then from the usual property names
// of province boundary files.
func ParseGeo(name string, data []byte, nameProperty string) (*GeoTable, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "loader: decode geojson %s", name)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("loader: %s has no features", name)
	}

	props := fallbackNameProperties
	if nameProperty != "" {
		props = append([]string{nameProperty}, fallbackNameProperties...)
	}

	table := &GeoTable{
		Name:    name,
		Regions: make([]models.GeoRegion, 0, len(fc.Features)),
	}
	for _, f := range fc.Features {
		if !polygonal(f.Geometry) {
			table.Skipped++
			continue
		}
		display := featureName(f, props)
		table.Regions = append(table.Regions, models.GeoRegion{
			Name:     display,
			Key:      market.NormalizeCity(display),
			Geometry: f.Geometry,
		})
	}
	if len(table.Regions) == 0 {
		return nil, eris.Errorf("loader: %s has no polygon features", name)
	}
	return table, nil
}

func polygonal(g geom.T) bool {
	switch g := g.(type) {
	case *geom.Polygon:
		return g != nil && !g.Empty()
	case *geom.MultiPolygon:
		return g != nil && !g.Empty()
	default:
		return false
	}
}

func featureName(f *geojson.Feature, props []string) string {
	for _, p := range props {
		if v, ok := f.Properties[p].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
