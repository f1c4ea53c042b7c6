package market

import (
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"marketshare-dashboard/internal/models"
)

// FeatureCollection converts joined boundaries into the GeoJSON consumed by
// the choropleth. Feature IDs are canonical city keys; label_lon/label_lat
// hold the centroid used to place the city label.
func FeatureCollection(joined []models.JoinedRecord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(joined)),
	}
	for _, rec := range joined {
		props := map[string]interface{}{
			"name":       rec.Name,
			"region":     rec.Region,
			"manager":    rec.Manager,
			"own":        rec.Own,
			"competitor": rec.Competitor,
			"market":     rec.Market,
			"share":      rec.Share,
			"matched":    rec.Matched,
		}
		if rec.Geometry != nil {
			if c, err := xy.Centroid(rec.Geometry); err == nil {
				props["label_lon"] = c.X()
				props["label_lat"] = c.Y()
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         rec.Key,
			Geometry:   rec.Geometry,
			Properties: props,
		})
	}
	return fc
}
