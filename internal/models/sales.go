package models

import (
	"time"

	"github.com/twpayne/go-geom"
)

// SalesRecord is one row of the sales export. Quantities holds every numeric
// column of the row keyed by its upper-cased header, so a product selection
// can pick its own/competitor pair without the loader knowing about products.
type SalesRecord struct {
	Date       time.Time
	City       string
	Region     string
	Manager    string
	Quantities map[string]float64
}

// GeoRegion is one city boundary from the uploaded GeoJSON.
type GeoRegion struct {
	Name     string
	Key      string
	Geometry geom.T
}

type CityAggregate struct {
	Key        string  `json:"key"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	Manager    string  `json:"manager"`
	Own        float64 `json:"own"`
	Competitor float64 `json:"competitor"`
	Market     float64 `json:"market"`
	Share      float64 `json:"share"`
}

type RegionAggregate struct {
	Region string  `json:"region"`
	Own    float64 `json:"own"`
	Market float64 `json:"market"`
	Share  float64 `json:"share"`
	Cities int     `json:"cities"`
}

type DailyAggregate struct {
	Date       time.Time `json:"date"`
	Own        float64   `json:"own"`
	Competitor float64   `json:"competitor"`
	Market     float64   `json:"market"`
	Share      float64   `json:"share"`
}

// JoinedRecord is a geometry row with the sales of its city attached.
// Matched is false when the city had no sales in the filtered data.
type JoinedRecord struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	Manager    string  `json:"manager"`
	Own        float64 `json:"own"`
	Competitor float64 `json:"competitor"`
	Market     float64 `json:"market"`
	Share      float64 `json:"share"`
	Matched    bool    `json:"matched"`
	Geometry   geom.T  `json:"-"`
}

type Totals struct {
	Own        float64 `json:"own"`
	Competitor float64 `json:"competitor"`
	Market     float64 `json:"market"`
	Share      float64 `json:"share"`
}

// CitySummary is the per-city table plus its grand totals.
type CitySummary struct {
	Cities []CityAggregate `json:"cities"`
	Totals Totals          `json:"totals"`
}
