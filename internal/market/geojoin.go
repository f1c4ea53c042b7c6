package market

import (
	"cmp"
	"slices"

	"marketshare-dashboard/internal/models"
)

// Defaults written onto boundaries that have no sales.
const (
	OtherRegion = "OTHER"
	NoManager   = "NONE"
)

type citySales struct {
	own, competitor float64
	region, manager string
	bestMarket      float64
}

// mergeByKey collapses city rows sharing a key. The region and manager of
// the row with the largest market win; the first row wins ties.
func mergeByKey(cities []models.CityAggregate) map[string]*citySales {
	merged := make(map[string]*citySales, len(cities))
	for _, c := range cities {
		if c.Key == "" {
			continue
		}
		s, ok := merged[c.Key]
		if !ok {
			merged[c.Key] = &citySales{
				own:        c.Own,
				competitor: c.Competitor,
				region:     c.Region,
				manager:    c.Manager,
				bestMarket: c.Market,
			}
			continue
		}
		s.own += c.Own
		s.competitor += c.Competitor
		if c.Market > s.bestMarket {
			s.region, s.manager, s.bestMarket = c.Region, c.Manager, c.Market
		}
	}
	return merged
}

// JoinGeometry left-joins city sales onto the boundary records. The result
// has exactly one entry per boundary, in input order. When several
// boundaries normalize to the same key only the first receives the sales.
func JoinGeometry(regions []models.GeoRegion, cities []models.CityAggregate) []models.JoinedRecord {
	sales := mergeByKey(cities)
	claimed := make(map[string]bool, len(sales))

	joined := make([]models.JoinedRecord, 0, len(regions))
	for _, g := range regions {
		key := NormalizeCity(g.Name)
		rec := models.JoinedRecord{
			Key:      key,
			Name:     g.Name,
			Region:   OtherRegion,
			Manager:  NoManager,
			Geometry: g.Geometry,
		}
		if s, ok := sales[key]; ok && !claimed[key] {
			claimed[key] = true
			rec.Own = s.own
			rec.Competitor = s.competitor
			rec.Market = s.own + s.competitor
			rec.Share = Share(rec.Own, rec.Market)
			rec.Region = s.region
			rec.Manager = s.manager
			rec.Matched = true
		}
		joined = append(joined, rec)
	}
	return joined
}

// RegionRollups sums the joined boundaries per region, largest own sales
// first.
func RegionRollups(joined []models.JoinedRecord) []models.RegionAggregate {
	byRegion := make(map[string]*models.RegionAggregate)
	for _, rec := range joined {
		agg, ok := byRegion[rec.Region]
		if !ok {
			agg = &models.RegionAggregate{Region: rec.Region}
			byRegion[rec.Region] = agg
		}
		agg.Own += rec.Own
		agg.Market += rec.Market
		agg.Cities++
	}

	rollups := make([]models.RegionAggregate, 0, len(byRegion))
	for _, agg := range byRegion {
		agg.Share = Share(agg.Own, agg.Market)
		rollups = append(rollups, *agg)
	}
	slices.SortFunc(rollups, func(a, b models.RegionAggregate) int {
		if c := cmp.Compare(b.Own, a.Own); c != 0 {
			return c
		}
		return cmp.Compare(a.Region, b.Region)
	})
	return rollups
}

// UnmatchedCities lists the sales keys that no boundary claimed.
func UnmatchedCities(joined []models.JoinedRecord, cities []models.CityAggregate) []string {
	matched := make(map[string]bool, len(joined))
	for _, rec := range joined {
		if rec.Matched {
			matched[rec.Key] = true
		}
	}
	var missing []string
	seen := make(map[string]bool)
	for _, c := range cities {
		if matched[c.Key] || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		missing = append(missing, c.City)
	}
	return missing
}
