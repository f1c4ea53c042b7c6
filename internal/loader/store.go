package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Store parses uploaded files and memoizes the result by content hash, so
// re-uploading the same export skips parsing.
type Store struct {
	sales        *lru.Cache[string, *SalesTable]
	geo          *lru.Cache[string, *GeoTable]
	nameProperty string
	logger       *slog.Logger
}

func NewStore(entries int, nameProperty string, logger *slog.Logger) (*Store, error) {
	sales, err := lru.New[string, *SalesTable](entries)
	if err != nil {
		return nil, eris.Wrap(err, "loader: sales cache")
	}
	geo, err := lru.New[string, *GeoTable](entries)
	if err != nil {
		return nil, eris.Wrap(err, "loader: geo cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sales:        sales,
		geo:          geo,
		nameProperty: nameProperty,
		logger:       logger,
	}, nil
}

// ContentHash identifies file contents in the cache.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sales returns the parsed sales table for data. Cached tables are shared
// and must be treated as read-only.
func (s *Store) Sales(ctx context.Context, name string, data []byte) (*SalesTable, error) {
	hash := ContentHash(data)
	if cached, ok := s.sales.Get(hash); ok {
		s.logger.Info("sales file served from cache", "file", name, "hash", hash[:12])
		return cached, nil
	}

	table, err := ParseSales(ctx, name, data)
	if err != nil {
		return nil, err
	}
	table.Hash = hash
	s.sales.Add(hash, table)

	s.logger.Info("sales file parsed",
		"file", name,
		"rows", table.Rows,
		"bad_dates", table.BadDates,
		"bad_values", table.BadValues,
		"columns", len(table.Columns),
	)
	return table, nil
}

// Geo returns the parsed boundary table for data.
func (s *Store) Geo(ctx context.Context, name string, data []byte) (*GeoTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash := ContentHash(data)
	if cached, ok := s.geo.Get(hash); ok {
		s.logger.Info("geo file served from cache", "file", name, "hash", hash[:12])
		return cached, nil
	}

	table, err := ParseGeo(name, data, s.nameProperty)
	if err != nil {
		return nil, err
	}
	table.Hash = hash
	s.geo.Add(hash, table)

	s.logger.Info("geo file parsed",
		"file", name,
		"regions", len(table.Regions),
		"skipped", table.Skipped,
	)
	return table, nil
}

// LoadFiles reads and parses both source files concurrently. An empty path
// skips that file and leaves its result nil.
func (s *Store) LoadFiles(ctx context.Context, salesPath, geoPath string) (*SalesTable, *GeoTable, error) {
	var (
		sales *SalesTable
		geo   *GeoTable
	)
	g, ctx := errgroup.WithContext(ctx)

	if salesPath != "" {
		g.Go(func() error {
			data, err := os.ReadFile(salesPath)
			if err != nil {
				return eris.Wrap(err, "loader: read sales file")
			}
			sales, err = s.Sales(ctx, filepath.Base(salesPath), data)
			return err
		})
	}
	if geoPath != "" {
		g.Go(func() error {
			data, err := os.ReadFile(geoPath)
			if err != nil {
				return eris.Wrap(err, "loader: read geo file")
			}
			geo, err = s.Geo(ctx, filepath.Base(geoPath), data)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sales, geo, nil
}

func (s *Store) Len() int {
	return s.sales.Len() + s.geo.Len()
}
