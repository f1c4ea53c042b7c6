package handlers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"marketshare-dashboard/internal/charts"
	"marketshare-dashboard/internal/errors"
	"marketshare-dashboard/internal/export"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/observability"
	"marketshare-dashboard/internal/services"
)

// Uploads replace the data behind every response, so nothing is cacheable.
var noStore = map[string]string{"Cache-Control": "no-store"}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	maxUpload int64
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, maxUpload int64) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		maxUpload: maxUpload,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) dashboard(w http.ResponseWriter, r *http.Request) (*services.Dashboard, bool) {
	f, err := ParseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	d, err := h.analytics.Dashboard(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Options(), noStore)
}

func (h *APIHandlers) HandleCities(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.analytics.Cities(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, summary, noStore)
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"regions":   d.Regions,
		"unmatched": d.Unmatched,
	}, noStore)
}

func (h *APIHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	series, err := h.analytics.TimeSeries(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, series, noStore)
}

// HandleMap serves the joined boundaries as a bare GeoJSON
// FeatureCollection so map libraries can load the URL directly.
func (h *APIHandlers) HandleMap(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	body, err := json.Marshal(market.FeatureCollection(d.Joined))
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to encode map"))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(body)
}

func (h *APIHandlers) HandleTimeSeriesPNG(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	series, err := h.analytics.TimeSeries(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.TimeSeriesPNG(&buf, f.Product.String(), series); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to render chart"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := export.Write(&buf, export.Tables{
		Cities:     d.Cities.Cities,
		Regions:    d.Regions,
		TimeSeries: d.TimeSeries,
	})
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Failed to build workbook"))
		return
	}

	filename := fmt.Sprintf("market-share-%s-%s.xlsx", d.Filter.Product, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

type uploadSummary struct {
	Name      string   `json:"name"`
	Hash      string   `json:"hash"`
	Rows      int      `json:"rows,omitempty"`
	Records   int      `json:"records"`
	BadDates  int      `json:"bad_dates,omitempty"`
	BadValues int      `json:"bad_values,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
	Columns   []string `json:"columns,omitempty"`
}

// readUpload returns the "file" part of a multipart request, bounded by the
// configured upload limit.
func (h *APIHandlers) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return "", nil, errors.TooLarge(h.maxUpload)
		}
		return "", nil, errors.BadRequestWrap(err, "Expected a multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.BadRequestWrap(err, `Missing "file" field`)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.BadRequestWrap(err, "Failed to read upload")
	}
	return filepath.Base(header.Filename), data, nil
}

func (h *APIHandlers) HandleUploadSales(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	table, err := h.analytics.UploadSales(r.Context(), name, data)
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Invalid sales file"))
		return
	}
	errors.WriteSuccess(w, uploadSummary{
		Name:      table.Name,
		Hash:      table.Hash,
		Rows:      table.Rows,
		Records:   len(table.Records),
		BadDates:  table.BadDates,
		BadValues: table.BadValues,
		Columns:   table.Columns,
	})
}

func (h *APIHandlers) HandleUploadGeo(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	table, err := h.analytics.UploadGeo(r.Context(), name, data)
	if err != nil {
		h.fail(w, r, errors.BadRequestWrap(err, "Invalid GeoJSON file"))
		return
	}
	errors.WriteSuccess(w, uploadSummary{
		Name:    table.Name,
		Hash:    table.Hash,
		Records: len(table.Regions),
		Skipped: table.Skipped,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
