package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/starfederation/datastar-go/datastar"

	"marketshare-dashboard/internal/errors"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/models"
	"marketshare-dashboard/internal/services"
)

const (
	maxTableRows = 50
	signalsParam = "datastar"
)

var tableFuncs = template.FuncMap{
	"units": func(v float64) string { return humanize.Commaf(v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
}

var cityTableTemplate = template.Must(template.New("cityTable").Funcs(tableFuncs).Parse(`
<div id="city-content">
<table class="modern-table">
<thead><tr><th>City</th><th>Region</th><th>Manager</th><th>Own</th><th>Competitor</th><th>Market</th><th>Share</th></tr></thead>
<tbody>
{{range .Cities}}<tr>
<td>{{.City}}</td>
<td><span class="category-badge">{{.Region}}</span></td>
<td>{{.Manager}}</td>
<td><strong>{{units .Own}}</strong></td>
<td>{{units .Competitor}}</td>
<td>{{units .Market}}</td>
<td>{{pct .Share}}</td>
</tr>{{end}}
</tbody>
<tfoot><tr><th colspan="3">Total{{if .Truncated}} ({{.Shown}} of {{.Count}} cities shown){{end}}</th>
<th>{{units .Totals.Own}}</th><th>{{units .Totals.Competitor}}</th><th>{{units .Totals.Market}}</th><th>{{pct .Totals.Share}}</th></tr></tfoot>
</table>
{{if .Unmatched}}<p class="unmatched">No boundary for: {{range $i, $c := .Unmatched}}{{if $i}}, {{end}}{{$c}}{{end}}</p>{{end}}
</div>`))

var statusTemplate = template.Must(template.New("status").Parse(
	`<div id="dashboard-status" class="{{.Class}}">{{.Message}}</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type cityTableData struct {
	Cities    []models.CityAggregate
	Totals    models.Totals
	Unmatched []string
	Shown     int
	Count     int
	Truncated bool
}

func (h *SSEHandlers) renderCityTable(summary models.CitySummary, unmatched []string) (string, error) {
	data := cityTableData{
		Cities:    summary.Cities,
		Totals:    summary.Totals,
		Unmatched: unmatched,
		Count:     len(summary.Cities),
	}
	if len(data.Cities) > maxTableRows {
		data.Cities = data.Cities[:maxTableRows]
		data.Truncated = true
	}
	data.Shown = len(data.Cities)

	var buf strings.Builder
	err := cityTableTemplate.Execute(&buf, data)
	return buf.String(), err
}

func renderStatus(class, message string) string {
	var buf strings.Builder
	statusTemplate.Execute(&buf, struct{ Class, Message string }{class, message})
	return buf.String()
}

// readFilter takes the filter from Datastar's signal payload when the
// browser sent one and from plain query parameters otherwise.
func readFilter(r *http.Request) (market.Filter, error) {
	if r.Method == http.MethodGet && !r.URL.Query().Has(signalsParam) {
		return ParseFilter(r)
	}
	var signals filterSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return market.Filter{}, errors.BadRequestWrap(err, "Invalid signals")
	}
	return signals.filter()
}

// HandleRefresh recomputes the dashboard for the current filter signals and
// patches the city table, the status line and the chart/map signals.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	f, filterErr := readFilter(r)
	sse := datastar.NewSSE(w, r)

	if filterErr != nil {
		h.patchError(sse, filterErr)
		return
	}
	d, err := h.analytics.Dashboard(r.Context(), f)
	if err != nil {
		h.patchError(sse, err)
		return
	}

	html, err := h.renderCityTable(d.Cities, d.Unmatched)
	if err != nil {
		h.logger.Error("render city table", "error", err)
		return
	}
	sse.PatchElements(html)

	mapData, err := json.Marshal(market.FeatureCollection(d.Joined))
	if err != nil {
		h.logger.Error("marshal map data", "error", err)
		return
	}

	// Underscored signals stay in the browser and are not echoed back on
	// the next refresh.
	allSignals, err := json.Marshal(map[string]any{
		"_regionsData": d.Regions,
		"_seriesData":  d.TimeSeries,
		"_totals":      d.Cities.Totals,
		"_mapData":     json.RawMessage(mapData),
	})
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	sse.PatchElements(renderStatus("ok", fmt.Sprintf("%s: %d cities, %d boundaries",
		f.Product, len(d.Cities.Cities), len(d.Joined))))

	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
}

// HandleFilters patches the option lists of the filter widgets, used after
// an upload changes the available regions and managers.
func (h *SSEHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	opts := h.analytics.Options()
	signals := map[string]any{
		"_optionRegions":  opts.Regions,
		"_optionManagers": opts.Managers,
		"_optionProducts": opts.Products,
	}
	if !opts.Start.IsZero() {
		signals["_minDate"] = opts.Start.Format(dateLayout)
		signals["_maxDate"] = opts.End.Format(dateLayout)
	}
	jsonData, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal filter options", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
}

// patchError reports a failed refresh in the status line; the table and
// charts keep their previous content.
func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, err error) {
	appErr := toAppError(err)
	if appErr.Code == errors.CodeInternal {
		h.logger.Error("dashboard refresh failed", "error", err)
	}
	message := appErr.Message
	if appErr.Details != "" {
		message += ": " + appErr.Details
	}
	sse.PatchElements(renderStatus("error", message))
}
