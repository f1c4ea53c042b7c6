package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Market Share Dashboard</title>
<script type="module" src="` + datastarScript + `"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f4f6f8; color: #1d2733; }
header { background: #0b5d3b; color: #fff; padding: 1rem 2rem; }
header p { margin: .25rem 0 0; opacity: .8; }
main { padding: 1.5rem 2rem; display: grid; gap: 1.5rem; }
.card { background: #fff; border-radius: 8px; padding: 1rem 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.filters { display: flex; flex-wrap: wrap; gap: 1rem; align-items: end; }
.filters label { display: grid; gap: .25rem; font-size: .85rem; }
.modern-table { width: 100%; border-collapse: collapse; font-size: .9rem; }
.modern-table th, .modern-table td { padding: .4rem .6rem; border-bottom: 1px solid #e3e8ee; text-align: left; }
.category-badge { background: #e6f2ec; border-radius: 4px; padding: 0 .4rem; }
#dashboard-status.error { color: #b00020; }
.unmatched { color: #8a6d3b; font-size: .85rem; }
</style>
</head>
`

// Dashboard renders the single-page dashboard. The filter widgets are bound
// to Datastar signals; every change requests /sse/refresh, which patches the
// city table and status line and pushes chart and map data as signals.
func Dashboard(products []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString(pageHead)
		b.WriteString(`<body data-signals="{product: '`)
		if len(products) > 0 {
			b.WriteString(templ.EscapeString(products[0]))
		}
		b.WriteString(`', start: '', end: '', manager: '', region: '', _minDate: '', _maxDate: '', _regionsData: [], _seriesData: [], _mapData: {}, _totals: {}}"`)
		b.WriteString(` data-on-load="@get('/sse/filters'); @get('/sse/refresh')">
<header>
<h1>Market Share Dashboard</h1>
<p>Own sales against the total market, by city, region and day</p>
</header>
<main>
<section class="card">
<h2>Filters</h2>
<div class="filters" data-on-change="@get('/sse/refresh')">
<label>Product<select data-bind-product>`)
		for _, p := range products {
			e := templ.EscapeString(p)
			b.WriteString(`<option value="` + e + `">` + e + `</option>`)
		}
		b.WriteString(`</select></label>
<label>From<input type="date" data-bind-start data-attr-min="$_minDate" data-attr-max="$_maxDate"></label>
<label>To<input type="date" data-bind-end data-attr-min="$_minDate" data-attr-max="$_maxDate"></label>
<label>Region<input type="text" data-bind-region></label>
<label>Manager<input type="text" data-bind-manager></label>
</div>
<div id="dashboard-status"></div>
</section>
<section class="card">
<h2>City Market Share</h2>
<div id="city-content">Loading...</div>
</section>
<section class="card">
<h2>Daily Own Sales vs Market</h2>
<img alt="time series" data-attr-src="'/api/timeseries.png?product=' + $product + '&start=' + $start + '&end=' + $end + '&manager=' + encodeURIComponent($manager) + '&region=' + encodeURIComponent($region)">
</section>
<section class="card">
<h2>Regions</h2>
<pre data-text="JSON.stringify($_regionsData, null, 1)"></pre>
</section>
<section class="card">
<h2>Export and Upload</h2>
<p><a data-attr-href="'/api/export.xlsx?product=' + $product + '&start=' + $start + '&end=' + $end">Download workbook</a>
 | <a data-attr-href="'/api/map?product=' + $product">Map GeoJSON</a></p>
<form method="post" action="/api/upload/sales" enctype="multipart/form-data">
<label>Sales file (CSV/XLSX) <input type="file" name="file" accept=".csv,.xlsx,.xlsm"></label>
<button type="submit">Upload sales</button>
</form>
<form method="post" action="/api/upload/geo" enctype="multipart/form-data">
<label>Boundaries (GeoJSON) <input type="file" name="file" accept=".json,.geojson"></label>
<button type="submit">Upload boundaries</button>
</form>
</section>
</main>
</body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
