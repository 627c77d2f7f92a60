package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/a-h/templ"
)

// ShipmentsParams is the data behind the shipments page.
type ShipmentsParams struct {
	Shipments []core.Shipment
	Sort      core.SortSpec
	Location  *time.Location // for Date Created; nil means UTC
}

type column struct {
	key   string // sort key, empty when not sortable
	title string
}

var shipmentColumns = []column{
	{core.SortByID, "Shipment ID"},
	{core.SortByName, "Recipient"},
	{core.SortByCompany, "Company"},
	{core.SortByStreet, "Street"},
	{"", "Postal Code"},
	{core.SortByCity, "City"},
	{"", "Corrected City"},
	{core.SortByCreatedAt, "Created"},
}

// ShipmentsPage renders the full page: toolbar, import form and table.
func ShipmentsPage(p ShipmentsParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>Shipments</title></head><body>`)
		hw.raw(`<header><h1>Shipments</h1>`)
		hw.raw(`<nav><a href="/api/template">Download template</a> `)
		hw.raw(`<a href="/api/shipments/export">Export all</a></nav></header>`)

		hw.raw(`<section id="import"><h2>Import CSV</h2>`)
		hw.raw(`<form id="import-form" action="/api/import" method="post" enctype="multipart/form-data">`)
		hw.raw(`<input type="file" name="file" accept=".csv,text/csv" required> `)
		hw.raw(`<button type="submit">Import</button></form>`)
		hw.raw(`<progress id="import-progress" max="100" value="0" hidden></progress>`)
		hw.raw(`<div id="import-result"></div></section>`)

		hw.raw(`<main id="shipments">`)
		hw.component(ctx, ShipmentsTable(p))
		hw.raw(`</main>`)

		hw.raw(pageScript)
		hw.raw(`</body></html>`)
		return hw.err
	})
}

// ShipmentsTable renders the sortable, selectable shipments table.
func ShipmentsTable(p ShipmentsParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		loc := p.Location
		if loc == nil {
			loc = time.UTC
		}

		if len(p.Shipments) == 0 {
			hw.raw(`<p class="empty">No shipments yet. Import a CSV file to get started.</p>`)
			return hw.err
		}

		hw.raw(`<form id="bulk-form"><table><thead><tr>`)
		hw.raw(`<th><input type="checkbox" id="select-all" aria-label="Select all"></th>`)
		for _, c := range shipmentColumns {
			hw.raw(`<th>`)
			if c.key == "" {
				hw.text(c.title)
			} else {
				hw.rawf(`<a href="%s">`, templ.EscapeString(sortHref(p.Sort, c.key)))
				hw.text(c.title)
				hw.raw(sortIndicator(p.Sort, c.key))
				hw.raw(`</a>`)
			}
			hw.raw(`</th>`)
		}
		hw.raw(`<th>Confidence</th></tr></thead><tbody>`)

		for _, sh := range p.Shipments {
			hw.rawf(`<tr data-id="%s">`, templ.EscapeString(sh.ID))
			hw.rawf(`<td><input type="checkbox" name="ids" value="%s"></td>`, templ.EscapeString(sh.ID))
			for _, v := range []string{
				sh.ID, sh.Name, sh.Company, sh.Street, sh.PostalCode, sh.City, sh.CorrectedCity,
				sh.CreatedAt.In(loc).Format(core.ExportDateLayout),
			} {
				hw.raw(`<td>`)
				hw.text(v)
				hw.raw(`</td>`)
			}
			hw.raw(`<td>`)
			hw.text(FormatConfidence(sh.Confidence))
			hw.raw(`</td></tr>`)
		}

		hw.raw(`</tbody></table>`)
		hw.raw(`<button type="button" id="delete-selected">Delete selected</button> `)
		hw.raw(`<button type="button" id="export-selected">Export selected</button>`)
		hw.raw(`</form>`)
		return hw.err
	})
}

// ImportSummary renders the notification shown when an import finishes.
func ImportSummary(res *core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		if res.Stats == nil {
			hw.component(ctx, ErrorAlert(res.Error, "", ""))
			return hw.err
		}

		st := res.Stats
		hw.rawf(`<div class="import-summary outcome-%s">`, st.Outcome())
		hw.raw(`<h3>`)
		hw.text(st.Title())
		hw.raw(`</h3><p>`)
		hw.text(st.Description())
		hw.raw(`</p>`)
		if len(st.Errors) > 0 {
			hw.raw(`<ul class="row-errors">`)
			for _, e := range st.Errors {
				hw.raw(`<li>`)
				hw.text(e.Message)
				hw.raw(`</li>`)
			}
			hw.raw(`</ul>`)
		}
		hw.raw(`</div>`)
		return hw.err
	})
}

// FormatConfidence shows a confidence as a whole percentage, or "-" when
// the correction service sent none.
func FormatConfidence(c *float64) string {
	if c == nil {
		return "-"
	}
	return strconv.Itoa(int(*c*100+0.5)) + "%"
}

// sortHref links to the table sorted by key, flipping the direction when
// key is already the active column.
func sortHref(current core.SortSpec, key string) string {
	dir := "asc"
	if current.Column == key && !current.Desc {
		dir = "desc"
	}
	q := url.Values{"sort": {key}, "dir": {dir}}
	return "/?" + q.Encode()
}

func sortIndicator(current core.SortSpec, key string) string {
	if current.Column != key {
		return ""
	}
	if current.Desc {
		return ` &#9660;`
	}
	return ` &#9650;`
}

// pageScript wires the import form to the progress stream and reloads the
// table when the change feed fires.
var pageScript = fmt.Sprintf(`<script>
(function () {
  var form = document.getElementById('import-form');
  var bar = document.getElementById('import-progress');
  var out = document.getElementById('import-result');

  function reload() {
    fetch(location.pathname + location.search, {headers: {'HX-Request': 'true'}})
      .then(function (r) { return r.text(); })
      .then(function (html) { document.getElementById('shipments').innerHTML = html; });
  }

  form.addEventListener('submit', function (ev) {
    ev.preventDefault();
    out.innerHTML = '';
    fetch(form.action, {method: 'POST', body: new FormData(form), headers: {'Accept': 'application/json'}})
      .then(function (r) { return r.json().then(function (b) { return {ok: r.ok, body: b}; }); })
      .then(function (res) {
        if (!res.ok) { out.textContent = res.body.message + ' (' + res.body.code + ')'; return; }
        var id = res.body.import_id;
        bar.hidden = false; bar.value = 0;
        var es = new EventSource('/api/import/' + id + '/progress');
        es.addEventListener('progress', function (e) { bar.value = JSON.parse(e.data).percent; });
        es.addEventListener('complete', function () {
          es.close(); bar.hidden = true; form.reset();
          fetch('/api/import/' + id + '/result', {headers: {'HX-Request': 'true'}})
            .then(function (r) { return r.text(); })
            .then(function (html) { out.innerHTML = html; });
        });
      });
  });

  function selected() {
    return Array.prototype.map.call(document.querySelectorAll('input[name=ids]:checked'), function (c) { return c.value; });
  }

  document.addEventListener('click', function (ev) {
    if (ev.target.id === 'select-all') {
      document.querySelectorAll('input[name=ids]').forEach(function (c) { c.checked = ev.target.checked; });
    } else if (ev.target.id === 'delete-selected') {
      var ids = selected();
      if (!ids.length || !confirm('Delete ' + ids.length + ' shipment(s)?')) { return; }
      fetch('/api/shipments/delete', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({ids: ids})});
    } else if (ev.target.id === 'export-selected') {
      var picked = selected();
      if (picked.length) { location.href = '/api/shipments/export?ids=' + encodeURIComponent(picked.join(',')); }
    }
  });

  new EventSource('/api/events').addEventListener(%q, reload);
})();
</script>`, core.ChangeEvent)
