package web

// view.go holds the HTML components of the table pages. They are plain
// templ components; every dynamic string goes through templ.EscapeString.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #e5e7eb;padding:.35rem .6rem;text-align:left}
th a{color:inherit;text-decoration:none}
tr.filters input{width:100%;box-sizing:border-box}
td.empty{text-align:center;color:#6b7280}
.notice{padding:.5rem;margin-bottom:1rem;border-radius:4px;background:#fef3c7}
.notice.error{background:#fee2e2}
nav.pages a,nav.pages span{margin-right:.4rem}
nav.pages span.current{font-weight:bold}`

func esc(s string) string { return templ.EscapeString(s) }

// document wraps body in the page skeleton.
func document(title string, body func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		b.WriteString(esc(title))
		b.WriteString(`</title><style>`)
		b.WriteString(pageStyle)
		b.WriteString(`</style></head><body>`)
		body(&b)
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// indexPage lists the tables by group.
func indexPage(tables []schema.Table) templ.Component {
	return document("Tables", func(b *strings.Builder) {
		b.WriteString(`<h1>Tables</h1>`)
		if len(tables) == 0 {
			b.WriteString(`<p>No tables defined.</p>`)
			return
		}

		group := "\x00"
		for _, t := range tables {
			if t.Group != group {
				if group != "\x00" {
					b.WriteString(`</ul>`)
				}
				group = t.Group
				if group != "" {
					fmt.Fprintf(b, `<h2>%s</h2>`, esc(group))
				}
				b.WriteString(`<ul>`)
			}
			fmt.Fprintf(b, `<li><a href="/tables/%s">%s</a></li>`,
				esc(url.PathEscape(t.Key)), esc(t.Label()))
		}
		b.WriteString(`</ul>`)
	})
}

// tableRows renders the body rows of a table. It is the grid's renderer.
func tableRows(t schema.Table, rows []core.Row) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		if len(rows) == 0 {
			fmt.Fprintf(&b, `<tr><td class="empty" colspan="%d">No rows</td></tr>`, max(len(t.Columns), 1))
		}
		for _, row := range rows {
			b.WriteString(`<tr>`)
			for _, c := range t.Columns {
				b.WriteString(`<td>`)
				b.WriteString(esc(formatCell(core.Lookup(row, c.Field), c.FieldType())))
				b.WriteString(`</td>`)
			}
			b.WriteString(`</tr>`)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// tablePage renders a table view: notices, sortable headers, the filter
// form, the rows drawn by the grid, the row count and the page links.
func tablePage(v *tableView) templ.Component {
	t := v.table
	return document(t.Label(), func(b *strings.Builder) {
		b.WriteString(`<nav><a href="/">Tables</a></nav>`)
		fmt.Fprintf(b, `<h1>%s</h1>`, esc(t.Label()))

		for _, n := range v.noticeList() {
			class := "notice"
			if n.Level >= slog.LevelError {
				class += " error"
			}
			fmt.Fprintf(b, `<div class="%s">%s</div>`, class, esc(n.Message))
		}

		sorter := v.grid.Sorter()
		b.WriteString(`<form method="get"><table><thead><tr>`)
		for _, c := range t.Columns {
			if !c.Sortable {
				fmt.Fprintf(b, `<th>%s</th>`, esc(c.Label()))
				continue
			}
			dir := core.Asc
			indicator := ""
			switch sorter.Indicator(c.Field) {
			case core.Asc:
				dir, indicator = core.Desc, " ▲"
			case core.Desc:
				indicator = " ▼"
			}
			href := link(v.query, map[string]string{
				source.ParamSort:      c.Field,
				source.ParamDirection: string(dir),
				source.ParamPage:      "",
			})
			fmt.Fprintf(b, `<th><a href="%s">%s%s</a></th>`, esc(href), esc(c.Label()), indicator)
		}
		b.WriteString(`</tr><tr class="filters">`)
		for _, c := range t.Columns {
			b.WriteString(`<td>`)
			if c.Filterable() {
				writeFilterInput(b, v, c)
			}
			b.WriteString(`</td>`)
		}
		b.WriteString(`</tr></thead><tbody>`)
		b.WriteString(v.body.String())
		b.WriteString(`</tbody></table>`)

		if st := sorter.State(); st.Active() {
			fmt.Fprintf(b, `<input type="hidden" name="%s" value="%s">`, source.ParamSort, esc(st.Column))
			fmt.Fprintf(b, `<input type="hidden" name="%s" value="%s">`, source.ParamDirection, esc(string(st.Direction)))
		}
		b.WriteString(`<button type="submit">Filter</button></form>`)

		fmt.Fprintf(b, `<p class="count">Showing %d of %d rows</p>`, v.shown, v.total)
		writePageLinks(b, v)

		export := "/tables/" + url.PathEscape(t.Key) + "/export.csv" +
			link(v.query, map[string]string{source.ParamPage: ""})
		fmt.Fprintf(b, `<p><a href="%s">Export CSV</a></p>`, esc(strings.TrimSuffix(export, "?")))
	})
}

func writeFilterInput(b *strings.Builder, v *tableView, c schema.Column) {
	name := esc(c.Field)
	opts := v.grid.Options(c.Field)
	listAttr := ""
	if len(opts) > 0 {
		listAttr = fmt.Sprintf(` list="options-%s"`, name)
	}
	fmt.Fprintf(b, `<input type="search" name="%s" value="%s" placeholder="%s"%s>`,
		name, esc(strings.Join(v.query[c.Field], ",")), esc(string(c.Operator())), listAttr)
	if len(opts) == 0 {
		return
	}
	fmt.Fprintf(b, `<datalist id="options-%s">`, name)
	for _, o := range opts {
		fmt.Fprintf(b, `<option value="%s">`, esc(o))
	}
	b.WriteString(`</datalist>`)
}

func writePageLinks(b *strings.Builder, v *tableView) {
	pager := v.grid.Pager()
	total := pager.TotalPages()
	if total <= 1 {
		return
	}
	current := pager.CurrentPage()

	pageLink := func(n int, label string) {
		href := link(v.query, map[string]string{source.ParamPage: strconv.Itoa(n)})
		fmt.Fprintf(b, `<a href="%s">%s</a>`, esc(href), esc(label))
	}

	b.WriteString(`<nav class="pages">`)
	if current > 1 {
		pageLink(current-1, "Previous")
	}
	for _, n := range pager.DisplayPages() {
		if n == current {
			fmt.Fprintf(b, `<span class="current">%d</span>`, n)
			continue
		}
		pageLink(n, strconv.Itoa(n))
	}
	if current < total {
		pageLink(current+1, "Next")
	}
	b.WriteString(`</nav>`)
}

// link returns a query-only URL built from query with set applied. Empty
// values remove the key.
func link(query url.Values, set map[string]string) string {
	q := make(url.Values, len(query))
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	for k, v := range set {
		if v == "" {
			q.Del(k)
			continue
		}
		q.Set(k, v)
	}
	if len(q) == 0 {
		return "?"
	}
	return "?" + q.Encode()
}

// formatCell formats a cell value for display.
func formatCell(v any, ft core.FieldType) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.IsZero() {
			return ""
		}
		if ft == core.FieldDateTime {
			return val.Format("2006-01-02 15:04")
		}
		return val.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", val)
	}
}
