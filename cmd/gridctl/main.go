// Command gridctl runs a grid over a JSON dataset, or over a remote rows
// API, and prints the resulting page.
//
// Every flag can also be set through the environment with a GRIDCTL_
// prefix, e.g. GRIDCTL_SIZE=50.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/goccy/go-json"
	"github.com/namsral/flag"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/grid"
	"github.com/JonMunkholm/gridengine/internal/logging"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "gridctl:", err)
		os.Exit(1)
	}
}

// filterList collects repeated -filter flags of the form field:op:value.
type filterList []string

func (f *filterList) String() string { return strings.Join(*f, " ") }

func (f *filterList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

type options struct {
	file        string
	url         string
	definitions string
	table       string
	filters     filterList
	sort        string
	dir         string
	page        int
	size        int
	format      string
	dump        bool
	timeout     time.Duration
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSetWithEnvPrefix("gridctl", "GRIDCTL", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.file, "file", "", "JSON file holding an array of row objects")
	fs.StringVar(&o.url, "url", "", "remote rows API locator (remote mode)")
	fs.StringVar(&o.definitions, "definitions", "", "grid definitions YAML giving column types")
	fs.StringVar(&o.table, "table", "", "table key in -definitions")
	fs.Var(&o.filters, "filter", "filter as field:op:value; repeatable; lists are comma separated")
	fs.StringVar(&o.sort, "sort", "", "column to sort by")
	fs.StringVar(&o.dir, "dir", "asc", "sort direction: asc or desc")
	fs.IntVar(&o.page, "page", 1, "page to show")
	fs.IntVar(&o.size, "size", grid.DefaultRowsPerPage, "rows per page; 0 shows every row")
	fs.StringVar(&o.format, "format", "table", "output format: table or json")
	fs.BoolVar(&o.dump, "dump", false, "dump the grid state after rendering")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "remote fetch timeout")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if (o.file == "") == (o.url == "") {
		return o, fmt.Errorf("exactly one of -file or -url is required")
	}
	if o.format != "table" && o.format != "json" {
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, o.logLevel, "text")

	table, err := loadTable(o)
	if err != nil {
		return err
	}

	g := grid.New(grid.Options{
		Remote:      o.url != "",
		Locator:     o.url,
		RowsPerPage: o.size,
		Transport:   pipeline.NewHTTPTransport("", o.timeout),
		Notifier:    pipeline.LogNotifier{Logger: logger},
		Logger:      logger,
	})

	if o.file != "" {
		m, err := source.LoadMemory(table, o.file, logger)
		if err != nil {
			return err
		}
		res, err := m.Rows(ctx, source.Query{})
		if err != nil {
			return err
		}
		g.Store().SetData(res.Rows)
	}

	for _, f := range o.filters {
		spec, err := parseFilter(f, table)
		if err != nil {
			return err
		}
		g.Filters().Set(spec)
	}
	if o.sort != "" {
		g.Sorter().SetSort(o.sort, core.ParseDirection(o.dir), columnType(table, o.sort, sample(g.Store().Snapshot(), o.sort)))
	}

	if err := g.Render(ctx); err != nil {
		return err
	}
	if o.page > 1 {
		if err := g.SetPage(ctx, o.page); err != nil {
			return err
		}
	}

	frame := g.LastFrame()
	switch o.format {
	case "json":
		err = writeJSON(stdout, g, frame)
	default:
		err = writeTable(stdout, g, frame, columns(table, frame.Rows))
	}
	if err != nil {
		return err
	}

	if o.dump {
		cfg := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
		cfg.Fdump(stdout, g.Sorter().State(), g.Pager().State(), g.Filters().Specs())
	}
	return nil
}

// loadTable returns the table definition named by -table, or a bare table
// when no definitions are given.
func loadTable(o options) (schema.Table, error) {
	if o.definitions == "" {
		return schema.Table{Key: "gridctl"}, nil
	}
	reg, err := schema.Load(o.definitions)
	if err != nil {
		return schema.Table{}, err
	}
	return reg.Get(o.table)
}

// parseFilter parses field:op:value. Values of in and between are comma
// separated lists.
func parseFilter(s string, table schema.Table) (core.ConditionSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return core.ConditionSpec{}, fmt.Errorf("filter %q: want field:op:value", s)
	}
	field, value := parts[0], parts[2]
	op, ok := core.ParseOperator(parts[1])
	if !ok {
		return core.ConditionSpec{}, fmt.Errorf("filter %q: unknown operator %q", s, parts[1])
	}

	spec := core.ConditionSpec{
		Field:     field,
		Operator:  op,
		FieldType: columnType(table, field, value),
		Value:     value,
	}
	if op == core.OpIn || op == core.OpBetween {
		items := strings.Split(value, ",")
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = strings.TrimSpace(item)
		}
		spec.Value = list
	}
	if op == core.OpLike {
		spec.FieldType = core.FieldString
	}
	return spec, nil
}

// columnType returns the declared type of field, or guesses it from sample.
func columnType(table schema.Table, field, sample string) core.FieldType {
	if c, ok := table.Column(field); ok {
		return c.FieldType()
	}
	sample = strings.TrimSpace(strings.Split(sample, ",")[0])
	if sample == "" {
		return core.FieldString
	}
	if _, err := strconv.ParseFloat(sample, 64); err == nil {
		return core.FieldNumber
	}
	if _, ok := core.ParseDate(sample); ok {
		return core.FieldDate
	}
	return core.FieldString
}

// sample returns the first non-empty value of field in rows as a string.
func sample(rows []core.Row, field string) string {
	for _, r := range rows {
		switch v := core.Lookup(r, field).(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// columns lists the table's fields, or the sorted keys seen in rows.
func columns(table schema.Table, rows []core.Row) []string {
	if len(table.Columns) > 0 {
		return table.Fields()
	}
	seen := make(map[string]bool)
	var fields []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				fields = append(fields, k)
			}
		}
	}
	sort.Strings(fields)
	return fields
}

func writeTable(w io.Writer, g *grid.Grid, frame grid.Frame, fields []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(fields, "\t"))
	for _, r := range frame.Rows {
		cells := make([]string, len(fields))
		for i, f := range fields {
			if v := core.Lookup(r, f); v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d of %d rows, page %d of %d\n",
		len(frame.Rows), frame.Total, g.Pager().CurrentPage(), g.Pager().TotalPages())
	return err
}

func writeJSON(w io.Writer, g *grid.Grid, frame grid.Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(source.Result{
		Rows:       frame.Rows,
		Total:      frame.Total,
		Page:       g.Pager().CurrentPage(),
		Size:       g.Pager().State().RowsPerPage,
		TotalPages: g.Pager().TotalPages(),
	})
}
