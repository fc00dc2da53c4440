// Command volscreen ranks the instruments of a realized volatility panel
// without starting the server.
//
//	volscreen -data data/vol_df.csv -start 5 -end 32767 -top 10 -order top -format table
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"volexplorer/internal/config"
	"volexplorer/internal/exporter"
	"volexplorer/internal/infrastructure"
	"volexplorer/internal/panel"
	"volexplorer/internal/screener"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	data   string
	sheet  string
	start  int64
	end    int64
	top    int
	order  string
	format string
	out    string
	level  string

	startSet bool
	endSet   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("volscreen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.data, "data", config.Default().Dataset.Path, "volatility panel (.csv or .xlsx)")
	fs.StringVar(&o.sheet, "sheet", "", "xlsx sheet name (first sheet when empty)")
	fs.Int64Var(&o.start, "start", 0, "first time id of the window (defaults to the first in the panel)")
	fs.Int64Var(&o.end, "end", 0, "last time id of the window (defaults to the last in the panel)")
	fs.IntVar(&o.top, "top", config.Default().Screener.DefaultTopN, "number of instruments to return")
	fs.StringVar(&o.order, "order", "top", "top | bottom")
	fs.StringVar(&o.format, "format", "table", "table | csv | json | xlsx")
	fs.StringVar(&o.out, "out", "", "write to this file instead of stdout (required for xlsx)")
	fs.StringVar(&o.level, "log-level", "warn", "debug | info | warn | error")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			o.startSet = true
		case "end":
			o.endSet = true
		}
	})

	if o.top < 0 {
		return o, errors.New("-top must not be negative")
	}
	switch o.format {
	case "table", "csv", "json":
	case "xlsx":
		if o.out == "" {
			return o, errors.New("-format xlsx requires -out")
		}
	default:
		return o, fmt.Errorf("unknown -format %q: want table, csv, json or xlsx", o.format)
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "volscreen: %v\n", err)
		return 2
	}

	logger := infrastructure.NewLoggerWithWriter(stderr, o.level)

	order, err := screener.ParseOrder(o.order)
	if err != nil {
		fmt.Fprintf(stderr, "volscreen: %v\n", err)
		return 2
	}

	ds, err := panel.Load(o.data, panel.LoadOptions{Sheet: o.sheet})
	if err != nil {
		logger.Error("Dataset could not be loaded", slog.String("error", err.Error()))
		return 1
	}

	first, last := ds.TimeRange()
	q := screener.Query{Start: first, End: last, TopN: o.top, Order: order}
	if o.startSet {
		q.Start = o.start
	}
	if o.endSet {
		q.End = o.end
	}

	result := screener.RankBy(ds, q)
	logger.Info("screened",
		slog.String("source", ds.Source()),
		slog.Int64("start", q.Start),
		slog.Int64("end", q.End),
		slog.Int("top_n", q.TopN),
		slog.String("order", q.Order.String()),
		slog.Int("rows", len(result)))

	if err := emit(o, result, stdout); err != nil {
		logger.Error("Failed to write result", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func emit(o options, result screener.Result, stdout io.Writer) error {
	if o.out != "" {
		if o.format == "csv" || o.format == "xlsx" {
			return exporter.WriteFile(o.out, exporter.Format(o.format), exporter.ScreenerTable(result))
		}
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		stdout = f
	}

	switch o.format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return exporter.WriteCSV(stdout, exporter.ScreenerTable(result), exporter.WriteOptions{})
	default:
		return writeTable(stdout, result)
	}
}

func writeTable(w io.Writer, result screener.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSTOCK ID\tAVG REALIZED VOLATILITY\tOBSERVATIONS")
	for i, e := range result {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i+1, e.InstrumentID, strconv.FormatFloat(e.MeanVolatility, 'f', 6, 64), e.Observations)
	}
	return tw.Flush()
}
