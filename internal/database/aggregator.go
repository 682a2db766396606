package database

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Aman-CERP/buscador/internal/document"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// ColumnFailure records a column whose projection query failed.
type ColumnFailure struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// Report summarizes one aggregation pass.
type Report struct {
	Tables        int             `json:"tables"`
	SkippedTables int             `json:"skipped_tables"`
	Columns       int             `json:"columns"`
	Values        int             `json:"values"`
	Failures      []ColumnFailure `json:"failures,omitempty"`
}

// EmitFunc receives each database value as a LogicalDocument.
// Returning an error aborts the pass.
type EmitFunc func(doc document.LogicalDocument) error

// Aggregator walks every indexable column of a database.
type Aggregator struct {
	source Introspector
}

// NewAggregator returns an Aggregator reading from source.
func NewAggregator(source Introspector) *Aggregator {
	return &Aggregator{source: source}
}

// Run streams one document per non-empty value to emit.
// Document IDs count up from 1 across the whole pass.
//
// A failing table listing is returned as an error. A failing column listing
// or column query is recorded in the report and only that table or column is
// skipped. Errors returned by emit, and context cancellation, abort the pass.
func (a *Aggregator) Run(ctx context.Context, emit EmitFunc) (*Report, error) {
	start := time.Now()
	report := &Report{}

	tables, err := a.source.ListTables(ctx)
	if err != nil {
		return report, err
	}

	var counter int
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cols, err := a.source.ListColumns(ctx, table)
		if err != nil {
			slog.Warn("database_table_skipped",
				append([]any{slog.String("table", table)}, berrors.LogAttrs(err)...)...)
			report.SkippedTables++
			report.Failures = append(report.Failures, ColumnFailure{Table: table, Reason: err.Error()})
			continue
		}

		indexable := indexableColumns(cols)
		if len(indexable) == 0 {
			slog.Debug("database_table_no_text_columns", slog.String("table", table))
			report.SkippedTables++
			continue
		}
		report.Tables++

		for _, col := range indexable {
			report.Columns++
			var emitErr error
			err := a.source.QueryColumn(ctx, table, col.Name, func(value string) error {
				counter++
				report.Values++
				emitErr = emit(document.LogicalDocument{
					ID:          strconv.Itoa(counter),
					Kind:        document.SourceDatabaseValue,
					DisplayName: table + "." + col.Name,
					Table:       table,
					Column:      col.Name,
					Blocks:      []document.ContentBlock{{Text: value}},
				})
				return emitErr
			})
			if err == nil {
				continue
			}
			if emitErr != nil {
				return report, emitErr
			}
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			slog.Warn("database_column_skipped",
				append([]any{
					slog.String("table", table),
					slog.String("column", col.Name),
				}, berrors.LogAttrs(err)...)...)
			report.Failures = append(report.Failures, ColumnFailure{
				Table:  table,
				Column: col.Name,
				Reason: err.Error(),
			})
		}
	}

	slog.Info("database_scan_complete",
		slog.String("source", a.source.Name()),
		slog.Int("tables", report.Tables),
		slog.Int("columns", report.Columns),
		slog.Int("values", report.Values),
		slog.Int("failures", len(report.Failures)),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

func indexableColumns(cols []Column) []Column {
	var out []Column
	for _, c := range cols {
		if Classify(c.DeclaredType).Indexed() {
			out = append(out, c)
		}
	}
	return out
}
