// Package contact aggregates contact-center survey responses into
// per-postal-code counts. Survey rows are deduplicated per (DNI, postal
// code, funnel question) and the distinct funnel-question answers observed
// in the data become the pivot columns.
package contact

import (
	"log"
	"regexp"
	"sort"

	"github.com/muniset/internal/logutil"
	"github.com/muniset/internal/table"
)

// Source column names.
const (
	ColDNI     = "DNI"
	ColPostal  = "CP"
	ColFunnel  = "funnel_Q"
	ColSession = "sessionID"
)

// Session identifiers carry a bytes-repr artifact from upstream base64
// encoding: a leading b' or b", the matching trailing quote, and trailing
// '=' padding. Stripped in that order.
var (
	reSessionPrefix  = regexp.MustCompile(`^b['"]`)
	reSessionQuote   = regexp.MustCompile(`['"]$`)
	reSessionPadding = regexp.MustCompile(`=+$`)
)

// Options configures aggregation.
type Options struct {
	Logger *log.Logger
}

// PostalCodeRow is the aggregate for one postal code. ResponseCounts is
// keyed by funnel-question value; combinations never observed for this
// postal code count zero, not null.
type PostalCodeRow struct {
	PostalCode       string
	TotalDistinctDNI int
	ResponseCounts   map[string]int
}

// Count returns the distinct-DNI count for a funnel response.
func (r PostalCodeRow) Count(question string) int {
	return r.ResponseCounts[question]
}

// Result is the pivoted contact aggregate: one row per postal code, with
// the ordered set of funnel-question values that drive the dynamic columns.
type Result struct {
	Questions []string
	Rows      []PostalCodeRow
}

// Row returns the aggregate for a postal code.
func (r *Result) Row(postalCode string) (PostalCodeRow, bool) {
	for _, row := range r.Rows {
		if row.PostalCode == postalCode {
			return row, true
		}
	}
	return PostalCodeRow{}, false
}

// Aggregate cleans and pivots the survey table. The input is not modified.
func Aggregate(tbl *table.Table, opts Options) (*Result, error) {
	work := dropAllNullColumns(tbl)

	dniIdx, ok := work.ColumnIndex(ColDNI)
	if !ok {
		return nil, &table.SchemaError{Column: ColDNI}
	}
	cpIdx, ok := work.ColumnIndex(ColPostal)
	if !ok {
		return nil, &table.SchemaError{Column: ColPostal}
	}
	qIdx, ok := work.ColumnIndex(ColFunnel)
	if !ok {
		return nil, &table.SchemaError{Column: ColFunnel}
	}

	cleanSessionIDs(work)

	deduped := dedupe(work.Rows, dniIdx, cpIdx, qIdx)
	logutil.Logf(opts.Logger, "contact: %d rows after dedup (%d duplicates dropped)",
		len(deduped), len(work.Rows)-len(deduped))

	// Phase one: infer the ordered question set, then fill fixed-shape
	// aggregates keyed by it.
	questionSet := map[string]bool{}
	dnisByCP := map[string]map[string]bool{}
	countsByCP := map[string]map[string]int{}
	for _, row := range deduped {
		dni, cp, q := cell(row, dniIdx), cell(row, cpIdx), cell(row, qIdx)
		questionSet[q] = true
		if dnisByCP[cp] == nil {
			dnisByCP[cp] = map[string]bool{}
			countsByCP[cp] = map[string]int{}
		}
		dnisByCP[cp][dni] = true
		countsByCP[cp][q]++
	}

	questions := make([]string, 0, len(questionSet))
	for q := range questionSet {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	codes := make([]string, 0, len(dnisByCP))
	for cp := range dnisByCP {
		codes = append(codes, cp)
	}
	sort.Strings(codes)

	rows := make([]PostalCodeRow, 0, len(codes))
	for _, cp := range codes {
		counts := make(map[string]int, len(questions))
		for _, q := range questions {
			counts[q] = countsByCP[cp][q]
		}
		rows = append(rows, PostalCodeRow{
			PostalCode:       cp,
			TotalDistinctDNI: len(dnisByCP[cp]),
			ResponseCounts:   counts,
		})
	}

	logutil.Logf(opts.Logger, "contact: aggregated %d postal codes over %d funnel responses",
		len(rows), len(questions))
	return &Result{Questions: questions, Rows: rows}, nil
}

// dropAllNullColumns copies tbl without the columns whose every cell is
// empty. A table with no rows keeps all columns.
func dropAllNullColumns(tbl *table.Table) *table.Table {
	keep := make([]int, 0, len(tbl.Columns))
	for i := range tbl.Columns {
		empty := len(tbl.Rows) > 0
		for _, row := range tbl.Rows {
			if i < len(row) && row[i] != "" {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, i)
		}
	}

	columns := make([]string, len(keep))
	for j, i := range keep {
		columns[j] = tbl.Columns[i]
	}
	rows := make([][]string, len(tbl.Rows))
	for r, row := range tbl.Rows {
		rows[r] = make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				rows[r][j] = row[i]
			}
		}
	}
	return table.New(columns, rows)
}

// cleanSessionIDs strips the bytes-repr artifacts in place on the working
// copy. The column is optional: it may have been dropped as all-null.
func cleanSessionIDs(work *table.Table) {
	idx, ok := work.ColumnIndex(ColSession)
	if !ok {
		return
	}
	for _, row := range work.Rows {
		if idx >= len(row) {
			continue
		}
		s := reSessionPrefix.ReplaceAllString(row[idx], "")
		s = reSessionQuote.ReplaceAllString(s, "")
		row[idx] = reSessionPadding.ReplaceAllString(s, "")
	}
}

// dedupe keeps the first row per (DNI, postal code, funnel question).
// Later duplicates are redundant answers and are discarded.
func dedupe(rows [][]string, dniIdx, cpIdx, qIdx int) [][]string {
	type key struct{ dni, cp, q string }
	seen := map[key]bool{}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		k := key{cell(row, dniIdx), cell(row, cpIdx), cell(row, qIdx)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
