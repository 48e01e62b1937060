// Package crime normalizes the crimes-by-municipality table. The source
// file carries a two-row composite header (crime type over reporting
// period) where a crime-type label spans several period sub-columns, with
// the continuation cells left blank. Normalization flattens that header
// into single {CrimeType}_{Year} column names and cleans the municipality
// column.
package crime

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/muniset/internal/logutil"
	"github.com/muniset/internal/table"
)

// MunicipalityColumn is the canonical name of the geography column.
const MunicipalityColumn = "Municipio"

// droppedTotalColumn is a known-junk aggregate column in the source file.
// Its flattened name is stable because blank header cells get deterministic
// synthetic labels, but the embedded 31 is the column's position in the
// published file: if upstream inserts or removes a column before it, the
// name no longer matches and the junk column passes through.
const droppedTotalColumn = "TOTAL_INFRACCIONES_PENALES_31_level_1"

var (
	rePlaceholder = regexp.MustCompile(`^Unnamed`)
	reMuniPrefix  = regexp.MustCompile(`^- Municipio de\s*`)
)

// Options configures normalization.
type Options struct {
	Logger *log.Logger
}

// Record is one municipality's crime counts. Counts is keyed by the
// flattened column name; a missing key is a null (unparseable) value.
type Record struct {
	Municipality string
	Counts       map[string]float64
}

// Table is the normalized crime dataset. Columns lists the final column
// names in order, MunicipalityColumn first.
type Table struct {
	Columns []string
	Records []Record
}

// Normalize flattens a two-row-header raw table into a crime Table.
// The input is not modified.
func Normalize(raw *table.Raw, opts Options) (*Table, error) {
	if len(raw.Header) != 2 {
		return nil, &table.FormatError{Msg: "crime table requires a two-row header, got " + strconv.Itoa(len(raw.Header))}
	}
	top := forwardFill(raw.Header[0])
	bottom := raw.Header[1]
	if len(top) == 0 || len(bottom) == 0 {
		return nil, &table.SchemaError{Column: MunicipalityColumn}
	}

	ncols := len(top)
	if len(bottom) < ncols {
		ncols = len(bottom)
	}

	// Final name per source column. Collisions keep the first position in
	// the column order but the last column's values win.
	names := make([]string, ncols)
	names[0] = MunicipalityColumn
	columns := []string{MunicipalityColumn}
	seen := map[string]bool{MunicipalityColumn: true}
	for i := 1; i < ncols; i++ {
		flat := strings.TrimSpace(top[i]) + "_" + strings.TrimSpace(bottom[i])
		name := refineColumnName(flat)
		if name == droppedTotalColumn {
			names[i] = ""
			continue
		}
		names[i] = name
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	records := make([]Record, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		rec := Record{Counts: make(map[string]float64, ncols-1)}
		if len(row) > 0 {
			rec.Municipality = strings.TrimSpace(reMuniPrefix.ReplaceAllString(row[0], ""))
		}
		for i := 1; i < ncols && i < len(row); i++ {
			name := names[i]
			if name == "" {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err == nil {
				rec.Counts[name] = v
			} else {
				// Last write wins for colliding names, nulls included.
				delete(rec.Counts, name)
			}
		}
		records = append(records, rec)
	}

	logutil.Logf(opts.Logger, "crime: normalized %d rows into %d columns", len(records), len(columns))
	return &Table{Columns: columns, Records: records}, nil
}

// forwardFill replaces placeholder labels with the nearest preceding real
// label, carrying a crime-type name rightward across its period sub-columns.
// The input slice is left untouched.
func forwardFill(labels []string) []string {
	out := make([]string, len(labels))
	last := ""
	for i, l := range labels {
		if rePlaceholder.MatchString(l) && last != "" {
			out[i] = last
		} else {
			out[i] = l
			if !rePlaceholder.MatchString(l) {
				last = l
			}
		}
	}
	return out
}

// refineColumnName turns a flattened "{crime-type-raw}_{period-raw}" pair
// into "{CrimeType}_{Year}": the enumeration prefix is stripped from the
// crime type ("1.-Homicidios dolosos" -> "Homicidios dolosos"), the
// trailing year token is taken from the period, and spaces become
// underscores.
func refineColumnName(flat string) string {
	parts := strings.SplitN(flat, "_", 2)
	if len(parts) != 2 {
		return flat
	}
	crimeType, period := parts[0], parts[1]
	if dot := strings.Index(crimeType, "."); dot >= 0 {
		crimeType = crimeType[dot+1:]
	}
	crimeType = strings.Trim(crimeType, "- .")

	year := period
	if fields := strings.Fields(period); len(fields) > 0 {
		year = fields[len(fields)-1]
	}
	return strings.ReplaceAll(crimeType, " ", "_") + "_" + year
}
