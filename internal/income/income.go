// Package income cleans household-income-by-census-section data and
// imputes missing totals. The source rows carry a composite geography field
// ("28001 Madrid"), free-text district/section descriptors with trailing
// numeric codes, and a total-income field where a run of dots stands for a
// missing value.
package income

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/muniset/internal/logutil"
	"github.com/muniset/internal/table"
)

// Source column names.
const (
	ColGeography = "Municipios"
	ColDistrict  = "Distritos"
	ColSection   = "Secciones"
	ColPeriod    = "Periodo"
	ColTotal     = "Total"
)

var (
	reGeography = regexp.MustCompile(`^(\d{5})\s+(.*)$`)
	reDistrict  = regexp.MustCompile(`distrito\s+(\d+)$`)
	reSection   = regexp.MustCompile(`sección\s+(\d+)$`)
	reDots      = regexp.MustCompile(`^\.+$`)
)

// DefaultPeriods are the reporting years kept by default; rows for any
// other period are discarded.
var DefaultPeriods = []int{2019, 2020}

// NullFloat is a float64 that may be missing.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Value builds a present NullFloat.
func Value(f float64) NullFloat {
	return NullFloat{Float64: f, Valid: true}
}

// Null is the missing NullFloat.
var Null = NullFloat{}

// Options configures cleaning and imputation.
type Options struct {
	// Periods restricts rows to these years. Nil means DefaultPeriods.
	Periods []int
	Logger  *log.Logger
}

func (o Options) periods() []int {
	if o.Periods == nil {
		return DefaultPeriods
	}
	return o.Periods
}

// Record is one cleaned census-section row. String fields are "" when the
// source value did not match its extraction pattern.
type Record struct {
	Municipality string
	PostalCode   string
	DistrictCode string
	SectionCode  string
	Period       int
	TotalIncome  NullFloat
}

// Aggregate is one (municipality, postal code, period) group with the
// median of its imputed totals. MedianImputedIncome is null only in the
// degenerate case where every total in the dataset was null.
type Aggregate struct {
	Municipality        string
	PostalCode          string
	Period              int
	MedianImputedIncome NullFloat
}

// Process runs the full income pipeline: clean, impute, aggregate.
func Process(tbl *table.Table, opts Options) ([]Aggregate, error) {
	records, err := Clean(tbl, opts)
	if err != nil {
		return nil, err
	}
	imputed := Impute(records, opts)
	return AggregateMedians(imputed), nil
}

// Clean filters the table to the periods of interest and extracts typed
// fields. Per-value extraction failures become nulls; only a missing
// period, geography or total column is fatal. The input is not modified.
func Clean(tbl *table.Table, opts Options) ([]Record, error) {
	geoIdx, ok := tbl.ColumnIndex(ColGeography)
	if !ok {
		return nil, &table.SchemaError{Column: ColGeography}
	}
	periodIdx, ok := tbl.ColumnIndex(ColPeriod)
	if !ok {
		return nil, &table.SchemaError{Column: ColPeriod}
	}
	totalIdx, ok := tbl.ColumnIndex(ColTotal)
	if !ok {
		return nil, &table.SchemaError{Column: ColTotal}
	}
	// District and section descriptors are optional; absent columns just
	// leave the codes null.
	distIdx, hasDist := tbl.ColumnIndex(ColDistrict)
	sectIdx, hasSect := tbl.ColumnIndex(ColSection)

	keep := map[int]bool{}
	for _, p := range opts.periods() {
		keep[p] = true
	}

	records := make([]Record, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		period, err := strconv.Atoi(strings.TrimSpace(cell(row, periodIdx)))
		if err != nil || !keep[period] {
			continue
		}

		rec := Record{Period: period}
		if m := reGeography.FindStringSubmatch(cell(row, geoIdx)); m != nil {
			rec.PostalCode = m[1]
			rec.Municipality = m[2]
		}
		if hasDist {
			if m := reDistrict.FindStringSubmatch(cell(row, distIdx)); m != nil {
				rec.DistrictCode = m[1]
			}
		}
		if hasSect {
			if m := reSection.FindStringSubmatch(cell(row, sectIdx)); m != nil {
				rec.SectionCode = m[1]
			}
		}
		rec.TotalIncome = parseTotal(cell(row, totalIdx))
		records = append(records, rec)
	}

	logutil.Logf(opts.Logger, "income: %d rows kept for periods %v", len(records), opts.periods())
	return records, nil
}

// parseTotal normalizes the total-income field: dot-only placeholders and
// non-numeric values become null.
func parseTotal(s string) NullFloat {
	s = strings.TrimSpace(s)
	if s == "" || reDots.MatchString(s) {
		return Null
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null
	}
	return Value(f)
}

// Impute replaces null totals with the (municipality, period) group median,
// then falls back to the median over all imputed values for anything still
// null. A null survives only when the whole dataset has no numeric total.
// The input slice is not modified.
func Impute(records []Record, opts Options) []Record {
	type group struct {
		municipality string
		period       int
	}

	grouped := map[group][]float64{}
	for _, r := range records {
		if r.Municipality != "" && r.TotalIncome.Valid {
			g := group{r.Municipality, r.Period}
			grouped[g] = append(grouped[g], r.TotalIncome.Float64)
		}
	}
	medians := make(map[group]NullFloat, len(grouped))
	for g, values := range grouped {
		medians[g] = median(values)
	}

	out := make([]Record, len(records))
	copy(out, records)
	imputed := 0
	for i := range out {
		if out[i].TotalIncome.Valid {
			continue
		}
		if m := medians[group{out[i].Municipality, out[i].Period}]; m.Valid {
			out[i].TotalIncome = m
			imputed++
		}
	}

	// Global fallback over everything imputed so far.
	var all []float64
	for _, r := range out {
		if r.TotalIncome.Valid {
			all = append(all, r.TotalIncome.Float64)
		}
	}
	if overall := median(all); overall.Valid {
		for i := range out {
			if !out[i].TotalIncome.Valid {
				out[i].TotalIncome = overall
				imputed++
			}
		}
	}

	logutil.Logf(opts.Logger, "income: imputed %d missing totals", imputed)
	return out
}

// AggregateMedians groups records by (municipality, postal code, period)
// and takes the median of the imputed totals, collapsing census sections
// into a single figure per group. Rows with a null municipality or postal
// code carry no usable key and are excluded.
func AggregateMedians(records []Record) []Aggregate {
	type key struct {
		municipality string
		postalCode   string
		period       int
	}

	grouped := map[key][]float64{}
	order := []key{}
	for _, r := range records {
		if r.Municipality == "" || r.PostalCode == "" {
			continue
		}
		k := key{r.Municipality, r.PostalCode, r.Period}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
			grouped[k] = nil
		}
		if r.TotalIncome.Valid {
			grouped[k] = append(grouped[k], r.TotalIncome.Float64)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.municipality != b.municipality {
			return a.municipality < b.municipality
		}
		if a.postalCode != b.postalCode {
			return a.postalCode < b.postalCode
		}
		return a.period < b.period
	})

	aggregates := make([]Aggregate, 0, len(order))
	for _, k := range order {
		aggregates = append(aggregates, Aggregate{
			Municipality:        k.municipality,
			PostalCode:          k.postalCode,
			Period:              k.period,
			MedianImputedIncome: median(grouped[k]),
		})
	}
	return aggregates
}

// median returns the middle value of values, or null for an empty slice.
func median(values []float64) NullFloat {
	if len(values) == 0 {
		return Null
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return Value(sorted[mid])
	}
	return Value((sorted[mid-1] + sorted[mid]) / 2)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
