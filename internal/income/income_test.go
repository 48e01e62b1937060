package income

import (
	"errors"
	"testing"

	"github.com/muniset/internal/table"
)

func incomeTable(rows [][]string) *table.Table {
	return table.New([]string{ColGeography, ColDistrict, ColSection, ColPeriod, ColTotal}, rows)
}

func TestClean(t *testing.T) {
	tbl := incomeTable([][]string{
		{"28001 Madrid", "Madrid distrito 01", "Madrid sección 011", "2019", "32000"},
		{"28001 Madrid", "Madrid distrito 01", "Madrid sección 012", "2019", "..."},
		{"Sin código", "sin distrito", "sin sección", "2020", "abc"},
		{"08001 Barcelona", "Barcelona distrito 02", "Barcelona sección 021", "2018", "29000"},
	})

	records, err := Clean(tbl, Options{})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	// 2018 falls outside the periods of interest.
	if len(records) != 3 {
		t.Fatalf("Clean() kept %d rows, want 3", len(records))
	}

	first := records[0]
	if first.PostalCode != "28001" || first.Municipality != "Madrid" {
		t.Errorf("Clean() geography = (%q, %q), want (28001, Madrid)", first.PostalCode, first.Municipality)
	}
	if first.DistrictCode != "01" || first.SectionCode != "011" {
		t.Errorf("Clean() codes = (%q, %q), want (01, 011)", first.DistrictCode, first.SectionCode)
	}
	if !first.TotalIncome.Valid || first.TotalIncome.Float64 != 32000 {
		t.Errorf("Clean() total = %v, want 32000", first.TotalIncome)
	}

	// A dot-only total is a null, not an error.
	if records[1].TotalIncome.Valid {
		t.Error("Clean() parsed a dot-only total as a value")
	}

	// Pattern misses become nulls in every extracted field.
	third := records[2]
	if third.PostalCode != "" || third.Municipality != "" {
		t.Errorf("Clean() unmatched geography = (%q, %q), want nulls", third.PostalCode, third.Municipality)
	}
	if third.DistrictCode != "" || third.SectionCode != "" {
		t.Errorf("Clean() unmatched codes = (%q, %q), want nulls", third.DistrictCode, third.SectionCode)
	}
	if third.TotalIncome.Valid {
		t.Error("Clean() coerced a non-numeric total to a value")
	}
}

func TestCleanOptionalDescriptorColumns(t *testing.T) {
	tbl := table.New(
		[]string{ColGeography, ColPeriod, ColTotal},
		[][]string{{"28001 Madrid", "2019", "32000"}},
	)

	records, err := Clean(tbl, Options{})
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if records[0].DistrictCode != "" || records[0].SectionCode != "" {
		t.Errorf("Clean() codes = (%q, %q), want nulls for absent columns",
			records[0].DistrictCode, records[0].SectionCode)
	}
}

func TestCleanMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{"no geography", []string{ColPeriod, ColTotal}, ColGeography},
		{"no period", []string{ColGeography, ColTotal}, ColPeriod},
		{"no total", []string{ColGeography, ColPeriod}, ColTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := table.New(tt.columns, nil)
			_, err := Clean(tbl, Options{})
			var se *table.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("Clean() error = %v, want SchemaError", err)
			}
			if se.Column != tt.want {
				t.Errorf("Clean() schema error column = %q, want %q", se.Column, tt.want)
			}
		})
	}
}

func TestImputeGroupMedian(t *testing.T) {
	records := []Record{
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Value(10)},
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Null},
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Value(30)},
		{Municipality: "Getafe", PostalCode: "28901", Period: 2019, TotalIncome: Null},
	}

	imputed := Impute(records, Options{})

	// Null in the Madrid/2019 group takes the group median of {10, 30}.
	if got := imputed[1].TotalIncome; !got.Valid || got.Float64 != 20 {
		t.Errorf("Impute() group median = %v, want 20", got)
	}

	// Getafe has no values at all, so it falls back to the median over the
	// imputed column: {10, 20, 30} -> 20.
	if got := imputed[3].TotalIncome; !got.Valid || got.Float64 != 20 {
		t.Errorf("Impute() global fallback = %v, want 20", got)
	}

	// The input slice is left untouched.
	if records[1].TotalIncome.Valid {
		t.Error("Impute() mutated its input")
	}
}

func TestImputeAllNullStaysNull(t *testing.T) {
	records := []Record{
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Null},
	}

	imputed := Impute(records, Options{})
	if imputed[0].TotalIncome.Valid {
		t.Error("Impute() invented a value for an all-null dataset")
	}

	aggs := AggregateMedians(imputed)
	if len(aggs) != 1 {
		t.Fatalf("AggregateMedians() groups = %d, want 1", len(aggs))
	}
	if aggs[0].MedianImputedIncome.Valid {
		t.Error("AggregateMedians() invented a median for an all-null group")
	}
}

func TestAggregateMedians(t *testing.T) {
	records := []Record{
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Value(10)},
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, TotalIncome: Value(20)},
		{Municipality: "Madrid", PostalCode: "28001", Period: 2020, TotalIncome: Value(50)},
		{Municipality: "Getafe", PostalCode: "28901", Period: 2019, TotalIncome: Value(5)},
		{Municipality: "", PostalCode: "", Period: 2019, TotalIncome: Value(999)},
	}

	aggs := AggregateMedians(records)
	if len(aggs) != 3 {
		t.Fatalf("AggregateMedians() groups = %d, want 3 (null keys excluded)", len(aggs))
	}

	// Sorted by (municipality, postal code, period).
	if aggs[0].Municipality != "Getafe" {
		t.Errorf("AggregateMedians() first group = %q, want Getafe", aggs[0].Municipality)
	}
	if got := aggs[1].MedianImputedIncome; !got.Valid || got.Float64 != 15 {
		t.Errorf("AggregateMedians() Madrid 2019 median = %v, want 15", got)
	}
	if got := aggs[2].MedianImputedIncome; !got.Valid || got.Float64 != 50 {
		t.Errorf("AggregateMedians() Madrid 2020 median = %v, want 50", got)
	}
}

func TestProcessCustomPeriods(t *testing.T) {
	tbl := incomeTable([][]string{
		{"28001 Madrid", "Madrid distrito 01", "Madrid sección 011", "2017", "100"},
		{"28001 Madrid", "Madrid distrito 01", "Madrid sección 011", "2019", "200"},
	})

	aggs, err := Process(tbl, Options{Periods: []int{2017}})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(aggs) != 1 || aggs[0].Period != 2017 {
		t.Errorf("Process() aggregates = %+v, want only 2017", aggs)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   NullFloat
	}{
		{"empty", nil, Null},
		{"single", []float64{7}, Value(7)},
		{"odd", []float64{3, 1, 2}, Value(2)},
		{"even", []float64{4, 1, 3, 2}, Value(2.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
