package join

import (
	"reflect"
	"testing"

	"github.com/muniset/internal/contact"
	"github.com/muniset/internal/crime"
	"github.com/muniset/internal/income"
)

func testInputs() ([]income.Aggregate, *crime.Table, *contact.Result) {
	incomes := []income.Aggregate{
		{Municipality: "Madrid", PostalCode: "28001", Period: 2019, MedianImputedIncome: income.Value(32000)},
		{Municipality: "Madrid", PostalCode: "28002", Period: 2019, MedianImputedIncome: income.Value(35000)},
		{Municipality: "Barcelona", PostalCode: "08001", Period: 2019, MedianImputedIncome: income.Value(31000)},
	}

	crimes := &crime.Table{
		Columns: []string{crime.MunicipalityColumn, "Homicidios_2019", "Homicidios_2020"},
		Records: []crime.Record{
			{Municipality: " Madrid ", Counts: map[string]float64{"Homicidios_2019": 10, "Homicidios_2020": 12}},
		},
	}

	contacts := &contact.Result{
		Questions: []string{"no", "yes"},
		Rows: []contact.PostalCodeRow{
			{PostalCode: "28001", TotalDistinctDNI: 2, ResponseCounts: map[string]int{"yes": 1, "no": 1}},
		},
	}

	return incomes, crimes, contacts
}

func TestTablesInnerJoinOnMunicipality(t *testing.T) {
	incomes, crimes, contacts := testInputs()

	joined := Tables(incomes, crimes, contacts, Options{})

	wantColumns := []string{
		ColMunicipality, ColPostalCode, ColPeriod, ColImputedIncome,
		"Homicidios_2019", "Homicidios_2020",
		ColTotalDNIs, "no", "yes",
	}
	if !reflect.DeepEqual(joined.Columns, wantColumns) {
		t.Errorf("Tables() columns = %v, want %v", joined.Columns, wantColumns)
	}

	// Barcelona has no crime data, so the inner join drops it.
	if len(joined.Rows) != 2 {
		t.Fatalf("Tables() rows = %d, want 2", len(joined.Rows))
	}
	for i := range joined.Rows {
		if got := joined.Cell(i, ColMunicipality); got != "Madrid" {
			t.Errorf("Tables() row %d municipality = %q, want Madrid", i, got)
		}
	}
}

func TestTablesLeftJoinOnPostalCode(t *testing.T) {
	incomes, crimes, contacts := testInputs()

	joined := Tables(incomes, crimes, contacts, Options{})

	// 28001 has survey activity.
	if got := joined.Cell(0, ColTotalDNIs); got != "2" {
		t.Errorf("Tables() total_DNIs for 28001 = %q, want 2", got)
	}
	if got := joined.Cell(0, "yes"); got != "1" {
		t.Errorf("Tables() yes for 28001 = %q, want 1", got)
	}

	// 28002 has none: the row survives with null contact fields.
	if got := joined.Cell(1, ColPostalCode); got != "28002" {
		t.Fatalf("Tables() row 1 postal code = %q, want 28002", got)
	}
	if got := joined.Cell(1, ColTotalDNIs); got != "" {
		t.Errorf("Tables() total_DNIs for 28002 = %q, want null", got)
	}
	if got := joined.Cell(1, "yes"); got != "" {
		t.Errorf("Tables() yes for 28002 = %q, want null", got)
	}
}

func TestTablesValues(t *testing.T) {
	incomes, crimes, contacts := testInputs()

	joined := Tables(incomes, crimes, contacts, Options{})

	want := []string{"Madrid", "28001", "2019", "32000", "10", "12", "2", "1", "1"}
	if !reflect.DeepEqual(joined.Rows[0], want) {
		t.Errorf("Tables() row 0 = %v, want %v", joined.Rows[0], want)
	}
}

func TestTablesWithoutContacts(t *testing.T) {
	incomes, crimes, _ := testInputs()

	joined := Tables(incomes, crimes, nil, Options{})

	wantColumns := []string{
		ColMunicipality, ColPostalCode, ColPeriod, ColImputedIncome,
		"Homicidios_2019", "Homicidios_2020",
	}
	if !reflect.DeepEqual(joined.Columns, wantColumns) {
		t.Errorf("Tables() columns = %v, want %v", joined.Columns, wantColumns)
	}
}

func TestTablesNullCrimeCount(t *testing.T) {
	incomes, crimes, contacts := testInputs()
	delete(crimes.Records[0].Counts, "Homicidios_2020")

	joined := Tables(incomes, crimes, contacts, Options{})
	if got := joined.Cell(0, "Homicidios_2020"); got != "" {
		t.Errorf("Tables() null crime count = %q, want empty", got)
	}
}
