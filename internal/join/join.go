// Package join merges the three normalized datasets into one analysis-ready
// table: income and crime inner-joined on municipality name, then the
// contact aggregate left-joined on postal code.
package join

import (
	"log"
	"strconv"
	"strings"

	"github.com/muniset/internal/contact"
	"github.com/muniset/internal/crime"
	"github.com/muniset/internal/income"
	"github.com/muniset/internal/logutil"
	"github.com/muniset/internal/table"
)

// Output column names for the income aggregate fields.
const (
	ColMunicipality  = "Municipio"
	ColPostalCode    = "CP"
	ColPeriod        = "Periodo"
	ColImputedIncome = "total_imputed"
	ColTotalDNIs     = "total_DNIs"
)

// Options configures the join.
type Options struct {
	Logger *log.Logger
}

// Tables joins the income aggregates, crime table and optional contact
// aggregate into a single table. Join keys are trimmed before comparison,
// case preserved. Municipalities absent from either the income or the crime
// side are dropped; postal codes without survey activity get null contact
// fields. None of the inputs are modified.
func Tables(incomes []income.Aggregate, crimes *crime.Table, contacts *contact.Result, opts Options) *table.Table {
	crimeByMuni := make(map[string]crime.Record, len(crimes.Records))
	for _, rec := range crimes.Records {
		crimeByMuni[strings.TrimSpace(rec.Municipality)] = rec
	}

	contactByCP := map[string]contact.PostalCodeRow{}
	if contacts != nil {
		for _, row := range contacts.Rows {
			contactByCP[strings.TrimSpace(row.PostalCode)] = row
		}
	}

	columns := []string{ColMunicipality, ColPostalCode, ColPeriod, ColImputedIncome}
	crimeColumns := crimes.Columns
	if len(crimeColumns) > 0 && crimeColumns[0] == crime.MunicipalityColumn {
		crimeColumns = crimeColumns[1:]
	}
	columns = append(columns, crimeColumns...)
	if contacts != nil {
		columns = append(columns, ColTotalDNIs)
		columns = append(columns, contacts.Questions...)
	}

	var rows [][]string
	for _, inc := range incomes {
		muni := strings.TrimSpace(inc.Municipality)
		crimeRec, ok := crimeByMuni[muni]
		if !ok {
			continue // inner join: crime availability gates the result
		}

		row := make([]string, 0, len(columns))
		row = append(row, muni, strings.TrimSpace(inc.PostalCode), strconv.Itoa(inc.Period),
			formatNullFloat(inc.MedianImputedIncome))
		for _, col := range crimeColumns {
			if v, ok := crimeRec.Counts[col]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		if contacts != nil {
			if c, ok := contactByCP[strings.TrimSpace(inc.PostalCode)]; ok {
				row = append(row, strconv.Itoa(c.TotalDistinctDNI))
				for _, q := range contacts.Questions {
					row = append(row, strconv.Itoa(c.ResponseCounts[q]))
				}
			} else {
				row = append(row, "")
				for range contacts.Questions {
					row = append(row, "")
				}
			}
		}
		rows = append(rows, row)
	}

	logutil.Logf(opts.Logger, "join: %d income rows joined to %d final rows over %d columns",
		len(incomes), len(rows), len(columns))
	return table.New(columns, rows)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatNullFloat(f income.NullFloat) string {
	if !f.Valid {
		return ""
	}
	return formatFloat(f.Float64)
}
