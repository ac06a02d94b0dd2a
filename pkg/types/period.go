package types

import "fmt"

// MonthNames are the Spanish month names indexed by zero-based month.
var MonthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Period selects a fiscal month, or a whole fiscal year ("gestión") when
// Month is nil.
type Period struct {
	Year  int
	Month *int
}

// MonthPeriod returns the period for a single zero-based month.
func MonthPeriod(year, month int) Period {
	return Period{Year: year, Month: &month}
}

// YearPeriod returns the period covering a whole year.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// WholeYear reports whether the period covers the whole year.
func (p Period) WholeYear() bool { return p.Month == nil }

// Contains reports whether a file tagged (year, month) falls in the period.
func (p Period) Contains(year, month int) bool {
	if year != p.Year {
		return false
	}
	return p.Month == nil || *p.Month == month
}

// Validate rejects non-positive years and months outside 0..11.
func (p Period) Validate() error {
	if p.Year <= 0 {
		return &ValidationError{Kind: "period", Fields: []FieldError{{Field: "año", Rule: "gt=0"}}}
	}
	if p.Month != nil && (*p.Month < 0 || *p.Month > 11) {
		return &ValidationError{Kind: "period", Fields: []FieldError{{Field: "mes", Rule: "min=0,max=11"}}}
	}
	return nil
}

func (p Period) String() string {
	if p.Month == nil {
		return fmt.Sprintf("gestión %d", p.Year)
	}
	if *p.Month < 0 || *p.Month > 11 {
		return fmt.Sprintf("%d-%02d", p.Year, *p.Month+1)
	}
	return fmt.Sprintf("%s %d", MonthNames[*p.Month], p.Year)
}
