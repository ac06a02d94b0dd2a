package query

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// ClientFilter narrows the client list. Every criterion left empty places no
// constraint; set criteria are combined with AND.
type ClientFilter struct {
	// Search is matched case-insensitively as a substring of the tax ID,
	// legal name or email.
	Search string
	// TaxIDLastDigit must equal the last character of the tax ID.
	TaxIDLastDigit string

	TaxpayerType   string
	EntityType     string
	Administration string
	Billing        string
	Regime         string
	Consolidation  string
	Manager        string

	// TagID keeps clients carrying this tag.
	TagID string
}

// IsZero reports whether the filter has no criteria.
func (f ClientFilter) IsZero() bool {
	return f == ClientFilter{}
}

// Match reports whether c satisfies every set criterion.
func (f ClientFilter) Match(c *types.Client) bool {
	return f.matcher()(c)
}

func (f ClientFilter) matcher() func(*types.Client) bool {
	fold := cases.Fold()
	needle := fold.String(f.Search)
	return func(c *types.Client) bool {
		if needle != "" &&
			!strings.Contains(fold.String(c.TaxID), needle) &&
			!strings.Contains(fold.String(c.LegalName), needle) &&
			!strings.Contains(fold.String(c.Email), needle) {
			return false
		}
		if f.TaxIDLastDigit != "" && lastRune(c.TaxID) != f.TaxIDLastDigit {
			return false
		}
		for _, crit := range []struct{ want, got string }{
			{f.TaxpayerType, c.TaxpayerType},
			{f.EntityType, c.EntityType},
			{f.Administration, c.Administration},
			{f.Billing, c.Billing},
			{f.Regime, c.Regime},
			{f.Consolidation, c.Consolidation},
			{f.Manager, c.Manager},
		} {
			if crit.want != "" && crit.want != crit.got {
				return false
			}
		}
		if f.TagID != "" && !slices.Contains(c.Tags, f.TagID) {
			return false
		}
		return true
	}
}

func lastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return string(r[len(r)-1])
}

// FilterClients returns the clients matching f, in input order.
func FilterClients(clients []*types.Client, f ClientFilter) []*types.Client {
	match := f.matcher()
	out := make([]*types.Client, 0, len(clients))
	for _, c := range clients {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// FileFilter narrows a file list by period and owner. Nil Year or Month and
// an empty ClientIDs place no constraint.
type FileFilter struct {
	Year      *int
	Month     *int
	ClientIDs []string
}

// ForPeriod returns a filter selecting the files of p.
func ForPeriod(p types.Period) FileFilter {
	year := p.Year
	f := FileFilter{Year: &year}
	if p.Month != nil {
		month := *p.Month
		f.Month = &month
	}
	return f
}

// Match reports whether file satisfies every set criterion.
func (f FileFilter) Match(file *types.File) bool {
	if f.Year != nil && file.Year != *f.Year {
		return false
	}
	if f.Month != nil && file.Month != *f.Month {
		return false
	}
	if len(f.ClientIDs) > 0 && !slices.Contains(f.ClientIDs, file.ClientID) {
		return false
	}
	return true
}

// FilterFiles returns the files matching f, in input order.
func FilterFiles(files []*types.File, f FileFilter) []*types.File {
	out := make([]*types.File, 0, len(files))
	for _, file := range files {
		if f.Match(file) {
			out = append(out, file)
		}
	}
	return out
}

// SearchByNameOrTaxID keeps clients whose legal name or tax ID contains term,
// case-insensitively. This is the picker search used when selecting clients
// for a merge or ZIP.
func SearchByNameOrTaxID(clients []*types.Client, term string) []*types.Client {
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]*types.Client, 0, len(clients))
	for _, c := range clients {
		if needle == "" ||
			strings.Contains(fold.String(c.LegalName), needle) ||
			strings.Contains(fold.String(c.TaxID), needle) {
			out = append(out, c)
		}
	}
	return out
}
