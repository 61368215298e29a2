package product

import (
	"encoding/csv"
	"io"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// WriteCSV renders p as CSV with a header of field titles. NULL is an
// empty field. Nested segments have no tabular form and are rejected.
func WriteCSV(w io.Writer, p *Product) error {
	fields := p.Fields()
	for _, f := range fields {
		if f.Domain.Kind() == domain.ListKind {
			return diag.Errorf(diag.KindSerialize, diag.Mark{}, "field %q is a nested segment and cannot be rendered as CSV", f.Title)
		}
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Title
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	line := make([]string, len(fields))
	for _, r := range p.Rows {
		for i, f := range fields {
			line[i] = domain.Format(f.Domain, r[i])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
