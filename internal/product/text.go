package product

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// WriteText renders p as a plain text table. Numbers are right aligned;
// a nested segment is written inline, one parenthesized record per row.
func WriteText(w io.Writer, p *Product) error {
	fields := p.Fields()
	cells := make([][]string, len(p.Rows))
	widths := make([]int, len(fields))
	for i, f := range fields {
		widths[i] = displayWidth(f.Title)
	}
	for r, row := range p.Rows {
		cells[r] = make([]string, len(fields))
		for i, f := range fields {
			cells[r][i] = textValue(row[i], f.Domain)
			widths[i] = max(widths[i], displayWidth(cells[r][i]))
		}
	}

	bw := bufio.NewWriter(w)
	header := make([]string, len(fields))
	rule := make([]string, len(fields))
	for i, f := range fields {
		header[i] = pad(f.Title, widths[i], false)
		rule[i] = strings.Repeat("-", widths[i])
	}
	bw.WriteString(strings.TrimRight(strings.Join(header, " | "), " ") + "\n")
	bw.WriteString(strings.Join(rule, "-+-") + "\n")
	for _, row := range cells {
		line := make([]string, len(fields))
		for i, f := range fields {
			line[i] = pad(row[i], widths[i], numeric(f.Domain))
		}
		bw.WriteString(strings.TrimRight(strings.Join(line, " | "), " ") + "\n")
	}
	if len(p.Rows) == 1 {
		bw.WriteString("(1 row)\n")
	} else {
		bw.WriteString("(" + strconv.Itoa(len(p.Rows)) + " rows)\n")
	}
	return bw.Flush()
}

func textValue(v any, d domain.Domain) string {
	list, ok := v.([]Record)
	if !ok {
		return domain.Format(d, v)
	}
	ld, _ := d.(domain.List)
	rec, _ := ld.Item.(domain.Record)
	parts := make([]string, len(list))
	for i, r := range list {
		vals := make([]string, len(rec.Fields))
		for k, f := range rec.Fields {
			vals[k] = textValue(r[k], f.Domain)
		}
		parts[i] = "(" + strings.Join(vals, ", ") + ")"
	}
	return strings.Join(parts, " ")
}

func numeric(d domain.Domain) bool {
	switch d.Kind() {
	case domain.IntegerKind, domain.FloatKind, domain.DecimalKind:
		return true
	}
	return false
}

// displayWidth counts the terminal columns of s: East Asian wide and
// fullwidth characters take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func pad(s string, w int, right bool) string {
	fill := strings.Repeat(" ", max(0, w-displayWidth(s)))
	if right {
		return fill + s
	}
	return s + fill
}
