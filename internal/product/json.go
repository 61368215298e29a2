package product

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// WriteJSON renders p as a JSON object holding one list under the title of
// p. Record keys keep the field order, strings are NFC normalized and
// decimals are written with all their digits.
func WriteJSON(w io.Writer, p *Product) error {
	bw := bufio.NewWriter(w)
	title := p.Title
	if title == "" {
		title = "data"
	}
	bw.WriteString("{\n  ")
	if err := writeString(bw, title); err != nil {
		return err
	}
	bw.WriteString(": ")
	if err := writeList(bw, p.Rows, p.Fields(), "  "); err != nil {
		return err
	}
	bw.WriteString("\n}\n")
	return bw.Flush()
}

func writeList(w *bufio.Writer, rows []Record, fields []domain.Field, indent string) error {
	if len(rows) == 0 {
		w.WriteString("[]")
		return nil
	}
	w.WriteString("[")
	for i, r := range rows {
		if i > 0 {
			w.WriteString(",")
		}
		w.WriteString("\n" + indent + "  ")
		if err := writeRecord(w, r, fields, indent+"  "); err != nil {
			return err
		}
	}
	w.WriteString("\n" + indent + "]")
	return nil
}

func writeRecord(w *bufio.Writer, r Record, fields []domain.Field, indent string) error {
	w.WriteString("{")
	for i, f := range fields {
		if i > 0 {
			w.WriteString(",")
		}
		w.WriteString("\n" + indent + "  ")
		if err := writeString(w, f.Title); err != nil {
			return err
		}
		w.WriteString(": ")
		if err := writeValue(w, r[i], f.Domain, indent+"  "); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		w.WriteString("\n" + indent)
	}
	w.WriteString("}")
	return nil
}

func writeValue(w *bufio.Writer, v any, d domain.Domain, indent string) error {
	if v == nil {
		w.WriteString("null")
		return nil
	}
	switch x := v.(type) {
	case []Record:
		list, _ := d.(domain.List)
		rec, _ := list.Item.(domain.Record)
		return writeList(w, x, rec.Fields, indent)
	case bool:
		w.WriteString(strconv.FormatBool(x))
	case int64:
		w.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if !domain.IsFinite(x) {
			w.WriteString("null")
			return nil
		}
		w.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case *apd.Decimal:
		w.WriteString(x.Text('f'))
	case time.Time:
		return writeString(w, domain.Format(d, x))
	case []any:
		return writeString(w, domain.Format(d, x))
	case string:
		return writeString(w, x)
	default:
		return writeString(w, domain.Format(d, x))
	}
	return nil
}

// writeString writes s as a JSON string: NFC normalized, with no HTML
// escaping.
func writeString(w *bufio.Writer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}
