package syntax

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

// Decode percent-decodes raw query bytes, validates the result as UTF-8 and
// normalizes it to NFC.
//
// Unlike URL query decoding, '+' is kept as is: it is an operator of the
// query language.
func Decode(raw string) (string, error) {
	if !strings.Contains(raw, "%") {
		if !utf8.ValidString(raw) {
			return "", invalidUTF8(raw)
		}
		return norm.NFC.String(raw), nil
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2]) {
			end := i + 3
			if end > len(raw) {
				end = len(raw)
			}
			return "", diag.Errorf(diag.KindScan, diag.NewMark(raw, i, end),
				"invalid percent-escape sequence")
		}
		b.WriteByte(unhex(raw[i+1])<<4 | unhex(raw[i+2]))
		i += 2
	}
	text := b.String()
	if !utf8.ValidString(text) {
		return "", invalidUTF8(text)
	}
	return norm.NFC.String(text), nil
}

func invalidUTF8(s string) error {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			// Mark the valid prefix, the bad byte cannot be displayed.
			return diag.Errorf(diag.KindScan, diag.NewMark(strings.ToValidUTF8(s, "?"), i, i+1),
				"cannot decode an UTF-8 character")
		}
		i += size
	}
	return diag.Errorf(diag.KindScan, diag.Mark{}, "cannot decode an UTF-8 character")
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}
