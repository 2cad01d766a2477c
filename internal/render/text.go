package render

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var replacements = map[rune]string{
	'€':      "EUR",
	'–':      "-",
	'—':      "-",
	'‐':      "-",
	'−':      "-",
	'‘':      "'",
	'’':      "'",
	'‚':      ",",
	'“':      "\"",
	'”':      "\"",
	'„':      "\"",
	'…':      "...",
	'•':      "-",
	'™':      "(TM)",
	'Œ':      "OE",
	'œ':      "oe",
	'Ł':      "L",
	'ł':      "l",
	'ẞ':      "SS",
	'\u200b': "",
}

// Transliterate maps s onto characters that exist in Latin-1. Common
// typographic characters get ASCII stand-ins, accented letters outside
// Latin-1 lose their accents and anything else becomes '?'.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isLatin1(r) {
			b.WriteRune(r)
			continue
		}
		if rep, ok := replacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		if folded, ok := stripAccents(r); ok {
			b.WriteString(folded)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// Latin1 transliterates s and encodes it as ISO-8859-1 bytes, the encoding
// the PDF core fonts expect.
func Latin1(s string) string {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(Transliterate(s))
	if err != nil {
		return strings.Map(func(r rune) rune {
			if r < 0x80 {
				return r
			}
			return '?'
		}, s)
	}
	return encoded
}

func isLatin1(r rune) bool {
	return r < 0x80 || (r >= 0xA0 && r <= 0xFF)
}

func stripAccents(r rune) (string, bool) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, string(r))
	if err != nil || out == "" {
		return "", false
	}
	for _, c := range out {
		if !isLatin1(c) {
			return "", false
		}
	}
	return out, true
}
