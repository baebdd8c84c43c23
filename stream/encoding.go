package stream

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Encoding selects how text is converted to and from wire bytes by
// SendString and by data notifications.
type Encoding int

const (
	// UTF8 passes bytes through unchanged in both directions.
	UTF8 Encoding = iota
	// ASCII maps every non-7-bit rune or byte to '?'.
	ASCII
	// Latin1 is ISO-8859-1.
	Latin1
	// Windows1252 is the Windows Western European code page.
	Windows1252
)

// DefaultEncoding is used when no WithEncoding option is given.
const DefaultEncoding = UTF8

var encodingNames = map[string]Encoding{ //nolint:gochecknoglobals
	"utf-8":        UTF8,
	"utf8":         UTF8,
	"ascii":        ASCII,
	"us-ascii":     ASCII,
	"latin1":       Latin1,
	"latin-1":      Latin1,
	"iso-8859-1":   Latin1,
	"iso8859-1":    Latin1,
	"windows-1252": Windows1252,
	"cp1252":       Windows1252,
}

// ParseEncoding resolves a case-insensitive encoding name or alias.
func ParseEncoding(name string) (Encoding, error) {
	enc, ok := encodingNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown encoding %q (want utf-8, ascii, latin1 or windows-1252)", name)
	}
	return enc, nil
}

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case ASCII:
		return "us-ascii"
	case Latin1:
		return "iso-8859-1"
	case Windows1252:
		return "windows-1252"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// asciiOnly replaces anything outside 7-bit ASCII with '?'.  Invalid
// UTF-8 reaches the mapping as utf8.RuneError and is replaced too.
func asciiOnly() transform.Transformer {
	return runes.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return '?'
		}
		return r
	})
}

// Encode converts s to wire bytes.  Runes that Latin1 or Windows1252
// cannot represent are an error; ASCII substitutes '?' instead.
func (e Encoding) Encode(s string) ([]byte, error) {
	switch e {
	case UTF8:
		return []byte(s), nil
	case ASCII:
		out, _, err := transform.String(asciiOnly(), s)
		return []byte(out), err
	case Latin1:
		return charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	case Windows1252:
		return charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	default:
		return nil, fmt.Errorf("unsupported encoding %s", e)
	}
}

// Decode converts wire bytes to text.  It never fails: single-byte
// code pages map every byte, and UTF-8 is passed through untouched.
func (e Encoding) Decode(b []byte) string {
	var t transform.Transformer
	switch e {
	case ASCII:
		t = transform.Chain(charmap.ISO8859_1.NewDecoder(), asciiOnly())
	case Latin1:
		t = charmap.ISO8859_1.NewDecoder()
	case Windows1252:
		t = charmap.Windows1252.NewDecoder()
	default:
		return string(b)
	}
	out, _, err := transform.Bytes(t, b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
