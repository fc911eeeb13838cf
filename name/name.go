// Package name implements the grammar of valid custom element names.
package name

import "unicode/utf8"

var reserved = map[string]struct{}{
	"annotation-xml":   {},
	"color-profile":    {},
	"font-face":        {},
	"font-face-src":    {},
	"font-face-uri":    {},
	"font-face-format": {},
	"font-face-name":   {},
	"missing-glyph":    {},
}

// IsReserved reports whether s is one of the hyphenated names already used by SVG
// and MathML elements.
func IsReserved(s string) bool {
	_, ok := reserved[s]
	return ok
}

// IsValid reports whether s is a valid custom element name: it starts with an ASCII
// lower case letter, contains a hyphen, contains no ASCII upper case letters, is made
// of potential custom element name characters and is not reserved.
func IsValid(s string) bool {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	if !utf8.ValidString(s) {
		return false
	}
	hyphen := false
	for _, r := range s[1:] {
		if r == '-' {
			hyphen = true
		}
		if !isPCENChar(r) {
			return false
		}
	}
	return hyphen && !IsReserved(s)
}

func isPCENChar(r rune) bool {
	switch {
	case r == '-' || r == '.' || r == '_' || r == 0xB7:
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z':
		return true
	}
	for _, rg := range pcenRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

var pcenRanges = [][2]rune{
	{0xC0, 0xD6},
	{0xD8, 0xF6},
	{0xF8, 0x37D},
	{0x37F, 0x1FFF},
	{0x200C, 0x200D},
	{0x203F, 0x2040},
	{0x2070, 0x218F},
	{0x2C00, 0x2FEF},
	{0x3001, 0xD7FF},
	{0xF900, 0xFDCF},
	{0xFDF0, 0xFFFD},
	{0x10000, 0xEFFFF},
}
