// Package text holds the string predicates used to classify runs and split
// list items.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CanonicalBullet replaces the private-use bullets emitted by symbol fonts.
const CanonicalBullet = '•'

var bulletRunes = map[rune]bool{
	'•': true, '●': true, '○': true, '◦': true, '◯': true, '▪': true, '▫': true, '■': true, '□': true,
	'►': true, '▶': true, '▷': true, '➢': true, '➤': true, '★': true, '☆': true, '✦': true, '✧': true,
	'⁃': true, '‣': true, '⦿': true, '⁌': true, '⁍': true, '-': true, '–': true, '—': true, '*': true, '+': true,
	0xF0B7: true, 0xF076: true, 0xF0B6: true,
}

var privateUseBullets = map[rune]bool{0xF0B7: true, 0xF076: true, 0xF0B6: true}

func IsBullet(r rune) bool { return bulletRunes[r] }

// NormalizeBullet maps symbol-font bullets to CanonicalBullet.
func NormalizeBullet(r rune) rune {
	if privateUseBullets[r] {
		return CanonicalBullet
	}
	return r
}

// NormalizeGlyphs applies NFKC so ligatures and compatibility forms
// (ﬁ, full-width digits, no-break spaces) compare as plain text. Private-use
// bullets are mapped first since NFKC leaves them alone.
func NormalizeGlyphs(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Map(NormalizeBullet, s)
	if norm.NFKC.IsNormalString(s) {
		return s
	}
	return norm.NFKC.String(s)
}

// CollapseWhitespace joins all whitespace runs into single spaces and trims.
func CollapseWhitespace(s string) string { return strings.Join(strings.Fields(s), " ") }

// NormalizeText collapses whitespace inside every line, trims the lines and
// drops the empty ones. Line breaks survive as single "\n".
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = CollapseWhitespace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// JoinHyphenated removes a hyphen that ends a line together with the break.
func JoinHyphenated(s string) string {
	if !strings.Contains(s, "-\n") {
		return s
	}
	var b strings.Builder
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i < len(lines)-1 && strings.HasSuffix(line, "-") && len(line) > 1 {
			prev, _ := utf8.DecodeLastRuneInString(line[:len(line)-1])
			if unicode.IsLetter(prev) {
				b.WriteString(line[:len(line)-1])
				continue
			}
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// HasVisibleContent reports whether s holds a printable ASCII glyph. List
// items and table cells are gated on it.
func HasVisibleContent(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r > ' ' && r < 0x7f }) >= 0
}

// HasVisibleText reports whether s holds any non-space graphic rune, in any
// script.
func HasVisibleText(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.IsGraphic(r) && !unicode.IsSpace(r) }) >= 0
}

func EndsWithPunctuation(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimRightFunc(s, unicode.IsSpace))
	return strings.ContainsRune(".:;?!", r)
}

func IsAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			hasLetter = true
		}
	}
	return hasLetter
}

var headingKeywords = []string{"appendix", "chapter", "section", "heading", "article", "part"}

// StartsWithHeadingKeyword matches "Chapter 3", "Appendix: Data" and the
// like. The keyword must be a whole word.
func StartsWithHeadingKeyword(s string) bool {
	s = strings.TrimLeft(s, " ")
	for _, kw := range headingKeywords {
		if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
			continue
		}
		next, size := utf8.DecodeRuneInString(s[len(kw):])
		if size == 0 || unicode.IsSpace(next) || next == ':' || next == '-' {
			return true
		}
	}
	return false
}

// StartsWithNumericHeading matches section numbers such as "2.", "3.1" or
// "4)" followed by a space.
func StartsWithNumericHeading(s string) bool {
	s = strings.TrimLeft(s, " ")
	end := strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) && !strings.ContainsRune(".):-", r) })
	if end <= 0 {
		return false
	}
	head := s[:end]
	next, _ := utf8.DecodeRuneInString(s[end:])
	return strings.IndexFunc(head, isDigit) >= 0 && strings.ContainsAny(head, ".):-") && unicode.IsSpace(next)
}

type markerKind int

const (
	noMarker markerKind = iota
	bulletMarker
	numberMarker
	letterMarker
)

// maxMarkerDigits keeps years and other numbers that open a sentence from
// reading as list markers.
const maxMarkerDigits = 3

// listMarker finds the list marker opening s. A marker is a bullet glyph,
// one to three digits, or a single ASCII letter; numbers and letters need a
// closing "." or ")". Any marker must be followed by whitespace or end the
// string, except private-use bullets which fonts often set flush.
func listMarker(s string) (marker string, kind markerKind) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return "", noMarker
	}
	if IsBullet(r) {
		if privateUseBullets[r] || endsMarker(s[size:]) {
			return s[:size], bulletMarker
		}
		return "", noMarker
	}
	digits := 0
	for digits < len(s) && isDigit(rune(s[digits])) {
		digits++
	}
	switch {
	case digits > 0 && digits <= maxMarkerDigits:
		kind = numberMarker
	case digits == 0 && isASCIILetter(r):
		kind, digits = letterMarker, 1
	default:
		return "", noMarker
	}
	if digits < len(s) && (s[digits] == '.' || s[digits] == ')') && endsMarker(s[digits+1:]) {
		return s[:digits+1], kind
	}
	return "", noMarker
}

func endsMarker(rest string) bool {
	r, size := utf8.DecodeRuneInString(rest)
	return size == 0 || unicode.IsSpace(r)
}

// StartsWithBullet reports a bullet or numeric list marker. Letter markers
// are only honoured inside lists, see SplitBullet.
func StartsWithBullet(s string) bool {
	_, kind := listMarker(strings.TrimLeft(s, " \t"))
	return kind == bulletMarker || kind == numberMarker
}

// StartsWithNumber returns the numbered marker ("1.", "10)", "a.") opening s.
func StartsWithNumber(s string) (bool, string) {
	m, kind := listMarker(strings.TrimLeft(s, " \t"))
	if kind == numberMarker || kind == letterMarker {
		return true, m
	}
	return false, ""
}

// SplitBullet strips a leading list marker. Numbered markers keep their
// original form ("1.", "10)", "a."); bullets are returned normalized.
func SplitBullet(line string) (rest, prefix string, numbered bool) {
	line = strings.TrimLeft(line, " \t")
	m, kind := listMarker(line)
	rest = strings.TrimSpace(line[len(m):])
	switch kind {
	case bulletMarker:
		r, _ := utf8.DecodeRuneInString(m)
		return rest, string(NormalizeBullet(r)), false
	case numberMarker, letterMarker:
		return rest, m, true
	}
	return rest, "", false
}

// IsLonePageNumber matches a bare number of up to four digits.
func IsLonePageNumber(s string) bool {
	s = strings.Trim(s, " \t")
	return len(s) > 0 && len(s) <= 4 && strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) }) < 0
}

func CountUnicodeChars(s string) int { return utf8.RuneCountInString(s) }

func isDigit(r rune) bool       { return r >= '0' && r <= '9' }
func isASCIILetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
