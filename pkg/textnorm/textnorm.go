// Package textnorm folds Arabic text so that matching ignores optional
// diacritics and tatweel.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// isArabicMark matches harakat, tanween, shadda, sukun, superscript alef and
// Quranic annotation marks. Combining maddah and hamza (U+0653..U+0655) are
// kept so that NFC recomposes آ أ إ ؤ ئ.
func isArabicMark(r rune) bool {
	switch {
	case r >= 0x0610 && r <= 0x061A,
		r >= 0x064B && r <= 0x0652,
		r >= 0x0656 && r <= 0x065F,
		r == 0x0670,
		r >= 0x06D6 && r <= 0x06ED,
		r >= 0x08D3 && r <= 0x08FF:
		return true
	}
	return false
}

// Fold strips Arabic diacritics and tatweel. Latin accents are kept, so
// "café" stays distinct from "cafe".
func Fold(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.Predicate(func(r rune) bool {
			return r == tatweel || (isArabicMark(r) && unicode.Is(unicode.Mn, r))
		})),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FoldLower folds and lowercases. Used for matching keys.
func FoldLower(s string) string {
	return strings.ToLower(Fold(s))
}

// IsArabicRune reports whether r falls in one of the Arabic script blocks.
func IsArabicRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF,
		r >= 0x0750 && r <= 0x077F,
		r >= 0x08A0 && r <= 0x08FF,
		r >= 0xFB50 && r <= 0xFDFF,
		r >= 0xFE70 && r <= 0xFEFF:
		return true
	}
	return false
}

// ContainsArabic reports whether any rune of s is Arabic.
func ContainsArabic(s string) bool {
	return strings.IndexFunc(s, IsArabicRune) >= 0
}

// CollapseSpace trims s and collapses every whitespace run to a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
