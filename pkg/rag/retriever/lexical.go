package retriever

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"textbook-qa-be/pkg/rag"
	"textbook-qa-be/pkg/textnorm"
)

const (
	proximityWindow = 200 // runes
	proximityBonus  = 2.0
	allTermsBonus   = 3.0
	minTermRunes    = 2
)

var stopwords = buildStopwords(
	// English
	"a", "an", "the", "and", "or", "but", "if", "then", "of", "to", "in", "on", "at", "by", "for", "with",
	"from", "as", "is", "are", "was", "were", "be", "been", "being", "do", "does", "did", "what", "which",
	"who", "whom", "whose", "when", "where", "why", "how", "this", "that", "these", "those", "it", "its",
	"i", "me", "my", "we", "our", "you", "your", "he", "she", "they", "them", "their", "his", "her",
	"can", "could", "should", "would", "will", "shall", "may", "might", "must", "about", "into", "than",
	"there", "here", "please", "explain", "tell", "define", "describe", "give", "not", "no", "so", "too",
	// Arabic
	"في", "من", "على", "إلى", "الى", "عن", "مع", "هل", "ما", "ماذا", "متى", "أين", "اين", "كيف", "لماذا",
	"هو", "هي", "هم", "هن", "أنا", "انا", "نحن", "أنت", "انت", "هذا", "هذه", "ذلك", "تلك", "هؤلاء", "الذي",
	"التي", "الذين", "و", "أو", "او", "ثم", "لا", "لم", "لن", "إن", "ان", "أن", "كان", "كانت", "يكون",
	"قد", "لقد", "كل", "بعض", "غير", "بين", "عند", "حتى", "إذا", "اذا", "اشرح", "عرف", "وضح", "اذكر",
)

func buildStopwords(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[textnorm.FoldLower(w)] = true
	}
	return m
}

// Tokenize folds diacritics and case, then returns the distinct content words
// of q in order of first appearance.
func Tokenize(q string) []string {
	fields := strings.FieldsFunc(textnorm.FoldLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTermRunes || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

func termWeight(term string) float64 {
	return 1 + float64(utf8.RuneCountInString(term))/10
}

// Score rates text against the query terms. Longer terms weigh more.
func Score(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	folded := textnorm.FoldLower(text)

	var score float64
	present := 0
	for _, term := range terms {
		tf := strings.Count(folded, term)
		if tf == 0 {
			continue
		}
		present++
		score += float64(tf) * termWeight(term)
	}
	if score == 0 {
		return 0
	}

	if first, second, ok := topTwo(terms); ok && within(folded, first, second, proximityWindow) {
		score += proximityBonus
	}
	if len(terms) > 1 && present == len(terms) {
		score += allTermsBonus
	}
	return score
}

// topTwo picks the two heaviest terms, keeping query order on ties.
func topTwo(terms []string) (string, string, bool) {
	if len(terms) < 2 {
		return "", "", false
	}
	ranked := append([]string(nil), terms...)
	sort.SliceStable(ranked, func(i, j int) bool { return termWeight(ranked[i]) > termWeight(ranked[j]) })
	return ranked[0], ranked[1], true
}

// within reports whether an occurrence of a and one of b start at most
// window runes apart.
func within(text, a, b string, window int) bool {
	pa := runeOffsets(text, a)
	pb := runeOffsets(text, b)
	i, j := 0, 0
	for i < len(pa) && j < len(pb) {
		d := pa[i] - pb[j]
		if d < 0 {
			d = -d
		}
		if d <= window {
			return true
		}
		if pa[i] < pb[j] {
			i++
		} else {
			j++
		}
	}
	return false
}

func runeOffsets(text, term string) []int {
	var out []int
	byteBase, runeBase := 0, 0
	for {
		idx := strings.Index(text[byteBase:], term)
		if idx < 0 {
			return out
		}
		runeBase += utf8.RuneCountInString(text[byteBase : byteBase+idx])
		out = append(out, runeBase)
		byteBase += idx + len(term)
		runeBase += utf8.RuneCountInString(term)
	}
}

// Rank scores passages against query, drops zero scores and orders by score
// descending, then page ascending.
func Rank(query string, passages []rag.Passage, limit int) []rag.Passage {
	return rankTerms(Tokenize(query), passages, limit)
}

func rankTerms(terms []string, passages []rag.Passage, limit int) []rag.Passage {
	if len(terms) == 0 {
		return nil
	}
	var out []rag.Passage
	for _, p := range passages {
		if s := Score(terms, p.Text); s > 0 {
			p.Score = s
			out = append(out, p)
		}
	}
	return sortTrim(out, limit)
}

// mergeTop combines two ranked lists into one of at most limit passages.
func mergeTop(a, b []rag.Passage, limit int) []rag.Passage {
	if len(b) == 0 {
		return a
	}
	out := make([]rag.Passage, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return sortTrim(out, limit)
}

func sortTrim(out []rag.Passage, limit int) []rag.Passage {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].BookName < out[j].BookName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
