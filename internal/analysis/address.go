package analysis

import (
	"regexp"
	"strings"
)

// streetTypes are the French street designators recognized during address
// decomposition. Longer forms come first so "boulevard" wins over "bd".
var streetTypes = []string{
	"boulevard", "avenue", "impasse", "passage", "chemin", "square",
	"allee", "place", "cours", "route", "quai", "rue", "bd", "av",
}

var (
	houseNumberRe = regexp.MustCompile(`^(\d+)`)
	punctuationRe = regexp.MustCompile(`[^a-z0-9 ]+`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

var accentReplacer = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c", "œ", "oe", "æ", "ae",
)

// leading articles are dropped before word-overlap comparison
var articles = map[string]bool{
	"de": true, "du": true, "des": true,
	"le": true, "la": true, "les": true,
}

// streetParts is the decomposed form of a postal address.
type streetParts struct {
	HouseNumber string
	StreetType  string
	StreetName  string
	Normalized  string
}

// normalizeAddress lowercases, strips accents and punctuation, and
// collapses whitespace.
func normalizeAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	s = accentReplacer.Replace(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = spacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// parseStreet extracts the house number, street type and street name from
// a free-text address.
func parseStreet(address string) streetParts {
	normalized := normalizeAddress(address)
	parts := streetParts{Normalized: normalized}
	if normalized == "" {
		return parts
	}

	rest := normalized
	if m := houseNumberRe.FindString(rest); m != "" {
		parts.HouseNumber = m
		rest = strings.TrimSpace(rest[len(m):])
	}

	words := strings.Fields(rest)
	for i, word := range words {
		for _, st := range streetTypes {
			if word == st {
				parts.StreetType = st
				parts.StreetName = strings.Join(words[i+1:], " ")
				return parts
			}
		}
	}

	parts.StreetName = rest
	return parts
}

// significantWords returns the comparison words of a normalized string:
// leading articles removed, words of three characters or more.
func significantWords(s string) []string {
	var words []string
	for _, word := range strings.Fields(s) {
		if articles[word] || len(word) <= 2 {
			continue
		}
		words = append(words, word)
	}
	return words
}

// wordOverlap computes the fraction of one side's words found verbatim in
// the other, using the smaller word count as denominator.
func wordOverlap(a, b string) float64 {
	wordsA := significantWords(a)
	wordsB := significantWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	matches := 0
	for _, w := range wordsA {
		if setB[w] {
			matches++
		}
	}

	denominator := len(wordsA)
	if len(wordsB) < denominator {
		denominator = len(wordsB)
	}
	return float64(matches) / float64(denominator)
}

// sameCommune compares two commune names after normalization.
func sameCommune(a, b string) bool {
	na, nb := normalizeAddress(a), normalizeAddress(b)
	return na != "" && na == nb
}
