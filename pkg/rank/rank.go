// Package rank normalizes taxonomic rank strings and maps them to
// numeric levels. All functions are pure.
package rank

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Root is the level of the tree root, above any kingdom.
const Root = 100

// SpeciesLevel is the level of the species rank.
const SpeciesLevel = 10

// ranks lists canonical ranks from the highest to the lowest.
var ranks = []string{
	"kingdom",
	"phylum",
	"subphylum",
	"superclass",
	"class",
	"subclass",
	"superorder",
	"order",
	"suborder",
	"superfamily",
	"family",
	"subfamily",
	"supertribe",
	"tribe",
	"subtribe",
	"genus",
	"species",
	"subspecies",
	"variety",
	"form",
}

var levels = map[string]int{
	"root":        Root,
	"kingdom":     70,
	"phylum":      60,
	"subphylum":   57,
	"superclass":  53,
	"class":       50,
	"subclass":    47,
	"superorder":  43,
	"order":       40,
	"suborder":    37,
	"superfamily": 33,
	"family":      30,
	"subfamily":   27,
	"supertribe":  26,
	"tribe":       25,
	"subtribe":    24,
	"genus":       20,
	"species":     SpeciesLevel,
	"subspecies":  5,
	"variety":     5,
	"form":        5,
}

// equivalents maps known synonyms to canonical ranks. An empty value
// means the rank is explicitly absent.
var equivalents = map[string]string{
	"division":     "phylum",
	"sub-class":    "subclass",
	"super-order":  "superorder",
	"infraorder":   "suborder",
	"sub-order":    "suborder",
	"super-family": "superfamily",
	"sub-family":   "subfamily",
	"gen":          "genus",
	"sp":           "species",
	"infraspecies": "subspecies",
	"ssp":          "subspecies",
	"sub-species":  "subspecies",
	"subsp":        "subspecies",
	"trinomial":    "subspecies",
	"var":          "variety",
	"unranked":     "",
}

var preferred = []string{
	"kingdom",
	"phylum",
	"class",
	"order",
	"superfamily",
	"family",
	"genus",
	"species",
	"subspecies",
	"variety",
}

var nonWord = regexp.MustCompile(`[^\w]`)

// Normalize maps a free-text rank to its canonical form. It strips
// punctuation, lowercases the string and resolves known synonyms.
// Unknown ranks are returned stripped and lowercased. The boolean is
// false when the rank is empty or explicitly unranked.
func Normalize(s string) (string, bool) {
	s = strings.ToLower(nonWord.ReplaceAllString(s, ""))
	if s == "" {
		return "", false
	}
	if _, ok := levels[s]; ok {
		return s, true
	}
	if eq, ok := equivalents[s]; ok {
		return eq, eq != ""
	}
	return s, true
}

// Level returns the numeric weight of a rank. Higher ranks have larger
// levels. The boolean is false for unknown ranks.
func Level(r string) (int, bool) {
	r, ok := Normalize(r)
	if !ok {
		return 0, false
	}
	lvl, ok := levels[r]
	return lvl, ok
}

// IsCanonical returns true if the string is one of canonical ranks.
func IsCanonical(r string) bool {
	return slices.Contains(ranks, r)
}

// Ranks returns canonical ranks ordered from kingdom to form.
func Ranks() []string {
	return slices.Clone(ranks)
}

// Preferred returns ranks commonly shown in classifications.
func Preferred() []string {
	return slices.Clone(preferred)
}

// RemoveFromName drops rank words from a multi-word name, so
// "Rosa var. alba" becomes "Rosa alba". One-word names are returned
// unchanged.
func RemoveFromName(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name
	}
	res := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ReplaceAll(w, ".", "")
		if w == "" || isRankWord(strings.ToLower(w)) {
			continue
		}
		res = append(res, w)
	}
	return strings.Join(res, " ")
}

// Capitalize upcases the first letter of a name and lowercases the rest.
func Capitalize(name string) string {
	if name == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

func isRankWord(w string) bool {
	if slices.Contains(ranks, w) {
		return true
	}
	_, ok := equivalents[w]
	return ok
}
