package jsonstore

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxKeywords bounds the stored keyword set per publication.
const maxKeywords = 20

// stopWords is the fixed English stop-word list excluded from keyword
// extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {},
	"are": {}, "were": {}, "been": {}, "be": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// keywordCutset holds the punctuation stripped from extracted words.
const keywordCutset = ".,;:!?()[]{}"

// extractKeywords derives a bounded keyword set from title and
// abstract: lowercase words longer than three characters, stop words
// excluded, surrounding punctuation stripped, deduplicated in order of
// first appearance, capped at maxKeywords.
func extractKeywords(title, abstract string) []string {
	text := normalizeText(title + " " + abstract)

	var keywords []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		word = strings.Trim(word, keywordCutset)
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// normalizeText lowercases after NFC normalization, so composed and
// decomposed spellings of the same text compare equal in search and
// keyword extraction.
func normalizeText(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
