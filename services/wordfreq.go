// File: charabracket/services/wordfreq.go
package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/charabracket/charabracket/models"
)

const minWordLength = 3

// Служебные слова, которые не несут смысла в облаке тегов.
var stopwords = map[string]struct{}{
	"and": {}, "are": {}, "but": {}, "for": {}, "from": {}, "had": {},
	"has": {}, "have": {}, "her": {}, "him": {}, "his": {}, "its": {},
	"nor": {}, "not": {}, "our": {}, "she": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "they": {}, "this": {}, "was": {}, "were": {},
	"who": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// countWords разбивает описания на слова и считает частоты.
// Слова приводятся к нижнему регистру, короткие и служебные отбрасываются.
func countWords(texts []string) map[string]int {
	counts := make(map[string]int)
	for _, text := range texts {
		words := strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			word = strings.ToLower(word)
			if len([]rune(word)) < minWordLength {
				continue
			}
			if _, skip := stopwords[word]; skip {
				continue
			}
			counts[word]++
		}
	}
	return counts
}

// topWords возвращает limit самых частых слов.
// При равной частоте слова идут в алфавитном порядке, чтобы выдача была стабильной.
func topWords(counts map[string]int, limit int) []models.WordFrequency {
	frequencies := make([]models.WordFrequency, 0, len(counts))
	for word, count := range counts {
		frequencies = append(frequencies, models.WordFrequency{Word: word, Count: count})
	}

	sort.Slice(frequencies, func(i, j int) bool {
		if frequencies[i].Count != frequencies[j].Count {
			return frequencies[i].Count > frequencies[j].Count
		}
		return frequencies[i].Word < frequencies[j].Word
	})

	if limit > 0 && len(frequencies) > limit {
		frequencies = frequencies[:limit]
	}
	return frequencies
}
