package shelf

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// bookSource implements fuzzy.Source over name, author and catalogue.
type bookSource []Book

func (s bookSource) String(i int) string {
	b := s[i]
	return strings.ToLower(b.Name + " " + b.Author + " " + b.Catalogue)
}

func (s bookSource) Len() int { return len(s) }

// FilterBooks keeps the books whose name, author or catalogue fuzzily match
// query. Order is preserved. An empty query returns books unchanged.
func FilterBooks(books []Book, query string) []Book {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return books
	}

	matches := fuzzy.FindFrom(query, bookSource(books))
	keep := make([]bool, len(books))
	for _, m := range matches {
		keep[m.Index] = true
	}
	out := make([]Book, 0, len(matches))
	for i, b := range books {
		if keep[i] {
			out = append(out, b)
		}
	}
	return out
}
