// Package shelf holds the in-memory list of books and catalogues mirrored
// from the voting contract.
//
// The lists are rebuilt from the ledger on load and patched locally after
// each accepted write call, so the page reflects a vote or registration
// before the ledger has necessarily mined it.
package shelf

import (
	"errors"

	"bookvote/internal/ledger"
)

var (
	// ErrNotFound is returned when a book index is not in the loaded list.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidAmount is returned for votes that carry no value.
	ErrInvalidAmount = errors.New("vote amount must be positive")
)

// Book is a display record for one registered book.
type Book struct {
	Index       int    `json:"index"`
	Creator     string `json:"creator"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Catalogue   string `json:"catalogue"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Votes       int64  `json:"votes"`
}

// Catalogue is a display record for one registered catalogue.
type Catalogue struct {
	Index       int    `json:"index"`
	Creator     string `json:"creator"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Votes       int64  `json:"votes"`
	Description string `json:"description"`
}

func bookFromLedger(index int, b ledger.Book) Book {
	return Book{
		Index:       index,
		Creator:     b.CreatorAddress,
		URL:         b.URL,
		Name:        b.Name,
		Catalogue:   b.Catalogue,
		Author:      b.Author,
		Description: b.Description,
		Votes:       b.VoteCount,
	}
}

func catalogueFromLedger(index int, c ledger.Catalogue) Catalogue {
	return Catalogue{
		Index:       index,
		Creator:     c.CreatorAddress,
		URL:         c.URL,
		Name:        c.Name,
		Votes:       c.VoteCount,
		Description: c.Description,
	}
}
