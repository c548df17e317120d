// Package ledger talks to the book voting contract through a contract gateway.
//
// The gateway owns call encoding, signing and decoding; this package only
// shapes the arguments of the contract entrypoints and decodes the JSON the
// gateway hands back.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrAborted is returned when the contract itself rejected the call.
	ErrAborted = errors.New("contract call aborted")
	// ErrUnavailable is returned when the gateway could not be reached or kept failing.
	ErrUnavailable = errors.New("ledger gateway unavailable")
)

// Contract entrypoint names.
const (
	FnGetBooksLength      = "getBooksLength"
	FnGetBook             = "getBook"
	FnRegisterBook        = "registerBook"
	FnVoteBook            = "voteBook"
	FnGetCataloguesLength = "getCataloguesLength"
	FnGetCatalogue        = "getCatalogue"
	FnRegisterCatalogue   = "registerCatalogue"
)

// Book mirrors the contract's book record.
type Book struct {
	CreatorAddress string `json:"creatorAddress"`
	URL            string `json:"url"`
	Name           string `json:"name"`
	Catalogue      string `json:"catalogue"`
	Author         string `json:"author"`
	Description    string `json:"description"`
	VoteCount      int64  `json:"voteCount"`
}

// Catalogue mirrors the contract's catalogue record.
type Catalogue struct {
	CreatorAddress string `json:"creatorAddress"`
	URL            string `json:"url"`
	Name           string `json:"name"`
	VoteCount      int64  `json:"voteCount"`
	Description    string `json:"description"`
}

// BookInput carries the arguments of registerBook.
type BookInput struct {
	URL         string
	Name        string
	Catalogue   string
	Author      string
	Description string
}

// Args returns the arguments in entrypoint order.
func (in BookInput) Args() []any {
	return []any{in.URL, in.Name, in.Catalogue, in.Author, in.Description}
}

// CatalogueInput carries the arguments of registerCatalogue.
type CatalogueInput struct {
	URL         string
	Name        string
	Description string
}

func (in CatalogueInput) Args() []any {
	return []any{in.URL, in.Name, in.Description}
}

// Receipt is what the gateway reports for an accepted write call.
type Receipt struct {
	TxHash string `json:"tx_hash"`
}

//go:generate mockgen -destination=mocks/mock_contract.go -package=mocks bookvote/internal/ledger Contract

// Contract is the set of entrypoints the front-end uses.
type Contract interface {
	BooksLength(ctx context.Context) (int, error)
	GetBook(ctx context.Context, index int) (Book, error)
	RegisterBook(ctx context.Context, in BookInput) (Receipt, error)
	VoteBook(ctx context.Context, index int, amount int64) (Receipt, error)

	CataloguesLength(ctx context.Context) (int, error)
	GetCatalogue(ctx context.Context, index int) (Catalogue, error)
	RegisterCatalogue(ctx context.Context, in CatalogueInput) (Receipt, error)
}
