// Package web serves the book voting pages and a small JSON API on top of a
// shelf.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookvote/internal/httpx"
	"bookvote/internal/journal"
	"bookvote/internal/ledger"
	"bookvote/internal/shelf"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Shelf is the part of *shelf.Shelf the handlers use.
type Shelf interface {
	Refresh(ctx context.Context, force bool) error
	LoadedAt() time.Time
	Books() []shelf.Book
	Catalogues() []shelf.Catalogue
	Vote(ctx context.Context, index int, amount int64) (shelf.Book, error)
	RegisterBook(ctx context.Context, in shelf.BookInput) (shelf.Book, error)
	RegisterCatalogue(ctx context.Context, in shelf.CatalogueInput) (shelf.Catalogue, error)
}

type SubmissionLister interface {
	ListRecent(ctx context.Context, limit int) ([]journal.Submission, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Shelf    Shelf
	Contract string
	// Journal and DB are nil when no database is configured.
	Journal        SubmissionLister
	DB             Pinger
	InternalSecret string
	CORSOrigins    []string
	Logger         *zap.Logger
}

type Handler struct {
	shelf    Shelf
	contract string
	journal  SubmissionLister
	db       Pinger
	log      *zap.Logger

	booksTmpl *appTemplate
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		shelf:     opts.Shelf,
		contract:  opts.Contract,
		journal:   opts.Journal,
		db:        opts.DB,
		log:       logger.Named("web"),
		booksTmpl: parseTemplate("books.html"),
	}
}

// NewRouter registers every route. Cross-cutting middleware is applied by the
// caller around the returned router.
func NewRouter(opts Options) *mux.Router {
	h := NewHandler(opts)
	r := mux.NewRouter()

	r.Handle("/", http.RedirectHandler("/books", http.StatusFound)).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(staticHandler()).Methods(http.MethodGet)

	r.Handle("/books", h.page(h.listBooks)).Methods(http.MethodGet)
	r.Handle("/books", h.page(h.registerBook)).Methods(http.MethodPost)
	r.Handle("/books/{index:[0-9]+}/vote", h.page(h.voteBook)).Methods(http.MethodPost)
	r.Handle("/catalogues", h.page(h.registerCatalogue)).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(httpx.CORSMiddleware(opts.CORSOrigins))
	api.HandleFunc("/books", h.apiBooks).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/catalogues", h.apiCatalogues).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/submissions", h.apiSubmissions).Methods(http.MethodGet, http.MethodOptions)

	r.Handle("/internal/refresh",
		httpx.InternalSecretMiddleware(opts.InternalSecret)(http.HandlerFunc(h.internalRefresh)),
	).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)

	return r
}

type appError struct {
	Error   error
	Message string
	Code    int
}

type pageHandler func(w http.ResponseWriter, r *http.Request) *appError

// page adapts a pageHandler. A returned appError is logged and rendered as a
// notice above the cached lists.
func (h *Handler) page(fn pageHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := fn(w, r)
		if e == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", e.Code),
			zap.String("message", e.Message),
			zap.String("request_id", httpx.RequestIDFrom(r)),
			zap.Error(e.Error),
		}
		if e.Code >= http.StatusInternalServerError {
			h.log.Error("handler error", fields...)
		} else {
			h.log.Info("handler error", fields...)
		}
		h.renderBooks(w, r, e.Code, &notice{Kind: "error", Text: e.Message}, booksView{})
	})
}

// ledgerError maps a shelf or ledger failure to a status and a message fit for
// the page.
func ledgerError(err error, action string) *appError {
	switch {
	case errors.Is(err, shelf.ErrNotFound):
		return &appError{Error: err, Message: "There is no book with this index.", Code: http.StatusNotFound}
	case errors.Is(err, shelf.ErrInvalidAmount):
		return &appError{Error: err, Message: "The amount must be a positive whole number.", Code: http.StatusBadRequest}
	case errors.Is(err, ledger.ErrAborted):
		msg := "The contract rejected the " + action + "."
		if reason := ledger.ReasonOf(err); reason != "" {
			msg += " " + reason
		}
		return &appError{Error: err, Message: msg, Code: http.StatusUnprocessableEntity}
	default:
		return &appError{Error: err, Message: "The ledger could not be reached, the " + action + " was not submitted.", Code: http.StatusBadGateway}
	}
}

type booksView struct {
	Query      string
	Books      []shelf.Book
	Catalogues []shelf.Catalogue

	BookForm        shelf.BookInput
	BookErrors      []shelf.FieldError
	CatalogueForm   shelf.CatalogueInput
	CatalogueErrors []shelf.FieldError
}

var notices = map[string]notice{
	"voted":                {Kind: "success", Text: "Your vote was submitted."},
	"book-registered":      {Kind: "success", Text: "The book was submitted for registration."},
	"catalogue-registered": {Kind: "success", Text: "The catalogue was submitted for registration."},
}

func (h *Handler) renderBooks(w http.ResponseWriter, r *http.Request, status int, n *notice, view booksView) {
	view.Books = shelf.FilterBooks(h.shelf.Books(), view.Query)
	view.Catalogues = h.shelf.Catalogues()
	err := h.booksTmpl.Execute(w, status, pageData{
		Contract: h.contract,
		LoadedAt: h.shelf.LoadedAt(),
		Notice:   n,
		Data:     view,
	})
	if err != nil {
		h.log.Error("render books failed", zap.Error(err), zap.String("request_id", httpx.RequestIDFrom(r)))
		http.Error(w, "could not render page", http.StatusInternalServerError)
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) *appError {
	var n *notice
	if known, ok := notices[r.URL.Query().Get("notice")]; ok {
		n = &known
	}

	force := r.URL.Query().Get("refresh") == "true"
	if err := h.shelf.Refresh(r.Context(), force); err != nil {
		h.log.Warn("refresh failed, serving cached lists", zap.Error(err))
		n = &notice{Kind: "error", Text: "The ledger could not be reached. Showing the last known lists."}
	}

	h.renderBooks(w, r, http.StatusOK, n, booksView{Query: r.URL.Query().Get("q")})
	return nil
}

func (h *Handler) registerBook(w http.ResponseWriter, r *http.Request) *appError {
	if err := r.ParseForm(); err != nil {
		return &appError{Error: err, Message: "The form could not be read.", Code: http.StatusBadRequest}
	}
	in := shelf.BookInput{
		URL:         r.PostFormValue("url"),
		Name:        r.PostFormValue("name"),
		Catalogue:   r.PostFormValue("catalogue"),
		Author:      r.PostFormValue("author"),
		Description: r.PostFormValue("description"),
	}

	if _, err := h.shelf.RegisterBook(r.Context(), in); err != nil {
		var verr *shelf.ValidationError
		if errors.As(err, &verr) {
			h.renderBooks(w, r, http.StatusBadRequest,
				&notice{Kind: "error", Text: "Please correct the highlighted fields."},
				booksView{BookForm: in, BookErrors: verr.Fields})
			return nil
		}
		return ledgerError(err, "registration")
	}

	http.Redirect(w, r, "/books?notice=book-registered", http.StatusSeeOther)
	return nil
}

func (h *Handler) registerCatalogue(w http.ResponseWriter, r *http.Request) *appError {
	if err := r.ParseForm(); err != nil {
		return &appError{Error: err, Message: "The form could not be read.", Code: http.StatusBadRequest}
	}
	in := shelf.CatalogueInput{
		URL:         r.PostFormValue("url"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}

	if _, err := h.shelf.RegisterCatalogue(r.Context(), in); err != nil {
		var verr *shelf.ValidationError
		if errors.As(err, &verr) {
			h.renderBooks(w, r, http.StatusBadRequest,
				&notice{Kind: "error", Text: "Please correct the highlighted fields."},
				booksView{CatalogueForm: in, CatalogueErrors: verr.Fields})
			return nil
		}
		return ledgerError(err, "registration")
	}

	http.Redirect(w, r, "/books?notice=catalogue-registered", http.StatusSeeOther)
	return nil
}

func (h *Handler) voteBook(w http.ResponseWriter, r *http.Request) *appError {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return &appError{Error: err, Message: "There is no book with this index.", Code: http.StatusNotFound}
	}
	if err := r.ParseForm(); err != nil {
		return &appError{Error: err, Message: "The form could not be read.", Code: http.StatusBadRequest}
	}
	amount, err := strconv.ParseInt(r.PostFormValue("amount"), 10, 64)
	if err != nil {
		return &appError{Error: err, Message: "The amount must be a positive whole number.", Code: http.StatusBadRequest}
	}

	if _, err := h.shelf.Vote(r.Context(), index, amount); err != nil {
		return ledgerError(err, "vote")
	}

	http.Redirect(w, r, "/books?notice=voted#book-"+strconv.Itoa(index), http.StatusSeeOther)
	return nil
}

// listMeta is attached to API list responses.
func (h *Handler) listMeta(total int, stale bool) map[string]any {
	meta := map[string]any{"total": total, "stale": stale}
	if t := h.shelf.LoadedAt(); !t.IsZero() {
		meta["loaded_at"] = t.UTC().Format(time.RFC3339)
	}
	return meta
}

// refreshForAPI refreshes the shelf and reports whether the lists are stale.
// It writes a 502 and returns false when nothing was ever loaded.
func (h *Handler) refreshForAPI(w http.ResponseWriter, r *http.Request) (stale bool, ok bool) {
	err := h.shelf.Refresh(r.Context(), r.URL.Query().Get("refresh") == "true")
	if err == nil {
		return false, true
	}
	h.log.Warn("api refresh failed", zap.Error(err), zap.String("request_id", httpx.RequestIDFrom(r)))
	if h.shelf.LoadedAt().IsZero() && len(h.shelf.Books()) == 0 {
		httpx.JSONError(w, r, http.StatusBadGateway, "LEDGER_UNAVAILABLE", "The ledger could not be reached", nil)
		return true, false
	}
	return true, true
}

func (h *Handler) apiBooks(w http.ResponseWriter, r *http.Request) {
	stale, ok := h.refreshForAPI(w, r)
	if !ok {
		return
	}
	books := shelf.FilterBooks(h.shelf.Books(), r.URL.Query().Get("q"))
	httpx.JSONSuccess(w, r, books, h.listMeta(len(books), stale))
}

func (h *Handler) apiCatalogues(w http.ResponseWriter, r *http.Request) {
	stale, ok := h.refreshForAPI(w, r)
	if !ok {
		return
	}
	catalogues := h.shelf.Catalogues()
	httpx.JSONSuccess(w, r, catalogues, h.listMeta(len(catalogues), stale))
}

func (h *Handler) apiSubmissions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		httpx.JSONError(w, r, http.StatusNotFound, "JOURNAL_DISABLED", "No submission journal is configured", nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit", []httpx.ErrorDetail{
				{Field: "limit", Message: "limit must be a positive integer"},
			})
			return
		}
		limit = n
	}

	subs, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("list submissions failed", zap.Error(err), zap.String("request_id", httpx.RequestIDFrom(r)))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not list submissions", nil)
		return
	}
	httpx.JSONSuccess(w, r, subs, map[string]any{"total": len(subs)})
}

func (h *Handler) internalRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.shelf.Refresh(r.Context(), true); err != nil {
		h.log.Error("forced refresh failed", zap.Error(err))
		httpx.JSONError(w, r, http.StatusBadGateway, "LEDGER_UNAVAILABLE", "The ledger could not be reached", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]any{
		"books":      len(h.shelf.Books()),
		"catalogues": len(h.shelf.Catalogues()),
	}, nil)
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.shelf.LoadedAt().IsZero() {
		http.Error(w, "shelf not loaded", http.StatusServiceUnavailable)
		return
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
