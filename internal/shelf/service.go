package shelf

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookvote/internal/journal"
	"bookvote/internal/ledger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configures a Shelf. Journal and Snapshots are optional.
type Options struct {
	// Caller is recorded as the creator of locally appended records.
	Caller string
	TTL    time.Duration
	// LoadTimeout bounds a shared reload. Zero means defaultLoadTimeout.
	LoadTimeout time.Duration
	Journal     Recorder
	Snapshots   SnapshotStore
	SnapshotKey string
	Logger      *zap.Logger
}

const defaultLoadTimeout = 2 * time.Minute

// Shelf is the in-memory mirror of the contract's books and catalogues.
type Shelf struct {
	contract    ledger.Contract
	caller      string
	ttl         time.Duration
	loadTimeout time.Duration
	journal     Recorder
	snapshots   SnapshotStore
	snapshotKey string
	log         *zap.Logger
	now         func() time.Time
	loads       singleflight.Group

	mu         sync.RWMutex
	books      []Book // index order
	catalogues []Catalogue
	loadedAt   time.Time // zero until the first successful ledger load
}

type snapshotState struct {
	Books      []Book      `json:"books"`
	Catalogues []Catalogue `json:"catalogues"`
	LoadedAt   time.Time   `json:"loaded_at"`
}

func New(contract ledger.Contract, opts Options) *Shelf {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &Shelf{
		contract:    contract,
		caller:      opts.Caller,
		ttl:         opts.TTL,
		loadTimeout: loadTimeout,
		journal:     opts.Journal,
		snapshots:   opts.Snapshots,
		snapshotKey: opts.SnapshotKey,
		log:         logger.Named("shelf"),
		now:         time.Now,
	}
}

// Load fetches the book count, then every book one at a time, then the same
// for catalogues. The lists are swapped in only when every call succeeded.
func (s *Shelf) Load(ctx context.Context) error {
	start := s.now()

	books, err := s.fetchBooks(ctx)
	if err != nil {
		s.log.Error("load books failed", zap.Error(err))
		return fmt.Errorf("load books: %w", err)
	}
	catalogues, err := s.fetchCatalogues(ctx)
	if err != nil {
		s.log.Error("load catalogues failed", zap.Error(err))
		return fmt.Errorf("load catalogues: %w", err)
	}

	loadedAt := s.now()
	s.mu.Lock()
	s.books = books
	s.catalogues = catalogues
	s.loadedAt = loadedAt
	s.mu.Unlock()

	s.log.Info("shelf loaded",
		zap.Int("books", len(books)),
		zap.Int("catalogues", len(catalogues)),
		zap.Duration("duration", loadedAt.Sub(start)),
	)
	s.saveSnapshot(snapshotState{Books: books, Catalogues: catalogues, LoadedAt: loadedAt})
	return nil
}

func (s *Shelf) fetchBooks(ctx context.Context) ([]Book, error) {
	n, err := s.contract.BooksLength(ctx)
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, n)
	for i := 1; i <= n; i++ {
		b, err := s.contract.GetBook(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("book %d: %w", i, err)
		}
		books = append(books, bookFromLedger(i, b))
	}
	return books, nil
}

func (s *Shelf) fetchCatalogues(ctx context.Context) ([]Catalogue, error) {
	n, err := s.contract.CataloguesLength(ctx)
	if err != nil {
		return nil, err
	}
	catalogues := make([]Catalogue, 0, n)
	for i := 1; i <= n; i++ {
		c, err := s.contract.GetCatalogue(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("catalogue %d: %w", i, err)
		}
		catalogues = append(catalogues, catalogueFromLedger(i, c))
	}
	return catalogues, nil
}

// Refresh reloads the lists when they are older than the TTL, or always when
// force is set. Concurrent refreshes share a single load, which runs detached
// from any one caller so a cancelled request does not fail the others. A
// caller whose ctx ends stops waiting; the load carries on.
func (s *Shelf) Refresh(ctx context.Context, force bool) error {
	if !force && s.fresh() {
		return nil
	}
	ch := s.loads.DoChan("load", func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return nil, s.Load(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Shelf) fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loadedAt.IsZero() || s.ttl <= 0 {
		return false
	}
	return s.now().Sub(s.loadedAt) < s.ttl
}

// LoadedAt reports when the lists were last loaded from the ledger.
func (s *Shelf) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Books returns a copy of the books, most votes first. Ties keep index order.
func (s *Shelf) Books() []Book {
	s.mu.RLock()
	out := make([]Book, len(s.books))
	copy(out, s.books)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	return out
}

// Catalogues returns a copy of the catalogues, most votes first.
func (s *Shelf) Catalogues() []Catalogue {
	s.mu.RLock()
	out := make([]Catalogue, len(s.catalogues))
	copy(out, s.catalogues)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	return out
}

// Book looks a book up by its contract index.
func (s *Shelf) Book(index int) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.bookPos(index); i >= 0 {
		return s.books[i], true
	}
	return Book{}, false
}

// bookPos must be called with mu held.
func (s *Shelf) bookPos(index int) int {
	for i := range s.books {
		if s.books[i].Index == index {
			return i
		}
	}
	return -1
}

// Vote submits a vote carrying amount for the book at index and, once the
// gateway accepted it, adds amount to the cached vote count.
func (s *Shelf) Vote(ctx context.Context, index int, amount int64) (Book, error) {
	if amount <= 0 {
		return Book{}, ErrInvalidAmount
	}
	if _, ok := s.Book(index); !ok {
		return Book{}, ErrNotFound
	}

	receipt, err := s.contract.VoteBook(ctx, index, amount)
	s.record(ctx, ledger.FnVoteBook, []any{index}, amount, receipt, err)
	if err != nil {
		s.log.Error("vote failed", zap.Int("index", index), zap.Int64("amount", amount), zap.Error(err))
		return Book{}, fmt.Errorf("vote book %d: %w", index, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.bookPos(index)
	if i < 0 {
		// A reload dropped the book while the vote was in flight. The vote
		// went through; only the count is unknown until the next load.
		return Book{Index: index}, nil
	}
	s.books[i].Votes += amount
	return s.books[i], nil
}

// RegisterBook submits a new book and appends it to the local list.
func (s *Shelf) RegisterBook(ctx context.Context, in BookInput) (Book, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return Book{}, err
	}

	args := ledger.BookInput{
		URL:         in.URL,
		Name:        in.Name,
		Catalogue:   in.Catalogue,
		Author:      in.Author,
		Description: in.Description,
	}
	receipt, err := s.contract.RegisterBook(ctx, args)
	s.record(ctx, ledger.FnRegisterBook, args.Args(), 0, receipt, err)
	if err != nil {
		s.log.Error("register book failed", zap.String("name", in.Name), zap.Error(err))
		return Book{}, fmt.Errorf("register book: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := Book{
		Index:       len(s.books) + 1,
		Creator:     s.caller,
		URL:         in.URL,
		Name:        in.Name,
		Catalogue:   in.Catalogue,
		Author:      in.Author,
		Description: in.Description,
	}
	s.books = append(s.books, b)
	return b, nil
}

// RegisterCatalogue submits a new catalogue and appends it to the local list.
func (s *Shelf) RegisterCatalogue(ctx context.Context, in CatalogueInput) (Catalogue, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return Catalogue{}, err
	}

	args := ledger.CatalogueInput{URL: in.URL, Name: in.Name, Description: in.Description}
	receipt, err := s.contract.RegisterCatalogue(ctx, args)
	s.record(ctx, ledger.FnRegisterCatalogue, args.Args(), 0, receipt, err)
	if err != nil {
		s.log.Error("register catalogue failed", zap.String("name", in.Name), zap.Error(err))
		return Catalogue{}, fmt.Errorf("register catalogue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := Catalogue{
		Index:       len(s.catalogues) + 1,
		Creator:     s.caller,
		URL:         in.URL,
		Name:        in.Name,
		Description: in.Description,
	}
	s.catalogues = append(s.catalogues, c)
	return c, nil
}

// Warm fills the lists from the last snapshot. It does not mark the shelf as
// loaded, so the next Refresh still goes to the ledger.
func (s *Shelf) Warm(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}
	var st snapshotState
	ok, err := s.snapshots.Get(s.snapshotKey, &st)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loadedAt.IsZero() {
		return false, nil
	}
	s.books = st.Books
	s.catalogues = st.Catalogues
	s.log.Info("shelf warmed from snapshot",
		zap.Int("books", len(st.Books)),
		zap.Time("snapshot_loaded_at", st.LoadedAt),
	)
	return true, nil
}

func (s *Shelf) saveSnapshot(st snapshotState) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Put(s.snapshotKey, st); err != nil {
		s.log.Warn("save snapshot failed", zap.Error(err))
	}
}

func (s *Shelf) record(ctx context.Context, fn string, args []any, amount int64, receipt ledger.Receipt, callErr error) {
	if s.journal == nil {
		return
	}
	raw, err := json.Marshal(args)
	if err != nil {
		s.log.Warn("encode journal arguments failed", zap.String("function", fn), zap.Error(err))
		raw = []byte("[]")
	}
	sub := &journal.Submission{
		Function:  fn,
		Arguments: raw,
		Amount:    amount,
		Caller:    s.caller,
		Status:    journal.StatusSubmitted,
		TxHash:    receipt.TxHash,
	}
	if callErr != nil {
		sub.Status = journal.StatusFailed
		sub.Error = callErr.Error()
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), sub); err != nil {
		s.log.Warn("journal record failed", zap.String("function", fn), zap.Error(err))
	}
}
