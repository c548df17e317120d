package shelf

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookvote/internal/journal"
	"bookvote/internal/ledger"
	"bookvote/internal/ledger/mocks"
	"bookvote/internal/snapshot"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, s *journal.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

var ledgerBooks = []ledger.Book{
	{CreatorAddress: "ak_1", Name: "Dune", Author: "Herbert", Catalogue: "Sci-fi", URL: "https://x/1", VoteCount: 5},
	{CreatorAddress: "ak_2", Name: "Emma", Author: "Austen", Catalogue: "Classics", URL: "https://x/2", VoteCount: 20},
	{CreatorAddress: "ak_3", Name: "Ubik", Author: "Dick", Catalogue: "Sci-fi", URL: "https://x/3", VoteCount: 5},
}

// expectLoad sets up a full sequential load of ledgerBooks and no catalogues.
func expectLoad(contract *mocks.MockContract) {
	gomock.InOrder(
		contract.EXPECT().BooksLength(gomock.Any()).Return(len(ledgerBooks), nil),
		contract.EXPECT().GetBook(gomock.Any(), 1).Return(ledgerBooks[0], nil),
		contract.EXPECT().GetBook(gomock.Any(), 2).Return(ledgerBooks[1], nil),
		contract.EXPECT().GetBook(gomock.Any(), 3).Return(ledgerBooks[2], nil),
		contract.EXPECT().CataloguesLength(gomock.Any()).Return(0, nil),
	)
}

func loadedShelf(t *testing.T, opts Options) (*Shelf, *mocks.MockContract) {
	t.Helper()
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)
	expectLoad(contract)
	s := New(contract, opts)
	require.NoError(t, s.Load(context.Background()))
	return s, contract
}

func TestShelf_LoadSortsByVotes(t *testing.T) {
	s, _ := loadedShelf(t, Options{})

	want := []Book{
		{Index: 2, Creator: "ak_2", Name: "Emma", Author: "Austen", Catalogue: "Classics", URL: "https://x/2", Votes: 20},
		{Index: 1, Creator: "ak_1", Name: "Dune", Author: "Herbert", Catalogue: "Sci-fi", URL: "https://x/1", Votes: 5},
		{Index: 3, Creator: "ak_3", Name: "Ubik", Author: "Dick", Catalogue: "Sci-fi", URL: "https://x/3", Votes: 5},
	}
	if diff := cmp.Diff(want, s.Books()); diff != "" {
		t.Errorf("Books() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.LoadedAt().IsZero())
}

func TestShelf_LoadEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)
	contract.EXPECT().BooksLength(gomock.Any()).Return(0, nil)
	contract.EXPECT().CataloguesLength(gomock.Any()).Return(0, nil)

	s := New(contract, Options{})
	require.NoError(t, s.Load(context.Background()))
	assert.Empty(t, s.Books())
	assert.Empty(t, s.Catalogues())
}

func TestShelf_LoadFailureKeepsPreviousList(t *testing.T) {
	s, contract := loadedShelf(t, Options{})
	before := s.Books()

	contract.EXPECT().BooksLength(gomock.Any()).Return(2, nil)
	contract.EXPECT().GetBook(gomock.Any(), 1).Return(ledgerBooks[0], nil)
	contract.EXPECT().GetBook(gomock.Any(), 2).Return(ledger.Book{}, ledger.ErrUnavailable)

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.Equal(t, before, s.Books())
}

func TestShelf_LoadCatalogues(t *testing.T) {
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)
	contract.EXPECT().BooksLength(gomock.Any()).Return(0, nil)
	contract.EXPECT().CataloguesLength(gomock.Any()).Return(2, nil)
	contract.EXPECT().GetCatalogue(gomock.Any(), 1).Return(ledger.Catalogue{Name: "Classics", VoteCount: 1}, nil)
	contract.EXPECT().GetCatalogue(gomock.Any(), 2).Return(ledger.Catalogue{Name: "Sci-fi", VoteCount: 9}, nil)

	s := New(contract, Options{})
	require.NoError(t, s.Load(context.Background()))

	got := s.Catalogues()
	require.Len(t, got, 2)
	assert.Equal(t, "Sci-fi", got[0].Name)
	assert.Equal(t, 2, got[0].Index)
}

func TestShelf_RefreshHonoursTTL(t *testing.T) {
	s, contract := loadedShelf(t, Options{TTL: time.Minute})
	now := time.Now()
	s.now = func() time.Time { return now }
	s.loadedAt = now

	// Fresh: no ledger calls expected.
	require.NoError(t, s.Refresh(context.Background(), false))

	// Forced: full reload.
	expectLoad(contract)
	require.NoError(t, s.Refresh(context.Background(), true))

	// Stale: full reload.
	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	expectLoad(contract)
	require.NoError(t, s.Refresh(context.Background(), false))
}

func TestShelf_VoteIncrementsAfterSubmission(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, mock.MatchedBy(func(sub *journal.Submission) bool {
		return sub.Function == ledger.FnVoteBook &&
			sub.Status == journal.StatusSubmitted &&
			sub.Amount == 30 &&
			sub.TxHash == "th_1" &&
			string(sub.Arguments) == "[1]"
	})).Return(nil).Once()

	s, contract := loadedShelf(t, Options{Journal: rec, Caller: "ak_me"})
	contract.EXPECT().VoteBook(gomock.Any(), 1, int64(30)).Return(ledger.Receipt{TxHash: "th_1"}, nil)

	b, err := s.Vote(context.Background(), 1, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(35), b.Votes)

	books := s.Books()
	assert.Equal(t, 1, books[0].Index, "35 votes moves Dune above Emma")
	rec.AssertExpectations(t)
}

func TestShelf_VoteFailureLeavesCountUnchanged(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, mock.MatchedBy(func(sub *journal.Submission) bool {
		return sub.Status == journal.StatusFailed && sub.Error != ""
	})).Return(nil).Once()

	s, contract := loadedShelf(t, Options{Journal: rec})
	contract.EXPECT().VoteBook(gomock.Any(), 2, int64(10)).Return(ledger.Receipt{}, ledger.ErrAborted)

	_, err := s.Vote(context.Background(), 2, 10)
	require.ErrorIs(t, err, ledger.ErrAborted)

	b, ok := s.Book(2)
	require.True(t, ok)
	assert.Equal(t, int64(20), b.Votes)
	rec.AssertExpectations(t)
}

func TestShelf_VoteRejectsBadInput(t *testing.T) {
	s, _ := loadedShelf(t, Options{})

	_, err := s.Vote(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Vote(context.Background(), 1, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Vote(context.Background(), 99, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShelf_JournalErrorsDoNotFailVote(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("Record", mock.Anything, mock.Anything).Return(errors.New("db down"))

	s, contract := loadedShelf(t, Options{Journal: rec})
	contract.EXPECT().VoteBook(gomock.Any(), 3, int64(1)).Return(ledger.Receipt{}, nil)

	b, err := s.Vote(context.Background(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.Votes)
}

func TestShelf_RegisterBookAppends(t *testing.T) {
	s, contract := loadedShelf(t, Options{Caller: "ak_me"})
	contract.EXPECT().RegisterBook(gomock.Any(), ledger.BookInput{
		URL:         "https://x/4",
		Name:        "Solaris",
		Catalogue:   "Sci-fi",
		Author:      "Lem",
		Description: "Ocean",
	}).Return(ledger.Receipt{TxHash: "th_reg"}, nil)

	b, err := s.RegisterBook(context.Background(), BookInput{
		URL:         " https://x/4 ",
		Name:        "Solaris",
		Catalogue:   "Sci-fi",
		Author:      "Lem",
		Description: "Ocean",
	})
	require.NoError(t, err)
	assert.Equal(t, Book{
		Index:       4,
		Creator:     "ak_me",
		URL:         "https://x/4",
		Name:        "Solaris",
		Catalogue:   "Sci-fi",
		Author:      "Lem",
		Description: "Ocean",
	}, b)

	books := s.Books()
	require.Len(t, books, 4)
	assert.Equal(t, "Solaris", books[3].Name, "zero votes sorts last")
}

func TestShelf_RegisterBookValidation(t *testing.T) {
	s, _ := loadedShelf(t, Options{})

	_, err := s.RegisterBook(context.Background(), BookInput{URL: "not a url", Name: ""})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["url"])
	assert.True(t, fields["name"])
	assert.True(t, fields["catalogue"])
	assert.True(t, fields["author"])
	assert.False(t, fields["description"])
	assert.Len(t, s.Books(), 3)
}

func TestShelf_RegisterBookFailure(t *testing.T) {
	s, contract := loadedShelf(t, Options{})
	contract.EXPECT().RegisterBook(gomock.Any(), gomock.Any()).Return(ledger.Receipt{}, ledger.ErrUnavailable)

	_, err := s.RegisterBook(context.Background(), BookInput{URL: "https://x", Name: "n", Catalogue: "c", Author: "a"})
	require.ErrorIs(t, err, ledger.ErrUnavailable)
	assert.Len(t, s.Books(), 3)
}

func TestShelf_RegisterCatalogue(t *testing.T) {
	s, contract := loadedShelf(t, Options{Caller: "ak_me"})
	contract.EXPECT().RegisterCatalogue(gomock.Any(), ledger.CatalogueInput{URL: "https://c", Name: "Poetry"}).
		Return(ledger.Receipt{}, nil)

	c, err := s.RegisterCatalogue(context.Background(), CatalogueInput{URL: "https://c", Name: "Poetry"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, "ak_me", c.Creator)
	assert.Len(t, s.Catalogues(), 1)
}

func TestShelf_SnapshotRoundTrip(t *testing.T) {
	store, err := snapshot.Open("")
	require.NoError(t, err)
	key := snapshot.KeyFor("ct_test")

	first, _ := loadedShelf(t, Options{Snapshots: store, SnapshotKey: key})

	second := New(nil, Options{Snapshots: store, SnapshotKey: key})
	ok, err := second.Warm(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, first.Books(), second.Books())
	assert.True(t, second.LoadedAt().IsZero(), "warm data is never considered fresh")
}

func TestShelf_WarmWithoutSnapshot(t *testing.T) {
	store, err := snapshot.Open("")
	require.NoError(t, err)

	s := New(nil, Options{Snapshots: store, SnapshotKey: "none"})
	ok, err := s.Warm(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShelf_ConcurrentRefreshSharesLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)

	release := make(chan struct{})
	contract.EXPECT().BooksLength(gomock.Any()).DoAndReturn(func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	}).MinTimes(1).MaxTimes(2)
	contract.EXPECT().CataloguesLength(gomock.Any()).Return(0, nil).MinTimes(1).MaxTimes(2)

	s := New(contract, Options{TTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background(), false))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestShelf_RefreshSurvivesCancelledCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	contract.EXPECT().BooksLength(gomock.Any()).DoAndReturn(func(ctx context.Context) (int, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "shared load is bounded by LoadTimeout")
		close(started)
		select {
		case <-release:
			return 0, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}).Times(1)
	contract.EXPECT().CataloguesLength(gomock.Any()).Return(0, nil).Times(1)

	s := New(contract, Options{TTL: time.Minute, LoadTimeout: time.Minute})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Refresh(first, false) }()
	<-started

	secondErr := make(chan error, 1)
	go func() { secondErr <- s.Refresh(context.Background(), false) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.NoError(t, <-secondErr)
	assert.False(t, s.LoadedAt().IsZero())
}

func TestShelf_VoteWhenReloadDropsBook(t *testing.T) {
	s, contract := loadedShelf(t, Options{})
	contract.EXPECT().VoteBook(gomock.Any(), 1, int64(4)).DoAndReturn(func(ctx context.Context, index int, amount int64) (ledger.Receipt, error) {
		contract.EXPECT().BooksLength(gomock.Any()).Return(0, nil)
		contract.EXPECT().CataloguesLength(gomock.Any()).Return(0, nil)
		require.NoError(t, s.Load(ctx))
		return ledger.Receipt{TxHash: "th_2"}, nil
	})

	b, err := s.Vote(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, Book{Index: 1}, b)
	_, ok := s.Book(1)
	assert.False(t, ok)
}

func TestShelf_VoteReturnsReloadedRecord(t *testing.T) {
	s, contract := loadedShelf(t, Options{})
	contract.EXPECT().VoteBook(gomock.Any(), 2, int64(1)).DoAndReturn(func(ctx context.Context, index int, amount int64) (ledger.Receipt, error) {
		expectLoad(contract)
		require.NoError(t, s.Load(ctx))
		return ledger.Receipt{}, nil
	})

	b, err := s.Vote(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "Emma", b.Name)
	assert.Equal(t, int64(21), b.Votes)
}
