package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "ct_test"

type gatewayCall struct {
	Path    string
	Auth    string
	Request callRequest
}

// fakeGateway answers with the handler's status and body and records every call.
func fakeGateway(t *testing.T, handler func(call callRequest) (int, any)) (*httptest.Server, *[]gatewayCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []gatewayCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req callRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		calls = append(calls, gatewayCall{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Request: req})
		mu.Unlock()

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(url string, secret string, maxRetries int) *Client {
	c := NewClient(Options{
		GatewayURL: url,
		Contract:   testContract,
		Account:    "ak_caller",
		Secret:     secret,
		RPS:        1000,
		MaxRetries: maxRetries,
	})
	c.backoff = time.Millisecond
	return c
}

func TestClient_Identity(t *testing.T) {
	c := newTestClient("http://gateway", "", 0)
	assert.Equal(t, testContract, c.Contract())
	assert.Equal(t, "ak_caller", c.Caller())
}

func TestClient_BooksLength(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"result": 3}
	})
	c := newTestClient(srv.URL, "", 0)

	n, err := c.BooksLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/v1/contracts/ct_test/call", got.Path)
	assert.Equal(t, FnGetBooksLength, got.Request.Function)
	assert.True(t, got.Request.Static)
	assert.Empty(t, got.Auth)
}

func TestClient_GetBook(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"result": map[string]any{
			"creatorAddress": "ak_creator",
			"url":            "https://example.com/cover.png",
			"name":           "Dune",
			"catalogue":      "Sci-fi",
			"author":         "Frank Herbert",
			"description":    "Spice",
			"voteCount":      42,
		}}
	})
	c := newTestClient(srv.URL, "", 0)

	b, err := c.GetBook(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, Book{
		CreatorAddress: "ak_creator",
		URL:            "https://example.com/cover.png",
		Name:           "Dune",
		Catalogue:      "Sci-fi",
		Author:         "Frank Herbert",
		Description:    "Spice",
		VoteCount:      42,
	}, b)
	assert.Equal(t, []any{float64(2)}, (*calls)[0].Request.Arguments)
}

func TestClient_GetBook_Aborted(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusUnprocessableEntity, map[string]any{"reason": "There was no book with this index registered."}
	})
	c := newTestClient(srv.URL, "", 3)

	_, err := c.GetBook(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Equal(t, "There was no book with this index registered.", ReasonOf(err))
	assert.Len(t, *calls, 1, "aborts are not retried")
}

func TestClient_StaticRetriesTransientFailures(t *testing.T) {
	var attempts int32
	srv, _ := fakeGateway(t, func(call callRequest) (int, any) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return http.StatusServiceUnavailable, map[string]any{"reason": "node syncing"}
		}
		return http.StatusOK, map[string]any{"result": 7}
	})
	c := newTestClient(srv.URL, "", 2)

	n, err := c.CataloguesLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_StaticGivesUp(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusBadGateway, map[string]any{"reason": "upstream down"}
	})
	c := newTestClient(srv.URL, "", 1)

	_, err := c.BooksLength(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Len(t, *calls, 2)
}

func TestClient_VoteBook(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"result": nil, "tx_hash": "th_vote"}
	})
	c := newTestClient(srv.URL, "", 0)

	receipt, err := c.VoteBook(context.Background(), 4, 250)
	require.NoError(t, err)
	assert.Equal(t, "th_vote", receipt.TxHash)

	got := (*calls)[0].Request
	assert.Equal(t, FnVoteBook, got.Function)
	assert.False(t, got.Static)
	assert.Equal(t, int64(250), got.Amount)
	assert.Equal(t, "ak_caller", got.Caller)
	assert.Equal(t, []any{float64(4)}, got.Arguments)
}

func TestClient_WriteCallsAreNotRetried(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusServiceUnavailable, map[string]any{"reason": "mempool full"}
	})
	c := newTestClient(srv.URL, "", 5)

	_, err := c.VoteBook(context.Background(), 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Len(t, *calls, 1)
}

func TestClient_RegisterBookArgumentOrder(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"tx_hash": "th_reg"}
	})
	c := newTestClient(srv.URL, "", 0)

	_, err := c.RegisterBook(context.Background(), BookInput{
		URL:         "u",
		Name:        "n",
		Catalogue:   "c",
		Author:      "a",
		Description: "d",
	})
	require.NoError(t, err)

	got := (*calls)[0].Request
	assert.Equal(t, FnRegisterBook, got.Function)
	assert.Equal(t, int64(0), got.Amount)
	assert.Equal(t, []any{"u", "n", "c", "a", "d"}, got.Arguments)
}

func TestClient_RegisterCatalogue(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"tx_hash": "th_cat"}
	})
	c := newTestClient(srv.URL, "", 0)

	_, err := c.RegisterCatalogue(context.Background(), CatalogueInput{URL: "u", Name: "n", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, []any{"u", "n", "d"}, (*calls)[0].Request.Arguments)
}

func TestClient_SignsRequestsWhenSecretSet(t *testing.T) {
	srv, calls := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"result": 0}
	})
	c := newTestClient(srv.URL, "s3cret", 0)

	_, err := c.BooksLength(context.Background())
	require.NoError(t, err)

	auth := (*calls)[0].Auth
	require.True(t, strings.HasPrefix(auth, "Bearer "))
	claims, err := parseGatewayToken("s3cret", strings.TrimPrefix(auth, "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, "ak_caller", claims.Subject)
	assert.Equal(t, testContract, claims.Contract)
}

func TestClient_RejectedRequest(t *testing.T) {
	srv, _ := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusUnauthorized, map[string]any{"reason": "bad token"}
	})
	c := newTestClient(srv.URL, "", 2)

	_, err := c.BooksLength(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAborted))
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "bad token")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv, _ := fakeGateway(t, func(call callRequest) (int, any) {
		return http.StatusOK, map[string]any{"result": 1}
	})
	c := newTestClient(srv.URL, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.BooksLength(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
