package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a gateway Client.
type Options struct {
	GatewayURL string
	Contract   string
	Account    string
	Secret     string
	RPS        int
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the contract through the gateway's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	contract   string
	account    string
	secret     string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
	log        *zap.Logger
}

var _ Contract = (*Client)(nil)

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.GatewayURL, "/"),
		contract:   opts.Contract,
		account:    opts.Account,
		secret:     opts.Secret,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: opts.MaxRetries,
		backoff:    time.Second,
		now:        time.Now,
		log:        logger.Named("ledger"),
	}
}

// Caller returns the account write calls are submitted from.
func (c *Client) Caller() string {
	return c.account
}

// Contract returns the contract address this client targets.
func (c *Client) Contract() string {
	return c.contract
}

// CallError describes a failed gateway call.
type CallError struct {
	Function string
	Status   int
	Reason   string
	Err      error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Function, e.Err)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *CallError) Unwrap() error { return e.Err }

// ReasonOf returns the gateway or contract reason carried by err, if any.
func ReasonOf(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

func (c *Client) BooksLength(ctx context.Context) (int, error) {
	var n int
	if err := c.static(ctx, FnGetBooksLength, []any{}, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) GetBook(ctx context.Context, index int) (Book, error) {
	var b Book
	if err := c.static(ctx, FnGetBook, []any{index}, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (c *Client) RegisterBook(ctx context.Context, in BookInput) (Receipt, error) {
	return c.submit(ctx, FnRegisterBook, in.Args(), 0)
}

func (c *Client) VoteBook(ctx context.Context, index int, amount int64) (Receipt, error) {
	return c.submit(ctx, FnVoteBook, []any{index}, amount)
}

func (c *Client) CataloguesLength(ctx context.Context) (int, error) {
	var n int
	if err := c.static(ctx, FnGetCataloguesLength, []any{}, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) GetCatalogue(ctx context.Context, index int) (Catalogue, error) {
	var cat Catalogue
	if err := c.static(ctx, FnGetCatalogue, []any{index}, &cat); err != nil {
		return Catalogue{}, err
	}
	return cat, nil
}

func (c *Client) RegisterCatalogue(ctx context.Context, in CatalogueInput) (Receipt, error) {
	return c.submit(ctx, FnRegisterCatalogue, in.Args(), 0)
}

type callRequest struct {
	Function  string `json:"function"`
	Arguments []any  `json:"arguments"`
	Static    bool   `json:"static"`
	Amount    int64  `json:"amount"`
	Caller    string `json:"caller,omitempty"`
}

type callResponse struct {
	Result json.RawMessage `json:"result"`
	TxHash string          `json:"tx_hash"`
	Reason string          `json:"reason"`
}

// static performs a read-only call, retrying transient failures.
func (c *Client) static(ctx context.Context, fn string, args []any, target any) error {
	req := callRequest{Function: fn, Arguments: args, Static: true, Caller: c.account}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			c.log.Warn("retrying static call",
				zap.String("function", fn),
				zap.Int("attempt", i),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, retry, err := c.do(ctx, req)
		if err != nil {
			if !retry {
				return err
			}
			lastErr = err
			continue
		}
		if err := json.Unmarshal(resp.Result, target); err != nil {
			return &CallError{Function: fn, Err: fmt.Errorf("decode result: %w", err)}
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

// submit performs a state-changing call exactly once.
func (c *Client) submit(ctx context.Context, fn string, args []any, amount int64) (Receipt, error) {
	req := callRequest{Function: fn, Arguments: args, Amount: amount, Caller: c.account}
	resp, _, err := c.do(ctx, req)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{TxHash: resp.TxHash}, nil
}

// do sends one request. The boolean reports whether the failure is worth retrying.
func (c *Client) do(ctx context.Context, call callRequest) (callResponse, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return callResponse{}, false, err
	}

	body, err := json.Marshal(call)
	if err != nil {
		return callResponse{}, false, &CallError{Function: call.Function, Err: err}
	}

	u := fmt.Sprintf("%s/v1/contracts/%s/call", c.baseURL, url.PathEscape(c.contract))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return callResponse{}, false, &CallError{Function: call.Function, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		token, err := SignGatewayToken(c.secret, c.account, c.contract, c.now())
		if err != nil {
			return callResponse{}, false, &CallError{Function: call.Function, Err: fmt.Errorf("sign gateway token: %w", err)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return callResponse{}, false, ctx.Err()
		}
		return callResponse{}, true, &CallError{Function: call.Function, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return callResponse{}, true, &CallError{Function: call.Function, Status: resp.StatusCode, Err: fmt.Errorf("%w: read body: %v", ErrUnavailable, err)}
	}

	var out callResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode == http.StatusOK {
			return callResponse{}, false, &CallError{Function: call.Function, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return out, false, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return callResponse{}, false, &CallError{Function: call.Function, Status: resp.StatusCode, Reason: out.Reason, Err: ErrAborted}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return callResponse{}, true, &CallError{Function: call.Function, Status: resp.StatusCode, Reason: out.Reason, Err: ErrUnavailable}
	default:
		return callResponse{}, false, &CallError{Function: call.Function, Status: resp.StatusCode, Reason: out.Reason, Err: errors.New("gateway rejected request")}
	}
}
