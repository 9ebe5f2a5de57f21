package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/zkfactor/internal/httputil"
)

// ExplorerClient reads public state from the explorer REST API. Requests are
// rate limited client side; the public endpoint throttles aggressively.
type ExplorerClient struct {
	http    *httputil.Client
	network string
	limiter *rate.Limiter
}

// ExplorerConfig configures the explorer client.
type ExplorerConfig struct {
	Endpoint          string
	Network           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// NewExplorerClient creates a new explorer client.
func NewExplorerClient(cfg ExplorerConfig) (*ExplorerClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("explorer endpoint required")
	}
	if cfg.Network == "" {
		return nil, fmt.Errorf("network required")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &ExplorerClient{
		http:    httputil.NewClient(httputil.ClientConfig{BaseURL: cfg.Endpoint, Timeout: cfg.Timeout}),
		network: cfg.Network,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

var (
	_ MappingReader = (*ExplorerClient)(nil)
	_ ChainReader   = (*ExplorerClient)(nil)
)

// Mapping returns the value stored at mapping[key] for program. JSON string
// values (Aleo plaintext) are unquoted; objects are returned as raw JSON.
// A 404 or a null body yields ErrMappingNotFound.
func (c *ExplorerClient) Mapping(ctx context.Context, program, mapping, key string) (string, error) {
	path := fmt.Sprintf("/%s/program/%s/mapping/%s/%s",
		url.PathEscape(c.network), url.PathEscape(program), url.PathEscape(mapping), url.PathEscape(key))

	body, err := c.get(ctx, path)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", ErrMappingNotFound
		}
		return "", fmt.Errorf("explorer mapping %s/%s: %w", mapping, key, err)
	}

	value := gjson.ParseBytes(body)
	switch value.Type {
	case gjson.Null:
		return "", ErrMappingNotFound
	case gjson.String:
		if value.String() == "" {
			return "", ErrMappingNotFound
		}
		return value.String(), nil
	default:
		return value.Raw, nil
	}
}

// LatestHeight returns the current block height.
func (c *ExplorerClient) LatestHeight(ctx context.Context) (uint64, error) {
	body, err := c.get(ctx, fmt.Sprintf("/%s/latest/height", url.PathEscape(c.network)))
	if err != nil {
		return 0, fmt.Errorf("explorer latest height: %w", err)
	}
	h, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("explorer latest height: %w", err)
	}
	return h, nil
}

// Transaction looks up a confirmed transaction by id. Unconfirmed and unknown
// ids yield ErrTransactionNotFound.
func (c *ExplorerClient) Transaction(ctx context.Context, id string) (TransactionInfo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return TransactionInfo{}, fmt.Errorf("transaction id required")
	}
	body, err := c.get(ctx, fmt.Sprintf("/%s/transaction/%s", url.PathEscape(c.network), url.PathEscape(id)))
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return TransactionInfo{}, ErrTransactionNotFound
		}
		return TransactionInfo{}, fmt.Errorf("explorer transaction %s: %w", id, err)
	}

	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return TransactionInfo{}, ErrTransactionNotFound
	}
	info := TransactionInfo{
		ID:   doc.Get("id").String(),
		Type: doc.Get("type").String(),
	}
	transitions := doc.Get("execution.transitions")
	if !transitions.Exists() {
		transitions = doc.Get("deployment.transitions")
	}
	transitions.ForEach(func(_, t gjson.Result) bool {
		info.Transitions = append(info.Transitions, decodeTransition(t))
		return true
	})
	if fee := doc.Get("fee.transition"); fee.Exists() {
		t := decodeTransition(fee)
		info.FeeTransition = &t
	}
	return info, nil
}

func decodeTransition(t gjson.Result) Transition {
	return Transition{
		ID:       t.Get("id").String(),
		Program:  t.Get("program").String(),
		Function: t.Get("function").String(),
	}
}

func (c *ExplorerClient) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _, _ := httputil.ReadAllWithLimit(resp.Body, 4<<10)
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return httputil.ReadAllStrict(resp.Body, 1<<20)
}
