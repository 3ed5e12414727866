// Package httpfetch serves dictionary shards from a static HTTP origin.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/scan-resolver/internal/infrastructure/resilience"
)

type Options struct {
	// Timeout of zero leaves the transport default in place.
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string) *Client {
	return NewWithOptions(baseURL, Options{})
}

func NewWithOptions(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

// Open downloads the whole shard so retries never hand out a half-read body.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	var body []byte
	call := func(callCtx context.Context) error {
		data, err := c.get(callCtx, key)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "dictionary.fetch", call, classifyFetchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("fetch shard "+key, err)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (c *Client) get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(key, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("create shard request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shard %s request: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{
			Key:        key,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", key, err)
	}
	return data, nil
}
