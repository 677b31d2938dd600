// Package metadata fetches and validates token metadata documents
// referenced by resolved token URIs.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second

	// maxDocumentSize bounds how much of a metadata document is read.
	maxDocumentSize = 1 << 20
)

// Document is the JSON metadata document a token URI points at.
type Document struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Decimals    *int            `json:"decimals,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
}

// Fetcher retrieves token metadata documents over HTTP.
type Fetcher struct {
	client *http.Client
	logger *log.Logger
}

// Options configures a Fetcher.
type Options struct {
	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil. Defaults to 10s.
	Timeout time.Duration

	// Logger for fetch diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

// CheckAccessible reports whether the URI answers with a success status.
// It issues a HEAD request and falls back to GET for servers that reject HEAD.
func (f *Fetcher) CheckAccessible(ctx context.Context, uri string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("head %s: %w", uri, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return false, fmt.Errorf("build request: %w", err)
		}
		getResp, err := f.client.Do(getReq)
		if err != nil {
			return false, fmt.Errorf("get %s: %w", uri, err)
		}
		io.Copy(io.Discard, io.LimitReader(getResp.Body, maxDocumentSize))
		getResp.Body.Close()
		resp = getResp
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Fetch downloads and decodes the metadata document at the URI.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentSize))
		return nil, fmt.Errorf("get %s: unexpected status %d", uri, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &doc, nil
}
