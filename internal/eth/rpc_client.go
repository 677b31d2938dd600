package eth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements ChainClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Ethereum RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error returned by the provider.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Provider error codes signalling an over-wide eth_getLogs range.
const (
	codeLimitExceeded  = -32005 // EIP-1474 limit exceeded (Infura and others)
	codeInvalidParams  = -32602 // some providers reject wide ranges as invalid params
	codeServerOverload = -32000 // generic server error carrying a range message
)

// IsRangeTooLarge reports whether err is the provider rejecting a log query
// range as too large. Providers disagree on codes, so the message is
// inspected as well.
func IsRangeTooLarge(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	if rpcErr.Code == codeLimitExceeded {
		return true
	}
	if rpcErr.Code != codeInvalidParams && rpcErr.Code != codeServerOverload {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "block range") ||
		strings.Contains(msg, "too many") ||
		strings.Contains(msg, "response size") ||
		strings.Contains(msg, "query returned more than")
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried; range classification happens upstream
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// BlockNumber retrieves the current chain tip.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return parseHexUint(result)
}

// GetLogs retrieves logs matching the filter over an inclusive block range.
func (c *HTTPClient) GetLogs(ctx context.Context, q FilterQuery) ([]Log, error) {
	filter := map[string]interface{}{
		"fromBlock": hexUint(q.FromBlock),
		"toBlock":   hexUint(q.ToBlock),
	}
	if q.Address != "" {
		filter["address"] = q.Address
	}
	if len(q.Topics) > 0 {
		topics := make([]interface{}, len(q.Topics))
		for i, pos := range q.Topics {
			switch len(pos) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = pos[0]
			default:
				topics[i] = pos
			}
		}
		filter["topics"] = topics
	}

	var raw []rawLog
	if err := c.call(ctx, "eth_getLogs", []interface{}{filter}, &raw); err != nil {
		return nil, err
	}

	logs := make([]Log, 0, len(raw))
	for _, r := range raw {
		l, err := r.toLog()
		if err != nil {
			return nil, fmt.Errorf("decode log in tx %s: %w", r.TransactionHash, err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// BlockTimestamp retrieves the wall-clock time of a block in Unix seconds.
func (c *HTTPClient) BlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error) {
	var result struct {
		Timestamp string `json:"timestamp"`
	}
	if err := c.call(ctx, "eth_getBlockByNumber", []interface{}{hexUint(blockNumber), false}, &result); err != nil {
		return 0, err
	}

	ts, err := parseHexUint(result.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("parse block %d timestamp: %w", blockNumber, err)
	}
	return int64(ts), nil
}

// Call performs a read-only eth_call against a contract.
func (c *HTTPClient) Call(ctx context.Context, to, data string) (string, error) {
	var result string
	err := c.call(ctx, "eth_call", []interface{}{map[string]string{"to": to, "data": data}, "latest"}, &result)
	return result, err
}

// rawLog is the eth_getLogs wire representation with hex quantities.
type rawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
	Removed         bool     `json:"removed"`
}

func (r rawLog) toLog() (Log, error) {
	blockNumber, err := parseHexUint(r.BlockNumber)
	if err != nil {
		return Log{}, fmt.Errorf("parse blockNumber: %w", err)
	}
	logIndex, err := parseHexUint(r.LogIndex)
	if err != nil {
		return Log{}, fmt.Errorf("parse logIndex: %w", err)
	}
	return Log{
		Address:     r.Address,
		Topics:      r.Topics,
		Data:        r.Data,
		BlockNumber: blockNumber,
		TxHash:      r.TransactionHash,
		LogIndex:    logIndex,
		Removed:     r.Removed,
	}, nil
}

// hexUint renders a block quantity as a 0x-prefixed hex string.
func hexUint(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// parseHexUint parses a 0x-prefixed hex quantity.
func parseHexUint(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	return strconv.ParseUint(s, 16, 64)
}

var _ ChainClient = (*HTTPClient)(nil)
