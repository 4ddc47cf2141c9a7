package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Params is the parameter mapping for one RPC call.
type Params map[string]any

// Result is the decoded object payload of a create/update call, or one
// element of a get call's array payload.
type Result map[string]any

// IDs extracts the identifier array stored under key (e.g. "hostids").
// Identifiers are normalized to strings regardless of wire type.
func (r Result) IDs(key string) []string {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(arr))
	for _, v := range arr {
		switch id := v.(type) {
		case string:
			ids = append(ids, id)
		case float64:
			ids = append(ids, fmt.Sprintf("%.0f", id))
		}
	}
	return ids
}

// FirstID returns the first identifier under key, or "" when the payload
// carries none.
func (r Result) FirstID(key string) string {
	ids := r.IDs(key)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// API is the object-style RPC surface the sync engine consumes.
// Query covers the array-shaped *.get methods; Exec covers the object-shaped
// *.create and *.update methods.
type API interface {
	Query(ctx context.Context, method string, params Params) ([]Result, error)
	Exec(ctx context.Context, method string, params Params) (Result, error)
}

// Config holds the connection parameters for one monitoring server.
type Config struct {
	// URL is the api_jsonrpc.php endpoint.
	URL string
	// Token is the API token sent as a bearer credential.
	Token string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// TimeoutSeconds bounds each RPC round trip.
	TimeoutSeconds int
}

// Client is a JSON-RPC 2.0 client for the monitoring server API.
// A Client is acquired per target for the scope of one reconciliation unit
// and released at unit end; it is never shared across targets.
type Client struct {
	cfg    Config
	http   *http.Client
	nextID atomic.Int64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      int64           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Connect builds a client for the given server and verifies reachability
// with an unauthenticated apiinfo.version call. An unreachable server is a
// hard failure; no pipeline proceeds without a resolvable target.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: timeoutDuration,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator-controlled per target
		},
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeoutDuration,
		},
	}

	if _, err := c.Version(ctx); err != nil {
		return nil, fmt.Errorf("monitoring server unreachable: %w", err)
	}

	return c, nil
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Version returns the remote API version. The call is unauthenticated and
// doubles as the reachability probe during Connect.
func (c *Client) Version(ctx context.Context) (string, error) {
	// apiinfo.version rejects object params; it takes an empty array and
	// must not carry an auth header.
	raw, err := c.call(ctx, "apiinfo.version", []any{}, false)
	if err != nil {
		return "", err
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return "", fmt.Errorf("decode apiinfo.version: %w", err)
	}
	return version, nil
}

// Query performs an array-shaped *.get call.
func (c *Client) Query(ctx context.Context, method string, params Params) ([]Result, error) {
	if params == nil {
		params = Params{}
	}
	raw, err := c.call(ctx, method, params, true)
	if err != nil {
		return nil, err
	}
	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return results, nil
}

// Exec performs an object-shaped *.create or *.update call.
func (c *Client) Exec(ctx context.Context, method string, params Params) (Result, error) {
	if params == nil {
		params = Params{}
	}
	raw, err := c.call(ctx, method, params, true)
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, params any, authed bool) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if authed && c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, &APIError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}
	return rpcResp.Result, nil
}

func (c *Client) endpoint() string {
	url := strings.TrimRight(c.cfg.URL, "/")
	if !strings.HasSuffix(url, "api_jsonrpc.php") {
		url += "/api_jsonrpc.php"
	}
	return url
}
