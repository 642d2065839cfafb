package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowcore/workflowengine/pkg/httpclient"
	"github.com/flowcore/workflowengine/pkg/types"
)

// HTTPExecutor is the reference executor for the `http` node type, grounded
// on pkg/httpclient (connection pooling, auth, SSRF-aware redirects) and
// pkg/security (SSRF validation of the initial request URL). It is an
// alternative to delegating `http` out-of-process through a PluginExecutor:
// since Go's standard library already gives a complete, well-understood
// HTTP client, there is no SDK-portability reason to proxy this one.
//
// Config keys read per node:
//
//	url     (string, required)
//	method  (string, default "GET")
//	headers (map[string]string)
//	query   (map[string]string)
//	body    (any, JSON-encoded when method allows a body)
//	client  (string, optional UID of a client registered via Clients)
type HTTPExecutor struct {
	clients       *httpclient.Registry
	defaultClient *http.Client
	security      httpclient.SecurityConfig
}

// NewHTTPExecutor builds an HTTPExecutor. security configures the SSRF
// posture (block private IPs/localhost/link-local/cloud metadata, allowed
// domains) applied to every request that doesn't name a pre-registered
// client via config["client"].
func NewHTTPExecutor(clients *httpclient.Registry, security httpclient.SecurityConfig) (*HTTPExecutor, error) {
	cfg := &httpclient.Config{UID: "default", Security: security}
	defaultClient, err := httpclient.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("executor: build default http client: %w", err)
	}
	return &HTTPExecutor{clients: clients, defaultClient: defaultClient, security: security}, nil
}

// Handle implements HandlerFunc for the `http` node type.
func (h *HTTPExecutor) Handle(ctx context.Context, config map[string]any, execCtx *types.ExecutionContext, meta types.ExecMeta) (types.Result, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return types.Result{}, fmt.Errorf("%w: node %s", ErrMissingHTTPURL, meta.NodeID)
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	client := h.defaultClient
	if uid, _ := config["client"].(string); uid != "" {
		resolved, err := h.clients.Get(uid)
		if err != nil {
			return types.Result{}, fmt.Errorf("%w: %s", ErrHTTPClientNotFound, uid)
		}
		client = resolved
	}

	var bodyReader io.Reader
	if body, ok := config["body"]; ok && body != nil && method != http.MethodGet && method != http.MethodHead {
		encoded, err := json.Marshal(body)
		if err != nil {
			return types.Result{}, fmt.Errorf("executor: http node %s: encode body: %w", meta.NodeID, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return types.Result{}, fmt.Errorf("executor: http node %s: build request: %w", meta.NodeID, err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}
	if query, ok := config["query"].(map[string]any); ok && len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			if s, ok := v.(string); ok {
				q.Set(k, s)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.Result{}, fmt.Errorf("executor: http node %s: request failed: %w", meta.NodeID, err)
	}
	defer resp.Body.Close()

	maxSize := h.security.MaxResponseSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return types.Result{}, fmt.Errorf("executor: http node %s: read response: %w", meta.NodeID, err)
	}

	output := map[string]any{
		"status":  resp.StatusCode,
		"headers": responseHeaders(resp.Header),
		"body":    parseHTTPBody(resp.Header.Get("Content-Type"), data),
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		return types.Result{Success: false, Output: output, Error: fmt.Sprintf("http node %s: unexpected status %d", meta.NodeID, resp.StatusCode)}, nil
	}
	return types.Result{Success: true, Output: output}, nil
}

func responseHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func parseHTTPBody(contentType string, data []byte) any {
	if strings.Contains(contentType, "application/json") {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return v
		}
	}
	return string(data)
}
