package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowcore/workflowengine/pkg/httpclient"
	"github.com/flowcore/workflowengine/pkg/types"
)

func TestHTTPExecutorHandleGETDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "1" {
			t.Errorf("expected query q=1, got %q", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	exec, err := NewHTTPExecutor(httpclient.NewRegistry(), httpclient.SecurityConfig{
		FollowRedirects: true,
		AllowedDomains:  []string{"127.0.0.1"},
	})
	if err != nil {
		t.Fatalf("NewHTTPExecutor() error = %v", err)
	}

	config := map[string]any{
		"url":   server.URL,
		"query": map[string]any{"q": "1"},
	}
	result, err := exec.Handle(context.Background(), config, buildCtx(nil), types.ExecMeta{NodeID: "http1"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	output, ok := result.Output.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %T", result.Output)
	}
	if output["status"] != 200 {
		t.Fatalf("expected status 200, got %v", output["status"])
	}
	body, ok := output["body"].(map[string]any)
	if !ok || body["ok"] != true {
		t.Fatalf("expected decoded JSON body with ok=true, got %v", output["body"])
	}
}

func TestHTTPExecutorHandleMissingURL(t *testing.T) {
	exec, err := NewHTTPExecutor(httpclient.NewRegistry(), httpclient.SecurityConfig{})
	if err != nil {
		t.Fatalf("NewHTTPExecutor() error = %v", err)
	}
	_, err = exec.Handle(context.Background(), map[string]any{}, buildCtx(nil), types.ExecMeta{NodeID: "http1"})
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestHTTPExecutorHandleNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	exec, err := NewHTTPExecutor(httpclient.NewRegistry(), httpclient.SecurityConfig{AllowedDomains: []string{"127.0.0.1"}})
	if err != nil {
		t.Fatalf("NewHTTPExecutor() error = %v", err)
	}

	result, err := exec.Handle(context.Background(), map[string]any{"url": server.URL}, buildCtx(nil), types.ExecMeta{NodeID: "http1"})
	if err != nil {
		t.Fatalf("unexpected error = %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure result for 500 status, got %+v", result)
	}
}

func TestHTTPExecutorHandleUsesNamedClient(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := httpclient.NewRegistry()
	namedClient, err := httpclient.New(context.Background(), &httpclient.Config{
		UID: "bearer-client",
		Auth: httpclient.AuthConfig{
			Type:  httpclient.AuthTypeBearer,
			Token: &httpclient.TokenAuthConfig{Token: httpclient.NewSecureString("tok-123")},
		},
	})
	if err != nil {
		t.Fatalf("httpclient.New() error = %v", err)
	}
	if err := registry.Register("bearer-client", namedClient); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	exec, err := NewHTTPExecutor(registry, httpclient.SecurityConfig{})
	if err != nil {
		t.Fatalf("NewHTTPExecutor() error = %v", err)
	}

	_, err = exec.Handle(context.Background(), map[string]any{"url": server.URL, "client": "bearer-client"}, buildCtx(nil), types.ExecMeta{NodeID: "http1"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected Authorization header from named client, got %q", gotAuth)
	}
}
