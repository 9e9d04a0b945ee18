package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/notify"
	pkgAuth "github.com/polkiloo/orderboard/internal/pkg/auth"
	"github.com/polkiloo/orderboard/internal/server/http/handlers"
	testhelpers "github.com/polkiloo/orderboard/internal/test"
)

func newTestEngine(facade testhelpers.BoardFacadeStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return Setup(facade, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func serve(engine *gin.Engine, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func TestSetupRoutes(t *testing.T) {
	engine := newTestEngine(testhelpers.BoardFacadeStub{})
	bearer := map[string]string{"Authorization": "Bearer token"}

	body, _ := json.Marshal(map[string]string{"login": "user", "password": "pass"})
	if resp := serve(engine, http.MethodPost, "/api/auth/register", body, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for register, got %d", resp.Code)
	}
	if resp := serve(engine, http.MethodPost, "/api/auth/login", body, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for login, got %d", resp.Code)
	}

	tests := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodPost, "/api/staff", `{"login":"ravi","password":"p","role":"staff"}`, http.StatusCreated},
		{http.MethodGet, "/api/orders", "", http.StatusOK},
		{http.MethodPost, "/api/orders", `{"items":[{"name":"Dal","quantity":1,"unitPrice":"90"}]}`, http.StatusCreated},
		{http.MethodGet, "/api/orders/o1", "", http.StatusOK},
		{http.MethodPost, "/api/orders/o1/items", `{"items":[{"name":"Naan","quantity":1,"unitPrice":"40"}]}`, http.StatusOK},
		{http.MethodPatch, "/api/orders/o1/items/1", `{"quantity":3}`, http.StatusOK},
		{http.MethodPost, "/api/orders/o1/serve", "", http.StatusOK},
		{http.MethodPost, "/api/orders/o1/payments", `{"method":"cash"}`, http.StatusOK},
		{http.MethodPost, "/api/orders/o1/payments/upi", "", http.StatusCreated},
		{http.MethodPost, "/api/orders/o1/complete", "", http.StatusOK},
		{http.MethodDelete, "/api/orders/o1", "", http.StatusNoContent},
		{http.MethodGet, "/api/alerts", "", http.StatusOK},
		{http.MethodPost, "/api/alerts/open", `{"orderId":"o1","type":"new"}`, http.StatusOK},
		{http.MethodPost, "/api/alerts/a1/ack", "", http.StatusOK},
	}
	for _, tt := range tests {
		var body []byte
		if tt.body != "" {
			body = []byte(tt.body)
		}
		if resp := serve(engine, tt.method, tt.target, body, bearer); resp.Code != tt.status {
			t.Fatalf("%s %s: expected status %d, got %d", tt.method, tt.target, tt.status, resp.Code)
		}
	}
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	engine := newTestEngine(testhelpers.BoardFacadeStub{})
	for _, target := range []string{"/api/orders", "/api/alerts"} {
		if resp := serve(engine, http.MethodGet, target, nil, nil); resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 for %s, got %d", target, resp.Code)
		}
	}
}

func TestDeleteRequiresOwnerOrManager(t *testing.T) {
	facade := testhelpers.BoardFacadeStub{AuthFacadeStub: testhelpers.AuthFacadeStub{ParseFn: func(token string) (pkgAuth.Claims, error) {
		if token == "owner" {
			return pkgAuth.Claims{UserID: 2, Role: model.RoleOwner}, nil
		}
		return pkgAuth.Claims{UserID: 3, Role: model.RoleStaff}, nil
	}}}
	engine := newTestEngine(facade)

	resp := serve(engine, http.MethodDelete, "/api/orders/o1", nil, map[string]string{"Authorization": "Bearer staff"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for staff, got %d", resp.Code)
	}
	resp = serve(engine, http.MethodDelete, "/api/orders/o1", nil, map[string]string{"Authorization": "Bearer owner"})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for owner, got %d", resp.Code)
	}
	resp = serve(engine, http.MethodPost, "/api/staff", []byte(`{"login":"x","password":"p","role":"staff"}`), map[string]string{"Authorization": "Bearer staff"})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for staff adding accounts, got %d", resp.Code)
	}
	resp = serve(engine, http.MethodPost, "/api/orders/o1/serve", nil, map[string]string{"Authorization": "Bearer staff"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected staff to serve orders, got %d", resp.Code)
	}
}

func TestMetricsEndpointAndCompression(t *testing.T) {
	engine := newTestEngine(testhelpers.BoardFacadeStub{})

	_ = serve(engine, http.MethodGet, "/api/orders", nil, map[string]string{"Authorization": "Bearer token"})
	resp := serve(engine, http.MethodGet, "/metrics", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for metrics, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatal("expected request counter to be exported")
	}

	resp = serve(engine, http.MethodGet, "/api/orders", nil, map[string]string{
		"Authorization":   "Bearer token",
		"Accept-Encoding": "gzip",
	})
	if resp.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got headers %v", resp.Header())
	}
}

func TestAlertStreamIsNotCompressed(t *testing.T) {
	events := make(chan notify.StreamEvent)
	engine := newTestEngine(testhelpers.BoardFacadeStub{AlertFacadeStub: testhelpers.AlertFacadeStub{
		WatchFn: func() (<-chan notify.StreamEvent, func()) { return events, func() {} },
	}})
	server := httptest.NewServer(engine)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/alerts/stream", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" {
		t.Fatalf("stream must not be compressed, got %q", enc)
	}
}

var _ handlers.BoardFacade = (*testhelpers.BoardFacadeStub)(nil)

func TestGinMode(t *testing.T) {
	tests := map[string]string{
		"debug":  gin.DebugMode,
		" DEBUG": gin.DebugMode,
		"info":   gin.ReleaseMode,
		"":       gin.ReleaseMode,
	}
	for level, want := range tests {
		if got := ginMode(level); got != want {
			t.Fatalf("ginMode(%q) = %q, want %q", level, got, want)
		}
	}
}
