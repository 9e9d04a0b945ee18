package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderboard/internal/config"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestCreateRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/gw/api/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.OrderID != "o1" || !req.Amount.Equal(decimal.RequireFromString("480.50")) {
			t.Errorf("unexpected body %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"reference":"ref-1","qrPayload":"upi://pay?pa=shop@upi&am=480.50"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL+"/gw", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	got, err := client.CreateRequest(context.Background(), "o1", decimal.RequireFromString("480.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reference != "ref-1" || got.QRPayload == "" || got.Status != model.PaymentIntentPending {
		t.Fatalf("unexpected payment %+v", got)
	}
}

func TestCreateRequestRequiresReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, testLogger())
	if _, err := client.CreateRequest(context.Background(), "o1", decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    model.PaymentIntentStatus
		wantErr bool
	}{
		{name: "pending", body: `{"reference":"ref-1","status":"pending"}`, want: model.PaymentIntentPending},
		{name: "paid", body: `{"reference":"ref-1","status":"paid","transactionId":"UTR123"}`, want: model.PaymentIntentPaid},
		{name: "expired", body: `{"status":"expired"}`, want: model.PaymentIntentExpired},
		{name: "unknown", body: `{"reference":"ref-1","status":"refunded"}`, wantErr: true},
		{name: "garbage", body: `not json`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet || r.URL.Path != "/api/payments/ref-1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, _ := NewHTTPClient(srv.URL, testLogger())
			got, err := client.Status(context.Background(), "ref-1")
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.want || got.Reference != "ref-1" {
				t.Fatalf("unexpected payment %+v", got)
			}
			if tc.want == model.PaymentIntentPaid && got.TransactionID != "UTR123" {
				t.Fatalf("expected transaction id, got %q", got.TransactionID)
			}
		})
	}
}

func TestStatusHandlesSpecialStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		header     http.Header
		wantErr    error
	}{
		{name: "not found", statusCode: http.StatusNotFound, wantErr: ErrPaymentNotFound},
		{name: "too many requests", statusCode: http.StatusTooManyRequests, header: http.Header{"Retry-After": {"9"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for key, values := range tt.header {
					for _, v := range values {
						w.Header().Add(key, v)
					}
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			client, err := NewHTTPClient(srv.URL, testLogger())
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			_, err = client.Status(context.Background(), "ref-1")
			if tt.statusCode == http.StatusTooManyRequests {
				var tm TooManyRequestsError
				if !errors.As(err, &tm) {
					t.Fatalf("expected TooManyRequestsError, got %v", err)
				}
				if tm.RetryAfter != 9*time.Second {
					t.Fatalf("expected retry after 9s, got %v", tm.RetryAfter)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStatusLogsErrorResponses(t *testing.T) {
	called := make(chan struct{}, 1)
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && a.Value.Any() == slog.LevelError {
			select {
			case called <- struct{}{}:
			default:
			}
		}
		return a
	}})
	logger := slog.New(handler)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, err := client.Status(context.Background(), "ref-1"); err == nil {
		t.Fatal("expected error from server")
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected error log to be written")
	}
}

func TestParseRetryAfter(t *testing.T) {
	httpTime := time.Now().Add(2 * time.Second).UTC().Format(http.TimeFormat)

	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "empty", header: "", want: defaultRetryAfter},
		{name: "seconds", header: "7", want: 7 * time.Second},
		{name: "http date", header: httpTime, want: 2 * time.Second},
		{name: "fallback", header: "bad", want: defaultRetryAfter},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseRetryAfter(tc.header)
			if tc.header == httpTime {
				if got <= 0 || got > 3*time.Second {
					t.Fatalf("unexpected retry after %v", got)
				}
				return
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNewGatewayUsesConfig(t *testing.T) {
	cfg := &config.Config{PaymentGatewayAddress: "http://example.com"}
	gw, err := newGateway(gatewayParams{Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw == nil {
		t.Fatal("expected gateway instance")
	}
}
