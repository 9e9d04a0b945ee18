package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// ErrPaymentNotFound indicates the gateway doesn't know the reference.
var ErrPaymentNotFound = errors.New("payment request not found")

const defaultRetryAfter = 5 * time.Second

// TooManyRequestsError represents rate limiting signal from the gateway.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Gateway exposes the UPI payment gateway operations.
type Gateway interface {
	CreateRequest(ctx context.Context, orderID string, amount decimal.Decimal) (*model.GatewayPayment, error)
	Status(ctx context.Context, reference string) (*model.GatewayPayment, error)
}

// HTTPClient implements Gateway via HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type createRequest struct {
	OrderID string          `json:"orderId"`
	Amount  decimal.Decimal `json:"amount"`
}

// response mirrors JSON payload from the gateway.
type response struct {
	Reference     string `json:"reference"`
	QRPayload     string `json:"qrPayload,omitempty"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// NewHTTPClient creates gateway client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("payment gateway url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// CreateRequest registers a QR payment for the order.
func (c *HTTPClient) CreateRequest(ctx context.Context, orderID string, amount decimal.Decimal) (*model.GatewayPayment, error) {
	body, err := json.Marshal(createRequest{OrderID: orderID, Amount: amount})
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, "/api/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if data.Reference == "" {
		return nil, fmt.Errorf("payment gateway returned empty reference")
	}
	status := model.PaymentIntentStatus(data.Status)
	if status == "" {
		status = model.PaymentIntentPending
	}
	return &model.GatewayPayment{Reference: data.Reference, QRPayload: data.QRPayload, Status: status}, nil
}

// Status queries the gateway for a payment request.
func (c *HTTPClient) Status(ctx context.Context, reference string) (*model.GatewayPayment, error) {
	data, err := c.do(ctx, http.MethodGet, path.Join("/api/payments/", url.PathEscape(reference)), nil)
	if err != nil {
		return nil, err
	}
	status := model.PaymentIntentStatus(data.Status)
	switch status {
	case model.PaymentIntentPending, model.PaymentIntentPaid, model.PaymentIntentFailed, model.PaymentIntentExpired:
	default:
		return nil, fmt.Errorf("payment gateway returned unknown status %q", data.Status)
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return &model.GatewayPayment{
		Reference:     data.Reference,
		QRPayload:     data.QRPayload,
		Status:        status,
		TransactionID: data.TransactionID,
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, route string, body io.Reader) (*response, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, route)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data response
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode payment gateway response: %w", err)
		}
		return &data, nil
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case http.StatusTooManyRequests:
		return nil, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("payment gateway request failed",
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)))
		return nil, fmt.Errorf("payment gateway error: %s", resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return defaultRetryAfter
}
