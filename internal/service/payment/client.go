// Package payment implements the provider-agnostic payment collaborator
// over the aggregator's HTTP API. The engine never sees provider wire
// formats, only references, URLs and statuses.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/metrics"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(conf *config.Config, logger *slog.Logger) *Client {
	if conf.Payment.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: conf.Payment.BaseURL,
		apiKey:  conf.Payment.ApiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logger.With(sl.Module("payment.client")),
	}
}

type initiateRequest struct {
	Amount   int64  `json:"amount"`
	Provider string `json:"provider"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
}

type initiateResponse struct {
	PaymentURL    string `json:"payment_url"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
}

// Initiate requests a payment reference/URL from the aggregator.
func (c *Client) Initiate(ctx context.Context, amount int64, provider entity.PaymentProvider, customer entity.CustomerInfo) (*flow.PaymentInit, error) {
	body := initiateRequest{
		Amount:   amount,
		Provider: string(provider),
		Phone:    customer.Phone,
		Name:     customer.FirstName + " " + customer.LastName,
	}
	var resp initiateResponse
	if err := c.post(ctx, "/v1/payments", body, &resp); err != nil {
		metrics.PaymentFailures.WithLabelValues(string(provider)).Inc()
		return nil, err
	}
	c.log.With(
		slog.String("provider", string(provider)),
		slog.Int64("amount", amount),
		slog.String("reference", resp.Reference),
	).Debug("payment initiated")
	return &flow.PaymentInit{
		PaymentURL:    resp.PaymentURL,
		Reference:     resp.Reference,
		TransactionID: resp.TransactionID,
	}, nil
}

type verifyResponse struct {
	Status string `json:"status"`
}

// Verify asks the aggregator for the current transaction status.
func (c *Client) Verify(ctx context.Context, sessionID, transactionID string) (string, error) {
	url := fmt.Sprintf("%s/v1/payments/%s/status", c.baseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Session-Id", sessionID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}
	switch out.Status {
	case entity.PaymentCompleted, entity.PaymentPending, entity.PaymentFailed:
		return out.Status, nil
	}
	return "", fmt.Errorf("unknown payment status %q", out.Status)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.log.With(
			slog.Int("status", resp.StatusCode),
		).Error("invalid response code")
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}
	return nil
}
