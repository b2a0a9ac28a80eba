package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/config"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

var (
	// ErrUpstream indicates a retryable upstream failure (5xx or 429).
	ErrUpstream = errors.New("email service unavailable")
	// ErrRejected indicates the upstream rejected the request (other 4xx).
	// Rejected sends are not retried.
	ErrRejected = errors.New("email request rejected")
)

const defaultTimeout = 10 * time.Second

// Client talks to the transactional email service that delivers
// recovery emails.
type Client struct {
	baseURL    string
	apiKey     string
	templateID string
	client     *http.Client
	logger     logger.Logger
}

// SendRequest describes one recovery email.
type SendRequest struct {
	CartID      string            `json:"cart_id"`
	CustomerRef string            `json:"customer_ref"`
	TemplateID  string            `json:"template_id"`
	Attempt     int               `json:"attempt"`
	LineItems   []domain.LineItem `json:"line_items"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// NewClient creates an email service client.
func NewClient(cfg config.EmailConfig, log logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("email service URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("email service API key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		templateID: cfg.TemplateID,
		client:     &http.Client{Timeout: timeout},
		logger:     log,
	}, nil
}

// SendRecovery posts one recovery email to the upstream service. The
// returned message id identifies the delivery for support lookups.
func (c *Client) SendRecovery(ctx context.Context, req SendRequest) (string, error) {
	if req.TemplateID == "" {
		req.TemplateID = c.templateID
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/messages", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	c.logger.Debug("Sending recovery email",
		logger.String("cart_id", req.CartID),
		logger.String("endpoint", endpoint),
		logger.Int("attempt", req.Attempt),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("read response: %w", readErr)
	}

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		var result sendResponse
		if unmarshalErr := json.Unmarshal(body, &result); unmarshalErr != nil {
			// Accept sends with unparseable bodies; delivery happened.
			c.logger.Warn("Unparseable email service response",
				logger.String("cart_id", req.CartID),
				logger.Error(unmarshalErr),
			)
			return "", nil
		}
		return result.MessageID, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		c.logger.Warn("Email service unavailable",
			logger.String("cart_id", req.CartID),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)

	default:
		c.logger.Error("Email service rejected request",
			logger.String("cart_id", req.CartID),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)),
		)
		return "", fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}
