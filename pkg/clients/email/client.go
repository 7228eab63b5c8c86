package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stockwatch/internal/config"
)

// Client exposes the transactional email operations used by the application.
type Client interface {
	SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error)
}

// APIClient is a resty-backed implementation of Client speaking the Resend
// HTTP API.
type APIClient struct {
	httpClient *resty.Client
	from       string
}

// NewClient builds an email API client using the provided configuration values.
func NewClient(cfg config.EmailConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		from:       cfg.From,
	}
}

// SendEmailRequest is a single message addressed to one or more recipients.
// The configured sender is used as the from address.
type SendEmailRequest struct {
	To      []string
	Subject string
	HTML    string
}

// SendEmailResponse mirrors the successful response from the API.
type SendEmailResponse struct {
	ID string `json:"id"`
}

// apiError represents an error payload returned by the API.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (c *APIClient) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if c.from == "" {
		return nil, errors.New("send email: sender address is empty")
	}
	if len(req.To) == 0 {
		return nil, errors.New("send email: no recipients")
	}

	payload := map[string]any{
		"from":    c.from,
		"to":      req.To,
		"subject": req.Subject,
		"html":    req.HTML,
	}

	result := new(SendEmailResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/emails")
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		code := resp.StatusCode()
		if apiErr.StatusCode != 0 {
			code = apiErr.StatusCode
		}
		return nil, fmt.Errorf("email api error: code=%d, name=%s, message=%s", code, apiErr.Name, message)
	}

	return result, nil
}
