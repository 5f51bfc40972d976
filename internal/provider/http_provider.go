package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 30 * time.Second

type emailAttachmentPayload struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type emailRequest struct {
	From        string                   `json:"from"`
	ReplyTo     string                   `json:"reply_to,omitempty"`
	To          []string                 `json:"to"`
	CC          []string                 `json:"cc,omitempty"`
	Subject     string                   `json:"subject"`
	HTML        string                   `json:"html"`
	Attachments []emailAttachmentPayload `json:"attachments,omitempty"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// HTTPEmailProvider sends mail through an HTTP transactional-email API.
type HTTPEmailProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewHTTPEmailProvider(endpoint string, apiKey string) (*HTTPEmailProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewHTTPEmailProviderWithClient(endpoint, apiKey, client)
}

func NewHTTPEmailProviderWithClient(endpoint string, apiKey string, client *resty.Client) (*HTTPEmailProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("transport endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid transport endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPEmailProvider{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *HTTPEmailProvider) Send(ctx context.Context, email Email) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(email.To) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	if strings.TrimSpace(email.From) == "" {
		return nil, fmt.Errorf("from address is required")
	}

	reqBody := emailRequest{
		From:    email.From,
		ReplyTo: email.ReplyTo,
		To:      email.To,
		CC:      email.CC,
		Subject: email.Subject,
		HTML:    email.HTMLBody,
	}
	for _, attachment := range email.Attachments {
		reqBody.Attachments = append(reqBody.Attachments, emailAttachmentPayload{
			Filename: attachment.Filename,
			Content:  base64.StdEncoding.EncodeToString(attachment.Content),
		})
	}

	request := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody)
	if p.apiKey != "" {
		request.SetHeader("Authorization", "Bearer "+p.apiKey)
	}

	response, err := request.Post(p.endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &ProviderError{
			Message: "provider request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &ProviderError{Message: "provider returned empty response"}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  messageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
	}
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func messageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var parsed emailResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		if id := strings.TrimSpace(parsed.ID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
