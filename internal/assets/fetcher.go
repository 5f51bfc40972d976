package assets

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultFetchTimeout = 10 * time.Second

// Fetcher retrieves remote object bytes (logos, stored attachments).
type Fetcher interface {
	Fetch(ctx context.Context, objectURL string) ([]byte, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher fetches objects over HTTP(S).
type HTTPFetcher struct {
	client *resty.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	client := resty.New()
	client.SetTimeout(defaultFetchTimeout)
	client.SetRetryCount(0)

	return &HTTPFetcher{client: client}
}

func NewHTTPFetcherWithClient(client *resty.Client) (*HTTPFetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultFetchTimeout)
	}
	return &HTTPFetcher{client: client}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, objectURL string) ([]byte, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("fetcher is not initialized")
	}

	trimmedURL := strings.TrimSpace(objectURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("object url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid object url: %w", err)
	}

	response, err := f.client.R().
		SetContext(ctx).
		Get(trimmedURL)
	if err != nil {
		return nil, fmt.Errorf("object fetch failed: %w", err)
	}
	if response.IsError() {
		return nil, fmt.Errorf("object fetch returned status %d", response.StatusCode())
	}

	return response.Body(), nil
}
