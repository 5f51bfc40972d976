package directory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aix-dean/mailcourier/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultLookupTimeout = 5 * time.Second

var (
	_ CompanyDirectory = (*HTTPCompanyDirectory)(nil)
	_ UserDirectory    = (*HTTPUserDirectory)(nil)
)

// HTTPCompanyDirectory resolves companies from the back-office directory API.
type HTTPCompanyDirectory struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPCompanyDirectory(baseURL string) (*HTTPCompanyDirectory, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("company directory url is required")
	}

	client := resty.New()
	client.SetTimeout(defaultLookupTimeout)

	return &HTTPCompanyDirectory{client: client, baseURL: trimmed}, nil
}

func (d *HTTPCompanyDirectory) GetCompany(ctx context.Context, id string) (*Company, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("company directory is not initialized")
	}

	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: company id is required", domain.ErrValidation)
	}

	var company Company
	response, err := d.client.R().
		SetContext(ctx).
		SetResult(&company).
		Get(d.baseURL + "/companies/" + url.PathEscape(trimmedID))
	if err != nil {
		return nil, fmt.Errorf("company lookup failed: %w", err)
	}
	if response.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: company %q", domain.ErrNotFound, trimmedID)
	}
	if response.IsError() {
		return nil, fmt.Errorf("company lookup returned status %d", response.StatusCode())
	}

	return &company, nil
}

// HTTPUserDirectory resolves users from the back-office directory API.
type HTTPUserDirectory struct {
	client  *resty.Client
	baseURL string
}

func NewHTTPUserDirectory(baseURL string) (*HTTPUserDirectory, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("user directory url is required")
	}

	client := resty.New()
	client.SetTimeout(defaultLookupTimeout)

	return &HTTPUserDirectory{client: client, baseURL: trimmed}, nil
}

func (d *HTTPUserDirectory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("user directory is not initialized")
	}

	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	var user User
	response, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("email", trimmedEmail).
		SetResult(&user).
		Get(d.baseURL + "/users")
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if response.StatusCode() == 404 {
		return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, trimmedEmail)
	}
	if response.IsError() {
		return nil, fmt.Errorf("user lookup returned status %d", response.StatusCode())
	}

	return &user, nil
}
