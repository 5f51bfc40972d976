// Package directory wraps the back-office company and user lookups consumed
// by the delivery pipeline. Both are optional enrichment: any failure
// degrades to fallback branding or sender fields, never to a failed send.
package directory

import "context"

// Company is the branding source resolved from a company id.
type Company struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// User enriches the sender display fields.
type User struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Title     string `json:"title,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type CompanyDirectory interface {
	GetCompany(ctx context.Context, id string) (*Company, error)
}

type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
