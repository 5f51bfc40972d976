package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aix-dean/mailcourier/internal/domain"
)

func testEmail() Email {
	return Email{
		From:     "proposals@acme.example",
		ReplyTo:  "jordan@acme.example",
		To:       []string{"buyer@standardmail.com"},
		CC:       []string{"cc@corp.example"},
		Subject:  "Proposal for Q3",
		HTMLBody: "<html><body><p>hi</p></body></html>",
		Attachments: []domain.Attachment{
			{Filename: "proposal.pdf", Content: []byte("pdf-bytes")},
		},
	}
}

func TestHTTPEmailProviderSend(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-key" {
			t.Errorf("Authorization = %q, want bearer token", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("body decode error = %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg-42"}`))
	}))
	t.Cleanup(server.Close)

	p, err := NewHTTPEmailProvider(server.URL, "secret-key")
	if err != nil {
		t.Fatalf("NewHTTPEmailProvider() error = %v", err)
	}

	resp, err := p.Send(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.MessageID != "msg-42" {
		t.Fatalf("MessageID = %q, want msg-42", resp.MessageID)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}

	if captured["from"] != "proposals@acme.example" {
		t.Fatalf("payload from = %v", captured["from"])
	}
	attachments, ok := captured["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("payload attachments = %v, want 1 entry", captured["attachments"])
	}
	entry := attachments[0].(map[string]any)
	wantContent := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))
	if entry["content"] != wantContent {
		t.Fatalf("attachment content = %v, want base64 of pdf-bytes", entry["content"])
	}
}

func TestHTTPEmailProviderSendRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("sending domain blocked by recipient policy"))
	}))
	t.Cleanup(server.Close)

	p, err := NewHTTPEmailProvider(server.URL, "")
	if err != nil {
		t.Fatalf("NewHTTPEmailProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), testEmail())
	if err == nil {
		t.Fatal("expected error for 422 response")
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error = %T, want *ProviderError", err)
	}
	if providerErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("StatusCode = %d, want 422", providerErr.StatusCode)
	}
}

func TestHTTPEmailProviderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPEmailProvider("", "key"); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewHTTPEmailProvider("://broken", "key"); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}

	p, err := NewHTTPEmailProvider("https://api.mailprovider.example/v1/send", "key")
	if err != nil {
		t.Fatalf("NewHTTPEmailProvider() error = %v", err)
	}

	email := testEmail()
	email.To = nil
	if _, err := p.Send(context.Background(), email); err == nil {
		t.Fatal("expected error for missing recipients")
	}
}

func TestIsFilterRejection(t *testing.T) {
	t.Parallel()

	markers := []string{"domain", "spam", "blocked"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "blocked marker",
			err:  &ProviderError{StatusCode: 422, Message: "recipient policy BLOCKED this sender"},
			want: true,
		},
		{
			name: "spam marker",
			err:  &ProviderError{StatusCode: 451, Message: "message flagged as spam"},
			want: true,
		},
		{
			name: "unrelated provider failure",
			err:  &ProviderError{StatusCode: 500, Message: "internal server error"},
			want: false,
		},
		{
			name: "non-provider error",
			err:  errors.New("spam everywhere"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsFilterRejection(tt.err, markers); got != tt.want {
				t.Fatalf("IsFilterRejection() = %v, want %v", got, tt.want)
			}
		})
	}

	if IsFilterRejection(&ProviderError{Message: "blocked"}, nil) {
		t.Fatal("no markers configured should never match")
	}
}
