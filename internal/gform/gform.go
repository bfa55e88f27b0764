// Package gform pushes accepted circle registrations to the Google Form
// review sheet.
package gform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Submission is the row appended for one registration.
type Submission struct {
	RegistrationID   string   `json:"registration_id"`
	Year             int      `json:"year"`
	OrganizationName string   `json:"organization_name"`
	OrganizationRuby string   `json:"organization_ruby"`
	ClubType         string   `json:"club_type"`
	MainStudentID    string   `json:"main_student_id"`
	CoStudentID      string   `json:"co_student_id"`
	DocumentURLs     []string `json:"document_urls"`
}

type Notifier interface {
	Notify(ctx context.Context, s Submission) error
}

type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	UpdateURL    string
	Scopes       []string
}

// Client posts submissions with an OAuth2 client-credentials token.
type Client struct {
	updateURL  string
	httpClient *http.Client
}

// New returns a Client, or a no-op notifier when the update URL or the token
// endpoint is not configured.
func New(cfg Config) Notifier {
	if cfg.UpdateURL == "" || cfg.TokenURL == "" {
		log.Println("[gform] GFORM_UPDATE_URL or OAUTH_URI not set, form updates disabled")
		return Noop{}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 10 * time.Second
	return &Client{updateURL: cfg.UpdateURL, httpClient: httpClient}
}

func (c *Client) Notify(ctx context.Context, s Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("form update request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("form update returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	log.Printf("[gform] registration=%s pushed", s.RegistrationID)
	return nil
}

type Noop struct{}

func (Noop) Notify(context.Context, Submission) error { return nil }
