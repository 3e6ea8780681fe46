// Package enrich implements the two optional external collaborators: breach
// lookup and embedding. Both are request/response HTTPS clients with
// configurable deadlines, and the breach client also waits on a
// token-bucket rate limiter; their failures degrade the row that
// triggered them but never fail it.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrorKind is the closed taxonomy of collaborator failures.
type ErrorKind string

// Recognised collaborator error kinds.
const (
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrUnreachable     ErrorKind = "unreachable"
	ErrInvalidResponse ErrorKind = "invalid_response"
)

// CollaboratorError reports a degraded (never fatal) enrichment failure.
type CollaboratorError struct {
	Kind ErrorKind
	Err  error
}

func (e *CollaboratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrich: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("enrich: %s", e.Kind)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// BreachRecord is one entry of the breach-lookup response array.
type BreachRecord struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Domain       string `json:"domain"`
	BreachDate   string `json:"breach_date"`
	AddedDate    string `json:"added_date"`
	ModifiedDate string `json:"modified_date"`
	PwnCount     int    `json:"pwn_count"`
	Description  string `json:"description"`
	IsVerified   bool   `json:"is_verified"`
	IsFabricated bool   `json:"is_fabricated"`
	IsSensitive  bool   `json:"is_sensitive"`
	IsRetired    bool   `json:"is_retired"`
	LogoPath     string `json:"logo_path"`
}

// BreachClient looks up known breaches for an email address via
// GET {base}/breachedaccount/{urlencoded_email}.
type BreachClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewBreachClient returns a client against baseURL. apiKey may be empty.
// timeout bounds every individual request.
func NewBreachClient(baseURL, apiKey string, timeout time.Duration) *BreachClient {
	return &BreachClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
	}
}

// Lookup fetches breach records for email. A 404 is not an error: it
// means no breaches are known, so the returned slice is nil. A 400 or 429
// yields a *CollaboratorError rather than aborting the caller's row.
func (c *BreachClient) Lookup(ctx context.Context, email string) ([]BreachRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &CollaboratorError{Kind: ErrRateLimited, Err: err}
	}

	target := fmt.Sprintf("%s/breachedaccount/%s?includeUnverified=true", c.baseURL, url.PathEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
	}
	req.Header.Set("User-Agent", "corpusvault-enrichment/1")
	if c.apiKey != "" {
		req.Header.Set("hibp-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var records []BreachRecord
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
		}
		return records, nil
	case http.StatusNotFound:
		return nil, nil
	case http.StatusBadRequest:
		return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: fmt.Errorf("invalid email %q", email)}
	case http.StatusTooManyRequests:
		return nil, &CollaboratorError{Kind: ErrRateLimited, Err: fmt.Errorf("rate limited by breach service")}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, &CollaboratorError{Kind: ErrUnreachable, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}
}

// EmbedClient wraps the Ollama-style embedding endpoint.
type EmbedClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewEmbedClient returns a client against baseURL.
func NewEmbedClient(baseURL string, timeout time.Duration) *EmbedClient {
	return &EmbedClient{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed requests an embedding vector for input under model.
func (c *EmbedClient) Embed(ctx context.Context, model, input string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: input})
	if err != nil {
		return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CollaboratorError{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &CollaboratorError{Kind: ErrUnreachable, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
	}
	return out.Embedding, nil
}

// HealthCheck reports whether the embedding service is ready via
// GET /api/tags.
func (c *EmbedClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return &CollaboratorError{Kind: ErrInvalidResponse, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &CollaboratorError{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &CollaboratorError{Kind: ErrUnreachable, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
