// Package contentsource implements the read-only client for the external
// content system's document API.
package contentsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tekstlab/interlink/internal/domain"
)

const defaultTimeout = 30 * time.Second

// HTTPClient fetches documents over the content system's JSON API. All
// methods are read-only; the engine never writes back to the source.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type documentRefPayload struct {
	ID          int64  `json:"id"`
	ContentHash string `json:"content_hash"`
}

type documentPayload struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Type        string   `json:"type"`
	Categories  []string `json:"categories"`
	ContentHash string   `json:"content_hash"`
	Permalink   string   `json:"permalink"`
}

// ListCandidateDocuments returns one id-ordered page of linkable documents.
// The server orders by id, so repeated calls with the same offset are stable
// across ticks.
func (c *HTTPClient) ListCandidateDocuments(ctx context.Context, limit, offset int) ([]domain.DocumentRef, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("order", "id")

	var payload struct {
		Documents []documentRefPayload `json:"documents"`
	}
	if err := c.getJSON(ctx, "/documents?"+query.Encode(), &payload); err != nil {
		return nil, err
	}

	refs := make([]domain.DocumentRef, 0, len(payload.Documents))
	for _, d := range payload.Documents {
		refs = append(refs, domain.DocumentRef{ID: d.ID, ContentHash: d.ContentHash})
	}
	return refs, nil
}

// GetContent returns a document's full title, body and categories.
func (c *HTTPClient) GetContent(ctx context.Context, id int64) (*domain.Document, error) {
	var payload documentPayload
	if err := c.getJSON(ctx, fmt.Sprintf("/documents/%d", id), &payload); err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:          payload.ID,
		Title:       payload.Title,
		Body:        payload.Body,
		Type:        payload.Type,
		Categories:  payload.Categories,
		ContentHash: payload.ContentHash,
	}, nil
}

// ResolvePermalink returns the public URL of a document. An empty string
// with a nil error means the document is not publicly addressable.
func (c *HTTPClient) ResolvePermalink(ctx context.Context, id int64) (string, error) {
	var payload documentPayload
	err := c.getJSON(ctx, fmt.Sprintf("/documents/%d", id), &payload)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return payload.Permalink, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "content source request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrDocumentNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.NewDomainError(domain.ErrCodeProvider,
			fmt.Sprintf("content source returned status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
