// Package cms is the client for the destination headless CMS. The store
// speaks a REST dialect with {data, meta} envelopes, filters[field][$eq]
// list queries and bearer-token auth.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blog-cms-migrator/internal/models"
	"github.com/rs/zerolog"
)

// Client talks to one CMS instance. It performs no retries; a failed
// request fails the caller's run.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient creates a client for the CMS at baseURL authenticating with the
// given bearer token.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "cms").Logger(),
	}
}

// APIError is a non-2xx response from the store, carrying the upstream
// error name and message when the body supplied them.
type APIError struct {
	Status     int
	StatusText string
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" || e.Message != "" {
		return fmt.Sprintf("cms: %d %s: %s: %s", e.Status, e.StatusText, e.Name, e.Message)
	}
	return fmt.Sprintf("cms: %d %s", e.Status, e.StatusText)
}

// Wire envelopes.

type entityDoc struct {
	ID         int             `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
	Meta       map[string]any  `json:"meta,omitempty"`
}

type listEnvelope struct {
	Data []entityDoc    `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

type singleEnvelope struct {
	Data entityDoc      `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// FindOrInit looks up an entity in collection whose field equals value. If
// the store has one, the returned entity carries the found id and meta but
// the attributes are replaced by attrs: the source material wins on every
// field except id and meta. An empty result yields an id-less entity shell.
func FindOrInit[A any](ctx context.Context, c *Client, collection, field, value string, attrs A) (models.Entity[A], error) {
	// url.Values escapes the filter value, so store query syntax cannot be
	// injected through slugs or paths.
	q := url.Values{}
	q.Set(fmt.Sprintf("filters[%s][$eq]", field), value)

	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/"+collection+"?"+q.Encode(), nil, &env); err != nil {
		return models.Entity[A]{}, err
	}

	if len(env.Data) == 0 {
		return models.Entity[A]{Attributes: attrs}, nil
	}

	doc := env.Data[0]
	id := doc.ID
	return models.Entity[A]{ID: &id, Attributes: attrs, Meta: doc.Meta}, nil
}

// Create persists a brand-new entity and returns the store's authoritative
// copy, including the assigned id.
func Create[A any](ctx context.Context, c *Client, collection string, e models.Entity[A]) (models.Entity[A], error) {
	body, err := json.Marshal(map[string]any{"data": e.Attributes})
	if err != nil {
		return models.Entity[A]{}, fmt.Errorf("cms: encode %s create: %w", collection, err)
	}

	var env singleEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/"+collection, bytes.NewReader(body), &env); err != nil {
		return models.Entity[A]{}, err
	}
	return decodeEntity[A](collection, env.Data, e.Meta)
}

// Update persists changes to an existing entity identified by its id and
// returns the store's authoritative copy.
func Update[A any](ctx context.Context, c *Client, collection string, e models.Entity[A]) (models.Entity[A], error) {
	if e.ID == nil {
		return models.Entity[A]{}, fmt.Errorf("cms: update %s: entity has no id", collection)
	}

	body, err := json.Marshal(map[string]any{"data": e.Attributes})
	if err != nil {
		return models.Entity[A]{}, fmt.Errorf("cms: encode %s update: %w", collection, err)
	}

	var env singleEnvelope
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/%s/%d", collection, *e.ID), bytes.NewReader(body), &env); err != nil {
		return models.Entity[A]{}, err
	}
	return decodeEntity[A](collection, env.Data, e.Meta)
}

func decodeEntity[A any](collection string, doc entityDoc, meta map[string]any) (models.Entity[A], error) {
	var attrs A
	if len(doc.Attributes) > 0 {
		if err := json.Unmarshal(doc.Attributes, &attrs); err != nil {
			return models.Entity[A]{}, fmt.Errorf("cms: decode %s attributes: %w", collection, err)
		}
	}
	if doc.Meta != nil {
		meta = doc.Meta
	}
	id := doc.ID
	return models.Entity[A]{ID: &id, Attributes: attrs, Meta: meta}, nil
}

// UploadedFile is the store's description of a rehosted media asset.
type UploadedFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Upload pushes one media file to the store's upload endpoint and returns
// its new description, URL included.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("cms: upload %s: %w", filename, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("cms: upload %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("cms: upload %s: %w", filename, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("cms: upload %s: %w", filename, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}

	// The upload endpoint answers with an array, one element per file.
	var files []UploadedFile
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("cms: decode upload response: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("cms: upload %s: empty response", filename)
	}
	return &files[0], nil
}

// do runs one JSON request against the store and decodes the response
// envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("cms: %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("cms: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cms: decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	apiErr := &APIError{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
	var env errorEnvelope
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil {
		if json.Unmarshal(body, &env) == nil {
			apiErr.Name = env.Error.Name
			apiErr.Message = env.Error.Message
		}
	}
	return apiErr
}
