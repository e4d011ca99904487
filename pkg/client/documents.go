package permitsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// UpsertDocument creates or replaces one permit document.
// Returns true if the document was created.
func (c *Client) UpsertDocument(ctx context.Context, doc Document) (bool, error) {
	body := struct {
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{Content: doc.Content, Metadata: doc.Metadata}

	resp, err := c.roundtrip(ctx, http.MethodPut, "/documents/"+url.PathEscape(doc.ID), body)
	if err != nil {
		return false, fmt.Errorf("upsert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("upsert: %w", decodeAPIError(resp))
	}
	return resp.StatusCode == http.StatusCreated, nil
}

// GetDocument retrieves a document by ID.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, &doc); err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document by ID.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListDocuments returns one page of documents. Empty cursor starts from the
// beginning; limit 0 uses the server default.
func (c *Client) ListDocuments(ctx context.Context, cursor string, limit int) (ListResult, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/documents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ListResult{}, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// BatchUpsert stores documents in one request. Per-document failures are
// reported in the result items, not as an error.
func (c *Client) BatchUpsert(ctx context.Context, docs []Document) (BatchResult, error) {
	type item struct {
		ID       string         `json:"id"`
		Content  string         `json:"content"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}
	items := make([]item, len(docs))
	for i, d := range docs {
		items[i] = item{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	body := struct {
		Items []item `json:"items"`
	}{Items: items}

	resp, err := c.roundtrip(ctx, http.MethodPost, "/documents/batch", body)
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch upsert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return BatchResult{}, fmt.Errorf("batch upsert: %w", decodeAPIError(resp))
	}
	var out BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return BatchResult{}, fmt.Errorf("batch upsert: decode response: %w", err)
	}
	return out, nil
}
