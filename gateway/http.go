package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to the hosted payment-link API over JSON/HTTP with
// basic auth. The base URL is injected so tests can point it at a
// local server.
type HTTPClient struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func NewHTTPClient(baseURL, keyID, keySecret string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type listBody struct {
	Count int    `json:"count"`
	Items []Link `json:"items"`
}

func (c *HTTPClient) CreateLink(ctx context.Context, params CreateLinkParams) (*Link, error) {
	if params.CallbackMethod == "" && params.CallbackURL != "" {
		params.CallbackMethod = "get"
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal create link: %w", err)
	}
	var link Link
	if err := c.do(ctx, http.MethodPost, "/payment_links", bytes.NewReader(body), &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *HTTPClient) FetchLink(ctx context.Context, linkID string) (*Link, error) {
	var link Link
	if err := c.do(ctx, http.MethodGet, "/payment_links/"+url.PathEscape(linkID), nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *HTTPClient) ListLinksByReference(ctx context.Context, referenceID string) ([]Link, error) {
	var out listBody
	path := "/payment_links?reference_id=" + url.QueryEscape(referenceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &Error{
			StatusCode:  resp.StatusCode,
			Code:        eb.Error.Code,
			Description: eb.Error.Description,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
