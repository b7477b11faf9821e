package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RegisterResponse is the producer's answer to a consumer registration.
type RegisterResponse struct {
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	LastUpdate string `json:"last_update"`
}

// UpdateLogFilter narrows the remote change log fetch.
type UpdateLogFilter struct {
	Doctypes []string
	After    time.Time // zero means no lower bound
}

// SiteClient talks to one producer site.
type SiteClient interface {
	GetUpdateLogs(ctx context.Context, filter UpdateLogFilter) ([]UpdateLog, error)
	GetDoc(ctx context.Context, doctype, name string) (map[string]interface{}, error)
	GetValue(ctx context.Context, doctype, name, field string) (string, error)
	RegisterConsumer(ctx context.Context, consumerURL string, doctypes []string) (*RegisterResponse, error)
	UpdateConsumer(ctx context.Context, consumerURL string, doctypes []string) error
}

// ClientFactory builds a SiteClient for a producer. Injected so tests can
// substitute a fake site.
type ClientFactory func(p *EventProducer) SiteClient

type httpSiteClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

func NewHTTPClientFactory(timeout time.Duration) ClientFactory {
	return func(p *EventProducer) SiteClient {
		return &httpSiteClient{
			baseURL:   strings.TrimRight(p.URL, "/"),
			apiKey:    p.APIKey,
			apiSecret: p.APISecret,
			client: &http.Client{
				Timeout: timeout,
			},
		}
	}
}

func (c *httpSiteClient) GetUpdateLogs(ctx context.Context, filter UpdateLogFilter) ([]UpdateLog, error) {
	params := url.Values{}
	params.Set("doctypes", strings.Join(filter.Doctypes, ","))
	if !filter.After.IsZero() {
		params.Set("after", filter.After.Format(time.RFC3339Nano))
	}

	var logs []UpdateLog
	if err := c.getJSON(ctx, "/api/update-log?"+params.Encode(), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *httpSiteClient) GetDoc(ctx context.Context, doctype, name string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	path := fmt.Sprintf("/api/doc/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	if err := c.getJSON(ctx, path, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *httpSiteClient) GetValue(ctx context.Context, doctype, name, field string) (string, error) {
	var value string
	path := fmt.Sprintf("/api/value/%s/%s/%s", url.PathEscape(doctype), url.PathEscape(name), url.PathEscape(field))
	if err := c.getJSON(ctx, path, &value); err != nil {
		return "", err
	}
	return value, nil
}

func (c *httpSiteClient) RegisterConsumer(ctx context.Context, consumerURL string, doctypes []string) (*RegisterResponse, error) {
	body := map[string]interface{}{
		"callback_url":        consumerURL,
		"subscribed_doctypes": doctypes,
	}

	var resp RegisterResponse
	if err := c.postJSON(ctx, "/api/consumers", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpSiteClient) UpdateConsumer(ctx context.Context, consumerURL string, doctypes []string) error {
	body := map[string]interface{}{
		"callback_url":        consumerURL,
		"subscribed_doctypes": doctypes,
	}
	return c.postJSON(ctx, "/api/consumers/update", body, nil)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *httpSiteClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *httpSiteClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpSiteClient) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, c.apiSecret))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{URL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{URL: c.baseURL, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: c.baseURL, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		// Some endpoints answer with a bare payload instead of {"data": ...}
		return json.Unmarshal(raw, out)
	}
	return json.Unmarshal(env.Data, out)
}
