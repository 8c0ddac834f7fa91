// Package crossbus provides a client for the crossbus composition facade.
package crossbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultType is the category used when none is given.
const DefaultType = "default"

// Client is a crossbus API client bound to one component identity.
type Client struct {
	BaseURL    string
	Name       string // component identity this client publishes as
	HTTPClient *http.Client
}

// Record is one message unit as returned by the facade.
type Record struct {
	ID        string          `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts"`
}

// Notification signals a newly published record, with the previous record
// for its slot when one existed.
type Notification struct {
	Record   Record  `json:"record"`
	Previous *Record `json:"previous,omitempty"`
}

// APIError is a non-2xx response from the facade.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crossbus: %s (status %d)", e.Message, e.StatusCode)
}

// ErrDropped is returned by Publish when the facade dropped the record
// with a warning instead of accepting it.
type ErrDropped struct {
	Warning string
}

func (e *ErrDropped) Error() string {
	return "crossbus: publish dropped: " + e.Warning
}

// NewClient creates a client for the given component name.
func NewClient(baseURL, name string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Name:       name,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Attach registers this client's component identity on the bus. Attach is
// idempotent and must precede the first Publish.
func (c *Client) Attach(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"name": c.Name})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/attach", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Detach releases this client's registration.
func (c *Client) Detach(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/attach/"+url.PathEscape(c.Name), nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// Publish sends one record addressed to target. A payload of any
// JSON-marshalable value is accepted. When the facade drops the publish
// with a warning (component not attached), the error is *ErrDropped.
func (c *Client) Publish(ctx context.Context, to, typ string, payload interface{}) (*Record, error) {
	if typ == "" {
		typ = DefaultType
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]interface{}{
		"from":    c.Name,
		"to":      to,
		"type":    typ,
		"payload": json.RawMessage(raw),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out struct {
		Accepted  bool   `json:"accepted"`
		ID        string `json:"id"`
		Timestamp int64  `json:"ts"`
		Warning   string `json:"warning"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Accepted {
		return nil, &ErrDropped{Warning: out.Warning}
	}

	return &Record{
		ID:        out.ID,
		From:      c.Name,
		To:        to,
		Type:      typ,
		Payload:   raw,
		Timestamp: out.Timestamp,
	}, nil
}

// Query returns all records addressed to this component in publish order,
// optionally filtered by type.
func (c *Client) Query(ctx context.Context, typeFilter string) ([]Record, error) {
	u := c.BaseURL + "/records/" + url.PathEscape(c.Name)
	if typeFilter != "" {
		u += "?type=" + url.QueryEscape(typeFilter)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out struct {
		Records []Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// Latest returns this component's most recent record of the given type,
// or nil when none exists.
func (c *Client) Latest(ctx context.Context, typ string) (*Record, error) {
	if typ == "" {
		typ = DefaultType
	}

	u := c.BaseURL + "/records/" + url.PathEscape(c.Name) + "/latest?type=" + url.QueryEscape(typ)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out struct {
		Found  bool    `json:"found"`
		Record *Record `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, nil
	}
	return out.Record, nil
}

// Watch opens a websocket and delivers notifications addressed to this
// component on the returned channel until ctx is done or the server
// closes the socket. Notifications published before Watch connects are
// not replayed; call Query for history.
func (c *Client) Watch(ctx context.Context) (<-chan Notification, error) {
	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1) + "/watch/" + url.PathEscape(c.Name)

	sock, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	ch := make(chan Notification, 16)

	go func() {
		<-ctx.Done()
		sock.Close()
	}()

	go func() {
		defer close(ch)
		defer sock.Close()
		for {
			_, data, err := sock.ReadMessage()
			if err != nil {
				return
			}
			var n Notification
			if err := json.Unmarshal(data, &n); err != nil {
				continue
			}
			select {
			case ch <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
