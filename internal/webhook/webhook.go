// Package webhook delivers saved receipts to a user-configured external
// endpoint, typically a spreadsheet integration.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Payload is the JSON body posted to the webhook for each saved receipt.
type Payload struct {
	CarName     string   `json:"carName"`
	CarPlate    string   `json:"carPlate"`
	Date        *string  `json:"date"`
	Vendor      *string  `json:"vendor"`
	Description *string  `json:"description"`
	Total       *float64 `json:"total"`
}

// Poster delivers a payload best-effort. A nil return means only that the
// transport accepted the request; the application-level outcome is
// unknowable (the endpoint's response may be opaque) and must be assumed
// successful.
type Poster interface {
	Post(ctx context.Context, url string, p Payload) error
}

// HTTPPoster posts payloads over HTTP. The response body is discarded
// regardless of status; only a transport-level failure is reported.
type HTTPPoster struct {
	client *http.Client
}

// NewHTTPPoster creates a poster with a bounded timeout.
func NewHTTPPoster() *HTTPPoster {
	return &HTTPPoster{client: &http.Client{Timeout: 15 * time.Second}}
}

// Post sends the payload. It never reads the response beyond closing it.
func (h *HTTPPoster) Post(ctx context.Context, url string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	resp.Body.Close()
	return nil
}
