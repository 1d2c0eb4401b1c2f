package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Proxied delegates extraction to a backend proxy endpoint that holds the
// shared credential, so no key ever needs to live on the caller's side.
type Proxied struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewProxied creates a Proxied extractor. apiKey is optional; when set it is
// forwarded with the request and takes priority over the proxy's own key.
func NewProxied(endpoint, apiKey string) *Proxied {
	return &Proxied{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 90 * time.Second},
	}
}

type proxyRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
	APIKey   string `json:"apiKey,omitempty"`
}

// Analyze posts the base64 image to the proxy and relays its JSON response.
func (p *Proxied) Analyze(ctx context.Context, imageData []byte, contentType string) (*Fields, error) {
	pngData, mimeType, err := PrepareImage(imageData, contentType)
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: err}
	}

	reqBody, err := json.Marshal(proxyRequest{
		Image:    base64.StdEncoding.EncodeToString(pngData),
		MimeType: mimeType,
		APIKey:   p.apiKey,
	})
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("calling extraction proxy: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("reading proxy response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, proxyError(resp.StatusCode, body)
	}

	return ParseFields(string(body))
}

// proxyError extracts the classified message from the proxy's JSON error
// body, falling back to status classification over the raw text.
func proxyError(status int, body []byte) *Error {
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
		return &Error{Message: errBody.Error, Err: fmt.Errorf("proxy returned status %d", status)}
	}
	return &Error{
		Message: ClassifyStatus(status, string(body)),
		Err:     fmt.Errorf("proxy returned status %d: %s", status, body),
	}
}
