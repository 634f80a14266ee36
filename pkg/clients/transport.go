// Package clients holds the HTTP transport to the remote order, payment and
// coupon services.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const maxErrorBody = 2048

// HTTPError is returned for responses that could not be read as a service envelope.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote service returned %d: %s", e.StatusCode, e.Body)
}

// Transport sends JSON requests to one remote service.
type Transport struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewTransport(baseURL, token string, timeout time.Duration) *Transport {
	return NewTransportWithClient(baseURL, token, &http.Client{Timeout: timeout})
}

func NewTransportWithClient(baseURL, token string, client *http.Client) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (t *Transport) PostJSON(ctx context.Context, path string, body, out any) error {
	return t.do(ctx, http.MethodPost, path, body, out)
}

func (t *Transport) GetJSON(ctx context.Context, path string, out any) error {
	return t.do(ctx, http.MethodGet, path, nil, out)
}

// do decodes the response into out. 4xx responses still carry the service's
// {success:false, message} envelope, so they are decoded rather than failed;
// 5xx responses and undecodable bodies become errors.
func (t *Transport) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "build request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(raw)}
	}

	if out == nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(raw)}
		}
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(raw)}
		}
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}
