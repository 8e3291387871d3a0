// Package transport talks to the form endpoints: GET the definition, PUT the
// response. Both requests carry the API key in the aKey header.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formwidget/internal/form"
	"formwidget/internal/logging"
)

// APIKeyHeader carries the opaque API key on every request.
const APIKeyHeader = "aKey"

// RequestIDHeader carries the form session id for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 512

// Client fetches form definitions and submits responses.
type Client struct {
	FetchURL  string
	SubmitURL string
	APIKey    string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(fetchURL, submitURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		FetchURL:   fetchURL,
		SubmitURL:  submitURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type requestIDKey struct{}

// WithRequestID attaches id to ctx; requests made with ctx send it in
// the X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(APIKeyHeader, c.APIKey)
	id := RequestID(ctx)
	if id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
	logging.TransportDebug("%s %s request_id=%q", method, url, id)
	return req, nil
}

// FetchForm loads the form definition. Anything but 200 with a decodable body
// is an ErrLoad.
func (c *Client) FetchForm(ctx context.Context) (*form.Form, error) {
	if c.FetchURL == "" {
		return nil, loadFailure("no fetch URL configured", nil)
	}
	timer := logging.StartTimer(logging.CategoryTransport, "fetch form")
	defer timer.StopWithThreshold(5 * time.Second)

	req, err := c.newRequest(ctx, http.MethodGet, c.FetchURL, nil)
	if err != nil {
		return nil, loadFailure("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		logging.TransportError("fetch %s failed: %v", c.FetchURL, err)
		return nil, loadFailure("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := statusError(resp)
		logging.TransportError("fetch %s: %v", c.FetchURL, serr)
		return nil, loadFailure(c.FetchURL, serr)
	}

	f, err := form.DecodeJSON(resp.Body)
	if err != nil {
		logging.TransportError("fetch %s: malformed body: %v", c.FetchURL, err)
		return nil, loadFailure("malformed form definition", err)
	}

	logging.Transport("fetched form %s (%d questions)", f.ID, len(f.Questions))
	return f, nil
}

// Submit PUTs the response. 200 and 204 are success; any other status or a
// network failure is an ErrSubmit. There is no retry here.
func (c *Client) Submit(ctx context.Context, r form.FormResponse) error {
	if c.SubmitURL == "" {
		return submitFailure("no submit URL configured", nil)
	}
	timer := logging.StartTimer(logging.CategoryTransport, "submit response")
	defer timer.StopWithThreshold(5 * time.Second)

	body, err := json.Marshal(r)
	if err != nil {
		return submitFailure("failed to marshal response", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.SubmitURL, bytes.NewReader(body))
	if err != nil {
		return submitFailure("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		logging.TransportError("submit %s for form %s failed: %v", c.SubmitURL, r.FormID, err)
		return submitFailure("request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		_, _ = io.Copy(io.Discard, resp.Body)
		logging.Transport("submitted form %s (%d answers)", r.FormID, len(r.QuestionResponses))
		return nil
	default:
		serr := statusError(resp)
		logging.TransportError("submit %s for form %s: %v", c.SubmitURL, r.FormID, serr)
		return submitFailure(fmt.Sprintf("form %s", r.FormID), serr)
	}
}

func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
