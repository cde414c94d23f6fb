package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/andreasstove999/ecommerce-system/services/pos-register-go/internal/middleware"
)

var (
	ErrUnauthorized = errors.New("upstream rejected credentials")
	ErrForbidden    = errors.New("upstream denied access")
	ErrNoData       = errors.New("response has no data")
)

// APIError is a non-2xx answer from the backend, decoded from its envelope.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Field      string
	FieldError string
}

func (e *APIError) Error() string {
	msg := e.FieldError
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, msg)
}

type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client
}

func NewClient(name string, baseURL string, httpClient *http.Client) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid %s base url %q: %v", name, baseURL, err))
	}
	return &Client{Name: name, BaseURL: u, HTTP: httpClient}
}

// Do sends a request to path under the base URL. The caller's bearer token,
// correlation id and trace context are forwarded.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body io.Reader) (*http.Response, error) {
	u := c.BaseURL.JoinPath(path)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := middleware.GetBearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return c.HTTP.Do(req)
}

// DoJSON marshals in (if non-nil), sends the request and decodes the
// envelope's data into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path, rawQuery string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.Name, err)
		}
		body = bytes.NewReader(b)
	}

	resp, err := c.Do(ctx, method, path, rawQuery, body)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", c.Name, method, path, err)
	}
	defer resp.Body.Close()

	return c.decode(resp, out)
}

func (c *Client) decode(resp *http.Response, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", c.Name, err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", c.Name, ErrUnauthorized)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", c.Name, ErrForbidden)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("%s: decode envelope: %w", c.Name, err)
		}
	}

	if resp.StatusCode >= 300 || (env.Success != nil && !*env.Success) {
		status := resp.StatusCode
		if status < 300 {
			status = http.StatusUnprocessableEntity
		}
		field, fieldErr := firstFieldError(env.Errors)
		return &APIError{
			Service:    c.Name,
			StatusCode: status,
			Message:    env.Message,
			Field:      field,
			FieldError: fieldErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%s: %w", c.Name, ErrNoData)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", c.Name, err)
	}
	return nil
}
