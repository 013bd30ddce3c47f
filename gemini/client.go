package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public endpoint of the generative language API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultChatModel is used when the caller names no model.
	DefaultChatModel = "gemini-1.5-flash-latest"

	apiVersion = "v1beta"
)

// ErrTransport marks network and HTTP failures. Callers classify it with
// errors.Is to decide whether an exchange may be retried.
var ErrTransport = errors.New("transport error")

// StatusError is a non-2xx reply from the API. It wraps ErrTransport.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// Client talks to the generation endpoints. The zero value is not usable;
// construct it with NewClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(model, method, query string) string {
	u := c.baseURL + "/" + apiVersion + "/models/" + url.PathEscape(model) + ":" + method
	if query != "" {
		u += "?" + query
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, endpoint string, body *GenerateContentRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	return req, nil
}

// GenerateContent performs one blocking generation exchange.
func (c *Client) GenerateContent(ctx context.Context, model string, body *GenerateContentRequest) (*GenerateContentResponse, error) {
	req, err := c.newRequest(ctx, c.endpoint(model, "generateContent", ""), body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate content: %v: %w", err, ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readStatusError(resp)
	}

	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// StreamGenerateContent starts a streaming generation exchange and returns
// the chunks in delivery order. Both channels are closed when the stream
// ends; a cancelled context surfaces on the error channel and stops the
// stream. Chunk order must not be disturbed by the consumer: parts of a
// single candidate only make sense in arrival order.
func (c *Client) StreamGenerateContent(ctx context.Context, model string, body *GenerateContentRequest) (<-chan *GenerateContentResponse, <-chan error) {
	chunks := make(chan *GenerateContentResponse)
	errs := make(chan error, 1)

	req, err := c.newRequest(ctx, c.endpoint(model, "streamGenerateContent", "alt=sse"), body)
	if err != nil {
		errs <- err
		close(chunks)
		close(errs)
		return chunks, errs
	}

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errs <- fmt.Errorf("stream generate content: %v: %w", err, ErrTransport)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- readStatusError(resp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue // comment or blank separator line
			}
			data = strings.TrimSpace(data)
			if data == "" || data == "[DONE]" {
				continue
			}

			var chunk GenerateContentResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				errs <- fmt.Errorf("decode stream chunk: %w", err)
				return
			}

			select {
			case chunks <- &chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				errs <- ctx.Err()
				return
			}
			errs <- fmt.Errorf("read stream: %v: %w", err, ErrTransport)
		}
	}()

	return chunks, errs
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	slog.Debug("api request rejected", "status", resp.StatusCode)
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
