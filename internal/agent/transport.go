package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the payload sent to an agent endpoint.
type Request struct {
	Input       string    `json:"input"`
	ChatHistory []Message `json:"chat_history"`
}

// Response is the payload returned by an agent endpoint.
type Response struct {
	Output string `json:"output"`
}

// Transport invokes a remote agent endpoint.
type Transport interface {
	// Invoke sends one planning request.
	Invoke(ctx context.Context, req Request) (Response, error)
	// Probe checks that the endpoint is reachable.
	Probe(ctx context.Context) error
}

// FuncTransport adapts functions into a Transport.
type FuncTransport struct {
	InvokeFn func(ctx context.Context, req Request) (Response, error)
	ProbeFn  func(ctx context.Context) error
}

// Invoke calls InvokeFn, or returns an empty response if it is nil.
func (f *FuncTransport) Invoke(ctx context.Context, req Request) (Response, error) {
	if f.InvokeFn == nil {
		return Response{}, nil
	}
	return f.InvokeFn(ctx, req)
}

// Probe calls ProbeFn, or succeeds if it is nil.
func (f *FuncTransport) Probe(ctx context.Context) error {
	if f.ProbeFn == nil {
		return nil
	}
	return f.ProbeFn(ctx)
}

// Static returns a Transport that always answers output.
func Static(output string) *FuncTransport {
	return &FuncTransport{InvokeFn: func(context.Context, Request) (Response, error) {
		return Response{Output: output}, nil
	}}
}

// HTTPTransport posts {input, chat_history} to an endpoint that answers {output}.
type HTTPTransport struct {
	URL    string
	Client *http.Client
}

// NewHTTPTransport returns an HTTPTransport for endpoint.
//
// Precondition: endpoint must be an absolute http or https URL.
func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{URL: endpoint, Client: client}
}

// Invoke implements Transport.
func (t *HTTPTransport) Invoke(ctx context.Context, req Request) (Response, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []Message{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := t.Client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("posting to %s: %w", t.URL, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Response{}, fmt.Errorf("agent endpoint %s returned status %d: %s", t.URL, res.StatusCode, strings.TrimSpace(string(payload)))
	}
	var out Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

// Probe reports the endpoint reachable when it answers a GET with a status below 500.
func (t *HTTPTransport) Probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return fmt.Errorf("building probe: %w", err)
	}
	res, err := t.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("probing %s: %w", t.URL, err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode >= 500 {
		return fmt.Errorf("probing %s: status %d", t.URL, res.StatusCode)
	}
	return nil
}

// TransportOptions configures NewTransport.
type TransportOptions struct {
	HTTPClient      *http.Client
	AnthropicAPIKey string
	MaxTokens       int64
}

// NewTransport chooses a Transport by the scheme of rawURL: http and https
// endpoints use HTTPTransport, anthropic://<model> uses AnthropicTransport.
//
// Postcondition: Returns an error for other schemes.
func NewTransport(rawURL string, opts TransportOptions) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing agent url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPTransport(rawURL, opts.HTTPClient), nil
	case "anthropic":
		model := u.Host + u.Path
		return NewAnthropicTransport(model, opts.AnthropicAPIKey, opts.MaxTokens)
	default:
		return nil, fmt.Errorf("agent url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
}
