package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// Client performs webhook calls. Every call runs in its own short-lived
// HTTP session whose connections are released when the call returns.
type Client struct {
	parser  *Parser
	base    *http.Transport
	timeout time.Duration
}

// NewClient creates a client bounded by timeout per call.
func NewClient(parser *Parser, timeout time.Duration) *Client {
	return &Client{
		parser:  parser,
		base:    http.DefaultTransport.(*http.Transport).Clone(),
		timeout: timeout,
	}
}

// Parser returns the endpoint parser the client validates URLs with.
func (c *Client) Parser() *Parser {
	return c.parser
}

// Fetch reads the webhook metadata, confirming the endpoint is live.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*discordgo.Webhook, error) {
	ep, err := c.parser.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	var hook discordgo.Webhook
	err = c.do(ctx, http.MethodGet, ep.String(), nil, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(&hook); err != nil {
			return domain.NewError(domain.UnexpectedFailure, "decoding webhook", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &hook, nil
}

// Execute posts params to the webhook and waits for the message to be
// created.
func (c *Client) Execute(ctx context.Context, rawURL string, params *discordgo.WebhookParams) error {
	ep, err := c.parser.Parse(rawURL)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return domain.NewError(domain.UnexpectedFailure, "encoding webhook payload", err)
	}

	return c.do(ctx, http.MethodPost, ep.String()+"?wait=true", payload, nil)
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte, decode func(io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	transport := c.base.Clone()
	session := &http.Client{Transport: transport}
	defer session.CloseIdleConnections()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return domain.NewError(domain.InvalidEndpoint, "building request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "chatlog-relay (https://github.com/Priya8975/chatlog-relay, 1.0)")

	resp, err := session.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.parser.Redact(target)
		}
		return domain.NewError(domain.NetworkFailure, fmt.Sprintf("%s webhook", method), err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if decode != nil {
		return decode(resp.Body)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return nil
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook responded %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook responded %d: %s", e.StatusCode, e.Body)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read response body (limit to 1KB to keep log lines short)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return domain.NewError(domain.InvalidEndpoint, "unknown webhook", statusErr)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return domain.NewError(domain.NetworkFailure, "webhook unavailable", statusErr)
	default:
		return domain.NewError(domain.UnexpectedFailure, "webhook rejected request", statusErr)
	}
}
