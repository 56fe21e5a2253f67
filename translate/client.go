package translate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"bolo/log"
	"bolo/traced"
)

const path = "/translate"

type request struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

type response struct {
	Result *string `json:"result"`
}

// Client issues single-shot translate calls against one server. It never
// retries; a failed call must be re-issued by the caller.
type Client struct {
	http     *traced.Client
	endpoint string
	count    atomic.Int64
}

func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		http:     traced.New(base + "/"),
		endpoint: base + path,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Count reports how many translations succeeded.
func (c *Client) Count() int { return int(c.count.Load()) }

// Warm pre-opens a connection to the server.
func (c *Client) Warm(ctx context.Context) { c.http.Warm(ctx) }

// Translate sends text (trimmed) with its source code and returns the
// server's result. Empty input fails with ErrEmptyInput without touching
// the network; cancellation returns context.Canceled and every other
// failure, a deadline included, is a *Fault.
func (c *Client) Translate(ctx context.Context, text string, source Source) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}

	payload, err := json.Marshal(request{Text: text, Source: source})
	if err != nil {
		return "", &Fault{Kind: TransportFault, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &Fault{Kind: TransportFault, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.Canceled):
			return "", ctxErr
		case ctxErr != nil:
			return "", &Fault{Kind: TransportFault, Err: ctxErr}
		}
		return "", &Fault{Kind: TransportFault, Err: err}
	}

	m := resp.Metrics
	log.TranslationMetrics(log.Translation{
		RequestID:  reqID,
		Source:     string(source),
		Status:     resp.StatusCode,
		InputChars: len([]rune(text)),
		DNSMs:      traced.Ms(m.DNS),
		TLSMs:      traced.Ms(m.TLS),
		TTFBMs:     traced.Ms(m.TTFB),
		TotalMs:    traced.Ms(m.Total),
		ConnReused: m.ConnReused,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Fault{Kind: ServerFault, Status: resp.StatusCode}
	}

	var out response
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", &Fault{Kind: MalformedResponse, Err: err}
	}
	if out.Result == nil {
		return "", &Fault{Kind: MalformedResponse, Err: errors.New(`missing "result" field`)}
	}

	c.count.Add(1)
	log.TranslationText(string(source), text, *out.Result)
	return *out.Result, nil
}
