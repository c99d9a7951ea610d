// Package pactum is the single access point to the Pactum REST API. Every call
// carries the visitor's bearer token and a 401 answer logs the visitor out.
package pactum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const maxErrorBody = 1 << 20

// Observer records the outcome of each API call.
type Observer interface {
	ObserveAPICall(op, outcome string, elapsed time.Duration)
}

// API issues requests against the Pactum REST API. It performs no retries, no
// backoff and no deduplication: each call is sent exactly once.
type API struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

// Options configures an API.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// NewAPI constructs an API. BaseURL must include the /api prefix.
func NewAPI(opts Options) *API {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &API{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		observer:   opts.Observer,
	}
}

// call describes one outbound request.
type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// anonymous requests skip the 401 interception; a 401 there is a plain
	// rejection such as wrong login credentials.
	anonymous bool
}

func (c *API) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.do(ctx, call{op: op, method: http.MethodGet, path: path, query: query}, out)
}

func (c *API) sendJSON(ctx context.Context, op, method, path string, payload, out any) error {
	body, contentType, err := encodeJSON(op, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, call{op: op, method: method, path: path, body: body, contentType: contentType}, out)
}

func encodeJSON(op string, payload any) (io.Reader, string, error) {
	if payload == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("pactum: encode %s: %w", op, err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// FilePart is one file field of a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

func (c *API) sendMultipart(ctx context.Context, op, path string, fields map[string]string, files []FilePart, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("pactum: encode %s: %w", op, err)
		}
	}
	for _, file := range files {
		if file.Content == nil {
			continue
		}
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return fmt.Errorf("pactum: encode %s: %w", op, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return fmt.Errorf("pactum: encode %s: %w", op, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("pactum: encode %s: %w", op, err)
	}
	return c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        body,
		contentType: writer.FormDataContentType(),
	}, out)
}

func (c *API) do(ctx context.Context, cl call, out any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveAPICall(cl.op, outcome, time.Since(start))
		}
	}()

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, cl.body)
	if err != nil {
		outcome = "invalid"
		return fmt.Errorf("pactum: build %s: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	creds := CredentialsFromContext(ctx)
	if creds != nil && !cl.anonymous {
		if token := creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "network"
		if ctx.Err() == nil {
			c.logger.Warn("pactum request failed", slog.String("op", cl.op), slog.Any("error", err))
		}
		return fmt.Errorf("%w: %s: %w", ErrNetwork, cl.op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized && !cl.anonymous {
		outcome = "auth_expired"
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		if creds != nil {
			creds.Invalidate(ctx)
		}
		c.logger.Info("pactum credential rejected", slog.String("op", cl.op))
		return fmt.Errorf("%s: %w", cl.op, ErrAuthenticationExpired)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		outcome = "rejected"
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rejected := &RejectedError{Op: cl.op, Status: resp.StatusCode, Detail: parseDetail(raw), Body: raw}
		c.logger.Debug("pactum request rejected", slog.String("op", cl.op), slog.Int("status", resp.StatusCode))
		return rejected
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		outcome = "decode"
		return fmt.Errorf("pactum: decode %s: %w", cl.op, err)
	}
	return nil
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
