package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	pc "piston_control"
	"piston_control/internal/logger"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// APIPrefix is prepended to every endpoint path.
	APIPrefix      = "/api/"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20 // 8 MB
)

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

// Config holds the gateway's connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Gateway is the single configuration point for outbound REST calls.
type Gateway struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New builds a gateway whose requests carry the token from tokens.
func New(cfg Config, tokens TokenSource, log *logger.Logger) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: &authTransport{base: cleanhttp.DefaultPooledTransport(), tokens: tokens},
			Timeout:   timeout,
		},
		log: logger.OrNop(log).Named("gateway"),
	}
}

// BaseURL returns the configured backend root.
func (g *Gateway) BaseURL() string { return g.baseURL }

// authTransport attaches the bearer token, read fresh on every request.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil {
		return t.base.RoundTrip(req)
	}
	tok := t.tokens.Token()
	if tok == "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+tok)
	return t.base.RoundTrip(r)
}

// Request describes one call relative to the API prefix.
type Request struct {
	Method      string
	Path        string // e.g. "devices/D1"
	Query       url.Values
	Body        any       // JSON-encoded when non-nil
	RawBody     io.Reader // sent as-is with ContentType; wins over Body
	ContentType string
}

func (g *Gateway) endpoint(path string, query url.Values) string {
	u := g.baseURL + APIPrefix + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (g *Gateway) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.RawBody != nil:
		body, contentType = r.RawBody, r.ContentType
	case r.Body != nil:
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", r.Method, r.Path, err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, g.endpoint(r.Path, r.Query), body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.Method, r.Path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// Send performs r and decodes the response into T.
func Send[T any](ctx context.Context, g *Gateway, r Request) pc.Result[T] {
	return SafeCall[T](ctx, g.log, func(ctx context.Context) (*http.Response, error) {
		req, err := g.newRequest(ctx, r)
		if err != nil {
			return nil, err
		}
		return g.http.Do(req)
	})
}

func Get[T any](ctx context.Context, g *Gateway, path string, query url.Values) pc.Result[T] {
	return Send[T](ctx, g, Request{Method: http.MethodGet, Path: path, Query: query})
}

func Post[T any](ctx context.Context, g *Gateway, path string, body any) pc.Result[T] {
	return Send[T](ctx, g, Request{Method: http.MethodPost, Path: path, Body: body})
}

func Put[T any](ctx context.Context, g *Gateway, path string, body any) pc.Result[T] {
	return Send[T](ctx, g, Request{Method: http.MethodPut, Path: path, Body: body})
}

func Delete[T any](ctx context.Context, g *Gateway, path string) pc.Result[T] {
	return Send[T](ctx, g, Request{Method: http.MethodDelete, Path: path})
}

// PostMultipart uploads one file part named field.
func PostMultipart[T any](ctx context.Context, g *Gateway, path, field, filename, contentType string, file io.Reader) pc.Result[T] {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = io.Copy(part, io.LimitReader(file, maxBodyBytes))
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		g.log.Errorw("multipart_encode_failed", "path", path, "err", err)
		return pc.Failure[T](MsgUnknownPrefix+err.Error(), 0)
	}
	return Send[T](ctx, g, Request{
		Method:      http.MethodPost,
		Path:        path,
		RawBody:     &buf,
		ContentType: mw.FormDataContentType(),
	})
}
