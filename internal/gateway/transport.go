// Package gateway delivers signed paynet requests over HTTP.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
	"github.com/noah-isme/paynet-bridge/internal/resilience"
)

const maxResponseBytes = 1 << 20

// Transport posts form-encoded queries to {BaseURL}/{method}/{end_point} and parses the
// url-encoded reply.
type Transport struct {
	BaseURL string
	Client  resilience.HTTPClient
	Logger  zerolog.Logger
}

// New builds a transport over an otelhttp-instrumented client.
func New(baseURL string, breaker *resilience.Breaker, timeout time.Duration, retries int, backoff time.Duration, logger zerolog.Logger) *Transport {
	return &Transport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: backoff,
			MaxAttempts: retries,
			Jitter:      0.2,
			Timeout:     timeout,
			Target:      "paynet",
			Logger:      logger,
		},
		Logger: logger,
	}
}

// Send implements paynet.Transport. Only status queries are retried.
func (t *Transport) Send(ctx context.Context, req *paynet.Request) (*paynet.Response, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.Send")
	defer span.End()
	span.SetAttributes(attribute.String("paynet.method", req.Method))

	endpoint := t.URL(req)
	form := url.Values{}
	for k, v := range req.Fields {
		form.Set(k, v)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &paynet.TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.Client
	if req.Operation != paynet.OpStatus {
		client.MaxAttempts = 1
	}

	start := time.Now()
	resp, err := client.Do(ctx, httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, &paynet.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &paynet.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	t.Logger.Debug().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("paynet_gateway_reply")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &paynet.TransportError{Err: fmt.Errorf("gateway responded %s", resp.Status)}
	}
	parsed, err := paynet.ParseResponse(body)
	if err != nil {
		return nil, &paynet.TransportError{Err: err}
	}
	return parsed, nil
}

// URL returns the endpoint a request is posted to.
func (t *Transport) URL(req *paynet.Request) string {
	return t.BaseURL + "/" + url.PathEscape(req.Method) + "/" + url.PathEscape(req.EndPoint)
}
