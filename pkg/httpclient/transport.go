package httpclient

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/pipeline"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// bodyless methods send their payload fields as query parameters.
var bodyless = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// TransportConfig configures a Transport.
type TransportConfig struct {
	// BaseURL is prefixed to every call path.
	BaseURL string
	// Headers are sent on every call; call headers win.
	Headers map[string]string
	// RateLimit is the maximum number of calls per second; zero disables
	// limiting.
	RateLimit float64
	Client    Config
	Logger    *zap.Logger
}

// Transport calls the target API over HTTP. It is safe for concurrent use.
type Transport struct {
	base    *url.URL
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ pipeline.Transport = (*Transport)(nil)

// NewTransport returns a Transport for cfg.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	client, err := New(cfg.Client)
	if err != nil {
		return nil, err
	}
	t := &Transport{
		base:    base,
		headers: cfg.Headers,
		client:  client,
		log:     cfg.Logger,
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	return t, nil
}

// Invoke performs call. Any HTTP status is a response; only failures
// below HTTP return an error.
func (t *Transport) Invoke(ctx context.Context, call pipeline.Call) (*pipeline.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	method := strings.ToUpper(call.Method)
	target := t.url(method, call)
	var body io.Reader
	if !bodyless[method] && call.Payload != "" {
		body = strings.NewReader(call.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, defaults.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	elapsed := time.Since(start)
	log := t.log
	if tr := registry.FromContext(ctx); tr != nil {
		log = log.With(zap.Int64("test_id", tr.ID()))
	}
	log.Debug("call completed",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed))

	return &pipeline.Response{
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Headers:    flattenHeaders(resp.Header),
		Duration:   elapsed,
		URL:        target,
	}, nil
}

// url joins the base URL, the call path and its query. Bodyless calls
// carry flat payload fields as query parameters.
func (t *Transport) url(method string, call pipeline.Call) string {
	u := *t.base
	u.Path = t.base.Path + call.Path
	q := url.Values{}
	if bodyless[method] {
		for k, v := range payloadParams(call.Payload) {
			q.Set(k, v)
		}
	}
	for k, v := range call.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// payloadParams returns the scalar top-level fields of a JSON object.
func payloadParams(payload string) map[string]string {
	root, err := jsonutil.Decode(payload)
	if err != nil {
		return nil
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch v.(type) {
		case map[string]any, []any, nil:
			continue
		}
		out[k] = jsonutil.Stringify(v)
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		out[k] = strings.Join(h[k], ", ")
	}
	return out
}
