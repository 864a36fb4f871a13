package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/pipeline"
	"github.com/waftester/contractfuzz/pkg/registry"
)

func TestParseProxyURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantErr   bool
		wantNil   bool
		scheme    string
		address   string
		wantSOCKS bool
		user      string
	}{
		{name: "empty", input: "", wantNil: true},
		{name: "http", input: "http://proxy.example.com:3128", scheme: "http", address: "proxy.example.com:3128"},
		{name: "no scheme defaults to http", input: "proxy.example.com", scheme: "http", address: "proxy.example.com:8080"},
		{name: "socks5h default port", input: "socks5h://p.example.com", scheme: "socks5h", address: "p.example.com:1080", wantSOCKS: true},
		{name: "credentials", input: "socks5://bob:pw@p.example.com:9050", scheme: "socks5", address: "p.example.com:9050", wantSOCKS: true, user: "bob"},
		{name: "socks4 unsupported", input: "socks4://p.example.com:1080", wantErr: true},
		{name: "missing host", input: "http://:8080", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := ParseProxyURL(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProxy)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cfg)
				return
			}
			assert.Equal(t, tt.scheme, cfg.Scheme)
			assert.Equal(t, tt.address, cfg.Address())
			assert.Equal(t, tt.wantSOCKS, cfg.IsSOCKS())
			assert.Equal(t, tt.user, cfg.Username)
		})
	}
}

func TestNewWithProxies(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Proxy: "socks5://127.0.0.1:1080"})
	require.NoError(t, err)
	_, err = New(Config{Proxy: "http://127.0.0.1:8080"})
	require.NoError(t, err)
	_, err = New(Config{Proxy: "ftp://127.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidProxy)
}

func TestTransportInvokeWithBody(t *testing.T) {
	t.Parallel()

	var got struct {
		method, path, query, body, ua, auth, ctype string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method, got.path, got.query, got.body = r.Method, r.URL.Path, r.URL.RawQuery, string(b)
		got.ua, got.auth, got.ctype = r.UserAgent(), r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		w.Header().Set("X-Request-Id", "42")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	tr, err := NewTransport(TransportConfig{
		BaseURL: srv.URL + "/api/",
		Headers: map[string]string{"Authorization": "Bearer t"},
	})
	require.NoError(t, err)

	resp, err := tr.Invoke(context.Background(), pipeline.Call{
		Path:    "/pets",
		Method:  "post",
		Headers: map[string]string{"Content-Type": "application/json"},
		Payload: `{"name":"Rex"}`,
		Query:   map[string]string{"dryRun": "true"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":7}`, resp.Body)
	assert.Equal(t, "42", resp.Headers["X-Request-Id"])
	assert.Equal(t, srv.URL+"/api/pets?dryRun=true", resp.URL)

	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/api/pets", got.path)
	assert.Equal(t, `{"name":"Rex"}`, got.body)
	assert.Equal(t, defaults.UserAgent, got.ua)
	assert.Equal(t, "Bearer t", got.auth)
	assert.Equal(t, "application/json", got.ctype)
}

func TestTransportBodylessCallsUseQuery(t *testing.T) {
	t.Parallel()

	var query, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		query, body = r.URL.RawQuery, string(b)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr, err := NewTransport(TransportConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	resp, err := tr.Invoke(context.Background(), pipeline.Call{
		Path:    "/pets/1",
		Method:  http.MethodGet,
		Payload: `{"verbose":true,"limit":10,"nested":{"a":1}}`,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "error statuses are responses, not faults")
	assert.Equal(t, "limit=10&verbose=true", query)
	assert.Empty(t, body)
}

func TestTransportFaults(t *testing.T) {
	t.Parallel()

	_, err := NewTransport(TransportConfig{BaseURL: "not a url"})
	require.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	tr, err := NewTransport(TransportConfig{BaseURL: addr, Client: Config{Timeout: time.Second}})
	require.NoError(t, err)
	_, err = tr.Invoke(context.Background(), pipeline.Call{Path: "/", Method: "GET"})
	require.Error(t, err)
}

func TestTransportRetriesRetryableStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, err := NewTransport(TransportConfig{BaseURL: srv.URL, Client: Config{RetryCount: 2}})
	require.NoError(t, err)
	resp, err := tr.Invoke(context.Background(), pipeline.Call{Path: "/", Method: "GET"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransportRateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, err := NewTransport(TransportConfig{BaseURL: srv.URL, RateLimit: 0.001})
	require.NoError(t, err)

	_, err = tr.Invoke(context.Background(), pipeline.Call{Path: "/", Method: "GET"})
	require.NoError(t, err, "the first call uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Invoke(ctx, pipeline.Call{Path: "/", Method: "GET"})
	require.Error(t, err)
}

func TestTransportLogsTestIDAndKeepsLargeNumbers(t *testing.T) {
	t.Parallel()

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	tr, err := NewTransport(TransportConfig{BaseURL: srv.URL, Logger: zap.New(core)})
	require.NoError(t, err)

	reg := registry.New(registry.Config{})
	tracker := reg.Begin("CustomFuzzer")
	ctx := registry.WithTracker(context.Background(), tracker)

	_, err = tr.Invoke(ctx, pipeline.Call{
		Path:    "/pets",
		Method:  "GET",
		Payload: `{"id":12345678901234567891}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "id=12345678901234567891", query)

	entries := logs.FilterMessage("call completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, tracker.ID(), entries[0].ContextMap()["test_id"])
}
