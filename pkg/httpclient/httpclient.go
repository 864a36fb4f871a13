// Package httpclient builds the HTTP client used to call the target API
// and adapts it to pipeline.Transport.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 30s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 20)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// UserAgent is sent on requests that do not set their own.
	UserAgent string

	// RetryCount retries transport errors and 429/503 responses.
	RetryCount int

	// RetryDelay is the pause between retries.
	RetryDelay time.Duration
}

// DefaultConfig returns the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.HTTPRequest,
		MaxIdleConns:    defaults.MaxIdleConns,
		MaxConnsPerHost: defaults.MaxConnsPerHost,
		IdleConnTimeout: duration.IdleConn,
		DialTimeout:     duration.Dial,
		UserAgent:       defaults.UserAgent,
		RetryDelay:      duration.RetryDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxConnsPerHost == 0 {
		c.MaxConnsPerHost = d.MaxConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = d.IdleConnTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}

// New creates an HTTP client from cfg. Redirects are never followed so
// the oracle sees the redirect response itself.
func New(cfg Config) (*http.Client, error) {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec // opt-in for test environments
	}

	proxyCfg, err := ParseProxyURL(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	switch {
	case proxyCfg.IsSOCKS():
		d, err := SOCKSDialer(proxyCfg, cfg.DialTimeout)
		if err != nil {
			return nil, err
		}
		transport.DialContext = d.DialContext
	case proxyCfg != nil:
		transport.Proxy = http.ProxyURL(proxyCfg.URL)
	}

	rt := &middlewareTransport{
		base:       transport,
		userAgent:  cfg.UserAgent,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}
