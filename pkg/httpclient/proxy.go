package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Supported proxy schemes. socks5h resolves names on the proxy side.
var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ProxyConfig is a parsed proxy URL.
type ProxyConfig struct {
	URL      *url.URL
	Scheme   string
	Host     string
	Port     string
	Username string
	Password string
}

// ParseProxyURL validates and parses a proxy URL. An empty string means
// no proxy and returns nil, nil. A URL without scheme defaults to http.
func ParseProxyURL(raw string) (*ProxyConfig, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q, supported: http, https, socks5, socks5h", ErrInvalidProxy, scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}

	cfg := &ProxyConfig{URL: parsed, Scheme: scheme, Host: parsed.Hostname(), Port: parsed.Port()}
	if cfg.Port == "" {
		switch scheme {
		case "http":
			cfg.Port = "8080"
		case "https":
			cfg.Port = "8443"
		default:
			cfg.Port = "1080"
		}
	}
	if parsed.User != nil {
		cfg.Username = parsed.User.Username()
		cfg.Password, _ = parsed.User.Password()
	}
	return cfg, nil
}

// IsSOCKS reports whether the proxy speaks SOCKS5.
func (p *ProxyConfig) IsSOCKS() bool {
	return p != nil && (p.Scheme == "socks5" || p.Scheme == "socks5h")
}

// Address returns the proxy address in host:port format
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer dials with a context.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// timeoutDialer bounds SOCKS dials, which carry no timeout of their own.
type timeoutDialer struct {
	dialer  proxy.ContextDialer
	timeout time.Duration
}

func (t *timeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	conn, err := t.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
	}
	return conn, nil
}

// SOCKSDialer returns a dialer tunnelling every connection through cfg.
func SOCKSDialer(cfg *ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	if !cfg.IsSOCKS() {
		return nil, fmt.Errorf("%w: not a SOCKS proxy", ErrInvalidProxy)
	}
	u := &url.URL{Scheme: cfg.Scheme, Host: cfg.Address()}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: dialer for %s does not support contexts", ErrInvalidProxy, cfg.Scheme)
	}
	return &timeoutDialer{dialer: cd, timeout: timeout}, nil
}
