package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for transport failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidProxy indicates a malformed or unsupported proxy URL.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy")

	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy.
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")
)

// classify tags err with the matching sentinel, if any.
func classify(err error) error {
	var dnsErr *net.DNSError
	var recordErr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var certErr *tls.CertificateVerificationError
	switch {
	case errors.Is(err, ErrProxyConnect):
		return err
	case errors.As(err, &dnsErr):
		return fmt.Errorf("%w: %v", ErrDNS, err)
	case errors.As(err, &recordErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostErr), errors.As(err, &certErr):
		return fmt.Errorf("%w: %v", ErrTLS, err)
	}
	return err
}
