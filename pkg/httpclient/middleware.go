package httpclient

import (
	"io"
	"net/http"
	"time"
)

// middlewareTransport sets the User-Agent and retries transport errors
// and 429/503 responses.
type middlewareTransport struct {
	base       http.RoundTripper
	userAgent  string
	retryCount int
	retryDelay time.Duration
}

var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// RoundTrip implements http.RoundTripper.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if m.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", m.userAgent)
	}

	attempts := max(m.retryCount+1, 1)
	var resp *http.Response
	var err error
	for i := range attempts {
		if i > 0 {
			select {
			case <-r.Context().Done():
				return nil, r.Context().Err()
			case <-time.After(m.retryDelay):
			}
			if r.GetBody != nil {
				r.Body, _ = r.GetBody()
			}
		}

		resp, err = m.base.RoundTrip(r)
		if err != nil {
			continue
		}
		if retryableStatusCodes[resp.StatusCode] && i < attempts-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return resp, err
}
