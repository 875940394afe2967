// Package transport implements the "fetch a JSON resource" capability used by
// EPG providers: one GET with fixed headers and a bounded timeout, rate limited
// and guarded by a circuit breaker. It never retries; every failure comes back
// as a *FetchError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stwalsh4118/epgrab/internal/logger"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 16 << 20
)

// Fetcher fetches a JSON document
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, params url.Values) ([]byte, error)
}

// Options configures an HTTPFetcher. Zero values fall back to defaults.
type Options struct {
	Timeout time.Duration
	Headers http.Header
	// RateLimit is the sustained request rate per second. 0 disables limiting.
	RateLimit float64
	RateBurst int
	// CircuitThreshold is the number of consecutive failures that opens the
	// circuit. 0 disables the breaker.
	CircuitThreshold int
	CircuitReset     time.Duration
	// Client may be nil.
	Client *http.Client
}

// HTTPFetcher is the net/http implementation of Fetcher
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	headers http.Header
	limiter *rate.Limiter
	breaker *CircuitBreaker
	log     zerolog.Logger
}

// New creates an HTTPFetcher from opts
func New(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return &HTTPFetcher{
		client:  client,
		timeout: opts.Timeout,
		headers: opts.Headers.Clone(),
		limiter: limiter,
		breaker: NewCircuitBreaker(opts.CircuitThreshold, opts.CircuitReset),
		log:     logger.With("transport"),
	}
}

// Breaker exposes the circuit breaker for health reporting
func (f *HTTPFetcher) Breaker() *CircuitBreaker {
	return f.breaker
}

// DefaultHeaders returns the request headers the LG U+ guide API expects from its app client
func DefaultHeaders(userAgent, unityVersion, acceptLanguage, referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	if unityVersion != "" {
		h.Set("X-Unity-Version", unityVersion)
	}
	h.Set("Accept", "*/*")
	if acceptLanguage != "" {
		h.Set("Accept-Language", acceptLanguage)
	}
	h.Set("Accept-Encoding", "gzip, deflate, br")
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

// FetchJSON GETs rawURL with params appended to its query and returns the raw
// JSON body. The returned error is always a *FetchError.
func (f *HTTPFetcher) FetchJSON(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Detail: "invalid url", Cause: err}
	}

	if err := f.breaker.Allow(); err != nil {
		return nil, &FetchError{Kind: KindCircuitOpen, URL: target, Cause: err}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: classifyTransportErr(err), URL: target, Detail: "rate limiter", Cause: err}
		}
	}

	body, err := f.get(ctx, target)
	f.breaker.Record(err)
	if err != nil {
		f.log.Debug().Err(err).Str("url", target).Msg("Upstream fetch failed")
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: target, Cause: err}
	}
	for k, v := range f.headers {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransportErr(err), URL: target, Cause: err}
	}
	defer resp.Body.Close()

	r, err := decodedBody(resp)
	if err != nil {
		return nil, &FetchError{Kind: KindNotJSON, URL: target, StatusCode: resp.StatusCode, Cause: err}
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Kind: classifyTransportErr(err), URL: target, StatusCode: resp.StatusCode, Detail: "read body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if looksLikeHTML(data) {
			return nil, &FetchError{Kind: KindBlocked, URL: target, StatusCode: resp.StatusCode, Detail: pageTitle(data)}
		}
		return nil, &FetchError{Kind: KindStatus, URL: target, StatusCode: resp.StatusCode}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &FetchError{Kind: KindEmpty, URL: target, StatusCode: resp.StatusCode}
	}
	if !json.Valid(trimmed) {
		if looksLikeHTML(trimmed) {
			return nil, &FetchError{Kind: KindBlocked, URL: target, StatusCode: resp.StatusCode, Detail: pageTitle(trimmed)}
		}
		return nil, &FetchError{Kind: KindNotJSON, URL: target, StatusCode: resp.StatusCode}
	}
	return trimmed, nil
}

func withParams(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("url must be absolute")
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func classifyTransportErr(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
