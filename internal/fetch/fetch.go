// Package fetch downloads images by URL or decodes them from data URIs.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/kozaktomas/photo-grouper/internal/config"
)

var (
	ErrTooLarge          = errors.New("response body too large")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrInvalidDataURI    = errors.New("invalid data URI")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: status %d", e.URL, e.Code)
}

// Resource is a downloaded payload.
type Resource struct {
	Data        []byte
	ContentType string
}

// Fetcher downloads images with a per-attempt timeout and bounded retries.
// Network errors, 429 and 5xx responses are retried; everything else fails fast.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	maxBytes int64
	logger   hclog.Logger
}

// New builds a fetcher from cfg.
func New(cfg config.FetchConfig, logger hclog.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{},
		timeout:  cfg.Timeout,
		retries:  cfg.Retries,
		backoff:  cfg.Backoff,
		maxBytes: cfg.MaxBytes,
		logger:   logger.Named("fetch"),
	}
}

// Fetch returns the bytes behind rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Download returns the payload and its content type. data: URIs are decoded
// in place without any network access.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (*Resource, error) {
	rawURL = strings.TrimSpace(rawURL)
	if IsDataURI(rawURL) {
		res, err := ParseDataURI(rawURL)
		if err != nil {
			return nil, err
		}
		if f.maxBytes > 0 && int64(len(res.Data)) > f.maxBytes {
			return nil, fmt.Errorf("%w: data URI holds %d bytes", ErrTooLarge, len(res.Data))
		}
		return res, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.backoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(f.retries, 0))), ctx)

	var res *Resource
	attempt := 0
	op := func() error {
		attempt++
		r, err := f.get(ctx, rawURL)
		if err != nil {
			if retryable(ctx, err) {
				return err
			}
			return backoff.Permanent(err)
		}
		res = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return res, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*Resource, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", "photo-grouper")

	resp, err := f.client.Do(req) //nolint:gosec // fetching caller supplied URLs is the purpose of this package
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, f.maxBytes)
	}

	return &Resource{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// IsDataURI reports whether s uses the data: scheme.
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// ParseDataURI decodes "data:[<mediatype>][;base64],<data>".
func ParseDataURI(s string) (*Resource, error) {
	if !IsDataURI(s) {
		return nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	meta, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing comma", ErrInvalidDataURI)
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	contentType := meta
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
		}
		return &Resource{Data: []byte(decoded), ContentType: contentType}, nil
	}

	data, err := DecodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return &Resource{Data: data, ContentType: contentType}, nil
}

// DecodeBase64 accepts standard or URL-safe base64, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("\n", "", "\r", "", " ", "").Replace(s)
	encodings := []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("decoding base64: %w", lastErr)
}
