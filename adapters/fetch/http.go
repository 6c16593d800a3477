// Package fetch retrieves source images over HTTP(S).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goware/urlx"
	"github.com/rcrowley/go-metrics"

	"github.com/Skryldev/image-toolkit/config"
	"github.com/Skryldev/image-toolkit/core"
	apperrors "github.com/Skryldev/image-toolkit/errors"
	"github.com/Skryldev/image-toolkit/utils"
)

var DefaultTimeout = 20 * time.Second

// HTTPFetcher downloads one image per call.
type HTTPFetcher struct {
	Client *http.Client

	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64 // 0 = unlimited
	ChunkSize int

	Logger core.Logger
}

// Response is a fetched body with the normalised URL it came from.
type Response struct {
	URL         *url.URL
	Status      int
	ContentType string
	Data        []byte
}

// NewHTTPFetcher builds a fetcher from the fetch section of cfg.
func NewHTTPFetcher(cfg config.Config) *HTTPFetcher {
	f := &HTTPFetcher{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		MaxBytes:  cfg.MaxImageBytes,
		ChunkSize: cfg.ChunkSize,
		Logger:    core.NopLogger{},
	}
	if f.Timeout <= 0 {
		f.Timeout = DefaultTimeout
	}
	return f
}

// IsURL reports whether s looks like an http(s) URL rather than a path.
func IsURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Normalize parses rawURL with urlx (scheme defaults to http) and returns
// the normalised form.
func Normalize(rawURL string) (*url.URL, error) {
	u, err := urlx.Parse(rawURL)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryFetch, "fetch.parse",
			fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	norm, err := urlx.Normalize(u)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryFetch, "fetch.parse",
			fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	return url.Parse(norm)
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	f.Client = &http.Client{
		Timeout: f.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   f.Timeout,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: f.Timeout,
			MaxIdleConnsPerHost:   2,
		},
	}
	return f.Client
}

// Fetch downloads rawURL.  Non-2xx responses and bodies over MaxBytes fail
// with a fetch-category error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	const op = "fetch"
	m := metrics.GetOrRegisterTimer("fetch.http", nil)
	defer m.UpdateSince(time.Now())

	u, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	log := f.Logger
	if log == nil {
		log = core.NopLogger{}
	}
	log.Debug("fetch.start", "url", u.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperrors.New(apperrors.CategoryFetch, op, fmt.Errorf("%w: %v", apperrors.ErrFetchFailed, err))
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		log.Warn("fetch.failed", "url", u.String(), "error", err.Error())
		return nil, apperrors.New(apperrors.CategoryFetch, op, fmt.Errorf("%w: %w", apperrors.ErrFetchFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.New(apperrors.CategoryFetch, op,
			fmt.Errorf("%w: %s returned %d", apperrors.ErrFetchFailed, u, resp.StatusCode))
	}

	data, err := utils.ReadAll(ctx, resp.Body, f.MaxBytes, f.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrLimitExceeded) {
			return nil, apperrors.New(apperrors.CategoryFetch, op,
				fmt.Errorf("%w: body exceeds %d bytes", apperrors.ErrImageTooLarge, f.MaxBytes))
		}
		return nil, apperrors.New(apperrors.CategoryFetch, op, fmt.Errorf("%w: %w", apperrors.ErrFetchFailed, err))
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CategoryFetch, op,
			fmt.Errorf("%w: %w", apperrors.ErrFetchFailed, apperrors.ErrEmptyInput))
	}

	log.Info("fetch.done", "url", u.String(), "status", resp.StatusCode, "bytes", len(data))
	return &Response{
		URL:         u,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
