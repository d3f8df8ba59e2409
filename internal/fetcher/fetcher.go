package fetcher

import (
	"archivist/internal/structures"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 45 * time.Second
	defaultLanguage = "en"
	maxDocumentSize = 64 << 20
)

var ErrDocumentTooLarge = errors.New("document is too large")

type Document struct {
	MimeType string
	Content  []byte
}

type FetcherInterface interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// FetchDocumentError is returned for every failed fetch. Status is set when
// the server answered with a non-2xx code.
type FetchDocumentError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchDocumentError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("received HTTP code %d when trying to fetch %q", e.Status, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("could not fetch %q: %s", e.URL, e.Err)
	default:
		return fmt.Sprintf("could not fetch %q", e.URL)
	}
}

func (e *FetchDocumentError) Unwrap() error {
	return e.Err
}

type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	language  string
	userAgent string
	maxSize   int64
}

// NewFetcher uses HTTP_PROXY and HTTPS_PROXY from the environment.
func NewFetcher(conf *structures.Config) FetcherInterface {
	timeout := conf.Fetcher.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	language := conf.Fetcher.Language
	if language == "" {
		language = defaultLanguage
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment

	return &HTTPFetcher{
		client:    &http.Client{Transport: transport},
		timeout:   timeout,
		language:  language,
		userAgent: conf.Fetcher.UserAgent,
		maxSize:   maxDocumentSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, &FetchDocumentError{URL: url, Err: err}
	}
	req.Header.Set("Accept-Language", f.language)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, f.wrap(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Document{}, &FetchDocumentError{URL: url, Status: resp.StatusCode}
	}

	if resp.ContentLength > f.maxSize {
		return Document{}, f.tooLarge(url)
	}
	// one byte over the limit tells a truncated body from a complete one
	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return Document{}, f.wrap(url, err)
	}
	if int64(len(content)) > f.maxSize {
		return Document{}, f.tooLarge(url)
	}

	return Document{
		MimeType: resp.Header.Get("Content-Type"),
		Content:  content,
	}, nil
}

func (f *HTTPFetcher) tooLarge(url string) error {
	return &FetchDocumentError{URL: url, Err: fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, f.maxSize)}
}

func (f *HTTPFetcher) wrap(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("the request timed out after %s: %w", f.timeout, err)
	}
	return &FetchDocumentError{URL: url, Err: err}
}
