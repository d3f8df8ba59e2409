package testutil

import (
	"archivist/internal/fetcher"
	"archivist/internal/providers"
	"context"
	"io"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns the number of entries logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable
// behavior. Without overrides it stores data uncompressed.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	WriterErr    error
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Writer(w io.Writer) (io.WriteCloser, error) {
	if m.WriterErr != nil {
		return nil, m.WriterErr
	}
	return nopWriteCloser{w}, nil
}

func (m *MockCompressor) Reader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (m *MockCompressor) Close() {}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// MockFetcher serves documents by URL.
type MockFetcher struct {
	mu        sync.Mutex
	Documents map[string]fetcher.Document
	Errors    map[string]error
	Calls     []string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Documents: make(map[string]fetcher.Document), Errors: make(map[string]error)}
}

func (m *MockFetcher) Set(url, mimeType string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[url] = fetcher.Document{MimeType: mimeType, Content: content}
}

func (m *MockFetcher) Fetch(_ context.Context, url string) (fetcher.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, url)
	if err, ok := m.Errors[url]; ok {
		return fetcher.Document{}, err
	}
	doc, ok := m.Documents[url]
	if !ok {
		return fetcher.Document{}, &fetcher.FetchDocumentError{URL: url, Status: 404}
	}
	return doc, nil
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu            sync.Mutex
	Recorded      map[string]int
	Unchanged     int
	FetchErrors   map[string]int
	SaveDurations int
	VersionsTotal int
	CacheHits     int
	CacheMisses   int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Recorded: make(map[string]int), FetchErrors: make(map[string]int)}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncVersionsRecorded(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded[category]++
}

func (m *MockMetrics) IncUnchanged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unchanged++
}

func (m *MockMetrics) IncFetchErrors(service string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors[service]++
}

func (m *MockMetrics) ObserveSaveDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveDurations++
}

func (m *MockMetrics) SetVersionsTotal(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VersionsTotal = count
}
