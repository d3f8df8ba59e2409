package services

import (
	"archivist/internal/fetcher"
	"archivist/internal/models"
	"archivist/internal/recorder"
	"archivist/internal/structures"
	"archivist/internal/testutil"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerFixture struct {
	service *TrackerService
	backend *testutil.MemoryBackend
	fetcher *testutil.MockFetcher
	cache   *testutil.MockCache
	metrics *testutil.MockMetrics
	logger  *testutil.MockLogger
}

var documents = []structures.TrackedDocument{
	{Service: "svc-a", Type: "terms", URL: "https://a.example.com/terms"},
	{Service: "svc-a", Type: "privacy", URL: "https://a.example.com/privacy"},
	{Service: "svc-b", Type: "terms", URL: "https://b.example.com/terms.pdf"},
}

func newFixture(t *testing.T, publish bool) *trackerFixture {
	t.Helper()
	conf := &structures.Config{
		Repository: structures.RepositoryConfig{Publish: publish},
		Tracker:    structures.TrackerConfig{Concurrency: 2, Documents: documents},
	}

	f := &trackerFixture{
		backend: testutil.NewMemoryBackend(t.TempDir()),
		fetcher: testutil.NewMockFetcher(),
		cache:   testutil.NewMockCache(),
		metrics: testutil.NewMockMetrics(),
		logger:  &testutil.MockLogger{},
	}
	repo := recorder.NewGitRepository(f.backend, conf, f.logger)
	require.NoError(t, repo.Initialize(context.Background()))

	f.service = NewTrackerService(conf, repo, f.fetcher, f.cache, &testutil.MockCompressor{}, f.metrics, f.logger).(*TrackerService)

	var mu sync.Mutex
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Hour)
		return clock
	}
	return f
}

func TestTrack_RecordsChanges(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	doc := documents[0]

	f.fetcher.Set(doc.URL, "text/html; charset=utf-8", []byte("<p>v1</p>"))
	first, err := f.service.Track(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, models.StatusCreated, first.Status)
	assert.True(t, first.Record.First())
	assert.Equal(t, "text/html", first.Record.MimeType)

	unchanged, err := f.service.Track(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoChange, unchanged.Status)

	f.fetcher.Set(doc.URL, "text/html", []byte("<p>v2</p>"))
	second, err := f.service.Track(ctx, doc)
	require.NoError(t, err)
	require.Equal(t, models.StatusCreated, second.Status)
	assert.False(t, second.Record.First())
	assert.True(t, second.Record.FetchDate.After(first.Record.FetchDate))

	assert.Equal(t, map[string]int{"start_tracking": 1, "update": 1}, f.metrics.Recorded)
	assert.Equal(t, 1, f.metrics.Unchanged)
	assert.Equal(t, 3, f.metrics.SaveDurations)
}

func TestTrack_FetchError(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.Track(context.Background(), documents[0])
	require.Error(t, err)

	var fetchErr *fetcher.FetchDocumentError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.Status)
	assert.Equal(t, 1, f.metrics.FetchErrors["svc-a"])
	assert.Equal(t, 1, f.logger.Count("error"))
	assert.Zero(t, f.metrics.SaveDurations)
}

func TestTrack_UnsupportedMimeType(t *testing.T) {
	f := newFixture(t, false)
	doc := documents[0]
	f.fetcher.Set(doc.URL, "application/x-archivist-unknown", []byte("?"))

	_, err := f.service.Track(context.Background(), doc)
	assert.ErrorIs(t, err, recorder.ErrUnsupportedMimeType)
}

func TestTrackAll(t *testing.T) {
	f := newFixture(t, true)
	f.fetcher.Set(documents[0].URL, "text/plain", []byte("terms"))
	f.fetcher.Set(documents[2].URL, "application/pdf", []byte("%PDF-1.4\n\xe2\xe3\xcf\xd3"))

	err := f.service.TrackAll(context.Background())
	require.Error(t, err)

	var fetchErr *fetcher.FetchDocumentError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, documents[1].URL, fetchErr.URL)

	assert.ElementsMatch(t, []string{documents[0].URL, documents[1].URL, documents[2].URL}, f.fetcher.Calls)
	assert.Equal(t, 2, f.metrics.Recorded["start_tracking"])
	assert.Equal(t, 1, f.metrics.FetchErrors["svc-a"])
	assert.Equal(t, 1, f.backend.Pushes)
	assert.Equal(t, 2, f.metrics.VersionsTotal)
}

func TestTrackAll_PublishFailure(t *testing.T) {
	f := newFixture(t, true)
	for _, doc := range documents {
		f.fetcher.Set(doc.URL, "text/plain", []byte(doc.URL))
	}
	f.backend.PushErr = errors.New("remote rejected")

	err := f.service.TrackAll(context.Background())
	assert.ErrorIs(t, err, f.backend.PushErr)
	assert.Equal(t, 3, f.metrics.VersionsTotal)
}

func TestRefilter(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	doc := documents[0]

	f.fetcher.Set(doc.URL, "text/markdown", []byte("# Terms\n\nTracking pixel"))
	source, err := f.service.Track(ctx, doc)
	require.NoError(t, err)

	refiltered, err := f.service.Refilter(ctx, source.Record.ID, []byte("# Terms"))
	require.NoError(t, err)
	require.Equal(t, models.StatusCreated, refiltered.Status)
	assert.True(t, refiltered.Record.IsRefilter)
	assert.False(t, refiltered.Record.First())
	assert.Equal(t, source.Record.ID, refiltered.Record.SnapshotID)
	assert.Equal(t, source.Record.FetchDate, refiltered.Record.FetchDate)
	assert.Equal(t, 1, f.metrics.Recorded["refilter"])

	again, err := f.service.Refilter(ctx, source.Record.ID, []byte("# Terms"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoChange, again.Status)

	missing, err := f.service.Refilter(ctx, "unknown", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, missing.Status)
}

func TestVersion_UsesCache(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	doc := documents[0]

	f.fetcher.Set(doc.URL, "text/plain", []byte("terms"))
	saved, err := f.service.Track(ctx, doc)
	require.NoError(t, err)

	first, err := f.service.Version(ctx, saved.Record.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFound, first.Status)
	assert.Contains(t, f.cache.Data, "version:"+saved.Record.ID)
	showCalls := len(f.backend.ShowCalls)

	second, err := f.service.Version(ctx, saved.Record.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFound, second.Status)
	assert.Equal(t, *first.Record, *second.Record)
	assert.Len(t, f.backend.ShowCalls, showCalls)
}

func TestVersion_NotFoundIsNotCached(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.service.Version(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, result.Status)
	assert.Empty(t, f.cache.Data)
}

func TestVersion_IgnoresCorruptCacheEntry(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	doc := documents[0]

	f.fetcher.Set(doc.URL, "text/plain", []byte("terms"))
	saved, err := f.service.Track(ctx, doc)
	require.NoError(t, err)
	f.cache.Set("version:"+saved.Record.ID, []byte("{"))

	result, err := f.service.Version(ctx, saved.Record.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFound, result.Status)
	assert.Equal(t, "terms", result.Record.Text())
	assert.Equal(t, 1, f.logger.Count("warn"))
}

func TestVersion_CompressorFailureSkipsCache(t *testing.T) {
	f := newFixture(t, false)
	f.service.compressor = &testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("encoder closed") },
	}
	ctx := context.Background()
	doc := documents[0]

	f.fetcher.Set(doc.URL, "text/plain", []byte("terms"))
	saved, err := f.service.Track(ctx, doc)
	require.NoError(t, err)

	result, err := f.service.Version(ctx, saved.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFound, result.Status)
	assert.Empty(t, f.cache.Data)
}

func TestReadOperations(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for _, doc := range documents {
		f.fetcher.Set(doc.URL, "text/plain", []byte(doc.Type))
		_, err := f.service.Track(ctx, doc)
		require.NoError(t, err)
	}

	versions, err := f.service.Versions(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 3)

	count, err := f.service.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	latest, err := f.service.Latest(ctx, "svc-b", "terms")
	require.NoError(t, err)
	require.Equal(t, models.StatusFound, latest.Status)
	assert.Equal(t, "terms", latest.Record.Text())

	missing, err := f.service.Latest(ctx, "svc-c", "terms")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, missing.Status)
}
