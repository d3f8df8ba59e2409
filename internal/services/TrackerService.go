package services

import (
	archiveInterfaces "archivist/internal/archive/interfaces"
	"archivist/internal/fetcher"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/recorder"
	"archivist/internal/recorder/interfaces"
	"archivist/internal/structures"
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const versionCacheKeyPrefix = "version:"

type TrackerServiceInterface interface {
	Track(ctx context.Context, doc structures.TrackedDocument) (models.Result, error)
	TrackAll(ctx context.Context) error
	Refilter(ctx context.Context, id string, content []byte) (models.Result, error)
	Versions(ctx context.Context) ([]models.Record, error)
	Version(ctx context.Context, id string) (models.Result, error)
	Latest(ctx context.Context, serviceID, documentType string) (models.Result, error)
	Count(ctx context.Context) (int, error)
}

type TrackerService struct {
	repository  interfaces.RepositoryInterface
	fetcher     fetcher.FetcherInterface
	cache       providers.CacheProviderInterface
	compressor  archiveInterfaces.CompressorInterface
	metrics     providers.MetricsProviderInterface
	logger      providers.Logger
	documents   []structures.TrackedDocument
	concurrency int
	now         func() time.Time
}

func NewTrackerService(
	conf *structures.Config,
	repository interfaces.RepositoryInterface,
	fetcher fetcher.FetcherInterface,
	cache providers.CacheProviderInterface,
	compressor archiveInterfaces.CompressorInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) TrackerServiceInterface {
	concurrency := conf.Tracker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &TrackerService{
		repository:  repository,
		fetcher:     fetcher,
		cache:       cache,
		compressor:  compressor,
		metrics:     metrics,
		logger:      logger,
		documents:   conf.Tracker.Documents,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Track fetches one document and records it when its content changed.
func (ts *TrackerService) Track(ctx context.Context, doc structures.TrackedDocument) (models.Result, error) {
	fetchDate := ts.now()

	document, err := ts.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		ts.metrics.IncFetchErrors(doc.Service)
		ts.logger.Errorf(providers.TypeFetcher, "Could not fetch %s %s: %s", doc.Service, doc.Type, err)
		return models.Result{}, fmt.Errorf("track %s %s: %w", doc.Service, doc.Type, err)
	}

	return ts.record(ctx, models.Record{
		ServiceID:    doc.Service,
		DocumentType: doc.Type,
		MimeType:     recorder.NormalizeMimeType(document.MimeType),
		FetchDate:    fetchDate,
		Content:      document.Content,
	})
}

// TrackAll tracks every configured document. A failing document does not
// stop the others; all failures are returned together.
func (ts *TrackerService) TrackAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ts.concurrency)

	errs := make([]error, len(ts.documents))
	for i, doc := range ts.documents {
		g.Go(func() error {
			_, errs[i] = ts.Track(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()

	if err := ts.repository.Finalize(ctx); err != nil {
		ts.logger.Errorf(providers.TypeRecorder, "Could not publish versions: %s", err)
		errs = append(errs, err)
	}

	if count, err := ts.repository.Count(ctx); err != nil {
		ts.logger.Warnf(providers.TypeRecorder, "Could not count versions: %s", err)
	} else {
		ts.metrics.SetVersionsTotal(count)
	}

	return errors.Join(errs...)
}

// Refilter records content regenerated from an existing version. The new
// version keeps the date of its source and references it.
func (ts *TrackerService) Refilter(ctx context.Context, id string, content []byte) (models.Result, error) {
	source, err := ts.repository.FindByID(ctx, id)
	if err != nil {
		return models.Result{}, err
	}
	if !source.Ok() {
		return source, nil
	}

	return ts.record(ctx, models.Record{
		ServiceID:    source.Record.ServiceID,
		DocumentType: source.Record.DocumentType,
		MimeType:     source.Record.MimeType,
		FetchDate:    source.Record.FetchDate,
		Content:      content,
		IsRefilter:   true,
		SnapshotID:   source.Record.ID,
	})
}

func (ts *TrackerService) record(ctx context.Context, record models.Record) (models.Result, error) {
	start := time.Now()
	result, err := ts.repository.Save(ctx, record)
	ts.metrics.ObserveSaveDuration(time.Since(start))
	if err != nil {
		ts.logger.Errorf(providers.TypeRecorder, "Could not record %s %s: %s", record.ServiceID, record.DocumentType, err)
		return models.Result{}, err
	}

	switch result.Status {
	case models.StatusCreated:
		ts.metrics.IncVersionsRecorded(recorder.CategoryLabel(*result.Record))
		ts.logger.Infof(providers.TypeRecorder, "%s %s %s: recorded version %s",
			recorder.Category(*result.Record), record.ServiceID, record.DocumentType, result.Record.ID)
	case models.StatusNoChange:
		ts.metrics.IncUnchanged()
		ts.logger.Debugf(providers.TypeRecorder, "No changes for %s %s", record.ServiceID, record.DocumentType)
	}
	return result, nil
}

func (ts *TrackerService) Versions(ctx context.Context) ([]models.Record, error) {
	return ts.repository.FindAll(ctx)
}

// Version serves committed versions from the cache: they never change.
// Entries are compressed since they carry the document content.
func (ts *TrackerService) Version(ctx context.Context, id string) (models.Result, error) {
	key := versionCacheKeyPrefix + id
	if data, ok := ts.cache.Get(key); ok {
		if record, err := ts.decodeCached(data); err == nil {
			return models.Found(record), nil
		}
		ts.logger.Warnf(providers.TypeApp, "Dropping undecodable cache entry %s", key)
	}

	result, err := ts.repository.FindByID(ctx, id)
	if err != nil || !result.Ok() {
		return result, err
	}

	if data, err := ts.encodeCached(*result.Record); err == nil {
		ts.cache.Set(key, data)
	} else {
		ts.logger.Warnf(providers.TypeApp, "Could not cache version %s: %s", id, err)
	}
	return result, nil
}

func (ts *TrackerService) encodeCached(record models.Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return ts.compressor.Compress(data)
}

func (ts *TrackerService) decodeCached(data []byte) (models.Record, error) {
	var record models.Record
	raw, err := ts.compressor.Decompress(data)
	if err != nil {
		return record, err
	}
	err = json.Unmarshal(raw, &record)
	return record, err
}

func (ts *TrackerService) Latest(ctx context.Context, serviceID, documentType string) (models.Result, error) {
	return ts.repository.FindLatest(ctx, serviceID, documentType)
}

func (ts *TrackerService) Count(ctx context.Context) (int, error) {
	return ts.repository.Count(ctx)
}
