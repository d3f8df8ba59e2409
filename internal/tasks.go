package internal

import (
	"archivist/internal/archive"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/recorder/interfaces"
	"archivist/internal/services"
	"archivist/internal/structures"
	"context"
	"fmt"
)

// Tasks are the one-shot operations of the command line.
type Tasks struct {
	repository interfaces.RepositoryInterface
	service    services.TrackerServiceInterface
	exporter   *archive.Exporter
	conf       *structures.Config
	logger     providers.Logger
}

func NewTasks(repository interfaces.RepositoryInterface, service services.TrackerServiceInterface, exporter *archive.Exporter, conf *structures.Config, logger providers.Logger) *Tasks {
	return &Tasks{
		repository: repository,
		service:    service,
		exporter:   exporter,
		conf:       conf,
		logger:     logger,
	}
}

// Track records a new version of every configured document, or only of
// those of service when it is not empty.
func (t *Tasks) Track(ctx context.Context, service string) error {
	if service == "" {
		return t.service.TrackAll(ctx)
	}

	tracked := 0
	for _, doc := range t.conf.Tracker.Documents {
		if doc.Service != service {
			continue
		}
		tracked++
		if _, err := t.service.Track(ctx, doc); err != nil {
			return err
		}
	}
	if tracked == 0 {
		return fmt.Errorf("no document is configured for service %q", service)
	}
	return t.repository.Finalize(ctx)
}

// Export writes the archive to path, or to the configured export file when
// path is empty.
func (t *Tasks) Export(ctx context.Context, path string, verify bool) (int, error) {
	if path == "" {
		path = t.conf.Export.FilePath
	}
	if path == "" {
		return 0, fmt.Errorf("no export file given and export.filePath is not configured")
	}

	count, err := t.exporter.Export(ctx, path)
	if err != nil {
		return 0, err
	}
	if verify {
		if err := t.exporter.Verify(ctx, path); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// Refilter records content regenerated from the version id, then publishes
// it like a tracking run does.
func (t *Tasks) Refilter(ctx context.Context, id string, content []byte) (models.Result, error) {
	result, err := t.service.Refilter(ctx, id, content)
	if err != nil {
		return models.Result{}, err
	}
	switch result.Status {
	case models.StatusNotFound:
		return result, fmt.Errorf("no version %q", id)
	case models.StatusCreated:
		if err := t.repository.Finalize(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (t *Tasks) Count(ctx context.Context) (int, error) {
	return t.service.Count(ctx)
}

// Reset erases the whole version history.
func (t *Tasks) Reset(ctx context.Context) error {
	t.logger.Warnf(providers.TypeApp, "Erasing version history at %s", t.conf.Repository.Path)
	return t.repository.RemoveAll(ctx)
}

func (t *Tasks) Close() {
	t.exporter.Close()
	t.logger.Close()
}
