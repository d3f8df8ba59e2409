// Package recorder stores document versions in an append-only version-control
// history. Commit ids are used as opaque record ids.
package recorder

import (
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/recorder/interfaces"
	"archivist/internal/structures"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// GitRepository is the versioned document store.
//
// The backend working tree is shared by every lineage: saves and binary
// reads, which both rewrite it, hold the write lock. Other reads use
// version-scoped backend reads and only hold the read lock.
type GitRepository struct {
	backend interfaces.BackendInterface
	mapper  *DataMapper
	publish bool
	logger  providers.Logger
	mu      sync.RWMutex
}

func NewGitRepository(backend interfaces.BackendInterface, conf *structures.Config, logger providers.Logger) *GitRepository {
	return &GitRepository{
		backend: backend,
		mapper:  NewDataMapper(conf.Repository.LinkSnapshotID, conf.Repository.SnapshotIDPrefix),
		publish: conf.Repository.Publish,
		logger:  logger,
	}
}

// Initialize drops uncommitted changes and leftover files, which may be
// present if the process was killed while writing.
func (r *GitRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize repository %s: %w", r.backend.Path(), err)
	}
	if err := r.backend.CleanUp(ctx); err != nil {
		return fmt.Errorf("clean up repository %s: %w", r.backend.Path(), err)
	}
	return nil
}

// Save records a new version of the record lineage. The returned result is
// NoChange when the content equals the latest version. The given record is
// never modified.
func (r *GitRepository) Save(ctx context.Context, record models.Record) (models.Result, error) {
	if err := validateRecord(record); err != nil {
		return models.Result{}, err
	}

	// versions are dated to the second
	record.FetchDate = record.FetchDate.Truncate(time.Second).UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if record.IsFirstRecord == nil {
		tracked, err := r.backend.IsTracked(ctx, LineagePattern(record.ServiceID, record.DocumentType))
		if err != nil {
			return models.Result{}, fmt.Errorf("check history of %s %s: %w", record.ServiceID, record.DocumentType, err)
		}
		record.IsFirstRecord = models.Bool(!tracked)
	}

	if !record.HasContent() {
		if record.ID == "" {
			return models.Result{}, fmt.Errorf("%w: no content to save for %s %s", ErrInvalidRecord, record.ServiceID, record.DocumentType)
		}
		loaded, err := r.loadContent(ctx, record)
		if err != nil {
			return models.Result{}, err
		}
		record = loaded
	}

	persistence, err := r.mapper.ToPersistence(record)
	if err != nil {
		return models.Result{}, err
	}

	relPath := FilePath(record.ServiceID, record.DocumentType, persistence.FileExtension)
	if err := r.writeFile(relPath, persistence.Content); err != nil {
		return models.Result{}, &PersistenceError{Op: "write", Path: relPath, Err: err}
	}

	id, err := r.commit(ctx, relPath, persistence.Message, record)
	if err != nil {
		return models.Result{}, err
	}
	if id == "" {
		return models.NoChange(), nil
	}

	record.ID = id
	return models.Created(record), nil
}

// Finalize publishes committed versions when the repository is configured to.
func (r *GitRepository) Finalize(ctx context.Context) error {
	if !r.publish {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.backend.Push(ctx); err != nil {
		return fmt.Errorf("publish versions: %w", err)
	}
	return nil
}

func (r *GitRepository) FindLatest(ctx context.Context, serviceID, documentType string) (models.Result, error) {
	r.mu.RLock()
	commit, err := r.backend.LatestCommit(ctx, LineagePattern(serviceID, documentType))
	r.mu.RUnlock()
	if err != nil {
		return models.Result{}, fmt.Errorf("find latest %s %s: %w", serviceID, documentType, err)
	}

	return r.toDomain(ctx, commit)
}

// FindByID returns NotFound for unknown ids and for commits that are not
// document versions.
func (r *GitRepository) FindByID(ctx context.Context, id string) (models.Result, error) {
	r.mu.RLock()
	commit, err := r.backend.CommitByID(ctx, id)
	r.mu.RUnlock()
	if err != nil {
		return models.Result{}, fmt.Errorf("find version %s: %w", id, err)
	}

	return r.toDomain(ctx, commit)
}

// FindAll returns every version in ascending chronological order, without
// content.
func (r *GitRepository) FindAll(ctx context.Context) ([]models.Record, error) {
	return r.listRecords(ctx)
}

// Iterate yields every version in ascending chronological order, loading
// content one record at a time. The returned sequence can be ranged over
// once; call Iterate again to restart from the current history.
func (r *GitRepository) Iterate(ctx context.Context) iter.Seq2[models.Record, error] {
	var consumed atomic.Bool

	return func(yield func(models.Record, error) bool) {
		if consumed.Swap(true) {
			yield(models.Record{}, ErrStreamConsumed)
			return
		}

		records, err := r.listRecords(ctx)
		if err != nil {
			yield(models.Record{}, err)
			return
		}

		for _, record := range records {
			if err := ctx.Err(); err != nil {
				yield(models.Record{}, err)
				return
			}
			loaded, err := r.LoadRecordContent(ctx, record)
			if !yield(loaded, err) || err != nil {
				return
			}
		}
	}
}

func (r *GitRepository) Count(ctx context.Context) (int, error) {
	records, err := r.listRecords(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// RemoveAll irreversibly erases the whole history.
func (r *GitRepository) RemoveAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.DestroyHistory(ctx); err != nil {
		return fmt.Errorf("remove all versions: %w", err)
	}
	return nil
}

// LoadRecordContent returns a copy of the record with the content of its
// version attached.
func (r *GitRepository) LoadRecordContent(ctx context.Context, record models.Record) (models.Record, error) {
	if IsBinary(record.MimeType) {
		r.mu.Lock()
		defer r.mu.Unlock()
	} else {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	return r.loadContent(ctx, record)
}

// loadContent expects the caller to hold the write lock for binary types.
func (r *GitRepository) loadContent(ctx context.Context, record models.Record) (models.Record, error) {
	relPath, err := RecordFilePath(record)
	if err != nil {
		return models.Record{}, err
	}

	if !IsBinary(record.MimeType) {
		text, err := r.backend.Show(ctx, record.ID, relPath)
		if err != nil {
			return models.Record{}, fmt.Errorf("read %s at %s: %w", relPath, record.ID, err)
		}
		record.Content = []byte(text)
		return record, nil
	}

	// Text-mode reads do not keep the original bytes of binary files, so the
	// file is materialized in the working tree and read from disk instead.
	content, err := r.readFromWorkingTree(ctx, relPath, record.ID)
	if err != nil {
		return models.Record{}, err
	}
	record.Content = content
	return record, nil
}

// readFromWorkingTree checks out relPath at id, reads it and always restores
// the working copy to the latest version. A failed restore is returned even
// when the read succeeded: the working tree is then in an unknown state.
func (r *GitRepository) readFromWorkingTree(ctx context.Context, relPath, id string) (content []byte, err error) {
	defer func() {
		if restoreErr := r.backend.Restore(context.WithoutCancel(ctx), relPath, interfaces.HEAD); restoreErr != nil {
			content = nil
			err = errors.Join(err, &PersistenceError{Op: "restore", Path: relPath, Err: restoreErr})
		}
	}()

	if err := r.backend.Restore(ctx, relPath, id); err != nil {
		return nil, fmt.Errorf("check out %s at %s: %w", relPath, id, err)
	}

	content, err = os.ReadFile(r.absolutePath(relPath))
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", relPath, id, err)
	}
	return content, nil
}

func (r *GitRepository) listRecords(ctx context.Context) ([]models.Record, error) {
	r.mu.RLock()
	commits, err := r.backend.SearchCommits(ctx, CommitMessagePrefixesRegexp)
	r.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	// Backend listings are most recent first and are not trusted to be
	// chronological: reverse, then sort by date keeping commit order on ties.
	slices.Reverse(commits)
	slices.SortStableFunc(commits, func(a, b models.Commit) int {
		return a.Date.Compare(b.Date)
	})

	records := make([]models.Record, 0, len(commits))
	for _, commit := range commits {
		record, err := r.mapper.ToDomain(commit)
		if err != nil {
			var malformed *MalformedHistoryError
			if errors.As(err, &malformed) {
				r.logger.Warnf(providers.TypeRecorder, "Skipping commit: %s", err)
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *GitRepository) toDomain(ctx context.Context, commit *models.Commit) (models.Result, error) {
	if commit == nil {
		return models.NotFound(), nil
	}

	record, err := r.mapper.ToDomain(*commit)
	if err != nil {
		var malformed *MalformedHistoryError
		if errors.As(err, &malformed) {
			r.logger.Warnf(providers.TypeRecorder, "Ignoring commit: %s", err)
			return models.NotFound(), nil
		}
		return models.Result{}, err
	}

	record, err = r.LoadRecordContent(ctx, record)
	if err != nil {
		return models.Result{}, err
	}
	return models.Found(record), nil
}

func (r *GitRepository) writeFile(relPath string, content []byte) error {
	filePath := r.absolutePath(relPath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, content, 0644)
}

func (r *GitRepository) commit(ctx context.Context, relPath, message string, record models.Record) (string, error) {
	if err := r.backend.Add(ctx, relPath); err != nil {
		return "", &PersistenceError{Op: "stage", Path: relPath, Err: err}
	}

	id, err := r.backend.Commit(ctx, relPath, message, record.FetchDate)
	if err != nil {
		err = fmt.Errorf("message %q: %w", message, err)
		// leave the index as it was before this save
		if unstageErr := r.backend.Unstage(context.WithoutCancel(ctx), relPath); unstageErr != nil {
			err = errors.Join(err, fmt.Errorf("unstage: %w", unstageErr))
		}
		return "", &PersistenceError{Op: "commit", Path: relPath, Err: err}
	}
	return id, nil
}

func (r *GitRepository) absolutePath(relPath string) string {
	return filepath.Join(r.backend.Path(), filepath.FromSlash(relPath))
}

func validateRecord(record models.Record) error {
	switch {
	case record.ServiceID == "" || record.DocumentType == "":
		return fmt.Errorf("%w: service id and document type are required", ErrInvalidRecord)
	case strings.ContainsAny(record.ServiceID, `/\`) || strings.HasPrefix(record.ServiceID, "."):
		return fmt.Errorf("%w: service id %q is not a valid directory name", ErrInvalidRecord, record.ServiceID)
	case slices.Contains(strings.Split(record.DocumentType, "/"), "..") || strings.HasPrefix(record.DocumentType, "/"):
		return fmt.Errorf("%w: document type %q escapes its service directory", ErrInvalidRecord, record.DocumentType)
	case record.MimeType == "":
		return fmt.Errorf("%w: mime type is required", ErrInvalidRecord)
	case record.FetchDate.IsZero():
		return fmt.Errorf("%w: fetch date is required", ErrInvalidRecord)
	}
	return nil
}
