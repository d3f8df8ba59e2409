// Package archive exports the version history to compressed archives and
// schedules periodic tracking.
package archive

import (
	"archivist/internal/archive/interfaces"
	"archivist/internal/models"
	"archivist/internal/providers"
	recorderInterfaces "archivist/internal/recorder/interfaces"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// Exporter writes every version, content included, as one JSON document per
// line in a compressed archive.
type Exporter struct {
	repository recorderInterfaces.RepositoryInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewExporter(repository recorderInterfaces.RepositoryInterface, compressor interfaces.CompressorInterface, logger providers.Logger) *Exporter {
	return &Exporter{
		repository: repository,
		compressor: compressor,
		logger:     logger,
	}
}

// Export replaces fileName atomically and returns the number of exported
// versions. Versions are streamed one at a time.
func (e *Exporter) Export(ctx context.Context, fileName string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return 0, err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return 0, err
	}

	count, err := e.write(ctx, file)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpFile)
		return 0, err
	}

	if err := os.Rename(tmpFile, fileName); err != nil {
		os.Remove(tmpFile)
		return 0, err
	}

	e.logger.Infof(providers.TypeApp, "Exported %d versions to %s", count, fileName)
	return count, nil
}

func (e *Exporter) write(ctx context.Context, w io.Writer) (int, error) {
	zw, err := e.compressor.Writer(w)
	if err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(zw)
	count := 0
	for record, err := range e.repository.Iterate(ctx) {
		if err != nil {
			zw.Close()
			return 0, fmt.Errorf("export version %d: %w", count+1, err)
		}
		if err := encoder.Encode(record); err != nil {
			zw.Close()
			return 0, fmt.Errorf("encode version %s: %w", record.ID, err)
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}
	return count, nil
}

// Read decodes an archive written by Export.
func (e *Exporter) Read(fileName string) ([]models.Record, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zr, err := e.compressor.Reader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var records []models.Record
	decoder := json.NewDecoder(zr)
	for {
		var record models.Record
		err := decoder.Decode(&record)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s at version %d: %w", fileName, len(records)+1, err)
		}
		records = append(records, record)
	}
}

// Verify checks that the archive holds as many versions as the store.
func (e *Exporter) Verify(ctx context.Context, fileName string) error {
	records, err := e.Read(fileName)
	if err != nil {
		return err
	}
	count, err := e.repository.Count(ctx)
	if err != nil {
		return err
	}
	if len(records) != count {
		return fmt.Errorf("archive %s holds %d versions, the store holds %d", fileName, len(records), count)
	}
	return nil
}

func (e *Exporter) Close() {
	e.compressor.Close()
}
