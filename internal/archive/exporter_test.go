package archive

import (
	"archivist/internal/models"
	"archivist/internal/recorder"
	"archivist/internal/structures"
	"archivist/internal/testutil"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfPayload = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n\x00\x01\xff\n%%EOF")

func newTestRepository(t *testing.T) (*recorder.GitRepository, *testutil.MemoryBackend) {
	t.Helper()
	backend := testutil.NewMemoryBackend(t.TempDir())
	repo := recorder.NewGitRepository(backend, &structures.Config{}, &testutil.MockLogger{})
	require.NoError(t, repo.Initialize(context.Background()))
	return repo, backend
}

func seed(t *testing.T, repo *recorder.GitRepository) []models.Record {
	t.Helper()
	date := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	inputs := []models.Record{
		{ServiceID: "svc-a", DocumentType: "terms", MimeType: "text/plain", FetchDate: date, Content: []byte("v1")},
		{ServiceID: "svc-b", DocumentType: "privacy", MimeType: "application/pdf", FetchDate: date.Add(time.Hour), Content: pdfPayload},
		{ServiceID: "svc-a", DocumentType: "terms", MimeType: "text/plain", FetchDate: date.Add(2 * time.Hour), Content: []byte("v2")},
	}

	var saved []models.Record
	for _, input := range inputs {
		result, err := repo.Save(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, models.StatusCreated, result.Status)
		saved = append(saved, *result.Record)
	}
	return saved
}

func TestExporter_ExportAndRead(t *testing.T) {
	repo, _ := newTestRepository(t)
	saved := seed(t, repo)

	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	exporter := NewExporter(repo, compressor, &testutil.MockLogger{})
	defer exporter.Close()

	path := filepath.Join(t.TempDir(), "exports", "versions.jsonl.zst")
	count, err := exporter.Export(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	records, err := exporter.Read(path)
	require.NoError(t, err)
	assert.Equal(t, saved, records)

	require.NoError(t, exporter.Verify(context.Background(), path))
}

func TestExporter_EmptyStore(t *testing.T) {
	repo, _ := newTestRepository(t)
	exporter := NewExporter(repo, &testutil.MockCompressor{}, &testutil.MockLogger{})

	path := filepath.Join(t.TempDir(), "versions.jsonl")
	count, err := exporter.Export(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, count)

	records, err := exporter.Read(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExporter_WritesJSONLines(t *testing.T) {
	repo, _ := newTestRepository(t)
	seed(t, repo)
	exporter := NewExporter(repo, &testutil.MockCompressor{}, &testutil.MockLogger{})

	path := filepath.Join(t.TempDir(), "versions.jsonl")
	_, err := exporter.Export(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, countLines(data))
	assert.Contains(t, string(data), `"service_id":"svc-a"`)
}

func TestExporter_KeepsPreviousArchiveOnFailure(t *testing.T) {
	repo, backend := newTestRepository(t)
	seed(t, repo)
	exporter := NewExporter(repo, &testutil.MockCompressor{}, &testutil.MockLogger{})

	path := filepath.Join(t.TempDir(), "versions.jsonl")
	_, err := exporter.Export(context.Background(), path)
	require.NoError(t, err)
	previous, err := os.ReadFile(path)
	require.NoError(t, err)

	backend.RestoreErr = func(_, _ string) error { return errors.New("checkout failed") }
	_, err = exporter.Export(context.Background(), path)
	require.Error(t, err)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, previous, current)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExporter_CompressorFailure(t *testing.T) {
	repo, _ := newTestRepository(t)
	exporter := NewExporter(repo, &testutil.MockCompressor{WriterErr: errors.New("no encoder")}, &testutil.MockLogger{})

	path := filepath.Join(t.TempDir(), "versions.jsonl")
	_, err := exporter.Export(context.Background(), path)
	assert.Error(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestExporter_VerifyDetectsStaleArchive(t *testing.T) {
	repo, _ := newTestRepository(t)
	seed(t, repo)
	exporter := NewExporter(repo, &testutil.MockCompressor{}, &testutil.MockLogger{})

	path := filepath.Join(t.TempDir(), "versions.jsonl")
	_, err := exporter.Export(context.Background(), path)
	require.NoError(t, err)

	_, err = repo.Save(context.Background(), models.Record{
		ServiceID: "svc-c", DocumentType: "terms", MimeType: "text/plain",
		FetchDate: time.Now(), Content: []byte("new"),
	})
	require.NoError(t, err)

	assert.Error(t, exporter.Verify(context.Background(), path))
}

func TestExporter_ReadCorruptArchive(t *testing.T) {
	exporter := NewExporter(nil, &testutil.MockCompressor{}, &testutil.MockLogger{})
	path := filepath.Join(t.TempDir(), "versions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"a"}`+"\n{broken"), 0644))

	_, err := exporter.Read(path)
	assert.Error(t, err)
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
