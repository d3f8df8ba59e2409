package recorder

import (
	"archivist/internal/models"
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	CommitMessagePrefixStartTracking = "Start tracking"
	CommitMessagePrefixRefilter      = "Refilter"
	CommitMessagePrefixUpdate        = "Update"

	snapshotReferencePhrase = "This version was recorded after filtering snapshot "
)

// CommitMessagePrefixesRegexp matches the subject of every commit that records a
// document version. Other commits (README, LICENSE…) are not versions.
var CommitMessagePrefixesRegexp = regexp.MustCompile(
	"^(" + CommitMessagePrefixStartTracking + "|" + CommitMessagePrefixRefilter + "|" + CommitMessagePrefixUpdate + ")\\b",
)

// Persistence is the backend representation of a record.
type Persistence struct {
	Content       []byte
	FileExtension string
	Message       string
}

// DataMapper translates records to commits and back.
type DataMapper struct {
	linkSnapshotID   bool
	snapshotIDPrefix string
}

func NewDataMapper(linkSnapshotID bool, snapshotIDPrefix string) *DataMapper {
	return &DataMapper{linkSnapshotID: linkSnapshotID, snapshotIDPrefix: snapshotIDPrefix}
}

// Category returns the commit message prefix that describes why the record
// was created.
func Category(record models.Record) string {
	switch {
	case record.First():
		return CommitMessagePrefixStartTracking
	case record.IsRefilter:
		return CommitMessagePrefixRefilter
	default:
		return CommitMessagePrefixUpdate
	}
}

// CategoryLabel is the metric-friendly form of Category.
func CategoryLabel(record models.Record) string {
	return strings.ToLower(strings.ReplaceAll(Category(record), " ", "_"))
}

func (m *DataMapper) ToPersistence(record models.Record) (Persistence, error) {
	extension, err := ExtensionFor(record.MimeType)
	if err != nil {
		return Persistence{}, err
	}

	message := fmt.Sprintf("%s %s %s", Category(record), record.ServiceID, record.DocumentType)
	if m.linkSnapshotID && record.SnapshotID != "" {
		message = fmt.Sprintf("%s\n\n%s%s%s", message, snapshotReferencePhrase, m.snapshotIDPrefix, record.SnapshotID)
	}

	return Persistence{
		Content:       record.Content,
		FileExtension: extension,
		Message:       message,
	}, nil
}

// ToDomain reads a commit back as a record without content.
func (m *DataMapper) ToDomain(commit models.Commit) (models.Record, error) {
	subject := commit.Subject()
	if !CommitMessagePrefixesRegexp.MatchString(subject) {
		return models.Record{}, &MalformedHistoryError{CommitID: commit.ID, Reason: fmt.Sprintf("unrecognized message %q", subject)}
	}
	if len(commit.Files) != 1 {
		return models.Record{}, &MalformedHistoryError{
			CommitID: commit.ID,
			Reason:   fmt.Sprintf("only one document should have been recorded, found %d: %v", len(commit.Files), commit.Files),
		}
	}

	serviceID, documentType, extension, err := splitFilePath(commit.Files[0])
	if err != nil {
		return models.Record{}, &MalformedHistoryError{CommitID: commit.ID, Reason: err.Error()}
	}

	return models.Record{
		ID:            commit.ID,
		ServiceID:     serviceID,
		DocumentType:  documentType,
		MimeType:      TypeForExtension(extension),
		FetchDate:     commit.Date.UTC(),
		IsFirstRecord: models.Bool(strings.HasPrefix(subject, CommitMessagePrefixStartTracking)),
		IsRefilter:    strings.HasPrefix(subject, CommitMessagePrefixRefilter),
		SnapshotID:    extractSnapshotID(commit.Body()),
	}, nil
}

// FilePath returns the path of the record file relative to the repository root.
func FilePath(serviceID, documentType, extension string) string {
	return path.Join(serviceID, documentType) + "." + extension
}

// RecordFilePath is FilePath for an existing record.
func RecordFilePath(record models.Record) (string, error) {
	extension, err := ExtensionFor(record.MimeType)
	if err != nil {
		return "", err
	}
	return FilePath(record.ServiceID, record.DocumentType, extension), nil
}

// LineagePattern matches every file a lineage may have been stored in,
// whatever its mime type.
func LineagePattern(serviceID, documentType string) string {
	return escapeGlob(path.Join(serviceID, documentType)) + ".*"
}

func splitFilePath(relPath string) (serviceID, documentType, extension string, err error) {
	serviceID, rest, found := strings.Cut(relPath, "/")
	if !found || serviceID == "" || rest == "" {
		return "", "", "", fmt.Errorf("path %q is not inside a service directory", relPath)
	}
	extension = path.Ext(rest)
	if extension == "" {
		return "", "", "", fmt.Errorf("path %q has no extension", relPath)
	}
	return serviceID, strings.TrimSuffix(rest, extension), strings.TrimPrefix(extension, "."), nil
}

// extractSnapshotID keeps the last path segment so that ids survive a change of
// the configured prefix.
func extractSnapshotID(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, snapshotReferencePhrase) {
			continue
		}
		reference := strings.TrimSpace(strings.TrimPrefix(line, snapshotReferencePhrase))
		return path.Base(reference)
	}
	return ""
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
