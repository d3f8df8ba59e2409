package recorder

import (
	"fmt"
	"mime"
	"strings"
)

type mimeEntry struct {
	mimeType  string
	extension string
	binary    bool
}

// The table fixes the persisted file name of every supported type, so it is
// never completed from the host mime registry. Listed first wins when several
// types share an extension.
var mimeEntries = []mimeEntry{
	{"text/html", "html", false},
	{"text/markdown", "md", false},
	{"text/plain", "txt", false},
	{"text/csv", "csv", false},
	{"application/pdf", "pdf", true},
	{"application/json", "json", false},
	{"application/xml", "xml", false},
	{"text/xml", "xml", false},
	{"application/xhtml+xml", "xhtml", false},
	{"application/msword", "doc", true},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx", true},
	{"application/vnd.oasis.opendocument.text", "odt", true},
	{"application/rtf", "rtf", false},
	{"text/css", "css", false},
	{"image/svg+xml", "svg", false},
	{"image/png", "png", true},
	{"image/jpeg", "jpg", true},
	{"image/gif", "gif", true},
}

// NormalizeMimeType drops parameters such as charset.
func NormalizeMimeType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

// ExtensionFor returns the file extension, without dot, used to store
// content of the given mime type.
func ExtensionFor(mimeType string) (string, error) {
	mediaType := NormalizeMimeType(mimeType)
	for _, e := range mimeEntries {
		if e.mimeType == mediaType {
			return e.extension, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMimeType, mimeType)
}

// TypeForExtension returns the mime type of a stored file extension, or an
// empty string when it is not in the table.
func TypeForExtension(extension string) string {
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))
	for _, e := range mimeEntries {
		if e.extension == extension {
			return e.mimeType
		}
	}
	return ""
}

// IsBinary reports whether content of this type cannot survive a text-mode
// read from the backend. Unknown types are treated as binary.
func IsBinary(mimeType string) bool {
	mediaType := NormalizeMimeType(mimeType)
	for _, e := range mimeEntries {
		if e.mimeType == mediaType {
			return e.binary
		}
	}
	return !strings.HasPrefix(mediaType, "text/")
}
