package recorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"text/html":                "html",
		"text/html; charset=UTF-8": "html",
		"TEXT/PLAIN":               "txt",
		"text/markdown":            "md",
		"application/pdf":          "pdf",
		"application/xml":          "xml",
		"text/xml":                 "xml",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	}

	for mimeType, want := range tests {
		got, err := ExtensionFor(mimeType)
		require.NoError(t, err, mimeType)
		assert.Equal(t, want, got, mimeType)
	}

	// known to most host registries, but not stored
	for _, mimeType := range []string{"application/x-archivist-unknown", "application/zip", "audio/mpeg"} {
		_, err := ExtensionFor(mimeType)
		assert.ErrorIs(t, err, ErrUnsupportedMimeType, mimeType)
	}
}

func TestTypeForExtension(t *testing.T) {
	assert.Equal(t, "text/html", TypeForExtension("html"))
	assert.Equal(t, "text/html", TypeForExtension(".HTML"))
	assert.Equal(t, "application/pdf", TypeForExtension("pdf"))
	assert.Equal(t, "application/xml", TypeForExtension("xml"))
	assert.Equal(t, "image/jpeg", TypeForExtension("jpg"))
	assert.Equal(t, "", TypeForExtension("archivist-unknown"))
	assert.Equal(t, "", TypeForExtension("zip"))
}

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("application/pdf"))
	assert.True(t, IsBinary("application/msword"))
	assert.True(t, IsBinary("application/octet-stream"))
	assert.False(t, IsBinary("text/html; charset=utf-8"))
	assert.False(t, IsBinary("application/json"))
	assert.False(t, IsBinary("text/x-unknown"))
}
