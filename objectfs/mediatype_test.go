package objectfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentTypeForName(t *testing.T) {
	require.Equal(t, "text/plain", contentTypeForName("readme.txt"))
	require.Equal(t, "image/png", contentTypeForName("photo.PNG"))
	require.Equal(t, defaultContentType, contentTypeForName("noext"))
}

func TestContentTypeForBytesSniffsWhenExtensionUnknown(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

	require.Equal(t, "image/png", contentTypeForBytes("blob.bin", pngHeader))
}

func TestContentTypeForBytesPrefersExtensionTable(t *testing.T) {
	require.Equal(t, "text/plain", contentTypeForBytes("notes.txt", []byte{0x89, 'P', 'N', 'G'}))
}

func TestContentTypeForBytesFallsBackWithNoHead(t *testing.T) {
	require.Equal(t, defaultContentType, contentTypeForBytes("noext", nil))
}
