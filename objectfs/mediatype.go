package objectfs

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionTable covers the common cases cheaply; uploads (contentTypeForName)
// fall back to application/octet-stream for anything else (§4.11 "Content
// type for uploads"). contentTypeForBytes adds gabriel-vasile/mimetype's
// magic-byte sniffing before that fallback.
var extensionTable = map[string]string{ //nolint:gochecknoglobals
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

const defaultContentType = "application/octet-stream"

// contentTypeForName resolves a content type from a file name's extension,
// falling back to defaultContentType. It is the function the upload path
// uses; no bytes are sniffed.
func contentTypeForName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := extensionTable[ext]; ok {
		return ct
	}

	return defaultContentType
}

// contentTypeForBytes resolves a content type from the extension table and,
// when the extension is unknown, by sniffing head; with no head bytes it
// returns defaultContentType. The upload path does not call it.
func contentTypeForBytes(name string, head []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := extensionTable[ext]; ok {
		return ct
	}

	if len(head) == 0 {
		return defaultContentType
	}

	return mimetype.Detect(head).String()
}
