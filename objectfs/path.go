// Package objectfs implements the production VirtualFileSystem: an FTP
// virtual filesystem mapped onto an HTTP object store (an S3-compatible
// bucket plus a tus-style resumable upload side channel).
package objectfs

import (
	"fmt"
	"regexp"
	"strings"
)

var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-_]*[a-z0-9]$|^[a-z0-9]$`)

// splitRoot parses a "bucketName[/prefix]" root string, validating the
// bucket name per §4.11.
func splitRoot(root string) (bucket, prefix string, err error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" || trimmed == "/" {
		return "", "", fmt.Errorf("%w: root must not be empty or \"/\"", ErrInvalidRoot)
	}

	parts := strings.SplitN(strings.TrimPrefix(trimmed, "/"), "/", 2)
	bucket = parts[0]

	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}

	if len(bucket) < 1 || len(bucket) > 63 || !bucketNameRegex.MatchString(bucket) {
		return "", "", fmt.Errorf("%w: invalid bucket name %q", ErrInvalidRoot, bucket)
	}

	if prefix != "" {
		prefix += "/"
	}

	return bucket, prefix, nil
}

// hasInvalidPathChars matches §4.11's chdir rejection rule: "<", ">", ":",
// `"`, "|", "?", "*", or any C0 control character.
func hasInvalidPathChars(path string) bool {
	for _, r := range path {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return true
		}

		if r < 0x20 {
			return true
		}
	}

	return false
}

// fsKey produces the object-store key for a clientPath ("/" for root,
// otherwise an absolute, already dot-collapsed path). The result never
// carries a leading slash and always lives under prefix (I7).
func (fs *FileSystem) fsKey(clientPath string) string {
	if clientPath == "/" {
		return strings.TrimSuffix(fs.prefix, "/")
	}

	return fs.prefix + strings.TrimPrefix(clientPath, "/")
}

// placeholderName is the marker object used to represent an otherwise-empty
// directory, per §4.11 mkdir/list/delete.
const placeholderName = ".emptyFolderPlaceholder"

func placeholderKey(dirKey string) string {
	if dirKey == "" {
		return placeholderName
	}

	return dirKey + "/" + placeholderName
}

func baseName(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}

	return key
}
