// Package memfs is a local-disk VirtualFileSystem backed by spf13/afero,
// used by the tests and by cmd/objectftpd's memfs dev mode: a cheap
// stand-in for objectfs that exercises the
// protocol engine (C1-C8, C10-C11) without a real object store, mirroring
// the teacher's own afero-backed TestClientDriver.
package memfs

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/bucketftp/ftpserver"
)

// FileSystem implements ftpserver.VirtualFileSystem over an afero.Fs rooted
// at a base directory, the way the teacher's tests root a TestClientDriver
// at a temp directory via afero.NewBasePathFs.
type FileSystem struct {
	fs afero.Fs
}

// New roots a FileSystem at dir, creating it if necessary.
func New(dir string) (*FileSystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create root %q: %w", dir, err)
	}

	return &FileSystem{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewFromAfero wraps an arbitrary afero.Fs directly, used by tests that
// want an in-memory afero.MemMapFs instead of real disk.
func NewFromAfero(fs afero.Fs) *FileSystem {
	return &FileSystem{fs: fs}
}

func (m *FileSystem) Chdir(_ context.Context, clientPath string) (string, error) {
	info, err := m.fs.Stat(clientPath)
	if err != nil {
		return "", fmt.Errorf("directory does not exist: %q", clientPath)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %q", clientPath)
	}

	return clientPath, nil
}

func (m *FileSystem) List(_ context.Context, clientPath string, showHidden bool) ([]ftpserver.FileEntry, error) {
	infos, err := afero.ReadDir(m.fs, clientPath)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", clientPath, err)
	}

	entries := make([]ftpserver.FileEntry, 0, len(infos))

	for _, info := range infos {
		if !showHidden && strings.HasPrefix(info.Name(), ".") {
			continue
		}

		entries = append(entries, entryFromInfo(info))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

func entryFromInfo(info os.FileInfo) ftpserver.FileEntry {
	kind := ftpserver.KindFile
	if info.IsDir() {
		kind = ftpserver.KindDirectory
	}

	return ftpserver.FileEntry{
		Name:      info.Name(),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		Mode:      info.Mode(),
		MediaType: contentTypeForName(info.Name()),
		Kind:      kind,
	}
}

func (m *FileSystem) Get(_ context.Context, clientPath string) (ftpserver.FileEntry, error) {
	info, err := m.fs.Stat(clientPath)
	if err != nil {
		return ftpserver.FileEntry{}, fmt.Errorf("no such file or directory: %q", clientPath)
	}

	if clientPath == "/" {
		return ftpserver.FileEntry{Name: "/", ModTime: info.ModTime(), Mode: info.Mode(), Kind: ftpserver.KindDirectory}, nil
	}

	return entryFromInfo(info), nil
}

func (m *FileSystem) Read(_ context.Context, clientPath string, start int64) (io.ReadCloser, error) {
	file, err := m.fs.Open(clientPath)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", clientPath, err)
	}

	if start > 0 {
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			file.Close()

			return nil, fmt.Errorf("seek %q to %d: %w", clientPath, start, err)
		}
	}

	return file, nil
}

func (m *FileSystem) Write(_ context.Context, clientPath string, opts ftpserver.WriteOptions) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE

	if opts.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := m.fs.OpenFile(clientPath, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %q for write: %w", clientPath, err)
	}

	if !opts.Append && opts.Start > 0 {
		if _, err := file.Seek(opts.Start, io.SeekStart); err != nil {
			file.Close()

			return nil, fmt.Errorf("seek %q to %d: %w", clientPath, opts.Start, err)
		}
	}

	return file, nil
}

func (m *FileSystem) Delete(_ context.Context, clientPath string) error {
	if err := m.fs.RemoveAll(clientPath); err != nil {
		return fmt.Errorf("delete %q: %w", clientPath, err)
	}

	return nil
}

func (m *FileSystem) Mkdir(_ context.Context, clientPath string) error {
	if err := m.fs.MkdirAll(clientPath, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", clientPath, err)
	}

	return nil
}

func (m *FileSystem) Rename(_ context.Context, fromPath, toPath string) error {
	if err := m.fs.Rename(fromPath, toPath); err != nil {
		return fmt.Errorf("rename %q to %q: %w", fromPath, toPath, err)
	}

	return nil
}

func (m *FileSystem) Chmod(_ context.Context, clientPath string, mode os.FileMode) error {
	if err := m.fs.Chmod(clientPath, mode); err != nil {
		return fmt.Errorf("chmod %q: %w", clientPath, err)
	}

	return nil
}

func (m *FileSystem) GetUniqueName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	rnd := strconv.FormatInt(rand.Int63(), 36) //nolint:gosec

	return fmt.Sprintf("%s_%s_%s%s", base, ts, rnd, ext)
}

// GetAvailableSpace implements ftpserver.VirtualFileSystemExtensionAvailableSpace.
// It always returns -1: free space on the backing mount is not reported.
func (m *FileSystem) GetAvailableSpace(_ context.Context, _ string) (int64, error) {
	return -1, nil
}

var extensionTable = map[string]string{ //nolint:gochecknoglobals
	".txt":  "text/plain",
	".html": "text/html",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
}

func contentTypeForName(name string) string {
	if ct, ok := extensionTable[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}

	return "application/octet-stream"
}
