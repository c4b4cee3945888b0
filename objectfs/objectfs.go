package objectfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	log "github.com/fclairamb/go-log"

	"github.com/bucketftp/ftpserver"
)

// presignTTL is the signed-URL lifetime §4.11 read specifies.
const presignTTL = 30 * time.Second

// listPageSize bounds a single directory listing, per §4.11 list.
const listPageSize = 1000

// Config describes how to reach the backing object store.
type Config struct {
	Root            string // "bucketName[/prefix]"
	Region          string
	Endpoint        string // non-empty for S3-compatible services other than AWS
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool

	// ResumableUploadURL is the endpoint POSTed to in order to create a
	// resumable upload session (§4.11 write).
	ResumableUploadURL string
	HTTPTransport      http.RoundTripper
	Logger             log.Logger
}

// FileSystem is the production VirtualFileSystem (C9): it maps FTP virtual
// paths onto object-store keys under a configured bucket+prefix root and
// drives every operation through objectStore/resumableUploader.
type FileSystem struct {
	store    objectStore
	uploader *resumableUploader
	bucket   string
	prefix   string
	client   *http.Client
	logger   log.Logger
}

// New builds a FileSystem from Config, validating the root per §4.11.
func New(ctx context.Context, cfg Config) (*FileSystem, error) {
	bucket, prefix, err := splitRoot(cfg.Root)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}

		o.UsePathStyle = cfg.UsePathStyle
	})

	transport := cfg.HTTPTransport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &FileSystem{
		store:    newS3Store(client, bucket),
		uploader: newResumableUploader(cfg.ResumableUploadURL, bucket, transport),
		bucket:   bucket,
		prefix:   prefix,
		client:   &http.Client{Transport: transport},
		logger:   cfg.Logger,
	}, nil
}

func (fs *FileSystem) Chdir(ctx context.Context, clientPath string) (string, error) {
	if hasInvalidPathChars(clientPath) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, clientPath)
	}

	if clientPath == "/" {
		return "/", nil
	}

	key := fs.fsKey(clientPath)

	entries, err := fs.store.List(ctx, key+"/", "", 1)
	if err != nil || len(entries) == 0 {
		return "", fmt.Errorf("directory does not exist: %q", clientPath)
	}

	return clientPath, nil
}

func (fs *FileSystem) List(ctx context.Context, clientPath string, showHidden bool) ([]ftpserver.FileEntry, error) {
	key := fs.fsKey(clientPath)

	prefix := key
	if prefix != "" {
		prefix += "/"
	}

	raw, err := fs.store.List(ctx, prefix, "", listPageSize)
	if err != nil {
		return nil, err
	}

	entries := make([]ftpserver.FileEntry, 0, len(raw))

	for _, obj := range raw {
		name := baseName(strings.TrimSuffix(obj.Key, "/"))
		if name == "" || name == placeholderName {
			continue
		}

		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}

		if obj.IsDir {
			modTime := fs.subdirModTime(ctx, strings.TrimSuffix(obj.Key, "/"))
			entries = append(entries, ftpserver.FileEntry{
				Name:    name,
				ModTime: modTime,
				Mode:    os.ModeDir | 0o755,
				Kind:    ftpserver.KindDirectory,
			})

			continue
		}

		entries = append(entries, ftpserver.FileEntry{
			Name:      name,
			Size:      obj.Size,
			ModTime:   obj.ModTime,
			Mode:      0o644,
			MediaType: contentTypeForName(name),
			Kind:      ftpserver.KindFile,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

// subdirModTime recovers a sub-directory's mtime from its placeholder
// object, best-effort, falling back to now (§4.11 list).
func (fs *FileSystem) subdirModTime(ctx context.Context, dirKey string) time.Time {
	entries, err := fs.store.List(ctx, dirKey+"/"+placeholderName, "", 1)
	if err != nil || len(entries) == 0 {
		return time.Now()
	}

	return entries[0].ModTime
}

func (fs *FileSystem) Get(ctx context.Context, clientPath string) (ftpserver.FileEntry, error) {
	if clientPath == "/" || clientPath == "." {
		return ftpserver.FileEntry{Name: "/", ModTime: time.Now(), Mode: os.ModeDir | 0o755, Kind: ftpserver.KindDirectory}, nil
	}

	key := fs.fsKey(clientPath)
	parentPrefix, base := splitParent(key)

	entries, err := fs.store.List(ctx, parentPrefix, "", listPageSize)
	if err == nil {
		for _, e := range entries {
			if e.IsDir {
				continue
			}

			if baseName(e.Key) == base {
				return ftpserver.FileEntry{
					Name:      base,
					Size:      e.Size,
					ModTime:   e.ModTime,
					Mode:      0o644,
					MediaType: contentTypeForName(base),
					Kind:      ftpserver.KindFile,
				}, nil
			}
		}
	}

	placeholders, err := fs.store.List(ctx, key+"/"+placeholderName, "", 1)
	if err == nil && len(placeholders) > 0 {
		return ftpserver.FileEntry{Name: base, ModTime: placeholders[0].ModTime, Mode: os.ModeDir | 0o755, Kind: ftpserver.KindDirectory}, nil
	}

	return ftpserver.FileEntry{}, fmt.Errorf("%w: %q", ErrNotFound, clientPath)
}

func splitParent(key string) (prefix, base string) {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return "", key
	}

	return key[:idx+1], key[idx+1:]
}

func (fs *FileSystem) Read(ctx context.Context, clientPath string, start int64) (io.ReadCloser, error) {
	key := fs.fsKey(clientPath)

	url, err := fs.store.PresignGet(ctx, key, presignTTL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build read request for %q: %w", clientPath, err)
	}

	if start > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}

	resp, err := fs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", clientPath, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()

		return nil, fmt.Errorf("read %q: status %d", clientPath, resp.StatusCode)
	}

	return resp.Body, nil
}

func (fs *FileSystem) Write(ctx context.Context, clientPath string, opts ftpserver.WriteOptions) (io.WriteCloser, error) {
	key := fs.fsKey(clientPath)

	return fs.uploader.Open(ctx, key, contentTypeForName(clientPath), opts.Append)
}

func (fs *FileSystem) Delete(ctx context.Context, clientPath string) error {
	key := fs.fsKey(clientPath)

	entry, err := fs.Get(ctx, clientPath)
	if err != nil {
		return err
	}

	if !entry.IsDir() {
		return fs.store.Remove(ctx, []string{key})
	}

	return fs.deleteDir(ctx, key)
}

func (fs *FileSystem) deleteDir(ctx context.Context, dirKey string) error {
	prefix := dirKey + "/"

	entries, err := fs.store.List(ctx, prefix, "", listPageSize)
	if err != nil {
		return err
	}

	var fileKeys []string

	for _, e := range entries {
		if e.IsDir {
			continue
		}

		if baseName(e.Key) == placeholderName {
			continue
		}

		fileKeys = append(fileKeys, e.Key)
	}

	if len(fileKeys) > 0 {
		if err := fs.store.Remove(ctx, fileKeys); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if e.IsDir {
			if err := fs.deleteDir(ctx, strings.TrimSuffix(e.Key, "/")); err != nil {
				return err
			}
		}
	}

	return fs.store.Remove(ctx, []string{placeholderKey(dirKey)})
}

func (fs *FileSystem) Mkdir(ctx context.Context, clientPath string) error {
	key := fs.fsKey(clientPath)

	return fs.store.PutEmpty(ctx, placeholderKey(key), true)
}

func (fs *FileSystem) Rename(ctx context.Context, fromPath, toPath string) error {
	fromKey := fs.fsKey(fromPath)
	toKey := fs.fsKey(toPath)

	entry, err := fs.Get(ctx, fromPath)
	if err != nil {
		return err
	}

	if !entry.IsDir() {
		return fs.store.Move(ctx, fromKey, toKey)
	}

	return fs.renameDir(ctx, fromKey, toKey)
}

func (fs *FileSystem) renameDir(ctx context.Context, fromKey, toKey string) error {
	if err := fs.store.PutEmpty(ctx, placeholderKey(toKey), true); err != nil {
		return err
	}

	entries, err := fs.store.List(ctx, fromKey+"/", "", listPageSize)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := baseName(strings.TrimSuffix(e.Key, "/"))
		if name == placeholderName {
			continue
		}

		childFrom := fromKey + "/" + name
		childTo := toKey + "/" + name

		if e.IsDir {
			if err := fs.renameDir(ctx, childFrom, childTo); err != nil {
				return err
			}

			continue
		}

		if err := fs.store.Move(ctx, childFrom, childTo); err != nil {
			return err
		}
	}

	if err := fs.store.Remove(ctx, []string{placeholderKey(fromKey)}); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("removing stale source placeholder: %w", err)
	}

	return nil
}

func (fs *FileSystem) Chmod(_ context.Context, clientPath string, mode os.FileMode) error {
	fs.logWarn("CHMOD is not supported by the object store; ignoring", "path", clientPath, "mode", mode)

	return nil
}

// logWarn is a no-op when no logger was configured, so FileSystem stays
// usable in tests that build it without one.
func (fs *FileSystem) logWarn(event string, keyvals ...interface{}) {
	if fs.logger == nil {
		return
	}

	fs.logger.Warn(event, keyvals...)
}

func (fs *FileSystem) GetUniqueName(name string) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	rnd := strconv.FormatInt(rand.Int63(), 36) //nolint:gosec

	return fmt.Sprintf("%s_%s_%s%s", base, ts, rnd, ext)
}
