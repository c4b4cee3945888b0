package objectfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// chunkSize is the tus-style PATCH chunk size used by the resumable upload
// protocol (§4.11 write).
const chunkSize = 6 * 1024 * 1024

// retryDelays is the fixed backoff table §4.11 specifies in place of
// go-retryablehttp's default exponential backoff.
var retryDelays = []time.Duration{ //nolint:gochecknoglobals
	0,
	3 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
}

// uploadSession tracks one in-flight or resumable upload, keyed by the
// object-store key it targets.
type uploadSession struct {
	uploadURL string
	offset    int64
}

// resumableUploader drives the create/patch/retry protocol against a
// tus-style resumable upload endpoint fronting the bucket, persisting
// enough state in memory to resume a write for a key that has an
// unfinished prior upload (§4.11 write).
type resumableUploader struct {
	httpClient *retryablehttp.Client
	createURL  string // endpoint POSTed to in order to create an upload session
	bucket     string

	mu       sync.Mutex
	sessions map[string]*uploadSession
}

func newResumableUploader(createURL, bucket string, transport http.RoundTripper) *resumableUploader {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = len(retryDelays)
	client.HTTPClient.Transport = transport

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if err != nil {
			return true, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return true, nil
		}

		return false, nil
	}

	client.Backoff = func(_, _ time.Duration, attempt int, _ *http.Response) time.Duration {
		if attempt < 0 {
			attempt = 0
		}

		if attempt >= len(retryDelays) {
			attempt = len(retryDelays) - 1
		}

		return retryDelays[attempt]
	}

	return &resumableUploader{
		httpClient: client,
		createURL:  createURL,
		bucket:     bucket,
		sessions:   make(map[string]*uploadSession),
	}
}

// Open returns a writable stream for key. If append/resume finds a matching
// in-flight session it resumes from its recorded offset, otherwise it
// creates a fresh upload session.
func (u *resumableUploader) Open(ctx context.Context, key, contentType string, upsert bool) (io.WriteCloser, error) {
	session, err := u.resumeOrCreate(ctx, key, contentType, upsert)
	if err != nil {
		return nil, err
	}

	return &uploadWriter{ctx: ctx, uploader: u, key: key, session: session}, nil
}

func (u *resumableUploader) resumeOrCreate(ctx context.Context, key, contentType string, upsert bool) (*uploadSession, error) {
	u.mu.Lock()
	existing, ok := u.sessions[key]
	u.mu.Unlock()

	if ok {
		return existing, nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.createURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create upload request for %q: %w", key, err)
	}

	req.Header.Set("x-bucket-name", u.bucket)
	req.Header.Set("x-object-name", key)
	req.Header.Set("Content-Type", contentType)

	if upsert {
		req.Header.Set("x-upsert", "true")
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create upload session for %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create upload session for %q: status %d", key, resp.StatusCode)
	}

	uploadURL := resp.Header.Get("Location")
	if uploadURL == "" {
		return nil, fmt.Errorf("create upload session for %q: no Location header", key)
	}

	session := &uploadSession{uploadURL: uploadURL}

	u.mu.Lock()
	u.sessions[key] = session
	u.mu.Unlock()

	return session, nil
}

func (u *resumableUploader) forget(key string) {
	u.mu.Lock()
	delete(u.sessions, key)
	u.mu.Unlock()
}

func (u *resumableUploader) patchChunk(ctx context.Context, session *uploadSession, data []byte, final bool) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPatch, session.uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("patch chunk: %w", err)
	}

	req.Header.Set("Upload-Offset", fmt.Sprintf("%d", session.offset))
	req.Header.Set("Content-Type", "application/offset+octet-stream")

	if final {
		req.Header.Set("Upload-Complete", "true")
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("patch chunk at offset %d: %w", session.offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("patch chunk at offset %d: status %d", session.offset, resp.StatusCode)
	}

	session.offset += int64(len(data))

	return nil
}

// uploadWriter buffers writes into chunkSize-sized PATCH requests.
type uploadWriter struct {
	ctx      context.Context
	uploader *resumableUploader
	key      string
	session  *uploadSession
	buf      bytes.Buffer
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)

	for w.buf.Len() >= chunkSize {
		chunk := make([]byte, chunkSize)
		_, _ = w.buf.Read(chunk)

		if err := w.uploader.patchChunk(w.ctx, w.session, chunk, false); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

func (w *uploadWriter) Close() error {
	if err := w.uploader.patchChunk(w.ctx, w.session, w.buf.Bytes(), true); err != nil {
		return err
	}

	w.uploader.forget(w.key)

	return nil
}
