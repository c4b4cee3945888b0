package objectfs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeUploadServer plays the server side of the resumable upload protocol:
// POST creates a session and returns a Location, PATCH appends bytes in
// arrival order (Upload-Offset is not checked) and records whether
// Upload-Complete was ever sent.
type fakeUploadServer struct {
	mu       sync.Mutex
	body     []byte
	complete bool
}

func newFakeUploadServer(t *testing.T) (*httptest.Server, *fakeUploadServer) {
	t.Helper()

	state := &fakeUploadServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		chunk, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		state.mu.Lock()
		state.body = append(state.body, chunk...)
		if r.Header.Get("Upload-Complete") == "true" {
			state.complete = true
		}
		state.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)

	// The create handler needs the server's own URL for the Location header,
	// so wire it up after the server is listening.
	mux.HandleFunc("/create-real", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/session")
		w.WriteHeader(http.StatusCreated)
	})

	return server, state
}

func TestResumableUploadSmallWrite(t *testing.T) {
	server, state := newFakeUploadServer(t)
	defer server.Close()

	u := newResumableUploader(server.URL+"/create-real", "bucket", http.DefaultTransport)

	w, err := u.Open(context.Background(), "small.txt", "text/plain", true)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	state.mu.Lock()
	defer state.mu.Unlock()
	require.Equal(t, "hello world", string(state.body))
	require.True(t, state.complete, "Close must always send the final Upload-Complete marker")
}

func TestResumableUploadMultiChunk(t *testing.T) {
	server, state := newFakeUploadServer(t)
	defer server.Close()

	u := newResumableUploader(server.URL+"/create-real", "bucket", http.DefaultTransport)

	w, err := u.Open(context.Background(), "big.bin", "application/octet-stream", true)
	require.NoError(t, err)

	chunk := make([]byte, chunkSize)
	for i := range chunk {
		chunk[i] = byte(i)
	}

	// Write exactly one full chunk worth of data: the buffer empties inside
	// Write, so Close() has to still send the final marker with zero bytes.
	_, err = w.Write(chunk)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	state.mu.Lock()
	defer state.mu.Unlock()
	require.Equal(t, chunkSize, len(state.body))
	require.True(t, state.complete, "Close must mark the upload complete even when the buffer was already flushed")
}

func TestResumableUploadSessionForgottenAfterClose(t *testing.T) {
	server, _ := newFakeUploadServer(t)
	defer server.Close()

	u := newResumableUploader(server.URL+"/create-real", "bucket", http.DefaultTransport)

	w, err := u.Open(context.Background(), "k.txt", "text/plain", true)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	u.mu.Lock()
	_, stillTracked := u.sessions["k.txt"]
	u.mu.Unlock()

	require.False(t, stillTracked)
}
