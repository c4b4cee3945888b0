package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticAuthenticator(t *testing.T) {
	auth := newStaticAuthenticator([]staticUser{
		{User: "alice", Pass: "wonderland", Root: "bucket-a/alice"},
	})

	root, err := auth.Authenticate("alice", "wonderland")
	require.NoError(t, err)
	require.Equal(t, "bucket-a/alice", root)

	_, err = auth.Authenticate("alice", "wrong")
	require.ErrorIs(t, err, ErrAuthDenied)

	_, err = auth.Authenticate("nobody", "wonderland")
	require.ErrorIs(t, err, ErrAuthDenied)
}

func TestHTTPAuthenticator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.User != "bob" || req.Pass != "secret" {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		require.NoError(t, json.NewEncoder(w).Encode(authResponse{Root: "bucket-b"}))
	}))
	defer server.Close()

	auth := newHTTPAuthenticator(server.URL)

	root, err := auth.Authenticate("bob", "secret")
	require.NoError(t, err)
	require.Equal(t, "bucket-b", root)

	_, err = auth.Authenticate("bob", "wrong")
	require.ErrorIs(t, err, ErrAuthDenied)
}

func TestBuildAuthenticatorUnknownKind(t *testing.T) {
	_, err := buildAuthenticator(authConfig{Kind: "carrier-pigeon"})
	require.Error(t, err)
}

func TestBuildAuthenticatorHTTPRequiresEndpoint(t *testing.T) {
	_, err := buildAuthenticator(authConfig{Kind: "http"})
	require.Error(t, err)
}
