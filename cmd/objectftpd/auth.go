package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrAuthDenied is returned by an Authenticator to reject a login; the
// driver maps it to an AuthError (530).
var ErrAuthDenied = errors.New("authentication denied")

// Authenticator is the pluggable seam spec §1 calls "a host-supplied
// authentication callback": given a user/pass pair it returns the
// object-store root ("bucketName[/prefix]") that session is scoped to.
type Authenticator interface {
	Authenticate(user, pass string) (root string, err error)
}

// staticAuthenticator checks against a fixed, config-loaded user table.
type staticAuthenticator struct {
	users map[string]staticUser
}

func newStaticAuthenticator(users []staticUser) *staticAuthenticator {
	byUser := make(map[string]staticUser, len(users))
	for _, u := range users {
		byUser[u.User] = u
	}

	return &staticAuthenticator{users: byUser}
}

func (a *staticAuthenticator) Authenticate(user, pass string) (string, error) {
	u, ok := a.users[user]
	if !ok || u.Pass != pass {
		return "", ErrAuthDenied
	}

	return u.Root, nil
}

// httpAuthenticator delegates to an external HTTP endpoint, POSTing
// {"user":..., "pass":...} and expecting {"root": "..."} on success; any
// status other than 200 OK denies.
type httpAuthenticator struct {
	endpoint string
	client   *http.Client
}

func newHTTPAuthenticator(endpoint string) *httpAuthenticator {
	return &httpAuthenticator{endpoint: endpoint, client: &http.Client{Timeout: 5 * time.Second}}
}

type authRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type authResponse struct {
	Root string `json:"root"`
}

func (a *httpAuthenticator) Authenticate(user, pass string) (string, error) {
	body, err := json.Marshal(authRequest{User: user, Pass: pass})
	if err != nil {
		return "", fmt.Errorf("encode auth request: %w", err)
	}

	resp, err := a.client.Post(a.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("call auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrAuthDenied
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}

	return out.Root, nil
}

func buildAuthenticator(cfg authConfig) (Authenticator, error) {
	switch cfg.Kind {
	case "http":
		if cfg.HTTPEndpoint == "" {
			return nil, fmt.Errorf("auth.httpEndpoint is required for auth.kind=http")
		}

		return newHTTPAuthenticator(cfg.HTTPEndpoint), nil
	case "static", "":
		return newStaticAuthenticator(cfg.StaticUsers), nil
	default:
		return nil, fmt.Errorf("unknown auth.kind %q", cfg.Kind)
	}
}
