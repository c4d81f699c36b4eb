// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// --- Helpers ---

// tokenServer issues access tokens named after the grant type.
func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.Form.Get("grant_type"),
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeClientSecret(t *testing.T, dir, account, tokenURL string) {
	t.Helper()
	secret := map[string]any{
		"installed": map[string]any{
			"client_id":     "client-id",
			"client_secret": "client-secret",
			"auth_uri":      "https://accounts.example.com/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	}
	b, err := json.Marshal(secret)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, account+"_credentials.json"), b, 0o600))
}

func writeToken(t *testing.T, p *Provider, account string, tok *oauth2.Token) {
	t.Helper()
	require.NoError(t, p.saveToken(account, tok))
}

func readToken(t *testing.T, p *Provider, account string) *oauth2.Token {
	t.Helper()
	tok, err := p.loadToken(account)
	require.NoError(t, err)
	return tok
}

func failOpen(string) error { return fmt.Errorf("consent flow must not run") }

// --- Tests ---

func TestTokenSource_UsesStoredToken(t *testing.T) {
	dir := t.TempDir()
	srv := tokenServer(t)
	writeClientSecret(t, dir, "primary", srv.URL)

	p, err := NewProvider(ProviderConfig{Dir: dir, OpenURL: failOpen})
	require.NoError(t, err)
	writeToken(t, p, "primary", &oauth2.Token{AccessToken: "stored", Expiry: time.Now().Add(time.Hour)})

	ts, err := p.TokenSource(context.Background(), "primary")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored", tok.AccessToken)
}

func TestTokenSource_PersistsRefreshedToken(t *testing.T) {
	dir := t.TempDir()
	srv := tokenServer(t)
	writeClientSecret(t, dir, "primary", srv.URL)

	p, err := NewProvider(ProviderConfig{Dir: dir, OpenURL: failOpen})
	require.NoError(t, err)
	writeToken(t, p, "primary", &oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh-0",
		Expiry:       time.Now().Add(-time.Hour),
	})

	ts, err := p.TokenSource(context.Background(), "primary")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token", tok.AccessToken)
	assert.Equal(t, "access-refresh_token", readToken(t, p, "primary").AccessToken)
}

func TestTokenSource_RunsConsentFlowWithoutToken(t *testing.T) {
	dir := t.TempDir()
	srv := tokenServer(t)
	writeClientSecret(t, dir, "primary", srv.URL)

	// Plays the browser: follow the consent URL straight back to the
	// loopback redirect with a code.
	browser := func(consent string) error {
		u, err := url.Parse(consent)
		if err != nil {
			return err
		}
		q := u.Query()
		redirect := q.Get("redirect_uri") + "?code=abc&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(redirect)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
		return nil
	}

	p, err := NewProvider(ProviderConfig{Dir: dir, OpenURL: browser})
	require.NoError(t, err)

	ts, err := p.TokenSource(context.Background(), "primary")
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code", tok.AccessToken)
	assert.Equal(t, "access-authorization_code", readToken(t, p, "primary").AccessToken)
}

func TestTokenSource_MissingCredentials(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Dir: t.TempDir(), OpenURL: failOpen})
	require.NoError(t, err)

	_, err = p.TokenSource(context.Background(), "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody_credentials.json")
}

func TestRevoke(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	writeToken(t, p, "primary", &oauth2.Token{AccessToken: "x"})

	require.NoError(t, p.Revoke("primary"))
	_, err = os.Stat(p.TokenPath("primary"))
	assert.True(t, os.IsNotExist(err))

	// Revoking again is not an error.
	assert.NoError(t, p.Revoke("primary"))
}
