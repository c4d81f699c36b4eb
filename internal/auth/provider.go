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

// Package auth manages per-account Google OAuth credentials for Gmail:
// loading the client secret, running the installed-app consent flow once,
// and persisting refreshed tokens next to the client secret.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// ProviderConfig holds the settings for a Provider.
type ProviderConfig struct {
	// Dir holds <account>_credentials.json and <account>_token.json.
	Dir string
	// Scopes default to read-only Gmail access.
	Scopes []string
	// Out receives the consent URL and progress messages.
	Out io.Writer
	// OpenURL is called with the consent URL; it defaults to printing it.
	OpenURL func(url string) error
	Logger  *slog.Logger
}

// Provider hands out authorised HTTP clients per account.
type Provider struct {
	dir     string
	scopes  []string
	out     io.Writer
	openURL func(string) error
	logger  *slog.Logger
}

// NewProvider creates a Provider and makes sure its directory exists.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	p := &Provider{
		dir:     cfg.Dir,
		scopes:  cfg.Scopes,
		out:     cfg.Out,
		openURL: cfg.OpenURL,
		logger:  cfg.Logger,
	}
	if len(p.scopes) == 0 {
		p.scopes = []string{gmailapi.GmailReadonlyScope}
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.openURL == nil {
		p.openURL = func(u string) error {
			_, err := fmt.Fprintf(p.out, "Open this URL in a browser to authorise access:\n\n%s\n\n", u)
			return err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// CredentialsPath is the OAuth client secret file for account.
func (p *Provider) CredentialsPath(account string) string {
	return filepath.Join(p.dir, account+"_credentials.json")
}

// TokenPath is the persisted token file for account.
func (p *Provider) TokenPath(account string) string {
	return filepath.Join(p.dir, account+"_token.json")
}

// TokenSource returns a token source for account. A stored token is reused
// and refreshed as needed; without one the consent flow runs first.
// Refreshed tokens are written back to disk.
func (p *Provider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(p.CredentialsPath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("credentials file not found for account %s: place your OAuth client JSON at %s",
				account, p.CredentialsPath(account))
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secret, p.scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tok, err := p.loadToken(account)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		p.logger.Info("no stored token, starting consent flow", "account", account)
		tok, err = p.authorize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("authorize account %s: %w", account, err)
		}
		if err := p.saveToken(account, tok); err != nil {
			return nil, err
		}
	}

	return &persistingSource{
		base:    oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		last:    tok.AccessToken,
		save:    func(t *oauth2.Token) error { return p.saveToken(account, t) },
		logger:  p.logger,
		account: account,
	}, nil
}

// Client returns an HTTP client that authorises requests as account.
func (p *Provider) Client(ctx context.Context, account string) (*http.Client, error) {
	ts, err := p.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Revoke forgets the stored token for account. The client secret stays.
func (p *Provider) Revoke(account string) error {
	err := os.Remove(p.TokenPath(account))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	p.logger.Info("token revoked", "account", account)
	return nil
}

func (p *Provider) loadToken(account string) (*oauth2.Token, error) {
	b, err := os.ReadFile(p.TokenPath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		p.logger.Warn("ignoring unreadable token file", "account", account, "error", err)
		return nil, nil
	}
	return &tok, nil
}

func (p *Provider) saveToken(account string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(p.TokenPath(account), b, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// persistingSource saves the token whenever the underlying source refreshes it.
type persistingSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    string
	save    func(*oauth2.Token) error
	logger  *slog.Logger
	account string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			s.logger.Warn("failed to persist refreshed token", "account", s.account, "error", err)
		}
	}
	return tok, nil
}
