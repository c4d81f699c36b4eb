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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// consentTimeout bounds how long the loopback listener waits for the browser.
const consentTimeout = 5 * time.Minute

// authorize runs the installed-app flow with a loopback redirect: it serves
// one request on 127.0.0.1, checks the state, and exchanges the code.
func (p *Provider) authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	defer ln.Close()

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	send := func(r result) {
		select {
		case results <- r:
		default:
		}
	}

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				send(result{err: errors.New("oauth state mismatch")})
			case q.Get("error") != "":
				http.Error(w, "authorisation denied", http.StatusForbidden)
				send(result{err: fmt.Errorf("consent denied: %s", q.Get("error"))})
			default:
				fmt.Fprintln(w, "Authorisation complete. You can close this window.")
				send(result{code: q.Get("code")})
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	if err := p.openURL(flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)); err != nil {
		return nil, fmt.Errorf("open consent url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for consent: %w", ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := flowCfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		return tok, nil
	}
}
