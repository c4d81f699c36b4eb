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

// Package discovery resolves which mailbox accounts to scan: an explicit
// list from config, or every account with a client secret in the
// credentials directory, minus exclusions.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const credentialsSuffix = "_credentials.json"

// Account is a mailbox the tool can authenticate as.
type Account struct {
	Name            string `json:"name"`
	CredentialsPath string `json:"credentials_path"`
	// HasToken reports whether consent was already granted.
	HasToken bool `json:"has_token"`
}

// Discovery finds accounts in a credentials directory.
type Discovery struct {
	credentialsDir string
}

// NewDiscovery creates an account discovery over credentialsDir.
func NewDiscovery(credentialsDir string) *Discovery {
	return &Discovery{credentialsDir: credentialsDir}
}

// DiscoverAccounts returns the accounts to scan.
//
// Hybrid strategy:
//   - If include is non-empty, returns only those accounts (no directory scan).
//   - Otherwise, every <name>_credentials.json in the directory is an account.
//   - In both cases, exclude is removed from the final set, case-insensitively.
func (d *Discovery) DiscoverAccounts(include, exclude []string) ([]Account, error) {
	excludeSet := make(map[string]bool, len(exclude))
	for _, a := range exclude {
		excludeSet[strings.ToLower(a)] = true
	}

	var names []string
	if len(include) > 0 {
		slog.Info("using explicit account list", "count", len(include))
		names = include
	} else {
		found, err := d.scan()
		if err != nil {
			return nil, err
		}
		names = found
	}

	accounts := make([]Account, 0, len(names))
	for _, name := range names {
		if excludeSet[strings.ToLower(name)] {
			slog.Debug("excluding account", "account", name)
			continue
		}
		accounts = append(accounts, d.account(name))
	}

	slog.Info("account discovery complete", "dir", d.credentialsDir, "accounts", len(accounts))
	return accounts, nil
}

func (d *Discovery) scan() ([]string, error) {
	entries, err := os.ReadDir(d.credentialsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), credentialsSuffix) {
			continue
		}
		if name := strings.TrimSuffix(e.Name(), credentialsSuffix); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Discovery) account(name string) Account {
	_, err := os.Stat(filepath.Join(d.credentialsDir, name+"_token.json"))
	return Account{
		Name:            name,
		CredentialsPath: filepath.Join(d.credentialsDir, name+credentialsSuffix),
		HasToken:        err == nil,
	}
}
