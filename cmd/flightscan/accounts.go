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

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRevokeCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the mailbox accounts that would be scanned",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		accounts, err := resolveAccounts(nil)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT\tAUTHORISED\tCREDENTIALS")
		for _, a := range accounts {
			fmt.Fprintf(w, "%s\t%t\t%s\n", a.Name, a.HasToken, a.CredentialsPath)
		}
		return w.Flush()
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage per-account Gmail authorisation",
}

var authLoginCmd = &cobra.Command{
	Use:   "login <account>",
	Short: "Run the consent flow for an account and store its token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider()
		if err != nil {
			return err
		}
		ts, err := p.TokenSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if _, err := ts.Token(); err != nil {
			return fmt.Errorf("obtain token: %w", err)
		}
		fmt.Printf("Authorised %s (token at %s)\n", args[0], p.TokenPath(args[0]))
		return nil
	},
}

var authRevokeCmd = &cobra.Command{
	Use:   "revoke <account>",
	Short: "Forget the stored token for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		p, err := newProvider()
		if err != nil {
			return err
		}
		if err := p.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Printf("Revoked %s\n", args[0])
		return nil
	},
}
