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

// flightscan scans Gmail mailboxes for flight booking confirmations,
// extracts structured flight details, and keeps a deduplicated flight list.
//
// Usage:
//
//	flightscan fetch --year 2026 [--account primary] [--query-mode relaxed]
//	flightscan process --year 2026 [--use-llm --llm-approve]
//	flightscan run --year 2026
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flightscan/flightscan/internal/config"
)

var (
	version = "dev"

	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flightscan",
	Short: "Find flight bookings in your mailbox",
	Long: `flightscan searches Gmail for flight booking emails, stores the likely
candidates, and extracts flight number, route, dates and confirmation code
with airline-specific and multi-language parsers. An optional LLM fallback
handles emails the parsers miss, behind a cost estimate and confirmation.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $FLIGHTSCAN_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text")
}

// setup loads configuration and installs the default logger.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if logLevel != "" {
		if cfg.LogLevel, err = config.ParseLevel(logLevel); err != nil {
			return err
		}
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, opts)
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
