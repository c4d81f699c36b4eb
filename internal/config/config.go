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

// Package config loads configuration from config.yaml, a .env file, and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the scanner.
type Config struct {
	// Accounts, if set, is the explicit list of mailboxes to scan; otherwise
	// every account with a client secret in CredentialsDir is scanned.
	Accounts        []string
	ExcludeAccounts []string
	CredentialsDir  string
	DataDir         string

	LogLevel  slog.Level
	LogFormat string // "json" or "text"

	Gmail GmailConfig
	LLM   LLMConfig

	// Optional sinks and the shared seen cache.
	RedisURL     string
	PublishQueue string
	SeenTTL      time.Duration
	DatabaseURL  string
}

// GmailConfig controls mailbox searches.
type GmailConfig struct {
	QueryMode         string
	SearchDays        int
	MaxResults        int
	RequestsPerSecond float64
}

// LLMConfig controls the optional model-backed stages and their cost gate.
type LLMConfig struct {
	APIKey               string
	BaseURL              string
	Model                string
	MaxBodyChars         int
	OutputTokens         int
	PromptOverheadTokens int
	FilterThreshold      float64
	FilterMaxBodyChars   int // 0 means MaxBodyChars
	FilterOutputTokens   int
	InputCostPerMillion  *float64
	OutputCostPerMillion *float64
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Accounts        []string `yaml:"accounts"`
	ExcludeAccounts []string `yaml:"exclude_accounts"`
	CredentialsDir  string   `yaml:"credentials_dir"`
	DataDir         string   `yaml:"data_dir"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"`
	Gmail           struct {
		QueryMode         string  `yaml:"query_mode"`
		SearchDays        int     `yaml:"search_days"`
		MaxResults        int     `yaml:"max_results"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"gmail"`
	LLM struct {
		BaseURL              string   `yaml:"base_url"`
		Model                string   `yaml:"model"`
		MaxBodyChars         int      `yaml:"max_body_chars"`
		OutputTokens         int      `yaml:"output_tokens"`
		PromptOverheadTokens int      `yaml:"prompt_overhead_tokens"`
		FilterThreshold      *float64 `yaml:"filter_threshold"`
		FilterMaxBodyChars   int      `yaml:"filter_max_body_chars"`
		FilterOutputTokens   int      `yaml:"filter_output_tokens"`
		InputCostPerMillion  *float64 `yaml:"input_cost_per_m_tokens"`
		OutputCostPerMillion *float64 `yaml:"output_cost_per_m_tokens"`
	} `yaml:"llm"`
	Redis struct {
		URL          string `yaml:"url"`
		PublishQueue string `yaml:"publish_queue"`
		SeenTTL      string `yaml:"seen_ttl"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads .env, then the YAML file at path (with env var expansion), then
// applies environment fallbacks and defaults. An empty path means
// FLIGHTSCAN_CONFIG or ./config.yaml. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configPath := firstNonEmpty(path, envOrDefault("FLIGHTSCAN_CONFIG", "config.yaml"))

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Debug("no config file, using defaults", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	level, err := parseLevel(firstNonEmpty(os.Getenv("FLIGHTSCAN_LOG_LEVEL"), raw.LogLevel, "info"))
	if err != nil {
		return nil, err
	}

	seenTTL := envOrDefaultDuration("FLIGHTSCAN_SEEN_TTL", 400*24*time.Hour)
	if raw.Redis.SeenTTL != "" {
		d, err := time.ParseDuration(raw.Redis.SeenTTL)
		if err != nil {
			return nil, fmt.Errorf("parse redis.seen_ttl: %w", err)
		}
		seenTTL = d
	}

	cfg := &Config{
		Accounts:        raw.Accounts,
		ExcludeAccounts: raw.ExcludeAccounts,
		CredentialsDir:  firstNonEmpty(raw.CredentialsDir, envOrDefault("FLIGHTSCAN_CREDENTIALS_DIR", "credentials")),
		DataDir:         firstNonEmpty(raw.DataDir, envOrDefault("FLIGHTSCAN_DATA_DIR", "data")),
		LogLevel:        level,
		LogFormat:       firstNonEmpty(raw.LogFormat, envOrDefault("FLIGHTSCAN_LOG_FORMAT", "json")),
		Gmail: GmailConfig{
			QueryMode:         firstNonEmpty(raw.Gmail.QueryMode, "strict"),
			SearchDays:        positiveOr(raw.Gmail.SearchDays, 365),
			MaxResults:        positiveOr(raw.Gmail.MaxResults, 500),
			RequestsPerSecond: raw.Gmail.RequestsPerSecond,
		},
		LLM: LLMConfig{
			APIKey:               os.Getenv("OPENAI_API_KEY"),
			BaseURL:              firstNonEmpty(raw.LLM.BaseURL, os.Getenv("OPENAI_BASE_URL")),
			Model:                firstNonEmpty(raw.LLM.Model, envOrDefault("FLIGHTSCAN_LLM_MODEL", "gpt-5-mini")),
			MaxBodyChars:         positiveOr(raw.LLM.MaxBodyChars, 4000),
			OutputTokens:         positiveOr(raw.LLM.OutputTokens, 300),
			PromptOverheadTokens: positiveOr(raw.LLM.PromptOverheadTokens, 200),
			FilterThreshold:      0.6,
			FilterMaxBodyChars:   raw.LLM.FilterMaxBodyChars,
			FilterOutputTokens:   positiveOr(raw.LLM.FilterOutputTokens, 60),
			InputCostPerMillion:  firstRate(raw.LLM.InputCostPerMillion, "LLM_INPUT_COST_PER_M_TOKENS"),
			OutputCostPerMillion: firstRate(raw.LLM.OutputCostPerMillion, "LLM_OUTPUT_COST_PER_M_TOKENS"),
		},
		RedisURL:     firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		PublishQueue: raw.Redis.PublishQueue,
		SeenTTL:      seenTTL,
		DatabaseURL:  firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
	}
	if raw.LLM.FilterThreshold != nil {
		cfg.LLM.FilterThreshold = *raw.LLM.FilterThreshold
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("unknown log format %q (want json or text)", cfg.LogFormat)
	}
	return cfg, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	return parseLevel(s)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return l, nil
}

// firstRate prefers the YAML rate and falls back to the env var. Unparseable
// env values count as unset.
func firstRate(yamlRate *float64, envKey string) *float64 {
	if yamlRate != nil {
		return yamlRate
	}
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring unparseable rate", "env", envKey, "value", v)
		return nil
	}
	return &f
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
