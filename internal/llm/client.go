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

// Package llm wraps the OpenAI chat API behind a small completion interface
// used by the extraction fallback and the itinerary pre-filter.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrTemperatureUnsupported is returned when the model rejects an explicit
// temperature. Callers may retry the same request without one.
var ErrTemperatureUnsupported = errors.New("llm: temperature not supported by model")

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("llm: empty response")

// Completer sends one prompt and returns the raw text of the answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Schema constrains the answer to a named JSON schema.
type Schema struct {
	Name       string
	Definition json.RawMessage
}

// Request is a single-turn completion request.
type Request struct {
	Model  string
	System string
	Prompt string
	Schema *Schema
	// Temperature is sent only when non-nil.
	Temperature *float32
}

// ClientConfig holds the dependencies for the OpenAI-backed Completer.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements Completer with github.com/sashabaranov/go-openai.
type Client struct {
	api    *openai.Client
	logger *slog.Logger
}

// NewClient creates a Client. An empty API key is rejected up front so the
// first request does not fail halfway through a batch.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: OPENAI_API_KEY is not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: openai.NewClientWithConfig(oc), logger: logger}, nil
}

// Complete sends the request and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	creq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		// The temperature field is omitempty, so an exact zero would never
		// reach the API.
		t := *req.Temperature
		if t == 0 {
			t = math.SmallestNonzeroFloat32
		}
		creq.Temperature = t
	}
	if req.Schema != nil {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema.Definition,
				Strict: true,
			},
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		if isTemperatureRejection(err) {
			return "", fmt.Errorf("%w: %w", ErrTemperatureUnsupported, err)
		}
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		c.logger.Warn("model refused request", "model", req.Model, "refusal", choice.Message.Refusal)
		return "", nil
	}
	c.logger.Debug("completion received",
		"model", req.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return choice.Message.Content, nil
}

func isTemperatureRejection(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Param != nil && *apiErr.Param == "temperature" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	return strings.Contains(msg, "not supported") ||
		strings.Contains(msg, "unsupported") ||
		strings.Contains(msg, "does not support")
}
