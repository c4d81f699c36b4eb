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

package gmail

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/flightscan/flightscan/internal/models"
)

const (
	defaultSubject = "No Subject"
	defaultFrom    = "Unknown Sender"
)

// parseMessage converts a full-format Gmail message into a RawEmail. The
// second result is false when no text/plain or text/html part decodes.
func parseMessage(msg *gmailapi.Message) (models.RawEmail, bool) {
	email := models.RawEmail{
		ID:      msg.Id,
		Subject: defaultSubject,
		From:    defaultFrom,
	}
	if msg.Payload == nil {
		return email, false
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			email.Subject = h.Value
		case "from":
			email.From = h.Value
		case "date":
			email.Date = h.Value
		}
	}

	plain, htmlBody := extractBody(msg.Payload)
	if plain == "" && htmlBody == "" && len(msg.Payload.Parts) == 0 && msg.Payload.Body != nil {
		// Single-part messages sometimes carry a non-text mime type.
		plain = decodeBase64URL(msg.Payload.Body.Data)
	}
	switch {
	case plain != "":
		email.Body = plain
	case htmlBody != "":
		email.Body = htmlToText(htmlBody)
	default:
		return email, false
	}
	return email, true
}

// extractBody walks the MIME tree depth-first and returns the first
// text/plain and first text/html bodies found.
func extractBody(part *gmailapi.MessagePart) (plain, htmlBody string) {
	if part == nil {
		return "", ""
	}
	if part.Body != nil && part.Body.Data != "" {
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain"):
			plain = decodeBase64URL(part.Body.Data)
		case strings.HasPrefix(part.MimeType, "text/html"):
			htmlBody = decodeBase64URL(part.Body.Data)
		}
	}
	for _, child := range part.Parts {
		p, h := extractBody(child)
		if plain == "" {
			plain = p
		}
		if htmlBody == "" {
			htmlBody = h
		}
	}
	return plain, htmlBody
}

// decodeBase64URL decodes Gmail body data, which may or may not be padded.
func decodeBase64URL(data string) string {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(b)
}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockTagRe    = regexp.MustCompile(`(?i)<(br|/p|/div|/tr|/li|/h[1-6])[^>]*>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	spaceRunRe    = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
)

// htmlToText flattens an HTML body into plain text, keeping line breaks
// at block boundaries so line-oriented patterns still work.
func htmlToText(s string) string {
	s = scriptStyleRe.ReplaceAllString(s, "")
	s = blockTagRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
