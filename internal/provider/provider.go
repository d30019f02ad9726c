// Package provider describes the upstream text-generation providers the relay
// can talk to. Each provider is reduced to a Profile: how to build the
// streaming request, how to pull the text fragment out of one event payload,
// and which sentinel (if any) ends the stream.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Supported provider kinds.
const (
	KindOpenAI = "openai"
	KindGemini = "gemini"
)

// Settings are the process-wide upstream parameters.
type Settings struct {
	Kind    string
	BaseURL string
	APIKey  string
	Model   string
}

// Prompt is the assembled instruction and user content for one generation.
type Prompt struct {
	System string
	User   string
}

// Text folds the system instruction into a single prompt body for providers
// that take one user turn only.
func (p Prompt) Text() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// BuildFunc creates the upstream request for a prompt.
type BuildFunc func(ctx context.Context, p Prompt) (*http.Request, error)

// ExtractFunc returns the text fragment carried by one event payload. A
// payload that is not valid JSON yields an error; a payload without the text
// path yields "".
type ExtractFunc func(payload []byte) (string, error)

// Profile is an immutable description of one upstream provider.
type Profile struct {
	Name     string
	Model    string
	BaseURL  string
	Sentinel string // empty: the stream ends at upstream EOF
	Build    BuildFunc
	Extract  ExtractFunc
}

// Supported reports whether kind names a known provider.
func Supported(kind string) bool {
	switch strings.ToLower(kind) {
	case KindOpenAI, KindGemini:
		return true
	}
	return false
}

// New selects the profile for s.Kind.
func New(s Settings) (Profile, error) {
	switch strings.ToLower(s.Kind) {
	case KindOpenAI:
		return OpenAI(s), nil
	case KindGemini:
		return Gemini(s), nil
	default:
		return Profile{}, fmt.Errorf("provider: unknown kind %q", s.Kind)
	}
}

func withDefaults(s Settings, baseURL, model string) Settings {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.Model == "" {
		s.Model = model
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	return s
}

func newJSONRequest(ctx context.Context, url string, body any, headers map[string]string) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
