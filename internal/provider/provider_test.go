package provider

import (
	"context"
	"encoding/json"
	"io"
	"testing"
)

func TestNewSelectsProfile(t *testing.T) {
	p, err := New(Settings{Kind: "OpenAI", APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Name != KindOpenAI || p.Sentinel != DoneSentinel {
		t.Fatalf("openai profile %+v", p)
	}
	if p.Model != "grok-2-latest" || p.BaseURL != "https://api.x.ai" {
		t.Fatalf("openai defaults %q %q", p.Model, p.BaseURL)
	}
	g, err := New(Settings{Kind: "gemini", APIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if g.Sentinel != "" {
		t.Fatalf("gemini sentinel %q", g.Sentinel)
	}
	if _, err := New(Settings{Kind: "claude"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if Supported("bogus") || !Supported("GEMINI") {
		t.Fatalf("supported mismatch")
	}
}

func TestOpenAIBuild(t *testing.T) {
	p := OpenAI(Settings{BaseURL: "https://api.openai.com/v1/", APIKey: "sk-1", Model: "gpt-4o-mini"})
	req, err := p.Build(context.Background(), Prompt{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.URL.String() != "https://api.openai.com/v1/chat/completions" {
		t.Fatalf("url %s", req.URL)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sk-1" {
		t.Fatalf("auth %q", got)
	}
	var body chatRequest
	b, _ := io.ReadAll(req.Body)
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if !body.Stream || body.Model != "gpt-4o-mini" || len(body.Messages) != 2 {
		t.Fatalf("body %+v", body)
	}
	if body.Messages[0].Role != "system" || body.Messages[1].Content != "usr" {
		t.Fatalf("messages %+v", body.Messages)
	}
}

func TestGeminiBuild(t *testing.T) {
	p := Gemini(Settings{APIKey: "g-1"})
	req, err := p.Build(context.Background(), Prompt{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:streamGenerateContent?alt=sse"
	if req.URL.String() != want {
		t.Fatalf("url %s", req.URL)
	}
	if req.URL.Query().Get("key") != "" {
		t.Fatalf("api key must not be in the query")
	}
	if got := req.Header.Get("X-Goog-Api-Key"); got != "g-1" {
		t.Fatalf("key header %q", got)
	}
	var body geminiRequest
	b, _ := io.ReadAll(req.Body)
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(body.Contents) != 1 || body.Contents[0].Parts[0].Text != "sys\n\nusr" {
		t.Fatalf("body %+v", body)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		extract ExtractFunc
		payload string
		want    string
		wantErr bool
	}{
		{"openai delta", extractOpenAI, `{"choices":[{"delta":{"content":"Hi"}}]}`, "Hi", false},
		{"openai role only", extractOpenAI, `{"choices":[{"delta":{"role":"assistant"}}]}`, "", false},
		{"openai no choices", extractOpenAI, `{"usage":{"total_tokens":3}}`, "", false},
		{"openai truncated", extractOpenAI, `{"choices":[{"delta":{"cont`, "", true},
		{"gemini text", extractGemini, `{"candidates":[{"content":{"parts":[{"text":"Yo"}],"role":"model"}}]}`, "Yo", false},
		{"gemini metadata", extractGemini, `{"usageMetadata":{"promptTokenCount":4}}`, "", false},
		{"gemini empty parts", extractGemini, `{"candidates":[{"content":{"parts":[]}}]}`, "", false},
		{"gemini garbage", extractGemini, `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.extract([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
