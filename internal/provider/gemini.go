package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	geminiDefaultModel   = "gemini-1.5-flash-latest"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// geminiChunk is the subset of a GenerateContentResponse the relay reads.
type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Gemini returns the profile for the Google AI Studio streamGenerateContent
// endpoint in SSE mode. Gemini closes the connection when generation ends, so
// the profile has no sentinel.
func Gemini(s Settings) Profile {
	s = withDefaults(s, geminiDefaultBaseURL, geminiDefaultModel)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", s.BaseURL, url.PathEscape(s.Model))
	return Profile{
		Name:    KindGemini,
		Model:   s.Model,
		BaseURL: s.BaseURL,
		Build: func(ctx context.Context, p Prompt) (*http.Request, error) {
			body := geminiRequest{
				Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.Text()}}}},
			}
			return newJSONRequest(ctx, endpoint, body, map[string]string{"x-goog-api-key": s.APIKey})
		},
		Extract: extractGemini,
	}
}

func extractGemini(payload []byte) (string, error) {
	var chunk geminiChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return chunk.Candidates[0].Content.Parts[0].Text, nil
}
