package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// DoneSentinel terminates OpenAI-style streams.
const DoneSentinel = "[DONE]"

const (
	openAIDefaultBaseURL = "https://api.x.ai"
	openAIDefaultModel   = "grok-2-latest"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatChunk is the subset of a chat.completion.chunk the relay reads.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// OpenAI returns the profile for OpenAI-compatible chat completion endpoints
// (OpenAI, xAI, Groq and friends). The base URL may or may not carry /v1.
func OpenAI(s Settings) Profile {
	s = withDefaults(s, openAIDefaultBaseURL, openAIDefaultModel)
	url := s.BaseURL + "/v1/chat/completions"
	if strings.HasSuffix(s.BaseURL, "/v1") {
		url = s.BaseURL + "/chat/completions"
	}
	return Profile{
		Name:     KindOpenAI,
		Model:    s.Model,
		BaseURL:  s.BaseURL,
		Sentinel: DoneSentinel,
		Build: func(ctx context.Context, p Prompt) (*http.Request, error) {
			body := chatRequest{
				Model: s.Model,
				Messages: []chatMessage{
					{Role: "system", Content: p.System},
					{Role: "user", Content: p.User},
				},
				Stream: true,
			}
			return newJSONRequest(ctx, url, body, map[string]string{"Authorization": "Bearer " + s.APIKey})
		},
		Extract: extractOpenAI,
	}
}

func extractOpenAI(payload []byte) (string, error) {
	var chunk chatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", err
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}
