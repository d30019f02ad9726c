package relay

import (
	"fmt"
	"strings"

	"github.com/gaspardpetit/resumegen/internal/provider"
)

// Request is the inbound generation payload.
type Request struct {
	JobDescription string `json:"jobDescription"`
	UserProfile    string `json:"userProfile"`
}

// Validate requires both fields to be non-empty after trimming.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.JobDescription) == "" {
		missing = append(missing, "jobDescription")
	}
	if strings.TrimSpace(r.UserProfile) == "" {
		missing = append(missing, "userProfile")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, " or "))
	}
	return nil
}

// Task is a prompt template: a fixed instruction applied to the user's
// profile and the target job description.
type Task struct {
	Name        string
	Instruction string
}

var (
	// Suggestions asks for detailed resume improvement suggestions.
	Suggestions = Task{
		Name:        "suggestions",
		Instruction: "You are an expert career coach and resume writer. Analyze the user profile against the job description and provide detailed suggestions for improving their resume.",
	}
	// Summary asks for a short resume summary.
	Summary = Task{
		Name:        "summary",
		Instruction: "You are an expert career coach and resume writer. Generate a concise, compelling resume summary (3-4 sentences).",
	}
)

// Prompt assembles the upstream prompt for req.
func (t Task) Prompt(req Request) provider.Prompt {
	return provider.Prompt{
		System: t.Instruction,
		User:   fmt.Sprintf("User Profile:\n%s\n\nJob Description:\n%s", strings.TrimSpace(req.UserProfile), strings.TrimSpace(req.JobDescription)),
	}
}
