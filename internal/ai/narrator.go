package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TemplateNarrator performs no inference: the facts are the narrative.
type TemplateNarrator struct{}

func (TemplateNarrator) Narrate(_ context.Context, req NarrationRequest) (string, error) {
	return req.Facts, nil
}

// ChatNarrator asks a chat runtime to restate the facts for the question.
type ChatNarrator struct {
	Runtime     Runtime
	Model       string
	MaxTokens   int
	Temperature float64
}

const narratorSystemPrompt = "You explain results of tabular data analysis. " +
	"Use only the numbers given in FACTS. Answer in at most four sentences."

func (n *ChatNarrator) Narrate(ctx context.Context, req NarrationRequest) (string, error) {
	if n.Runtime == nil {
		return "", errors.New("narrator runtime not configured")
	}
	var user strings.Builder
	fmt.Fprintf(&user, "QUESTION: %s\n", req.Query)
	fmt.Fprintf(&user, "ANALYSIS: %s\n", req.Intent)
	fmt.Fprintf(&user, "FACTS:\n%s\n", req.Facts)
	resp, err := n.Runtime.Generate(ctx, GenerateRequest{
		Model: n.Model,
		Messages: []Message{
			{Role: "system", Content: narratorSystemPrompt},
			{Role: "user", Content: user.String()},
		},
		MaxTokens:   n.MaxTokens,
		Temperature: n.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
