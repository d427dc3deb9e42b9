package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEvaluatorModel is the chat model used for contextual link evaluation
const DefaultEvaluatorModel = openai.GPT4oMini

const evaluatorSystemPrompt = `You review proposed internal links for a Polish content site.
Given an anchor phrase and the title of the target article, answer whether a
reader clicking that phrase would reasonably expect the target article.
Answer with exactly one word: YES or NO.`

// ChatAPI defines the interface for the underlying chat completion endpoint
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Evaluator is the optional secondary contextual filter. It fails open: any
// transport, parse, or truncation problem returns pass=true with the error
// surfaced for operator visibility, never blocking the pipeline.
type Evaluator struct {
	api   ChatAPI
	model string
}

// NewEvaluator creates an Evaluator backed by the OpenAI chat API.
func NewEvaluator(apiKey, model string) *Evaluator {
	if model == "" {
		model = DefaultEvaluatorModel
	}
	return &Evaluator{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// Evaluate asks whether the anchor fits the target title contextually.
func (e *Evaluator) Evaluate(ctx context.Context, anchor, targetTitle string) (bool, error) {
	resp, err := e.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Anchor: %q\nTarget title: %q", anchor, targetTitle)},
		},
		MaxTokens:   4,
		Temperature: 0,
	})
	if err != nil {
		return true, fmt.Errorf("evaluator call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return true, fmt.Errorf("evaluator returned no choices")
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch {
	case strings.HasPrefix(answer, "YES"), strings.HasPrefix(answer, "TAK"):
		return true, nil
	case strings.HasPrefix(answer, "NO"), strings.HasPrefix(answer, "NIE"):
		return false, nil
	}
	return true, fmt.Errorf("evaluator returned unparseable verdict: %q", answer)
}
