package generator

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI completes prompts with the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a provider for model. Retries are disabled; extra options
// such as option.WithBaseURL are applied last.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) *OpenAI {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &OpenAI{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Name identifies the provider in logs.
func (o *OpenAI) Name() string { return "openai:" + o.model }

// Complete sends the system and user messages and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
