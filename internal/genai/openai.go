package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend completes requests against the OpenAI chat API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+3)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	if strings.TrimSpace(req.Grounding) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Grounding,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrBackendUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// OpenAIEmbedder produces query embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if strings.TrimSpace(model) == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrBackendUnavailable)
	}
	return resp.Data[0].Embedding, nil
}
