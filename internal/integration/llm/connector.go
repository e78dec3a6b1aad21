// Package llm provides the chat completion connector backed by an
// OpenAI-compatible API, plus a mock used for local development.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/protolab/prototype-backend/internal/config"
	"github.com/protolab/prototype-backend/internal/entity"
)

type Connector struct {
	config config.LLMConnectorConfig
	client *openai.Client
	logger *zap.Logger
}

func NewConnector(cfg config.LLMConnectorConfig, logger *zap.Logger) *Connector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Connector{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Complete performs a single-shot chat completion with retries.
func (c *Connector) Complete(ctx context.Context, messages []entity.ChatMessage) (string, error) {
	ctxzap.Info(ctx, "requesting chat completion",
		zap.String("model", c.config.Model),
		zap.Int("message_count", len(messages)),
	)

	var content string
	err := retry.Do(func() error {
		resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, false))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion response has no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	ctxzap.Info(ctx, "chat completion received", zap.Int("result_length", len(content)))

	return content, nil
}

// StreamComplete streams the completion through onChunk and returns the
// accumulated text. The stream is not retried: a mid-stream failure would
// replay chunks the caller already forwarded.
func (c *Connector) StreamComplete(ctx context.Context, messages []entity.ChatMessage, onChunk func(chunk string)) (string, error) {
	ctxzap.Info(ctx, "requesting streaming chat completion",
		zap.String("model", c.config.Model),
		zap.Int("message_count", len(messages)),
	)

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messages, true))
	if err != nil {
		return "", fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var content string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read completion stream: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content += delta
		onChunk(delta)
	}

	ctxzap.Info(ctx, "streaming chat completion finished", zap.Int("result_length", len(content)))

	return content, nil
}

func (c *Connector) buildRequest(messages []entity.ChatMessage, stream bool) openai.ChatCompletionRequest {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, convertMessage(msg))
	}

	return openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    converted,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		Stream:      stream,
	}
}

// convertMessage maps one prompt message to the wire format. Messages with
// image attachments become multi-part content so vision models can see them.
func convertMessage(msg entity.ChatMessage) openai.ChatCompletionMessage {
	if len(msg.ImageURLs) == 0 {
		return openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: msg.Content,
	}}
	for _, url := range msg.ImageURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url},
		})
	}

	return openai.ChatCompletionMessage{
		Role:         string(msg.Role),
		MultiContent: parts,
	}
}
