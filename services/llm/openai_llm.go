package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client for one OpenAI model. The API key comes
// from OPENAI_API_KEY or the Podman secret file.
func NewOpenAIClient(model string) (*OpenAIClient, error) {
	key, err := LoadSecretKey("OPENAI_API_KEY", "/run/secrets/openai_api_key")
	if err != nil {
		slog.Error("OpenAI API key not available", "error", err)
		return nil, err
	}
	apiKey, err := key.Reveal()
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OpenAI model not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Chat implements the LLMClient interface.
func (o *OpenAIClient) Chat(ctx context.Context, messages []datatypes.Message,
	params GenerationParams) (string, error) {

	slog.Debug("Generating chat completion via OpenAI", "model", o.model)
	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(messages, params, false))
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", o.classify(err)
	}

	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices or empty content")
		return "", NewModelError(KindUnknown, o.model, fmt.Errorf("OpenAI returned no choices"))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", NewModelError(KindSafetyBlocked, o.model, fmt.Errorf("generation stopped by content filter"))
	}
	slog.Debug("Received response from OpenAI", "finish_reason", choice.FinishReason)
	return choice.Message.Content, nil
}

// ChatStream implements the LLMClient interface using OpenAI's native
// streaming API.
func (o *OpenAIClient) ChatStream(ctx context.Context, messages []datatypes.Message,
	params GenerationParams, callback StreamCallback) error {

	slog.Debug("Streaming chat completion via OpenAI", "model", o.model)
	stream, err := o.client.CreateChatCompletionStream(ctx, o.buildRequest(messages, params, true))
	if err != nil {
		slog.Error("OpenAI stream open failed", "error", err)
		return o.classify(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return callback(StreamChunk{Done: true})
		}
		if err != nil {
			return o.classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if token := resp.Choices[0].Delta.Content; token != "" {
			if err := callback(StreamChunk{Token: token}); err != nil {
				return err
			}
		}
	}
}

func (o *OpenAIClient) buildRequest(messages []datatypes.Message,
	params GenerationParams, stream bool) openai.ChatCompletionRequest {

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == datatypes.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: chatMessages,
		Stream:   stream,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}
	return req
}

// classify maps go-openai errors onto the shared ModelError taxonomy.
func (o *OpenAIClient) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return NewModelError(KindRateLimited, o.model, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewModelError(KindAuthError, o.model, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewModelError(KindTimeout, o.model, err)
	}
	return NewModelError(KindUnknown, o.model, fmt.Errorf("OpenAI API call failed: %w", err))
}

var _ LLMClient = (*OpenAIClient)(nil)
