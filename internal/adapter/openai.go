package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/amrita-ai/amrita/internal/backoff"
	"github.com/amrita-ai/amrita/pkg/models"
)

// OpenAIAdapter is the reference OpenAI-compatible adapter. It speaks
// the chat-completions wire protocol against any base URL, streams
// content deltas, and accumulates tool-call fragments by index into the
// terminal UniResponse.
type OpenAIAdapter struct {
	preset models.ModelPreset
	cfg    models.LLMConfig
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI constructs the reference adapter for a preset.
func NewOpenAI(preset models.ModelPreset, cfg models.LLMConfig) (Adapter, error) {
	clientCfg := openai.DefaultConfig(preset.APIKey)
	if preset.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(preset.BaseURL, "/")
	}
	return &OpenAIAdapter{
		preset: preset,
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: slog.Default().With("component", "adapter.openai", "preset", preset.Name),
	}, nil
}

// RegisterOpenAI binds the reference adapter to its protocol tags.
func RegisterOpenAI(r *Registry) error {
	return r.Register(NewOpenAI, true, "openai", "__main__")
}

// CallAPI implements the Adapter contract.
func (a *OpenAIAdapter) CallAPI(ctx context.Context, messages []models.Message, tools []models.ToolFunctionSchema) (<-chan Chunk, error) {
	req := a.buildRequest(messages, tools)

	if !a.preset.Config.Stream {
		return a.callOnce(ctx, req)
	}
	return a.callStreaming(ctx, req)
}

func (a *OpenAIAdapter) buildRequest(messages []models.Message, tools []models.ToolFunctionSchema) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       a.preset.Model,
		Messages:    convertMessages(messages),
		Temperature: float32(a.preset.Config.Temperature),
		TopP:        float32(a.preset.Config.TopP),
	}
	if a.cfg.MaxTokens > 0 {
		req.MaxTokens = a.cfg.MaxTokens
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
		req.ToolChoice = "auto"
	}
	return req
}

func (a *OpenAIAdapter) timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.LLMTimeoutSeconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(a.cfg.LLMTimeoutSeconds)*time.Second)
}

func (a *OpenAIAdapter) attempts() int {
	if a.cfg.AutoRetry && a.cfg.MaxRetries > 0 {
		return a.cfg.MaxRetries
	}
	return 1
}

// callOnce performs a non-streaming completion; the sequence holds the
// terminal element only.
func (a *OpenAIAdapter) callOnce(ctx context.Context, req openai.ChatCompletionRequest) (<-chan Chunk, error) {
	callCtx, cancel := a.timeoutCtx(ctx)
	req.Stream = false

	resp, err := backoff.Retry(callCtx, backoff.DefaultPolicy(), a.attempts(), func(attempt int) (openai.ChatCompletionResponse, error) {
		if attempt > 1 {
			a.logger.Warn("retrying completion", "attempt", attempt)
		}
		return a.client.CreateChatCompletion(callCtx, req)
	})
	if err != nil {
		cancel()
		return nil, WrapError(a.preset.Name, err)
	}

	out := make(chan Chunk, 1)
	go func() {
		defer close(out)
		defer cancel()
		if len(resp.Choices) == 0 {
			out <- Chunk{Err: WrapError(a.preset.Name, fmt.Errorf("response has no choices"))}
			return
		}
		choice := resp.Choices[0]
		final := models.NewUniResponse(choice.Message.Content, convertToolCallsBack(choice.Message.ToolCalls))
		final.Usage = &models.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		}
		out <- Chunk{Final: final}
	}()
	return out, nil
}

// callStreaming opens the SSE stream (with retry on open) and assembles
// deltas in a goroutine. Text deltas are forwarded as they arrive; tool
// call fragments are accumulated by index and never streamed.
func (a *OpenAIAdapter) callStreaming(ctx context.Context, req openai.ChatCompletionRequest) (<-chan Chunk, error) {
	callCtx, cancel := a.timeoutCtx(ctx)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := backoff.Retry(callCtx, backoff.DefaultPolicy(), a.attempts(), func(attempt int) (*openai.ChatCompletionStream, error) {
		if attempt > 1 {
			a.logger.Warn("retrying stream open", "attempt", attempt)
		}
		return a.client.CreateChatCompletionStream(callCtx, req)
	})
	if err != nil {
		cancel()
		return nil, WrapError(a.preset.Name, err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		var content strings.Builder
		calls := map[int]*models.ToolCall{}
		maxIndex := -1
		var usage *models.Usage

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- Chunk{Final: assembleFinal(content.String(), calls, maxIndex, usage)}
				return
			}
			if err != nil {
				out <- Chunk{Err: WrapError(a.preset.Name, err)}
				return
			}
			if resp.Usage != nil {
				usage = &models.Usage{
					Prompt:     resp.Usage.PromptTokens,
					Completion: resp.Usage.CompletionTokens,
					Total:      resp.Usage.TotalTokens,
				}
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta

			if delta.Content != "" {
				content.WriteString(delta.Content)
				select {
				case out <- Chunk{Delta: delta.Content}:
				case <-callCtx.Done():
					out <- Chunk{Err: WrapError(a.preset.Name, callCtx.Err())}
					return
				}
			}

			for _, tc := range delta.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}
				if index > maxIndex {
					maxIndex = index
				}
				acc := calls[index]
				if acc == nil {
					acc = &models.ToolCall{Type: "function"}
					calls[index] = acc
				}
				if tc.ID != "" {
					acc.ID = tc.ID
				}
				if tc.Function.Name != "" {
					acc.Function.Name = tc.Function.Name
				}
				acc.Function.Arguments += tc.Function.Arguments
			}
		}
	}()
	return out, nil
}

func assembleFinal(content string, calls map[int]*models.ToolCall, maxIndex int, usage *models.Usage) *models.UniResponse {
	var toolCalls []models.ToolCall
	for i := 0; i <= maxIndex; i++ {
		if tc := calls[i]; tc != nil && tc.ID != "" && tc.Function.Name != "" {
			toolCalls = append(toolCalls, *tc)
		}
	}
	final := models.NewUniResponse(content, toolCalls)
	final.Usage = usage
	return final
}

func convertMessages(messages []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		if m.IsStructured() {
			parts := make([]openai.ChatMessagePart, 0, len(m.Parts))
			for _, p := range m.Parts {
				switch p.Type {
				case models.PartImage:
					parts = append(parts, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.URL},
					})
				default:
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Text,
					})
				}
			}
			oaiMsg.MultiContent = parts
		} else {
			oaiMsg.Content = m.Content
		}
		if len(m.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				oaiMsg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}
		out = append(out, oaiMsg)
	}
	return out
}

func convertTools(tools []models.ToolFunctionSchema) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		fn := t.Function
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		}
	}
	return out
}

func convertToolCallsBack(calls []openai.ToolCall) []models.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]models.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = models.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return out
}
