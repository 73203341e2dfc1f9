// Package assistant answers household finance questions with an
// OpenAI-compatible chat model that may read the ledger through a guarded
// query tool.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/household-ledger/internal/common"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"

	toolName = "query_database"
)

// Roles used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Executor runs a statement and describes the outcome as text.
type Executor interface {
	Execute(ctx context.Context, sql string) string
}

// Config holds the connection settings.
type Config struct {
	Clock   func() time.Time
	APIKey  string
	Model   string
	BaseURL string
	Owners  []string
	Retry   common.RetryOptions
	Timeout time.Duration
}

// Message is one turn of the conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model      string    `json:"model"`
	ToolChoice string    `json:"tool_choice,omitempty"`
	Messages   []Message `json:"messages"`
	Tools      []tool    `json:"tools,omitempty"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Parameters  map[string]any `json:"parameters"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Assistant is a chat client bound to a query executor.
type Assistant struct {
	httpClient *http.Client
	executor   Executor
	clock      func() time.Time
	apiKey     string
	model      string
	baseURL    string
	owners     []string
	retry      common.RetryOptions
}

// New creates an assistant. An API key is required.
func New(cfg Config, executor Executor) (*Assistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: assistant API key is required", common.ErrMissingConfig)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: assistant needs a query executor", common.ErrInvalidConfig)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Assistant{
		apiKey:   cfg.APIKey,
		model:    model,
		baseURL:  baseURL,
		owners:   cfg.Owners,
		retry:    cfg.Retry,
		executor: executor,
		clock:    clock,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Ask answers the last user message in history. The model may first
// request queries, which run through the executor; a second call then
// produces the answer. Failures come back as a message, never an error.
func (a *Assistant) Ask(ctx context.Context, history []Message) string {
	messages := make([]Message, 0, len(history)+4)
	messages = append(messages, Message{Role: RoleSystem, Content: a.systemPrompt()})
	messages = append(messages, history...)

	first, err := a.complete(ctx, chatRequest{
		Model:      a.model,
		Messages:   messages,
		Tools:      []tool{queryTool()},
		ToolChoice: "auto",
	})
	if err != nil {
		return failureMessage(err)
	}
	if len(first.ToolCalls) == 0 {
		return first.Content
	}

	messages = append(messages, first)
	for _, call := range first.ToolCalls {
		messages = append(messages, Message{
			Role:       RoleTool,
			ToolCallID: call.ID,
			Content:    a.runTool(ctx, call),
		})
	}

	final, err := a.complete(ctx, chatRequest{Model: a.model, Messages: messages})
	if err != nil {
		return failureMessage(err)
	}
	return final.Content
}

func (a *Assistant) runTool(ctx context.Context, call ToolCall) string {
	if call.Function.Name != toolName {
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}
	var args struct {
		SQL string `json:"sql"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return fmt.Sprintf("Error: invalid tool arguments: %v", err)
	}
	slog.Debug("Assistant query", "sql", args.SQL)
	return a.executor.Execute(ctx, args.SQL)
}

func (a *Assistant) complete(ctx context.Context, body chatRequest) (Message, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var response chatResponse
	err = common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.apiKey)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", common.ErrRateLimit, strings.TrimSpace(string(raw)))
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		case resp.StatusCode != http.StatusOK:
			return &common.RetryableError{
				Err:       fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw))),
				Retryable: false,
			}
		}

		if err := json.Unmarshal(raw, &response); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: false}
		}
		return nil
	}, a.retry)
	if err != nil {
		return Message{}, err
	}

	if len(response.Choices) == 0 {
		return Message{}, errors.New("no completion choices returned")
	}
	return response.Choices[0].Message, nil
}

func failureMessage(err error) string {
	slog.Warn("Assistant request failed", "error", err)
	return "The assistant could not answer: " + err.Error()
}

func queryTool() tool {
	return tool{
		Type: "function",
		Function: toolFunction{
			Name: toolName,
			Description: "Run one read-only SQLite SELECT against the household ledger. " +
				"Query only what the question needs. Exclude transfers (tx_type = 'transfer').",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sql": map[string]any{
						"type":        "string",
						"description": "A single statement starting with SELECT or WITH.",
					},
				},
				"required": []string{"sql"},
			},
		},
	}
}
