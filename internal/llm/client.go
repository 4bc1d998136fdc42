// Package llm is a minimal client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// Message roles understood by the chat API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage is the token accounting reported with a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Message Message
	Usage   Usage
}

// Chatter produces one completion for a message history.
type Chatter interface {
	Chat(ctx context.Context, msgs []Message, tools []mcp.Tool) (*Completion, error)
}

// Client talks to POST {base}/chat/completions.
type Client struct {
	http  *resty.Client
	model string
}

func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c, model: model}
}

type functionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolDef struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []toolDef `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// toolDefs renders MCP tool definitions as chat-completion function tools.
func toolDefs(tools []mcp.Tool) ([]toolDef, error) {
	out := make([]toolDef, 0, len(tools))
	for _, t := range tools {
		params := t.RawInputSchema
		if len(params) == 0 {
			raw, err := json.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("encode schema of %s: %w", t.Name, err)
			}
			params = raw
		}
		out = append(out, toolDef{
			Type:     "function",
			Function: functionDef{Name: t.Name, Description: t.Description, Parameters: params},
		})
	}
	return out, nil
}

// Chat requests one completion. Transport and non-2xx failures are reported
// as model.ErrUpstreamUnavailable.
func (c *Client) Chat(ctx context.Context, msgs []Message, tools []mcp.Tool) (*Completion, error) {
	defs, err := toolDefs(tools)
	if err != nil {
		return nil, err
	}
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&chatRequest{Model: c.model, Messages: msgs, Tools: defs}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: chat request: %w", model.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: chat status %d: %s", model.ErrUpstreamUnavailable, resp.StatusCode(), resp.String())
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat response has no choices", model.ErrUpstreamUnavailable)
	}
	return &Completion{Message: out.Choices[0].Message, Usage: out.Usage}, nil
}
