package adk

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// DefaultMaxSteps bounds the tool calls answered for a single user message.
const DefaultMaxSteps = 8

var ErrTooManySteps = errors.New("agent exceeded the maximum number of tool calls")

// Tool represents an executable action for the agent
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}, progress func(string)) (string, error)
	Schema() map[string]interface{} // JSON schema for arguments
}

// ToolCall represents a request from the LLM to execute a tool
type ToolCall struct {
	ToolName string
	Args     map[string]interface{}
}

// Message represents a chat message
type Message struct {
	Role    string // "user", "model", "system", "function"
	Content string
}

// LLMProvider defines the interface for different AI models
type LLMProvider interface {
	GenerateResponse(ctx context.Context, history []Message, tools []Tool) (string, *ToolCall, error)
	ListModels(ctx context.Context) ([]string, error)
}

// Agent is the triage assistant: it relays user questions to the model and
// runs the tools the model asks for.
type Agent struct {
	llm      LLMProvider
	tools    map[string]Tool
	history  []Message
	MaxSteps int
}

func NewAgent(llm LLMProvider) *Agent {
	return &Agent{
		llm:      llm,
		tools:    make(map[string]Tool),
		MaxSteps: DefaultMaxSteps,
	}
}

// RegisterTool adds a tool to the agent's registry
func (a *Agent) RegisterTool(t Tool) {
	a.tools[t.Name()] = t
}

// SetSystemPrompt replaces any previous system prompt at the head of the history.
func (a *Agent) SetSystemPrompt(prompt string) {
	if len(a.history) > 0 && a.history[0].Role == "system" {
		a.history[0].Content = prompt
		return
	}
	a.history = append([]Message{{Role: "system", Content: prompt}}, a.history...)
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []Message {
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Tools returns the registered tools ordered by name.
func (a *Agent) Tools() []Tool {
	list := make([]Tool, 0, len(a.tools))
	for _, t := range a.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Chat sends a message to the agent and returns the response
func (a *Agent) Chat(ctx context.Context, input string, progress func(string)) (string, error) {
	a.history = append(a.history, Message{Role: "user", Content: input})

	tools := a.Tools()
	for step := 0; ; step++ {
		if a.MaxSteps > 0 && step >= a.MaxSteps {
			return "", errors.Wrapf(ErrTooManySteps, "after %d steps", step)
		}

		respText, toolCall, err := a.llm.GenerateResponse(ctx, a.history, tools)
		if err != nil {
			return "", err
		}

		if toolCall == nil {
			a.history = append(a.history, Message{Role: "model", Content: respText})
			return respText, nil
		}

		log.Debug().Str("tool", toolCall.ToolName).Interface("args", toolCall.Args).Msg("executing tool")

		a.history = append(a.history, Message{
			Role:    "model",
			Content: fmt.Sprintf("I will call tool %s with args %v", toolCall.ToolName, toolCall.Args),
		})

		tool, exists := a.tools[toolCall.ToolName]
		if !exists {
			a.history = append(a.history, Message{Role: "function", Content: fmt.Sprintf("Error: Tool %s not found", toolCall.ToolName)})
			continue
		}

		result, err := tool.Execute(ctx, toolCall.Args, progress)
		if err != nil {
			result = fmt.Sprintf("Error executing tool: %v", err)
		}

		a.history = append(a.history, Message{
			Role:    "function",
			Content: fmt.Sprintf("Tool %s returned: %s", toolCall.ToolName, result),
		})
	}
}
