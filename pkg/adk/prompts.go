package adk

import (
	_ "embed"
	"strings"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

// GetSystemPrompt returns the default system prompt, followed by any session
// context lines such as what is currently loaded.
func GetSystemPrompt(context ...string) string {
	prompt := strings.TrimSpace(systemPrompt)
	if len(context) == 0 {
		return prompt
	}
	return prompt + "\n\nSession context:\n- " + strings.Join(context, "\n- ")
}
