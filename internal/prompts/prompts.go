// Package prompts holds the assistant's system prompt.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed system.txt
var system string

// System returns the system prompt sent as the first message of every
// conversation.
func System() string {
	return strings.TrimSpace(system)
}
