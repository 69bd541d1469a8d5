package rewrite

import "strings"

const systemPrompt = `You are a writing assistant. Rewrite the text the user provides.
Preserve the original meaning and language. Improve clarity, flow, and tone.
Return only the rewritten text with no preamble or commentary.`

func buildSystemPrompt(instruction string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nAdditional instruction: " + instruction
}
