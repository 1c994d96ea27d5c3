package ai

import (
	"strconv"
	"strings"
)

const legalSystemPrompt = `You are LexDesk, a legal assistant for people in Latin America.
Answer in the language the user writes in. Explain the applicable law in plain terms,
cite the statute or article when you know it, and say clearly when the user should
consult a licensed lawyer. Never invent case numbers or citations.`

const titlePrompt = `Write a short title (at most 80 characters) that summarises the
user's first message. Reply with the title only, no quotes or punctuation at the end.`

// SystemPrompt returns the assistant prompt, optionally grounded on case
// excerpts.
func SystemPrompt(caseContext []string) string {
	if len(caseContext) == 0 {
		return legalSystemPrompt
	}
	var b strings.Builder
	b.WriteString(legalSystemPrompt)
	b.WriteString("\n\nRelevant excerpts from the user's case files:\n")
	for i, excerpt := range caseContext {
		b.WriteString("\n[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(strings.TrimSpace(excerpt))
	}
	return b.String()
}

// TitleMessages builds the request used to name a new chat.
func TitleMessages(firstMessage string) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: titlePrompt},
		{Role: "user", Content: firstMessage},
	}
}

// CleanTitle trims quotes and whitespace and bounds the length; fallback is
// used when the model returned nothing usable.
func CleanTitle(raw, fallback string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "\"'`")
	title = strings.TrimSpace(strings.SplitN(title, "\n", 2)[0])
	if title == "" {
		title = strings.TrimSpace(fallback)
	}
	runes := []rune(title)
	if len(runes) > 80 {
		title = string(runes[:80])
	}
	if title == "" {
		title = "New chat"
	}
	return title
}
