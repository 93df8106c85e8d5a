package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"qalog/internal/port"
)

var _ port.LLM = (*MockLLM)(nil)

// MockLLM answers without a network call. Answer, when set, is returned
// verbatim; otherwise the reply only describes the prompt it was given.
type MockLLM struct {
	Answer string
}

func (m *MockLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Answer != "" {
		return m.Answer, nil
	}
	return fmt.Sprintf("mock answer for a %d-character prompt", utf8.RuneCountInString(userPrompt)), nil
}

func (m *MockLLM) ModelName() string {
	return "mock"
}
