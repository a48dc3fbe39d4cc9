package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"admissionsbot/internal/domain"
)

// FallbackAnswer is the exact reply required when the data lacks the answer.
const FallbackAnswer = "I don't know the exact answer. For authoritative information, please visit the UMT admissions website: https://admissions.umt.edu.pk"

// ErrMissingCredential is returned before any provider call when no API key is set.
var ErrMissingCredential = errors.New("missing API key")

const answerTemplate = `
You are a helpful assistant. Use only the data provided below to answer the question.

Data:
{{.chunks_with_content}}

Question:
{{.query}}

Instructions:
- Answer accurately and concisely using **only** the provided data.
- If the answer is not in the provided data, respond exactly:
  "` + FallbackAnswer + `"
- Do NOT invent facts or guess.
- Keep language simple and friendly and respond to the user in their language.
`

// Composer renders the answer prompt and asks the chat model for a reply.
type Composer struct {
	completer domain.Completer
	template  prompts.PromptTemplate
}

func NewComposer(completer domain.Completer) *Composer {
	return &Composer{
		completer: completer,
		template:  prompts.NewPromptTemplate(answerTemplate, []string{"chunks_with_content", "query"}),
	}
}

// Prompt joins the document contents with newlines and fills the template.
func (c *Composer) Prompt(docs []domain.Document, query string) (string, error) {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	return c.template.Format(map[string]any{
		"chunks_with_content": strings.Join(contents, "\n"),
		"query":               query,
	})
}

// Compose returns the model's reply unmodified.
func (c *Composer) Compose(ctx context.Context, docs []domain.Document, query, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}
	prompt, err := c.Prompt(docs, query)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	answer, err := c.completer.Complete(ctx, prompt, credential)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return answer, nil
}
