package summarizer

import (
	"fmt"
	"strings"

	"github.com/localrivet/chatcycle/internal/errortypes"
)

// Placeholder marks where the content goes in a prompt template.
const Placeholder = "{text}"

// DefaultPromptTemplate asks for a summary of about 300 words.
const DefaultPromptTemplate = `
Please provide a concise summary of the following content in about 300 words.
Focus on key points and main ideas:

Content:{text}

SUMMARY:
`

// PromptTemplate is a prompt with exactly one Placeholder.
type PromptTemplate struct {
	before string
	after  string
}

// ParseTemplate validates tpl and splits it around its placeholder.
func ParseTemplate(tpl string) (PromptTemplate, error) {
	if n := strings.Count(tpl, Placeholder); n != 1 {
		return PromptTemplate{}, errortypes.ValidationError(
			fmt.Errorf("template has %d %s placeholders, want exactly 1", n, Placeholder),
			"invalid prompt template")
	}
	before, after, _ := strings.Cut(tpl, Placeholder)
	return PromptTemplate{before: before, after: after}, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(tpl string) PromptTemplate {
	t, err := ParseTemplate(tpl)
	if err != nil {
		panic(err)
	}
	return t
}

// Render substitutes content into the template. Content is inserted
// verbatim, so placeholders inside it are not expanded.
func (t PromptTemplate) Render(content string) string {
	return t.before + content + t.after
}

// String returns the template source.
func (t PromptTemplate) String() string {
	return t.before + Placeholder + t.after
}
