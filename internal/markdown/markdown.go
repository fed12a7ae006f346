// Package markdown renders note bodies for display and checks that they parse.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

const (
	MessageEmpty   = "Markdown is empty, considered valid."
	MessageValid   = "Markdown syntax appears valid."
	MessageInvalid = "Invalid Markdown syntax."
)

// ValidationResult is the outcome of Validate. A valid result only means the
// source parsed; it says nothing about style.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Processor renders markdown to sanitised HTML and validates markdown
// source. It holds no per-call state and is safe for concurrent use.
type Processor struct {
	engine goldmark.Markdown
	policy *bluemonday.Policy
}

func NewProcessor() *Processor {
	return &Processor{
		engine: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
				extension.TaskList,
			),
			// Raw HTML is passed through and then scrubbed by the policy.
			goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts source to HTML. Empty input gives empty output and no
// input is rejected: whatever the source holds is rendered per CommonMark,
// including a leading "---" block.
func (p *Processor) Render(source string) (out string) {
	if source == "" {
		return ""
	}

	body := []byte(source)

	defer func() {
		if r := recover(); r != nil {
			out = fallbackHTML(body)
		}
	}()

	var buf bytes.Buffer
	if err := p.engine.Convert(body, &buf); err != nil {
		return fallbackHTML(body)
	}
	return string(p.policy.SanitizeBytes(buf.Bytes()))
}

func fallbackHTML(body []byte) string {
	return "<p>" + html.EscapeString(string(body)) + "</p>\n"
}

// Validate runs a full parse of source. Empty input is valid.
func (p *Processor) Validate(source string) ValidationResult {
	if source == "" {
		return ValidationResult{IsValid: true, Message: MessageEmpty}
	}
	if err := p.parse(source); err != nil {
		return ValidationResult{IsValid: false, Message: MessageInvalid, Error: err.Error()}
	}
	return ValidationResult{IsValid: true, Message: MessageValid}
}

func (p *Processor) parse(source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markdown parse: %v", r)
		}
	}()

	if offset := invalidUTF8Offset(source); offset >= 0 {
		return fmt.Errorf("invalid UTF-8 sequence at byte %d", offset)
	}

	if doc := p.engine.Parser().Parse(text.NewReader([]byte(source))); doc == nil {
		return errors.New("markdown parse: no document produced")
	}
	return nil
}

func invalidUTF8Offset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// Metadata returns the keys of a leading YAML, TOML or JSON front matter
// block. It is informational only: source without a block, or whose block
// does not decode to a mapping, yields nil, and the block stays part of the
// markdown that Render and Validate see.
func Metadata(source string) map[string]any {
	var meta map[string]any
	if _, err := frontmatter.Parse(strings.NewReader(source), &meta); err != nil || len(meta) == 0 {
		return nil
	}
	return meta
}
