package windowing_test

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/go-translator/memory"
)

// Text block constructor
func T(text string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{OfText: &anthropic.TextBlockParam{Text: text}}
}

// Assistant message constructor
func Asst(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: blocks}
}

// User message constructor
func User(blocks ...anthropic.ContentBlockParamUnion) anthropic.MessageParam {
	return anthropic.MessageParam{Role: anthropic.MessageParamRoleUser, Content: blocks}
}

// U and A build stored history entries.
func U(s string) memory.Message { return memory.Message{Role: memory.RoleUser, Content: s} }
func A(s string) memory.Message { return memory.Message{Role: memory.RoleAssistant, Content: s} }

// textOf returns the text of a single-block message.
func textOf(m anthropic.MessageParam) string {
	if len(m.Content) != 1 || m.Content[0].OfText == nil {
		return ""
	}
	return m.Content[0].OfText.Text
}
