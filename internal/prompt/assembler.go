// Package prompt assembles the ordered message list handed to chat models.
package prompt

import (
	"fmt"
	"strings"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// allowedImageMIMEs are the attachment types forwarded as image parts.
// Anything else is silently skipped.
var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// ContextSlot returns the placeholder token of retrieval slot n.
func ContextSlot(n int) string {
	return fmt.Sprintf("{context-%d}", n)
}

// Input carries everything a turn contributes to the prompt.
type Input struct {
	SystemPrompt string
	OutputFormat core.OutputFormat
	ContextSlots int
	History      []core.ChatTurnMessage
	Text         string
	Attachments  []core.Attachment
}

// Build assembles the message list in fixed order: one system message
// (persona, then format instruction, then one context line per retrieval
// slot; omitted entirely when all three are empty), the replayed history,
// then the current turn with image parts before the text part.
//
// Context lines carry literal {context-N} placeholders; the caller
// interpolates retrieved content before invoking the model.
func Build(in Input) []core.Message {
	messages := []core.Message{}

	if sys := systemText(in); sys != "" {
		messages = append(messages, core.TextMessage(core.RoleSystem, sys))
	}

	for _, h := range in.History {
		role := core.RoleAssistant
		if h.Role == core.RoleUser {
			role = core.RoleUser
		}
		messages = append(messages, core.TextMessage(role, h.Content))
	}

	turn := core.Message{Role: core.RoleUser}
	for _, att := range in.Attachments {
		if !allowedImageMIMEs[att.MimeType] {
			continue
		}
		turn.Parts = append(turn.Parts, core.ContentPart{
			Type:     core.PartImage,
			MIMEType: att.MimeType,
			Data:     att.Data,
		})
	}
	turn.Parts = append(turn.Parts, core.ContentPart{Type: core.PartText, Text: in.Text})
	messages = append(messages, turn)

	return messages
}

func systemText(in Input) string {
	lines := []string{}
	if in.SystemPrompt != "" {
		lines = append(lines, in.SystemPrompt)
	}
	if instr, ok := core.FormatInstructions[in.OutputFormat]; ok && in.SystemPrompt != "" {
		lines = append(lines, instr)
	}
	for i := 0; i < in.ContextSlots; i++ {
		lines = append(lines, "Context: "+ContextSlot(i))
	}
	return strings.Join(lines, "\n")
}

// Interpolate substitutes resolved context values into the system message.
// values maps slot index to retrieved content. Messages without
// placeholders pass through untouched.
func Interpolate(messages []core.Message, values map[int]string) []core.Message {
	if len(values) == 0 {
		return messages
	}
	out := make([]core.Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role != core.RoleSystem {
			continue
		}
		parts := make([]core.ContentPart, len(m.Parts))
		copy(parts, m.Parts)
		for j, p := range parts {
			if p.Type != core.PartText {
				continue
			}
			for n, v := range values {
				p.Text = strings.ReplaceAll(p.Text, ContextSlot(n), v)
			}
			parts[j] = p
		}
		out[i].Parts = parts
	}
	return out
}
