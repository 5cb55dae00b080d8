// Package gateway adapts conversation history to the Gemini API and shields
// the caller from transport faults: every failure becomes a human-readable
// fallback string, never an error.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
	"omnichat/internal/logging"
)

// Model routing: image-bearing requests need a vision-capable variant.
const (
	DefaultTextModel   = "gemini-3-pro-preview"
	DefaultVisionModel = "gemini-3-flash-preview"
)

// Sampling parameters are fixed by design, not user-configurable.
const (
	temperature float32 = 0.8
	topP        float32 = 0.95
	topK        float32 = 40
)

// Fallback responses returned in place of errors. The orchestrator commits
// these to history like any other assistant turn, so the conversation stays
// consistent regardless of outcome.
const (
	FallbackEmpty      = "I'm sorry, I'm having trouble processing that right now. Could you try again?"
	FallbackInvalidKey = "ERROR: Invalid API Key. Please check your configuration."
	FallbackGeneric    = "An unexpected error occurred. Please check your connection and try again."
)

// Options carries optional style directives and the staged image for a
// single generation call.
type Options struct {
	Tone   chat.Tone
	Format chat.Format
	Image  *attachment.ImagePayload
}

// Gateway is the boundary adapter to the Gemini generation capability.
type Gateway struct {
	client      *genai.Client
	textModel   string
	visionModel string
}

// New creates a gateway bound to the given API key. Model overrides are
// optional; empty strings select the defaults.
func New(ctx context.Context, apiKey, textModel, visionModel string) (*Gateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if textModel == "" {
		textModel = DefaultTextModel
	}
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	return &Gateway{client: client, textModel: textModel, visionModel: visionModel}, nil
}

// Generate maps the history to the Gemini protocol, augments the system
// prompt with any style directives, and returns generated text. It never
// returns an error: failures come back as fallback messages.
func (g *Gateway) Generate(ctx context.Context, history []chat.Message, systemPrompt string, opts Options) string {
	instruction := BuildSystemInstruction(systemPrompt, opts.Tone, opts.Format)
	contents := mapHistory(history)
	if opts.Image != nil {
		attachImage(contents, opts.Image)
	}

	model := g.textModel
	if opts.Image != nil {
		model = g.visionModel
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
		TopP:              genai.Ptr[float32](topP),
		TopK:              genai.Ptr[float32](topK),
	}

	logging.API("generate: model=%s turns=%d image=%v", model, len(contents), opts.Image != nil)
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		logging.APIError("generate failed: %v", err)
		return fallbackForError(err)
	}

	text := resp.Text()
	if text == "" {
		return FallbackEmpty
	}
	return text
}

// BuildSystemInstruction augments the persona prompt deterministically:
// base, then tone clause, then format clause, then the table-specific
// clause, each on its own line.
func BuildSystemInstruction(base string, tone chat.Tone, format chat.Format) string {
	instruction := base
	if tone != "" {
		instruction += fmt.Sprintf("\n- TONE: Please respond in a %s manner.", strings.ToLower(string(tone)))
	}
	if format != "" {
		instruction += fmt.Sprintf("\n- FORMAT: Present your answer specifically as a %s.", strings.ToLower(string(format)))
	}
	if format == chat.FormatTable {
		instruction += "\n- Use Markdown tables with clear headers."
	}
	return instruction
}

// mapHistory converts internal messages to the external role vocabulary:
// user -> "user", assistant -> "model". Ordering is preserved exactly.
func mapHistory(history []chat.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		var role genai.Role = genai.RoleModel
		if m.Role == chat.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// attachImage adds the image as an inline part on the last user turn (the
// current query). If no user turn exists the image is silently dropped.
func attachImage(contents []*genai.Content, img *attachment.ImagePayload) {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role == string(genai.RoleUser) {
			contents[i].Parts = append(contents[i].Parts, genai.NewPartFromBytes(img.Data, img.MIME))
			return
		}
	}
}

// fallbackForError distinguishes credential failures from everything else.
func fallbackForError(err error) string {
	if strings.Contains(err.Error(), "API_KEY_INVALID") {
		return FallbackInvalidKey
	}
	return FallbackGeneric
}
