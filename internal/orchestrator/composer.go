package orchestrator

import (
	"sync"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
)

// Composer holds the pending send state: typed text, staged attachments,
// and style directives. At most one attachment of each kind is staged at a
// time; staging a new one of the same kind replaces the previous one.
type Composer struct {
	mu       sync.Mutex
	text     string
	image    *attachment.ImagePayload
	document *attachment.DocumentPayload
	tone     chat.Tone
	format   chat.Format
}

// SetText replaces the pending input text.
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
}

// Text returns the pending input text.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// StageImage stages an image, replacing any previously staged image.
func (c *Composer) StageImage(p *attachment.ImagePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = p
}

// StageDocument stages a document, replacing any previously staged document.
func (c *Composer) StageDocument(p *attachment.DocumentPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.document = p
}

// Image returns the staged image, or nil.
func (c *Composer) Image() *attachment.ImagePayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// Document returns the staged document, or nil.
func (c *Composer) Document() *attachment.DocumentPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document
}

// ClearImage discards the staged image.
func (c *Composer) ClearImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
}

// ClearDocument discards the staged document.
func (c *Composer) ClearDocument() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.document = nil
}

// SetTone sets the tone directive. Empty clears it.
func (c *Composer) SetTone(t chat.Tone) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tone = t
}

// SetFormat sets the format directive. Empty clears it.
func (c *Composer) SetFormat(f chat.Format) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = f
}

// Tone returns the selected tone directive.
func (c *Composer) Tone() chat.Tone {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tone
}

// Format returns the selected format directive.
func (c *Composer) Format() chat.Format {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format
}

// take atomically snapshots and clears the text and staged attachments, so
// the user can start composing the next message while a send is in flight.
// Tone and format directives persist across sends.
func (c *Composer) take() (text string, img *attachment.ImagePayload, doc *attachment.DocumentPayload, tone chat.Tone, format chat.Format) {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, img, doc, tone, format = c.text, c.image, c.document, c.tone, c.format
	c.text = ""
	c.image = nil
	c.document = nil
	return
}
