// Package orchestrator turns a user's compose action into a persisted
// message pair: it validates the request, enforces the quota, assembles the
// augmented prompt, appends the user turn optimistically, invokes the
// generation gateway, and commits the result.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
	"omnichat/internal/gateway"
	"omnichat/internal/logging"
	"omnichat/internal/persona"
	"omnichat/internal/store"
)

// State is the terminal state of a send attempt.
type State int

const (
	// StateRejected: validation failed; no side effects at all.
	StateRejected State = iota
	// StateBlocked: quota exceeded for a non-pro profile; paywall signaled,
	// nothing mutated.
	StateBlocked
	// StateCommitted: user turn and assistant turn both appended. Fallback
	// texts from the gateway commit like any other reply.
	StateCommitted
	// StateFailed: a fault escaped the gateway call path. The user turn and
	// counter increment stand (optimistic phase is unconditional); no
	// assistant turn is appended.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRejected:
		return "rejected"
	case StateBlocked:
		return "blocked"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Default query used when a document is attached and the user typed nothing.
const defaultAnalyzeQuery = "Please analyze this document."

// Generator is the generation capability the orchestrator calls exactly
// once per send. Implementations return text unconditionally; transport
// failures surface as fallback strings, not errors.
type Generator interface {
	Generate(ctx context.Context, history []chat.Message, systemPrompt string, opts gateway.Options) string
}

// Result reports the outcome of one send attempt.
type Result struct {
	State            State
	Paywall          bool
	UserMessage      *chat.Message
	AssistantMessage *chat.Message
}

// Orchestrator drives the send pipeline against a single session store.
type Orchestrator struct {
	store    *store.SessionStore
	gen      Generator
	composer Composer

	// One send at a time, matching the single-threaded reference design.
	// Each send captures its own target chat id, so lifting this later only
	// requires removing the lock.
	sendMu     sync.Mutex
	generating atomic.Bool
}

// New creates an orchestrator over the given store and generator.
func New(st *store.SessionStore, gen Generator) *Orchestrator {
	return &Orchestrator{store: st, gen: gen}
}

// Composer returns the pending-send staging area.
func (o *Orchestrator) Composer() *Composer {
	return &o.composer
}

// Generating reports whether a generation call is in flight. The flag is
// set for the entire gateway call span and cleared on every outcome,
// including faults.
func (o *Orchestrator) Generating() bool {
	return o.generating.Load()
}

// Send submits the composer's pending state to the chat with the given id.
func (o *Orchestrator) Send(ctx context.Context, chatID string) Result {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	text, img, doc, tone, format := o.composer.take()
	res := o.send(ctx, chatID, text, img, doc, tone, format)
	if res.State == StateRejected || res.State == StateBlocked {
		// Nothing was consumed; restore the staged state so the user can
		// retry (or upgrade) without re-attaching.
		o.restore(text, img, doc)
	}
	return res
}

// SendText submits literal text with no staged attachments, used by quick
// prompts that bypass the composer.
func (o *Orchestrator) SendText(ctx context.Context, chatID, text string) Result {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()
	return o.send(ctx, chatID, text, nil, nil, o.composer.Tone(), o.composer.Format())
}

func (o *Orchestrator) restore(text string, img *attachment.ImagePayload, doc *attachment.DocumentPayload) {
	o.composer.SetText(text)
	if img != nil {
		o.composer.StageImage(img)
	}
	if doc != nil {
		o.composer.StageDocument(doc)
	}
}

func (o *Orchestrator) send(ctx context.Context, chatID, text string, img *attachment.ImagePayload, doc *attachment.DocumentPayload, tone chat.Tone, format chat.Format) Result {
	text = strings.TrimSpace(text)

	// Validating: the only pure validation failure, produces no side effect.
	if chatID == "" || (text == "" && img == nil && doc == nil) {
		return Result{State: StateRejected}
	}
	target, ok := o.store.Chat(chatID)
	if !ok {
		logging.SessionError("send to unknown chat %s rejected", chatID)
		return Result{State: StateRejected}
	}

	// QuotaCheck: blocked sends mutate nothing and surface the paywall.
	if !o.store.Profile().CanSend() {
		logging.Session("send blocked by quota (chat=%s)", chatID)
		return Result{State: StateBlocked, Paywall: true}
	}

	// ComposingPrompt: the transmitted prompt may be synthesized from an
	// attached document; the displayed message always shows the user's
	// literal text or a placeholder.
	finalPrompt := text
	if doc != nil {
		query := text
		if query == "" {
			query = defaultAnalyzeQuery
		}
		finalPrompt = fmt.Sprintf("[Attached File: %s]\n---\n%s\n---\nUser Query: %s", doc.Name, doc.Content, query)
	}

	display := text
	if display == "" {
		if doc != nil {
			display = fmt.Sprintf("Analyzing %s...", doc.Name)
		} else {
			display = "Analyzing image..."
		}
	}

	userMsg := chat.NewMessage(chat.RoleUser, display)
	switch {
	case img != nil:
		userMsg.Attachment = &chat.Attachment{Kind: chat.AttachmentImage, Locator: img.DataURL}
	case doc != nil:
		userMsg.Attachment = &chat.Attachment{Kind: chat.AttachmentFile, Locator: "#", Name: doc.Name}
	}

	titleHint := text
	if titleHint == "" && doc != nil {
		titleHint = doc.Name
	}

	// Optimistic phase: user turn, title, and counter commit before the
	// external call, unconditionally. We count attempts, not successes.
	priorMessages := target.Messages
	o.store.AppendMessage(chatID, userMsg, titleHint)
	o.store.UpdateProfile(func(p *chat.UserProfile) {
		p.MessageCount++
	})

	// AwaitingGeneration: the history carries the synthesized prompt in
	// place of the displayed user content.
	promptMsg := userMsg
	promptMsg.Content = finalPrompt
	history := make([]chat.Message, 0, len(priorMessages)+1)
	history = append(history, priorMessages...)
	history = append(history, promptMsg)

	p := persona.FindOrDefault(persona.ID(target.PersonaID))

	o.generating.Store(true)
	reply, fault := o.generate(ctx, history, p.SystemPrompt, gateway.Options{
		Tone:   tone,
		Format: format,
		Image:  img,
	})
	o.generating.Store(false)

	if fault != nil {
		logging.SessionError("send failed (chat=%s): %v", chatID, fault)
		return Result{State: StateFailed, UserMessage: &userMsg}
	}

	assistantMsg := chat.NewMessage(chat.RoleAssistant, reply)
	o.store.AppendMessage(chatID, assistantMsg, "")

	logging.Session("send committed (chat=%s, reply=%d chars)", chatID, len(reply))
	return Result{State: StateCommitted, UserMessage: &userMsg, AssistantMessage: &assistantMsg}
}

// generate wraps the single gateway call so that a fault escaping the
// gateway's own error handling becomes a Failed outcome instead of tearing
// down the process. The generating flag is managed by the caller; a panic
// here still reaches its cleanup because fault is returned, not re-thrown.
func (o *Orchestrator) generate(ctx context.Context, history []chat.Message, systemPrompt string, opts gateway.Options) (reply string, fault error) {
	defer func() {
		if r := recover(); r != nil {
			o.generating.Store(false)
			fault = fmt.Errorf("generation fault: %v", r)
		}
	}()
	return o.gen.Generate(ctx, history, systemPrompt, opts), nil
}
