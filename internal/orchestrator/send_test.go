package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
	"omnichat/internal/gateway"
	"omnichat/internal/persona"
	"omnichat/internal/store"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (pulled in transitively by google.golang.org/genai)
	// starts a background worker in its package init that can never be
	// stopped from here; ignore it so only real leaks fail the suite.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeGenerator records each call and returns a canned reply.
type fakeGenerator struct {
	reply string
	calls []generateCall
	panic bool
}

type generateCall struct {
	history      []chat.Message
	systemPrompt string
	opts         gateway.Options
}

func (f *fakeGenerator) Generate(ctx context.Context, history []chat.Message, systemPrompt string, opts gateway.Options) string {
	f.calls = append(f.calls, generateCall{history: history, systemPrompt: systemPrompt, opts: opts})
	if f.panic {
		panic("generator blew up")
	}
	if f.reply == "" {
		return "canned reply"
	}
	return f.reply
}

func newTestOrchestrator(t *testing.T, gen Generator) (*Orchestrator, *store.SessionStore) {
	t.Helper()
	kv, err := store.OpenSQLiteKV(filepath.Join(t.TempDir(), "omnichat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	st, err := store.New(kv)
	require.NoError(t, err)
	return New(st, gen), st
}

func TestSend_Committed(t *testing.T) {
	gen := &fakeGenerator{reply: "Here is the fix."}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.Programmer)
	st.UpdateProfile(func(p *chat.UserProfile) { p.MessageCount = 3 })

	o.Composer().SetText("fix this bug")
	res := o.Send(context.Background(), c.ID)

	assert.Equal(t, StateCommitted, res.State)
	assert.False(t, res.Paywall)
	require.NotNil(t, res.UserMessage)
	require.NotNil(t, res.AssistantMessage)
	assert.Equal(t, "fix this bug", res.UserMessage.Content)
	assert.Equal(t, "Here is the fix.", res.AssistantMessage.Content)

	got, _ := st.Chat(c.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.RoleUser, got.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "fix this bug", got.Title)

	assert.Equal(t, 4, st.Profile().MessageCount)
	assert.Equal(t, "", o.Composer().Text(), "text consumed on commit")

	// The generator saw the persona prompt and the new user turn.
	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	prog, _ := persona.Find(persona.Programmer)
	assert.Equal(t, prog.SystemPrompt, call.systemPrompt)
	require.Len(t, call.history, 1)
	assert.Equal(t, "fix this bug", call.history[0].Content)
}

func TestSend_HistoryGrowsAcrossTurns(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.Programmer)

	res := o.SendText(context.Background(), c.ID, "first question")
	require.Equal(t, StateCommitted, res.State)
	res = o.SendText(context.Background(), c.ID, "follow-up")
	require.Equal(t, StateCommitted, res.State)

	got, _ := st.Chat(c.ID)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, 2, st.Profile().MessageCount)

	// The second call carries the full prior exchange plus the new turn.
	require.Len(t, gen.calls, 2)
	second := gen.calls[1]
	require.Len(t, second.history, 3)
	assert.Equal(t, "first question", second.history[0].Content)
	assert.Equal(t, chat.RoleAssistant, second.history[1].Role)
	assert.Equal(t, "follow-up", second.history[2].Content)
}

func TestSend_Rejected(t *testing.T) {
	t.Run("empty composer", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, st := newTestOrchestrator(t, gen)
		c := st.CreateChat(persona.General)

		res := o.Send(context.Background(), c.ID)

		assert.Equal(t, StateRejected, res.State)
		got, _ := st.Chat(c.ID)
		assert.Empty(t, got.Messages)
		assert.Equal(t, 0, st.Profile().MessageCount)
		assert.Empty(t, gen.calls)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, st := newTestOrchestrator(t, gen)
		c := st.CreateChat(persona.General)

		o.Composer().SetText("   \t\n")
		res := o.Send(context.Background(), c.ID)

		assert.Equal(t, StateRejected, res.State)
		assert.Empty(t, gen.calls)
	})

	t.Run("empty chat id", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, _ := newTestOrchestrator(t, gen)

		o.Composer().SetText("hello")
		res := o.Send(context.Background(), "")

		assert.Equal(t, StateRejected, res.State)
		assert.Equal(t, "hello", o.Composer().Text(), "staged text survives rejection")
	})

	t.Run("unknown chat id", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, st := newTestOrchestrator(t, gen)

		o.Composer().SetText("hello")
		res := o.Send(context.Background(), "no-such-chat")

		assert.Equal(t, StateRejected, res.State)
		assert.Equal(t, 0, st.Profile().MessageCount)
		assert.Empty(t, gen.calls)
	})
}

func TestSend_QuotaBlocked(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)
	st.UpdateProfile(func(p *chat.UserProfile) {
		p.MessageCount = chat.FreeMessageLimit
	})

	img := &attachment.ImagePayload{Name: "pic.png", MIME: "image/png", Data: []byte{1}, DataURL: "data:image/png;base64,AQ=="}
	o.Composer().SetText("what is this?")
	o.Composer().StageImage(img)

	res := o.Send(context.Background(), c.ID)

	assert.Equal(t, StateBlocked, res.State)
	assert.True(t, res.Paywall)

	// Nothing mutated, nothing sent.
	got, _ := st.Chat(c.ID)
	assert.Empty(t, got.Messages)
	assert.Equal(t, chat.FreeMessageLimit, st.Profile().MessageCount)
	assert.Empty(t, gen.calls)

	// Staged state restored so an upgrade-then-retry needs no re-attach.
	assert.Equal(t, "what is this?", o.Composer().Text())
	assert.Same(t, img, o.Composer().Image())

	// Upgrading lifts the block immediately.
	st.UpdateProfile(func(p *chat.UserProfile) { p.IsPro = true })
	res = o.Send(context.Background(), c.ID)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, chat.FreeMessageLimit+1, st.Profile().MessageCount)
}

func TestSend_DocumentPromptSynthesis(t *testing.T) {
	t.Run("typed query wraps the document", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, st := newTestOrchestrator(t, gen)
		c := st.CreateChat(persona.Business)

		o.Composer().SetText("summarize the key risks")
		o.Composer().StageDocument(&attachment.DocumentPayload{
			Name:    "q3-report.pdf",
			Content: "revenue down 4%\nchurn up",
			Kind:    attachment.KindPDF,
		})
		res := o.Send(context.Background(), c.ID)
		require.Equal(t, StateCommitted, res.State)

		// Displayed message shows the literal text, not the synthesized prompt.
		assert.Equal(t, "summarize the key risks", res.UserMessage.Content)
		require.NotNil(t, res.UserMessage.Attachment)
		assert.Equal(t, chat.AttachmentFile, res.UserMessage.Attachment.Kind)
		assert.Equal(t, "q3-report.pdf", res.UserMessage.Attachment.Name)
		assert.Equal(t, "#", res.UserMessage.Attachment.Locator)

		// Transmitted prompt carries the full document content.
		require.Len(t, gen.calls, 1)
		sent := gen.calls[0].history[len(gen.calls[0].history)-1].Content
		assert.Equal(t,
			"[Attached File: q3-report.pdf]\n---\nrevenue down 4%\nchurn up\n---\nUser Query: summarize the key risks",
			sent)
	})

	t.Run("empty query gets the default analyze prompt and a placeholder", func(t *testing.T) {
		gen := &fakeGenerator{}
		o, st := newTestOrchestrator(t, gen)
		c := st.CreateChat(persona.General)

		o.Composer().StageDocument(&attachment.DocumentPayload{
			Name:    "contract.pdf",
			Content: "page one\npage two\n",
			Kind:    attachment.KindPDF,
		})
		res := o.Send(context.Background(), c.ID)
		require.Equal(t, StateCommitted, res.State)

		assert.Equal(t, "Analyzing contract.pdf...", res.UserMessage.Content)

		sent := gen.calls[0].history[0].Content
		assert.True(t, strings.HasSuffix(sent, "User Query: Please analyze this document."))
		assert.Contains(t, sent, "page one\npage two\n")

		// Title derives from the filename, not the placeholder.
		got, _ := st.Chat(c.ID)
		assert.Equal(t, "contract.pdf", got.Title)
	})
}

func TestSend_ImageAttachment(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)

	img := &attachment.ImagePayload{Name: "pic.jpg", MIME: "image/jpeg", Data: []byte{0xff, 0xd8}, DataURL: "data:image/jpeg;base64,/9g="}
	o.Composer().StageImage(img)
	res := o.Send(context.Background(), c.ID)
	require.Equal(t, StateCommitted, res.State)

	assert.Equal(t, "Analyzing image...", res.UserMessage.Content)
	require.NotNil(t, res.UserMessage.Attachment)
	assert.Equal(t, chat.AttachmentImage, res.UserMessage.Attachment.Kind)
	assert.Equal(t, img.DataURL, res.UserMessage.Attachment.Locator)

	// The gateway receives the image via options, not the history text.
	require.Len(t, gen.calls, 1)
	assert.Same(t, img, gen.calls[0].opts.Image)

	// Image is consumed.
	assert.Nil(t, o.Composer().Image())
}

func TestSend_ImageWinsOverDocument(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)

	o.Composer().SetText("look at both")
	o.Composer().StageImage(&attachment.ImagePayload{Name: "a.png", MIME: "image/png", Data: []byte{1}, DataURL: "data:image/png;base64,AQ=="})
	o.Composer().StageDocument(&attachment.DocumentPayload{Name: "b.txt", Content: "text", Kind: attachment.KindText})

	res := o.Send(context.Background(), c.ID)
	require.Equal(t, StateCommitted, res.State)
	assert.Equal(t, chat.AttachmentImage, res.UserMessage.Attachment.Kind)
}

func TestSend_ToneAndFormatForwarded(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)

	o.Composer().SetTone(chat.ToneFriendly)
	o.Composer().SetFormat(chat.FormatTable)
	o.Composer().SetText("compare the options")
	res := o.Send(context.Background(), c.ID)
	require.Equal(t, StateCommitted, res.State)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, chat.ToneFriendly, gen.calls[0].opts.Tone)
	assert.Equal(t, chat.FormatTable, gen.calls[0].opts.Format)

	// Directives persist across sends.
	assert.Equal(t, chat.ToneFriendly, o.Composer().Tone())
	assert.Equal(t, chat.FormatTable, o.Composer().Format())
}

func TestSend_GeneratorFault(t *testing.T) {
	gen := &fakeGenerator{panic: true}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)

	o.Composer().SetText("trigger the fault")
	res := o.Send(context.Background(), c.ID)

	assert.Equal(t, StateFailed, res.State)
	require.NotNil(t, res.UserMessage)
	assert.Nil(t, res.AssistantMessage)

	// Optimistic phase stands: the user turn and the counter survive.
	got, _ := st.Chat(c.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, chat.RoleUser, got.Messages[0].Role)
	assert.Equal(t, 1, st.Profile().MessageCount)

	assert.False(t, o.Generating(), "flag cleared even on fault")
}

func TestSend_FallbackCommitsLikeAnyReply(t *testing.T) {
	gen := &fakeGenerator{reply: gateway.FallbackGeneric}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat(persona.General)

	res := o.SendText(context.Background(), c.ID, "hello")

	assert.Equal(t, StateCommitted, res.State)
	got, _ := st.Chat(c.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, gateway.FallbackGeneric, got.Messages[1].Content)
}

func TestSend_PersonaFallback(t *testing.T) {
	gen := &fakeGenerator{}
	o, st := newTestOrchestrator(t, gen)
	c := st.CreateChat("retired-persona")

	res := o.SendText(context.Background(), c.ID, "hello")
	require.Equal(t, StateCommitted, res.State)

	general, _ := persona.Find(persona.General)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, general.SystemPrompt, gen.calls[0].systemPrompt)
}

func TestComposer_Staging(t *testing.T) {
	var c Composer

	img1 := &attachment.ImagePayload{Name: "one.png"}
	img2 := &attachment.ImagePayload{Name: "two.png"}
	c.StageImage(img1)
	c.StageImage(img2)
	assert.Same(t, img2, c.Image(), "restaging replaces")

	doc := &attachment.DocumentPayload{Name: "notes.txt"}
	c.StageDocument(doc)
	assert.Same(t, img2, c.Image(), "kinds are independent slots")
	assert.Same(t, doc, c.Document())

	c.ClearImage()
	assert.Nil(t, c.Image())
	assert.Same(t, doc, c.Document())

	c.SetText("hello")
	c.SetTone(chat.ToneShort)
	text, img, d, tone, format := c.take()
	assert.Equal(t, "hello", text)
	assert.Nil(t, img)
	assert.Same(t, doc, d)
	assert.Equal(t, chat.ToneShort, tone)
	assert.Equal(t, chat.Format(""), format)

	// take clears content but keeps directives.
	assert.Equal(t, "", c.Text())
	assert.Nil(t, c.Document())
	assert.Equal(t, chat.ToneShort, c.Tone())
}
