package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"omnichat/internal/attachment"
	"omnichat/internal/chat"
)

func TestBuildSystemInstruction(t *testing.T) {
	base := "You are a tutor."

	t.Run("no directives leaves the prompt untouched", func(t *testing.T) {
		assert.Equal(t, base, BuildSystemInstruction(base, "", ""))
	})

	t.Run("tone clause on its own line", func(t *testing.T) {
		got := BuildSystemInstruction(base, chat.ToneFriendly, "")
		assert.Equal(t, base+"\n- TONE: Please respond in a friendly manner.", got)
	})

	t.Run("format clause on its own line", func(t *testing.T) {
		got := BuildSystemInstruction(base, "", chat.FormatSummary)
		assert.Equal(t, base+"\n- FORMAT: Present your answer specifically as a summary.", got)
	})

	t.Run("table format adds the table clause last", func(t *testing.T) {
		got := BuildSystemInstruction(base, chat.ToneProfessional, chat.FormatTable)
		want := base +
			"\n- TONE: Please respond in a professional manner." +
			"\n- FORMAT: Present your answer specifically as a table." +
			"\n- Use Markdown tables with clear headers."
		assert.Equal(t, want, got)
	})
}

func TestMapHistory(t *testing.T) {
	history := []chat.Message{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi there"},
		{Role: chat.RoleUser, Content: "explain generics"},
	}

	contents := mapHistory(history)
	require.Len(t, contents, 3)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, string(genai.RoleUser), contents[2].Role)

	// Ordering and text preserved exactly.
	assert.Equal(t, "hello", contents[0].Parts[0].Text)
	assert.Equal(t, "hi there", contents[1].Parts[0].Text)
	assert.Equal(t, "explain generics", contents[2].Parts[0].Text)
}

func TestAttachImage(t *testing.T) {
	img := &attachment.ImagePayload{MIME: "image/jpeg", Data: []byte{0xff, 0xd8}}

	t.Run("attaches to the last user turn only", func(t *testing.T) {
		contents := mapHistory([]chat.Message{
			{Role: chat.RoleUser, Content: "first"},
			{Role: chat.RoleAssistant, Content: "reply"},
			{Role: chat.RoleUser, Content: "what is in this picture?"},
		})
		attachImage(contents, img)

		require.Len(t, contents[2].Parts, 2)
		require.NotNil(t, contents[2].Parts[1].InlineData)
		assert.Equal(t, "image/jpeg", contents[2].Parts[1].InlineData.MIMEType)
		assert.Equal(t, img.Data, contents[2].Parts[1].InlineData.Data)

		// Earlier turns untouched.
		assert.Len(t, contents[0].Parts, 1)
		assert.Len(t, contents[1].Parts, 1)
	})

	t.Run("silently dropped when no user turn exists", func(t *testing.T) {
		contents := mapHistory([]chat.Message{
			{Role: chat.RoleAssistant, Content: "unsolicited"},
		})
		attachImage(contents, img)
		assert.Len(t, contents[0].Parts, 1)
	})

	t.Run("no-op on empty history", func(t *testing.T) {
		attachImage(nil, img)
	})
}

func TestFallbackForError(t *testing.T) {
	t.Run("credential failure", func(t *testing.T) {
		err := errors.New("googleapi: Error 400: API_KEY_INVALID: key not valid")
		assert.Equal(t, FallbackInvalidKey, fallbackForError(err))
	})

	t.Run("anything else gets the generic message", func(t *testing.T) {
		assert.Equal(t, FallbackGeneric, fallbackForError(errors.New("connection reset by peer")))
	})
}
