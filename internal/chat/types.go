// Package chat defines the conversation data model shared by the store,
// the orchestrator, and the generation gateway.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AttachmentKind distinguishes the media carried by a message attachment.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
	AttachmentAudio AttachmentKind = "audio"
)

// Attachment describes media bound to a message. Locator is a data URL for
// images and an opaque reference for files.
type Attachment struct {
	Kind    AttachmentKind `json:"type"`
	Locator string         `json:"url"`
	Name    string         `json:"name,omitempty"`
}

// Message is a single turn in a chat. Immutable once appended, except for
// the favorite flag which the store may toggle in place.
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content"`
	Timestamp  int64       `json:"timestamp"` // unix milliseconds
	IsFavorite bool        `json:"isFavorite,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// NewMessage builds a message with a fresh id and the current timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Chat is an ordered, append-only conversation thread bound to one persona.
type Chat struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"assistantId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt int64     `json:"updatedAt"`
}

// DefaultTitle is used until the first user turn names the chat.
const DefaultTitle = "New Conversation"

// TitleLimit caps derived chat titles.
const TitleLimit = 30

// Truncate shortens s to at most TitleLimit runes.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= TitleLimit {
		return s
	}
	return string(r[:TitleLimit])
}

// Tone is an optional style directive appended to the system prompt.
type Tone string

const (
	ToneProfessional Tone = "Professional"
	ToneFriendly     Tone = "Friendly"
	ToneShort        Tone = "Short"
	ToneDetailed     Tone = "Detailed"
	ToneStepByStep   Tone = "Step-by-step"
)

// Format is an optional output-shape directive appended to the system prompt.
type Format string

const (
	FormatBullets Format = "Bullet points"
	FormatTable   Format = "Table"
	FormatEmail   Format = "Email format"
	FormatSummary Format = "Summary"
)

// FreeMessageLimit is the non-pro send ceiling. Once MessageCount reaches
// this value, further sends are blocked until the profile upgrades.
const FreeMessageLimit = 20

// UserProfile holds the local user identity and the quota counter.
// MessageCount counts quota-passing send attempts, not successful
// generations; it increments before the gateway call and never decrements.
type UserProfile struct {
	Name         string `json:"name"`
	Photo        string `json:"photo"`
	Language     string `json:"language"`
	IsPro        bool   `json:"isPro"`
	MessageCount int    `json:"messageCount"`
}

// DefaultProfile returns the profile used when no prior state exists.
func DefaultProfile() UserProfile {
	return UserProfile{
		Name:     "Alex Johnson",
		Photo:    "https://i.pravatar.cc/150?u=premium_user",
		Language: "English",
		IsPro:    false,
	}
}

// CanSend reports whether the profile is allowed another send.
func (p UserProfile) CanSend() bool {
	return p.IsPro || p.MessageCount < FreeMessageLimit
}
