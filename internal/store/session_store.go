// Package store owns the chat collection and user profile. It is the single
// source of truth read and written by the send orchestrator: every mutation
// persists the full state wholesale and notifies subscribers.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"omnichat/internal/chat"
	"omnichat/internal/logging"
	"omnichat/internal/persona"
)

// Persistence keys. Each holds a versioned JSON envelope.
const (
	keyChats   = "chats"
	keyProfile = "profile"
)

// SchemaVersion tags persisted blobs so future shape changes can migrate
// instead of silently corrupting old data.
const SchemaVersion = 1

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

// SessionStore holds all chats and the user profile.
type SessionStore struct {
	mu      sync.RWMutex
	kv      KV
	chats   []*chat.Chat // newest first
	profile chat.UserProfile

	subsMu sync.Mutex
	subs   []func()
}

// New creates a session store backed by kv and loads any prior state.
// Absence of prior state yields an empty collection and a default profile.
func New(kv KV) (*SessionStore, error) {
	s := &SessionStore{
		kv:      kv,
		profile: chat.DefaultProfile(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe registers fn to run after every committed mutation.
func (s *SessionStore) Subscribe(fn func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *SessionStore) notify() {
	s.subsMu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// CreateChat starts a new conversation bound to the given persona and
// returns a snapshot of it. New chats go to the front of the collection.
func (s *SessionStore) CreateChat(personaID persona.ID) chat.Chat {
	c := &chat.Chat{
		ID:        uuid.NewString(),
		PersonaID: string(personaID),
		Title:     chat.DefaultTitle,
		Messages:  []chat.Message{},
		UpdatedAt: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	s.chats = append([]*chat.Chat{c}, s.chats...)
	s.persistLocked()
	snap := snapshot(c)
	s.mu.Unlock()

	logging.Session("created chat %s (persona=%s)", c.ID, personaID)
	s.notify()
	return snap
}

// AppendMessage appends msg to the chat with the given id. The chat title is
// derived exactly once, from the first appended message: titleHint wins,
// then the attachment name, then "New Chat". An unknown chat id is a logged
// no-op; other chats are never touched.
func (s *SessionStore) AppendMessage(chatID string, msg chat.Message, titleHint string) {
	s.mu.Lock()
	c := s.findLocked(chatID)
	if c == nil {
		s.mu.Unlock()
		logging.SessionError("append to unknown chat %s dropped", chatID)
		return
	}
	if len(c.Messages) == 0 {
		title := titleHint
		if title == "" && msg.Attachment != nil {
			title = msg.Attachment.Name
		}
		if title == "" {
			title = "New Chat"
		}
		c.Title = chat.Truncate(title)
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now().UnixMilli()
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
}

// DeleteChat removes the chat with the given id. Returns false when the id
// is unknown.
func (s *SessionStore) DeleteChat(chatID string) bool {
	s.mu.Lock()
	found := false
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID == chatID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	s.chats = kept
	if found {
		s.persistLocked()
	}
	s.mu.Unlock()

	if found {
		logging.Session("deleted chat %s", chatID)
		s.notify()
	}
	return found
}

// ToggleFavorite flips the favorite flag on a message. Returns false when
// the chat or message is unknown.
func (s *SessionStore) ToggleFavorite(chatID, messageID string) bool {
	s.mu.Lock()
	c := s.findLocked(chatID)
	if c == nil {
		s.mu.Unlock()
		return false
	}
	toggled := false
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			c.Messages[i].IsFavorite = !c.Messages[i].IsFavorite
			toggled = true
			break
		}
	}
	if toggled {
		s.persistLocked()
	}
	s.mu.Unlock()

	if toggled {
		s.notify()
	}
	return toggled
}

// Chat returns a snapshot of one chat.
func (s *SessionStore) Chat(chatID string) (chat.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.findLocked(chatID)
	if c == nil {
		return chat.Chat{}, false
	}
	return snapshot(c), true
}

// Chats returns snapshots of all chats, newest first.
func (s *SessionStore) Chats() []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, snapshot(c))
	}
	return out
}

// Profile returns the current user profile.
func (s *SessionStore) Profile() chat.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// UpdateProfile applies mutate to the profile under the store lock. Merge
// semantics: the mutator changes only the fields it cares about.
func (s *SessionStore) UpdateProfile(mutate func(*chat.UserProfile)) {
	s.mu.Lock()
	mutate(&s.profile)
	s.persistLocked()
	s.mu.Unlock()

	s.notify()
}

// Save forces a full persist of the current state.
func (s *SessionStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// Close releases the underlying storage.
func (s *SessionStore) Close() error {
	return s.kv.Close()
}

func (s *SessionStore) findLocked(chatID string) *chat.Chat {
	for _, c := range s.chats {
		if c.ID == chatID {
			return c
		}
	}
	return nil
}

// snapshot copies a chat so callers never share the store's message slice.
func snapshot(c *chat.Chat) chat.Chat {
	out := *c
	out.Messages = make([]chat.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// persistLocked serializes the whole store state into the two kv keys.
// Persistence failures are logged, not fatal: the in-memory state stays
// authoritative for the rest of the session.
func (s *SessionStore) persistLocked() error {
	chatsBlob, err := wrap(s.chats)
	if err == nil {
		err = s.kv.Put(keyChats, chatsBlob)
	}
	if err != nil {
		logging.StoreError("persist chats failed: %v", err)
		return err
	}

	profileBlob, err := wrap(s.profile)
	if err == nil {
		err = s.kv.Put(keyProfile, profileBlob)
	}
	if err != nil {
		logging.StoreError("persist profile failed: %v", err)
		return err
	}
	return nil
}

func wrap(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Data: data})
}

// load rehydrates the store wholesale. Missing keys are not errors. Blobs
// persisted before versioning (bare arrays/objects) are accepted as
// version 0 and carried forward under the current schema on the next save.
func (s *SessionStore) load() error {
	blob, found, err := s.kv.Get(keyChats)
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}
	if found {
		if err := unwrap(blob, &s.chats); err != nil {
			return fmt.Errorf("decode chats: %w", err)
		}
	}
	for _, c := range s.chats {
		if c.Messages == nil {
			c.Messages = []chat.Message{}
		}
	}

	blob, found, err = s.kv.Get(keyProfile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if found {
		if err := unwrap(blob, &s.profile); err != nil {
			return fmt.Errorf("decode profile: %w", err)
		}
	}

	logging.Store("loaded %d chats, profile count=%d", len(s.chats), s.profile.MessageCount)
	return nil
}

func unwrap(blob []byte, into interface{}) error {
	var env envelope
	if err := json.Unmarshal(blob, &env); err == nil && env.Data != nil {
		return json.Unmarshal(env.Data, into)
	}
	// Legacy unversioned blob.
	return json.Unmarshal(blob, into)
}
