package history

import (
	"sync"

	"github.com/hupe1980/agentkernel/core"
)

// Store persists conversation transcripts between runs.
type Store interface {
	// Get returns the transcript for a conversation id; a missing id yields
	// an empty transcript, not an error.
	Get(conversationID string) ([]core.Message, error)

	// Append adds messages to a conversation, creating it if needed.
	Append(conversationID string, messages ...core.Message) error

	// Replace overwrites a conversation's transcript.
	Replace(conversationID string, messages []core.Message) error

	// Delete removes a conversation. Deleting an unknown id is a no-op.
	Delete(conversationID string) error
}

// InMemoryStore is a volatile Store implementation keeping transcripts in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Returned slices are cloned to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: make(map[string][]core.Message)}
}

// Get returns a clone of the transcript for the given conversation.
func (s *InMemoryStore) Get(conversationID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return core.CopyMessages(s.conversations[conversationID]), nil
}

// Append adds messages to a conversation, creating it lazily.
func (s *InMemoryStore) Append(conversationID string, messages ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conversationID] = append(s.conversations[conversationID], messages...)

	return nil
}

// Replace overwrites the transcript with a clone of the given messages.
func (s *InMemoryStore) Replace(conversationID string, messages []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conversationID] = core.CopyMessages(messages)

	return nil
}

// Delete removes a conversation.
func (s *InMemoryStore) Delete(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)

	return nil
}

// Len returns the number of stored conversations.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations)
}
