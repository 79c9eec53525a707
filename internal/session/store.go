// Package session owns the conversation state of one operator session: the
// append-only transcript, the error slot, per-incident disclosure state and
// the controller that keeps exactly one question in flight.
package session

import (
	"iter"
	"sync"

	"incidentdesk/internal/incident"
)

type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
)

func (s Sender) String() string {
	if s == SenderAssistant {
		return "assistant"
	}
	return "user"
}

// Message is one transcript entry. Entries are never edited once appended;
// Payload must be treated as read-only.
type Message struct {
	Text      string
	Sender    Sender
	Timestamp string
	Payload   *incident.QueryResult
}

// Store is the append-only transcript plus the current error slot.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	errText  string
	hasErr   bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AppendUser(text, timestamp string) Message {
	return s.append(Message{Text: text, Sender: SenderUser, Timestamp: timestamp})
}

func (s *Store) AppendAssistant(text, timestamp string, payload *incident.QueryResult) Message {
	return s.append(Message{Text: text, Sender: SenderAssistant, Timestamp: timestamp, Payload: payload})
}

func (s *Store) append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errText = message
	s.hasErr = true
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errText = ""
	s.hasErr = false
}

// Error returns the current error message, if any.
func (s *Store) Error() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errText, s.hasErr
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Messages yields the transcript as of the moment iteration starts. Each
// range over the returned sequence takes a fresh snapshot.
func (s *Store) Messages() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		s.mu.RLock()
		snapshot := s.messages[:len(s.messages):len(s.messages)]
		s.mu.RUnlock()
		for _, msg := range snapshot {
			if !yield(msg) {
				return
			}
		}
	}
}

// Last returns the most recent message.
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
