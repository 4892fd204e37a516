package errors

import (
	"sync"
	"time"
)

// MessageType classifies a recorded message.
type MessageType int

const (
	MessageTypeError MessageType = iota
	MessageTypeWarning
	MessageTypeInfo
	MessageTypeSuccess
)

// Message is one handled message.
type Message struct {
	Text      string
	Type      MessageType
	Timestamp time.Time
}

// Recorder keeps handled messages in memory.
type Recorder struct {
	mu        sync.RWMutex
	messages  []Message
	onMessage func(Message)
	now       func() time.Time
}

// NewRecorder returns a Recorder. onMessage, if set, is called for every message
// while the recorder lock is held.
func NewRecorder(onMessage func(Message)) *Recorder {
	return &Recorder{onMessage: onMessage, now: time.Now}
}

func (r *Recorder) Error(msg string)   { r.add(msg, MessageTypeError) }
func (r *Recorder) Warning(msg string) { r.add(msg, MessageTypeWarning) }
func (r *Recorder) Info(msg string)    { r.add(msg, MessageTypeInfo) }
func (r *Recorder) Success(msg string) { r.add(msg, MessageTypeSuccess) }

func (r *Recorder) add(text string, kind MessageType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := Message{Text: text, Type: kind, Timestamp: r.now()}
	r.messages = append(r.messages, msg)
	if r.onMessage != nil {
		r.onMessage(msg)
	}
}

// Latest returns the most recent message.
func (r *Recorder) Latest() (Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// All returns a copy of every recorded message, oldest first.
func (r *Recorder) All() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Message(nil), r.messages...)
}

// Texts returns the text of every recorded message of the given type.
func (r *Recorder) Texts(kind MessageType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, m := range r.messages {
		if m.Type == kind {
			out = append(out, m.Text)
		}
	}
	return out
}

// Count returns how many messages of the given type were recorded.
func (r *Recorder) Count(kind MessageType) int {
	return len(r.Texts(kind))
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
