package views

import (
	"sync"

	"coolbot/models"
)

// Registry routes interactions on a message to the control attached to it.
// It lives for the lifetime of the process; persisted controls are put back
// by Rehydrate after a restart, in-memory ones are lost.
type Registry struct {
	mu        sync.RWMutex
	byMessage map[string]Control
	// incomplete posts waiting for the owner, by thread id.
	incomplete map[string]Control
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMessage:  make(map[string]Control),
		incomplete: make(map[string]Control),
	}
}

// Register binds a control to its message, replacing any previous control.
func (r *Registry) Register(c Control) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMessage[c.MessageID] = c
	if c.Kind == models.ViewIncomplete && !c.Solved {
		r.incomplete[c.ThreadID] = c
	}
}

// Unregister drops the control attached to a message.
func (r *Registry) Unregister(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byMessage[messageID]
	if !ok {
		return
	}
	delete(r.byMessage, messageID)
	if cur, ok := r.incomplete[c.ThreadID]; ok && cur.MessageID == messageID {
		delete(r.incomplete, c.ThreadID)
	}
}

// UnregisterThread drops every control bound to a thread.
func (r *Registry) UnregisterThread(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.byMessage {
		if c.ThreadID == threadID {
			delete(r.byMessage, id)
		}
	}
	delete(r.incomplete, threadID)
}

// Lookup returns the control attached to a message.
func (r *Registry) Lookup(messageID string) (Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byMessage[messageID]
	return c, ok
}

// Incomplete returns the open incomplete-post control for a thread.
func (r *Registry) Incomplete(threadID string) (Control, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.incomplete[threadID]
	return c, ok
}

// Len is the number of registered controls.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMessage)
}
