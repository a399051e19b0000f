package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

// Presence keeps at most one session per user. A reconnect replaces the
// previous entry; the replaced session is returned so the caller may close it.
type Presence struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]contract.Session
}

func NewPresence() *Presence {
	return &Presence{sessions: make(map[domain.UserID]contract.Session)}
}

func (p *Presence) Register(s contract.Session) (contract.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, replaced := p.sessions[s.UserID()]
	p.sessions[s.UserID()] = s
	if replaced && previous == s {
		return nil, false
	}
	return previous, replaced
}

func (p *Presence) Lookup(userID domain.UserID) (contract.Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.sessions[userID]
	return s, ok
}

// Remove deletes the entry only if it still points at s. A late disconnect
// of a superseded connection leaves the fresh one in place.
func (p *Presence) Remove(s contract.Session) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.sessions[s.UserID()]
	if !ok || current != s {
		return false
	}
	delete(p.sessions, s.UserID())
	return true
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.sessions)
}
