// Package auth implements the access gate: a set of static codes and an
// in-memory session registry. The billing core is entirely unaware of it;
// only the presentation layer consults the gate.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

type session struct {
	expiresAt time.Time
}

// Gate validates access codes and tracks authorized sessions. Safe for
// concurrent use.
type Gate struct {
	codes map[string]struct{}
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]session
}

// NewGate builds a gate accepting the given codes. Sessions expire after ttl.
func NewGate(codes []string, ttl time.Duration) *Gate {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return &Gate{
		codes:    set,
		ttl:      ttl,
		sessions: make(map[string]session),
	}
}

// CheckCode reports whether code is one of the configured access codes.
func (g *Gate) CheckCode(code string) bool {
	_, ok := g.codes[code]
	return ok
}

// Login exchanges a valid code for a session token.
func (g *Gate) Login(code string) (string, bool) {
	if !g.CheckCode(code) {
		return "", false
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", false
	}
	token := hex.EncodeToString(buf)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[token] = session{expiresAt: time.Now().Add(g.ttl)}
	return token, true
}

// IsAuthorized reports whether token belongs to a live session. Expired
// sessions are dropped on the way.
func (g *Gate) IsAuthorized(token string) bool {
	if token == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(s.expiresAt) {
		delete(g.sessions, token)
		return false
	}
	return true
}

// Logout invalidates the session token.
func (g *Gate) Logout(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, token)
}
