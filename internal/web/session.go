package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mzubac125/azure-sql-chatbot/internal/chat"
)

const (
	sessionCookie = "sqlchat_session"

	// DefaultSessionTTL is how long an idle session keeps its transcript.
	DefaultSessionTTL = 2 * time.Hour
)

type session struct {
	transcript *chat.Transcript
	lastSeen   time.Time
}

// Sessions maps browser sessions to their transcripts. Nothing is persisted;
// a restart starts every browser with an empty history. Sessions idle for
// longer than the TTL are dropped by Sweep.
type Sessions struct {
	mu   sync.Mutex
	byID map[string]*session
	ttl  time.Duration
	now  func() time.Time
}

// NewSessions returns an empty session store. ttl <= 0 selects
// DefaultSessionTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		byID: make(map[string]*session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Lookup returns the transcript of the request's session, or nil when the
// request carries no live session. It never creates one.
func (s *Sessions) Lookup(r *http.Request) *chat.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.find(r); sess != nil {
		return sess.transcript
	}
	return nil
}

// Get returns the transcript for the request's session, starting a new
// session (and setting its cookie) when the request has none.
func (s *Sessions) Get(w http.ResponseWriter, r *http.Request) *chat.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.find(r); sess != nil {
		return sess.transcript
	}

	id := uuid.NewString()
	sess := &session{transcript: &chat.Transcript{}, lastSeen: s.now()}
	s.byID[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.transcript
}

// find must be called with mu held. It refreshes lastSeen on a hit.
func (s *Sessions) find(r *http.Request) *session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return nil
	}
	sess, ok := s.byID[id.String()]
	if !ok {
		return nil
	}
	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.byID, id.String())
		return nil
	}
	sess.lastSeen = now
	return sess
}

// Sweep drops every session idle for longer than the TTL and reports how
// many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.byID {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.byID, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions until ctx is done.
func (s *Sessions) Run(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := s.ttl / 4
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug("expired chat sessions", zap.Int("removed", n), zap.Int("live", s.Len()))
			}
		}
	}
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
