package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mzubac125/azure-sql-chatbot/internal/chat"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSessions(ttl time.Duration) (*Sessions, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSessions(ttl)
	s.now = clock.now
	return s, clock
}

func start(t *testing.T, s *Sessions) (*http.Cookie, *chat.Transcript) {
	t.Helper()
	rr := httptest.NewRecorder()
	tr := s.Get(rr, httptest.NewRequest(http.MethodPost, "/ask", nil))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], tr
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return req
}

func TestSessionsLookupDoesNotCreate(t *testing.T) {
	s, _ := newTestSessions(time.Hour)
	assert.Nil(t, s.Lookup(httptest.NewRequest(http.MethodGet, "/", nil)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "5f0c6c4e-7a52-4c7e-9d55-3d1c2b0a9e11"})
	assert.Nil(t, s.Lookup(req))
	assert.Zero(t, s.Len())
}

func TestSessionsReuseCookie(t *testing.T) {
	s, _ := newTestSessions(time.Hour)
	c, tr := start(t, s)
	tr.Append(chat.RoleUser, "hi")

	got := s.Lookup(requestWith(c))
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Len())

	rr := httptest.NewRecorder()
	assert.Same(t, tr, s.Get(rr, requestWith(c)))
	assert.Empty(t, rr.Result().Cookies())
	assert.Equal(t, 1, s.Len())
}

func TestSessionsExpireWhenIdle(t *testing.T) {
	s, clock := newTestSessions(time.Hour)
	active, _ := start(t, s)
	idle, _ := start(t, s)
	require.Equal(t, 2, s.Len())

	clock.t = clock.t.Add(45 * time.Minute)
	require.NotNil(t, s.Lookup(requestWith(active)))

	clock.t = clock.t.Add(30 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.NotNil(t, s.Lookup(requestWith(active)))
	assert.Nil(t, s.Lookup(requestWith(idle)))

	clock.t = clock.t.Add(2 * time.Hour)
	assert.Nil(t, s.Lookup(requestWith(active)), "expired session is dropped on access")
	assert.Zero(t, s.Len())
}

func TestSessionsRunStopsWithContext(t *testing.T) {
	s := NewSessions(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
