// Package session keeps the live editor sessions. Every call into a session's surface
// goes through Session.Do, so events for one session are handled one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inqbatorchris/aimee-sub007/internal/metrics"
	"github.com/inqbatorchris/aimee-sub007/internal/surface"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	surface *surface.Surface
	inbox   *Inbox
}

// Do runs fn with exclusive access to the session's surface.
func (s *Session) Do(fn func(sf *surface.Surface) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.surface)
}

func (s *Session) Inbox() *Inbox { return s.inbox }

// Builder creates the surface for a new session. The notifier is the session's inbox.
type Builder func(n surface.Notifier) *surface.Surface

type Options struct {
	// TTL is the idle time after which Sweep drops a session. Defaults to 30m.
	TTL       time.Duration
	InboxSize int
	Metrics   *metrics.Metrics
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

type Registry struct {
	log     zerolog.Logger
	build   Builder
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(log zerolog.Logger, build Builder, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	return &Registry{
		log:      log,
		build:    build,
		opts:     opts,
		metrics:  opts.Metrics,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create builds a session and loads its first view. A failed load still leaves a
// usable empty session; the error is returned so the caller can report it.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	inbox := NewInbox(r.log.With().Str("session_id", id).Logger(), r.opts.InboxSize)
	s := &Session{
		ID:        id,
		CreatedAt: r.now().UTC(),
		surface:   r.build(inbox),
		inbox:     inbox,
	}

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()
	r.metrics.SetSessionsActive(n)

	r.log.Info().Str("session_id", id).Msg("editor session created")

	err := s.Do(func(sf *surface.Surface) error { return sf.Refresh(ctx) })
	if err != nil {
		return s, fmt.Errorf("initial refresh: %w", err)
	}
	return s, nil
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.lastSeen = r.now()
	return e.session, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.metrics.SetSessionsActive(n)
	r.close(e.session)
	r.log.Info().Str("session_id", id).Msg("editor session closed")
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.opts.TTL)

	r.mu.Lock()
	var expired []*Session
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	r.metrics.SetSessionsActive(n)
	for _, s := range expired {
		r.close(s)
		r.log.Info().Str("session_id", s.ID).Msg("editor session expired")
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	interval := r.opts.TTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// close tears down any in-progress interaction so a pending edit is not left dangling.
func (r *Registry) close(s *Session) {
	_ = s.Do(func(sf *surface.Surface) error {
		sf.ExitMode()
		return nil
	})
}
