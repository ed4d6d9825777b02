package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/inqbatorchris/aimee-sub007/internal/surface"
)

const defaultInboxSize = 64

// Inbox collects notifications for one session until the client drains them. When
// full, the oldest entry is dropped.
type Inbox struct {
	log zerolog.Logger

	mu      sync.Mutex
	buf     []surface.Notification
	start   int
	count   int
	dropped int
}

func NewInbox(log zerolog.Logger, size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{log: log, buf: make([]surface.Notification, size)}
}

func (b *Inbox) Notify(n surface.Notification) {
	ev := b.log.Info()
	if n.Level == surface.LevelError {
		ev = b.log.Warn()
	}
	ev.Str("op", n.Op).Str("level", string(n.Level)).Msg(n.Message)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.buf) {
		b.start = (b.start + 1) % len(b.buf)
		b.count--
		b.dropped++
	}
	b.buf[(b.start+b.count)%len(b.buf)] = n
	b.count++
}

// Peek returns pending notifications oldest first without removing them.
func (b *Inbox) Peek() []surface.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending()
}

// Drain returns pending notifications oldest first and empties the inbox.
func (b *Inbox) Drain() []surface.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending()
	b.start, b.count = 0, 0
	return out
}

func (b *Inbox) pending() []surface.Notification {
	out := make([]surface.Notification, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.buf[(b.start+i)%len(b.buf)])
	}
	return out
}

func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped counts notifications evicted because the inbox was full.
func (b *Inbox) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
