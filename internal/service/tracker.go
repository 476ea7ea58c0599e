package service

import (
	"context"
	"sync"
)

// Ticket identifies one in-flight request of a session.
type Ticket struct {
	session string
	gen     uint64
	cancel  context.CancelFunc
}

// Tracker keeps the newest request per session. Starting a new request
// cancels the previous one, and a result that arrives for a superseded
// ticket is discarded by the caller.
type Tracker struct {
	mu       sync.Mutex
	next     uint64
	inflight map[string]uint64
	cancels  map[string]context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{
		inflight: make(map[string]uint64),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Begin registers a request for session and returns a context that is
// cancelled when a newer request for the same session begins. An empty
// session is never superseded.
func (t *Tracker) Begin(ctx context.Context, session string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	tk := Ticket{session: session, gen: t.next, cancel: cancel}
	if session == "" {
		return ctx, tk
	}
	if prev, ok := t.cancels[session]; ok {
		prev()
	}
	t.inflight[session] = tk.gen
	t.cancels[session] = cancel
	return ctx, tk
}

// Current reports whether tk is still the newest request of its session.
func (t *Tracker) Current(tk Ticket) bool {
	if tk.session == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[tk.session] == tk.gen
}

// End releases tk. It must be called once per Begin.
func (t *Tracker) End(tk Ticket) {
	tk.cancel()
	if tk.session == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[tk.session] == tk.gen {
		delete(t.inflight, tk.session)
		delete(t.cancels, tk.session)
	}
}

// InFlight returns the number of sessions with a pending request.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
