package daemon

import (
	"sync"

	"github.com/sbcgo/rgpiod/internal/handle"
)

// Session is one client connection's state (spec.md §4.4): an
// authenticated user name, an optional share-id namespace, the handles
// it owns, and its on-demand notifier pipe path.
type Session struct {
	mu sync.Mutex

	user    string
	shareID string

	owned map[handle.Handle]struct{}

	notifyPipePath string
}

func newSession() *Session {
	return &Session{owned: map[handle.Handle]struct{}{}}
}

func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) SetUser(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) ShareID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shareID
}

func (s *Session) SetShareID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shareID = id
}

func (s *Session) own(h handle.Handle) {
	s.mu.Lock()
	s.owned[h] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) disown(h handle.Handle) {
	s.mu.Lock()
	delete(s.owned, h)
	s.mu.Unlock()
}

// OwnedHandles returns a snapshot of every handle this session holds,
// used to cascade cleanup on disconnect (spec.md §5 "Resource ownership").
func (s *Session) OwnedHandles() []handle.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]handle.Handle, 0, len(s.owned))
	for h := range s.owned {
		out = append(out, h)
	}
	return out
}
