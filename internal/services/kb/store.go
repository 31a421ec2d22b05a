package kb

import (
	"sort"
	"sync"
	"time"

	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// session is one fully built knowledge base. Everything lives in
// memory; nothing here touches disk after setup.
type session struct {
	id        string
	index     interfaces.VectorIndex
	chunks    []string
	meta      []models.ChunkMeta
	documents []models.Document
	papers    []models.Paper
	createdAt time.Time
	setupTime float64
}

// store holds live sessions behind a single lock. Reads vastly
// outnumber writes so a RWMutex is enough.
type store struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newStore() *store {
	return &store{
		sessions: make(map[string]*session),
	}
}

func (s *store) get(id string) *session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *store) put(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evict removes all but the keep most recently created sessions and
// returns the number removed. A no-op when the store is at or under
// the limit.
func (s *store) evict(keep int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(s.sessions) <= keep {
		return 0
	}

	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].createdAt.After(all[j].createdAt)
	})

	evicted := 0
	for _, sess := range all[keep:] {
		delete(s.sessions, sess.id)
		evicted++
	}
	return evicted
}
