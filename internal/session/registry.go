package session

import (
	"sync"

	"github.com/pavelanni/interviewer/internal/model"
)

// Registry holds live sessions by ID. Its contents are volatile: anything
// missing is rebuilt from the store.
type Registry interface {
	Get(id int64) (*model.Session, bool)
	Put(s *model.Session)
	Delete(id int64)
	Len() int
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[int64]*model.Session)}
}

func (r *MemoryRegistry) Get(id int64) (*model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *MemoryRegistry) Put(s *model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *MemoryRegistry) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
