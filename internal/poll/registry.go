package poll

import (
	"sync"

	"github.com/google/uuid"
)

// Registry indexes the live polls by id and by channel. It is owned by the
// runtime container, not a package global, so tests get a fresh one.
type Registry struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*Poll
	byChannel map[string]*Poll
}

func NewRegistry() *Registry {
	return &Registry{
		byID:      make(map[uuid.UUID]*Poll),
		byChannel: make(map[string]*Poll),
	}
}

// insert and remove must be called with mu held.

func (r *Registry) insert(p *Poll) {
	r.byID[p.ID] = p
	r.byChannel[p.ChannelID] = p
}

func (r *Registry) remove(p *Poll) {
	delete(r.byID, p.ID)
	if r.byChannel[p.ChannelID] == p {
		delete(r.byChannel, p.ChannelID)
	}
}
