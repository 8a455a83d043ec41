package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type entry struct {
	conn contract.Connection
	seq  uint64 // registration order, used to break ties on removal
}

// Registry tracks which live connection currently answers for each participant.
// There is at most one connection per participant; the latest registration wins.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ParticipantID]entry
	nextSeq  uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ParticipantID]entry),
	}
}

// Register binds a participant to a connection, replacing any previous binding
// even if the previous connection is still open.
func (r *Registry) Register(participantID domain.ParticipantID, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	r.sessions[participantID] = entry{conn: conn, seq: r.nextSeq}
}

func (r *Registry) Lookup(participantID domain.ParticipantID) (contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[participantID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// RemoveByHandle drops the entry held by conn and returns its participant.
// Matching is by connection, never by identifier, so closing a superseded
// connection leaves the newer registration in place.
// If several participants point at the same connection only the oldest
// registration is removed.
func (r *Registry) RemoveByHandle(conn contract.Connection) (domain.ParticipantID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found  bool
		winner domain.ParticipantID
		oldest uint64
	)
	for participantID, e := range r.sessions {
		if e.conn != conn {
			continue
		}
		if !found || e.seq < oldest {
			found, winner, oldest = true, participantID, e.seq
		}
	}
	if found {
		delete(r.sessions, winner)
	}
	return winner, found
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
