package pipeline

import (
	"sort"

	"recruitflow/internal/candidate"
)

// State is the candidate collection keyed by id. A State is never mutated
// in place; Apply and Load return new values.
type State struct {
	byID map[string]candidate.Candidate
}

func NewState(cs ...candidate.Candidate) State {
	s := State{byID: make(map[string]candidate.Candidate, len(cs))}
	for _, c := range cs {
		if c.ID != "" {
			s.byID[c.ID] = c
		}
	}
	return s
}

func (s State) Len() int { return len(s.byID) }

func (s State) Get(id string) (candidate.Candidate, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// List returns the records ordered by id so that callers sorting on other
// keys start from a reproducible order.
func (s State) List() []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts is Stats over the held records without building a list.
func (s State) Counts() map[candidate.Status]int {
	out := make(map[candidate.Status]int, len(candidate.Statuses()))
	for _, st := range candidate.Statuses() {
		out[st] = 0
	}
	for _, c := range s.byID {
		out[c.Status]++
	}
	return out
}

func (s State) clone(extra int) map[string]candidate.Candidate {
	m := make(map[string]candidate.Candidate, len(s.byID)+extra)
	for id, c := range s.byID {
		m[id] = c
	}
	return m
}

type Op int

const (
	Upsert Op = iota
	Delete
)

func (o Op) String() string {
	if o == Delete {
		return "delete"
	}
	return "upsert"
}

// Event carries a full record. For Delete only ID and Version are read.
type Event struct {
	Op        Op
	Candidate candidate.Candidate
}

// stale reports whether incoming is older than held. Version 0 means the
// source did not supply one, and such records never count as stale.
func stale(held, incoming candidate.Candidate) bool {
	return held.Version > 0 && incoming.Version > 0 && incoming.Version < held.Version
}

// Apply returns the state after e. An upsert for an unknown id inserts, for a
// known id replaces the whole record; an event older than the held record is
// ignored.
func Apply(s State, e Event) State {
	c := e.Candidate
	if c.ID == "" {
		return s
	}
	held, exists := s.byID[c.ID]
	if exists && stale(held, c) {
		return s
	}

	switch e.Op {
	case Delete:
		if !exists {
			return s
		}
		m := s.clone(0)
		delete(m, c.ID)
		return State{byID: m}
	default:
		m := s.clone(1)
		m[c.ID] = c
		return State{byID: m}
	}
}

// Load replaces the collection with a bulk fetch. A record already held with
// a newer version than the fetched copy survives, which covers events that
// were applied while the fetch was in flight.
func Load(prev State, fetched []candidate.Candidate) State {
	next := NewState(fetched...)
	for id, c := range next.byID {
		if held, ok := prev.byID[id]; ok && stale(held, c) {
			next.byID[id] = held
		}
	}
	return next
}
