package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/blues/escrow/internal/escrow"
)

type contributionKey struct {
	projectID uint64
	donor     string
}

// MemoryStore keeps ledger state in process memory. It survives engine
// restarts within one process, which is enough for tests and demos.
type MemoryStore struct {
	mu            sync.RWMutex
	projects      map[uint64]escrow.Project
	contributions map[contributionKey]uint64
	events        []escrow.Event
}

var _ escrow.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:      make(map[uint64]escrow.Project),
		contributions: make(map[contributionKey]uint64),
	}
}

func (s *MemoryStore) Load(_ context.Context) (*escrow.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &escrow.State{}
	for _, p := range s.projects {
		state.Projects = append(state.Projects, p)
	}
	sort.Slice(state.Projects, func(i, j int) bool { return state.Projects[i].ID < state.Projects[j].ID })

	for k, amount := range s.contributions {
		if amount == 0 {
			continue
		}
		state.Contributions = append(state.Contributions, escrow.Contribution{ProjectID: k.projectID, Donor: k.donor, Amount: amount})
	}
	for _, ev := range s.events {
		if ev.Seq > state.LastEventSeq {
			state.LastEventSeq = ev.Seq
		}
	}
	return state, nil
}

// Commit runs effect first and only records m if it succeeds.
func (s *MemoryStore) Commit(ctx context.Context, m escrow.Mutation, effect func(ctx context.Context) error) error {
	if effect != nil {
		if err := effect(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Project != nil {
		s.projects[m.Project.ID] = *m.Project
	}
	if m.Contribution != nil {
		s.contributions[contributionKey{m.Contribution.ProjectID, m.Contribution.Donor}] = m.Contribution.Amount
	}
	if m.Event != nil {
		s.events = append(s.events, *m.Event)
	}
	return nil
}

func (s *MemoryStore) Events(_ context.Context, projectID uint64) ([]escrow.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []escrow.Event
	for _, ev := range s.events {
		if ev.ProjectID == projectID {
			out = append(out, ev)
		}
	}
	return out, nil
}
