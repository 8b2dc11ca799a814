package escrow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blues/escrow/internal/logger"
)

// CreateProjectInput holds the parameters of a new project.
type CreateProjectInput struct {
	Organizer   string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	GoalAmount  uint64
}

// Registry owns the append-only project sequence.
type Registry struct {
	mu       sync.RWMutex
	projects []Project

	// createMu serializes id assignment together with its commit.
	createMu sync.Mutex

	store Store
	seq   *sequencer
	opts  Options
}

func newRegistry(store Store, seq *sequencer, opts Options, projects []Project) *Registry {
	return &Registry{
		projects: projects,
		store:    store,
		seq:      seq,
		opts:     opts,
	}
}

// CreateProject validates in and appends a new project. The returned id is
// the zero-based insertion index.
func (r *Registry) CreateProject(ctx context.Context, in CreateProjectInput) (uint64, error) {
	now := r.opts.Clock.Now()
	if err := r.validate(in, now); err != nil {
		return 0, err
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	r.mu.RLock()
	id := uint64(len(r.projects))
	r.mu.RUnlock()

	p := Project{
		ID:          id,
		Organizer:   in.Organizer,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		GoalAmount:  in.GoalAmount,
		CreatedAt:   now,
	}
	ev := r.seq.next(EventProjectCreated, id, in.Organizer, in.GoalAmount, now)

	if err := r.store.Commit(ctx, Mutation{Project: &p, Event: &ev}, nil); err != nil {
		return 0, fmt.Errorf("save project: %w", err)
	}

	r.mu.Lock()
	r.projects = append(r.projects, p)
	r.mu.Unlock()

	logger.Info("Project %d created by %s, goal %d, window %s - %s",
		id, in.Organizer, in.GoalAmount, in.StartTime.Format(time.RFC3339), in.EndTime.Format(time.RFC3339))
	publish(ctx, r.opts.Sink, ev)
	return id, nil
}

// GetProject returns a copy of the project with the given id.
func (r *Registry) GetProject(id uint64) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

// ListProjects returns a copy of every project in id order.
func (r *Registry) ListProjects() []Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Project, len(r.projects))
	copy(out, r.projects)
	return out
}

// get requires r.mu held.
func (r *Registry) get(id uint64) (Project, error) {
	if id >= uint64(len(r.projects)) {
		return Project{}, ErrNotFound
	}
	return r.projects[id], nil
}

// replace requires r.mu held for writing.
func (r *Registry) replace(p Project) {
	r.projects[p.ID] = p
}

func (r *Registry) validate(in CreateProjectInput, now time.Time) error {
	if err := r.opts.checkAccount(in.Organizer); err != nil {
		return err
	}
	if !in.StartTime.After(now) {
		return ErrInvalidSchedule
	}
	if !in.EndTime.After(in.StartTime) {
		return ErrInvalidSchedule
	}
	if in.GoalAmount == 0 || in.GoalAmount > MaxAmount {
		return ErrInvalidGoal
	}
	return nil
}
