package escrow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/blues/escrow/internal/escrow"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var errNoFunds = errors.New("insufficient balance")

// fakeCustody tracks balances; escrow holds pulled value under "escrow".
type fakeCustody struct {
	mu       sync.Mutex
	balances map[string]uint64
	failNext error
	// pendNext moves the value and then reports the outcome as unknown, the
	// way a transfer whose receipt timed out does.
	pendNext bool
	pulls    int
	pushes   int
}

func newFakeCustody() *fakeCustody {
	return &fakeCustody{balances: make(map[string]uint64)}
}

func (c *fakeCustody) fund(account string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[account] += amount
}

func (c *fakeCustody) balance(account string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account]
}

func (c *fakeCustody) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

func (c *fakeCustody) move(from, to string, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failNext; err != nil {
		c.failNext = nil
		return err
	}
	if c.balances[from] < amount {
		return errNoFunds
	}
	c.balances[from] -= amount
	c.balances[to] += amount
	if c.pendNext {
		c.pendNext = false
		return fmt.Errorf("tx 0xabc not mined: %w: %v", escrow.ErrTransferPending, context.DeadlineExceeded)
	}
	return nil
}

func (c *fakeCustody) pend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendNext = true
}

func (c *fakeCustody) Pull(_ context.Context, from string, amount uint64) error {
	c.mu.Lock()
	c.pulls++
	c.mu.Unlock()
	return c.move(from, "escrow", amount)
}

func (c *fakeCustody) Push(_ context.Context, to string, amount uint64) error {
	c.mu.Lock()
	c.pushes++
	c.mu.Unlock()
	return c.move("escrow", to, amount)
}

// fakeStore records committed mutations in memory.
type fakeStore struct {
	mu        sync.Mutex
	state     escrow.State
	events    []escrow.Event
	commitErr error
	commits   int
}

func (s *fakeStore) Load(context.Context) (*escrow.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := escrow.State{
		Projects:      append([]escrow.Project(nil), s.state.Projects...),
		Contributions: append([]escrow.Contribution(nil), s.state.Contributions...),
		LastEventSeq:  s.state.LastEventSeq,
	}
	return &st, nil
}

func (s *fakeStore) Commit(ctx context.Context, m escrow.Mutation, effect func(context.Context) error) error {
	if effect != nil {
		if err := effect(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	s.commits++
	if p := m.Project; p != nil {
		if p.ID < uint64(len(s.state.Projects)) {
			s.state.Projects[p.ID] = *p
		} else {
			s.state.Projects = append(s.state.Projects, *p)
		}
	}
	if c := m.Contribution; c != nil {
		replaced := false
		for i, old := range s.state.Contributions {
			if old.ProjectID == c.ProjectID && old.Donor == c.Donor {
				s.state.Contributions[i] = *c
				replaced = true
			}
		}
		if !replaced {
			s.state.Contributions = append(s.state.Contributions, *c)
		}
	}
	if ev := m.Event; ev != nil {
		s.events = append(s.events, *ev)
		if ev.Seq > s.state.LastEventSeq {
			s.state.LastEventSeq = ev.Seq
		}
	}
	return nil
}

func (s *fakeStore) Events(_ context.Context, projectID uint64) ([]escrow.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []escrow.Event
	for _, ev := range s.events {
		if ev.ProjectID == projectID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// fakeSink collects published events.
type fakeSink struct {
	mu     sync.Mutex
	events []escrow.Event
}

func (s *fakeSink) Publish(_ context.Context, ev escrow.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

type fixture struct {
	engine  *escrow.Engine
	clock   *fakeClock
	custody *fakeCustody
	store   *fakeStore
	sink    *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, escrow.Options{})
}

func newFixtureWith(t *testing.T, opts escrow.Options) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &fakeClock{now: t0},
		custody: newFakeCustody(),
		store:   &fakeStore{},
		sink:    &fakeSink{},
	}
	opts.Clock = f.clock
	opts.Sink = f.sink
	engine, err := escrow.Open(context.Background(), f.store, f.custody, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.engine = engine
	return f
}

// createProject registers a project opening in one hour and closing in three.
func (f *fixture) createProject(t *testing.T, organizer string, goal uint64) uint64 {
	t.Helper()
	id, err := f.engine.Registry.CreateProject(context.Background(), escrow.CreateProjectInput{
		Organizer:   organizer,
		Title:       "Project A",
		Description: "Help the poor",
		StartTime:   t0.Add(time.Hour),
		EndTime:     t0.Add(3 * time.Hour),
		GoalAmount:  goal,
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return id
}

func (f *fixture) open()  { f.clock.Set(t0.Add(2 * time.Hour)) }
func (f *fixture) close() { f.clock.Set(t0.Add(3*time.Hour + time.Second)) }

func (f *fixture) donate(t *testing.T, id uint64, donor string, amount uint64) {
	t.Helper()
	f.custody.fund(donor, amount)
	if _, err := f.engine.Ledger.Donate(context.Background(), id, donor, amount); err != nil {
		t.Fatalf("Donate(%d, %s, %d): %v", id, donor, amount, err)
	}
}

func (f *fixture) snapshot(t *testing.T, id uint64) escrow.Snapshot {
	t.Helper()
	snap, err := f.engine.Ledger.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}
