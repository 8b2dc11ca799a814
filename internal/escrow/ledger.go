package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blues/escrow/internal/logger"
)

// Ledger tracks per-donor contributions and executes settlement and refund.
// It is the only mutator of Project.TotalRaised, TotalRefunded and Settled.
type Ledger struct {
	// mu guards contributions. When both are needed, mu is taken before
	// registry.mu.
	mu            sync.RWMutex
	contributions map[uint64]map[string]uint64

	locks    projectLocks
	registry *Registry
	store    Store
	custody  Custody
	seq      *sequencer
	opts     Options
}

func newLedger(registry *Registry, store Store, custody Custody, seq *sequencer, opts Options, contributions []Contribution) *Ledger {
	l := &Ledger{
		contributions: make(map[uint64]map[string]uint64),
		registry:      registry,
		store:         store,
		custody:       custody,
		seq:           seq,
		opts:          opts,
	}
	for _, c := range contributions {
		if c.Amount > 0 {
			l.table(c.ProjectID)[c.Donor] = c.Amount
		}
	}
	return l
}

// Donate pulls amount from donor into escrow and credits it to the project.
func (l *Ledger) Donate(ctx context.Context, projectID uint64, donor string, amount uint64) (Event, error) {
	if amount == 0 {
		return Event{}, ErrZeroAmount
	}
	if err := l.opts.checkAccount(donor); err != nil {
		return Event{}, err
	}

	p, unlock, err := l.lockProject(projectID)
	if err != nil {
		return Event{}, err
	}
	defer unlock()

	now := l.opts.Clock.Now()
	if p.Closed(now) {
		return Event{}, ErrWindowClosed
	}
	if now.Before(p.StartTime) && !l.opts.AllowEarlyDonations {
		return Event{}, ErrWindowNotStarted
	}
	if amount > MaxAmount-p.TotalRaised {
		return Event{}, ErrAmountOverflow
	}

	c := Contribution{ProjectID: projectID, Donor: donor, Amount: l.stake(projectID, donor) + amount}
	p.TotalRaised += amount
	ev := l.seq.next(EventUserDonated, projectID, donor, amount, now)

	res, err := l.commit(ctx, Mutation{Project: &p, Contribution: &c, Event: &ev}, func(ctx context.Context) error {
		return l.custody.Pull(ctx, donor, amount)
	})
	if err != nil {
		switch {
		case res.pending != nil:
			logger.Error("Project %d: pull of %d from %s unconfirmed and commit failed, reconcile manually: %v", projectID, amount, donor, res.pending)
		case res.moved:
			// The funds left the donor but the ledger did not record them.
			if perr := l.custody.Push(ctx, donor, amount); perr != nil {
				logger.Error("Project %d: failed to return %d to %s after commit error: %v", projectID, amount, donor, perr)
			}
		}
		return Event{}, err
	}

	l.apply(p, &c)
	logger.Info("Project %d received %d from %s, total raised %d", projectID, amount, donor, p.TotalRaised)
	publish(ctx, l.opts.Sink, ev)
	return ev, res.pendingErr(ev)
}

// Settle releases the whole raised amount to the organizer once the window
// has closed with the goal met. It succeeds at most once per project.
func (l *Ledger) Settle(ctx context.Context, projectID uint64, caller string) (Event, error) {
	p, unlock, err := l.lockProject(projectID)
	if err != nil {
		return Event{}, err
	}
	defer unlock()

	now := l.opts.Clock.Now()
	if caller != p.Organizer {
		return Event{}, ErrNotOrganizer
	}
	if !p.Closed(now) {
		return Event{}, ErrWindowOpen
	}
	if p.Settled {
		return Event{}, ErrAlreadySettled
	}
	if !p.GoalReached() {
		return Event{}, ErrGoalNotReached
	}

	amount := p.TotalRaised
	p.Settled = true
	ev := l.seq.next(EventFundsWithdrawn, projectID, p.Organizer, amount, now)

	res, err := l.commit(ctx, Mutation{Project: &p, Event: &ev}, func(ctx context.Context) error {
		return l.custody.Push(ctx, p.Organizer, amount)
	})
	if err != nil {
		if res.moved {
			logger.Error("Project %d: paid %d to organizer %s but commit failed, reconcile manually: %v", projectID, amount, p.Organizer, err)
		}
		return Event{}, err
	}

	l.apply(p, nil)
	logger.Info("Project %d settled, %d released to %s", projectID, amount, p.Organizer)
	publish(ctx, l.opts.Sink, ev)
	return ev, res.pendingErr(ev)
}

// Refund returns the donor's whole stake once the window has closed with the
// goal missed. A second refund by the same donor fails with ErrNoContribution.
func (l *Ledger) Refund(ctx context.Context, projectID uint64, donor string) (Event, error) {
	p, unlock, err := l.lockProject(projectID)
	if err != nil {
		return Event{}, err
	}
	defer unlock()

	now := l.opts.Clock.Now()
	if !p.Closed(now) {
		return Event{}, ErrWindowOpen
	}
	if p.GoalReached() {
		return Event{}, ErrGoalReached
	}
	if p.Settled {
		return Event{}, ErrAlreadySettled
	}
	stake := l.stake(projectID, donor)
	if stake == 0 {
		return Event{}, ErrNoContribution
	}

	c := Contribution{ProjectID: projectID, Donor: donor, Amount: 0}
	p.TotalRefunded += stake
	ev := l.seq.next(EventDonationRefunded, projectID, donor, stake, now)

	res, err := l.commit(ctx, Mutation{Project: &p, Contribution: &c, Event: &ev}, func(ctx context.Context) error {
		return l.custody.Push(ctx, donor, stake)
	})
	if err != nil {
		if res.moved {
			logger.Error("Project %d: refunded %d to %s but commit failed, reconcile manually: %v", projectID, stake, donor, err)
		}
		return Event{}, err
	}

	l.apply(p, &c)
	logger.Info("Project %d refunded %d to %s", projectID, stake, donor)
	publish(ctx, l.opts.Sink, ev)
	return ev, res.pendingErr(ev)
}

// GetContribution returns the recorded stake of donor in the project. Donors
// that never gave, or were refunded, read as zero.
func (l *Ledger) GetContribution(projectID uint64, donor string) (uint64, error) {
	if _, err := l.registry.GetProject(projectID); err != nil {
		return 0, err
	}
	return l.stake(projectID, donor), nil
}

func (l *Ledger) stake(projectID uint64, donor string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.contributions[projectID][donor]
}

// Contributions returns a copy of every donor stake recorded for the project.
func (l *Ledger) Contributions(projectID uint64) (map[string]uint64, error) {
	snap, err := l.Snapshot(projectID)
	if err != nil {
		return nil, err
	}
	return snap.Contributions, nil
}

// Snapshot reads the project and its contributions under one lock so the
// totals never disagree with the individual stakes.
func (l *Ledger) Snapshot(projectID uint64) (Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.registry.mu.RLock()
	defer l.registry.mu.RUnlock()

	p, err := l.registry.get(projectID)
	if err != nil {
		return Snapshot{}, err
	}
	out := make(map[string]uint64, len(l.contributions[projectID]))
	for donor, amount := range l.contributions[projectID] {
		out[donor] = amount
	}
	return Snapshot{Project: p, Contributions: out}, nil
}

// Events returns the persisted event log of the project in call order.
func (l *Ledger) Events(ctx context.Context, projectID uint64) ([]Event, error) {
	if _, err := l.registry.GetProject(projectID); err != nil {
		return nil, err
	}
	return l.store.Events(ctx, projectID)
}

// commitResult tells a rejected transfer from a failed write that happened
// after value already moved. pending is set when custody broadcast the
// transfer but could not confirm it.
type commitResult struct {
	moved   bool
	pending error
}

// pendingErr is returned alongside a committed event whose transfer is not
// yet confirmed.
func (r commitResult) pendingErr(ev Event) error {
	if r.pending == nil {
		return nil
	}
	logger.Warn("Project %d: %s event %d committed with unconfirmed transfer: %v", ev.ProjectID, ev.Kind, ev.Seq, r.pending)
	return r.pending
}

// commit runs effect inside the store transaction. An unconfirmed transfer
// is committed as applied so a retry cannot move the value a second time.
func (l *Ledger) commit(ctx context.Context, m Mutation, effect func(ctx context.Context) error) (res commitResult, err error) {
	err = l.store.Commit(ctx, m, func(ctx context.Context) error {
		if err := effect(ctx); err != nil {
			if errors.Is(err, ErrTransferPending) {
				res.moved = true
				res.pending = err
				return nil
			}
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		res.moved = true
		return nil
	})
	if err != nil && !errors.Is(err, ErrTransferFailed) {
		err = fmt.Errorf("commit project %d: %w", m.Project.ID, err)
	}
	return res, err
}

func (l *Ledger) apply(p Project, c *Contribution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()

	l.registry.replace(p)
	if c == nil {
		return
	}
	// Refunded stakes are dropped so the table matches what stores reload.
	if c.Amount == 0 {
		delete(l.table(c.ProjectID), c.Donor)
		return
	}
	l.table(c.ProjectID)[c.Donor] = c.Amount
}

// table requires l.mu held for writing.
func (l *Ledger) table(projectID uint64) map[string]uint64 {
	t, ok := l.contributions[projectID]
	if !ok {
		t = make(map[string]uint64)
		l.contributions[projectID] = t
	}
	return t
}

// lockProject takes the project's lock and returns the project read under
// it. Unknown ids fail before a lock entry is created.
func (l *Ledger) lockProject(projectID uint64) (Project, func(), error) {
	if _, err := l.registry.GetProject(projectID); err != nil {
		return Project{}, nil, err
	}
	unlock := l.locks.lock(projectID)
	p, err := l.registry.GetProject(projectID)
	if err != nil {
		unlock()
		return Project{}, nil, err
	}
	return p, unlock, nil
}

// projectLocks serializes mutating calls per project. Only ids of existing
// projects get an entry, and projects are never deleted.
type projectLocks struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func (pl *projectLocks) lock(id uint64) func() {
	pl.mu.Lock()
	if pl.locks == nil {
		pl.locks = make(map[uint64]*sync.Mutex)
	}
	m, ok := pl.locks[id]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[id] = m
	}
	pl.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func publish(ctx context.Context, sink EventSink, ev Event) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish %s event %d: %v", ev.Kind, ev.Seq, err)
	}
}
