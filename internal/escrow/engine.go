// Package escrow implements the crowdfunding escrow: a project registry and
// a ledger that accepts donations during a project's window and, once the
// window closes, either releases the funds to the organizer (goal met) or
// lets each donor withdraw their stake (goal missed).
package escrow

import (
	"context"
	"fmt"
	"sort"
)

// Engine bundles the registry and the ledger built over one store.
type Engine struct {
	Registry *Registry
	Ledger   *Ledger
}

// Open rebuilds the engine from the state persisted in store.
func Open(ctx context.Context, store Store, custody Custody, opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load escrow state: %w", err)
	}

	projects := append([]Project(nil), state.Projects...)
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	for i, p := range projects {
		if p.ID != uint64(i) {
			return nil, fmt.Errorf("load escrow state: project ids not contiguous at %d (found %d)", i, p.ID)
		}
	}

	seq := &sequencer{}
	seq.last.Store(state.LastEventSeq)

	registry := newRegistry(store, seq, opts, projects)
	ledger := newLedger(registry, store, custody, seq, opts, state.Contributions)
	return &Engine{Registry: registry, Ledger: ledger}, nil
}
