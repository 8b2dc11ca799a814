package escrow

import (
	"context"
	"math"
	"time"
)

// Custody moves value into and out of escrow. The ledger never inspects
// token metadata, only magnitudes. An error means no value moved, unless it
// wraps ErrTransferPending, which means the transfer may still complete.
type Custody interface {
	Pull(ctx context.Context, from string, amount uint64) error
	Push(ctx context.Context, to string, amount uint64) error
}

// Clock supplies the current time. It is read once per operation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Mutation is the set of records one operation writes.
type Mutation struct {
	Project      *Project
	Contribution *Contribution
	Event        *Event
}

// State is everything a Store persisted, used to rebuild the engine on start.
type State struct {
	Projects      []Project
	Contributions []Contribution
	LastEventSeq  uint64
}

// Store persists ledger state. Commit writes m and runs effect inside the
// same transaction; if effect returns an error nothing is written and that
// error is returned unchanged.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Commit(ctx context.Context, m Mutation, effect func(ctx context.Context) error) error
	Events(ctx context.Context, projectID uint64) ([]Event, error)
}

// EventSink receives events after they are committed.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// MaxAmount bounds every total so it fits a signed 64-bit column.
const MaxAmount = uint64(math.MaxInt64)

// Options configures the engine.
type Options struct {
	Clock Clock
	// AllowEarlyDonations accepts donations before StartTime. The window end
	// is always enforced.
	AllowEarlyDonations bool
	// ValidAccount rejects malformed account identifiers. Nil accepts any
	// non-empty string.
	ValidAccount func(account string) bool
	Sink         EventSink
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	return o
}

func (o Options) checkAccount(account string) error {
	if account == "" {
		return ErrInvalidAccount
	}
	if o.ValidAccount != nil && !o.ValidAccount(account) {
		return ErrInvalidAccount
	}
	return nil
}
