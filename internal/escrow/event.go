package escrow

import (
	"sync/atomic"
	"time"
)

// EventKind names an observable ledger event.
type EventKind string

const (
	EventProjectCreated   EventKind = "ProjectCreated"
	EventUserDonated      EventKind = "UserDonated"
	EventFundsWithdrawn   EventKind = "FundsWithdrawn"
	EventDonationRefunded EventKind = "DonationRefunded"
)

// Event is emitted once per successful call. Seq is global and increasing;
// a failed call may leave a gap.
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	ProjectID uint64    `json:"project_id"`
	Account   string    `json:"account"`
	Amount    uint64    `json:"amount"`
	At        time.Time `json:"at"`
}

// sequencer hands out event sequence numbers.
type sequencer struct {
	last atomic.Uint64
}

func (s *sequencer) next(kind EventKind, projectID uint64, account string, amount uint64, at time.Time) Event {
	return Event{
		Seq:       s.last.Add(1),
		Kind:      kind,
		ProjectID: projectID,
		Account:   account,
		Amount:    amount,
		At:        at,
	}
}
