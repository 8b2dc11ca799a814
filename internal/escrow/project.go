package escrow

import "time"

// Project is a funding campaign. Registry assigns ID; only the ledger
// mutates TotalRaised, TotalRefunded and Settled.
type Project struct {
	ID            uint64    `json:"id"`
	Organizer     string    `json:"organizer"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	GoalAmount    uint64    `json:"goal_amount"`
	TotalRaised   uint64    `json:"total_raised"`
	TotalRefunded uint64    `json:"total_refunded"`
	Settled       bool      `json:"settled"`
	CreatedAt     time.Time `json:"created_at"`
}

// Phase is derived from the clock on every call and never stored.
type Phase string

const (
	PhasePending Phase = "pending" // before startTime
	PhaseOpen    Phase = "open"
	PhaseClosed  Phase = "closed" // window elapsed, not settled
	PhaseSettled Phase = "settled"
)

// Phase returns the lifecycle phase of p at now.
func (p Project) Phase(now time.Time) Phase {
	switch {
	case p.Settled:
		return PhaseSettled
	case !now.Before(p.EndTime):
		return PhaseClosed
	case now.Before(p.StartTime):
		return PhasePending
	default:
		return PhaseOpen
	}
}

// Closed reports whether the donation window has elapsed.
func (p Project) Closed(now time.Time) bool {
	return !now.Before(p.EndTime)
}

// GoalReached is the single comparison that gates both settle and refund.
func (p Project) GoalReached() bool {
	return p.TotalRaised >= p.GoalAmount
}

// Held is the amount currently in escrow custody for p.
func (p Project) Held() uint64 {
	if p.Settled {
		return 0
	}
	return p.TotalRaised - p.TotalRefunded
}

// Contribution is the cumulative stake of one donor in one project.
type Contribution struct {
	ProjectID uint64 `json:"project_id"`
	Donor     string `json:"donor"`
	Amount    uint64 `json:"amount"`
}

// Snapshot is a consistent view of a project and all of its contributions.
type Snapshot struct {
	Project       Project           `json:"project"`
	Contributions map[string]uint64 `json:"contributions"`
}

// Sum adds up every contribution in the snapshot.
func (s Snapshot) Sum() uint64 {
	var total uint64
	for _, amount := range s.Contributions {
		total += amount
	}
	return total
}
