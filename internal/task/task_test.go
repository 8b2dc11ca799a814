package task

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/custody"
	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/repository"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

var t0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// newCampaigns creates one project per goal, donates 4 from each of donors
// and closes every window.
func newCampaigns(t *testing.T, donors int, goals ...uint64) (*escrow.Engine, *custody.MemoryToken, *stubClock) {
	t.Helper()
	ctx := context.Background()
	clock := &stubClock{now: t0}
	token := custody.NewMemoryToken("escrow")
	engine, err := escrow.Open(ctx, repository.NewMemoryStore(), token, escrow.Options{Clock: clock})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, goal := range goals {
		if _, err := engine.Registry.CreateProject(ctx, escrow.CreateProjectInput{
			Organizer:  "org",
			Title:      "campaign",
			StartTime:  t0.Add(time.Hour),
			EndTime:    t0.Add(2 * time.Hour),
			GoalAmount: goal,
		}); err != nil {
			t.Fatalf("CreateProject: %v", err)
		}
	}

	clock.now = t0.Add(90 * time.Minute)
	for id := range goals {
		for i := 0; i < donors; i++ {
			donor := fmt.Sprintf("d%d", i)
			token.Mint(donor, 4)
			token.Approve(donor, token.Allowance(donor)+4)
			if _, err := engine.Ledger.Donate(ctx, uint64(id), donor, 4); err != nil {
				t.Fatalf("Donate: %v", err)
			}
		}
	}
	clock.now = t0.Add(3 * time.Hour)
	return engine, token, clock
}

func TestRefundSweepRefundsFailedProjects(t *testing.T) {
	// Project 0 misses its goal, project 1 reaches it.
	engine, token, clock := newCampaigns(t, 3, 100, 12)
	job := NewRefundSweepJob(engine, clock, config.TaskConfig{Interval: 60, Workers: 2})

	refunded, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if refunded != 3 {
		t.Fatalf("refunded = %d, want 3", refunded)
	}

	failed, _ := engine.Registry.GetProject(0)
	if failed.Held() != 0 || failed.TotalRefunded != 12 {
		t.Errorf("failed project = %+v", failed)
	}
	reached, _ := engine.Registry.GetProject(1)
	if reached.Held() != 12 || reached.TotalRefunded != 0 {
		t.Errorf("successful project touched: %+v", reached)
	}
	for i := 0; i < 3; i++ {
		if got := token.BalanceOf(fmt.Sprintf("d%d", i)); got != 4 {
			t.Errorf("d%d balance = %d, want 4", i, got)
		}
	}

	// Nothing left to do on the next run.
	if refunded, err := job.RunOnce(context.Background()); err != nil || refunded != 0 {
		t.Errorf("second RunOnce = %d, %v", refunded, err)
	}
}

func TestRefundSweepSkipsOpenProjects(t *testing.T) {
	engine, _, clock := newCampaigns(t, 2, 100)
	clock.now = t0.Add(90 * time.Minute)

	job := NewRefundSweepJob(engine, clock, config.TaskConfig{Interval: 60, Workers: 1})
	refunded, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if refunded != 0 {
		t.Fatalf("refunded = %d while window open", refunded)
	}
}

func TestManagerRegistersSweepWhenEnabled(t *testing.T) {
	engine, _, clock := newCampaigns(t, 0)

	m, err := NewManager(engine, clock, config.TaskConfig{Interval: 60, AutoRefund: true, Workers: 1})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Start()
	defer m.Stop()
	if len(m.Jobs()) != 1 || m.Jobs()[0].GetName() != "project_refund_sweeper" {
		t.Fatalf("jobs = %v", m.Jobs())
	}

	off, err := NewManager(engine, clock, config.TaskConfig{Interval: 60})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	off.Start()
	defer off.Stop()
	if len(off.Jobs()) != 0 {
		t.Fatalf("jobs registered with auto refund off: %d", len(off.Jobs()))
	}
}
