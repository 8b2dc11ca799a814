package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
)

// RefundSweepJob refunds every remaining donor of projects that closed
// without reaching their goal, so donors do not have to ask one by one.
type RefundSweepJob struct {
	engine *escrow.Engine
	clock  escrow.Clock
	config config.TaskConfig
}

// NewRefundSweepJob 创建自动退款任务
func NewRefundSweepJob(engine *escrow.Engine, clock escrow.Clock, cfg config.TaskConfig) *RefundSweepJob {
	return &RefundSweepJob{
		engine: engine,
		clock:  clock,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *RefundSweepJob) GetName() string {
	return "project_refund_sweeper"
}

// GetSchedule 获取调度配置
func (j *RefundSweepJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Interval) * time.Second)
}

// Execute 执行任务
func (j *RefundSweepJob) Execute() {
	logger.Info("Starting project refund sweep")
	refunded, err := j.RunOnce(context.Background())
	if err != nil {
		logger.Error("Project refund sweep failed: %v", err)
		return
	}
	logger.Info("Project refund sweep completed. Refunded %d contributions", refunded)
}

// RunOnce refunds the donors of every failed project and returns how many
// refunds succeeded. Projects are processed concurrently; calls on one
// project are serialized by the ledger.
func (j *RefundSweepJob) RunOnce(ctx context.Context) (int, error) {
	now := j.clock.Now()

	var failed []escrow.Project
	for _, p := range j.engine.Registry.ListProjects() {
		if p.Phase(now) == escrow.PhaseClosed && !p.GoalReached() && p.Held() > 0 {
			failed = append(failed, p)
		}
	}
	if len(failed) == 0 {
		return 0, nil
	}

	workers := j.config.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return 0, err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		refunded atomic.Int64
	)
	for _, p := range failed {
		wg.Add(1)
		projectID := p.ID
		if err := pool.Submit(func() {
			defer wg.Done()
			refunded.Add(int64(j.refundProject(ctx, projectID)))
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit refund of project %d: %v", projectID, err)
		}
	}
	wg.Wait()

	return int(refunded.Load()), nil
}

func (j *RefundSweepJob) refundProject(ctx context.Context, projectID uint64) int {
	contributions, err := j.engine.Ledger.Contributions(projectID)
	if err != nil {
		logger.Error("Failed to read contributions of project %d: %v", projectID, err)
		return 0
	}

	count := 0
	for donor, amount := range contributions {
		if amount == 0 {
			continue
		}
		_, err := j.engine.Ledger.Refund(ctx, projectID, donor)
		switch {
		case err == nil:
			count++
		case errors.Is(err, escrow.ErrTransferPending):
			count++
			logger.Warn("Refund of project %d to %s awaits confirmation: %v", projectID, donor, err)
		case errors.Is(err, escrow.ErrNoContribution):
			// refunded by the donor in the meantime
		case escrow.IsRetryable(err):
			logger.Warn("Refund of project %d to %s will be retried: %v", projectID, donor, err)
		default:
			logger.Error("Refund of project %d to %s failed: %v", projectID, donor, err)
		}
	}
	return count
}
