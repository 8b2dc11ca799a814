package task

import (
	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

// Job is a periodic task run by the Manager.
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	jobs      []Job
}

// NewManager 创建新的任务管理器 and registers the jobs enabled in cfg.
func NewManager(engine *escrow.Engine, clock escrow.Clock, cfg config.TaskConfig) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	m := &Manager{scheduler: s}
	if cfg.AutoRefund {
		if err := m.Register(NewRefundSweepJob(engine, clock, cfg)); err != nil {
			_ = s.Shutdown()
			return nil, err
		}
	}
	return m, nil
}

// Register 注册任务
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
		return err
	}
	m.jobs = append(m.jobs, job)
	logger.Info("Registered job %s", job.GetName())
	return nil
}

// Jobs returns the registered jobs.
func (m *Manager) Jobs() []Job {
	return m.jobs
}

// Start 启动任务管理器
func (m *Manager) Start() {
	m.scheduler.Start()
	logger.Info("Task manager started with %d jobs", len(m.jobs))
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
