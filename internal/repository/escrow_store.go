package repository

import (
	"context"
	"fmt"

	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EscrowStore persists ledger state with gorm.
type EscrowStore struct {
	db *gorm.DB
}

var _ escrow.Store = (*EscrowStore)(nil)

// NewEscrowStore 创建账本存储
func NewEscrowStore(db *gorm.DB) *EscrowStore {
	return &EscrowStore{db: db}
}

// Load reads every project, contribution and the last event sequence.
func (s *EscrowStore) Load(ctx context.Context) (*escrow.State, error) {
	db := s.db.WithContext(ctx)

	var projects []model.ProjectModel
	if err := db.Order("id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	var contributions []model.ContributionModel
	if err := db.Where("amount > 0").Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("load contributions: %w", err)
	}

	var lastSeq uint64
	if err := db.Model(&model.EventModel{}).Select("COALESCE(MAX(seq), 0)").Scan(&lastSeq).Error; err != nil {
		return nil, fmt.Errorf("load last event sequence: %w", err)
	}

	state := &escrow.State{LastEventSeq: lastSeq}
	for _, p := range projects {
		state.Projects = append(state.Projects, p.ToProject())
	}
	for _, c := range contributions {
		state.Contributions = append(state.Contributions, c.ToContribution())
	}
	return state, nil
}

// Commit writes m and runs effect in one transaction.
func (s *EscrowStore) Commit(ctx context.Context, m escrow.Mutation, effect func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.Project != nil {
			row := model.FromProject(*m.Project)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("save project %d: %w", row.Id, err)
			}
		}
		if m.Contribution != nil {
			row := model.FromContribution(*m.Contribution)
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("save contribution %d/%s: %w", row.ProjectId, row.Donor, err)
			}
		}
		if m.Event != nil {
			row := model.FromEvent(*m.Event)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("save event %d: %w", row.Seq, err)
			}
		}
		if effect != nil {
			return effect(ctx)
		}
		return nil
	})
}

// Events returns the project's events ordered by sequence.
func (s *EscrowStore) Events(ctx context.Context, projectID uint64) ([]escrow.Event, error) {
	var rows []model.EventModel
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load events of project %d: %w", projectID, err)
	}

	events := make([]escrow.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.ToEvent())
	}
	return events, nil
}
