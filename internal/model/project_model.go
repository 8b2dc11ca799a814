package model

import (
	"time"

	"github.com/blues/escrow/internal/escrow"
)

// ProjectModel 众筹项目表. Id is assigned by the registry, never by the database.
type ProjectModel struct {
	Id        uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time

	Organizer   string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text"`

	StartTime time.Time `gorm:"not null"`
	EndTime   time.Time `gorm:"not null"`

	GoalAmount    uint64 `gorm:"not null"`
	TotalRaised   uint64 `gorm:"not null;default:0"`
	TotalRefunded uint64 `gorm:"not null;default:0"`
	Settled       bool   `gorm:"not null;default:false"`
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}

// FromProject converts a ledger project into its row.
func FromProject(p escrow.Project) ProjectModel {
	return ProjectModel{
		Id:            p.ID,
		CreatedAt:     p.CreatedAt,
		Organizer:     p.Organizer,
		Title:         p.Title,
		Description:   p.Description,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		GoalAmount:    p.GoalAmount,
		TotalRaised:   p.TotalRaised,
		TotalRefunded: p.TotalRefunded,
		Settled:       p.Settled,
	}
}

// ToProject converts the row back into a ledger project.
func (m ProjectModel) ToProject() escrow.Project {
	return escrow.Project{
		ID:            m.Id,
		Organizer:     m.Organizer,
		Title:         m.Title,
		Description:   m.Description,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		GoalAmount:    m.GoalAmount,
		TotalRaised:   m.TotalRaised,
		TotalRefunded: m.TotalRefunded,
		Settled:       m.Settled,
		CreatedAt:     m.CreatedAt,
	}
}
