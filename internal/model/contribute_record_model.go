package model

import (
	"time"

	"github.com/blues/escrow/internal/escrow"
)

// ContributionModel 贡献记录, one row per (project, donor) holding the cumulative stake.
type ContributionModel struct {
	ProjectId uint64 `gorm:"primaryKey;autoIncrement:false"`
	Donor     string `gorm:"primaryKey"`
	Amount    uint64 `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}

func FromContribution(c escrow.Contribution) ContributionModel {
	return ContributionModel{ProjectId: c.ProjectID, Donor: c.Donor, Amount: c.Amount}
}

func (m ContributionModel) ToContribution() escrow.Contribution {
	return escrow.Contribution{ProjectID: m.ProjectId, Donor: m.Donor, Amount: m.Amount}
}
