package model

import (
	"time"

	"github.com/blues/escrow/internal/escrow"
)

// EventModel 账本事件记录, append-only.
type EventModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement:false"`
	ProjectId uint64    `gorm:"not null;index"`
	EventType string    `gorm:"not null"`
	Account   string    `gorm:"not null"`
	Amount    uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}

func FromEvent(ev escrow.Event) EventModel {
	return EventModel{
		Seq:       ev.Seq,
		ProjectId: ev.ProjectID,
		EventType: string(ev.Kind),
		Account:   ev.Account,
		Amount:    ev.Amount,
		CreatedAt: ev.At,
	}
}

func (m EventModel) ToEvent() escrow.Event {
	return escrow.Event{
		Seq:       m.Seq,
		Kind:      escrow.EventKind(m.EventType),
		ProjectID: m.ProjectId,
		Account:   m.Account,
		Amount:    m.Amount,
		At:        m.CreatedAt,
	}
}
