package handler

import (
	"time"

	"github.com/blues/escrow/internal/escrow"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type CreateProjectRequest struct {
	Organizer   string    `json:"organizer"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	GoalAmount  uint64    `json:"goalAmount"`
}

type DonateRequest struct {
	Donor  string `json:"donor"`
	Amount uint64 `json:"amount"`
}

type SettleRequest struct {
	Caller string `json:"caller"`
}

type RefundRequest struct {
	Donor string `json:"donor"`
}

// ProjectResponse 项目响应模型
type ProjectResponse struct {
	ID            uint64    `json:"id"`
	Organizer     string    `json:"organizer"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	GoalAmount    uint64    `json:"goalAmount"`
	TotalRaised   uint64    `json:"totalRaised"`
	TotalRefunded uint64    `json:"totalRefunded"`
	Held          uint64    `json:"held"`
	Settled       bool      `json:"settled"`
	GoalReached   bool      `json:"goalReached"`
	Phase         string    `json:"phase"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateProjectResponse struct {
	ID uint64 `json:"id"`
}

type GetProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ContributionResponse struct {
	ProjectID uint64 `json:"projectId"`
	Donor     string `json:"donor"`
	Amount    uint64 `json:"amount"`
}

type GetContributionsResponse struct {
	ProjectID     uint64                 `json:"projectId"`
	TotalRaised   uint64                 `json:"totalRaised"`
	Contributions []ContributionResponse `json:"contributions"`
}

type EventResponse struct {
	Seq       uint64    `json:"seq"`
	Kind      string    `json:"kind"`
	ProjectID uint64    `json:"projectId"`
	Account   string    `json:"account"`
	Amount    uint64    `json:"amount"`
	At        time.Time `json:"at"`
}

type GetEventsResponse struct {
	Events []EventResponse `json:"events"`
}

func ToProjectResponse(p escrow.Project, now time.Time) ProjectResponse {
	return ProjectResponse{
		ID:            p.ID,
		Organizer:     p.Organizer,
		Title:         p.Title,
		Description:   p.Description,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		GoalAmount:    p.GoalAmount,
		TotalRaised:   p.TotalRaised,
		TotalRefunded: p.TotalRefunded,
		Held:          p.Held(),
		Settled:       p.Settled,
		GoalReached:   p.GoalReached(),
		Phase:         string(p.Phase(now)),
		CreatedAt:     p.CreatedAt,
	}
}

func ToEventResponse(ev escrow.Event) EventResponse {
	return EventResponse{
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		ProjectID: ev.ProjectID,
		Account:   ev.Account,
		Amount:    ev.Amount,
		At:        ev.At,
	}
}

func ToEventResponseList(events []escrow.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, ToEventResponse(ev))
	}
	return out
}
