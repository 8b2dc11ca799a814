package handler

import (
	"net/http"

	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	registry *escrow.Registry
	clock    escrow.Clock
}

func NewProjectHandler(registry *escrow.Registry, clock escrow.Clock) *ProjectHandler {
	return &ProjectHandler{registry: registry, clock: clock}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	id, err := h.registry.CreateProject(c.Request.Context(), escrow.CreateProjectInput{
		Organizer:   req.Organizer,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		GoalAmount:  req.GoalAmount,
	})
	if err != nil {
		logger.Warn("Create project rejected: %v", err)
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", CreateProjectResponse{ID: id})
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	now := h.clock.Now()
	organizer := c.Query("organizer")
	phase := c.Query("phase")

	projects := make([]ProjectResponse, 0)
	for _, p := range h.registry.ListProjects() {
		if organizer != "" && p.Organizer != organizer {
			continue
		}
		if phase != "" && string(p.Phase(now)) != phase {
			continue
		}
		projects = append(projects, ToProjectResponse(p, now))
	}

	SuccessResponse(c, http.StatusOK, "获取项目列表成功", GetProjectsResponse{Projects: projects})
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	p, err := h.registry.GetProject(id)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目详情成功", ToProjectResponse(p, h.clock.Now()))
}
