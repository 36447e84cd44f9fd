package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/task"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
}

// CreateTaskResponse acknowledges a submitted task.
type CreateTaskResponse struct {
	TaskID string                `json:"task_id"`
	Status domain.StatusSnapshot `json:"status"`
}

// GuidanceRequest is the body of POST /v1/tasks/:id/guidance.
type GuidanceRequest struct {
	Guidance string `json:"guidance"`
}

// BlueprintInfo describes a registered blueprint.
type BlueprintInfo struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Domain        string   `json:"domain"`
	Description   string   `json:"description,omitempty"`
	Stages        []string `json:"stages"`
	MaxIterations int      `json:"max_iterations"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createTask(c *gin.Context) {
	var req task.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", evoerrors.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Artifact) == "" || strings.TrimSpace(req.Goal) == "" {
		s.fail(c, fmt.Errorf("%w: artifact and goal are required", evoerrors.ErrInvalidInput))
		return
	}

	id, err := s.engine.Start(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	status, err := s.engine.GetStatus(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, CreateTaskResponse{TaskID: id, Status: status})
}

func (s *Server) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.List())
}

func (s *Server) getStatus(c *gin.Context) {
	status, err := s.engine.GetStatus(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) getResults(c *gin.Context) {
	view, err := s.engine.GetResults(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) provideGuidance(c *gin.Context) {
	var req GuidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", evoerrors.ErrInvalidInput, err))
		return
	}
	ack, err := s.engine.ProvideGuidance(c.Param("id"), req.Guidance)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (s *Server) listBlueprints(c *gin.Context) {
	list := s.blueprints.List()
	out := make([]BlueprintInfo, 0, len(list))
	for _, bp := range list {
		seq := bp.AgentSequence()
		stages := make([]string, 0, len(seq))
		for _, st := range seq {
			stages = append(stages, st.Role)
		}
		out = append(out, BlueprintInfo{
			Name:          bp.Name(),
			Version:       bp.Version(),
			Domain:        bp.Domain(),
			Description:   bp.Description(),
			Stages:        stages,
			MaxIterations: bp.EvolutionParameters().MaxIterations,
		})
	}
	c.JSON(http.StatusOK, out)
}

// fail writes err with a status derived from its sentinel.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case evoerrors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, evoerrors.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	_, action := evoerrors.Actionable(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Action: action})
}
