package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairshare/internal/model"
	"fairshare/internal/service"
	"fairshare/pkg/idempotency"
	"fairshare/pkg/logger"
)

type ProjectHandler struct {
	tracker *service.Tracker
	guard   *idempotency.Guard
	logger  *zap.Logger
}

// NewProjectHandler builds the project endpoints. guard may be nil, in which
// case Idempotency-Key headers are ignored.
func NewProjectHandler(tracker *service.Tracker, guard *idempotency.Guard, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{tracker: tracker, guard: guard, logger: logger}
}

func (h *ProjectHandler) log(c *gin.Context) *zap.Logger {
	return logger.WithTrace(c.Request.Context(), h.logger)
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	log := h.log(c)
	log.Info("ListProjects request received", zap.String("client_ip", c.ClientIP()))

	projects, err := h.tracker.ListProjects(c.Request.Context())
	if err != nil {
		fail(c, log, "ListProjects", err)
		return
	}

	log.Info("ListProjects: success", zap.Int("project_count", len(projects)))
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	log := h.log(c)
	log.Info("CreateProject request received", zap.String("client_ip", c.ClientIP()))

	var req struct {
		Name     string `json:"name"`
		Deadline string `json:"deadline"`
	}
	if !bindJSON(c, log, "CreateProject", &req) {
		return
	}

	createOnce(c, h.guard, log, "CreateProject", "project_id", func() (int64, error) {
		return h.tracker.CreateProject(c.Request.Context(), req.Name, req.Deadline)
	})
}

// GetProject handles GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	log := h.log(c)
	log.Info("GetProject request received",
		zap.String("project_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "GetProject", "id")
	if !ok {
		return
	}

	view, err := h.tracker.GetProjectView(c.Request.Context(), id)
	if err != nil {
		fail(c, log, "GetProject", err)
		return
	}

	log.Info("GetProject: success", zap.Int64("project_id", id), zap.Int("module_count", view.TotalModules))
	c.JSON(http.StatusOK, view)
}

// DeleteProject handles DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	log := h.log(c)
	log.Info("DeleteProject request received",
		zap.String("project_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "DeleteProject", "id")
	if !ok {
		return
	}

	if err := h.tracker.DeleteProject(c.Request.Context(), id); err != nil {
		fail(c, log, "DeleteProject", err)
		return
	}

	log.Info("DeleteProject: success", zap.Int64("project_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AddMember handles POST /projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	log := h.log(c)
	log.Info("AddMember request received",
		zap.String("project_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	projectID, ok := pathID(c, log, "AddMember", "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, log, "AddMember", &req) {
		return
	}

	createOnce(c, h.guard, log, "AddMember", "member_id", func() (int64, error) {
		return h.tracker.AddMember(c.Request.Context(), projectID, req.Name)
	})
}

// AddModule handles POST /projects/:id/modules
func (h *ProjectHandler) AddModule(c *gin.Context) {
	log := h.log(c)
	log.Info("AddModule request received",
		zap.String("project_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	projectID, ok := pathID(c, log, "AddModule", "id")
	if !ok {
		return
	}
	var req struct {
		Name     string `json:"name"`
		MemberID *int64 `json:"member_id"`
		Priority string `json:"priority"`
	}
	if !bindJSON(c, log, "AddModule", &req) {
		return
	}
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		fail(c, log, "AddModule", err)
		return
	}

	createOnce(c, h.guard, log, "AddModule", "module_id", func() (int64, error) {
		return h.tracker.AddModule(c.Request.Context(), projectID, req.Name, req.MemberID, priority)
	})
}

// DeleteModule handles DELETE /projects/:id/modules/:moduleID
func (h *ProjectHandler) DeleteModule(c *gin.Context) {
	log := h.log(c)
	log.Info("DeleteModule request received",
		zap.String("project_id", c.Param("id")),
		zap.String("module_id", c.Param("moduleID")),
		zap.String("client_ip", c.ClientIP()),
	)
	projectID, ok := pathID(c, log, "DeleteModule", "id")
	if !ok {
		return
	}
	moduleID, ok := pathID(c, log, "DeleteModule", "moduleID")
	if !ok {
		return
	}

	if err := h.tracker.DeleteModule(c.Request.Context(), projectID, moduleID); err != nil {
		fail(c, log, "DeleteModule", err)
		return
	}

	log.Info("DeleteModule: success", zap.Int64("project_id", projectID), zap.Int64("module_id", moduleID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetReport handles GET /projects/:id/report
func (h *ProjectHandler) GetReport(c *gin.Context) {
	log := h.log(c)
	log.Info("GetReport request received",
		zap.String("project_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "GetReport", "id")
	if !ok {
		return
	}

	report, err := h.tracker.GetProjectReport(c.Request.Context(), id)
	if err != nil {
		fail(c, log, "GetReport", err)
		return
	}

	log.Info("GetReport: success", zap.Int64("project_id", id), zap.Int("progress", report.Progress))
	c.JSON(http.StatusOK, report)
}
