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

type ModuleHandler struct {
	tracker *service.Tracker
	guard   *idempotency.Guard
	logger  *zap.Logger
}

func NewModuleHandler(tracker *service.Tracker, guard *idempotency.Guard, logger *zap.Logger) *ModuleHandler {
	return &ModuleHandler{tracker: tracker, guard: guard, logger: logger}
}

func (h *ModuleHandler) log(c *gin.Context) *zap.Logger {
	return logger.WithTrace(c.Request.Context(), h.logger)
}

// GetModule handles GET /modules/:id
func (h *ModuleHandler) GetModule(c *gin.Context) {
	log := h.log(c)
	log.Info("GetModule request received",
		zap.String("module_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "GetModule", "id")
	if !ok {
		return
	}

	view, err := h.tracker.GetModuleView(c.Request.Context(), id)
	if err != nil {
		fail(c, log, "GetModule", err)
		return
	}

	log.Info("GetModule: success", zap.Int64("module_id", id), zap.Int("update_count", len(view.Updates)))
	c.JSON(http.StatusOK, view)
}

// EditModule handles PATCH /modules/:id. member_id assigns, unassign clears.
func (h *ModuleHandler) EditModule(c *gin.Context) {
	log := h.log(c)
	log.Info("EditModule request received",
		zap.String("module_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "EditModule", "id")
	if !ok {
		return
	}
	var req struct {
		Name     *string `json:"name"`
		MemberID *int64  `json:"member_id"`
		Unassign bool    `json:"unassign"`
		Priority *string `json:"priority"`
	}
	if !bindJSON(c, log, "EditModule", &req) {
		return
	}

	patch := model.ModulePatch{Name: req.Name, AssignedMemberID: req.MemberID, Unassign: req.Unassign}
	if req.Priority != nil {
		p, err := model.ParsePriority(*req.Priority)
		if err != nil {
			fail(c, log, "EditModule", err)
			return
		}
		patch.Priority = &p
	}

	if err := h.tracker.EditModule(c.Request.Context(), id, patch); err != nil {
		fail(c, log, "EditModule", err)
		return
	}

	log.Info("EditModule: success", zap.Int64("module_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CompleteModule handles POST /modules/:id/complete
func (h *ModuleHandler) CompleteModule(c *gin.Context) {
	log := h.log(c)
	log.Info("CompleteModule request received",
		zap.String("module_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	id, ok := pathID(c, log, "CompleteModule", "id")
	if !ok {
		return
	}

	if err := h.tracker.CompleteModule(c.Request.Context(), id); err != nil {
		fail(c, log, "CompleteModule", err)
		return
	}

	log.Info("CompleteModule: success", zap.Int64("module_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AddUpdate handles POST /modules/:id/updates
func (h *ModuleHandler) AddUpdate(c *gin.Context) {
	log := h.log(c)
	log.Info("AddUpdate request received",
		zap.String("module_id", c.Param("id")),
		zap.String("client_ip", c.ClientIP()),
	)
	moduleID, ok := pathID(c, log, "AddUpdate", "id")
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
		Text string `json:"text"`
	}
	if !bindJSON(c, log, "AddUpdate", &req) {
		return
	}

	createOnce(c, h.guard, log, "AddUpdate", "update_id", func() (int64, error) {
		return h.tracker.AddUpdate(c.Request.Context(), moduleID, req.Date, req.Text)
	})
}
