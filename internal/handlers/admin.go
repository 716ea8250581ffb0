package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

// AdminHandler exposes the reconciliation jobs. The service layer enforces
// the superadmin gate; the handler only shapes requests and reports.
type AdminHandler struct {
	reconcileService services.ReconcileService
}

func NewAdminHandler(reconcileService services.ReconcileService) *AdminHandler {
	return &AdminHandler{reconcileService: reconcileService}
}

func (ah *AdminHandler) Backfill(c *gin.Context) {
	report, err := ah.reconcileService.Backfill(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}

func (ah *AdminHandler) AttendanceSync(c *gin.Context) {
	report, err := ah.reconcileService.AttendanceSync(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}

func (ah *AdminHandler) GroupRollover(c *gin.Context) {
	var req struct {
		SourceYear int `json:"source_year"`
		TargetYear int `json:"target_year"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	report, err := ah.reconcileService.GroupRollover(c.Request.Context(), req.SourceYear, req.TargetYear)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}

func (ah *AdminHandler) OrphanRepair(c *gin.Context) {
	report, err := ah.reconcileService.OrphanRepair(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}
