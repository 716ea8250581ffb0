package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

type AttendanceHandler struct {
	attendanceService services.AttendanceService
}

func NewAttendanceHandler(attendanceService services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

func (ah *AttendanceHandler) Record(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			RespondError(c, apierr.Validation("date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	record, err := ah.attendanceService.Record(c.Request.Context(), personID, date)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, record)
}

func (ah *AttendanceHandler) List(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := ah.attendanceService.List(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	count, err := ah.attendanceService.Count(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"records": records, "count": count})
}

func (ah *AttendanceHandler) Recompute(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	completed, err := ah.attendanceService.Recompute(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"completed": completed})
}

func (ah *AttendanceHandler) Delete(c *gin.Context) {
	recordID, ok := pathUUID(c, "record_id")
	if !ok {
		return
	}
	if err := ah.attendanceService.Delete(c.Request.Context(), recordID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
