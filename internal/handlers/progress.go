package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

type ProgressHandler struct {
	ledgerService services.LedgerService
}

func NewProgressHandler(ledgerService services.LedgerService) *ProgressHandler {
	return &ProgressHandler{ledgerService: ledgerService}
}

func (ph *ProgressHandler) Get(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := ph.ledgerService.Get(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, records)
}

func (ph *ProgressHandler) CompletionRate(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rate, err := ph.ledgerService.CompletionRate(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, rate)
}

func (ph *ProgressHandler) Upsert(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		StageNumber int  `json:"stage_number"`
		Completed   bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	record, err := ph.ledgerService.Upsert(c.Request.Context(), personID, req.StageNumber, req.Completed)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, record)
}

func (ph *ProgressHandler) EnsureComplete(c *gin.Context) {
	personID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	inserted, err := ph.ledgerService.EnsureComplete(c.Request.Context(), personID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"records_inserted": inserted})
}
