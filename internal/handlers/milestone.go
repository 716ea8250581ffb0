package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/services"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type MilestoneHandler struct {
	catalogService services.CatalogService
}

func NewMilestoneHandler(catalogService services.CatalogService) *MilestoneHandler {
	return &MilestoneHandler{catalogService: catalogService}
}

func (mh *MilestoneHandler) List(c *gin.Context) {
	defs, err := mh.catalogService.ListActive(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, defs)
}

func (mh *MilestoneHandler) Create(c *gin.Context) {
	var req struct {
		StageNumber int    `json:"stage_number"`
		Name        string `json:"name"`
		ShortName   string `json:"short_name"`
		AutoDerived bool   `json:"auto_derived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	def := &types.MilestoneDefinition{
		StageNumber: req.StageNumber,
		Name:        req.Name,
		ShortName:   req.ShortName,
		AutoDerived: req.AutoDerived,
		Active:      true,
	}
	if err := mh.catalogService.Create(c.Request.Context(), def); err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, def)
}

func (mh *MilestoneHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		StageNumber *int    `json:"stage_number"`
		Name        *string `json:"name"`
		ShortName   *string `json:"short_name"`
		AutoDerived *bool   `json:"auto_derived"`
		Active      *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	def, err := mh.catalogService.Update(c.Request.Context(), id, services.CatalogPatch{
		StageNumber: req.StageNumber,
		Name:        req.Name,
		ShortName:   req.ShortName,
		AutoDerived: req.AutoDerived,
		Active:      req.Active,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, def)
}

func (mh *MilestoneHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := mh.catalogService.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
