package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

type GroupHandler struct {
	groupService services.GroupService
}

func NewGroupHandler(groupService services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (gh *GroupHandler) Create(c *gin.Context) {
	var req services.CreateGroupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	group, err := gh.groupService.Create(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, group)
}

func (gh *GroupHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	group, err := gh.groupService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, group)
}

func (gh *GroupHandler) List(c *gin.Context) {
	f, err := filtersFromQuery(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	groups, err := gh.groupService.List(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, groups)
}

func (gh *GroupHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var patch services.GroupPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	group, err := gh.groupService.Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, group)
}

func (gh *GroupHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := gh.groupService.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
