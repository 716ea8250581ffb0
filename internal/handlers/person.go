package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/services"
)

type PersonHandler struct {
	personService services.PersonService
}

func NewPersonHandler(personService services.PersonService) *PersonHandler {
	return &PersonHandler{personService: personService}
}

func (ph *PersonHandler) Register(c *gin.Context) {
	var req services.RegisterPersonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	person, err := ph.personService.Register(c.Request.Context(), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, person)
}

func (ph *PersonHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	person, err := ph.personService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, person)
}

func (ph *PersonHandler) List(c *gin.Context) {
	f, err := filtersFromQuery(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	people, err := ph.personService.List(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, people)
}

func (ph *PersonHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var patch services.PersonPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}
	person, err := ph.personService.Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, person)
}

func (ph *PersonHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := ph.personService.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// filtersFromQuery reads the shared list filters. The scope resolver decides
// later whether the caller may actually use them.
func filtersFromQuery(c *gin.Context) (scope.Filters, error) {
	var f scope.Filters
	if raw := c.Query("group_id"); raw != "" {
		gid, err := uuid.Parse(raw)
		if err != nil {
			return f, apierr.Validation("invalid group_id")
		}
		f.GroupID = &gid
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			return f, apierr.Validation("invalid year")
		}
		f.Year = year
	}
	f.Search = strings.TrimSpace(c.Query("search"))
	return f, nil
}
