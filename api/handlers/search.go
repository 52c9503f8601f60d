package handlers

import (
	"net/http"
	"strconv"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/search"
	"example.com/backstage/services/tenders/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler serves the reporting search endpoint
type SearchHandler struct {
	svc service.EventOrchestrator
}

// NewSearchHandler creates a SearchHandler
func NewSearchHandler(svc service.EventOrchestrator) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchEvents handles GET /tenders/events/search
func (h *SearchHandler) SearchEvents(c *gin.Context) {
	q := search.Query{
		Text:      c.Query("q"),
		EventType: c.Query("eventType"),
		Status:    c.Query("status"),
	}
	ints := map[string]*int{"from": &q.From, "size": &q.Size}
	for name, target := range ints {
		if raw := c.Query(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				WriteError(c, apperrors.Validation("Query parameter '%s' must be a non-negative integer", name))
				return
			}
			*target = v
		}
	}
	if raw := c.Query("projectId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			WriteError(c, apperrors.Validation("Invalid project id '%s'", raw))
			return
		}
		q.ProjectID = uint(id)
	}

	docs, err := h.svc.SearchEvents(c.Request.Context(), q)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}
