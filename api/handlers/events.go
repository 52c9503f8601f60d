package handlers

import (
	"net/http"

	"example.com/backstage/services/tenders/api/middleware"
	"example.com/backstage/services/tenders/internal/service"

	"github.com/gin-gonic/gin"
)

// EventHandler serves the event lifecycle endpoints
type EventHandler struct {
	svc service.EventOrchestrator
}

// NewEventHandler creates an EventHandler
func NewEventHandler(svc service.EventOrchestrator) *EventHandler {
	return &EventHandler{svc: svc}
}

// ListEventTypes handles GET /tenders/event-types
func (h *EventHandler) ListEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListEventTypes())
}

// CreateEvent handles POST /tenders/projects/:procID/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	downSelected, err := boolQuery(c, "downSelectedSuppliers")
	if err != nil {
		WriteError(c, err)
		return
	}

	var req service.CreateEventRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			WriteError(c, err)
			return
		}
	}
	req.DownSelectedSuppliers = downSelected

	summary, err := h.svc.CreateEvent(c.Request.Context(), procID, req, middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// ListEvents handles GET /tenders/projects/:procID/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	events, err := h.svc.GetEventsForProject(c.Request.Context(), procID, middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetEvent handles GET /tenders/projects/:procID/events/:eventID
func (h *EventHandler) GetEvent(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	detail, err := h.svc.GetEvent(c.Request.Context(), procID, c.Param("eventID"), middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateEvent handles PUT /tenders/projects/:procID/events/:eventID
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	var req service.UpdateEventRequest
	if err := bindJSON(c, &req); err != nil {
		WriteError(c, err)
		return
	}

	summary, err := h.svc.UpdateEvent(c.Request.Context(), procID, c.Param("eventID"), req, middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// PublishEvent handles PUT /tenders/projects/:procID/events/:eventID/publish
func (h *EventHandler) PublishEvent(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	var dates service.PublishDates
	if err := bindJSON(c, &dates); err != nil {
		WriteError(c, err)
		return
	}

	if err := h.svc.PublishEvent(c.Request.Context(), procID, c.Param("eventID"), dates, middleware.Principal(c)); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "published"})
}
