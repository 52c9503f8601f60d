package handlers

import (
	"net/http"

	"example.com/backstage/services/tenders/api/middleware"
	"example.com/backstage/services/tenders/internal/service"

	"github.com/gin-gonic/gin"
)

// SupplierHandler serves the supplier endpoints of an event
type SupplierHandler struct {
	svc service.EventOrchestrator
}

// NewSupplierHandler creates a SupplierHandler
func NewSupplierHandler(svc service.EventOrchestrator) *SupplierHandler {
	return &SupplierHandler{svc: svc}
}

// GetSuppliers handles GET .../events/:eventID/suppliers
func (h *SupplierHandler) GetSuppliers(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	suppliers, err := h.svc.GetSuppliers(c.Request.Context(), procID, c.Param("eventID"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// AddSuppliers handles POST .../events/:eventID/suppliers
func (h *SupplierHandler) AddSuppliers(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	overwrite, err := boolQuery(c, "overwrite")
	if err != nil {
		WriteError(c, err)
		return
	}
	var refs []service.OrganisationReference
	if err := bindJSON(c, &refs); err != nil {
		WriteError(c, err)
		return
	}

	added, err := h.svc.AddSuppliers(c.Request.Context(), procID, c.Param("eventID"), refs,
		overwrite != nil && *overwrite, middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, added)
}

// DeleteSupplier handles DELETE .../events/:eventID/suppliers/:supplierID
func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	err = h.svc.DeleteSupplier(c.Request.Context(), procID, c.Param("eventID"), c.Param("supplierID"), middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
