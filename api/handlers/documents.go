package handlers

import (
	"mime"
	"net/http"

	"example.com/backstage/services/tenders/api/middleware"
	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/service"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/gin-gonic/gin"
)

// DocumentHandler serves the document endpoints of an event
type DocumentHandler struct {
	svc service.EventOrchestrator
}

// NewDocumentHandler creates a DocumentHandler
func NewDocumentHandler(svc service.EventOrchestrator) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// ListDocuments handles GET .../events/:eventID/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	docs, err := h.svc.GetDocumentSummaries(c.Request.Context(), procID, c.Param("eventID"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// UploadDocument handles PUT .../events/:eventID/documents as multipart
// form data with a "data" file, an "audience" and an optional "description"
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	header, err := c.FormFile("data")
	if err != nil {
		WriteError(c, apperrors.Validation("Multipart field 'data' with the file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		WriteError(c, apperrors.Internal(err, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	upload := service.DocumentUpload{
		FileName:    header.Filename,
		Size:        header.Size,
		Content:     file,
		Audience:    sourcing.Audience(c.PostForm("audience")),
		Description: c.PostForm("description"),
	}
	doc, err := h.svc.UploadDocument(c.Request.Context(), procID, c.Param("eventID"), upload, middleware.Principal(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetDocument handles GET .../events/:eventID/documents/:documentID
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	procID, err := projectID(c)
	if err != nil {
		WriteError(c, err)
		return
	}
	attachment, err := h.svc.GetDocument(c.Request.Context(), procID, c.Param("eventID"), c.Param("documentID"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName}))
	c.Data(http.StatusOK, attachment.ContentType, attachment.Data)
}
