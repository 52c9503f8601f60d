package routes

import (
	"example.com/backstage/services/tenders/api/handlers"
	"example.com/backstage/services/tenders/api/middleware"
	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.EventOrchestrator, auth config.AuthConfig) {
	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", handlers.Metrics)

	tenders := r.Group("/tenders", middleware.JWTAuth(auth))

	eventHandler := handlers.NewEventHandler(svc)
	supplierHandler := handlers.NewSupplierHandler(svc)
	documentHandler := handlers.NewDocumentHandler(svc)
	searchHandler := handlers.NewSearchHandler(svc)

	tenders.GET("/event-types", eventHandler.ListEventTypes)
	tenders.GET("/events/search", searchHandler.SearchEvents)

	events := tenders.Group("/projects/:procID/events")
	events.POST("", eventHandler.CreateEvent)
	events.GET("", eventHandler.ListEvents)
	events.GET("/:eventID", eventHandler.GetEvent)
	events.PUT("/:eventID", eventHandler.UpdateEvent)
	events.PUT("/:eventID/publish", eventHandler.PublishEvent)

	events.GET("/:eventID/suppliers", supplierHandler.GetSuppliers)
	events.POST("/:eventID/suppliers", supplierHandler.AddSuppliers)
	events.DELETE("/:eventID/suppliers/:supplierID", supplierHandler.DeleteSupplier)

	events.GET("/:eventID/documents", documentHandler.ListDocuments)
	events.PUT("/:eventID/documents", documentHandler.UploadDocument)
	events.GET("/:eventID/documents/:documentID", documentHandler.GetDocument)
}
