package service

import (
	"io"
	"time"

	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/sourcing"
)

// EventStage is reported for every event summary
const EventStage = "Tender"

// CreateEventRequest is the body of a create event call
type CreateEventRequest struct {
	Name                  string `json:"name" validate:"omitempty,max=250"`
	EventType             string `json:"eventType"`
	AssessmentID          *uint  `json:"assessmentId"`
	DownSelectedSuppliers *bool  `json:"-"`
}

// UpdateEventRequest is the body of an update event call. Empty fields are left unchanged.
type UpdateEventRequest struct {
	ID                       string `json:"id"`
	Name                     string `json:"name" validate:"omitempty,max=250"`
	EventType                string `json:"eventType"`
	AssessmentID             *uint  `json:"assessmentId"`
	AssessmentSupplierTarget *int   `json:"assessmentSupplierTarget" validate:"omitempty,min=1"`
}

// EventSummary describes an event in list and mutation responses
type EventSummary struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	EventStage     string              `json:"eventStage"`
	EventType      models.EventType    `json:"eventType"`
	EventSupportID string              `json:"eventSupportId,omitempty"`
	Status         models.TenderStatus `json:"status"`
	AssessmentID   *uint               `json:"assessmentId,omitempty"`
}

// EventDetail is the full view of a single event
type EventDetail struct {
	EventSummary
	ProjectID                uint                `json:"projectId"`
	DownSelectedSuppliers    bool                `json:"downSelectedSuppliers"`
	AssessmentSupplierTarget *int                `json:"assessmentSupplierTarget,omitempty"`
	SupplierCount            int                 `json:"supplierCount"`
	Criteria                 []clients.Criterion `json:"criteria,omitempty"`
	CreatedBy                string              `json:"createdBy"`
	UpdatedAt                time.Time           `json:"updatedAt"`
}

// EventTypeSummary describes an assignable event type
type EventTypeSummary struct {
	Type            models.EventType `json:"type"`
	Description     string           `json:"description"`
	AssessmentBased bool             `json:"assessmentBased"`
}

// OrganisationReference identifies a supplier by internal organisation id
type OrganisationReference struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name,omitempty"`
}

// PublishDates bounds the publication window of an event
type PublishDates struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate" validate:"required"`
}

// DocumentSummary describes a remote attachment
type DocumentSummary struct {
	ID          string            `json:"id"`
	FileName    string            `json:"fileName"`
	FileSize    int64             `json:"fileSize"`
	Description string            `json:"description,omitempty"`
	Audience    sourcing.Audience `json:"audience"`
}

// DocumentUpload is a file to attach to an event
type DocumentUpload struct {
	FileName    string
	Size        int64
	Content     io.Reader
	Audience    sourcing.Audience
	Description string
}

// DocumentAttachment is a downloaded attachment
type DocumentAttachment struct {
	FileName    string
	ContentType string
	Data        []byte
}
