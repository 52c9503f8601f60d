package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"
)

// Project is a procurement that owns one or more events
type Project struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	Name                string    `json:"name" gorm:"column:project_name"`
	FrameworkID         string    `json:"framework_id" gorm:"column:framework_id"`
	LotID               string    `json:"lot_id" gorm:"column:lot_id"`
	ExternalProjectID   string    `json:"external_project_id" gorm:"column:external_project_id"`
	ExternalReferenceID string    `json:"external_reference_id" gorm:"column:external_reference_id"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedBy           string    `json:"updated_by"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// OrganisationMapping links an internal organisation to its remote company
type OrganisationMapping struct {
	ID                     uint   `json:"id" gorm:"primaryKey"`
	OrganisationID         string `json:"organisation_id" gorm:"column:organisation_id;uniqueIndex"`
	ExternalOrganisationID string `json:"external_organisation_id" gorm:"column:external_organisation_id;uniqueIndex"`
}

// SupplierSelection is a supplier chosen for an assessment-backed event
type SupplierSelection struct {
	ID                    uint                 `json:"id" gorm:"primaryKey"`
	EventID               uint                 `json:"event_id" gorm:"column:event_id;index"`
	OrganisationMappingID uint                 `json:"organisation_mapping_id" gorm:"column:organisation_mapping_id"`
	OrganisationMapping   *OrganisationMapping `json:"organisation_mapping,omitempty" gorm:"foreignKey:OrganisationMappingID"`
	CreatedBy             string               `json:"created_by"`
	CreatedAt             time.Time            `json:"created_at"`
}

// OrganisationID returns the internal organisation id of the selection
func (s *SupplierSelection) OrganisationID() string {
	if s.OrganisationMapping == nil {
		return ""
	}
	return s.OrganisationMapping.OrganisationID
}

// Event is a single procurement round within a project
type Event struct {
	ID                       uint                `json:"id" gorm:"primaryKey"`
	ProjectID                uint                `json:"project_id" gorm:"column:project_id;index"`
	Project                  *Project            `json:"-" gorm:"foreignKey:ProjectID"`
	OCDSAuthorityName        string              `json:"ocds_authority_name" gorm:"column:ocds_authority_name"`
	OCIDPrefix               string              `json:"ocid_prefix" gorm:"column:ocid_prefix"`
	ExternalEventID          *string             `json:"external_event_id" gorm:"column:external_event_id"`
	ExternalReferenceID      *string             `json:"external_reference_id" gorm:"column:external_reference_id"`
	EventType                EventType           `json:"event_type" gorm:"column:event_type"`
	EventName                string              `json:"event_name" gorm:"column:event_name"`
	DownSelectedSuppliers    bool                `json:"down_selected_suppliers" gorm:"column:down_selected_suppliers"`
	AssessmentID             *uint               `json:"assessment_id" gorm:"column:assessment_id"`
	AssessmentSupplierTarget *int                `json:"assessment_supplier_target" gorm:"column:assessment_supplier_target"`
	SupplierSelections       []SupplierSelection `json:"supplier_selections" gorm:"foreignKey:EventID"`
	CreatedBy                string              `json:"created_by"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedBy                string              `json:"updated_by"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// TableName keeps the historical table name
func (Event) TableName() string {
	return "procurement_events"
}

// Kind classifies the event for routing
func (e *Event) Kind() EventKind {
	return Classify(e.EventType)
}

// HasRemoteRecord reports whether the remote platform holds a counterpart
func (e *Event) HasRemoteRecord() bool {
	return e.ExternalEventID != nil && *e.ExternalEventID != ""
}

// RemoteID returns the external event id or an empty string
func (e *Event) RemoteID() string {
	if e.ExternalEventID == nil {
		return ""
	}
	return *e.ExternalEventID
}

// RemoteReference returns the external reference code or an empty string
func (e *Event) RemoteReference() string {
	if e.ExternalReferenceID == nil {
		return ""
	}
	return *e.ExternalReferenceID
}

// SetRemoteRecord stores the identifiers returned by the remote platform
func (e *Event) SetRemoteRecord(id, reference string) {
	e.ExternalEventID = &id
	e.ExternalReferenceID = &reference
}

// AssignType sets the event type. A concrete type can never be replaced.
func (e *Event) AssignType(t EventType) error {
	if !t.Valid() {
		return apperrors.Validation("Unknown event type '%s'", t)
	}
	if e.EventType != "" && e.EventType != EventTypePlaceholder {
		return apperrors.IllegalState("Cannot update an existing event type of '%s'", e.EventType)
	}
	e.EventType = t
	return nil
}

// Touch records the last modification
func (e *Event) Touch(actor string, now time.Time) {
	e.UpdatedBy = actor
	e.UpdatedAt = now
}

// HasSelection reports whether the organisation is already selected
func (e *Event) HasSelection(organisationID string) bool {
	for i := range e.SupplierSelections {
		if e.SupplierSelections[i].OrganisationID() == organisationID {
			return true
		}
	}
	return false
}

// AddSelection selects the mapped organisation unless it is already present.
// It returns false when nothing changed.
func (e *Event) AddSelection(mapping *OrganisationMapping, actor string, now time.Time) bool {
	if e.HasSelection(mapping.OrganisationID) {
		return false
	}
	e.SupplierSelections = append(e.SupplierSelections, SupplierSelection{
		EventID:               e.ID,
		OrganisationMappingID: mapping.ID,
		OrganisationMapping:   mapping,
		CreatedBy:             actor,
		CreatedAt:             now,
	})
	return true
}

// ClearSelections drops every supplier selection
func (e *Event) ClearSelections() {
	e.SupplierSelections = []SupplierSelection{}
}

// RemoveSelection detaches and returns the selection for the organisation
func (e *Event) RemoveSelection(organisationID string) *SupplierSelection {
	for i := range e.SupplierSelections {
		if e.SupplierSelections[i].OrganisationID() == organisationID {
			removed := e.SupplierSelections[i]
			e.SupplierSelections = append(e.SupplierSelections[:i], e.SupplierSelections[i+1:]...)
			return &removed
		}
	}
	return nil
}

// PublicID renders the OCDS style identifier, e.g. ocds-b5fd17-12
func (e *Event) PublicID() string {
	return fmt.Sprintf("%s-%s-%d", e.OCDSAuthorityName, e.OCIDPrefix, e.ID)
}

// EventIdentifier is a parsed public event id
type EventIdentifier struct {
	Prefix string
	ID     uint
}

// Matches reports whether the identifier was issued for the event
func (i EventIdentifier) Matches(e *Event) bool {
	return e.ID == i.ID && i.Prefix == e.OCDSAuthorityName+"-"+e.OCIDPrefix
}

// ParseEventID splits an OCDS style id into its prefix and internal id
func ParseEventID(s string) (EventIdentifier, error) {
	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return EventIdentifier{}, apperrors.Validation("Invalid event id '%s'", s)
	}
	id, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return EventIdentifier{}, apperrors.Validation("Invalid event id '%s'", s)
	}
	return EventIdentifier{Prefix: s[:idx], ID: uint(id)}, nil
}
