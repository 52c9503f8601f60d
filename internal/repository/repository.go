package repository

import (
	"context"

	"example.com/backstage/services/tenders/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// Repository is the local event store
type Repository interface {
	FindProject(ctx context.Context, projectID uint) (*models.Project, error)
	FindEventsByProject(ctx context.Context, projectID uint) ([]*models.Event, error)
	FindEvent(ctx context.Context, projectID, eventID uint) (*models.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error)
	// SaveEvent upserts the event and reconciles its supplier selections
	SaveEvent(ctx context.Context, event *models.Event) error
	DeleteSupplierSelection(ctx context.Context, selection *models.SupplierSelection) error

	FindOrganisationMapping(ctx context.Context, organisationID string) (*models.OrganisationMapping, error)
	FindOrganisationMappingByExternalID(ctx context.Context, externalID string) (*models.OrganisationMapping, error)
	FindOrganisationMappings(ctx context.Context, organisationIDs []string) ([]*models.OrganisationMapping, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *repository) eventQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Project").
		Preload("SupplierSelections", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SupplierSelections.OrganisationMapping")
}

// FindProject finds a project by id
func (r *repository) FindProject(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, projectID).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// FindEventsByProject lists the events of a project in creation order
func (r *repository) FindEventsByProject(ctx context.Context, projectID uint) ([]*models.Event, error) {
	var events []*models.Event
	err := r.eventQuery(ctx).
		Where("project_id = ?", projectID).
		Order("id").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list events of project %d", projectID)
	}
	return events, nil
}

// FindEvent finds an event that belongs to the project
func (r *repository) FindEvent(ctx context.Context, projectID, eventID uint) (*models.Event, error) {
	var event models.Event
	err := r.eventQuery(ctx).
		Where("project_id = ? AND id = ?", projectID, eventID).
		First(&event).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// ListEvents pages through every event
func (r *repository) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	var events []*models.Event
	err := r.eventQuery(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	return events, nil
}

// SaveEvent writes the event row, removes dropped selections and inserts new ones.
// Ids assigned during a transaction that rolls back are cleared again, so
// the same event can be saved a second time.
func (r *repository) SaveEvent(ctx context.Context, event *models.Event) error {
	eventID := event.ID
	type selectionIDs struct{ id, eventID uint }
	before := make([]selectionIDs, len(event.SupplierSelections))
	for i, selection := range event.SupplierSelections {
		before[i] = selectionIDs{id: selection.ID, eventID: selection.EventID}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(event).Error; err != nil {
			return errors.Wrap(err, "failed to save event")
		}

		keep := make([]uint, 0, len(event.SupplierSelections))
		for i := range event.SupplierSelections {
			event.SupplierSelections[i].EventID = event.ID
			if id := event.SupplierSelections[i].ID; id != 0 {
				keep = append(keep, id)
			}
		}

		stale := tx.Where("event_id = ?", event.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&models.SupplierSelection{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete supplier selections")
		}

		for i := range event.SupplierSelections {
			selection := &event.SupplierSelections[i]
			if selection.ID != 0 {
				continue
			}
			if err := tx.Omit(clause.Associations).Create(selection).Error; err != nil {
				return errors.Wrap(err, "failed to create supplier selection")
			}
		}
		return nil
	})
	if err != nil {
		event.ID = eventID
		for i := range before {
			event.SupplierSelections[i].ID = before[i].id
			event.SupplierSelections[i].EventID = before[i].eventID
		}
	}
	return err
}

// DeleteSupplierSelection removes a single selection row
func (r *repository) DeleteSupplierSelection(ctx context.Context, selection *models.SupplierSelection) error {
	err := r.db.WithContext(ctx).Delete(&models.SupplierSelection{}, selection.ID).Error
	return errors.Wrap(err, "failed to delete supplier selection")
}

// FindOrganisationMapping finds the mapping of an internal organisation id
func (r *repository) FindOrganisationMapping(ctx context.Context, organisationID string) (*models.OrganisationMapping, error) {
	var mapping models.OrganisationMapping
	err := r.db.WithContext(ctx).Where("organisation_id = ?", organisationID).First(&mapping).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &mapping, nil
}

// FindOrganisationMappingByExternalID finds the mapping of a remote company id
func (r *repository) FindOrganisationMappingByExternalID(ctx context.Context, externalID string) (*models.OrganisationMapping, error) {
	var mapping models.OrganisationMapping
	err := r.db.WithContext(ctx).Where("external_organisation_id = ?", externalID).First(&mapping).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &mapping, nil
}

// FindOrganisationMappings returns the mappings that exist for the given ids
func (r *repository) FindOrganisationMappings(ctx context.Context, organisationIDs []string) ([]*models.OrganisationMapping, error) {
	var mappings []*models.OrganisationMapping
	if len(organisationIDs) == 0 {
		return mappings, nil
	}
	err := r.db.WithContext(ctx).Where("organisation_id IN ?", organisationIDs).Find(&mappings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find organisation mappings")
	}
	return mappings, nil
}
