package service

import (
	"context"
	"strings"
	"time"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/models"
	"example.com/backstage/services/tenders/internal/repository"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SupplierReconciler keeps the supplier list of an event. Assessment events
// hold it in the local store, market events on the remote record.
type SupplierReconciler struct {
	repo       repository.Repository
	sourcing   sourcing.Client
	agreements clients.AgreementsClient
	now        func() time.Time
}

// NewSupplierReconciler creates a SupplierReconciler
func NewSupplierReconciler(repo repository.Repository, client sourcing.Client, agreements clients.AgreementsClient, now func() time.Time) *SupplierReconciler {
	if now == nil {
		now = time.Now
	}
	return &SupplierReconciler{repo: repo, sourcing: client, agreements: agreements, now: now}
}

func noSupplierList(event *models.Event) error {
	return apperrors.IllegalState("Event '%s' has no supplier list until its type is set", event.PublicID())
}

// Add resolves every reference and adds the suppliers to the event
func (r *SupplierReconciler) Add(ctx context.Context, event *models.Event, refs []OrganisationReference, overwrite bool, actor string) ([]OrganisationReference, error) {
	mappings, err := r.resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	switch event.Kind() {
	case models.KindAssessment:
		if overwrite {
			event.ClearSelections()
		}
		now := r.now()
		for _, m := range mappings {
			event.AddSelection(m, actor, now)
		}
		event.Touch(actor, now)
		if err := r.repo.SaveEvent(ctx, event); err != nil {
			return nil, apperrors.Internal(err, "failed to save suppliers of event '%s'", event.PublicID())
		}
		return localReferences(event), nil

	case models.KindMarket:
		if err := remoteRecord(event); err != nil {
			return nil, err
		}
		update := sourcing.NewRfxUpdate(event.RemoteID(), event.RemoteReference()).
			WithSuppliers(remoteSuppliers(mappings))
		if overwrite {
			update.Reset()
		}
		if _, err := r.sourcing.UpdateRfx(ctx, update); err != nil {
			return nil, err
		}
		added := make([]OrganisationReference, 0, len(mappings))
		for _, m := range mappings {
			added = append(added, OrganisationReference{ID: m.OrganisationID})
		}
		return added, nil

	default:
		return nil, noSupplierList(event)
	}
}

// resolve maps every reference, failing with all the ids that have no mapping.
// The result follows the order of refs with duplicates removed.
func (r *SupplierReconciler) resolve(ctx context.Context, refs []OrganisationReference) ([]*models.OrganisationMapping, error) {
	ids := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		id := strings.TrimSpace(ref.ID)
		if id == "" {
			return nil, apperrors.Validation("Organisation id must not be empty")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	found, err := r.repo.FindOrganisationMappings(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load organisation mappings")
	}
	byID := make(map[string]*models.OrganisationMapping, len(found))
	for _, m := range found {
		byID[m.OrganisationID] = m
	}

	mappings := make([]*models.OrganisationMapping, 0, len(ids))
	var missing []string
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		mappings = append(mappings, m)
	}
	if len(missing) > 0 {
		return nil, apperrors.NotFound("Organisation ids not found in organisation mappings: %s", strings.Join(missing, ", "))
	}
	return mappings, nil
}

// List returns the suppliers of the event
func (r *SupplierReconciler) List(ctx context.Context, event *models.Event) ([]OrganisationReference, error) {
	switch event.Kind() {
	case models.KindAssessment:
		return localReferences(event), nil

	case models.KindMarket:
		if err := remoteRecord(event); err != nil {
			return nil, err
		}
		rfx, err := r.sourcing.GetRfx(ctx, event.RemoteID())
		if err != nil {
			return nil, err
		}
		refs := make([]OrganisationReference, 0, len(rfx.Suppliers()))
		for _, s := range rfx.Suppliers() {
			mapping, err := r.repo.FindOrganisationMappingByExternalID(ctx, s.CompanyData.ID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("Supplier company id '%s' not found in organisation mappings", s.CompanyData.ID)
			}
			if err != nil {
				return nil, apperrors.Internal(err, "failed to load organisation mapping")
			}
			refs = append(refs, OrganisationReference{ID: mapping.OrganisationID, Name: s.CompanyData.Name})
		}
		return refs, nil

	default:
		return nil, noSupplierList(event)
	}
}

// Delete removes a single supplier from the event
func (r *SupplierReconciler) Delete(ctx context.Context, event *models.Event, organisationID, actor string) error {
	mapping, err := r.repo.FindOrganisationMapping(ctx, organisationID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Organisation id '%s' not found in organisation mappings", organisationID)
	}
	if err != nil {
		return apperrors.Internal(err, "failed to load organisation mapping")
	}

	switch event.Kind() {
	case models.KindAssessment:
		selection := event.RemoveSelection(organisationID)
		if selection == nil {
			return apperrors.NotFound("Organisation id '%s' is not a supplier on event '%s'", organisationID, event.PublicID())
		}
		if err := r.repo.DeleteSupplierSelection(ctx, selection); err != nil {
			return apperrors.Internal(err, "failed to delete supplier selection")
		}
		event.Touch(actor, r.now())
		if err := r.repo.SaveEvent(ctx, event); err != nil {
			return apperrors.Internal(err, "failed to save event '%s'", event.PublicID())
		}
		return nil

	case models.KindMarket:
		if err := remoteRecord(event); err != nil {
			return err
		}
		rfx, err := r.sourcing.GetRfx(ctx, event.RemoteID())
		if err != nil {
			return err
		}
		remaining := make([]sourcing.Supplier, 0, len(rfx.Suppliers()))
		for _, s := range rfx.Suppliers() {
			if s.CompanyData.ID == mapping.ExternalOrganisationID {
				continue
			}
			remaining = append(remaining, sourcing.Supplier{CompanyData: sourcing.CompanyData{ID: s.CompanyData.ID}})
		}
		update := sourcing.NewRfxUpdate(event.RemoteID(), event.RemoteReference()).
			WithSuppliers(remaining).
			Reset()
		_, err = r.sourcing.UpdateRfx(ctx, update)
		return err

	default:
		return noSupplierList(event)
	}
}

// LotMappings returns the mapped suppliers of the project's framework lot.
// Lot suppliers without a mapping are skipped.
func (r *SupplierReconciler) LotMappings(ctx context.Context, project *models.Project) ([]*models.OrganisationMapping, error) {
	ids, err := r.agreements.LotSuppliers(ctx, project.FrameworkID, project.LotID)
	if err != nil {
		return nil, err
	}
	found, err := r.repo.FindOrganisationMappings(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load organisation mappings")
	}

	byID := make(map[string]*models.OrganisationMapping, len(found))
	for _, m := range found {
		byID[m.OrganisationID] = m
	}
	mappings := make([]*models.OrganisationMapping, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			log.Warn().
				Str("organisation_id", id).
				Str("framework_id", project.FrameworkID).
				Str("lot_id", project.LotID).
				Msg("Lot supplier has no organisation mapping, skipping")
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// PopulateFromLot selects every mapped lot supplier. The caller saves the event.
func (r *SupplierReconciler) PopulateFromLot(ctx context.Context, event *models.Event, project *models.Project, actor string) error {
	mappings, err := r.LotMappings(ctx, project)
	if err != nil {
		return err
	}
	now := r.now()
	for _, m := range mappings {
		event.AddSelection(m, actor, now)
	}
	return nil
}

func localReferences(event *models.Event) []OrganisationReference {
	refs := make([]OrganisationReference, 0, len(event.SupplierSelections))
	for i := range event.SupplierSelections {
		refs = append(refs, OrganisationReference{ID: event.SupplierSelections[i].OrganisationID()})
	}
	return refs
}

func remoteSuppliers(mappings []*models.OrganisationMapping) []sourcing.Supplier {
	suppliers := make([]sourcing.Supplier, 0, len(mappings))
	for _, m := range mappings {
		suppliers = append(suppliers, sourcing.Supplier{CompanyData: sourcing.CompanyData{ID: m.ExternalOrganisationID}})
	}
	return suppliers
}
