package repository

import (
	"context"
	"time"

	"example.com/backstage/services/tenders/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type retryingRepository struct {
	next     Repository
	attempts int
	interval time.Duration
}

// WithRetry retries failed store calls with exponential backoff.
// Not-found results and cancelled contexts are returned immediately.
func WithRetry(next Repository, attempts int, interval time.Duration) Repository {
	if attempts < 1 {
		attempts = 1
	}
	return &retryingRepository{next: next, attempts: attempts, interval: interval}
}

func retry[T any](ctx context.Context, r *retryingRepository, op string, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	wait := r.interval
	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err = fn()
		if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			return result, err
		}
		if attempt == r.attempts {
			break
		}
		log.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("Local store call failed, retrying")
		select {
		case <-ctx.Done():
			return result, err
		case <-time.After(wait):
		}
		wait *= 2
	}
	return result, err
}

func (r *retryingRepository) FindProject(ctx context.Context, projectID uint) (*models.Project, error) {
	return retry(ctx, r, "find_project", func() (*models.Project, error) {
		return r.next.FindProject(ctx, projectID)
	})
}

func (r *retryingRepository) FindEventsByProject(ctx context.Context, projectID uint) ([]*models.Event, error) {
	return retry(ctx, r, "find_events", func() ([]*models.Event, error) {
		return r.next.FindEventsByProject(ctx, projectID)
	})
}

func (r *retryingRepository) FindEvent(ctx context.Context, projectID, eventID uint) (*models.Event, error) {
	return retry(ctx, r, "find_event", func() (*models.Event, error) {
		return r.next.FindEvent(ctx, projectID, eventID)
	})
}

func (r *retryingRepository) ListEvents(ctx context.Context, limit, offset int) ([]*models.Event, error) {
	return retry(ctx, r, "list_events", func() ([]*models.Event, error) {
		return r.next.ListEvents(ctx, limit, offset)
	})
}

func (r *retryingRepository) SaveEvent(ctx context.Context, event *models.Event) error {
	_, err := retry(ctx, r, "save_event", func() (struct{}, error) {
		return struct{}{}, r.next.SaveEvent(ctx, event)
	})
	return err
}

func (r *retryingRepository) DeleteSupplierSelection(ctx context.Context, selection *models.SupplierSelection) error {
	_, err := retry(ctx, r, "delete_selection", func() (struct{}, error) {
		return struct{}{}, r.next.DeleteSupplierSelection(ctx, selection)
	})
	return err
}

func (r *retryingRepository) FindOrganisationMapping(ctx context.Context, organisationID string) (*models.OrganisationMapping, error) {
	return retry(ctx, r, "find_mapping", func() (*models.OrganisationMapping, error) {
		return r.next.FindOrganisationMapping(ctx, organisationID)
	})
}

func (r *retryingRepository) FindOrganisationMappingByExternalID(ctx context.Context, externalID string) (*models.OrganisationMapping, error) {
	return retry(ctx, r, "find_mapping_external", func() (*models.OrganisationMapping, error) {
		return r.next.FindOrganisationMappingByExternalID(ctx, externalID)
	})
}

func (r *retryingRepository) FindOrganisationMappings(ctx context.Context, organisationIDs []string) ([]*models.OrganisationMapping, error) {
	return retry(ctx, r, "find_mappings", func() ([]*models.OrganisationMapping, error) {
		return r.next.FindOrganisationMappings(ctx, organisationIDs)
	})
}
