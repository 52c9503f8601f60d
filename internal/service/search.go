package service

import (
	"context"

	"example.com/backstage/services/tenders/internal/apperrors"
	"example.com/backstage/services/tenders/internal/search"

	"github.com/rs/zerolog/log"
)

// SearchEvents queries the reporting projection
func (s *service) SearchEvents(ctx context.Context, q search.Query) ([]search.EventDocument, error) {
	if s.index == nil {
		return nil, apperrors.IllegalState("Event search is not enabled")
	}
	docs, err := s.index.SearchEvents(ctx, q)
	if err != nil {
		return nil, apperrors.External(err, "event search failed")
	}
	return docs, nil
}

// SyncSearchIndex pages through every event and reindexes it with its
// current status. Events whose status cannot be read are skipped.
func (s *service) SyncSearchIndex(ctx context.Context, batchSize int) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	indexed := 0
	for offset := 0; ; offset += batchSize {
		events, err := s.repo.ListEvents(ctx, batchSize, offset)
		if err != nil {
			return indexed, apperrors.Internal(err, "failed to list events")
		}

		for _, event := range events {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			status, err := s.statusOf(ctx, event, event.CreatedBy)
			if err != nil {
				log.Warn().Err(err).Str("event_id", event.PublicID()).Msg("Skipping event, status unavailable")
				continue
			}

			doc := search.EventDocument{
				ID:             event.PublicID(),
				ProjectID:      event.ProjectID,
				Title:          event.EventName,
				EventType:      event.EventType.String(),
				Status:         string(status),
				EventSupportID: event.RemoteReference(),
				AssessmentID:   event.AssessmentID,
				SupplierCount:  len(event.SupplierSelections),
				UpdatedAt:      event.UpdatedAt,
				IndexedAt:      s.now().UTC(),
			}
			if event.Project != nil {
				doc.ProjectName = event.Project.Name
				doc.FrameworkID = event.Project.FrameworkID
				doc.LotID = event.Project.LotID
			}
			if err := s.index.IndexEvent(ctx, doc); err != nil {
				return indexed, apperrors.External(err, "failed to index event '%s'", doc.ID)
			}
			indexed++
		}

		if len(events) < batchSize {
			return indexed, nil
		}
	}
}
