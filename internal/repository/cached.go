package repository

import (
	"context"
	"time"

	"example.com/backstage/services/tenders/internal/cache"
	"example.com/backstage/services/tenders/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// cachedRepository reads organisation mappings through the cache. Event data
// always goes to the database.
type cachedRepository struct {
	Repository
	cache cache.Cache
	ttl   time.Duration
}

// WithMappingCache wraps next so organisation mapping lookups use c
func WithMappingCache(next Repository, c cache.Cache, ttl time.Duration) Repository {
	return &cachedRepository{Repository: next, cache: c, ttl: ttl}
}

func (r *cachedRepository) lookup(ctx context.Context, key string, load func() (*models.OrganisationMapping, error)) (*models.OrganisationMapping, error) {
	var mapping models.OrganisationMapping
	err := r.cache.Get(ctx, key, &mapping)
	if err == nil {
		return &mapping, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("Organisation mapping cache read failed")
	}

	found, err := load()
	if err != nil {
		return nil, err
	}
	r.store(ctx, found)
	return found, nil
}

func (r *cachedRepository) store(ctx context.Context, mapping *models.OrganisationMapping) {
	for _, key := range []string{
		cache.OrganisationMappingKey(mapping.OrganisationID),
		cache.ExternalOrganisationMappingKey(mapping.ExternalOrganisationID),
	} {
		if err := r.cache.Set(ctx, key, mapping, r.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Organisation mapping cache write failed")
		}
	}
}

func (r *cachedRepository) FindOrganisationMapping(ctx context.Context, organisationID string) (*models.OrganisationMapping, error) {
	return r.lookup(ctx, cache.OrganisationMappingKey(organisationID), func() (*models.OrganisationMapping, error) {
		return r.Repository.FindOrganisationMapping(ctx, organisationID)
	})
}

func (r *cachedRepository) FindOrganisationMappingByExternalID(ctx context.Context, externalID string) (*models.OrganisationMapping, error) {
	return r.lookup(ctx, cache.ExternalOrganisationMappingKey(externalID), func() (*models.OrganisationMapping, error) {
		return r.Repository.FindOrganisationMappingByExternalID(ctx, externalID)
	})
}

func (r *cachedRepository) FindOrganisationMappings(ctx context.Context, organisationIDs []string) ([]*models.OrganisationMapping, error) {
	mappings := make([]*models.OrganisationMapping, 0, len(organisationIDs))
	var misses []string
	for _, id := range organisationIDs {
		var mapping models.OrganisationMapping
		if err := r.cache.Get(ctx, cache.OrganisationMappingKey(id), &mapping); err == nil {
			mappings = append(mappings, &mapping)
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return mappings, nil
	}

	loaded, err := r.Repository.FindOrganisationMappings(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, mapping := range loaded {
		r.store(ctx, mapping)
	}
	return append(mappings, loaded...), nil
}
