package cmd

import (
	"example.com/backstage/services/tenders/config"
	"example.com/backstage/services/tenders/internal/cache"
	"example.com/backstage/services/tenders/internal/clients"
	"example.com/backstage/services/tenders/internal/database"
	"example.com/backstage/services/tenders/internal/messaging"
	"example.com/backstage/services/tenders/internal/repository"
	"example.com/backstage/services/tenders/internal/search"
	"example.com/backstage/services/tenders/internal/service"
	"example.com/backstage/services/tenders/internal/sourcing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const connectAttempts = 5

// components holds everything opened for a command so it can be closed again
type components struct {
	db    *gorm.DB
	cache *cache.RedisCache
	bus   messaging.ServiceBusClient
	svc   service.EventOrchestrator
}

func buildService(cfg config.Config) (*components, error) {
	settings, err := service.NewSettings(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	db, err := database.ConnectWithRetry(cfg.Database, connectAttempts)
	if err != nil {
		return nil, err
	}
	c := &components{db: db}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisCache(config.RedisConfig{})
	}
	c.cache = redisCache

	repo := repository.WithMappingCache(
		repository.WithRetry(repository.NewRepository(db), cfg.Database.RetryAttempts, cfg.Database.RetryInterval),
		redisCache,
		cfg.Redis.TTL,
	)

	bus, err := messaging.NewServiceBusClient(cfg.ServiceBus, "tenders-service")
	if err != nil {
		c.close()
		return nil, err
	}
	c.bus = bus

	var index search.Index
	if cfg.Elastic.Enabled {
		elastic, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		} else {
			index = elastic
		}
	}

	svc, err := service.NewService(service.ServiceConfig{
		Repository:      repo,
		Sourcing:        sourcing.NewClient(cfg.Sourcing),
		Assessments:     clients.NewAssessmentClient(cfg.Assessments),
		Agreements:      clients.NewAgreementsClient(cfg.Agreements),
		MessagingClient: bus,
		SearchIndex:     index,
		Settings:        settings,
	})
	if err != nil {
		c.close()
		return nil, errors.Wrap(err, "failed to initialize service")
	}
	c.svc = svc
	return c, nil
}

func (c *components) close() {
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing messaging connection")
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis connection")
		}
	}
	if err := database.Close(c.db); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	}
}
