package cache

import (
	"context"
	"testing"
	"time"

	"example.com/backstage/services/tenders/config"

	"github.com/stretchr/testify/require"
)

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	var out string
	require.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Close())
}

func TestMappingKeysDoNotCollide(t *testing.T) {
	require.NotEqual(t, OrganisationMappingKey("51435"), ExternalOrganisationMappingKey("51435"))
}
