package importer

import (
	"context"
	"testing"

	"github.com/abtswath/rubick/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLookupCacheResolvesWithoutDuplicates(t *testing.T) {
	gdb := openCatalog(t)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cache := newLookupCache("channels")

		first := cache.resolve(tx, "Drama")
		require.Positive(t, first)
		require.Equal(t, first, cache.resolve(tx, " Drama "))
		require.Equal(t, first, cache.resolve(tx, "Drama"))

		second := cache.resolve(tx, "Movie")
		require.Positive(t, second)
		require.NotEqual(t, first, second)
		return nil
	})
	require.NoError(t, err)

	var channels []models.Channel
	require.NoError(t, gdb.WithContext(context.Background()).Find(&channels).Error)
	require.Len(t, channels, 2)
	require.Equal(t, "Drama", channels[0].Name)
}

func TestLookupCachesAreIndependentPerTable(t *testing.T) {
	gdb := openCatalog(t)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		caches := newLookups()
		channelID := caches.channels.resolve(tx, "Drama")
		wayID := caches.ways.resolve(tx, "Drama")
		require.Positive(t, channelID)
		require.Positive(t, wayID)
		return nil
	})
	require.NoError(t, err)

	var channels, ways int64
	require.NoError(t, gdb.Model(&models.Channel{}).Count(&channels).Error)
	require.NoError(t, gdb.Model(&models.Way{}).Count(&ways).Error)
	require.EqualValues(t, 1, channels)
	require.EqualValues(t, 1, ways)
}
