package catalog

import (
	"context"
	"fmt"

	"github.com/abtswath/rubick/lib/types"
	"github.com/abtswath/rubick/models"
)

// Stats counts the catalog tables and reports whether an import has ever
// completed.
func (c *Catalog) Stats(ctx context.Context) (types.StatsData, error) {
	var stats types.StatsData
	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.Resource{}, &stats.Resources},
		{&models.Season{}, &stats.Seasons},
		{&models.Format{}, &stats.Formats},
		{&models.Series{}, &stats.Series},
		{&models.File{}, &stats.Files},
		{&models.Favorite{}, &stats.Favorites},
	}

	for _, count := range counts {
		if err := c.db.WithContext(ctx).Model(count.model).Count(count.dest).Error; err != nil {
			return types.StatsData{}, fmt.Errorf("count rows: %w", err)
		}
	}

	stats.Initialized = stats.Resources > 0
	return stats, nil
}
