package catalog

import (
	"context"
	"fmt"

	"github.com/abtswath/rubick/models"
)

// IsFavorite reports whether the resource is marked as a favorite.
func (c *Catalog) IsFavorite(ctx context.Context, resourceID int64) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("resource_id = ?", resourceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check favorite %d: %w", resourceID, err)
	}
	return count > 0, nil
}

// Favorite marks a resource. Marking twice keeps a single row.
func (c *Catalog) Favorite(ctx context.Context, resourceID int64) error {
	favorited, err := c.IsFavorite(ctx, resourceID)
	if err != nil {
		return err
	}
	if favorited {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&models.Favorite{ResourceID: resourceID}).Error; err != nil {
		return fmt.Errorf("favorite %d: %w", resourceID, err)
	}
	return nil
}

// Unfavorite removes the marker. Removing an absent marker is a no-op.
func (c *Catalog) Unfavorite(ctx context.Context, resourceID int64) error {
	err := c.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return fmt.Errorf("unfavorite %d: %w", resourceID, err)
	}
	return nil
}

// Favorites lists every favorited resource flat, without hierarchy.
func (c *Catalog) Favorites(ctx context.Context) ([]FavoriteEntry, error) {
	entries := []FavoriteEntry{}
	err := c.db.WithContext(ctx).
		Table("favorites AS f").
		Select("f.resource_id AS id, COALESCE(r.name, '') AS name, COALESCE(r.original_name, '') AS original_name, COALESCE(r.alias_name, '') AS alias_name, COALESCE(r.pic, '') AS pic").
		Joins("LEFT JOIN resources AS r ON f.resource_id = r.id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return entries, nil
}
