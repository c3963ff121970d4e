// Package catalog is the read side of the media catalog: hierarchical
// resource aggregation, flat search, favorites and on-demand metadata
// enrichment.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/abtswath/rubick/lib/douban"
	"github.com/abtswath/rubick/models"
	"gorm.io/gorm"
)

// ErrNotFound marks an absent resource; callers surface it as an empty
// result rather than an error.
var ErrNotFound = errors.New("resource not found")

// MetadataProvider supplies descriptive metadata for resources that were
// imported without any.
type MetadataProvider interface {
	Subject(ctx context.Context, name string) (*douban.Subject, error)
	DownloadImage(ctx context.Context, src string) (string, error)
}

type Catalog struct {
	db       *gorm.DB
	provider MetadataProvider
	logger   *slog.Logger
}

func New(gdb *gorm.DB, provider MetadataProvider, logger *slog.Logger) *Catalog {
	return &Catalog{db: gdb, provider: provider, logger: logger}
}

// Resource reconstructs the full season/format/series/file tree for one
// resource. The tree costs one query per level regardless of its size. A
// resource without a cached picture is enriched best-effort before being
// returned.
func (c *Catalog) Resource(ctx context.Context, id int64) (*Resource, error) {
	if id < 1 {
		return nil, ErrNotFound
	}

	var resource Resource
	err := c.db.WithContext(ctx).
		Table("resources AS r").
		Select("r.id, r.name, r.original_name, r.alias_name, r.pic, r.directors, r.writers, r.actors, r.types, r.released_at, r.summary, r.rating, COALESCE(c.name, '') AS channel, COALESCE(a.name, '') AS area").
		Joins("LEFT JOIN channels AS c ON c.id = r.channel_id").
		Joins("LEFT JOIN areas AS a ON a.id = r.area_id").
		Where("r.id = ?", id).
		Take(&resource).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load resource %d: %w", id, err)
	}

	favorite, err := c.IsFavorite(ctx, id)
	if err != nil {
		return nil, err
	}
	resource.Favorite = favorite

	if resource.Seasons, err = c.seasons(ctx, id); err != nil {
		return nil, err
	}

	if resource.Pic == "" {
		c.enrich(ctx, &resource)
	}
	return &resource, nil
}

// seasons and the levels below issue one batched query each, keyed by the
// id set collected from the level above. An empty parent set short-circuits
// the rest of the descent.
func (c *Catalog) seasons(ctx context.Context, resourceID int64) ([]*Season, error) {
	var seasons []*Season
	err := c.db.WithContext(ctx).
		Table("seasons").
		Select("id, season, name").
		Where("resource_id = ?", resourceID).
		Order("season ASC").
		Find(&seasons).Error
	if err != nil {
		return nil, fmt.Errorf("load seasons: %w", err)
	}
	if len(seasons) == 0 {
		return seasons, nil
	}

	ids := make([]int64, len(seasons))
	for i, season := range seasons {
		ids[i] = season.ID
	}
	formats, err := c.formats(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, season := range seasons {
		season.Formats = formats[season.ID]
	}
	return seasons, nil
}

func (c *Catalog) formats(ctx context.Context, seasonIDs []int64) (map[int64][]*Format, error) {
	var formats []*Format
	err := c.db.WithContext(ctx).
		Table("formats").
		Select("id, season_id, format").
		Where("season_id IN ?", seasonIDs).
		Find(&formats).Error
	if err != nil {
		return nil, fmt.Errorf("load formats: %w", err)
	}

	grouped := make(map[int64][]*Format, len(formats))
	if len(formats) == 0 {
		return grouped, nil
	}

	ids := make([]int64, len(formats))
	for i, format := range formats {
		ids[i] = format.ID
	}
	series, err := c.series(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, format := range formats {
		format.Series = series[format.ID]
		grouped[format.SeasonID] = append(grouped[format.SeasonID], format)
	}
	return grouped, nil
}

func (c *Catalog) series(ctx context.Context, formatIDs []int64) (map[int64][]*Series, error) {
	var series []*Series
	err := c.db.WithContext(ctx).
		Table("series").
		Select("id, format_id, episode, name, size").
		Where("format_id IN ?", formatIDs).
		Order("episode ASC").
		Find(&series).Error
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}

	grouped := make(map[int64][]*Series, len(series))
	if len(series) == 0 {
		return grouped, nil
	}

	ids := make([]int64, len(series))
	for i, item := range series {
		ids[i] = item.ID
	}
	files, err := c.files(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range series {
		item.Files = files[item.ID]
		grouped[item.FormatID] = append(grouped[item.FormatID], item)
	}
	return grouped, nil
}

func (c *Catalog) files(ctx context.Context, seriesIDs []int64) (map[int64][]*SeriesFile, error) {
	var files []*SeriesFile
	err := c.db.WithContext(ctx).
		Table("files AS f").
		Select("f.id, f.series_id, f.address, f.password, COALESCE(w.name, '') AS way").
		Joins("LEFT JOIN ways AS w ON w.id = f.way_id").
		Where("f.series_id IN ?", seriesIDs).
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}

	grouped := make(map[int64][]*SeriesFile, len(files))
	for _, file := range files {
		grouped[file.SeriesID] = append(grouped[file.SeriesID], file)
	}
	return grouped, nil
}

// Search matches the keyword as a substring of name, alias or original
// name, newest releases first. No hierarchy is loaded.
func (c *Catalog) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	pattern := "%" + keyword + "%"
	results := []SearchResult{}
	err := c.db.WithContext(ctx).
		Table("resources AS r").
		Select("r.id, r.name, r.original_name, r.alias_name, COALESCE(c.name, '') AS channel").
		Joins("LEFT JOIN channels AS c ON c.id = r.channel_id").
		Where("r.name LIKE @kw OR r.alias_name LIKE @kw OR r.original_name LIKE @kw", map[string]any{"kw": pattern}).
		Order("r.released_at DESC, r.id DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	return results, nil
}

// enrich fills in missing descriptive metadata from the provider. It never
// fails the read: a provider error returns the resource as imported, and a
// persist error still returns the enriched values for this call so only the
// next read re-attempts.
func (c *Catalog) enrich(ctx context.Context, resource *Resource) {
	subject, err := c.provider.Subject(ctx, resource.Name)
	if err != nil {
		c.logger.Debug("enrichment lookup failed",
			slog.String("name", resource.Name),
			slog.Any("error", err))
		return
	}

	if subject.Pic != "" {
		if pic, err := c.provider.DownloadImage(ctx, subject.Pic); err == nil {
			resource.Pic = pic
		} else {
			c.logger.Debug("enrichment image download failed",
				slog.String("src", subject.Pic),
				slog.Any("error", err))
		}
	}

	resource.Directors = subject.Directors
	resource.Writers = subject.Writers
	resource.Actors = subject.Actors
	resource.Types = subject.Types
	resource.ReleasedAt = subject.ReleasedAt
	resource.Summary = subject.Summary
	resource.Rating = subject.Rating

	err = c.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("id = ?", resource.ID).
		Updates(map[string]any{
			"pic":         resource.Pic,
			"directors":   resource.Directors,
			"writers":     resource.Writers,
			"actors":      resource.Actors,
			"types":       resource.Types,
			"released_at": resource.ReleasedAt,
			"summary":     resource.Summary,
			"rating":      resource.Rating,
		}).Error
	if err != nil {
		c.logger.Warn("failed to persist enrichment",
			slog.Int64("id", resource.ID),
			slog.Any("error", err))
	}
}
