package importer

import (
	"strings"

	"gorm.io/gorm"
)

// nameRecord mirrors the shape shared by the areas, channels and ways
// lookup tables.
type nameRecord struct {
	ID   int64
	Name string
}

// lookupCache memoizes name→id for one lookup table within a single import
// transaction. It exists to avoid duplicate rows and a round trip per
// reference; it is discarded when the transaction ends.
type lookupCache struct {
	table   string
	entries []nameRecord
}

func newLookupCache(table string) *lookupCache {
	return &lookupCache{table: table}
}

// resolve returns the id for name, inserting a new row on first sight.
// Names are compared after trimming; case is preserved. An insert failure
// degrades to the sentinel id 0 rather than failing the batch: the FK
// columns default to 0 and the read path's LEFT JOINs tolerate it.
func (c *lookupCache) resolve(tx *gorm.DB, name string) int64 {
	name = strings.TrimSpace(name)
	for _, entry := range c.entries {
		if entry.Name == name {
			return entry.ID
		}
	}

	record := nameRecord{Name: name}
	result := tx.Table(c.table).Create(&record)
	if result.Error != nil || result.RowsAffected == 0 {
		return 0
	}
	c.entries = append(c.entries, record)
	return record.ID
}

// lookups bundles the per-transaction caches for all three lookup tables.
type lookups struct {
	areas    *lookupCache
	channels *lookupCache
	ways     *lookupCache
}

func newLookups() *lookups {
	return &lookups{
		areas:    newLookupCache("areas"),
		channels: newLookupCache("channels"),
		ways:     newLookupCache("ways"),
	}
}
