// Package importer downloads the externally published catalog dump, unpacks
// its staging dataset and explodes every denormalized show document into the
// normalized catalog tables inside a single transaction.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/abtswath/rubick/lib/db"
	"github.com/abtswath/rubick/lib/lock"
	"github.com/abtswath/rubick/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stagingEntry is the single archive entry holding the staging dataset, an
// sqlite file with one table of JSON show documents.
const (
	stagingEntry = "yyets_sqlite.db"
	stagingTable = "yyets"
)

// ErrAlreadyRunning is returned when a second import is started while one
// holds the import lock.
var ErrAlreadyRunning = errors.New("an import is already running")

// Summary is the final accounting of one import run. Failed counts
// documents that could not be parsed or whose resource row was not
// inserted; their absence never aborts the batch.
type Summary struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Importer is the bulk import pipeline. One long-running Run moves through
// downloading → unpacking → importing → finalizing, publishing progress
// events along the way.
type Importer struct {
	db      *gorm.DB
	hub     *Hub
	lock    *lock.FileLock
	logger  *slog.Logger
	dumpURL string
	client  *http.Client

	mu    sync.Mutex
	phase Phase
}

func New(gdb *gorm.DB, hub *Hub, jobLock *lock.FileLock, logger *slog.Logger, dumpURL string) *Importer {
	return &Importer{
		db:      gdb,
		hub:     hub,
		lock:    jobLock,
		logger:  logger,
		dumpURL: dumpURL,
		client:  &http.Client{},
		phase:   PhaseIdle,
	}
}

// Phase reports where the pipeline currently is.
func (i *Importer) Phase() Phase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}

func (i *Importer) setPhase(phase Phase) {
	i.mu.Lock()
	i.phase = phase
	i.mu.Unlock()
}

func (i *Importer) publish(event Event) {
	i.setPhase(event.Phase)
	i.hub.Publish(event)
}

// Run executes the whole pipeline synchronously. Per-document failures are
// absorbed and counted; failures opening the staging dataset or committing
// the transaction are fatal and returned.
func (i *Importer) Run(ctx context.Context) (Summary, error) {
	ok, err := i.lock.TryLock()
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, ErrAlreadyRunning
	}
	defer i.unlock()

	return i.run(ctx)
}

// Start runs the pipeline in the background, failing fast when another
// import holds the lock. Progress and the outcome are reported through the
// event hub.
func (i *Importer) Start(ctx context.Context) error {
	ok, err := i.lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRunning
	}

	go func() {
		defer i.unlock()
		// The terminal event already carries the error message.
		_, _ = i.run(ctx)
	}()
	return nil
}

func (i *Importer) unlock() {
	if err := i.lock.Unlock(); err != nil {
		i.logger.Error("failed to release import lock", slog.Any("error", err))
	}
}

func (i *Importer) run(ctx context.Context) (Summary, error) {
	started := time.Now()
	i.publish(Event{Phase: PhaseDownloading, Message: "downloading staging dataset"})
	archive, err := i.download(ctx)
	if err != nil {
		return i.fail(err)
	}

	i.publish(Event{Phase: PhaseUnpacking, Message: "unpacking staging dataset"})
	staging, err := unpack(archive, stagingEntry)
	if err != nil {
		return i.fail(err)
	}

	summary, err := i.importStaging(ctx, staging)
	if err != nil {
		return i.fail(err)
	}

	i.publish(Event{
		Phase:   PhaseDone,
		Message: "import finished",
		Current: summary.Processed,
		Total:   summary.Total,
		Failed:  summary.Failed,
	})
	i.logger.Info("import finished",
		slog.Int64("total", summary.Total),
		slog.Int64("failed", summary.Failed),
		slog.Duration("elapsed", time.Since(started)))
	return summary, nil
}

func (i *Importer) fail(err error) (Summary, error) {
	i.publish(Event{Phase: PhaseFailed, Message: err.Error()})
	i.logger.Error("import failed", slog.Any("error", err))
	return Summary{}, err
}

// importStaging consumes the staging dataset file and removes it when done.
// The whole batch commits once: a crash mid-import leaves the catalog
// untouched, while progress is still reported incrementally.
func (i *Importer) importStaging(ctx context.Context, path string) (Summary, error) {
	staging, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: db.NewGormLogger(i.logger),
	})
	if err != nil {
		return Summary{}, fmt.Errorf("open staging dataset: %w", err)
	}
	stagingConn, err := staging.DB()
	if err != nil {
		return Summary{}, fmt.Errorf("staging connection: %w", err)
	}

	var total int64
	if err := staging.Raw("SELECT COUNT(*) FROM " + stagingTable).Scan(&total).Error; err != nil {
		stagingConn.Close()
		return Summary{}, fmt.Errorf("count staging rows: %w", err)
	}

	// An empty dump is a no-op, not an error.
	if total == 0 {
		stagingConn.Close()
		i.removeArtifact(path)
		return Summary{}, nil
	}

	summary := Summary{Total: total}
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A re-import replaces the catalog wholesale; rolling back leaves
		// the previous catalog intact.
		if err := db.Reset(tx); err != nil {
			return err
		}

		rows, err := staging.Raw("SELECT data FROM " + stagingTable).Rows()
		if err != nil {
			return fmt.Errorf("read staging rows: %w", err)
		}
		defer rows.Close()

		caches := newLookups()
		for rows.Next() {
			var doc string
			if err := rows.Scan(&doc); err != nil {
				summary.Failed++
				i.logger.Warn("unreadable staging row skipped", slog.Any("error", err))
			} else if err := i.importRecord(tx, caches, doc); err != nil {
				summary.Failed++
				i.logger.Warn("document skipped", slog.Any("error", err))
			}

			// Every document counts as processed, even a skipped one, so
			// the observer's progress always reaches the total.
			summary.Processed++
			i.publish(Event{
				Phase:   PhaseImporting,
				Message: "importing records",
				Current: summary.Processed,
				Total:   summary.Total,
				Failed:  summary.Failed,
			})
		}
		return rows.Err()
	})
	if err != nil {
		stagingConn.Close()
		return Summary{}, fmt.Errorf("import staging dataset: %w", err)
	}

	i.publish(Event{Phase: PhaseFinalizing, Message: "removing staging dataset"})
	stagingConn.Close()
	i.removeArtifact(path)
	return summary, nil
}

func (i *Importer) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		i.logger.Warn("failed to remove staging dataset", slog.String("path", path), slog.Any("error", err))
	}
}

// importRecord explodes one show document into resource → season → format →
// series → file rows. The returned error means the document contributed no
// resource row at all; deeper failures only prune their own branch.
func (i *Importer) importRecord(tx *gorm.DB, caches *lookups, doc string) error {
	var record Record
	if err := json.Unmarshal([]byte(doc), &record); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	info := record.Data.Info
	resource := models.Resource{
		Name:         info.CnName,
		OriginalName: info.EnName,
		AliasName:    info.AliasName,
		ChannelID:    caches.channels.resolve(tx, info.Channel),
		AreaID:       caches.areas.resolve(tx, info.Area),
	}
	result := tx.Create(&resource)
	if result.Error != nil {
		return fmt.Errorf("insert resource %q: %w", info.CnName, result.Error)
	}
	if result.RowsAffected == 0 {
		// No parent row, no children.
		return fmt.Errorf("insert resource %q: no row created", info.CnName)
	}

	i.insertSeasons(tx, caches, resource.ID, record.Data.List)
	return nil
}

// insertSeasons walks the document tree top-down. Insert order matters:
// every child row references a parent created earlier in the same
// transaction, and a level is only descended into when its parent insert
// succeeded.
func (i *Importer) insertSeasons(tx *gorm.DB, caches *lookups, resourceID int64, seasons []SeasonDoc) {
	for _, doc := range seasons {
		season := models.Season{
			ResourceID: resourceID,
			Season:     parseNumber(doc.SeasonNum),
			Name:       doc.SeasonCn,
		}
		if !created(tx, &season) {
			continue
		}
		for _, label := range doc.Formats {
			format := models.Format{SeasonID: season.ID, Format: label}
			if !created(tx, &format) {
				continue
			}
			for _, item := range doc.Items[label] {
				episode := models.Series{
					FormatID: format.ID,
					Episode:  parseNumber(item.Episode),
					Name:     item.Name,
					Size:     item.Size,
				}
				if !created(tx, &episode) {
					continue
				}
				for _, file := range item.Files {
					created(tx, &models.File{
						SeriesID: episode.ID,
						WayID:    caches.ways.resolve(tx, file.WayCn),
						Address:  file.Address,
						Password: file.Password,
					})
				}
			}
		}
	}
}

// created is the shared insert step of the tree walk: true only when the
// row actually landed, so callers can prune the branch otherwise.
func created(tx *gorm.DB, value any) bool {
	result := tx.Create(value)
	return result.Error == nil && result.RowsAffected > 0
}
