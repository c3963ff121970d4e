package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/abtswath/rubick/lib/db"
	"github.com/abtswath/rubick/lib/lock"
	"github.com/abtswath/rubick/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openCatalog(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "rubick.db"), testLogger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newTestImporter(t *testing.T, gdb *gorm.DB, dumpURL string) *Importer {
	t.Helper()
	jobLock := lock.New(t.TempDir(), "import", testLogger())
	return New(gdb, NewHub(), jobLock, testLogger(), dumpURL)
}

// writeStaging builds a staging dataset file holding one JSON document per
// row.
func writeStaging(t *testing.T, docs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staging.db")

	staging, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: db.NewGormLogger(testLogger()),
	})
	require.NoError(t, err)
	require.NoError(t, staging.Exec("CREATE TABLE yyets (id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)").Error)
	for _, doc := range docs {
		require.NoError(t, staging.Exec("INSERT INTO yyets (data) VALUES (?)", doc).Error)
	}

	conn, err := staging.DB()
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	return path
}

func marshalRecord(t *testing.T, record Record) string {
	t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	return string(raw)
}

func showDoc(t *testing.T, name, channel, area string, seasons ...SeasonDoc) string {
	t.Helper()
	return marshalRecord(t, Record{
		Status: 1,
		Info:   "OK",
		Data: Data{
			Info: Info{
				CnName:    name,
				EnName:    name + " EN",
				AliasName: name + " Alias",
				Channel:   channel,
				Area:      area,
			},
			List: seasons,
		},
	})
}

func TestImportBuildsTree(t *testing.T) {
	doc := showDoc(t, "Some Drama", "tv", "US",
		SeasonDoc{
			SeasonNum: "1",
			SeasonCn:  "Season One",
			Formats:   []string{"HD", "SD"},
			Items: map[string][]Item{
				"HD": {
					{Episode: "1", Name: "E01", Size: "1GB", Files: []FileDoc{
						{WayCn: "magnet", Address: "magnet:1", Password: ""},
						{WayCn: "disk", Address: "https://example.com/1", Password: "x1"},
					}},
					{Episode: "2", Name: "E02", Size: "1GB", Files: []FileDoc{
						{WayCn: "magnet", Address: "magnet:2"},
					}},
				},
				"SD": {
					{Episode: "1", Name: "E01", Size: "500MB"},
				},
			},
		},
		SeasonDoc{
			SeasonNum: "2",
			SeasonCn:  "Season Two",
			Formats:   []string{"HD"},
			Items: map[string][]Item{
				"HD": {{Episode: "1", Name: "S02E01", Size: "1GB"}},
			},
		},
	)

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")

	summary, err := imp.importStaging(context.Background(), writeStaging(t, doc))
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 1, Processed: 1}, summary)

	var resource models.Resource
	require.NoError(t, gdb.First(&resource).Error)
	require.Equal(t, "Some Drama", resource.Name)
	require.Equal(t, "Some Drama EN", resource.OriginalName)
	require.NotZero(t, resource.ChannelID)
	require.NotZero(t, resource.AreaID)

	var seasons []models.Season
	require.NoError(t, gdb.Where("resource_id = ?", resource.ID).Find(&seasons).Error)
	require.Len(t, seasons, 2)

	counts := map[string]int64{}
	for _, table := range []string{"formats", "series", "files", "ways", "channels", "areas"} {
		var count int64
		require.NoError(t, gdb.Table(table).Count(&count).Error)
		counts[table] = count
	}
	require.EqualValues(t, 3, counts["formats"])
	require.EqualValues(t, 4, counts["series"])
	require.EqualValues(t, 3, counts["files"])
	// Two distinct delivery ways across all files.
	require.EqualValues(t, 2, counts["ways"])
	require.EqualValues(t, 1, counts["channels"])
	require.EqualValues(t, 1, counts["areas"])
}

func TestImportOnlyDescendsListedFormats(t *testing.T) {
	doc := showDoc(t, "Orphans", "tv", "JP", SeasonDoc{
		SeasonNum: "1",
		SeasonCn:  "Season One",
		Formats:   []string{"HD"},
		Items: map[string][]Item{
			"HD":   {{Episode: "1", Name: "E01", Size: "1GB"}},
			"4K":   {{Episode: "1", Name: "E01", Size: "4GB"}},
			"WEB1": {{Episode: "1", Name: "E01", Size: "2GB"}},
		},
	})

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")

	_, err := imp.importStaging(context.Background(), writeStaging(t, doc))
	require.NoError(t, err)

	var formats []models.Format
	require.NoError(t, gdb.Find(&formats).Error)
	require.Len(t, formats, 1)
	require.Equal(t, "HD", formats[0].Format)

	var series int64
	require.NoError(t, gdb.Model(&models.Series{}).Count(&series).Error)
	require.EqualValues(t, 1, series)
}

func TestImportDeduplicatesTrimmedLookupNames(t *testing.T) {
	first := showDoc(t, "Show A", "Drama", "US")
	second := showDoc(t, "Show B", " Drama ", " US")

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")

	summary, err := imp.importStaging(context.Background(), writeStaging(t, first, second))
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 2, Processed: 2}, summary)

	var channels []models.Channel
	require.NoError(t, gdb.Find(&channels).Error)
	require.Len(t, channels, 1)
	require.Equal(t, "Drama", channels[0].Name)

	var areas int64
	require.NoError(t, gdb.Model(&models.Area{}).Count(&areas).Error)
	require.EqualValues(t, 1, areas)

	// Both resources reference the single deduplicated rows.
	var resources []models.Resource
	require.NoError(t, gdb.Find(&resources).Error)
	require.Len(t, resources, 2)
	require.Equal(t, resources[0].ChannelID, resources[1].ChannelID)
}

func TestImportReplacesExistingCatalog(t *testing.T) {
	gdb := openCatalog(t)
	require.NoError(t, gdb.Create(&models.Resource{Name: "Stale Show"}).Error)

	imp := newTestImporter(t, gdb, "")
	_, err := imp.importStaging(context.Background(), writeStaging(t, showDoc(t, "Fresh Show", "tv", "US")))
	require.NoError(t, err)

	var resources []models.Resource
	require.NoError(t, gdb.Find(&resources).Error)
	require.Len(t, resources, 1)
	require.Equal(t, "Fresh Show", resources[0].Name)
	// Cleared counters mean the replacement starts numbering from 1 again.
	require.EqualValues(t, 1, resources[0].ID)
}

func TestImportEmptyStagingIsANoop(t *testing.T) {
	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")
	path := writeStaging(t)

	summary, err := imp.importStaging(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, Summary{}, summary)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "staging artifact should be removed")

	var resources int64
	require.NoError(t, gdb.Model(&models.Resource{}).Count(&resources).Error)
	require.Zero(t, resources)
}

func TestImportSkipsMalformedDocuments(t *testing.T) {
	valid := showDoc(t, "Valid Show", "tv", "US")

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")

	summary, err := imp.importStaging(context.Background(), writeStaging(t, "{not json", valid))
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 2, Processed: 2, Failed: 1}, summary)

	var resources []models.Resource
	require.NoError(t, gdb.Find(&resources).Error)
	require.Len(t, resources, 1)
	require.Equal(t, "Valid Show", resources[0].Name)
}

func TestImportProgressAlwaysReachesTotal(t *testing.T) {
	docs := []string{
		showDoc(t, "Show A", "tv", "US"),
		"garbage",
		showDoc(t, "Show B", "tv", "US"),
	}

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")

	events, cancel := imp.hub.Subscribe()
	_, err := imp.importStaging(context.Background(), writeStaging(t, docs...))
	require.NoError(t, err)
	cancel()

	var importing []Event
	for event := range events {
		if event.Phase == PhaseImporting {
			importing = append(importing, event)
		}
	}
	require.Len(t, importing, 3)
	last := importing[len(importing)-1]
	require.EqualValues(t, 3, last.Current)
	require.EqualValues(t, 3, last.Total)
	require.EqualValues(t, 1, last.Failed)
}

func TestImportRemovesArtifactOnSuccess(t *testing.T) {
	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "")
	path := writeStaging(t, showDoc(t, "Some Show", "tv", "US"))

	_, err := imp.importStaging(context.Background(), path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "staging artifact should be removed")
}

func zipStaging(t *testing.T, stagingPath string) []byte {
	t.Helper()
	raw, err := os.ReadFile(stagingPath)
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create(stagingEntry)
	require.NoError(t, err)
	_, err = entry.Write(raw)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func TestUnpackExtractsNamedEntry(t *testing.T) {
	staging := writeStaging(t, showDoc(t, "Some Show", "tv", "US"))
	archive := zipStaging(t, staging)

	path, err := unpack(archive, stagingEntry)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	original, err := os.ReadFile(staging)
	require.NoError(t, err)
	extracted, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, extracted)
}

func TestUnpackMissingEntry(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("something-else.db")
	require.NoError(t, err)
	_, err = entry.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = unpack(buf.Bytes(), stagingEntry)
	require.Error(t, err)
}

func TestRunEndToEnd(t *testing.T) {
	staging := writeStaging(t, showDoc(t, "Networked Show", "tv", "US"))
	archive := zipStaging(t, staging)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, server.URL)

	events, cancel := imp.hub.Subscribe()
	summary, err := imp.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{Total: 1, Processed: 1}, summary)
	cancel()

	var resource models.Resource
	require.NoError(t, gdb.First(&resource).Error)
	require.Equal(t, "Networked Show", resource.Name)

	phases := map[Phase]bool{}
	for event := range events {
		phases[event.Phase] = true
	}
	for _, phase := range []Phase{PhaseDownloading, PhaseUnpacking, PhaseImporting, PhaseFinalizing, PhaseDone} {
		require.True(t, phases[phase], "missing phase %s", phase)
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	gdb := openCatalog(t)
	imp := newTestImporter(t, gdb, "http://unused.invalid")

	ok, err := imp.lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer imp.lock.Unlock()

	_, err = imp.Run(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRunning)
}
