package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/abtswath/rubick/models"
	"gorm.io/gorm"
)

// Health is the health check response. Initialized reports whether the
// catalog has ever been imported; the frontend uses it to decide between
// the first-run flow and the main view.
type Health struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Initialized bool      `json:"initialized"`
	DB          struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
}

// Check returns an HTTP handler that verifies the store connection and
// reports the catalog state.
func Check(gdb *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
		}

		sqlDB, err := gdb.DB()
		if err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "failed to get database connection"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "database ping failed"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		health.DB.Status = "ok"

		var resources int64
		if err := gdb.WithContext(ctx).Model(&models.Resource{}).Count(&resources).Error; err == nil {
			health.Initialized = resources > 0
		}

		writeHealth(w, health, http.StatusOK)
	}
}

func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("failed to encode health response", slog.Any("error", err))
	}
}
