package handlers

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/abtswath/rubick/lib/importer"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The frontend is a local webview; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleEvents streams import progress events to a websocket client. A slow
// client misses events rather than stalling the import.
func HandleEvents(hub *importer.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", slog.Any("error", err))
			return
		}
		defer conn.Close()

		events, cancel := hub.Subscribe()
		defer cancel()

		// Drain client frames so close handshakes are noticed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for event := range events {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
