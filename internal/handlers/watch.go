package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/frontmesh/crossbus/internal/bus"
	"github.com/frontmesh/crossbus/internal/metrics"
	"github.com/frontmesh/crossbus/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Components are served from arbitrary origins in a composed deployment
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Watch upgrades to a websocket and pushes every notification addressed
// to the owner, filtered server-side. Notifications published before the
// socket subscribes are not replayed; clients that need history call the
// records endpoint after connecting.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		h.Error(w, http.StatusBadRequest, "owner is required")
		return
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response
		return
	}

	conn := ws.NewConnection(owner, sock)
	conn.Start()
	metrics.WatchConnections.Inc()

	cancel := h.reg.Subscribe(owner, func(n bus.Notification) {
		data, err := json.Marshal(n)
		if err != nil {
			return
		}
		if err := conn.Send(data); err != nil {
			metrics.WatchDropped.Inc()
		}
	})

	// Read loop: discard inbound frames, detect close
	go func() {
		defer func() {
			cancel()
			conn.Close(websocket.CloseNormalClosure, "watch ended")
			metrics.WatchConnections.Dec()
		}()
		for {
			if _, _, err := sock.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
