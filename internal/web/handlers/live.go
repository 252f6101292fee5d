package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/light-recon/internal/live"
	"github.com/kozaktomas/light-recon/internal/logging"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// SnapshotSource publishes live session snapshots.
type SnapshotSource interface {
	Latest() (live.Snapshot, bool)
	AddListener() chan live.Snapshot
	RemoveListener(ch chan live.Snapshot)
}

// CameraSwitcher moves the running session to another device.
type CameraSwitcher interface {
	SwitchCamera(ctx context.Context, index int) error
}

// LiveHandler serves the live session state.
type LiveHandler struct {
	hub      SnapshotSource
	switcher CameraSwitcher
	cameras  func() []int
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler creates a live handler. switcher may be nil when the
// session reads from a replay source.
func NewLiveHandler(hub SnapshotSource, switcher CameraSwitcher, cameras func() []int, checkOrigin func(*http.Request) bool, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		hub:      hub,
		switcher: switcher,
		cameras:  cameras,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logging.OrDefault(logger),
	}
}

// State returns the latest snapshot.
func (h *LiveHandler) State(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.hub.Latest()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no frame processed yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Events streams snapshots as server-sent "state" events.
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	ch := h.hub.AddListener()
	defer h.hub.RemoveListener(ch)

	if snap, ok := h.hub.Latest(); ok {
		sendSSEEvent(w, flusher, "state", snap)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "state", snap)
		}
	}
}

// WebSocket pushes snapshots as JSON text messages.
func (h *LiveHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := h.hub.AddListener()
	defer h.hub.RemoveListener(ch)

	// The client never sends anything we act on; reading detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap live.Snapshot) bool {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(snap) == nil
	}

	if snap, ok := h.hub.Latest(); ok && !send(snap) {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case snap, ok := <-ch:
			if !ok || !send(snap) {
				return
			}
		}
	}
}

// CamerasResponse lists the probed devices.
type CamerasResponse struct {
	Cameras []int `json:"cameras"`
	Current int   `json:"current"`
}

// ListCameras returns the device indices that can be opened.
func (h *LiveHandler) ListCameras(w http.ResponseWriter, r *http.Request) {
	resp := CamerasResponse{Cameras: []int{}, Current: -1}
	if h.cameras != nil {
		if found := h.cameras(); found != nil {
			resp.Cameras = found
		}
	}
	if snap, ok := h.hub.Latest(); ok {
		resp.Current = snap.Camera
	}
	respondJSON(w, http.StatusOK, resp)
}

// SwitchCameraRequest selects a device.
type SwitchCameraRequest struct {
	Index *int `json:"index"`
}

// SwitchCamera moves the live session to another device.
func (h *LiveHandler) SwitchCamera(w http.ResponseWriter, r *http.Request) {
	var req SwitchCameraRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil || *req.Index < 0 {
		respondError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}
	if h.switcher == nil {
		respondError(w, http.StatusConflict, "camera switching not available")
		return
	}

	if err := h.switcher.SwitchCamera(r.Context(), *req.Index); err != nil {
		switch {
		case errors.Is(err, live.ErrNoSwitching):
			respondError(w, http.StatusConflict, "camera switching not available")
		case errors.Is(err, live.ErrNotRunning):
			respondError(w, http.StatusServiceUnavailable, "live session is not running")
		default:
			h.logger.Error("camera switch failed", "index", *req.Index, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to switch camera")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"index": *req.Index})
}
