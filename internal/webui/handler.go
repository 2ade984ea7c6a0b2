package webui

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/mzyy94/ulcscan/internal/keystore"
	"github.com/mzyy94/ulcscan/internal/scan"
)

//go:embed static
var staticFS embed.FS

type handler struct {
	eng   *scan.Engine
	store *keystore.Store // nil when persistence is disabled
	port  string
}

// NewHandler creates an HTTP handler for the scan status page.
func NewHandler(eng *scan.Engine, store *keystore.Store, port string) http.Handler {
	h := &handler{eng: eng, store: store, port: port}
	mux := http.NewServeMux()
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("POST /api/stop", h.handleStop)
	mux.HandleFunc("GET /api/keys", h.handleKeys)
	mux.Handle("GET /", http.FileServer(http.FS(staticContent)))
	return mux
}

type statusResponse struct {
	State      string  `json:"state"`
	Port       string  `json:"port"`
	UID        string  `json:"uid,omitempty"`
	CurrentKey string  `json:"currentKey"`
	Attempts   uint64  `json:"attempts"`
	Progress   float64 `json:"progress"`
	Rate       float64 `json:"rate"`
	FoundKey   string  `json:"foundKey,omitempty"`
	Error      string  `json:"error,omitempty"`
	UpdatedAt  string  `json:"updatedAt"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.Snapshot()
	resp := statusResponse{
		State:      snap.State.String(),
		Port:       h.port,
		CurrentKey: snap.Key.String(),
		Attempts:   snap.Attempts,
		Progress:   snap.Progress,
		Rate:       snap.Rate,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(snap.UID) > 0 {
		resp.UID = fmt.Sprintf("% X", snap.UID)
	}
	if snap.Found != nil {
		resp.FoundKey = snap.Found.String()
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.eng.Stop()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"state": "stopping"})
}

func (h *handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	records := []keystore.Record{}
	if h.store != nil {
		records = h.store.Records()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
