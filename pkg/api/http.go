package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"otterseal/pkg/rooms"
	"otterseal/pkg/store"
)

// Handler returns the HTTP surface:
//   - POST /api/notes/{id}          create or overwrite a note
//   - GET  /api/notes/{id}          full read (?peek=1 for metadata only)
//   - GET  /ws?id={id}              room websocket
//   - GET  /healthz, /readyz        probes
//
// The server stores and returns ciphertext envelopes only; ids are
// derived hashes and carry no meaning here.
func Handler(hub *rooms.Hub, version string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyzHandler(version)).Methods(http.MethodGet)
	r.HandleFunc("/api/notes/{id}", getNote).Methods(http.MethodGet)
	r.HandleFunc("/api/notes/{id}", createNote).Methods(http.MethodPost, http.MethodPut)
	r.HandleFunc("/ws", serveWS(hub)).Methods(http.MethodGet)
	return r
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyzHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"not ready"}`))
			return
		}
		if version == "" {
			version = "dev"
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + version + `"}`))
	}
}
