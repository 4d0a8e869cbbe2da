package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the note lifecycle and the room broadcaster.
// Exposed on /metrics via promhttp in the server main.
var (
	NotesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_notes_created_total",
		Help: "Note create/update operations accepted.",
	})
	NotesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_notes_read_total",
		Help: "Full note reads served.",
	})
	NotesBurned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_notes_burned_total",
		Help: "Notes deleted by burn-after-reading.",
	})
	NotesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_notes_expired_total",
		Help: "Expired notes deleted lazily on access.",
	})
	NotesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_notes_swept_total",
		Help: "Expired notes deleted by the background sweeper.",
	})
	RoomsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "otterseal_rooms_open",
		Help: "Rooms with at least one live member.",
	})
	RoomMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "otterseal_room_members",
		Help: "Live room connections across all rooms.",
	})
	RoomUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otterseal_room_updates_total",
		Help: "Update frames persisted and broadcast.",
	})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "otterseal_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency and status for every handler it
// wraps. WebSocket upgrades pass through unrecorded since their lifetime
// is the connection, not the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
