package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/flushwatch/pkg/filecache"
	"github.com/marmos91/flushwatch/pkg/flusher"
)

// FileStatter reports write-side statistics of a cache. *filecache.Cache
// implements it.
type FileStatter interface {
	Stats() filecache.Stats
}

// CacheResponse describes one scheduled cache.
type CacheResponse struct {
	ID            string     `json:"id"`
	FlushInterval string     `json:"flush_interval"`
	QueueEmpty    bool       `json:"queue_empty"`
	DueForSync    bool       `json:"due_for_sync"`
	InFlight      bool       `json:"in_flight"`
	LastDispatch  *time.Time `json:"last_dispatch,omitempty"`
	Dispatches    uint64     `json:"dispatches"`
	Failures      uint64     `json:"failures"`
	Skipped       uint64     `json:"skipped"`
	LastError     string     `json:"last_error,omitempty"`

	// Populated when file statistics are available.
	Path           string     `json:"path,omitempty"`
	BytesWritten   int64      `json:"bytes_written,omitempty"`
	Pending        int64      `json:"pending,omitempty"`
	ForcedSyncs    uint64     `json:"forced_syncs,omitempty"`
	ThresholdSyncs uint64     `json:"threshold_syncs,omitempty"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
}

// SchedulerResponse is the body of GET /caches.
type SchedulerResponse struct {
	Running      bool            `json:"running"`
	ScanInterval string          `json:"scan_interval"`
	Workers      int             `json:"workers"`
	Pending      int             `json:"pending"`
	Completed    int             `json:"completed"`
	Fatal        string          `json:"fatal,omitempty"`
	Caches       []CacheResponse `json:"caches"`
}

// CachesHandler serves the scheduler and per-cache status.
type CachesHandler struct {
	scheduler StatusProvider
	files     map[string]FileStatter
}

// NewCachesHandler creates a caches handler. files are matched to
// scheduler entries by cache ID.
func NewCachesHandler(scheduler StatusProvider, files ...FileStatter) *CachesHandler {
	h := &CachesHandler{scheduler: scheduler, files: make(map[string]FileStatter, len(files))}
	for _, f := range files {
		h.files[f.Stats().ID] = f
	}
	return h
}

// List handles GET /caches.
func (h *CachesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		ServiceUnavailable(w, "scheduler not initialized")
		return
	}

	writeJSON(w, http.StatusOK, okResponse(h.schedulerResponse(h.scheduler.Status())))
}

// Get handles GET /caches/{id}.
func (h *CachesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		ServiceUnavailable(w, "scheduler not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	for _, cs := range h.scheduler.Status().Caches {
		if cs.ID == id {
			writeJSON(w, http.StatusOK, okResponse(h.cacheResponse(cs)))
			return
		}
	}
	NotFound(w, "cache not found")
}

func (h *CachesHandler) schedulerResponse(s flusher.Status) SchedulerResponse {
	resp := SchedulerResponse{
		Running:      s.Running,
		ScanInterval: s.ScanInterval.String(),
		Workers:      s.Workers,
		Pending:      s.Pending,
		Completed:    s.Completed,
		Fatal:        s.Fatal,
		Caches:       make([]CacheResponse, 0, len(s.Caches)),
	}
	for _, cs := range s.Caches {
		resp.Caches = append(resp.Caches, h.cacheResponse(cs))
	}
	return resp
}

func (h *CachesHandler) cacheResponse(cs flusher.CacheStatus) CacheResponse {
	resp := CacheResponse{
		ID:            cs.ID,
		FlushInterval: cs.FlushInterval.String(),
		QueueEmpty:    cs.QueueEmpty,
		DueForSync:    cs.DueForSync,
		InFlight:      cs.InFlight,
		LastDispatch:  timePtr(cs.LastDispatch),
		Dispatches:    cs.Dispatches,
		Failures:      cs.Failures,
		Skipped:       cs.Skipped,
		LastError:     cs.LastError,
	}

	if f, ok := h.files[cs.ID]; ok {
		st := f.Stats()
		resp.Path = st.Path
		resp.BytesWritten = st.BytesWritten
		resp.Pending = st.Pending
		resp.ForcedSyncs = st.ForcedSyncs
		resp.ThresholdSyncs = st.ThresholdSyncs
		resp.LastSync = timePtr(st.LastSync)
	}
	return resp
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
