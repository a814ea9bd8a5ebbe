package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SynthLedger/internal/event"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/persistence"
	"SynthLedger/internal/projection"
	"SynthLedger/internal/query"
)

// HTTPServer is the JSON API: event submission, read queries, admin
// operations, health probes and Prometheus metrics. Submitted events
// go through the same parse-and-queue path as NATS ingestion.
type HTTPServer struct {
	addr          string
	eventChan     chan<- event.Event
	queryService  *query.Service
	snapshotMgr   *persistence.SnapshotManager
	db            *sql.DB
	healthChecker *observability.HealthChecker
	httpServer    *http.Server
}

func NewHTTPServer(
	addr string,
	eventChan chan<- event.Event,
	queryService *query.Service,
	snapshotMgr *persistence.SnapshotManager,
	db *sql.DB,
	healthChecker *observability.HealthChecker,
) *HTTPServer {
	return &HTTPServer{
		addr:          addr,
		eventChan:     eventChan,
		queryService:  queryService,
		snapshotMgr:   snapshotMgr,
		db:            db,
		healthChecker: healthChecker,
	}
}

// Start serves until ctx is cancelled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/events/{type}", s.handleSubmitEvent)

	mux.HandleFunc("GET /v1/balances/{user_id}", s.handleGetBalance)
	mux.HandleFunc("GET /v1/settlements", s.handleGetSettlements)
	mux.HandleFunc("GET /v1/journal", s.handleGetJournal)
	mux.HandleFunc("GET /v1/events", s.handleGetEvents)

	mux.HandleFunc("GET /v1/admin/integrity", s.handleVerifyIntegrity)
	mux.HandleFunc("POST /v1/admin/rebuild-projections", s.handleRebuildProjections)
	mux.HandleFunc("GET /v1/admin/event-log", s.handleEventLogInfo)

	mux.HandleFunc("GET /healthz", s.healthChecker.LivenessHandler)
	mux.HandleFunc("GET /readyz", s.healthChecker.ReadinessHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleSubmitEvent accepts a JSON event payload and queues it for the
// core. The path parameter names the event type, e.g.
// POST /v1/events/OrderSubmit.
func (s *HTTPServer) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	eventType := r.PathValue("type")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}

	raw := ingestion.RawEvent{
		Subject:   r.URL.Path,
		Data:      body,
		Timestamp: time.Now(),
	}

	evt, err := ingestion.ParseRawEvent(raw, eventType)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse event: %v", err))
		return
	}

	select {
	case s.eventChan <- evt:
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"accepted":        true,
			"event_type":      eventType,
			"idempotency_key": evt.IdempotencyKey(),
		})
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	}
}

func (s *HTTPServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid user_id: %v", err))
		return
	}

	bal, err := s.queryService.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get balance: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, bal)
}

func (s *HTTPServer) handleGetSettlements(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var marketID *string
	if m := r.URL.Query().Get("market_id"); m != "" {
		marketID = &m
	}

	limit := queryInt(r, "limit", 50, 500)
	before := queryCursor(r, "before")

	history, err := s.queryService.GetSettlementHistory(r.Context(), userID, marketID, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get settlements: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"settlements": history})
}

func (s *HTTPServer) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := queryInt(r, "limit", 100, 500)
	before := queryCursor(r, "before")

	entries, err := s.queryService.GetJournalHistory(r.Context(), userID, limit, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get journal: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"journals": entries})
}

func (s *HTTPServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	limit := queryInt(r, "limit", 100, 1000)

	events, err := s.queryService.GetEvents(r.Context(), from, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get events: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *HTTPServer) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.queryService.VerifyIntegrity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("verify integrity: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleRebuildProjections(w http.ResponseWriter, r *http.Request) {
	if err := projection.Rebuild(r.Context(), s.db); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("rebuild failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rebuilt": true})
}

func (s *HTTPServer) handleEventLogInfo(w http.ResponseWriter, r *http.Request) {
	latestSeq, err := s.snapshotMgr.GetLatestSequence(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get latest sequence: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"last_sequence": latestSeq})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func queryCursor(r *http.Request, name string) *int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
