package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"lumen/internal/overlay"
	"lumen/internal/pipeline"
	"lumen/internal/scanner"
	"lumen/internal/ws"
)

// healthProber reports whether the recognition service is reachable and has
// its model loaded.
type healthProber interface {
	IsHealthy(ctx context.Context) bool
}

// newRouter builds the status and control surface. All business logic lives
// behind the scanner and pipeline; these handlers are thin glue.
func newRouter(scan *scanner.Scanner, admission *pipeline.AdmissionPipeline, stats *pipeline.Stats, hub *ws.DetectionHub, prober healthProber, logger *log.Logger) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status":  "ok",
			"running": scan.Running(),
			"gating":  admission.Enabled(),
			"service": prober.IsHealthy(r.Context()),
			"clients": hub.ClientCount(),
		})
	}).Methods("GET")

	r.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stats.Snapshot())
	}).Methods("GET")

	r.HandleFunc("/stats/reset", func(w http.ResponseWriter, r *http.Request) {
		stats.Reset()
		writeJSON(w, stats.Snapshot())
	}).Methods("POST")

	r.HandleFunc("/detections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"detections": scan.Detections(),
			"status":     scan.Status(),
		})
	}).Methods("GET")

	r.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		frame := scan.LastFrame()
		if len(frame) == 0 {
			http.Error(w, "no frame available", http.StatusNotFound)
			return
		}
		annotated := overlay.Annotate(frame, scan.Detections())
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(annotated)
	}).Methods("GET")

	// Visibility signal from the controlling page.
	r.HandleFunc("/pause", func(w http.ResponseWriter, r *http.Request) {
		scan.Pause()
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")

	r.HandleFunc("/resume", func(w http.ResponseWriter, r *http.Request) {
		scan.Resume()
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")

	r.HandleFunc("/gating", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		admission.SetEnabled(body.Enabled)
		w.WriteHeader(http.StatusNoContent)
	}).Methods("POST")

	r.Handle("/ws/detections", ws.NewHandler(hub, logger)).Methods("GET")

	return r
}

// handleHTTPServer starts the HTTP server and shuts it down when the context
// is cancelled.
func handleHTTPServer(ctx context.Context, addr string, scan *scanner.Scanner, admission *pipeline.AdmissionPipeline, stats *pipeline.Stats, hub *ws.DetectionHub, prober healthProber, wg *sync.WaitGroup, errc chan error, logger *log.Logger) {
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(scan, admission, stats, hub, prober, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			logger.Printf("HTTP server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
		}()

		<-ctx.Done()
		logger.Printf("shutting down HTTP server at %s", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
