// Package health serves HTTP health and readiness checks for a running
// pool: liveness never touches the database, readiness pings it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/polaris-dbpool/dbpool/internal/poolcore"
)

// Status is the coarse health verdict reported in a Report.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Report is the JSON body served by /readyz.
type Report struct {
	Status    Status    `json:"status"`
	Pool      string    `json:"pool"`
	Live      int       `json:"live"`
	Idle      int       `json:"idle"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Checker probes a Pool's readiness by acquiring and pinging a session.
type Checker struct {
	pool *poolcore.Pool
}

// NewChecker builds a Checker for p.
func NewChecker(p *poolcore.Pool) *Checker {
	return &Checker{pool: p}
}

// Check acquires a session, pings it, and releases it, reporting the
// pool's current occupancy alongside the verdict.
func (c *Checker) Check(ctx context.Context) Report {
	stats := c.pool.Stats()
	report := Report{
		Status:    StatusHealthy,
		Pool:      stats.Name,
		Live:      stats.Live,
		Idle:      stats.Idle,
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	h, err := c.pool.Acquire(ctx)
	if err != nil {
		report.Status = StatusUnhealthy
		report.Message = fmt.Sprintf("acquire failed: %v", err)
		return report
	}
	defer h.Close()

	if err := h.Ping(ctx); err != nil {
		report.Status = StatusUnhealthy
		report.Message = fmt.Sprintf("ping failed: %v", err)
		return report
	}

	report.Message = "ok"
	return report
}

// ServeHTTP starts an HTTP server exposing /healthz (liveness, never
// touches the pool) and /readyz (readiness, runs Check). The caller owns
// the returned server's lifetime and must Shutdown it.
func (c *Checker) ServeHTTP(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		report := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[health] HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[health] HTTP server error: %v", err)
		}
	}()

	return server
}
