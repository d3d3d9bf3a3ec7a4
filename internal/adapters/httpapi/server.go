// Package httpapi is the front door: it validates payload shape, applies
// CORS and rate limiting, and maps bridge outcomes onto HTTP statuses. All
// request semantics live in the bridge package.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecotrack/go-bridge/internal/bridge"
	"ecotrack/go-bridge/internal/platform/ratelimiter"
	"ecotrack/go-bridge/pkg/models"
)

const (
	DefaultHTTPAddr = "0.0.0.0:8000"

	serviceVersion = "1.0.0"
)

// BridgeInfo is the static context reported by health and debug endpoints.
type BridgeInfo struct {
	BridgeAddress string
	TargetAgent   string
	MailboxPort   int
	Transport     string
}

type Server struct {
	httpServer *http.Server
	bridge     *bridge.Bridge
	info       BridgeInfo
	limiter    *ratelimiter.ClientLimiter
}

func NewServer(addr string, b *bridge.Bridge, info BridgeInfo, limiter *ratelimiter.ClientLimiter) *Server {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		bridge:  b,
		info:    info,
		limiter: limiter,
	}
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/debug/bridge", s.handleDebugBridge)
	mux.HandleFunc("/co2/savings", s.handleSavings)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "EcoTrack Bridge active",
		"version":      serviceVersion,
		"bridge_agent": s.info.BridgeAddress,
		"target_agent": s.info.TargetAgent,
		"endpoints":    []string{"/", "/health", "/co2/savings"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"ts":             time.Now().Unix(),
		"bridge_address": s.info.BridgeAddress,
		"target_agent":   s.info.TargetAgent,
		"mailbox":        "enabled",
	})
}

func (s *Server) handleDebugBridge(w http.ResponseWriter, r *http.Request) {
	applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remote_agent": s.info.TargetAgent,
		"mailbox_port": s.info.MailboxPort,
		"transport":    s.info.Transport,
		"ready":        s.bridge.Ready(),
		"queue_depth":  s.bridge.QueueDepth(),
		"pending":      s.bridge.PendingCount(),
	})
}

type savingsRequest struct {
	UserID     *string  `json:"user_id"`
	Action     *string  `json:"action"`
	DistanceKm *float64 `json:"distance_km"`
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.limiter.Allow(clientKey(r), time.Now()) {
		writeErrorBody(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests from this client")
		return
	}

	var payload savingsRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&payload); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	missing := make([]string, 0, 2)
	if payload.UserID == nil || strings.TrimSpace(*payload.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if payload.Action == nil || strings.TrimSpace(*payload.Action) == "" {
		missing = append(missing, "action")
	}
	if len(missing) > 0 {
		writeErrorBody(w, http.StatusUnprocessableEntity, "MISSING_FIELD",
			"missing required field(s): "+strings.Join(missing, ", "))
		return
	}

	req := models.Co2Request{
		UserID:     strings.TrimSpace(*payload.UserID),
		Action:     *payload.Action,
		DistanceKm: payload.DistanceKm,
	}
	reply, err := s.bridge.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      req.UserID,
		"action":       models.NormalizeAction(req.Action),
		"co2_saved_kg": reply.Co2SavedKg,
		"message":      reply.Message,
		"agent_meta": map[string]any{
			"engine":       reply.Engine,
			"bridge_agent": s.info.BridgeAddress,
			"target_agent": s.info.TargetAgent,
			"timestamp":    time.Now().Unix(),
		},
	})
}

// applyCORS mirrors the permissive development policy of the client app:
// any origin may call the bridge.
func applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

func clientKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, err error) {
	status := bridge.HTTPStatus(err)
	kind := bridge.Kind(err)
	slog.Warn("request failed", "error", kind, "status", status, "reason", err.Error())
	writeErrorBody(w, status, kind, err.Error())
}

func writeErrorBody(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"details": details,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
