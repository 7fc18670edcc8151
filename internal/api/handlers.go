// Package api exposes HTTP handlers for the challenge sync service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"example.com/challengesync/internal/auth"
	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/events"
	"example.com/challengesync/internal/standings"
)

// Handler coordinates HTTP requests with the sync pipeline.
type Handler struct {
	service   *domain.SyncService
	standings *standings.Service
	logger    *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.SyncService, standingsSvc *standings.Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[api] ", log.LstdFlags)
	}
	return &Handler{service: service, standings: standingsSvc, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/health-data/sync", h.syncHealthData)
	mux.HandleFunc("/v1/challenges/", h.challengeSubresource)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) syncHealthData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeHealthWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope health:write required")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	candidates := make([]domain.SampleCandidate, 0, len(req.Samples))
	for _, record := range req.Samples {
		candidates = append(candidates, record.Candidate())
	}

	result, err := h.service.Sync(r.Context(), req.UserID, candidates)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	// Derived-standings failures do not affect the ingestion outcome.
	if result.ReconcileErr != nil {
		h.logger.Printf("sync completed with reconciliation errors (user=%s): %v", req.UserID, result.ReconcileErr)
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		RecordsAdded:   result.RecordsAdded,
		RecordsSkipped: result.RecordsSkipped,
	})
}

func (h *Handler) challengeSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] != "standings" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	h.challengeStandings(w, r, parts[0])
}

func (h *Handler) challengeStandings(w http.ResponseWriter, r *http.Request, challengeID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeChallengesRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope challenges:read required")
		return
	}

	totals, err := h.standings.Leaderboard(r.Context(), challengeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	entries := make([]StandingsEntry, 0, len(totals))
	for i, t := range totals {
		entries = append(entries, StandingsEntry{
			Rank:             i + 1,
			UserID:           t.UserID,
			TotalSteps:       t.TotalSteps,
			TotalMiles:       t.TotalMiles,
			TotalDuration:    t.TotalDuration,
			ActivityCount:    t.ActivityCount,
			LastActivityDate: t.LastActivityDate,
		})
	}

	writeJSON(w, http.StatusOK, StandingsResponse{
		ChallengeID: challengeID,
		Entries:     entries,
	})
}

// SyncRequest is the payload for POST /v1/health-data/sync.
type SyncRequest struct {
	UserID  string                `json:"user_id"`
	Samples []events.SampleRecord `json:"samples"`
}

// Validate ensures request correctness. Per-sample validation happens in
// the normalizer, where bad records are counted rather than rejected.
func (r SyncRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if r.Samples == nil {
		return errors.New("samples is required")
	}
	return nil
}

// SyncResponse describes the response body for the sync endpoint.
type SyncResponse struct {
	RecordsAdded   int `json:"records_added"`
	RecordsSkipped int `json:"records_skipped"`
}

// StandingsEntry is one leaderboard row.
type StandingsEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"user_id"`
	TotalSteps       int     `json:"total_steps"`
	TotalMiles       float64 `json:"total_miles"`
	TotalDuration    int     `json:"total_duration"`
	ActivityCount    int     `json:"activity_count"`
	LastActivityDate *string `json:"last_activity_date,omitempty"`
}

// StandingsResponse packages a challenge leaderboard.
type StandingsResponse struct {
	ChallengeID string           `json:"challenge_id"`
	Entries     []StandingsEntry `json:"entries"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
