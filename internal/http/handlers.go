package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/processor"
	"github.com/mauv0809/pickup-ratings/internal/rating"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) RateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Failed to decode rate request", "error", err)
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.TenantID == "" || req.MatchID == 0 {
			writeError(w, http.StatusBadRequest, "tenant_id and match_id are required")
			return
		}
		outcomes := make([]pickup.Outcome, 0, len(req.Outcomes))
		for _, raw := range req.Outcomes {
			o, err := pickup.ParseOutcome(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			outcomes = append(outcomes, o)
		}

		result, err := s.Ratings.Rate(r.Context(), req.TenantID, req.MatchID, outcomes)
		if err != nil {
			writeRatingError(w, err, "tenantID", req.TenantID, "matchID", req.MatchID)
			return
		}
		log.Info("Rated match", "tenantID", req.TenantID, "matchID", req.MatchID, "recomputed", result.Recomputed)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) UnrateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req unrateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Failed to decode unrate request", "error", err)
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.TenantID == "" || req.MatchID == 0 {
			writeError(w, http.StatusBadRequest, "tenant_id and match_id are required")
			return
		}

		result, err := s.Ratings.Unrate(r.Context(), req.TenantID, req.MatchID)
		if err != nil {
			writeRatingError(w, err, "tenantID", req.TenantID, "matchID", req.MatchID)
			return
		}
		log.Info("Unrated match", "tenantID", req.TenantID, "matchID", req.MatchID, "recomputed", result.Recomputed)
		writeJSON(w, http.StatusOK, result)
	}
}

// SkillsHandler lists the current skills of a queue type, best ordinal first.
func (s *Server) SkillsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queueTypeID, err := strconv.ParseInt(r.URL.Query().Get("queue_type_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "queue_type_id must be an integer")
			return
		}

		qt, err := s.Store.GetQueueType(r.Context(), queueTypeID)
		if errors.Is(err, pickup.ErrQueueTypeNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			log.Error("Failed to get queue type", "error", err, "queueTypeID", queueTypeID)
			writeError(w, http.StatusInternalServerError, "failed to get queue type")
			return
		}

		skills, err := s.Store.ListPlayerSkills(r.Context(), queueTypeID)
		if err != nil {
			log.Error("Failed to list player skills", "error", err, "queueTypeID", queueTypeID)
			writeError(w, http.StatusInternalServerError, "failed to list skills")
			return
		}

		resp := skillsResponse{QueueType: qt, Skills: make([]skillEntry, 0, len(skills))}
		for i, ps := range skills {
			resp.Skills = append(resp.Skills, skillEntry{
				Rank:        i + 1,
				PlayerID:    ps.PlayerID,
				Name:        ps.PlayerName,
				Mu:          ps.Mu,
				Sigma:       ps.Sigma,
				Ordinal:     ps.Rating().Ordinal(),
				LastMatchID: ps.LastMatchID,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ReportsHandler records (POST) or lists (GET) the pending outcome reports of a match.
func (s *Server) ReportsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			matchID, err := strconv.ParseInt(r.URL.Query().Get("match_id"), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "match_id must be an integer")
				return
			}
			if _, err := s.Store.GetMatch(r.Context(), r.URL.Query().Get("tenant_id"), matchID); err != nil {
				writeRatingError(w, err, "matchID", matchID)
				return
			}
			reports, err := s.Store.ListRatingReports(r.Context(), matchID)
			if err != nil {
				log.Error("Failed to list rating reports", "error", err, "matchID", matchID)
				writeError(w, http.StatusInternalServerError, "failed to list reports")
				return
			}
			if reports == nil {
				reports = []pickup.RatingReport{}
			}
			writeJSON(w, http.StatusOK, reports)
			return
		}

		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		outcome, err := pickup.ParseOutcome(req.Outcome)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		match, err := s.Store.GetMatch(r.Context(), req.TenantID, req.MatchID)
		if err != nil {
			writeRatingError(w, err, "matchID", req.MatchID)
			return
		}
		if req.TeamIndex < 0 || req.TeamIndex >= len(match.Teams) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("team_index must be between 0 and %d", len(match.Teams)-1))
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would have recorded rating report", "matchID", req.MatchID, "reporter", req.ReporterID)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		report := &pickup.RatingReport{MatchID: match.ID, ReporterID: req.ReporterID, TeamIndex: req.TeamIndex, Outcome: outcome}
		if err := s.Store.AddRatingReport(r.Context(), report); err != nil {
			log.Error("Failed to add rating report", "error", err, "matchID", req.MatchID)
			writeError(w, http.StatusInternalServerError, "failed to add report")
			return
		}
		writeJSON(w, http.StatusCreated, report)
	}
}

// RatingsUpdatedHandler is the push endpoint of the ratings-updated subscription.
func (s *Server) RatingsUpdatedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read request body")
			return
		}
		log.Debug("Received ratings-updated message", "body", string(bodyBytes))

		var msg pushMessage
		if err := json.Unmarshal(bodyBytes, &msg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		rawData, err := base64.StdEncoding.DecodeString(msg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			writeError(w, http.StatusBadRequest, "invalid base64 data")
			return
		}

		if _, err := s.Processor.HandleRatingsUpdated(rawData, isDryRunFromContext(r)); err != nil {
			if errors.Is(err, processor.ErrInvalidMessage) {
				// Acknowledge so Pub/Sub does not redeliver a message that can never succeed.
				log.Warn("Dropping invalid ratings-updated message", "error", err, "messageID", msg.Message.MessageID)
				w.WriteHeader(http.StatusOK)
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to notify rating result")
			return
		}
		w.Write([]byte("OK"))
	}
}

// writeRatingError maps rating and store errors onto HTTP status codes.
func writeRatingError(w http.ResponseWriter, err error, keyvals ...any) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, rating.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, rating.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, rating.ErrCascadeLimitExceeded):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Error("Rating request failed", append([]any{"error", err}, keyvals...)...)
	} else {
		log.Warn("Rating request refused", append([]any{"error", err}, keyvals...)...)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}
