package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/pipeline"
)

const maxFrameBody = 8 << 20

type handler struct {
	deps Deps
	log  *zap.Logger
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// competition resolves the path parameter, answering 404 for names that
// are not configured.
func (h *handler) competition(w http.ResponseWriter, r *http.Request) (string, bool) {
	comp := chi.URLParam(r, "competition")
	if len(h.deps.Competitions) > 0 && !slices.Contains(h.deps.Competitions, comp) {
		respondError(w, http.StatusNotFound, "unknown competition "+strconv.Quote(comp), nil)
		return "", false
	}
	return comp, true
}

func (h *handler) listMappings(w http.ResponseWriter, r *http.Request) {
	comp, ok := h.competition(w, r)
	if !ok {
		return
	}

	switch model.MappingKind(chi.URLParam(r, "kind")) {
	case model.MappingKindTeam:
		out, err := h.deps.Store.ListTeamMappings(r.Context(), comp)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list team mappings", err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(out))
	case model.MappingKindMatch:
		out, err := h.deps.Store.ListMatchMappings(r.Context(), comp)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "list match mappings", err)
			return
		}
		respondJSON(w, http.StatusOK, nonNil(out))
	default:
		respondError(w, http.StatusBadRequest, "kind must be team or match", nil)
	}
}

func (h *handler) listMatches(w http.ResponseWriter, r *http.Request) {
	comp, ok := h.competition(w, r)
	if !ok {
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	out, err := h.deps.Store.ListMatches(r.Context(), comp, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list matches", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(out))
}

func (h *handler) pushFrames(w http.ResponseWriter, r *http.Request) {
	if h.deps.Frames == nil {
		respondError(w, http.StatusServiceUnavailable, "frame ingest is disabled", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "read body", err)
		return
	}
	frames, err := decodeFrames(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid frames", err)
		return
	}
	if err := h.deps.Frames.Push(frames...); err != nil {
		respondError(w, http.StatusBadRequest, "rejected frames", err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]int{"accepted": len(frames)})
}

// decodeFrames accepts either a JSON array of frames or a single frame.
func decodeFrames(body []byte) ([]model.Frame, error) {
	var frames []model.Frame
	if err := json.Unmarshal(body, &frames); err == nil {
		return frames, nil
	}
	var one model.Frame
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return []model.Frame{one}, nil
}

func (h *handler) reconcile(w http.ResponseWriter, r *http.Request) {
	comp, ok := h.competition(w, r)
	if !ok {
		return
	}
	if h.deps.Reconciler == nil {
		respondError(w, http.StatusServiceUnavailable, "reconcile is disabled", nil)
		return
	}

	res, err := h.deps.Reconciler.RunCompetition(r.Context(), comp)
	if err != nil && !errors.Is(err, pipeline.ErrNoNoisyData) {
		h.log.Error("on-demand reconcile failed", zap.String("competition", comp), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "reconcile failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message, "status": status}
	if err != nil {
		body["details"] = err.Error()
	}
	respondJSON(w, status, body)
}
