package recommend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type keywordRequest struct {
	Keyword json.RawMessage `json:"keyword"`
}

// keyword accepts either a JSON array of keywords or a plain string.
func (req keywordRequest) keyword() (string, error) {
	if len(req.Keyword) == 0 {
		return "", errors.New("keyword is required")
	}
	var list []string
	if err := json.Unmarshal(req.Keyword, &list); err == nil {
		return JoinKeywords(list), nil
	}
	var single string
	if err := json.Unmarshal(req.Keyword, &single); err == nil {
		return single, nil
	}
	return "", errors.New("keyword must be a string or an array of strings")
}

// Recommend returns the handler for one keyword-driven mode.
func (h *Handler) Recommend(mode Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keywordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		keyword, err := req.keyword()
		if err != nil {
			h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		h.respond(w, r, mode, keyword)
	}
}

// Date handles the slot-driven date-course mode.
func (h *Handler) Date(w http.ResponseWriter, r *http.Request) {
	var slots DateSlots
	if err := json.NewDecoder(r.Body).Decode(&slots); err != nil {
		h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if slots.Time == "" || slots.Location == "" || slots.Mood == "" {
		h.writeError(r, w, "VALIDATION_ERROR", "time, location and mood are required", http.StatusBadRequest)
		return
	}
	h.respond(w, r, ModeDate, slots.UserTurn())
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, mode Mode, keyword string) {
	result, err := h.service.Recommend(r.Context(), mode, keyword)
	if err != nil {
		slog.ErrorContext(r.Context(), "recommendation failed", "mode", mode, "error", err)
		var completionErr *clova.CompletionError
		if errors.As(err, &completionErr) {
			h.writeError(r, w, "COMPLETION_FAILED", err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeError(r, w, "RECOMMENDATION_FAILED", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
