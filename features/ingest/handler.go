package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Trigger returns the handler for one domain's ingestion endpoint. The run
// is synchronous; the response carries the run report.
func (h *Handler) Trigger(domain Domain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.service.Run(r.Context(), domain)
		if err != nil {
			slog.ErrorContext(r.Context(), "ingestion failed", "domain", domain, "error", err)
			writeError(w, "INGESTION_FAILED", err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]any{
			"message": "데이터가 성공적으로 임베딩되었습니다.",
			"report":  report,
		}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
