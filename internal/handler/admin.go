package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"slideshow/internal/dto"
	"slideshow/internal/logger"
	"slideshow/internal/service"
)

// TestHandler lets companion devices check that the service is reachable.
func TestHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.Response{Success: true}, logger)
	}
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// FolderHandler moves the service to another image folder, opening or creating
// the catalog stored there.
func FolderHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.FolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
			writeFailure(w, http.StatusBadRequest, "Field path is required", logger)
			return
		}

		if err := manager.Relocate(r.Context(), req.Path, req.DatabaseName); err != nil {
			logger.Error("Folder change to %s failed: %v", req.Path, err)
			writeFailure(w, http.StatusInternalServerError, err.Error(), logger)
			return
		}

		logger.Info("Image folder changed to %s", req.Path)
		writeJSON(w, http.StatusOK, dto.Response{Success: true}, logger)
	}
}
