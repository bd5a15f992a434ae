package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"slideshow/internal/config"
	"slideshow/internal/dto"
	"slideshow/internal/logger"
	"slideshow/internal/service"
	"slideshow/internal/service/ingest"
)

const unknownOrigin = "Unknown"

// UploadHandler admits a base64 image sent by a companion device. Re-sent
// submissions with a known uuid are acknowledged without a second record.
func UploadHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.GetMaxUploadBytes())

		var req dto.UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warning("Malformed upload body: %v", err)
			writeJSON(w, http.StatusBadRequest, dto.Response{Success: false}, logger)
			return
		}

		data, err := decodeImage(req.Image)
		if err != nil {
			logger.Warning("Upload %s carries invalid base64: %v", req.UUID, err)
			writeJSON(w, http.StatusBadRequest, dto.Response{Success: false}, logger)
			return
		}

		origin := strings.TrimSpace(req.Name)
		if origin == "" {
			origin = unknownOrigin
		}

		if _, err := manager.GetAdmitter().Admit(r.Context(), req.UUID, data, origin); err != nil {
			if errors.Is(err, ingest.ErrInvalidPayload) {
				logger.Warning("Rejected upload %s: %v", req.UUID, err)
				writeJSON(w, http.StatusBadRequest, dto.Response{Success: false}, logger)
				return
			}
			writeFailure(w, http.StatusInternalServerError, "Unable to store image", logger)
			return
		}

		writeJSON(w, http.StatusOK, dto.Response{Success: true}, logger)
	}
}

// decodeImage accepts standard base64 with or without line breaks.
func decodeImage(encoded string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	return base64.StdEncoding.DecodeString(cleaned)
}
