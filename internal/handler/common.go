package handler

import (
	"encoding/json"
	"net/http"

	"slideshow/internal/dto"
	"slideshow/internal/logger"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	writeJSON(w, status, dto.Response{Success: false, Message: message}, logger)
}
