package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"slideshow/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// ShowLogsHandler serves the log file for the {level} path variable as text/plain.
func ShowLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[mux.Vars(r)["level"]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveLogFile(w, r, log.Dir(), filename)
	}
}

// ClearLogsHandler truncates the log file for the {level} path variable.
func ClearLogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[mux.Vars(r)["level"]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			http.Error(w, "Unable to clear log", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); logDir == "" || os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}
