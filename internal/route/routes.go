package route

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"slideshow/internal/config"
	"slideshow/internal/handler"
	"slideshow/internal/logger"
	"slideshow/internal/middleware"
	"slideshow/internal/service"
)

// traced wraps h in an otelhttp span named after the route.
func traced(name string, h http.HandlerFunc) http.Handler {
	return otelhttp.NewHandler(h, name)
}

// SetupRoutes registers the API, event stream, health and log endpoints and
// wraps the router with recovery and request logging.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no tracing needed)
	router.HandleFunc("/health", handler.HealthHandler).Methods(http.MethodGet)

	// API endpoints
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Handle("/test", traced("GET /api/v1/test", handler.TestHandler(logger))).Methods(http.MethodGet)
	api.Handle("/images", traced("GET /api/v1/images", handler.ListImagesHandler(manager, logger))).Methods(http.MethodGet)
	api.Handle("/images/upload", traced("POST /api/v1/images/upload", handler.UploadHandler(manager, cfg, logger))).Methods(http.MethodPost)
	api.Handle("/images/{uuid}", traced("GET /api/v1/images/{uuid}", handler.GetImageHandler(manager, logger))).Methods(http.MethodGet)
	api.Handle("/images/{uuid}/show", traced("PUT /api/v1/images/{uuid}/show", handler.SetShowHandler(manager, logger))).Methods(http.MethodPut)
	api.Handle("/next", traced("GET /api/v1/next", handler.NextImageHandler(manager, logger))).Methods(http.MethodGet)
	api.Handle("/settings/folder", traced("PUT /api/v1/settings/folder", handler.FolderHandler(manager, logger))).Methods(http.MethodPut)
	api.HandleFunc("/events", handler.EventsWebsocketHandler(manager, logger)).Methods(http.MethodGet)

	// Log endpoints
	router.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	router.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	router.Use(middleware.RecoveryMiddleware(logger), middleware.LoggingMiddleware(logger))

	return router
}
