package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"slideshow/internal/logger"
	"slideshow/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler registers observers with the hub so they receive catalog
// change events. Incoming messages are read and discarded.
func EventsWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		manager.GetWebsocketService().Register(connection)
		defer manager.GetWebsocketService().Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Observer disconnected normally")
				} else {
					logger.Warning("Observer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
