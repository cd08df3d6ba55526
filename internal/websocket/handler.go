package websocket

import (
	"net/http"

	"vatelanka-driver/internal/middleware"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The agent only listens for the in-cab device and the local UI
		return true
	},
}

// HandleWebSocket upgrades an authenticated request to a device or UI connection.
// The token comes from the query string since browsers cannot set headers here.
func HandleWebSocket(hub *Hub, auth *middleware.JWTAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userClaims middleware.UserClaims

		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			claims, err := auth.Parse(tokenString)
			if err != nil {
				hub.log.Warn("❌ Invalid token in query parameter", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userClaims = claims
		} else {
			var ok bool
			userClaims, ok = middleware.GetUserFromContext(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		role := r.URL.Query().Get("role")
		switch role {
		case "":
			role = RoleUI
		case RoleUI, RoleDevice:
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Error("❌ WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(userClaims.UserID, role, conn, hub)
		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
