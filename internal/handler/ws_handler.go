/*
Package handler provides the HTTP handlers and routing setup for the Messenger Server.

This file contains the HandleWebSocket function, which is responsible for rate
limiting, upgrading the HTTP connection to WebSocket, and starting the session
read/write loops.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"messenger/internal/app/chat"
	"messenger/internal/pkg/limiter"
	"messenger/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := chat.NewSession(deps.Chat, conn)

		go session.WritePump()

		logx.Info("WebSocket connection established", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))

		session.ReadPump()
	}
}
