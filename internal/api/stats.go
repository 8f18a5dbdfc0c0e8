package api

import (
	"net/http"

	"github.com/Priya8975/chatlog-relay/internal/routing"
)

type StatsResponse struct {
	Routes           int `json:"routes"`
	QueueDepth       int `json:"queue_depth"`
	WebSocketClients int `json:"websocket_clients"`
}

type StatsHandler struct {
	routes *routing.Table
	queue  Queue
	feed   Feed
}

func NewStatsHandler(routes *routing.Table, queue Queue, feed Feed) *StatsHandler {
	return &StatsHandler{routes: routes, queue: queue, feed: feed}
}

// Stats returns a point-in-time summary of the relay.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Routes: h.routes.Len()}
	if h.queue != nil {
		resp.QueueDepth = h.queue.Pending()
	}
	if h.feed != nil {
		resp.WebSocketClients = h.feed.ClientCount()
	}
	respondJSON(w, http.StatusOK, resp)
}
