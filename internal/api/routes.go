package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/chatlog-relay/internal/domain"
	"github.com/Priya8975/chatlog-relay/internal/routing"
)

// RouteView is a routing entry with its webhook token masked.
type RouteView struct {
	SourceChannelID string `json:"source_channel_id"`
	LogChannelID    string `json:"log_channel_id"`
	Webhook         string `json:"webhook"`
}

type RouteHandler struct {
	routes *routing.Table
	redact func(string) string
}

func NewRouteHandler(routes *routing.Table, redact func(string) string) *RouteHandler {
	if redact == nil {
		redact = func(string) string { return "<redacted>" }
	}
	return &RouteHandler{routes: routes, redact: redact}
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.routes.List()
	views := make([]RouteView, 0, len(entries))
	for _, e := range entries {
		views = append(views, h.view(e))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	entry, ok := h.routes.Lookup(channelID)
	if !ok {
		respondError(w, http.StatusNotFound, "no chat log for channel")
		return
	}
	respondJSON(w, http.StatusOK, h.view(entry))
}

func (h *RouteHandler) view(e domain.RoutingEntry) RouteView {
	return RouteView{
		SourceChannelID: e.SourceChannelID,
		LogChannelID:    e.LogChannelID,
		Webhook:         h.redact(e.WebhookURL),
	}
}
