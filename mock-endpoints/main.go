package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
)

var requestCount atomic.Int64

// The last three digits of the webhook id pick the behavior:
// 404 unknown webhook, 500 server error, 003 slow (3s), anything else OK.
func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	r := chi.NewRouter()
	r.Get("/api/webhooks/{id}/{token}", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		id := chi.URLParam(r, "id")
		if status, ok := failure(id); ok {
			logRequest(r, count, status, "")
			writeJSON(w, status, map[string]any{"message": http.StatusText(status), "code": 0})
			return
		}

		logRequest(r, count, http.StatusOK, "")
		writeJSON(w, http.StatusOK, discordgo.Webhook{
			ID:        id,
			Type:      discordgo.WebhookTypeIncoming,
			Name:      "mock log",
			ChannelID: "100000000000000001",
			Token:     chi.URLParam(r, "token"),
		})
	})

	r.Post("/api/webhooks/{id}/{token}", func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		id := chi.URLParam(r, "id")
		if strings.HasSuffix(id, "003") {
			time.Sleep(3 * time.Second)
		}

		var params discordgo.WebhookParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			logRequest(r, count, http.StatusBadRequest, "")
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Cannot send an empty message", "code": 50006})
			return
		}

		title := ""
		if len(params.Embeds) > 0 {
			title = params.Embeds[0].Title + " / " + params.Embeds[0].Description
		}
		if status, ok := failure(id); ok {
			logRequest(r, count, status, title)
			writeJSON(w, status, map[string]any{"message": http.StatusText(status), "code": 0})
			return
		}

		logRequest(r, count, http.StatusOK, title)
		writeJSON(w, http.StatusOK, discordgo.Message{
			ID:        fmt.Sprintf("%d", 200000000000000000+count),
			ChannelID: "100000000000000001",
			Embeds:    params.Embeds,
		})
	})

	// Stats endpoint shows the request count
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"total_requests": requestCount.Load()})
	})

	log.Printf("Mock webhook server starting on :%s", port)
	log.Printf("  GET|POST /api/webhooks/{id}/{token}  -> 200 OK")
	log.Printf("  ids ending in 404                    -> 404 Unknown Webhook")
	log.Printf("  ids ending in 500                    -> 500 Error")
	log.Printf("  ids ending in 003                    -> 200 OK (3s delay on POST)")
	log.Printf("  GET  /stats                          -> request count")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func failure(id string) (int, bool) {
	switch {
	case strings.HasSuffix(id, "404"):
		return http.StatusNotFound, true
	case strings.HasSuffix(id, "500"):
		return http.StatusInternalServerError, true
	}
	return 0, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func logRequest(r *http.Request, count int64, status int, card string) {
	fmt.Printf("[#%d] %s %s -> %d | card=%s\n",
		count,
		r.Method,
		redactToken(r.URL.Path),
		status,
		truncate(card, 48),
	)
}

func redactToken(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i] + "/****"
	}
	return path
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
