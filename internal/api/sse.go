package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ajakab/perch/internal/notify"
)

// sseBuffer bounds per-client queueing; pointer telemetry at 60 Hz
// overruns a slow client quickly, and dropped samples are acceptable.
const sseBuffer = 256

// NotificationBus is the subscription side the SSE handler bridges.
type NotificationBus interface {
	Subscribe(buffer int, topics ...string) (<-chan notify.Notification, func())
}

// handleNotifications streams bus notifications as server-sent events.
// An optional ?topics=a,b query narrows the subscription.
func handleNotifications(bus NotificationBus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		var topics []string
		if raw := r.URL.Query().Get("topics"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					topics = append(topics, t)
				}
			}
		}

		ch, cancel := bus.Subscribe(sseBuffer, topics...)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case n, open := <-ch:
				if !open {
					return
				}
				data, err := json.Marshal(n.Payload)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Topic, data)
				flusher.Flush()
			}
		}
	}
}
