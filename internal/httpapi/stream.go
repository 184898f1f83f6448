package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
)

// streamListings serves the live feed of freshly published listings over
// Server-Sent Events. Each publish arrives as one `data:` line of JSON;
// subscribers that fall behind are dropped by the fan-out rather than
// slowing the publisher down.
func (a *API) streamListings(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed := a.stream.Subscribe(ctx)

	// Opening comment so proxies and clients see the feed is live before
	// the first listing is published.
	_, _ = w.Write([]byte(": listing feed connected\n\n"))
	flusher.Flush()

	for event := range feed {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
