// Command testserver is a local target for trying httpstorm against a server
// you control.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("test server listening on %s", addr)
	log.Fatal(srv.ListenAndServe())
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", handleOK)
	mux.HandleFunc("/slow", handleSlow)
	mux.HandleFunc("/status/{code}", handleStatus)
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})
	return mux
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleSlow sleeps for ?ms= milliseconds (default 500) before answering.
func handleSlow(w http.ResponseWriter, r *http.Request) {
	delay := 500 * time.Millisecond
	if raw := r.URL.Query().Get("ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": "ms must be a non-negative integer"})
			return
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "delay_ms": delay.Milliseconds()})
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 599 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid status code"})
		return
	}
	respondJSON(w, code, map[string]any{"status": code})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	body := ""
	if r.Body != nil {
		bodyBytes, _ := io.ReadAll(r.Body)
		body = string(bodyBytes)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"method":       r.Method,
		"path":         r.URL.Path,
		"headers":      r.Header,
		"body":         body,
		"content_type": r.Header.Get("Content-Type"),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
