// Package debughttp exposes the tool surface over plain HTTP so tools can be
// exercised with curl during development. It speaks the same envelopes as the
// agent transport; it is not an outward-facing API.
package debughttp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/scrapegate/scrapegate/internal/core/domain"
	"github.com/scrapegate/scrapegate/internal/core/services"
)

type Server struct {
	logger   *slog.Logger
	registry *services.Registry
	eventBus *services.EventBus
}

func NewServer(logger *slog.Logger, registry *services.Registry, eventBus *services.EventBus) *Server {
	return &Server{logger: logger, registry: registry, eventBus: eventBus}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/list", s.handleList)
	mux.HandleFunc("POST /tools/call", s.handleCall)
	mux.HandleFunc("GET /tools/events", s.handleEvents)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	descriptors := s.registry.List()
	tools := make([]map[string]any, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, map[string]any{
			"name":         d.Name,
			"description":  d.Description,
			"input_schema": d.Input,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var call domain.ToolCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	// Dispatch is total; transport status is 200 even for tool-level errors.
	result := s.registry.Dispatch(r.Context(), call)
	s.writeJSON(w, http.StatusOK, result)
}

// handleEvents streams dispatch telemetry over SSE. The tool query parameter
// narrows the stream to one tool; the default is every tool.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := r.URL.Query().Get("tool")
	if key == "" {
		key = services.SubscribeAll
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := s.eventBus.Subscribe(key)
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, _ := json.Marshal(map[string]any{
				"request_id": evt.RequestID,
				"tool":       evt.Tool,
				"data":       evt.Data,
				"ts":         evt.Timestamp,
			})
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
