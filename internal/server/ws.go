package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/confidant-ai/confidant/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketError is sent for request-level failures outside the phase stream.
type socketError struct {
	Error string `json:"error"`
}

// handlePipelineSocket streams phase events for each message the client
// sends. A client disconnect mid-run cancels the run: the first failed
// write stops the pipeline before its next phase.
func (s *Server) handlePipelineSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[server] websocket read: %v", err)
			}
			return
		}

		var req processRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.WriteJSON(socketError{Error: "invalid message format"})
			continue
		}

		s.runOverSocket(r.Context(), conn, req)
	}
}

func (s *Server) runOverSocket(ctx context.Context, conn *websocket.Conn, req processRequest) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emit := func(event pipeline.Event) error {
		if err := conn.WriteJSON(event); err != nil {
			cancel()
			return err
		}
		return nil
	}

	if _, err := s.processMessage(ctx, req, emit); err != nil {
		var phaseErr *pipeline.PhaseError
		if errors.As(err, &phaseErr) {
			// The error event for the failing phase was already emitted.
			return
		}
		log.Printf("[server] websocket run failed: %v", err)
		conn.WriteJSON(socketError{Error: err.Error()})
	}
}
