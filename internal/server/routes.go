package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/confidant-ai/confidant/internal/chat"
	"github.com/confidant-ai/confidant/internal/insight"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
)

// processRequest is the body for message processing, over HTTP or WebSocket.
type processRequest struct {
	UserID       string          `json:"user_id"`
	UserName     string          `json:"user_name,omitempty"`
	ChatID       string          `json:"chat_id,omitempty"`
	Content      string          `json:"content"`
	History      []pipeline.Turn `json:"message_history,omitempty"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
}

// assistantMessage is the reply returned to callers.
type assistantMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ChatID    string    `json:"chat_id,omitempty"`
}

// processResponse is the terminal result of a processed message.
type processResponse struct {
	Status           string                 `json:"status"`
	AssistantMessage assistantMessage       `json:"assistant_message"`
	Insights         insight.Insight        `json:"insights"`
	Degradations     []pipeline.Degradation `json:"degradations,omitempty"`
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages/process", s.handleProcessMessage)
		r.Get("/profile/{userID}", s.handleGetProfile)
		r.Get("/chats", s.handleListChats)
		r.Post("/chats", s.handleCreateChat)
		r.Get("/chats/{chatID}/messages", s.handleGetMessages)
	})
}

func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.processMessage(r.Context(), req, func(pipeline.Event) error { return nil })
	if err != nil {
		var badReq *badRequestError
		if errors.As(err, &badReq) {
			http.Error(w, badReq.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[server] processing failed: %v", err)
		http.Error(w, "message processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// processMessage runs the full pipeline for one message and persists the
// conversation around it. Shared by the HTTP and WebSocket paths.
func (s *Server) processMessage(ctx context.Context, req processRequest, emit pipeline.EmitFunc) (*processResponse, error) {
	if req.Content == "" {
		return nil, &badRequestError{"content is required"}
	}
	if req.UserID == "" {
		return nil, &badRequestError{"user_id is required"}
	}

	if err := s.profiles.EnsureProfile(ctx, req.UserID, req.UserName); err != nil {
		return nil, fmt.Errorf("ensuring profile: %w", err)
	}

	chatID := req.ChatID
	if chatID == "" {
		title := s.titler.Title(ctx, req.Content)
		c, err := s.chats.CreateChat(ctx, req.UserID, title)
		if err != nil {
			return nil, fmt.Errorf("creating chat: %w", err)
		}
		chatID = c.ID
	} else if c, err := s.chats.GetChat(ctx, chatID); err != nil {
		return nil, fmt.Errorf("loading chat: %w", err)
	} else if c == nil {
		return nil, &badRequestError{"unknown chat_id"}
	}

	history := req.History
	if history == nil {
		stored, err := s.chats.GetMessages(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		for _, m := range stored {
			history = append(history, pipeline.Turn{Role: llm.Role(m.Role), Content: m.Content})
		}
	}

	if _, err := s.chats.AddMessage(ctx, chatID, "user", req.Content); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	result, err := s.runner.Run(ctx, pipeline.Request{
		UserID:       req.UserID,
		ChatID:       chatID,
		Content:      req.Content,
		History:      history,
		SystemPrompt: req.SystemPrompt,
	}, emit)
	if err != nil {
		return nil, err
	}

	saved, err := s.chats.AddMessage(ctx, chatID, "assistant", result.Response)
	if err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	return &processResponse{
		Status: "success",
		AssistantMessage: assistantMessage{
			ID:        saved.ID,
			Role:      "assistant",
			Content:   saved.Content,
			CreatedAt: saved.CreatedAt,
			ChatID:    chatID,
		},
		Insights:     result.Insight,
		Degradations: result.Degradations,
	}, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	bundle, err := s.profiles.ReadBundle(r.Context(), userID)
	if err != nil {
		log.Printf("[server] reading profile %s: %v", userID, err)
		http.Error(w, "failed to read profile", http.StatusInternalServerError)
		return
	}
	if bundle.Empty() {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user query parameter is required", http.StatusBadRequest)
		return
	}

	chats, err := s.chats.ListChats(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list chats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if body.Title == "" {
		body.Title = chat.DefaultTitle
	}

	c, err := s.chats.CreateChat(r.Context(), body.UserID, body.Title)
	if err != nil {
		http.Error(w, "failed to create chat", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	c, err := s.chats.GetChat(r.Context(), chatID)
	if err != nil {
		http.Error(w, "failed to load chat", http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, "chat not found", http.StatusNotFound)
		return
	}

	messages, err := s.chats.GetMessages(r.Context(), chatID)
	if err != nil {
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "html" {
		page, err := renderTranscript(c, messages)
		if err != nil {
			http.Error(w, "failed to render transcript", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// badRequestError marks caller mistakes so handlers can return 400.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encoding response: %v", err)
	}
}
