package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/confidant-ai/confidant/internal/db"
	"github.com/confidant-ai/confidant/internal/llm"
	"github.com/confidant-ai/confidant/internal/pipeline"
)

// scriptedProvider returns a fixed response per call index.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i < len(p.responses) {
		return &llm.CompletionResponse{Content: p.responses[i]}, nil
	}
	return &llm.CompletionResponse{Content: "ok"}, nil
}

const extractionJSON = `{
	"topics": ["hiking"],
	"people": [],
	"interests": [{"name": "hiking", "summary": "Enjoys weekend hikes"}],
	"personality_traits": [],
	"communication_style": {"tone": "casual"},
	"stories": []
}`

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(Config{Port: 0, AllowAll: true}, database, provider, "test-model")
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestProcessMessageEndpoint(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"Hiking Plans", extractionJSON, "draft reply", "styled reply"}}
	srv := newTestServer(t, provider)

	body := `{"user_id": "user-1", "content": "Thinking about a hike this weekend"}`
	req := httptest.NewRequest("POST", "/api/messages/process", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp processResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.AssistantMessage.Content != "styled reply" {
		t.Errorf("assistant content = %q", resp.AssistantMessage.Content)
	}
	if resp.AssistantMessage.ChatID == "" {
		t.Error("expected a chat to be created")
	}
	if len(resp.Insights.Interests) != 1 {
		t.Errorf("insights = %+v", resp.Insights)
	}

	// The new chat got an LLM title and holds both turns.
	chats, err := srv.chats.ListChats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 1 || chats[0].Title != "Hiking Plans" {
		t.Fatalf("unexpected chats: %+v", chats)
	}
	messages, err := srv.chats.GetMessages(context.Background(), chats[0].ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(messages) != 2 || messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("unexpected messages: %+v", messages)
	}
}

func TestProcessMessageValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	for _, body := range []string{
		`{"user_id": "user-1"}`,
		`{"content": "hello"}`,
		`{"user_id": "user-1", "content": "hello", "chat_id": "missing"}`,
	} {
		req := httptest.NewRequest("POST", "/api/messages/process", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestGetProfile(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"Title", extractionJSON, "draft", "styled"}}
	srv := newTestServer(t, provider)

	req := httptest.NewRequest("GET", "/api/profile/user-1", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any messages, got %d", w.Code)
	}

	post := httptest.NewRequest("POST", "/api/messages/process",
		strings.NewReader(`{"user_id": "user-1", "content": "I love hiking"}`))
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, post)
	if w.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/profile/user-1", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var bundle struct {
		Interests []struct {
			Name string `json:"name"`
		} `json:"interests"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(bundle.Interests) != 1 || bundle.Interests[0].Name != "hiking" {
		t.Errorf("unexpected interests: %+v", bundle.Interests)
	}
}

func TestChatTranscriptHTML(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	ctx := context.Background()

	c, err := srv.chats.CreateChat(ctx, "user-1", "Code Review")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	srv.chats.AddMessage(ctx, c.ID, "user", "Show me **bold** and `code`")
	srv.chats.AddMessage(ctx, c.ID, "assistant", "Here:\n\n```go\nfmt.Println(\"hi\")\n```")

	req := httptest.NewRequest("GET", "/api/chats/"+c.ID+"/messages?format=html", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	page := w.Body.String()
	for _, want := range []string{"Code Review", "<strong>bold</strong>", "<code>code</code>"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestListAndCreateChats(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	req := httptest.NewRequest("POST", "/api/chats",
		bytes.NewReader([]byte(`{"user_id": "user-1", "title": "Manual"}`)))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/chats?user=user-1", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var chats []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &chats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(chats) != 1 || chats[0].Title != "Manual" {
		t.Errorf("unexpected chats: %+v", chats)
	}
}

func TestPipelineWebSocket(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"Title", extractionJSON, "draft reply", "styled reply"}}
	srv := newTestServer(t, provider)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/pipeline"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(map[string]string{
		"user_id": "user-1",
		"content": "Thinking about a hike",
	})
	if err != nil {
		t.Fatalf("writing: %v", err)
	}

	var events []pipeline.Event
	for {
		var event pipeline.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("reading event: %v", err)
		}
		events = append(events, event)
		if event.Phase == pipeline.PhaseComplete || event.Status == pipeline.StatusError {
			break
		}
		if len(events) > 20 {
			t.Fatal("too many events")
		}
	}

	if events[0].Phase != pipeline.PhaseExtracting || events[0].Status != pipeline.StatusInProgress {
		t.Errorf("first event = %+v", events[0])
	}
	final := events[len(events)-1]
	if final.Phase != pipeline.PhaseComplete {
		t.Fatalf("final event = %+v", final)
	}
	if final.Payload["replyText"] != "styled reply" {
		t.Errorf("replyText = %v", final.Payload["replyText"])
	}
}
