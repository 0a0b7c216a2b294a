package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/confidant-ai/confidant/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:               "test-1",
		ActorType:        ActorSystem,
		ActorID:          "pipeline",
		Action:           ActionInsightMerged,
		UserID:           "user-1",
		Summary:          "Merged 2 interests and 1 person",
		AffectedEntities: []string{"interest:hiking", "person:Sam"},
		ChatID:           "chat-1",
	}

	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.ActorID != "pipeline" {
		t.Errorf("ActorID = %q, want %q", got.ActorID, "pipeline")
	}
	if got.Action != ActionInsightMerged {
		t.Errorf("Action = %q, want %q", got.Action, ActionInsightMerged)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "user-1")
	}
	if got.ChatID != "chat-1" {
		t.Errorf("ChatID = %q, want %q", got.ChatID, "chat-1")
	}
	if len(got.AffectedEntities) != 2 || got.AffectedEntities[0] != "interest:hiking" {
		t.Errorf("AffectedEntities = %v", got.AffectedEntities)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)

	err := store.Log(context.Background(), Entry{
		ActorType: ActorUser,
		ActorID:   "user-1",
		Action:    ActionProfileRead,
		UserID:    "user-1",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated ID")
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []Entry{
		{ActorType: ActorSystem, ActorID: "pipeline", Action: ActionInsightMerged, UserID: "alice", AffectedEntities: []string{"interest:chess"}},
		{ActorType: ActorSystem, ActorID: "pipeline", Action: ActionResponseDegraded, UserID: "alice"},
		{ActorType: ActorSystem, ActorID: "pipeline", Action: ActionInsightMerged, UserID: "bob"},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	byUser, err := store.Query(ctx, QueryFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("Query by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("expected 2 entries for alice, got %d", len(byUser))
	}

	byAction, err := store.Query(ctx, QueryFilter{Action: ActionInsightMerged})
	if err != nil {
		t.Fatalf("Query by action: %v", err)
	}
	if len(byAction) != 2 {
		t.Errorf("expected 2 merge entries, got %d", len(byAction))
	}

	byEntity, err := store.Query(ctx, QueryFilter{AffectedEntity: "interest:chess"})
	if err != nil {
		t.Fatalf("Query by entity: %v", err)
	}
	if len(byEntity) != 1 {
		t.Errorf("expected 1 entry for interest:chess, got %d", len(byEntity))
	}

	limited, err := store.Query(ctx, QueryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 entry with limit, got %d", len(limited))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{ActorType: ActorSystem, ActorID: "pipeline", Action: ActionInsightMerged, UserID: "alice"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	deleted, err := store.DeleteBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	entries, _ := store.Query(ctx, QueryFilter{})
	if len(entries) != 0 {
		t.Errorf("expected no entries after delete, got %d", len(entries))
	}
}

func TestAuditRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{ID: "e-1", ActorType: ActorSystem, ActorID: "pipeline", Action: ActionInsightMerged, UserID: "alice", Summary: "merged"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/audit/?user=alice")
	if err != nil {
		t.Fatalf("GET audit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e-1" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	resp2, err := http.Get(srv.URL + "/api/audit/e-1")
	if err != nil {
		t.Fatalf("GET by id: %v", err)
	}
	defer resp2.Body.Close()

	var entry Entry
	if err := json.NewDecoder(resp2.Body).Decode(&entry); err != nil {
		t.Fatalf("decoding entry: %v", err)
	}
	if entry.Summary != "merged" {
		t.Errorf("Summary = %q", entry.Summary)
	}

	resp3, err := http.Get(srv.URL + "/api/audit/missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing entry, got %d", resp3.StatusCode)
	}
}
