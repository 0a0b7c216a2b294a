package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/confidant-ai/confidant/internal/db"
	"github.com/confidant-ai/confidant/internal/insight"
)

// recentStoryLimit caps how many stories a bundle read returns.
const recentStoryLimit = 5

// Store owns all persisted profile entities. Merges for the same user are
// serialized so concurrent messages cannot interleave their upserts.
type Store struct {
	db *db.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a profile store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{
		db:    database,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// EnsureProfile creates a profile row for the user if one does not exist.
// Existing rows are left untouched.
func (s *Store) EnsureProfile(ctx context.Context, userID, name string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		userID, name, now, now,
	)
	if err != nil {
		return fmt.Errorf("ensuring profile: %w", err)
	}
	return nil
}

// MergeInsight applies one insight to the user's stored profile inside a
// single transaction: either every sub-write lands or none do. Field-level
// rules: traits union, style keys overwrite (others preserved), interest
// summaries overwrite, person relationships overwrite with notes appended,
// stories always appended with best-effort person links.
func (s *Store) MergeInsight(ctx context.Context, userID string, ins insight.Insight) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if len(ins.PersonalityTraits) > 0 || len(ins.CommunicationStyle) > 0 {
		if err := mergeProfileRow(ctx, tx, userID, ins, now); err != nil {
			return err
		}
	}

	for _, in := range ins.Interests {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO interests (id, user_id, name, summary, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, name) DO UPDATE
			 SET summary = excluded.summary, updated_at = excluded.updated_at`,
			uuid.New().String(), userID, name, in.Summary, now, now,
		)
		if err != nil {
			return fmt.Errorf("upserting interest %q: %w", name, err)
		}
	}

	for _, p := range ins.People {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO people (id, user_id, name, relationship, notes, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, name) DO UPDATE
			 SET relationship = excluded.relationship,
			     notes = trim(people.notes || ' ' || excluded.notes),
			     updated_at = excluded.updated_at`,
			uuid.New().String(), userID, name, p.Relationship, strings.TrimSpace(p.Context), now, now,
		)
		if err != nil {
			return fmt.Errorf("upserting person %q: %w", name, err)
		}
	}

	for _, st := range ins.Stories {
		if strings.TrimSpace(st.Title) == "" && strings.TrimSpace(st.Description) == "" {
			continue
		}
		storyID := uuid.New().String()
		tags, err := json.Marshal(nonNil(st.Tags))
		if err != nil {
			return fmt.Errorf("marshalling story tags: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO stories (id, user_id, title, description, location, tags, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			storyID, userID, st.Title, st.Description, st.Location, string(tags), now,
		)
		if err != nil {
			return fmt.Errorf("inserting story %q: %w", st.Title, err)
		}

		// Link people mentioned in the story. Resolution is exact-name and
		// best-effort: names with no matching Person row are dropped.
		for _, personName := range st.People {
			var personID string
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM people WHERE user_id = ? AND name = ?`,
				userID, personName,
			).Scan(&personID)
			if err == sql.ErrNoRows {
				continue
			}
			if err != nil {
				return fmt.Errorf("resolving story person %q: %w", personName, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO story_people (story_id, person_id) VALUES (?, ?)`,
				storyID, personID,
			)
			if err != nil {
				return fmt.Errorf("linking story person %q: %w", personName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	return nil
}

// mergeProfileRow folds traits and style into the user's profile row.
// The row is update-only here: a user with no profile yet accumulates
// interests and people, but trait/style merges wait for the row to exist.
func mergeProfileRow(ctx context.Context, tx *sql.Tx, userID string, ins insight.Insight, now time.Time) error {
	var traitsJSON, styleJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT personality_traits, communication_style FROM users WHERE id = ?`,
		userID,
	).Scan(&traitsJSON, &styleJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading profile row: %w", err)
	}

	var traits []string
	if err := json.Unmarshal([]byte(traitsJSON), &traits); err != nil {
		traits = nil
	}
	traits = unionStrings(traits, ins.PersonalityTraits)

	style := map[string]any{}
	if err := json.Unmarshal([]byte(styleJSON), &style); err != nil {
		style = map[string]any{}
	}
	for k, v := range ins.CommunicationStyle {
		style[k] = v
	}

	newTraits, err := json.Marshal(nonNil(traits))
	if err != nil {
		return fmt.Errorf("marshalling traits: %w", err)
	}
	newStyle, err := json.Marshal(style)
	if err != nil {
		return fmt.Errorf("marshalling style: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET personality_traits = ?, communication_style = ?, updated_at = ? WHERE id = ?`,
		string(newTraits), string(newStyle), now, userID,
	)
	if err != nil {
		return fmt.Errorf("updating profile row: %w", err)
	}
	return nil
}

// ReadBundle returns the user's full candidate set for context assembly:
// profile row, all interests and people in storage order, and the most
// recent stories with their linked person names. A user with no profile
// row gets an explicitly empty bundle, not an error.
func (s *Store) ReadBundle(ctx context.Context, userID string) (Bundle, error) {
	bundle := Bundle{
		Interests: []Interest{},
		People:    []Person{},
		Stories:   []Story{},
	}

	prof, err := s.readProfile(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	if prof == nil {
		return bundle, nil
	}
	bundle.Profile = prof

	bundle.Interests, err = s.readInterests(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	bundle.People, err = s.readPeople(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	bundle.Stories, err = s.readRecentStories(ctx, userID, recentStoryLimit)
	if err != nil {
		return Bundle{}, err
	}

	return bundle, nil
}

func (s *Store) readProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p                     Profile
		traitsJSON, styleJSON string
		demoJSON              string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, personality_traits, communication_style, demographic, created_at, updated_at
		 FROM users WHERE id = ?`, userID,
	).Scan(&p.UserID, &p.Name, &traitsJSON, &styleJSON, &demoJSON, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	if err := json.Unmarshal([]byte(traitsJSON), &p.PersonalityTraits); err != nil {
		p.PersonalityTraits = []string{}
	}
	if err := json.Unmarshal([]byte(styleJSON), &p.CommunicationStyle); err != nil {
		p.CommunicationStyle = map[string]any{}
	}
	if err := json.Unmarshal([]byte(demoJSON), &p.Demographic); err != nil {
		p.Demographic = map[string]any{}
	}
	return &p, nil
}

func (s *Store) readInterests(ctx context.Context, userID string) ([]Interest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, summary, created_at, updated_at
		 FROM interests WHERE user_id = ? ORDER BY created_at ASC, name ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying interests: %w", err)
	}
	defer rows.Close()

	interests := []Interest{}
	for rows.Next() {
		var in Interest
		if err := rows.Scan(&in.ID, &in.UserID, &in.Name, &in.Summary, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning interest: %w", err)
		}
		interests = append(interests, in)
	}
	return interests, rows.Err()
}

func (s *Store) readPeople(ctx context.Context, userID string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, relationship, notes, created_at, updated_at
		 FROM people WHERE user_id = ? ORDER BY created_at ASC, name ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying people: %w", err)
	}
	defer rows.Close()

	people := []Person{}
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Relationship, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *Store) readRecentStories(ctx context.Context, userID string, limit int) ([]Story, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, location, tags, created_at
		 FROM stories WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer rows.Close()

	stories := []Story{}
	for rows.Next() {
		var (
			st       Story
			tagsJSON string
		)
		if err := rows.Scan(&st.ID, &st.UserID, &st.Title, &st.Description, &st.Location, &tagsJSON, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning story: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &st.Tags); err != nil {
			st.Tags = nil
		}
		stories = append(stories, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stories {
		names, err := s.readStoryPeople(ctx, stories[i].ID)
		if err != nil {
			return nil, err
		}
		stories[i].People = names
	}
	return stories, nil
}

func (s *Store) readStoryPeople(ctx context.Context, storyID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.name FROM story_people sp
		 JOIN people p ON p.id = sp.person_id
		 WHERE sp.story_id = ? ORDER BY p.name ASC`, storyID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying story people: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning story person: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// unionStrings appends items from add that are not already in base,
// preserving first-seen order.
func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	out := base
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
