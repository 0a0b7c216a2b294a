package profile

import "time"

// Profile is the durable per-user record of personality, style, and
// demographic attributes. Merges only ever union or overwrite; nothing
// is deleted by the pipeline.
type Profile struct {
	UserID             string         `json:"user_id"`
	Name               string         `json:"name"`
	PersonalityTraits  []string       `json:"personality_traits"`
	CommunicationStyle map[string]any `json:"communication_style"`
	Demographic        map[string]any `json:"demographic"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Interest is a subject the user has shown interest in, unique per
// (user, name). A re-observed interest overwrites its summary.
type Interest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Person is someone in the user's life, unique per (user, name).
// Relationship reflects the latest insight; Notes accumulates everything
// ever learned, space-joined in merge order.
type Person struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Story is an experience the user shared. Stories are append-only: there
// is no natural dedup key, so every extraction produces a new row.
type Story struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	People      []string  `json:"people,omitempty"` // linked person names
	CreatedAt   time.Time `json:"created_at"`
}

// Bundle is everything the store knows about one user, read in a single
// pass. A nil Profile means the user has no profile row yet; callers must
// treat that as "no personalization available", not an error.
type Bundle struct {
	Profile   *Profile   `json:"profile"`
	Interests []Interest `json:"interests"`
	People    []Person   `json:"people"`
	Stories   []Story    `json:"stories"`
}

// Empty reports whether the bundle carries no profile data at all.
func (b Bundle) Empty() bool {
	return b.Profile == nil && len(b.Interests) == 0 && len(b.People) == 0 && len(b.Stories) == 0
}
