package pipeline

import (
	"context"
	"fmt"

	"github.com/confidant-ai/confidant/internal/insight"
	"github.com/confidant-ai/confidant/internal/profile"
	"github.com/confidant-ai/confidant/internal/relevance"
)

// ProfileContext is the slice of stored profile data judged relevant to
// the current message. Profile is nil for users without a profile row.
type ProfileContext struct {
	Profile   *profile.Profile   `json:"profile"`
	Interests []profile.Interest `json:"interests"`
	People    []profile.Person   `json:"people"`
	Stories   []profile.Story    `json:"stories"`
}

// Style returns the user's communication style, or nil when unknown.
func (c ProfileContext) Style() map[string]any {
	if c.Profile == nil {
		return nil
	}
	return c.Profile.CommunicationStyle
}

// Assembler persists a message's insights and reads back the context
// relevant to that message. The merge happens first so the context
// reflects what was just learned.
type Assembler struct {
	profiles *profile.Store
}

// NewAssembler creates an assembler over the given profile store.
func NewAssembler(profiles *profile.Store) *Assembler {
	return &Assembler{profiles: profiles}
}

// Assemble merges the insight into the user's profile, then reads the
// full bundle and filters it down to what the insight makes relevant.
// A merge or read failure is unrecoverable and aborts the run.
func (a *Assembler) Assemble(ctx context.Context, userID string, ins insight.Insight) (ProfileContext, error) {
	if err := a.profiles.MergeInsight(ctx, userID, ins); err != nil {
		return ProfileContext{}, fmt.Errorf("merging insight: %w", err)
	}

	bundle, err := a.profiles.ReadBundle(ctx, userID)
	if err != nil {
		return ProfileContext{}, fmt.Errorf("reading profile: %w", err)
	}

	sel := relevance.Select(ins, bundle)
	return ProfileContext{
		Profile:   bundle.Profile,
		Interests: sel.Interests,
		People:    sel.People,
		Stories:   sel.Stories,
	}, nil
}
