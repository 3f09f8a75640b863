// Package swipe drives one user's pass through the profile deck: loading it,
// asking the wingman for a vibe check on the card in front, and turning drag
// releases into likes, passes and match overlays.
package swipe

import (
	"context"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

// ProfileLister is the deck source.
type ProfileLister interface {
	ListExcept(ctx context.Context, viewerID int) ([]model.Profile, error)
}

// Deck is the immutable, ordered set of candidate profiles for one session.
type Deck struct {
	profiles []model.Profile
}

func NewDeck(profiles []model.Profile) Deck {
	return Deck{profiles: append([]model.Profile(nil), profiles...)}
}

func (d Deck) Len() int { return len(d.profiles) }

// At returns the profile at index i.
func (d Deck) At(i int) (model.Profile, bool) {
	if i < 0 || i >= len(d.profiles) {
		return model.Profile{}, false
	}
	return d.profiles[i], true
}

// loadDeck fetches every profile except the viewer's.
func loadDeck(ctx context.Context, lister ProfileLister, viewerID int) (Deck, error) {
	profiles, err := lister.ListExcept(ctx, viewerID)
	if err != nil {
		return Deck{}, err
	}
	out := make([]model.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID != viewerID {
			out = append(out, p)
		}
	}
	return Deck{profiles: out}, nil
}
