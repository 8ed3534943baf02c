// Package profiles is the profile switcher: the grid of restricted (child)
// profiles, the admin icon beside it, and the minimal child landing page
// reached after a profile PIN is accepted.
package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/sanitize"
)

// ProfileLister is the backend operation the switcher needs.
type ProfileLister interface {
	ListRestrictedProfiles(ctx context.Context, token string) ([]kidsapi.Profile, error)
}

// ProfileService reads the profile list and the active child profile.
type ProfileService interface {
	// List returns the administrator's profiles, sanitized for display.
	List(ctx context.Context, sid string) ([]kidsapi.Profile, error)

	// Find returns one profile from the backend's list. Names and avatars
	// supplied by the browser are never used.
	Find(ctx context.Context, sid, id string) (kidsapi.Profile, error)

	// Active returns the entered child profile.
	Active(ctx context.Context, sid string) (tokenstore.ActiveChildProfile, bool)

	// Exit leaves the child profile.
	Exit(ctx context.Context, sid string) error
}

type profileService struct {
	api   ProfileLister
	store tokenstore.Store
}

// NewProfileService creates a new profile service.
func NewProfileService(api ProfileLister, store tokenstore.Store) ProfileService {
	return &profileService{api: api, store: store}
}

func (s *profileService) List(ctx context.Context, sid string) ([]kidsapi.Profile, error) {
	token, ok := s.store.Read(ctx, sid, tokenstore.KeyToken)
	if !ok {
		return nil, apperror.NewUnauthorized("please log in first")
	}

	profiles, err := s.api.ListRestrictedProfiles(ctx, token)
	if err != nil {
		if kidsapi.IsStatus(err, http.StatusUnauthorized) {
			// The backend no longer accepts the token; drop it so the browser
			// goes through the invalid-session notice and then login.
			if lerr := s.store.Logout(ctx, sid); lerr != nil {
				slog.Error("failed to purge rejected session", slog.Any("error", lerr))
			}
			return nil, apperror.NewSessionRejected("your session is no longer valid")
		}
		return nil, apperror.NewBadGateway(fmt.Errorf("listing restricted profiles: %w", err))
	}

	out := make([]kidsapi.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			continue
		}
		out = append(out, kidsapi.Profile{
			ID:       p.ID,
			FullName: sanitize.Text(p.FullName),
			Avatar:   sanitize.AvatarURL(p.Avatar),
		})
	}
	return out, nil
}

func (s *profileService) Find(ctx context.Context, sid, id string) (kidsapi.Profile, error) {
	profiles, err := s.List(ctx, sid)
	if err != nil {
		return kidsapi.Profile{}, err
	}
	for _, p := range profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return kidsapi.Profile{}, apperror.NewNotFound("profile not found")
}

func (s *profileService) Active(ctx context.Context, sid string) (tokenstore.ActiveChildProfile, bool) {
	return s.store.ActiveProfile(ctx, sid)
}

func (s *profileService) Exit(ctx context.Context, sid string) error {
	if err := s.store.ExitProfile(ctx, sid); err != nil {
		return apperror.NewInternal(fmt.Errorf("leaving child profile: %w", err))
	}
	return nil
}
