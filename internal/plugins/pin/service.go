package pin

import (
	"context"
	"fmt"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/sanitize"
)

const (
	// ProfileDestination is the child view.
	ProfileDestination = "/kids"

	// AdminDestination is the admin dashboard.
	AdminDestination = "/admin"
)

// RequestMeta identifies who opened a challenge, for the audit log.
type RequestMeta struct {
	AdminID  string
	RemoteIP string
}

// PinService opens challenges and persists what they unlock.
type PinService interface {
	// OpenProfile opens a challenge for a child profile taken from the
	// backend's list.
	OpenProfile(ctx context.Context, sid string, meta RequestMeta, p kidsapi.Profile) Snapshot

	// OpenAdmin opens the admin re-verification challenge.
	OpenAdmin(ctx context.Context, sid string, meta RequestMeta) (Snapshot, error)

	// Challenge returns the browser's open challenge.
	Challenge(sid string) (*Challenge, bool)

	// Snapshot returns the open challenge's state; a closed Snapshot when
	// there is none.
	Snapshot(sid string) Snapshot

	// Close discards the browser's challenge.
	Close(sid string)

	// Finish forgets a resolved challenge and returns its destination.
	Finish(sid string) (string, bool)
}

type pinService struct {
	registry *Registry
	store    tokenstore.Store
	api      ProfileAPI
	clock    clock.Clock
	opts     Options
	audit    audit.Recorder
}

// NewPinService creates the service.
func NewPinService(reg *Registry, store tokenstore.Store, api ProfileAPI, clk clock.Clock, opts Options, rec audit.Recorder) PinService {
	return &pinService{
		registry: reg,
		store:    store,
		api:      api,
		clock:    clk,
		opts:     opts,
		audit:    rec,
	}
}

func (s *pinService) OpenProfile(_ context.Context, sid string, meta RequestMeta, p kidsapi.Profile) Snapshot {
	p.FullName = sanitize.Text(p.FullName)
	p.Avatar = sanitize.AvatarURL(p.Avatar)

	c := NewChallenge(Config{
		Purpose:     PurposeProfile,
		Target:      Target{ProfileID: p.ID, Name: p.FullName, Avatar: p.Avatar},
		Destination: ProfileDestination,
		Verifier:    NewProfileVerifier(s.api, p),
		Clock:       s.clock,
		Options:     s.opts,
		OnResolve: func(ctx context.Context, o Outcome) error {
			if o.Profile == nil {
				return fmt.Errorf("profile challenge resolved without a profile")
			}
			if err := s.store.SetActiveProfile(ctx, sid, *o.Profile); err != nil {
				return err
			}
			// A child is at the keypad now; the admin area must ask again.
			return s.store.Clear(ctx, sid, tokenstore.KeyAdminPinVerified, tokenstore.KeyAdminPinVerifiedAt)
		},
		OnEvent: s.observer(meta),
	})
	s.registry.Put(sid, c)
	return c.Snapshot()
}

func (s *pinService) OpenAdmin(ctx context.Context, sid string, meta RequestMeta) (Snapshot, error) {
	sess, ok := s.store.Session(ctx, sid)
	if !ok {
		return Snapshot{}, apperror.NewUnauthorized("please log in first")
	}

	c := NewChallenge(Config{
		Purpose:     PurposeAdmin,
		Target:      Target{Name: sess.DisplayName},
		Destination: AdminDestination,
		Verifier:    NewLocalAdminVerifier(sess.AdminPIN),
		Clock:       s.clock,
		Options:     s.opts,
		OnResolve: func(ctx context.Context, _ Outcome) error {
			return s.store.GrantAdminPin(ctx, sid, s.clock.Now())
		},
		OnEvent: s.observer(meta),
	})
	s.registry.Put(sid, c)
	return c.Snapshot(), nil
}

func (s *pinService) Challenge(sid string) (*Challenge, bool) {
	return s.registry.Get(sid)
}

func (s *pinService) Snapshot(sid string) Snapshot {
	c, ok := s.registry.Get(sid)
	if !ok {
		return Snapshot{State: StateIdle}
	}
	return c.Snapshot()
}

func (s *pinService) Close(sid string) {
	s.registry.Remove(sid)
}

func (s *pinService) Finish(sid string) (string, bool) {
	c, ok := s.registry.Get(sid)
	if !ok {
		return "", false
	}
	snap := c.Snapshot()
	if snap.State != StateResolved {
		return "", false
	}
	s.registry.Remove(sid)
	return snap.Destination, true
}

// observer turns challenge events into audit entries.
func (s *pinService) observer(meta RequestMeta) func(Event) {
	return func(ev Event) {
		e := audit.Entry{
			AdminID:   meta.AdminID,
			Purpose:   string(ev.Purpose),
			ProfileID: ev.Target.ProfileID,
			RemoteIP:  meta.RemoteIP,
			Attempts:  ev.Attempts,
		}
		switch ev.Kind {
		case EventResolved:
			e.Action = audit.ActionPinResolved
		case EventMismatch:
			e.Action = audit.ActionPinMismatch
		case EventError:
			e.Action = audit.ActionPinError
		case EventLocked:
			e.Action = audit.ActionPinLocked
		}
		s.audit.Record(context.Background(), e)
	}
}
