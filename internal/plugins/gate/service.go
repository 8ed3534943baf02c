package gate

import (
	"context"
	"log/slog"

	"github.com/kidstube/web/internal/bearer"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// Gate evaluates page loads against the stored session.
type Gate struct {
	store  tokenstore.Store
	clock  clock.Clock
	policy Policy
}

// NewGate creates a gate reading from store.
func NewGate(store tokenstore.Store, clk clock.Clock, policy Policy) *Gate {
	return &Gate{store: store, clock: clk, policy: policy}
}

// Policy returns the allow-lists the gate was built with.
func (g *Gate) Policy() Policy { return g.policy }

// Evaluate runs the checks for one page load, strictly in order:
//
//  1. public page: allowed
//  2. no token: login_required
//  3. token undecodable: invalid_token, session purged
//  4. token past exp: token_expired, session purged
//  5. admin-only page without a fresh admin-PIN grant: admin_pin_required
//
// returnTo, when non-empty, is recorded for the post-login redirect on the
// paths that end at the login page.
func (g *Gate) Evaluate(ctx context.Context, sid, path, returnTo string) Decision {
	if g.policy.IsPublic(path) {
		return allow(nil)
	}

	token, ok := g.store.Read(ctx, sid, tokenstore.KeyToken)
	if !ok {
		g.rememberReturn(ctx, sid, returnTo)
		return deny(ReasonLoginRequired, nil)
	}

	claims, err := bearer.Decode(token)
	if err != nil {
		slog.Info("purging undecodable session token", slog.Any("error", err))
		g.purge(ctx, sid)
		g.rememberReturn(ctx, sid, returnTo)
		return deny(ReasonInvalidToken, nil)
	}

	if claims.Expired(g.clock.Now()) {
		g.purge(ctx, sid)
		g.rememberReturn(ctx, sid, returnTo)
		return deny(ReasonTokenExpired, &claims)
	}

	if g.policy.IsAdminOnly(path) {
		grant, ok := g.store.AdminPinGrant(ctx, sid)
		if !ok || !grant.Fresh(g.clock.Now()) {
			return deny(ReasonAdminPinRequired, &claims)
		}
	}

	return allow(&claims)
}

// purge removes the whole Session. The dark-mode preference stays.
func (g *Gate) purge(ctx context.Context, sid string) {
	if err := g.store.Logout(ctx, sid); err != nil {
		slog.Error("failed to purge session", slog.Any("error", err))
	}
}

func (g *Gate) rememberReturn(ctx context.Context, sid, returnTo string) {
	if returnTo == "" {
		return
	}
	if err := g.store.Write(ctx, sid, tokenstore.KeyReturnTo, returnTo); err != nil {
		slog.Warn("failed to record return URL", slog.Any("error", err))
	}
}
