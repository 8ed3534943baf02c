// Package admin is the administrator's area behind the admin PIN. The
// dashboard shows how long the current PIN grant lasts, how many child
// profiles exist, and the recent access audit for the account.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/middleware"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/gate"
	"github.com/kidstube/web/internal/plugins/tokenstore"
)

// ProfileLister provides the child profiles shown in the summary.
type ProfileLister interface {
	List(ctx context.Context, sid string) ([]kidsapi.Profile, error)
}

// AuditReader provides the recent audit entries for an administrator.
type AuditReader interface {
	Recent(ctx context.Context, adminID string) ([]audit.Entry, error)
}

// Handler handles admin dashboard HTTP requests. Depends on other plugins'
// services via interfaces -- no direct repo access.
type Handler struct {
	store    tokenstore.Store
	profiles ProfileLister
	audit    AuditReader
	clock    clock.Clock
}

// NewHandler creates a new admin handler.
func NewHandler(store tokenstore.Store, profiles ProfileLister, audit AuditReader, clk clock.Clock) *Handler {
	return &Handler{store: store, profiles: profiles, audit: audit, clock: clk}
}

// DashboardData is everything the dashboard renders.
type DashboardData struct {
	AdminName    string
	GrantExpires time.Time
	Profiles     []kidsapi.Profile
	Entries      []audit.Entry
	AuditError   bool
}

// Dashboard renders the admin dashboard (GET /admin).
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	sid := tokenstore.SessionID(c)

	claims := gate.GetClaims(c)
	if claims == nil {
		return apperror.NewMissingContext()
	}

	data := DashboardData{}
	data.AdminName, _ = h.store.Read(ctx, sid, tokenstore.KeyUserName)
	if data.AdminName == "" {
		data.AdminName = claims.DisplayName()
	}
	if g, ok := h.store.AdminPinGrant(ctx, sid); ok {
		data.GrantExpires = g.VerifiedAt.Add(tokenstore.AdminPinGrantWindow)
	}

	profiles, err := h.profiles.List(ctx, sid)
	if err != nil {
		return err
	}
	data.Profiles = profiles

	entries, err := h.audit.Recent(ctx, claims.ID)
	if err != nil {
		// The audit trail is informational; the dashboard still works.
		slog.Error("loading access audit", slog.String("admin_id", claims.ID), slog.Any("error", err))
		data.AuditError = true
	}
	data.Entries = entries

	return middleware.Render(c, http.StatusOK, dashboardPage(data, h.clock.Now()))
}

// Lock ends the admin PIN grant early (POST /admin/lock). The next visit
// to the admin area asks for the PIN again.
func (h *Handler) Lock(c echo.Context) error {
	ctx := c.Request().Context()
	sid := tokenstore.SessionID(c)

	if err := h.store.Clear(ctx, sid, tokenstore.KeyAdminPinVerified, tokenstore.KeyAdminPinVerifiedAt); err != nil {
		return apperror.NewInternal(err)
	}
	return middleware.Redirect(c, "/profiles")
}
