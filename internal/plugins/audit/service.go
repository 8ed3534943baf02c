package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/clock"
)

// recentLimit is how many entries the admin dashboard shows.
const recentLimit = 50

// writeTimeout bounds a single background insert.
const writeTimeout = 5 * time.Second

// AuditService records entries in the background and reads recent ones back.
type AuditService interface {
	Recorder

	// Recent returns an administrator's newest entries.
	Recent(ctx context.Context, adminID string) ([]Entry, error)

	// Wait blocks until every pending write has finished. Called on
	// shutdown.
	Wait()
}

// auditService implements AuditService.
type auditService struct {
	repo  AuditRepository
	clock clock.Clock
	wg    sync.WaitGroup
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository, clk clock.Clock) AuditService {
	return &auditService{repo: repo, clock: clk}
}

// Record stamps the entry and writes it in a background goroutine. The
// write outlives the request but not writeTimeout.
func (s *auditService) Record(ctx context.Context, e Entry) {
	if !e.Action.Valid() {
		slog.Error("dropping audit entry with unknown action", slog.String("action", string(e.Action)))
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now().UTC()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()

		if err := s.repo.Log(wctx, &e); err != nil {
			slog.Error("failed to write audit entry",
				slog.String("action", string(e.Action)),
				slog.String("admin_id", e.AdminID),
				slog.Any("error", err),
			)
		}
	}()
}

// Recent returns the dashboard's entries.
func (s *auditService) Recent(ctx context.Context, adminID string) ([]Entry, error) {
	if adminID == "" {
		return nil, apperror.NewBadRequest("admin ID is required")
	}

	entries, err := s.repo.ListRecent(ctx, adminID, recentLimit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing recent audit entries: %w", err))
	}
	return entries, nil
}

func (s *auditService) Wait() { s.wg.Wait() }

// disabledService is used when AUDIT_ENABLED=false.
type disabledService struct{ Discard }

// NewDisabledService returns an AuditService that records nothing and
// reports no entries.
func NewDisabledService() AuditService { return disabledService{} }

func (disabledService) Recent(context.Context, string) ([]Entry, error) { return nil, nil }
func (disabledService) Wait()                                           {}
