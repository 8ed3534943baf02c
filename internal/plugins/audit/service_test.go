package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/apperror"
	"github.com/kidstube/web/internal/clock"
)

// --- Mock Repository ---

type mockAuditRepo struct {
	mu           sync.Mutex
	logged       []Entry
	logFn        func(ctx context.Context, e *Entry) error
	listRecentFn func(ctx context.Context, adminID string, limit int) ([]Entry, error)
}

func (m *mockAuditRepo) Log(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	m.logged = append(m.logged, *e)
	m.mu.Unlock()
	if m.logFn != nil {
		return m.logFn(ctx, e)
	}
	return nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, adminID string, limit int) ([]Entry, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, adminID, limit)
	}
	return nil, nil
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRecord_StampsAndWrites(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, clock.Fake(testNow))

	svc.Record(context.Background(), Entry{AdminID: "a1", Action: ActionPinMismatch, Purpose: "admin", Attempts: 1})
	svc.Wait()

	require.Len(t, repo.logged, 1)
	assert.Equal(t, ActionPinMismatch, repo.logged[0].Action)
	assert.Equal(t, testNow, repo.logged[0].CreatedAt)
	assert.Equal(t, 1, repo.logged[0].Attempts)
}

func TestRecord_SurvivesCanceledRequest(t *testing.T) {
	var sawCanceled bool
	repo := &mockAuditRepo{logFn: func(ctx context.Context, e *Entry) error {
		sawCanceled = ctx.Err() != nil
		return nil
	}}
	svc := NewAuditService(repo, clock.Fake(testNow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, Entry{Action: ActionGateDenied, Reason: "login_required"})
	svc.Wait()

	require.Len(t, repo.logged, 1)
	assert.False(t, sawCanceled)
}

func TestRecord_RepoErrorDoesNotPropagate(t *testing.T) {
	repo := &mockAuditRepo{logFn: func(context.Context, *Entry) error { return errors.New("db down") }}
	svc := NewAuditService(repo, clock.Fake(testNow))

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Entry{Action: ActionPinError})
		svc.Wait()
	})
}

func TestRecord_UnknownActionDropped(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, clock.Fake(testNow))

	svc.Record(context.Background(), Entry{Action: "pin.guessed"})
	svc.Wait()

	assert.Empty(t, repo.logged)
}

func TestRecent(t *testing.T) {
	repo := &mockAuditRepo{listRecentFn: func(_ context.Context, adminID string, limit int) ([]Entry, error) {
		assert.Equal(t, "a1", adminID)
		assert.Equal(t, recentLimit, limit)
		return []Entry{{ID: 2, Action: ActionPinLocked}, {ID: 1, Action: ActionPinMismatch}}, nil
	}}
	svc := NewAuditService(repo, clock.Fake(testNow))

	entries, err := svc.Recent(context.Background(), "a1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecent_Errors(t *testing.T) {
	repo := &mockAuditRepo{listRecentFn: func(context.Context, string, int) ([]Entry, error) {
		return nil, errors.New("db down")
	}}
	svc := NewAuditService(repo, clock.Fake(testNow))

	_, err := svc.Recent(context.Background(), "")
	assert.True(t, apperror.IsCode(err, 400))

	_, err = svc.Recent(context.Background(), "a1")
	assert.True(t, apperror.IsCode(err, 500))
}

func TestDisabledService(t *testing.T) {
	svc := NewDisabledService()
	svc.Record(context.Background(), Entry{Action: ActionPinResolved})
	svc.Wait()

	entries, err := svc.Recent(context.Background(), "a1")
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestActionValid(t *testing.T) {
	for _, a := range AllActions {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, Action("entity.created").Valid())
}
