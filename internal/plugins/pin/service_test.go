package pin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidstube/web/internal/clock"
	"github.com/kidstube/web/internal/kidsapi"
	"github.com/kidstube/web/internal/plugins/audit"
	"github.com/kidstube/web/internal/plugins/tokenstore"
	"github.com/kidstube/web/internal/testutil"
)

const sid = "0f8a3d2e-5b4c-4e1a-9a77-1d2c3b4a5f60"

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recordingAudit) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type svcFixture struct {
	store *tokenstore.RedisStore
	clock *clock.FakeClock
	audit *recordingAudit
	svc   PinService
}

func newSvcFixture(t *testing.T, api ProfileAPI) *svcFixture {
	t.Helper()
	store := testutil.NewStore(t)
	clk := clock.Fake(start)
	rec := &recordingAudit{}
	svc := NewPinService(NewRegistry(clk, 10*time.Minute), store, api, clk, testOpts, rec)
	return &svcFixture{store: store, clock: clk, audit: rec, svc: svc}
}

func TestMiaScenario(t *testing.T) {
	api := &mockProfileAPI{verifyFn: func(_ context.Context, id, pin string) (*kidsapi.Profile, error) {
		if id == "abc123" && pin == "445566" {
			return &kidsapi.Profile{ID: "abc123", FullName: "Mia", Avatar: "https://img.example.com/mia.png"}, nil
		}
		return nil, &kidsapi.StatusError{Code: 401}
	}}
	f := newSvcFixture(t, api)
	ctx := context.Background()
	require.NoError(t, f.store.GrantAdminPin(ctx, sid, start))

	snap := f.svc.OpenProfile(ctx, sid, RequestMeta{AdminID: "u1", RemoteIP: "10.0.0.5"}, mia)
	assert.Equal(t, StateCollecting, snap.State)
	assert.Equal(t, "Mia", snap.Target.Name)

	ch, ok := f.svc.Challenge(sid)
	require.True(t, ok)
	enter(t, ch, "445566")
	f.clock.Advance(testOpts.SubmitDelay)

	assert.Equal(t, StateResolved, f.svc.Snapshot(sid).State)

	got, ok := f.store.ActiveProfile(ctx, sid)
	require.True(t, ok)
	assert.Equal(t, tokenstore.ActiveChildProfile{
		ID:       "abc123",
		FullName: "Mia",
		Avatar:   "https://img.example.com/mia.png",
		PIN:      "445566",
	}, got)

	// Entering a child profile revokes the admin grant.
	_, ok = f.store.AdminPinGrant(ctx, sid)
	assert.False(t, ok)

	dest, ok := f.svc.Finish(sid)
	require.True(t, ok)
	assert.Equal(t, ProfileDestination, dest)
	_, ok = f.svc.Challenge(sid)
	assert.False(t, ok)

	assert.Equal(t, []audit.Action{audit.ActionPinResolved}, f.audit.actions())
	assert.Equal(t, "abc123", f.audit.entries[0].ProfileID)
	assert.Equal(t, "u1", f.audit.entries[0].AdminID)
}

func TestProfileWrongPIN_StoresNothing(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	ctx := context.Background()

	f.svc.OpenProfile(ctx, sid, RequestMeta{}, mia)
	ch, _ := f.svc.Challenge(sid)
	enter(t, ch, "000000")
	f.clock.Advance(testOpts.SubmitDelay)

	_, ok := f.store.ActiveProfile(ctx, sid)
	assert.False(t, ok)
	assert.Equal(t, "Incorrect PIN. 2 attempts remaining.", f.svc.Snapshot(sid).Message)
	assert.Equal(t, []audit.Action{audit.ActionPinMismatch}, f.audit.actions())

	_, ok = f.svc.Finish(sid)
	assert.False(t, ok)
}

func TestOpenAdmin_GrantsOnCachedPIN(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, sid, tokenstore.Session{Token: "tok", AdminID: "u1", DisplayName: "Ana", AdminPIN: "998877"}))

	_, err := f.svc.OpenAdmin(ctx, sid, RequestMeta{AdminID: "u1"})
	require.NoError(t, err)
	ch, _ := f.svc.Challenge(sid)

	enter(t, ch, "112233")
	f.clock.Advance(testOpts.SubmitDelay)
	snap := f.svc.Snapshot(sid)
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, "Incorrect PIN. 2 attempts remaining.", snap.Message)
	_, ok := f.store.AdminPinGrant(ctx, sid)
	assert.False(t, ok)

	enter(t, ch, "998877")
	f.clock.Advance(testOpts.SubmitDelay)
	assert.Equal(t, StateResolved, f.svc.Snapshot(sid).State)

	grant, ok := f.store.AdminPinGrant(ctx, sid)
	require.True(t, ok)
	assert.True(t, grant.VerifiedAt.Equal(f.clock.Now()))

	dest, ok := f.svc.Finish(sid)
	require.True(t, ok)
	assert.Equal(t, AdminDestination, dest)
}

func TestOpenAdmin_RequiresSession(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	_, err := f.svc.OpenAdmin(context.Background(), sid, RequestMeta{})
	assert.Error(t, err)
}

func TestOpenAdmin_LockoutAudited(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, sid, tokenstore.Session{Token: "tok", AdminPIN: "998877"}))

	_, err := f.svc.OpenAdmin(ctx, sid, RequestMeta{})
	require.NoError(t, err)
	ch, _ := f.svc.Challenge(sid)
	for i := 0; i < MaxAttempts; i++ {
		enter(t, ch, "112233")
		f.clock.Advance(testOpts.SubmitDelay)
	}

	assert.Equal(t, StateLocked, f.svc.Snapshot(sid).State)
	assert.Equal(t, []audit.Action{
		audit.ActionPinMismatch, audit.ActionPinMismatch, audit.ActionPinMismatch, audit.ActionPinLocked,
	}, f.audit.actions())

	f.clock.Advance(testOpts.LockoutCloseDelay)
	assert.False(t, f.svc.Snapshot(sid).Open())
}

func TestReopenResetsChallenge(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	ctx := context.Background()

	f.svc.OpenProfile(ctx, sid, RequestMeta{}, mia)
	first, _ := f.svc.Challenge(sid)
	enter(t, first, "123")

	f.svc.OpenProfile(ctx, sid, RequestMeta{}, kidsapi.Profile{ID: "leo1", FullName: "Leo"})
	assert.Equal(t, StateIdle, first.Snapshot().State)
	assert.Equal(t, "Leo", f.svc.Snapshot(sid).Target.Name)
	assert.Equal(t, 0, f.svc.Snapshot(sid).Digits)
}

func TestOpenProfile_SanitizesTarget(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	snap := f.svc.OpenProfile(context.Background(), sid, RequestMeta{},
		kidsapi.Profile{ID: "x1", FullName: "<b>Mia</b>", Avatar: "javascript:alert(1)"})

	assert.Equal(t, "Mia", snap.Target.Name)
	assert.Empty(t, snap.Target.Avatar)
}

func TestClose(t *testing.T) {
	f := newSvcFixture(t, &mockProfileAPI{})
	f.svc.OpenProfile(context.Background(), sid, RequestMeta{}, mia)

	f.svc.Close(sid)
	_, ok := f.svc.Challenge(sid)
	assert.False(t, ok)
	assert.False(t, f.svc.Snapshot(sid).Open())
}
