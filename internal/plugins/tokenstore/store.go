package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the contract every other component uses to read and write
// persisted browser state. All operations take the browser-session id.
//
// Reads never fail: a storage or decoding problem is logged and reported as
// absence, which every caller already handles (usually as "not signed in").
type Store interface {
	// Save replaces the Session record. Token, admin id, display name, and
	// admin PIN are written in one transaction; no reader observes a mix of
	// old and new fields.
	Save(ctx context.Context, sid string, s Session) error

	// Session returns the Session record; false when there is no token.
	Session(ctx context.Context, sid string) (Session, bool)

	Read(ctx context.Context, sid string, key Key) (string, bool)
	Write(ctx context.Context, sid string, key Key, value string) error
	Clear(ctx context.Context, sid string, keys ...Key) error

	// IsPresent is the one definition of "authenticated" when called with
	// KeyToken.
	IsPresent(ctx context.Context, sid string, key Key) bool

	// Logout removes everything except the dark-mode preference.
	Logout(ctx context.Context, sid string) error

	// Rotate retires sid and returns a fresh browser-session id carrying
	// only the dark-mode preference. Called on every login so an id handed
	// out before authentication never becomes the credential.
	Rotate(ctx context.Context, sid string) (string, error)

	GrantAdminPin(ctx context.Context, sid string, at time.Time) error
	AdminPinGrant(ctx context.Context, sid string) (AdminPinVerification, bool)

	SetActiveProfile(ctx context.Context, sid string, p ActiveChildProfile) error
	ActiveProfile(ctx context.Context, sid string) (ActiveChildProfile, bool)
	ExitProfile(ctx context.Context, sid string) error

	SetDarkMode(ctx context.Context, sid string, on bool) error
	DarkMode(ctx context.Context, sid string) bool
}

// ErrNoBrowserSession is returned by writes attempted without a session id.
var ErrNoBrowserSession = errors.New("tokenstore: missing browser session id")

// RedisStore implements Store with two Redis hashes per browser session:
// "<prefix>store:<sid>" (refreshed to the store TTL on every write) and
// "<prefix>tab:<sid>" (expires with the admin-PIN grant).
type RedisStore struct {
	client redis.UniversalClient
	sealer *sealer
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a store sealing values with a key derived from
// secret. ttl bounds how long an idle browser's state survives.
func NewRedisStore(client redis.UniversalClient, secret string, ttl time.Duration) (*RedisStore, error) {
	s, err := newSealer(secret)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client: client,
		sealer: s,
		ttl:    ttl,
		prefix: "kidstube:",
	}, nil
}

func (s *RedisStore) mainKey(sid string) string { return s.prefix + "store:" + sid }
func (s *RedisStore) tabKey(sid string) string  { return s.prefix + "tab:" + sid }

func (s *RedisStore) hashFor(sid string, k Key) string {
	if tabScoped(k) {
		return s.tabKey(sid)
	}
	return s.mainKey(sid)
}

func slot(sid string, k Key) string { return sid + "/" + string(k) }

// Save writes the Session record atomically.
func (s *RedisStore) Save(ctx context.Context, sid string, sess Session) error {
	if sid == "" {
		return ErrNoBrowserSession
	}
	if sess.Token == "" {
		return errors.New("tokenstore: refusing to save a session without a token")
	}

	values := map[Key]string{
		KeyToken:    sess.Token,
		KeyAdminID:  sess.AdminID,
		KeyUserName: sess.DisplayName,
		KeyAdminPIN: sess.AdminPIN,
	}
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if v == "" {
			continue
		}
		sealed, err := s.sealer.seal(slot(sid, k), v)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", k, err)
		}
		fields[string(k)] = sealed
	}

	key := s.mainKey(sid)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, key, keyNames(sessionKeys)...)
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Session reads the four Session fields in one round trip.
func (s *RedisStore) Session(ctx context.Context, sid string) (Session, bool) {
	if sid == "" {
		return Session{}, false
	}

	vals, err := s.client.HMGet(ctx, s.mainKey(sid), keyNames(sessionKeys)...).Result()
	if err != nil {
		slog.Warn("token store read failed", slog.String("op", "session"), slog.Any("error", err))
		return Session{}, false
	}

	out := make(map[Key]string, len(sessionKeys))
	for i, k := range sessionKeys {
		raw, ok := vals[i].(string)
		if !ok {
			continue
		}
		v, err := s.sealer.open(slot(sid, k), raw)
		if err != nil {
			slog.Warn("discarding unreadable stored value", slog.String("key", string(k)), slog.Any("error", err))
			continue
		}
		out[k] = v
	}

	if out[KeyToken] == "" {
		return Session{}, false
	}
	return Session{
		Token:       out[KeyToken],
		AdminID:     out[KeyAdminID],
		DisplayName: out[KeyUserName],
		AdminPIN:    out[KeyAdminPIN],
	}, true
}

// Read returns a single stored value.
func (s *RedisStore) Read(ctx context.Context, sid string, k Key) (string, bool) {
	if sid == "" {
		return "", false
	}

	raw, err := s.client.HGet(ctx, s.hashFor(sid, k), string(k)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("token store read failed", slog.String("key", string(k)), slog.Any("error", err))
		return "", false
	}

	v, err := s.sealer.open(slot(sid, k), raw)
	if err != nil {
		slog.Warn("discarding unreadable stored value", slog.String("key", string(k)), slog.Any("error", err))
		return "", false
	}
	return v, true
}

// Write stores one value and refreshes the owning record's TTL.
func (s *RedisStore) Write(ctx context.Context, sid string, k Key, value string) error {
	return s.writeMany(ctx, sid, map[Key]string{k: value})
}

// writeMany stores several values in one transaction. All keys must belong
// to the same record.
func (s *RedisStore) writeMany(ctx context.Context, sid string, values map[Key]string) error {
	if sid == "" {
		return ErrNoBrowserSession
	}

	var hash string
	ttl := s.ttl
	fields := make(map[string]any, len(values))
	for k, v := range values {
		h := s.hashFor(sid, k)
		if hash != "" && h != hash {
			return fmt.Errorf("tokenstore: %s belongs to a different record", k)
		}
		hash = h
		if tabScoped(k) {
			ttl = AdminPinGrantWindow
		}

		sealed, err := s.sealer.seal(slot(sid, k), v)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", k, err)
		}
		fields[string(k)] = sealed
	}
	if len(fields) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, hash, fields)
		p.Expire(ctx, hash, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing token store: %w", err)
	}
	return nil
}

// Clear removes the given keys from whichever record holds them.
func (s *RedisStore) Clear(ctx context.Context, sid string, keys ...Key) error {
	if sid == "" || len(keys) == 0 {
		return nil
	}

	var mainFields, tabFields []string
	for _, k := range keys {
		if tabScoped(k) {
			tabFields = append(tabFields, string(k))
		} else {
			mainFields = append(mainFields, string(k))
		}
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(mainFields) > 0 {
			p.HDel(ctx, s.mainKey(sid), mainFields...)
		}
		if len(tabFields) > 0 {
			p.HDel(ctx, s.tabKey(sid), tabFields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing token store: %w", err)
	}
	return nil
}

// IsPresent reports whether key holds a readable value.
func (s *RedisStore) IsPresent(ctx context.Context, sid string, k Key) bool {
	_, ok := s.Read(ctx, sid, k)
	return ok
}

// Logout clears the session, the grant, the active profile, and the return
// URL. The dark-mode preference stays.
func (s *RedisStore) Logout(ctx context.Context, sid string) error {
	return s.Clear(ctx, sid, logoutKeys...)
}

// Rotate drops both records of sid and starts a new id. Values are sealed
// to their sid, so the preference is re-written rather than copied.
func (s *RedisStore) Rotate(ctx context.Context, sid string) (string, error) {
	next := uuid.NewString()
	if sid == "" {
		return next, nil
	}

	dark := s.DarkMode(ctx, sid)
	if err := s.client.Del(ctx, s.mainKey(sid), s.tabKey(sid)).Err(); err != nil {
		return "", fmt.Errorf("retiring browser session: %w", err)
	}
	if dark {
		if err := s.SetDarkMode(ctx, next, true); err != nil {
			return "", err
		}
	}
	return next, nil
}

// GrantAdminPin records a successful admin-PIN re-entry at the given time.
func (s *RedisStore) GrantAdminPin(ctx context.Context, sid string, at time.Time) error {
	return s.writeMany(ctx, sid, map[Key]string{
		KeyAdminPinVerified:   "true",
		KeyAdminPinVerifiedAt: at.UTC().Format(time.RFC3339Nano),
	})
}

// AdminPinGrant returns the grant if one was recorded. Callers decide
// freshness with AdminPinVerification.Fresh.
func (s *RedisStore) AdminPinGrant(ctx context.Context, sid string) (AdminPinVerification, bool) {
	if v, ok := s.Read(ctx, sid, KeyAdminPinVerified); !ok || v != "true" {
		return AdminPinVerification{}, false
	}
	raw, ok := s.Read(ctx, sid, KeyAdminPinVerifiedAt)
	if !ok {
		return AdminPinVerification{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		slog.Warn("discarding unreadable admin PIN grant", slog.Any("error", err))
		return AdminPinVerification{}, false
	}
	return AdminPinVerification{VerifiedAt: at}, true
}

// SetActiveProfile records the entered child profile and its PIN together.
func (s *RedisStore) SetActiveProfile(ctx context.Context, sid string, p ActiveChildProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding active profile: %w", err)
	}
	return s.writeMany(ctx, sid, map[Key]string{
		KeyActiveProfile: string(data),
		KeyProfilePIN:    p.PIN,
	})
}

// ActiveProfile returns the entered child profile, if any.
func (s *RedisStore) ActiveProfile(ctx context.Context, sid string) (ActiveChildProfile, bool) {
	raw, ok := s.Read(ctx, sid, KeyActiveProfile)
	if !ok {
		return ActiveChildProfile{}, false
	}
	var p ActiveChildProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
		slog.Warn("discarding unreadable active profile", slog.Any("error", err))
		return ActiveChildProfile{}, false
	}
	return p, true
}

// ExitProfile leaves the child profile.
func (s *RedisStore) ExitProfile(ctx context.Context, sid string) error {
	return s.Clear(ctx, sid, KeyActiveProfile, KeyProfilePIN)
}

// SetDarkMode stores the dark-mode preference.
func (s *RedisStore) SetDarkMode(ctx context.Context, sid string, on bool) error {
	return s.Write(ctx, sid, KeyDarkMode, strconv.FormatBool(on))
}

// DarkMode returns the dark-mode preference; off when unset.
func (s *RedisStore) DarkMode(ctx context.Context, sid string) bool {
	v, ok := s.Read(ctx, sid, KeyDarkMode)
	if !ok {
		return false
	}
	on, _ := strconv.ParseBool(v)
	return on
}

func keyNames(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
