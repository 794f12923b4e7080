package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStoreAt(
		filepath.Join(dir, "durable", "session.json"),
		filepath.Join(dir, "session.json"),
	)
}

func testCreds() *Credentials {
	return &Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         User{ID: "u1", Email: "ops@example.com"},
	}
}

func TestGetWithoutLogin(t *testing.T) {
	s := testStore(t)

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSetRememberedRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Set(testCreds(), true))
	assert.True(t, s.Remembered())

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "ops@example.com", got.User.Email)
}

func TestSetSessionScopedRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Set(testCreds(), false))
	assert.False(t, s.Remembered())

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestSetSwitchesStorage(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Set(testCreds(), true))

	// Logging in again without remember-me must evict the durable copy.
	next := testCreds()
	next.AccessToken = "access-2"
	require.NoError(t, s.Set(next, false))

	assert.False(t, s.Remembered())
	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)
}

func TestClear(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Set(testCreds(), true))
	require.NoError(t, s.Clear())

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// Clearing an already-empty store is not an error.
	assert.NoError(t, s.Clear())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestExpiresWithin(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		window time.Duration
		want   bool
	}{
		{"expires soon", "", time.Minute, true},
		{"expires later", "", time.Minute, false},
		{"opaque token", "not-a-jwt", time.Minute, false},
		{"empty token", "", time.Minute, false},
	}

	tests[0].token = signedToken(t, time.Now().Add(10*time.Second))
	tests[1].token = signedToken(t, time.Now().Add(time.Hour))
	tests[3].token = ""

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credentials{AccessToken: tt.token}
			assert.Equal(t, tt.want, c.ExpiresWithin(tt.window))
		})
	}
}
