package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskterm/internal/store"
	"kioskterm/pkg/api"
)

func TestRevalidate_PairedReaffirms(t *testing.T) {
	m, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pairing-status", r.URL.Path)
		writeJSON(w, http.StatusOK, api.PairingStatusResponse{Status: "paired"})
	}))
	m.rec = pairedRecord()

	outcome := m.Revalidate(context.Background())
	assert.Equal(t, TrustPaired, outcome)
	assert.True(t, m.Snapshot().HasPair)
}

func TestRevalidate_RevokedClearsTrust(t *testing.T) {
	m, st, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.PairingStatusResponse{Status: "revoked"})
	}))
	rec := pairedRecord()
	rec.JWT = "h.p.s"
	rec.JWTExpiry = time.Now().Add(time.Hour).UnixMilli()
	m.rec = rec

	outcome := m.Revalidate(context.Background())
	assert.Equal(t, TrustRevoked, outcome)

	snap := m.Snapshot()
	assert.Equal(t, store.PairStateRevoked, snap.PairState)
	assert.False(t, snap.HasPair)
	assert.False(t, snap.IsSessionValid, "a stale JWT must not survive revocation")

	// Revocation is persisted so the pairing flow is forced on next boot
	saved, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, saved.DeviceToken)
	assert.Equal(t, store.PairStateRevoked, saved.PairState)
}

func TestRevalidate_OfflineFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // simulate an unreachable backend

	st := store.NewMemStore()
	m, err := New(st, api.New(srv.URL, 500*time.Millisecond))
	require.NoError(t, err)
	m.rec = pairedRecord()

	outcome := m.Revalidate(context.Background())
	assert.Equal(t, TrustOffline, outcome)
	assert.True(t, m.Snapshot().HasPair, "connectivity loss must not degrade trust")
	assert.Equal(t, store.PairStatePaired, m.Snapshot().PairState)
}

func TestRevalidate_UnpairedIsNoop(t *testing.T) {
	calls := 0
	m, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	outcome := m.Revalidate(context.Background())
	assert.Equal(t, TrustOffline, outcome)
	assert.Equal(t, 0, calls)
}

// TestRevocationStickiness pins the ordering guarantee: a background
// revalidation resolving "revoked" while a login is in flight must win even
// though the login response arrives afterwards with a fresh JWT.
func TestRevocationStickiness(t *testing.T) {
	release := make(chan struct{})
	m, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" {
			http.NotFound(w, r)
			return
		}
		// Hold the login response until the revocation has been applied
		<-release
		writeJSON(w, http.StatusOK, api.LoginResponse{
			JWT:       "h.p.s",
			JWTExpiry: time.Now().Add(4 * time.Hour).UnixMilli(),
			User:      api.User{ID: 9, Name: "Ana", Role: "cashier"},
			Device:    api.DeviceContext{RestaurantID: 10, DeviceType: string(DeviceCashRegister)},
		})
	}))
	m.rec = pairedRecord()

	loginErr := make(chan error, 1)
	go func() {
		loginErr <- m.LoginWithPIN(context.Background(), "123456")
	}()

	// Wait until the login request is parked in the handler, then revoke.
	time.Sleep(50 * time.Millisecond)
	m.applyTrust(TrustRevoked)
	close(release)

	require.ErrorIs(t, <-loginErr, ErrDeviceRevoked)

	snap := m.Snapshot()
	assert.Equal(t, store.PairStateRevoked, snap.PairState)
	assert.False(t, snap.HasPair)
	assert.Empty(t, snap.JWT, "late login result must not resurrect a revoked terminal")
	assert.False(t, snap.IsSessionValid)
}

func TestLogin_RejectedLocallyAfterRevocation(t *testing.T) {
	calls := 0
	m, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, api.PairingStatusResponse{Status: "revoked"})
	}))
	m.rec = pairedRecord()

	require.Equal(t, TrustRevoked, m.Revalidate(context.Background()))
	callsAfterRevalidate := calls

	err := m.LoginWithPIN(context.Background(), "123456")
	require.ErrorIs(t, err, ErrDeviceRevoked)
	assert.Equal(t, callsAfterRevalidate, calls, "login on a revoked terminal must not hit the network")
}

func TestApplyTrust_PairedDoesNotResurrectRevoked(t *testing.T) {
	m, _, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	m.rec = pairedRecord()

	m.applyTrust(TrustRevoked)
	m.applyTrust(TrustPaired)

	assert.Equal(t, store.PairStateRevoked, m.Snapshot().PairState)
}
