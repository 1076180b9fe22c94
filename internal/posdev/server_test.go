package posdev

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskterm/internal/session"
	"kioskterm/internal/store"
	"kioskterm/pkg/api"
)

type fixture struct {
	backend *Server
	manager *session.Manager
	store   *store.MemStore
	url     string
}

// newFixture wires a full terminal core against an in-memory backend.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := NewServer("test-secret")
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)

	st := store.NewMemStore()
	m, err := session.New(st, api.New(srv.URL, 2*time.Second))
	require.NoError(t, err)

	return &fixture{backend: backend, manager: m, store: st, url: srv.URL}
}

// pair runs the full pairing flow for a commander handheld and returns the
// minted code.
func (f *fixture) pair(t *testing.T) string {
	t.Helper()

	code, err := f.backend.Codes().Mint(10, string(session.DeviceCommander), false, time.Minute)
	require.NoError(t, err)

	requireStation, err := f.manager.PairStart(context.Background(), code.Code, session.DeviceCommander)
	require.NoError(t, err)
	require.False(t, requireStation)

	err = f.manager.PairConfirm(context.Background(), session.PairRequest{
		Code:       code.Code,
		DeviceType: session.DeviceCommander,
		DeviceName: "Comandero 1",
	})
	require.NoError(t, err)
	return code.Code
}

func TestFreshDevicePairing(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	snap := f.manager.Snapshot()
	assert.Equal(t, store.PairStatePaired, snap.PairState)
	assert.True(t, snap.HasPair)
	assert.Equal(t, int64(10), snap.RestaurantID)
	assert.Equal(t, "Comandero 1", snap.DeviceLabel)
	assert.Empty(t, snap.JWT, "pairing alone must not create a session")
	assert.False(t, snap.IsSessionValid)
	assert.Equal(t, 1, f.backend.Devices().Count())
}

func TestPINLoginOnPairedDevice(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	_, err := f.backend.Operators().Add(10, "Ana", "cashier", "123456")
	require.NoError(t, err)

	require.NoError(t, f.manager.LoginWithPIN(context.Background(), "123456"))

	snap := f.manager.Snapshot()
	assert.True(t, snap.IsSessionValid)
	assert.True(t, snap.JWTExpiry.After(time.Now()))
	require.NotNil(t, snap.Operator)
	assert.Equal(t, "Ana", snap.Operator.Name)

	// The JWT carries the device's authoritative context
	claims, err := session.ExtractClaims(snap.JWT)
	require.NoError(t, err)
	assert.Equal(t, int64(10), claims.RestaurantID)
	assert.Equal(t, string(session.DeviceCommander), claims.DeviceType)
}

func TestWrongPINRejectedWithoutStateChange(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	_, err := f.backend.Operators().Add(10, "Ana", "cashier", "123456")
	require.NoError(t, err)

	err = f.manager.LoginWithPIN(context.Background(), "654321")
	require.Error(t, err)
	assert.False(t, api.IsTransport(err))
	assert.True(t, f.manager.Snapshot().HasPair)
	assert.False(t, f.manager.Snapshot().IsSessionValid)
}

func TestBackgroundRevocation(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	rec, err := f.store.Load()
	require.NoError(t, err)
	require.True(t, f.backend.RevokeDevice(rec.DeviceToken))

	outcome := f.manager.Revalidate(context.Background())
	assert.Equal(t, session.TrustRevoked, outcome)

	snap := f.manager.Snapshot()
	assert.Equal(t, store.PairStateRevoked, snap.PairState)
	assert.False(t, snap.HasPair)

	// Subsequent login is rejected locally, no network involved
	err = f.manager.LoginWithPIN(context.Background(), "123456")
	require.ErrorIs(t, err, session.ErrDeviceRevoked)
}

func TestConfirmWithForeignFingerprint(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	// A second terminal that somehow carries the first one's fingerprint
	st2 := store.NewMemStore()
	require.NoError(t, st2.Save(store.Record{
		PairState:   store.PairStateNone,
		Fingerprint: f.manager.Fingerprint(),
	}))
	m2, err := session.New(st2, api.New(f.url, 2*time.Second))
	require.NoError(t, err)

	code, err := f.backend.Codes().Mint(10, string(session.DeviceCommander), false, time.Minute)
	require.NoError(t, err)

	err = m2.PairConfirm(context.Background(), session.PairRequest{
		Code:       code.Code,
		DeviceType: session.DeviceCommander,
		DeviceName: "Comandero 2",
	})
	require.Error(t, err)
	assert.True(t, api.IsDeviceInUse(err))
	assert.Equal(t, store.PairStateNone, m2.Snapshot().PairState)

	// The conflict did not consume the code
	assert.NotNil(t, f.backend.Codes().Lookup(code.Code))
}

func TestConfirmTwiceWithConsumedCode(t *testing.T) {
	f := newFixture(t)
	code := f.pair(t)
	tokenBefore, err := f.store.Load()
	require.NoError(t, err)

	// A different terminal replays the consumed code
	m2, err := session.New(store.NewMemStore(), api.New(f.url, 2*time.Second))
	require.NoError(t, err)

	err = m2.PairConfirm(context.Background(), session.PairRequest{
		Code:       code,
		DeviceType: session.DeviceCommander,
		DeviceName: "Comandero 2",
	})
	require.Error(t, err)
	assert.False(t, api.IsTransport(err))

	// The established pairing is untouched
	tokenAfter, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, tokenBefore.DeviceToken, tokenAfter.DeviceToken)
	assert.True(t, f.manager.Snapshot().HasPair)
}

func TestStationBoundPairing(t *testing.T) {
	f := newFixture(t)

	code, err := f.backend.Codes().Mint(10, string(session.DeviceCashRegister), true, time.Minute)
	require.NoError(t, err)

	requireStation, err := f.manager.PairStart(context.Background(), code.Code, session.DeviceCashRegister)
	require.NoError(t, err)
	assert.True(t, requireStation)

	station := int64(2)
	err = f.manager.PairConfirm(context.Background(), session.PairRequest{
		Code:       code.Code,
		DeviceType: session.DeviceCashRegister,
		DeviceName: "Caja 1",
		StationID:  &station,
	})
	require.NoError(t, err)

	snap := f.manager.Snapshot()
	require.NotNil(t, snap.StationID)
	assert.Equal(t, int64(2), *snap.StationID)
}

func TestNoOpenShiftBlocksOperations(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	_, err := f.backend.Operators().Add(10, "Ana", "cashier", "123456")
	require.NoError(t, err)
	require.NoError(t, f.manager.LoginWithPIN(context.Background(), "123456"))

	assert.False(t, f.manager.RefreshShift(context.Background()))
	snap := f.manager.Snapshot()
	assert.True(t, snap.IsSessionValid)
	assert.False(t, snap.CanOperate(), "no open shift must block operations, not crash")

	// Once a shift opens, the next refresh binds it
	f.backend.Shifts().Open(10)
	assert.True(t, f.manager.RefreshShift(context.Background()))
	assert.True(t, f.manager.Snapshot().CanOperate())
}

func TestLoginBindsAlreadyOpenShift(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	_, err := f.backend.Operators().Add(10, "Ana", "cashier", "123456")
	require.NoError(t, err)
	shiftID := f.backend.Shifts().Open(10)

	require.NoError(t, f.manager.LoginWithPIN(context.Background(), "123456"))

	snap := f.manager.Snapshot()
	require.NotNil(t, snap.ShiftID)
	assert.Equal(t, shiftID, *snap.ShiftID)
}

func TestWatch_ReceivesPushedRevocation(t *testing.T) {
	f := newFixture(t)
	f.pair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- f.manager.Watch(ctx)
	}()

	// Give the watcher time to connect before revoking
	time.Sleep(100 * time.Millisecond)

	rec, err := f.store.Load()
	require.NoError(t, err)
	require.True(t, f.backend.RevokeDevice(rec.DeviceToken))

	select {
	case err := <-watchDone:
		require.NoError(t, err, "watch should return cleanly on revocation")
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not observe the revocation")
	}

	snap := f.manager.Snapshot()
	assert.Equal(t, store.PairStateRevoked, snap.PairState)
	assert.False(t, snap.HasPair)
}

func TestUnpairClearsServerSide(t *testing.T) {
	f := newFixture(t)
	f.pair(t)
	require.Equal(t, 1, f.backend.Devices().Count())

	f.manager.Unpair(context.Background())

	assert.Equal(t, 0, f.backend.Devices().Count())
	assert.Equal(t, store.PairStateNone, f.manager.Snapshot().PairState)
}
